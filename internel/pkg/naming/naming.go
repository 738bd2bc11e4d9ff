package naming

import (
	"fmt"
	"strings"
	"time"

	regexp "github.com/dlclark/regexp2"
	"github.com/google/uuid"
)

// unsafePattern matches every character that may not appear in a storage
// name. Anything outside word characters, dot, hyphen and parentheses is
// replaced with an underscore before the name touches a path. Spaces are
// replaced too so the public URL never needs escaping.
const unsafePattern = `[^\w.\-()]`

var unsafeChars = regexp.MustCompile(unsafePattern, regexp.None)

// Namer derives a storage name from a client-supplied original name.
type Namer func(original string) string

// Sanitize strips any path components from the original name and replaces
// unsafe characters, so the result can never escape the content directory.
func Sanitize(original string) string {
	base := original
	// Base name only; handles both separator conventions.
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	out, err := unsafeChars.Replace(base, "_", -1, -1)
	if err != nil {
		// regexp2 only errors on malformed patterns; ours is constant.
		out = ""
	}
	if out == "" || out == "." || out == ".." {
		return "file"
	}
	return out
}

// Timestamp is the default namer: "<unix-ms>-<sanitized>".
func Timestamp(original string) string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), Sanitize(original))
}

// TimestampToken adds a random token between the timestamp and the name.
// Used to regenerate after a storage name collision.
func TimestampToken(original string) string {
	tok := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), tok, Sanitize(original))
}
