package code

// Business error codes. The first three digits are the HTTP status the code
// maps to, the rest distinguishes errors sharing a status.
const (
	ErrBind                 = 400001
	ErrNoFile               = 400002
	ErrUnsupportedMediaType = 400003
	ErrUnauthorized         = 401001
	ErrNotFound             = 404001
	ErrStorageConflict      = 409001
	ErrPayloadTooLarge      = 413001
	ErrInternal             = 500000
	ErrStorageIO            = 500001
	ErrLedgerIO             = 500002
)

// HTTPStatus extracts the HTTP status encoded in a business code.
func HTTPStatus(code int) int {
	return code / 1000
}
