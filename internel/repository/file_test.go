package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/filerelay/internel/domain"
	"github.com/campuslink/filerelay/internel/pkg/code"
	"github.com/campuslink/filerelay/internel/pkg/naming"
	"github.com/campuslink/filerelay/pkg/ginx/errors"
)

func newTestRepo() (*fileRepository, afero.Fs) {
	fs := afero.NewMemMapFs()
	repo := NewFileRepository(fs, nil).(*fileRepository)
	return repo, fs
}

func TestPutRoundTrip(t *testing.T) {
	repo, fs := newTestRepo()
	content := []byte("lecture notes")

	name, n, err := repo.Put(context.Background(), "week 1.pdf", bytes.NewReader(content))
	require.NoError(t, err)
	assert.EqualValues(t, len(content), n)
	assert.Regexp(t, `^\d+-week_1\.pdf$`, name)

	got, err := afero.ReadFile(fs, name)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestPutNeverEscapesContentDir(t *testing.T) {
	repo, fs := newTestRepo()

	name, _, err := repo.Put(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.NotContains(t, name, "/")
	assert.Regexp(t, `^\d+-passwd$`, name)

	exists, err := afero.Exists(fs, name)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPutCollisionRegeneratesName(t *testing.T) {
	repo, fs := newTestRepo()
	// Freeze the primary namer so both uploads resolve identically.
	repo.namer = func(original string) string {
		return "1000-" + naming.Sanitize(original)
	}

	first, _, err := repo.Put(context.Background(), "photo.jpg", strings.NewReader("a"))
	require.NoError(t, err)
	second, _, err := repo.Put(context.Background(), "photo.jpg", strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// The first file is untouched, never overwritten.
	got, err := afero.ReadFile(fs, first)
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))
}

func TestPutConflictWhenRetryCollides(t *testing.T) {
	repo, _ := newTestRepo()
	fixed := func(string) string { return "1000-stuck" }
	repo.namer = fixed
	repo.retry = fixed

	_, _, err := repo.Put(context.Background(), "stuck", strings.NewReader("a"))
	require.NoError(t, err)
	_, _, err = repo.Put(context.Background(), "stuck", strings.NewReader("b"))
	require.Error(t, err)
	assert.Equal(t, code.ErrStorageConflict, errors.Code(err))
}

func TestPutRemovesPartialFile(t *testing.T) {
	repo, fs := newTestRepo()

	r := io.MultiReader(strings.NewReader("part"), failingReader{})
	_, _, err := repo.Put(context.Background(), "big.pdf", r)
	require.Error(t, err)
	assert.Equal(t, code.ErrStorageIO, errors.Code(err))

	infos, err := afero.ReadDir(fs, ".")
	require.NoError(t, err)
	assert.Empty(t, infos, "partial file must not stay visible")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("client went away")
}

func TestConcurrentSameNameUploads(t *testing.T) {
	repo, fs := newTestRepo()
	const n = 16

	var wg sync.WaitGroup
	names := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name, _, err := repo.Put(context.Background(), "photo one.jpg",
				strings.NewReader(fmt.Sprintf("content-%d", i)))
			assert.NoError(t, err)
			names[i] = name
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, name := range names {
		_, dup := seen[name]
		assert.False(t, dup, "storage name %q produced twice", name)
		seen[name] = struct{}{}
	}

	infos, err := afero.ReadDir(fs, ".")
	require.NoError(t, err)
	assert.Len(t, infos, n)
}

func TestLedgerAppendOnly(t *testing.T) {
	repo, fs := newTestRepo()
	ctx := context.Background()

	rec1 := domain.UploadRecord{Name: "a.png", SavedAs: "1-a.png", URL: "/uploads/1-a.png",
		ContentType: "image/png", Size: 1, UploadedAt: time.Now().UTC()}
	require.NoError(t, repo.RecordMetadata(ctx, rec1))

	before, err := afero.ReadFile(fs, LedgerFileName)
	require.NoError(t, err)

	rec2 := rec1
	rec2.SavedAs = "2-a.png"
	require.NoError(t, repo.RecordMetadata(ctx, rec2))

	after, err := afero.ReadFile(fs, LedgerFileName)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(after, before),
		"existing ledger lines must never change")
	assert.Equal(t, 2, bytes.Count(after, []byte("\n")))
}

func TestListFallsBackToLedgerFile(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := domain.UploadRecord{
			Name:       fmt.Sprintf("f%d.png", i),
			SavedAs:    fmt.Sprintf("%d-f%d.png", i, i),
			URL:        fmt.Sprintf("/uploads/%d-f%d.png", i, i),
			Size:       int64(i),
			UploadedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.RecordMetadata(ctx, rec))
	}

	recs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2-f2.png", recs[0].SavedAs)
	assert.Equal(t, "1-f1.png", recs[1].SavedAs)
}

func TestListUsesCache(t *testing.T) {
	repo, fs := newTestRepo()
	ctx := context.Background()

	rec := domain.UploadRecord{Name: "a.png", SavedAs: "1-a.png",
		URL: "/uploads/1-a.png", UploadedAt: time.Now().UTC()}
	require.NoError(t, repo.RecordMetadata(ctx, rec))

	_, err := repo.List(ctx, 10)
	require.NoError(t, err)

	// Corrupt the ledger behind the cache's back; a cached listing must
	// still be served until the next upload invalidates it.
	require.NoError(t, fs.Remove(LedgerFileName))
	recs, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestOpenRejectsLedgerAndTraversal(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	for _, name := range []string{LedgerFileName, "", "..", "a/b", `a\b`} {
		_, _, err := repo.Open(ctx, name)
		require.Error(t, err, "name %q", name)
		assert.Equal(t, code.ErrNotFound, errors.Code(err))
	}
}

func TestOpenMissingFile(t *testing.T) {
	repo, _ := newTestRepo()
	_, _, err := repo.Open(context.Background(), "123-nope.png")
	require.Error(t, err)
	assert.Equal(t, code.ErrNotFound, errors.Code(err))
}

func TestAuditFindsOrphans(t *testing.T) {
	repo, fs := newTestRepo()
	ctx := context.Background()

	name, _, err := repo.Put(ctx, "good.png", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, repo.RecordMetadata(ctx, domain.UploadRecord{
		Name: "good.png", SavedAs: name, URL: domain.MountPrefix + name,
		UploadedAt: time.Now().UTC(),
	}))

	// A file written without a ledger entry, as after a ledger IO error.
	orphan, _, err := repo.Put(ctx, "orphan.png", strings.NewReader("y"))
	require.NoError(t, err)

	orphans, err := repo.Audit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{orphan}, orphans)

	exists, err := afero.Exists(fs, orphan)
	require.NoError(t, err)
	assert.True(t, exists, "audit only reports, never deletes")
}

func TestRecordMetadataInvalidatesCache(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	repo.cache.Set(listCacheKey, []domain.UploadRecord{{SavedAs: "stale"}}, cache.DefaultExpiration)
	require.NoError(t, repo.RecordMetadata(ctx, domain.UploadRecord{
		Name: "a", SavedAs: "1-a", URL: "/uploads/1-a", UploadedAt: time.Now().UTC(),
	}))

	recs, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "1-a", recs[0].SavedAs)
}
