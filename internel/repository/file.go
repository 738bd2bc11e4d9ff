package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"

	"github.com/campuslink/filerelay/internel/domain"
	"github.com/campuslink/filerelay/internel/pkg/code"
	"github.com/campuslink/filerelay/internel/pkg/naming"
	"github.com/campuslink/filerelay/internel/repository/dao"
	"github.com/campuslink/filerelay/pkg/ginx/errors"
	"github.com/campuslink/filerelay/pkg/log"
)

// LedgerFileName is the JSONL ledger inside the content directory. It is
// never served and never counted as a stored file.
const LedgerFileName = "metadata.jsonl"

const listCacheKey = "records:recent"

// maxListEntries caps how many ledger entries a listing ever returns, so a
// single cache entry can serve every requested limit.
const maxListEntries = 100

// FileRepository is the storage port: file bytes plus the metadata ledger.
// The fs handed to it must be rooted at the content directory.
type FileRepository interface {
	// Put writes content under a fresh storage name derived from
	// originalName and returns that name with the byte count. It never
	// overwrites an existing file.
	Put(ctx context.Context, originalName string, content io.Reader) (string, int64, error)
	// RecordMetadata appends one ledger entry for a stored file.
	RecordMetadata(ctx context.Context, rec domain.UploadRecord) error
	// Open returns a stored file for reading, by storage name.
	Open(ctx context.Context, storedName string) (afero.File, os.FileInfo, error)
	// List returns the most recent ledger entries, newest first.
	List(ctx context.Context, limit int) ([]domain.UploadRecord, error)
	// Audit returns storage names present on disk but absent from the
	// ledger (orphans from failed ledger appends).
	Audit(ctx context.Context) ([]string, error)
}

type fileRepository struct {
	fs    afero.Fs
	namer naming.Namer
	// retry regenerates the name after a collision.
	retry naming.Namer
	dao   dao.RecordDAO
	cache *cache.Cache

	// Serializes ledger appends so concurrent lines never interleave.
	mu sync.Mutex
}

func NewFileRepository(fs afero.Fs, d dao.RecordDAO) FileRepository {
	return &fileRepository{
		fs:    fs,
		namer: naming.Timestamp,
		retry: naming.TimestampToken,
		dao:   d,
		cache: cache.New(30*time.Second, 5*time.Minute),
	}
}

func (repo *fileRepository) Put(ctx context.Context, originalName string, content io.Reader) (string, int64, error) {
	name := repo.namer(originalName)
	f, err := repo.create(name)
	if os.IsExist(err) {
		// Two uploads landed on the same millisecond with the same
		// sanitized name. Regenerate once with a random token instead
		// of overwriting.
		name = repo.retry(originalName)
		f, err = repo.create(name)
		if os.IsExist(err) {
			return "", 0, errors.WithCode(code.ErrStorageConflict,
				"Storage name conflict, please retry the upload.")
		}
	}
	if err != nil {
		return "", 0, errors.WrapC(err, code.ErrStorageIO, "Upload failed on server")
	}

	n, err := io.Copy(f, content)
	if err != nil {
		// A partial file must never become visible as a stored file.
		f.Close()
		repo.fs.Remove(name)
		return "", 0, errors.WrapC(err, code.ErrStorageIO, "Upload failed on server")
	}
	if err := f.Close(); err != nil {
		repo.fs.Remove(name)
		return "", 0, errors.WrapC(err, code.ErrStorageIO, "Upload failed on server")
	}
	return name, n, nil
}

func (repo *fileRepository) create(name string) (afero.File, error) {
	return repo.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

func (repo *fileRepository) RecordMetadata(ctx context.Context, rec domain.UploadRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return errors.WrapC(err, code.ErrLedgerIO, "Upload failed on server")
	}

	repo.mu.Lock()
	err = repo.appendLine(line)
	repo.mu.Unlock()
	if err != nil {
		return errors.WrapC(err, code.ErrLedgerIO, "Upload failed on server")
	}

	// The index is best effort; the JSONL ledger above is the source of
	// truth, so a failed insert only costs listing freshness.
	if repo.dao != nil {
		ie := repo.dao.Insert(ctx, dao.Record{
			Name:        rec.Name,
			SavedAs:     rec.SavedAs,
			URL:         rec.URL,
			ContentType: rec.ContentType,
			Size:        rec.Size,
			UploadedBy:  rec.UploadedBy,
			Utime:       rec.UploadedAt.UnixMilli(),
		})
		if ie != nil {
			log.WithError(ie).WithField("savedAs", rec.SavedAs).
				Warn("ledger index insert failed")
		}
	}
	repo.cache.Delete(listCacheKey)
	return nil
}

func (repo *fileRepository) appendLine(line []byte) error {
	f, err := repo.fs.OpenFile(LedgerFileName,
		os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (repo *fileRepository) Open(ctx context.Context, storedName string) (afero.File, os.FileInfo, error) {
	if !validStoredName(storedName) {
		return nil, nil, errors.WithCode(code.ErrNotFound, "File not found.")
	}
	info, err := repo.fs.Stat(storedName)
	if err != nil || info.IsDir() {
		return nil, nil, errors.WithCode(code.ErrNotFound, "File not found.")
	}
	f, err := repo.fs.Open(storedName)
	if err != nil {
		return nil, nil, errors.WrapC(err, code.ErrStorageIO, "Upload failed on server")
	}
	return f, info, nil
}

// validStoredName rejects anything that could still reach outside the
// content directory or expose the ledger itself.
func validStoredName(name string) bool {
	if name == "" || name == LedgerFileName {
		return false
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return false
	}
	return true
}

func (repo *fileRepository) List(ctx context.Context, limit int) ([]domain.UploadRecord, error) {
	if cached, ok := repo.cache.Get(listCacheKey); ok {
		recs := cached.([]domain.UploadRecord)
		return clip(recs, limit), nil
	}

	recs, err := repo.listRecent(ctx)
	if err != nil {
		return nil, errors.WrapC(err, code.ErrLedgerIO, "Upload failed on server")
	}
	repo.cache.Set(listCacheKey, recs, cache.DefaultExpiration)
	return clip(recs, limit), nil
}

func (repo *fileRepository) listRecent(ctx context.Context) ([]domain.UploadRecord, error) {
	if repo.dao != nil {
		rows, err := repo.dao.ListRecent(ctx, maxListEntries)
		if err == nil {
			recs := make([]domain.UploadRecord, 0, len(rows))
			for _, r := range rows {
				recs = append(recs, domain.UploadRecord{
					Name:        r.Name,
					SavedAs:     r.SavedAs,
					URL:         r.URL,
					ContentType: r.ContentType,
					Size:        r.Size,
					UploadedAt:  time.UnixMilli(r.Utime).UTC(),
					UploadedBy:  r.UploadedBy,
				})
			}
			return recs, nil
		}
		log.WithError(err).Warn("ledger index query failed, falling back to ledger file")
	}

	recs, err := repo.readLedger()
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].UploadedAt.After(recs[j].UploadedAt)
	})
	return clip(recs, maxListEntries), nil
}

func (repo *fileRepository) readLedger() ([]domain.UploadRecord, error) {
	f, err := repo.fs.Open(LedgerFileName)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var recs []domain.UploadRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var rec domain.UploadRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			log.WithError(err).Warn("skipping malformed ledger line")
			continue
		}
		recs = append(recs, rec)
	}
	return recs, sc.Err()
}

func (repo *fileRepository) Audit(ctx context.Context) ([]string, error) {
	recs, err := repo.readLedger()
	if err != nil {
		return nil, errors.WrapC(err, code.ErrLedgerIO, "Upload failed on server")
	}
	known := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		known[rec.SavedAs] = struct{}{}
	}

	infos, err := afero.ReadDir(repo.fs, ".")
	if err != nil {
		return nil, errors.WrapC(err, code.ErrStorageIO, "Upload failed on server")
	}
	var orphans []string
	for _, info := range infos {
		if info.IsDir() || info.Name() == LedgerFileName {
			continue
		}
		if _, ok := known[info.Name()]; !ok {
			orphans = append(orphans, info.Name())
		}
	}
	return orphans, nil
}

func clip(recs []domain.UploadRecord, limit int) []domain.UploadRecord {
	if limit > 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}
