package service

import (
	"bytes"
	"context"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"github.com/campuslink/filerelay/internel/config"
	"github.com/campuslink/filerelay/internel/domain"
	"github.com/campuslink/filerelay/internel/pkg/code"
	"github.com/campuslink/filerelay/internel/repository"
	"github.com/campuslink/filerelay/pkg/ginx/errors"
	"github.com/campuslink/filerelay/pkg/log"
)

type UploadService interface {
	// Upload validates one file part, stores it, and records its ledger
	// entry. Validation failures leave no trace on disk.
	Upload(ctx context.Context, req domain.UploadRequest) (domain.UploadRecord, error)
	// Fetch opens a stored file by its storage name.
	Fetch(ctx context.Context, storedName string) (afero.File, os.FileInfo, error)
	// List returns the most recent upload records, newest first.
	List(ctx context.Context, limit int) ([]domain.UploadRecord, error)
	// Audit reports files on disk that have no ledger entry. A seam for
	// an out-of-band reconciliation job; nothing schedules it here.
	Audit(ctx context.Context) ([]string, error)
}

type uploadService struct {
	repo     repository.FileRepository
	allowed  []string
	maxBytes int64
}

func NewUploadService(repo repository.FileRepository, cfg *config.Config) UploadService {
	return &uploadService{
		repo:     repo,
		allowed:  cfg.Types(),
		maxBytes: cfg.MaxUploadBytes,
	}
}

func (svc *uploadService) Upload(ctx context.Context, req domain.UploadRequest) (domain.UploadRecord, error) {
	ct, err := svc.effectiveType(req)
	if err != nil {
		return domain.UploadRecord{}, err
	}
	if int64(len(req.Content)) > svc.maxBytes {
		return domain.UploadRecord{}, errors.WithCode(code.ErrPayloadTooLarge,
			"File exceeds the %d byte upload limit.", svc.maxBytes)
	}
	// Zero-byte files pass: the type filter is the only gate, matching
	// the original relay's behavior.

	storedName, size, err := svc.repo.Put(ctx, req.Name, bytes.NewReader(req.Content))
	if err != nil {
		return domain.UploadRecord{}, err
	}

	rec := domain.UploadRecord{
		Name:        req.Name,
		SavedAs:     storedName,
		URL:         domain.MountPrefix + storedName,
		ContentType: ct,
		Size:        size,
		UploadedAt:  time.Now().UTC(),
		UploadedBy:  req.Principal,
	}
	if err := svc.repo.RecordMetadata(ctx, rec); err != nil {
		// The stored file stays behind as an orphan; Audit finds it.
		log.WithField("savedAs", storedName).
			Warn("ledger append failed after file write, orphan left on disk")
		return domain.UploadRecord{}, err
	}

	log.WithField("savedAs", storedName).
		WithField("size", size).
		WithField("contentType", ct).
		Info("file stored")
	return rec, nil
}

// effectiveType resolves the content type to record and checks it against
// the allow-list. A missing or generic declared type is sniffed from the
// first content bytes before the request is rejected.
func (svc *uploadService) effectiveType(req domain.UploadRequest) (string, error) {
	ct := normalizeType(req.ContentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = normalizeType(mimetype.Detect(req.Content).String())
	}
	if !svc.typeAllowed(ct) {
		return "", errors.WithCode(code.ErrUnsupportedMediaType,
			"Unsupported file type %q. Only images and PDFs are allowed.", ct)
	}
	return ct, nil
}

func (svc *uploadService) typeAllowed(ct string) bool {
	for _, pattern := range svc.allowed {
		if strings.HasSuffix(pattern, "/*") {
			if strings.HasPrefix(ct, strings.TrimSuffix(pattern, "*")) {
				return true
			}
		} else if ct == pattern {
			return true
		}
	}
	return false
}

func normalizeType(ct string) string {
	// Drop parameters such as "; charset=binary".
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func (svc *uploadService) Fetch(ctx context.Context, storedName string) (afero.File, os.FileInfo, error) {
	return svc.repo.Open(ctx, storedName)
}

func (svc *uploadService) List(ctx context.Context, limit int) ([]domain.UploadRecord, error) {
	return svc.repo.List(ctx, limit)
}

func (svc *uploadService) Audit(ctx context.Context) ([]string, error) {
	return svc.repo.Audit(ctx)
}
