package domain

import "time"

// MountPrefix is the public URL path under which stored files are served.
const MountPrefix = "/uploads/"

// UploadRequest carries one multipart file part through validation and
// storage. The name and content type come from the client and are untrusted.
type UploadRequest struct {
	Name        string
	ContentType string
	Size        int64
	Content     []byte
	// Principal is the authenticated uploader, empty when auth is disabled.
	Principal string
}

// UploadRecord is one immutable ledger entry, returned to the client as-is.
type UploadRecord struct {
	Name        string    `json:"name"`
	SavedAs     string    `json:"savedAs"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
	UploadedBy  string    `json:"uploadedBy,omitempty"`
}
