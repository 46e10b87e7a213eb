package storage

import (
	"context"
	"io"
)

// UploadResult describes a stored object. Location is the public URL that
// chat embeds reference directly.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores submission attachments and board images. Keys follow
// the submissions/ and boards/ prefix convention.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	// Delete removes an object, e.g. a board image orphaned by a failed
	// event creation.
	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}
