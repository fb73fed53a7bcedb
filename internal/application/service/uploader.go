package service

import (
	"context"
	"io"
)

type Uploader interface {
	// UploadRaw stores a non-media file and returns its public URL.
	UploadRaw(ctx context.Context, file io.Reader, folder string, publicID string) (string, error)
	Delete(ctx context.Context, publicID string) error
}
