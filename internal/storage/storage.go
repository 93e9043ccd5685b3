// Package storage uploads chat attachments to the media store.
package storage

import (
	"context"
	"io"
)

// Uploader stores an object and returns its public locator.
type Uploader interface {
	Upload(ctx context.Context, body io.Reader, contentType, extension, folder string) (string, error)
	Delete(ctx context.Context, locator string) error
}
