// Package imagestore keeps recipe images outside the database. The database
// only stores the key returned by Save.
package imagestore

import (
	"context"
	"io"
)

type ImageStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (key string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// Extensions maps the accepted image MIME types to file extensions.
var Extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}
