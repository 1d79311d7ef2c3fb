package core

import (
	"context"
	"io"
)

// FileStorage is any service that can store an uploaded file and hand back
// a public URL (payment proofs, thumbnails, avatars, certificates).
type FileStorage interface {
	Upload(ctx context.Context, r io.Reader, folder, filename string) (url string, err error)
}
