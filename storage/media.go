// Package storage abstracts the blob store that chat media uploads land
// in. Production deployments point this at an external object store; the
// bundled DiskStore writes under a local directory served at /uploads.
package storage

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// MediaStore persists an uploaded blob and returns a URL clients can
// fetch it from.
type MediaStore interface {
	Save(r io.Reader, mimeType string) (url string, err error)
}

type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates the upload directory if needed. baseURL is the
// public prefix the files are served under, e.g. "/uploads".
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir, baseURL: baseURL}, nil
}

func (s *DiskStore) Save(r io.Reader, mimeType string) (string, error) {
	name := uuid.NewString() + extensionFor(mimeType)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", err
	}
	return fmt.Sprintf("%s/%s", s.baseURL, name), nil
}

func extensionFor(mimeType string) string {
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}
