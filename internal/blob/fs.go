package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
)

// FSStore keeps blobs as files beneath a root directory. The content type is
// recovered from the file extension.
type FSStore struct {
	root    string
	baseURL string
}

// NewFSStore creates the root directory if needed.
func NewFSStore(root, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FSStore{root: root, baseURL: baseURL}, nil
}

func (s *FSStore) Upload(ctx context.Context, name string, r io.Reader, _ string) error {
	clean, err := CleanPath(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create blob parent: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("commit blob: %w", err)
	}
	return nil
}

func (s *FSStore) Open(_ context.Context, name string) (io.ReadCloser, string, error) {
	clean, err := CleanPath(name)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(clean)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("open blob: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(clean))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return f, contentType, nil
}

func (s *FSStore) PublicURL(name string) string {
	return publicURL(s.baseURL, name)
}

var _ Store = (*FSStore)(nil)
