// Package blob stores uploaded images and hands out public URLs for them.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound    = errors.New("blob not found")
	ErrInvalidPath = errors.New("invalid blob path")
)

// Store is the blob boundary used by the record form.
type Store interface {
	Upload(ctx context.Context, name string, r io.Reader, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
	PublicURL(name string) string
}

// CleanPath validates a slash-separated object name. Absolute names, empty names
// and names escaping the root are rejected.
func CleanPath(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

// publicURL joins a base URL and an object name.
func publicURL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/" + name
}
