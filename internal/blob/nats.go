package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const contentTypeHeader = "Content-Type"

// ObjectStore keeps blobs in a JetStream object store bucket.
type ObjectStore struct {
	obj     jetstream.ObjectStore
	baseURL string
}

// NewObjectStore binds to (creating if needed) the named bucket.
func NewObjectStore(ctx context.Context, nc *nats.Conn, bucket, baseURL string) (*ObjectStore, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	obj, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "uploaded error screenshots",
	})
	if err != nil {
		return nil, fmt.Errorf("create object store %s: %w", bucket, err)
	}

	return &ObjectStore{obj: obj, baseURL: baseURL}, nil
}

func (s *ObjectStore) Upload(ctx context.Context, name string, r io.Reader, contentType string) error {
	clean, err := CleanPath(name)
	if err != nil {
		return err
	}

	meta := jetstream.ObjectMeta{Name: clean}
	if contentType != "" {
		meta.Headers = nats.Header{contentTypeHeader: []string{contentType}}
	}

	if _, err := s.obj.Put(ctx, meta, r); err != nil {
		return fmt.Errorf("put object %s: %w", clean, err)
	}
	return nil
}

func (s *ObjectStore) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	clean, err := CleanPath(name)
	if err != nil {
		return nil, "", err
	}

	res, err := s.obj.Get(ctx, clean)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get object %s: %w", clean, err)
	}

	contentType := "application/octet-stream"
	if info, err := res.Info(); err == nil && info.Headers != nil {
		if ct := info.Headers.Get(contentTypeHeader); ct != "" {
			contentType = ct
		}
	}
	return res, contentType, nil
}

func (s *ObjectStore) PublicURL(name string) string {
	return publicURL(s.baseURL, name)
}

var _ Store = (*ObjectStore)(nil)
