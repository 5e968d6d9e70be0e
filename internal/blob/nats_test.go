package blob_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kiranshivaraju/errortracker/internal/blob"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupNATS spins up a JetStream-enabled NATS server and returns a connection.
func setupNATS(t *testing.T) *nats.Conn {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "nats:2.10-alpine",
		Cmd:          []string{"-js"},
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)

	nc, err := nats.Connect("nats://" + host + ":" + port.Port())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

func TestObjectStore_UploadOpenRoundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	s, err := blob.NewObjectStore(ctx, setupNATS(t), "error-images", "http://localhost:8080/api/v1/images")
	require.NoError(t, err)

	require.NoError(t, s.Upload(ctx, "error-images/1-ab.png", strings.NewReader("png bytes"), "image/png"))

	rc, ct, err := s.Open(ctx, "error-images/1-ab.png")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))
	assert.Equal(t, "image/png", ct)

	assert.Equal(t, "http://localhost:8080/api/v1/images/error-images/1-ab.png", s.PublicURL("error-images/1-ab.png"))
}

func TestObjectStore_OpenMissing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	s, err := blob.NewObjectStore(ctx, setupNATS(t), "error-images", "http://x")
	require.NoError(t, err)

	_, _, err = s.Open(ctx, "error-images/nope.png")
	assert.ErrorIs(t, err, blob.ErrNotFound)

	_, _, err = s.Open(ctx, "../secret")
	assert.ErrorIs(t, err, blob.ErrInvalidPath)
}
