package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kiranshivaraju/errortracker/pkg/models"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSPublisher publishes notifications as JSON to a JetStream stream under
// <prefix>.notifications.<level>.
type NATSPublisher struct {
	js     jetstream.JetStream
	prefix string
}

// NewNATSPublisher ensures the stream exists and returns a publisher bound to it.
func NewNATSPublisher(ctx context.Context, nc *nats.Conn, streamName string) (*NATSPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	prefix := strings.ToLower(streamName)

	_, err = js.Stream(ctx, streamName)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{prefix + ".notifications.*"},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", streamName, err)
	}

	return &NATSPublisher{js: js, prefix: prefix}, nil
}

// Subject returns the subject a notification of the given level is published to.
func (p *NATSPublisher) Subject(level models.NotificationLevel) string {
	return fmt.Sprintf("%s.notifications.%s", p.prefix, level)
}

func (p *NATSPublisher) Notify(ctx context.Context, n models.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		slog.Error("marshal notification", "error", err, "action", n.Action)
		return
	}

	if _, err := p.js.Publish(ctx, p.Subject(n.Level), data); err != nil {
		slog.Warn("publish notification", "error", err, "action", n.Action)
	}
}

var _ Notifier = (*NATSPublisher)(nil)
