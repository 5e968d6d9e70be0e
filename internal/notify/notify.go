// Package notify delivers user-facing notifications about the outcome of record
// operations. Delivery never fails the operation that produced the notification.
package notify

import (
	"context"
	"log/slog"

	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// Notifier surfaces a notification. Implementations must be safe for concurrent use
// and must not block the caller on delivery failure.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// LogNotifier writes notifications as structured log records.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a LogNotifier writing to logger, or to slog.Default when nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n models.Notification) {
	attrs := []any{"action", n.Action}
	if n.RecordID != nil {
		attrs = append(attrs, "record_id", n.RecordID.String())
	}
	if n.UserID != nil {
		attrs = append(attrs, "user_id", n.UserID.String())
	}
	if n.Error != "" {
		attrs = append(attrs, "error", n.Error)
	}

	if n.Level == models.NotifyError {
		l.logger.ErrorContext(ctx, n.Message, attrs...)
		return
	}
	l.logger.InfoContext(ctx, n.Message, attrs...)
}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n models.Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, models.Notification) {}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = Multi(nil)
	_ Notifier = Discard{}
)
