package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationLevel distinguishes success confirmations from failures.
type NotificationLevel string

const (
	NotifySuccess NotificationLevel = "success"
	NotifyError   NotificationLevel = "error"
)

// Notification is a user-facing, non-blocking message about the outcome of an operation.
type Notification struct {
	Level    NotificationLevel `json:"level"`
	Action   string            `json:"action"`
	Message  string            `json:"message"`
	RecordID *uuid.UUID        `json:"record_id,omitempty"`
	UserID   *uuid.UUID        `json:"user_id,omitempty"`
	Error    string            `json:"error,omitempty"`
	At       time.Time         `json:"at"`
}
