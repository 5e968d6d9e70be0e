// Package models contains shared data models used across the error tracker codebase.
package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnauthenticated is returned when a write is attempted without a current user.
var ErrUnauthenticated = errors.New("user not authenticated")

// Severity is the ordinal urgency classification of a record.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists every severity from most to least urgent.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Rank maps a severity to its position in the total order
// critical(4) > high(3) > medium(2) > low(1). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Status is the lifecycle state of a record.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusClosed        Status = "closed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusOpen, StatusInvestigating, StatusResolved, StatusClosed}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Terminal reports whether a record in this status carries a resolved-at timestamp.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusClosed
}

// ErrorRecord is one tracked error entry. Values are treated as immutable once
// loaded; a write replaces the whole in-memory collection.
type ErrorRecord struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Resolution     *string    `json:"resolution,omitempty"`
	Severity       Severity   `json:"severity"`
	Status         Status     `json:"status"`
	System         string     `json:"system"`
	ErrorCode      *string    `json:"error_code,omitempty"`
	StackTrace     *string    `json:"stack_trace,omitempty"`
	ImageURL       *string    `json:"image_url,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
	LastOccurrence time.Time  `json:"last_occurrence"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	AssignedTo     *string    `json:"assigned_to,omitempty"`
	Tags           []string   `json:"tags"`
	Occurrences    int        `json:"occurrences"`
	UserID         uuid.UUID  `json:"user_id"`
}

// HasTags reports whether the record carries every tag in required.
func (r *ErrorRecord) HasTags(required []string) bool {
	for _, want := range required {
		found := false
		for _, have := range r.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// RecordPayload is the full set of user-editable fields submitted by the record form.
type RecordPayload struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Resolution  *string    `json:"resolution,omitempty"`
	Severity    Severity   `json:"severity"`
	Status      Status     `json:"status"`
	System      string     `json:"system"`
	ErrorCode   *string    `json:"error_code,omitempty"`
	StackTrace  *string    `json:"stack_trace,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	AssignedTo  *string    `json:"assigned_to,omitempty"`
	Tags        []string   `json:"tags"`
}

// Patch converts a full payload into a patch that replaces every editable field.
// Absent optional values become empty strings so that the store clears them.
func (p RecordPayload) Patch() RecordPatch {
	empty := func(s *string) *string {
		if s == nil {
			v := ""
			return &v
		}
		return s
	}
	title, desc, system := p.Title, p.Description, p.System
	sev, st := p.Severity, p.Status
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return RecordPatch{
		Title:       &title,
		Description: &desc,
		Resolution:  empty(p.Resolution),
		Severity:    &sev,
		Status:      &st,
		System:      &system,
		ErrorCode:   empty(p.ErrorCode),
		StackTrace:  empty(p.StackTrace),
		ImageURL:    empty(p.ImageURL),
		ResolvedAt:  p.ResolvedAt,
		AssignedTo:  empty(p.AssignedTo),
		Tags:        tags,
	}
}

// RecordPatch is a partial update. A nil field is left unchanged; a pointer to an
// empty string clears an optional field.
type RecordPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Resolution  *string    `json:"resolution,omitempty"`
	Severity    *Severity  `json:"severity,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	System      *string    `json:"system,omitempty"`
	ErrorCode   *string    `json:"error_code,omitempty"`
	StackTrace  *string    `json:"stack_trace,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	AssignedTo  *string    `json:"assigned_to,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// NormalizeTags trims every tag, drops empty ones and suppresses duplicates while
// keeping first-seen order. Never returns nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
