package tracker

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/errortracker/internal/store"
	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// ErrMapping is returned when a stored row cannot be turned into a valid record.
var ErrMapping = errors.New("invalid record row")

// MapRow converts a stored row to a record, rejecting rows that break the record
// invariants. Empty optional columns map to absent values. A resolved-at stamp
// on a record that is not resolved or closed is dropped.
func MapRow(row store.RecordRow) (models.ErrorRecord, error) {
	fail := func(format string, args ...any) (models.ErrorRecord, error) {
		return models.ErrorRecord{}, fmt.Errorf("%w %s: %s", ErrMapping, row.ID, fmt.Sprintf(format, args...))
	}

	if row.ID == uuid.Nil {
		return fail("missing id")
	}
	severity := models.Severity(row.Severity)
	if !severity.Valid() {
		return fail("unknown severity %q", row.Severity)
	}
	status := models.Status(row.Status)
	if !status.Valid() {
		return fail("unknown status %q", row.Status)
	}
	if row.Occurrences < 1 {
		return fail("occurrences %d < 1", row.Occurrences)
	}
	if row.LastOccurrenceAt.Before(row.FirstSeenAt) {
		return fail("last occurrence before first seen")
	}

	resolvedAt := row.ResolvedAt
	if resolvedAt != nil {
		if resolvedAt.Before(row.FirstSeenAt) {
			return fail("resolved before first seen")
		}
		if !status.Terminal() {
			resolvedAt = nil
		}
	}

	return models.ErrorRecord{
		ID:             row.ID,
		Title:          row.Title,
		Description:    row.Description,
		Resolution:     present(row.Resolution),
		Severity:       severity,
		Status:         status,
		System:         row.System,
		ErrorCode:      present(row.ErrorCode),
		StackTrace:     present(row.StackTrace),
		ImageURL:       present(row.ImageURL),
		Timestamp:      row.FirstSeenAt,
		LastOccurrence: row.LastOccurrenceAt,
		ResolvedAt:     resolvedAt,
		AssignedTo:     present(row.AssignedTo),
		Tags:           models.NormalizeTags(row.Tags),
		Occurrences:    row.Occurrences,
		UserID:         row.UserID,
	}, nil
}

// MapRows maps every row or fails on the first invalid one.
func MapRows(rows []store.RecordRow) ([]models.ErrorRecord, error) {
	out := make([]models.ErrorRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := MapRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func present(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func toInsert(p *models.RecordPayload, userID uuid.UUID) store.RecordInsert {
	return store.RecordInsert{
		Title:       p.Title,
		Description: p.Description,
		Resolution:  p.Resolution,
		Severity:    string(p.Severity),
		Status:      string(p.Status),
		System:      p.System,
		ErrorCode:   p.ErrorCode,
		StackTrace:  p.StackTrace,
		ImageURL:    p.ImageURL,
		ResolvedAt:  p.ResolvedAt,
		AssignedTo:  p.AssignedTo,
		Tags:        models.NormalizeTags(p.Tags),
		UserID:      userID,
	}
}

func toUpdate(p models.RecordPatch) store.RecordUpdate {
	upd := store.RecordUpdate{
		Title:       p.Title,
		Description: p.Description,
		Resolution:  p.Resolution,
		System:      p.System,
		ErrorCode:   p.ErrorCode,
		StackTrace:  p.StackTrace,
		ImageURL:    p.ImageURL,
		ResolvedAt:  p.ResolvedAt,
		AssignedTo:  p.AssignedTo,
	}
	if p.Severity != nil {
		s := string(*p.Severity)
		upd.Severity = &s
	}
	if p.Status != nil {
		s := string(*p.Status)
		upd.Status = &s
	}
	if p.Tags != nil {
		upd.Tags = models.NormalizeTags(p.Tags)
	}
	return upd
}
