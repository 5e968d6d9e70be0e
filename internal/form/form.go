// Package form validates raw record input and turns it into a record payload,
// uploading an attached image first when one is given.
package form

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// Image is an optional attachment submitted with the form.
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// Input is the raw form as typed by the user. Optional text fields left blank are
// treated as absent. Tags is a comma-separated string.
type Input struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Resolution  string `json:"resolution"`
	Severity    string `json:"severity"`
	Status      string `json:"status"`
	System      string `json:"system"`
	ErrorCode   string `json:"error_code"`
	StackTrace  string `json:"stack_trace"`
	Tags        string `json:"tags"`
	RemoveImage bool   `json:"remove_image"`

	Image *Image `json:"-"`
}

// FieldErrors maps a field name to its inline validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks required fields and enumerations. Severity and status default
// to medium and open when left blank. The returned payload carries no image or
// assignee; Submitter.Prepare fills those in.
func Validate(in Input) (models.RecordPayload, error) {
	errs := FieldErrors{}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		errs["title"] = "Title is required"
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		errs["description"] = "Description is required"
	}
	system := strings.TrimSpace(in.System)
	if system == "" {
		errs["system"] = "System is required"
	}

	severity := models.SeverityMedium
	if s := strings.TrimSpace(in.Severity); s != "" {
		severity = models.Severity(strings.ToLower(s))
		if !severity.Valid() {
			errs["severity"] = "Severity must be one of " + join(models.Severities)
		}
	}

	status := models.StatusOpen
	if s := strings.TrimSpace(in.Status); s != "" {
		status = models.Status(strings.ToLower(s))
		if !status.Valid() {
			errs["status"] = "Status must be one of " + join(models.Statuses)
		}
	}

	if in.Image != nil && !strings.HasPrefix(in.Image.ContentType, "image/") {
		errs["image"] = "Attachment must be an image"
	}

	if len(errs) > 0 {
		return models.RecordPayload{}, errs
	}

	return models.RecordPayload{
		Title:       title,
		Description: description,
		Resolution:  optional(in.Resolution),
		Severity:    severity,
		Status:      status,
		System:      system,
		ErrorCode:   optional(in.ErrorCode),
		StackTrace:  optional(in.StackTrace),
		Tags:        ParseTags(in.Tags),
	}, nil
}

// ParseTags splits a comma-separated string into trimmed, non-empty, distinct tags.
func ParseTags(s string) []string {
	return models.NormalizeTags(strings.Split(s, ","))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func join[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// ValidatePatch checks the fields present in a partial update. Required text
// fields may be changed but not blanked; enumerations must be known values.
// Present values are trimmed and tags normalized in place.
func ValidatePatch(p *models.RecordPatch) error {
	errs := FieldErrors{}

	required := []struct {
		name  string
		label string
		value *string
	}{
		{"title", "Title", p.Title},
		{"description", "Description", p.Description},
		{"system", "System", p.System},
	}
	for _, f := range required {
		if f.value == nil {
			continue
		}
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			errs[f.name] = f.label + " is required"
		}
	}

	for _, v := range []*string{p.Resolution, p.ErrorCode, p.StackTrace, p.ImageURL} {
		if v != nil {
			*v = strings.TrimSpace(*v)
		}
	}

	if p.Severity != nil && !p.Severity.Valid() {
		errs["severity"] = "Severity must be one of " + join(models.Severities)
	}
	if p.Status != nil && !p.Status.Valid() {
		errs["status"] = "Status must be one of " + join(models.Statuses)
	}

	if len(errs) > 0 {
		return errs
	}
	if p.Tags != nil {
		p.Tags = models.NormalizeTags(p.Tags)
	}
	return nil
}
