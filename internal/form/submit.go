package form

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/errortracker/internal/blob"
	"github.com/kiranshivaraju/errortracker/internal/notify"
	"github.com/kiranshivaraju/errortracker/internal/tracker"
	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// ErrImageUpload aborts a submission whose image could not be stored.
var ErrImageUpload = errors.New("image upload failed")

// ImagePrefix is the blob directory for uploaded screenshots.
const ImagePrefix = "error-images"

// Submitter prepares validated payloads for the repository.
type Submitter struct {
	blobs    blob.Store
	notifier notify.Notifier
	now      func() time.Time
}

func NewSubmitter(blobs blob.Store, notifier notify.Notifier) *Submitter {
	return &Submitter{blobs: blobs, notifier: notifier, now: time.Now}
}

// Prepare validates in and produces the payload to write. The assignee is always
// the submitting user's display name. An attached image is uploaded before the
// payload is returned; on upload failure nothing is returned and a notification
// is surfaced. When editing, existing supplies the image that is kept unless it
// is replaced or removed.
func (s *Submitter) Prepare(ctx context.Context, user *models.User, in Input, existing *models.ErrorRecord) (*models.RecordPayload, error) {
	if user == nil {
		action := tracker.ActionCreate
		if existing != nil {
			action = tracker.ActionUpdate
		}
		s.notifier.Notify(ctx, models.Notification{
			Level:   models.NotifyError,
			Action:  action,
			Message: "User not authenticated",
			At:      s.now(),
		})
		return nil, models.ErrUnauthenticated
	}

	payload, err := Validate(in)
	if err != nil {
		return nil, err
	}

	assignee := user.DisplayName()
	payload.AssignedTo = &assignee

	if existing != nil && !in.RemoveImage {
		payload.ImageURL = existing.ImageURL
	}

	if in.Image != nil {
		url, err := s.upload(ctx, in.Image)
		if err != nil {
			var recordID *uuid.UUID
			if existing != nil {
				recordID = &existing.ID
			}
			s.notifier.Notify(ctx, models.Notification{
				Level:    models.NotifyError,
				Action:   "upload",
				Message:  "Failed to upload image",
				RecordID: recordID,
				UserID:   &user.ID,
				Error:    err.Error(),
				At:       s.now(),
			})
			return nil, fmt.Errorf("%w: %w", ErrImageUpload, err)
		}
		payload.ImageURL = &url
	}

	return &payload, nil
}

func (s *Submitter) upload(ctx context.Context, img *Image) (string, error) {
	name := ObjectName(s.now(), img.Filename, img.ContentType)
	if err := s.blobs.Upload(ctx, name, img.Data, img.ContentType); err != nil {
		return "", err
	}
	return s.blobs.PublicURL(name), nil
}

// ObjectName builds error-images/<unix-millis>-<random>.<ext>. The extension is
// taken from the filename, falling back to the content type.
func ObjectName(now time.Time, filename, contentType string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
	if !validExt(ext) {
		ext = ""
	}
	if ext == "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%d-%s%s", ImagePrefix, now.UnixMilli(), uuid.NewString()[:8], ext)
}

func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 {
		return false
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
