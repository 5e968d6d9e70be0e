package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/errortracker/internal/api/response"
	"github.com/kiranshivaraju/errortracker/internal/export"
	"github.com/kiranshivaraju/errortracker/internal/filter"
	"github.com/kiranshivaraju/errortracker/internal/notify"
	"github.com/kiranshivaraju/errortracker/pkg/models"
)

const actionExport = "export"

type renderFunc func(w io.Writer, f export.Format, records []models.ErrorRecord, now time.Time) error

// NewExportHandler returns an http.HandlerFunc for GET /api/v1/errors/export.
// The artifact is rendered fully in memory so a failure never leaves a
// truncated download behind.
func NewExportHandler(repo Repository, notifier notify.Notifier, now func() time.Time) http.HandlerFunc {
	return newExportHandler(repo, notifier, now, export.Write)
}

func newExportHandler(repo Repository, notifier notify.Notifier, now func() time.Time, render renderFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := r.URL.Query()
		format, err := export.ParseFormat(v.Get("format"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}
		scope, err := export.ParseScope(v.Get("scope"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}
		q, err := parseListQuery(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		records, _, ok := fetch(w, r, repo)
		if !ok {
			return
		}
		if scope == export.ScopeFiltered {
			records = filter.Apply(records, q.Options, q.Sort, q.Order)
		}

		at := now()
		var buf bytes.Buffer
		if err := render(&buf, format, records, at); err != nil {
			notifier.Notify(r.Context(), models.Notification{
				Level:   models.NotifyError,
				Action:  actionExport,
				Message: "Export failed",
				Error:   err.Error(),
				At:      at,
			})
			response.Error(w, http.StatusInternalServerError, "EXPORT_FAILED",
				"Could not generate the file. Please try again.", nil)
			return
		}

		notifier.Notify(r.Context(), models.Notification{
			Level:   models.NotifySuccess,
			Action:  actionExport,
			Message: fmt.Sprintf("%s file exported successfully", strings.ToUpper(string(format))),
			At:      at,
		})

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s"`, export.Filename(format, scope, at)))
		w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
		w.WriteHeader(http.StatusOK)
		buf.WriteTo(w)
	}
}
