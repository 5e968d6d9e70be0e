package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/kiranshivaraju/errortracker/internal/api/middleware"
	"github.com/kiranshivaraju/errortracker/internal/api/response"
	"github.com/kiranshivaraju/errortracker/internal/filter"
	"github.com/kiranshivaraju/errortracker/internal/form"
	"github.com/kiranshivaraju/errortracker/internal/store"
	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// Repository is the record cache the handlers read and write through.
type Repository interface {
	List(ctx context.Context) ([]models.ErrorRecord, error)
	Ensure(ctx context.Context) error
	Loaded() bool
	Records() []models.ErrorRecord
	Stats() models.ErrorStats
	Find(id uuid.UUID) (models.ErrorRecord, bool)
	Create(ctx context.Context, user *models.User, payload *models.RecordPayload) (*models.ErrorRecord, error)
	Update(ctx context.Context, id uuid.UUID, patch models.RecordPatch) (*models.ErrorRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FormPreparer turns raw form input into a payload ready to write.
type FormPreparer interface {
	Prepare(ctx context.Context, user *models.User, in form.Input, existing *models.ErrorRecord) (*models.RecordPayload, error)
}

// fetch re-reads the list. When the store is unreachable but an earlier fetch
// succeeded, the last good list is served and the response is marked stale.
func fetch(w http.ResponseWriter, r *http.Request, repo Repository) ([]models.ErrorRecord, bool, bool) {
	records, err := repo.List(r.Context())
	if err == nil {
		return records, false, true
	}
	if repo.Loaded() {
		w.Header().Set("X-Stale", "true")
		return repo.Records(), true, true
	}
	response.Error(w, http.StatusBadGateway, "STORE_UNAVAILABLE", "Failed to load errors", nil)
	return nil, false, false
}

// NewListErrorsHandler returns an http.HandlerFunc for GET /api/v1/errors.
func NewListErrorsHandler(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseListQuery(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		records, stale, ok := fetch(w, r, repo)
		if !ok {
			return
		}

		out := filter.Apply(records, q.Options, q.Sort, q.Order)
		response.Collection(w, out, response.ListMeta{
			Total:         len(records),
			Filtered:      len(out),
			ActiveFilters: q.Options.Active(),
			Stale:         stale,
		})
	}
}

// NewStatsHandler returns an http.HandlerFunc for GET /api/v1/errors/stats.
func NewStatsHandler(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := fetch(w, r, repo); !ok {
			return
		}
		response.JSON(w, repo.Stats())
	}
}

// NewFacetsHandler returns an http.HandlerFunc for GET /api/v1/errors/facets.
func NewFacetsHandler(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, _, ok := fetch(w, r, repo)
		if !ok {
			return
		}
		response.JSON(w, filter.BuildFacets(records))
	}
}

// NewGetErrorHandler returns an http.HandlerFunc for GET /api/v1/errors/{id}.
func NewGetErrorHandler(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}
		rec, ok := lookupRecord(w, r, repo, id)
		if !ok {
			return
		}
		response.JSON(w, rec)
	}
}

// lookupRecord finds id in the loaded list. A miss refetches once, since the
// list may predate rows written elsewhere. It writes the error response itself
// and reports false when the caller should stop.
func lookupRecord(w http.ResponseWriter, r *http.Request, repo Repository, id uuid.UUID) (models.ErrorRecord, bool) {
	fresh := !repo.Loaded()
	if err := repo.Ensure(r.Context()); err != nil {
		response.Error(w, http.StatusBadGateway, "STORE_UNAVAILABLE", "Failed to load errors", nil)
		return models.ErrorRecord{}, false
	}
	if rec, found := repo.Find(id); found {
		return rec, true
	}
	if !fresh {
		if _, err := repo.List(r.Context()); err != nil {
			response.Error(w, http.StatusBadGateway, "STORE_UNAVAILABLE", "Failed to load errors", nil)
			return models.ErrorRecord{}, false
		}
		if rec, found := repo.Find(id); found {
			return rec, true
		}
	}
	response.Error(w, http.StatusNotFound, "NOT_FOUND", "Error not found", nil)
	return models.ErrorRecord{}, false
}

// NewCreateErrorHandler returns an http.HandlerFunc for POST /api/v1/errors.
func NewCreateErrorHandler(repo Repository, forms FormPreparer, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := mw.GetUser(r)

		in, err := decodeForm(w, r, maxUpload)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}
		defer closeImage(in)

		payload, err := forms.Prepare(r.Context(), user, in, nil)
		if err != nil {
			writeWriteError(w, r, err)
			return
		}

		rec, err := repo.Create(r.Context(), user, payload)
		if err != nil {
			writeWriteError(w, r, err)
			return
		}
		response.Created(w, rec)
	}
}

// NewReplaceErrorHandler returns an http.HandlerFunc for PUT /api/v1/errors/{id}.
// The submitted form replaces every editable field.
func NewReplaceErrorHandler(repo Repository, forms FormPreparer, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}
		user := mw.GetUser(r)

		in, err := decodeForm(w, r, maxUpload)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}
		defer closeImage(in)

		existing, ok := lookupRecord(w, r, repo, id)
		if !ok {
			return
		}

		payload, err := forms.Prepare(r.Context(), user, in, &existing)
		if err != nil {
			writeWriteError(w, r, err)
			return
		}

		rec, err := repo.Update(r.Context(), id, payload.Patch())
		if err != nil {
			writeWriteError(w, r, err)
			return
		}
		response.JSON(w, rec)
	}
}

// NewPatchErrorHandler returns an http.HandlerFunc for PATCH /api/v1/errors/{id}.
// Only the fields present in the body change; the assignee is always set to
// the caller.
func NewPatchErrorHandler(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}
		user := mw.GetUser(r)
		if user == nil {
			response.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated", nil)
			return
		}

		var patch models.RecordPatch
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&patch); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if err := form.ValidatePatch(&patch); err != nil {
			writeWriteError(w, r, err)
			return
		}
		assignee := user.DisplayName()
		patch.AssignedTo = &assignee

		rec, err := repo.Update(r.Context(), id, patch)
		if err != nil {
			writeWriteError(w, r, err)
			return
		}
		response.JSON(w, rec)
	}
}

// NewDeleteErrorHandler returns an http.HandlerFunc for DELETE /api/v1/errors/{id}.
func NewDeleteErrorHandler(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}
		if err := repo.Delete(r.Context(), id); err != nil {
			writeWriteError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}

func recordID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "id must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// writeWriteError maps a failed form submission or store write to a response.
func writeWriteError(w http.ResponseWriter, r *http.Request, err error) {
	var fe form.FieldErrors
	switch {
	case errors.As(err, &fe):
		response.Error(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Invalid error record", fe)
	case errors.Is(err, models.ErrUnauthenticated):
		response.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated", nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Error not found", nil)
	case errors.Is(err, form.ErrImageUpload):
		response.Error(w, http.StatusBadGateway, "IMAGE_UPLOAD_FAILED", "Failed to upload image", nil)
	default:
		slog.ErrorContext(r.Context(), "record write failed", "error", err, "path", r.URL.Path)
		response.Error(w, http.StatusBadGateway, "STORE_UNAVAILABLE", "The record store rejected the request", nil)
	}
}
