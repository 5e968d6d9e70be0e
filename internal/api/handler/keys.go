package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/kiranshivaraju/errortracker/internal/api/middleware"
	"github.com/kiranshivaraju/errortracker/internal/api/response"
	"github.com/kiranshivaraju/errortracker/internal/apikey"
	"github.com/kiranshivaraju/errortracker/internal/store"
	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// KeyAdmin manages the caller's API keys.
type KeyAdmin interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

// KeyInvalidator drops cached credentials for a revoked key.
type KeyInvalidator interface {
	Invalidate(ctx context.Context, keyID uuid.UUID)
}

type createKeyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	KeyPrefix string    `json:"key_prefix"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/v1/admin/keys.
// The raw key appears only in this response.
func NewCreateKeyHandler(keys KeyAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := mw.GetUser(r)
		if user == nil {
			response.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated", nil)
			return
		}

		var req struct {
			Name   string   `json:"name"`
			Scopes []string `json:"scopes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
			return
		}
		if len(req.Scopes) == 0 {
			req.Scopes = []string{models.ScopeRead, models.ScopeWrite}
		}
		for _, s := range req.Scopes {
			if !slices.Contains(models.Scopes, s) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"scopes must be drawn from read, write, admin", nil)
				return
			}
		}

		generated, err := apikey.Generate()
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate key", nil)
			return
		}

		now := time.Now().UTC()
		key := &models.APIKey{
			ID:        uuid.New(),
			UserID:    user.ID,
			Name:      req.Name,
			KeyHash:   generated.Hash,
			KeyPrefix: generated.Prefix,
			Scopes:    req.Scopes,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := keys.CreateAPIKey(r.Context(), key); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store key", nil)
			return
		}

		response.Created(w, createKeyResponse{
			ID:        key.ID,
			Name:      key.Name,
			Key:       generated.Raw,
			KeyPrefix: key.KeyPrefix,
			Scopes:    key.Scopes,
			CreatedAt: key.CreatedAt,
		})
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/v1/admin/keys.
func NewListKeysHandler(keys KeyAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := mw.GetUser(r)
		if user == nil {
			response.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated", nil)
			return
		}

		list, err := keys.ListAPIKeys(r.Context(), user.ID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list keys", nil)
			return
		}
		if list == nil {
			list = []*models.APIKey{}
		}
		response.JSON(w, list)
	}
}

// NewRevokeKeyHandler returns an http.HandlerFunc for DELETE /api/v1/admin/keys/{keyID}.
// inv may be nil when no credential cache is in use.
func NewRevokeKeyHandler(keys KeyAdmin, inv KeyInvalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := mw.GetUser(r)
		if user == nil {
			response.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated", nil)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "keyID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "keyID must be a valid UUID", nil)
			return
		}

		err = keys.RevokeAPIKey(r.Context(), id, user.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Key not found", nil)
		case err != nil:
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke key", nil)
		default:
			if inv != nil {
				inv.Invalidate(r.Context(), id)
			}
			response.NoContent(w)
		}
	}
}
