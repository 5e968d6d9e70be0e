package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/kiranshivaraju/errortracker/internal/api/middleware"
	"github.com/kiranshivaraju/errortracker/internal/api/response"
	"github.com/kiranshivaraju/errortracker/internal/blob"
)

type meResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	FullName    *string `json:"full_name,omitempty"`
	DisplayName string  `json:"display_name"`
}

// NewMeHandler returns an http.HandlerFunc for GET /api/v1/me.
func NewMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := mw.GetUser(r)
		if user == nil {
			response.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated", nil)
			return
		}
		response.JSON(w, meResponse{
			ID:          user.ID.String(),
			Email:       user.Email,
			FullName:    user.FullName,
			DisplayName: user.DisplayName(),
		})
	}
}

// NewImageHandler returns an http.HandlerFunc for GET /api/v1/images/*, streaming
// uploaded images from the blob store.
func NewImageHandler(blobs blob.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, contentType, err := blobs.Open(r.Context(), chi.URLParam(r, "*"))
		if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidPath) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Image not found", nil)
			return
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "open image failed", "error", err)
			response.Error(w, http.StatusBadGateway, "BLOB_UNAVAILABLE", "Failed to load image", nil)
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if _, err := io.Copy(w, rc); err != nil {
			slog.WarnContext(r.Context(), "stream image failed", "error", err)
		}
	}
}
