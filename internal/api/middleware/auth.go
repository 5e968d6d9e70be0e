package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/errortracker/internal/api/response"
	"github.com/kiranshivaraju/errortracker/internal/apikey"
	"github.com/kiranshivaraju/errortracker/internal/cache"
	"github.com/kiranshivaraju/errortracker/internal/store"
	"github.com/kiranshivaraju/errortracker/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// Auth provides authentication and scope-checking middleware.
type Auth struct {
	store    store.KeyStore
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewAuth creates a new Auth middleware. A nil cache disables the lookup cache.
func NewAuth(s store.KeyStore, c cache.Cache, cacheTTL time.Duration) *Auth {
	return &Auth{store: s, cache: c, cacheTTL: cacheTTL}
}

// principal is what a validated key resolves to. It is cached under the
// digest of the raw key so repeat requests skip bcrypt.
type principal struct {
	KeyID  uuid.UUID    `json:"key_id"`
	Scopes []string     `json:"scopes"`
	User   *models.User `json:"user"`
}

// Authenticate validates the Bearer token, resolves the owning user, and sets
// user, key_prefix, and scopes in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if !apikey.Valid(rawKey) {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key format", nil)
			return
		}

		prefix := rawKey[:apikey.PrefixLen]

		p, ok := a.cached(r.Context(), rawKey)
		if ok && a.revoked(r.Context(), p.KeyID) {
			if err := a.cache.Delete(r.Context(), cache.AuthKey(rawKey)); err != nil {
				slog.Warn("auth cache delete failed", "error", err)
			}
			p, ok = nil, false
		}
		if !ok {
			var err error
			p, err = a.lookup(r.Context(), rawKey, prefix)
			if err != nil {
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "Failed to validate API key", nil)
				return
			}
			if p == nil {
				response.Error(w, http.StatusUnauthorized,
					"INVALID_TOKEN", "Invalid API key", nil)
				return
			}
			a.remember(r.Context(), rawKey, p)
		}

		ctx := r.Context()
		ctx = SetUser(ctx, p.User)
		ctx = setKeyPrefix(ctx, prefix)
		ctx = setScopes(ctx, p.Scopes)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// lookup finds the key by prefix and bcrypt comparison. A nil principal with a
// nil error means the key is unknown.
func (a *Auth) lookup(ctx context.Context, rawKey, prefix string) (*principal, error) {
	keys, err := a.store.GetAPIKeyByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(rawKey)) != nil {
			continue
		}

		user, err := a.store.GetUser(ctx, key.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		// Update last_used_at async
		go a.store.UpdateAPIKeyLastUsed(context.Background(), key.ID)

		return &principal{KeyID: key.ID, Scopes: key.Scopes, User: user}, nil
	}
	return nil, nil
}

func (a *Auth) cached(ctx context.Context, rawKey string) (*principal, bool) {
	if a.cache == nil {
		return nil, false
	}
	data, found, err := a.cache.Get(ctx, cache.AuthKey(rawKey))
	if err != nil || !found {
		return nil, false
	}
	var p principal
	if err := json.Unmarshal(data, &p); err != nil || p.User == nil {
		return nil, false
	}
	return &p, true
}

func (a *Auth) revoked(ctx context.Context, keyID uuid.UUID) bool {
	_, found, err := a.cache.Get(ctx, cache.RevokedKey(keyID))
	return err == nil && found
}

// Invalidate records that keyID was revoked. Principals cached for it are
// rejected on their next use; the marker outlives every such entry.
func (a *Auth) Invalidate(ctx context.Context, keyID uuid.UUID) {
	if a.cache == nil || a.cacheTTL <= 0 {
		return
	}
	if err := a.cache.Set(ctx, cache.RevokedKey(keyID), []byte("1"), a.cacheTTL); err != nil {
		slog.Warn("auth cache revoke failed", "key_id", keyID, "error", err)
	}
}

func (a *Auth) remember(ctx context.Context, rawKey string, p *principal) {
	if a.cache == nil || a.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, cache.AuthKey(rawKey), data, a.cacheTTL); err != nil {
		slog.Warn("auth cache write failed", "error", err)
	}
}

// RequireScope returns middleware that checks whether the authenticated
// API key has the specified scope.
func (a *Auth) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scopes := getScopes(r)
			for _, s := range scopes {
				if s == scope {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, http.StatusForbidden,
				"FORBIDDEN", "Insufficient permissions", nil)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
