package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/errortracker/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	UserStore
	KeyStore
	RecordStore

	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

// UserStore manages the principals that own records and keys.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// KeyStore is the subset of Store the auth middleware needs to resolve a bearer key.
type KeyStore interface {
	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RecordStore is the record boundary: read-all, insert-one, update-one, delete-one.
// It speaks in rows; mapping to models.ErrorRecord happens in the caller.
type RecordStore interface {
	ListRecords(ctx context.Context) ([]RecordRow, error)
	InsertRecord(ctx context.Context, rec RecordInsert) (*RecordRow, error)
	UpdateRecord(ctx context.Context, id uuid.UUID, upd RecordUpdate) (*RecordRow, error)
	DeleteRecord(ctx context.Context, id uuid.UUID) error
}

// RecordRow is the stored shape of an error record. Enumerations are raw strings
// and are not validated here.
type RecordRow struct {
	ID               uuid.UUID
	Title            string
	Description      string
	Resolution       *string
	Severity         string
	Status           string
	System           string
	ErrorCode        *string
	StackTrace       *string
	ImageURL         *string
	FirstSeenAt      time.Time
	LastOccurrenceAt time.Time
	ResolvedAt       *time.Time
	AssignedTo       *string
	Tags             []string
	Occurrences      int
	UserID           uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RecordInsert holds the client-supplied columns of a new record. The store assigns
// id, first/last occurrence timestamps and the occurrence count.
type RecordInsert struct {
	Title       string
	Description string
	Resolution  *string
	Severity    string
	Status      string
	System      string
	ErrorCode   *string
	StackTrace  *string
	ImageURL    *string
	ResolvedAt  *time.Time
	AssignedTo  *string
	Tags        []string
	UserID      uuid.UUID
}

// RecordUpdate is a partial column replacement. Nil fields are left unchanged; an
// empty string clears a nullable column.
type RecordUpdate struct {
	Title       *string
	Description *string
	Resolution  *string
	Severity    *string
	Status      *string
	System      *string
	ErrorCode   *string
	StackTrace  *string
	ImageURL    *string
	ResolvedAt  *time.Time
	AssignedTo  *string
	Tags        []string
}
