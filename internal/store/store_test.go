package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/errortracker/internal/store"
	"github.com/kiranshivaraju/errortracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("errortracker_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func newStore(t *testing.T) *store.PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	return store.NewPostgresStore(setupTestDB(t))
}

// seedUser inserts a user and returns it.
func seedUser(t *testing.T, s store.Store, email string) *models.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &models.User{ID: uuid.New(), Email: email, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func strPtr(s string) *string { return &s }

func insert(t *testing.T, s store.Store, userID uuid.UUID, title, status string) *store.RecordRow {
	t.Helper()
	row, err := s.InsertRecord(context.Background(), store.RecordInsert{
		Title:       title,
		Description: "details",
		Severity:    "high",
		Status:      status,
		System:      "payments",
		Tags:        []string{"db"},
		UserID:      userID,
	})
	require.NoError(t, err)
	return row
}

// --- User Tests ---

func TestUser_CreateAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "lin@example.com")

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "lin@example.com", got.Email)

	got, err = s.GetUserByEmail(ctx, "lin@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUser_DuplicateEmail(t *testing.T) {
	s := newStore(t)
	seedUser(t, s, "dup@example.com")

	now := time.Now().UTC()
	err := s.CreateUser(context.Background(), &models.User{ID: uuid.New(), Email: "dup@example.com", CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

// --- API Key Tests ---

func newKey(userID uuid.UUID, prefix string) *models.APIKey {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "key-" + prefix,
		KeyHash:   "hash-" + uuid.NewString(),
		KeyPrefix: prefix,
		Scopes:    []string{"read", "write"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestAPIKey_CreateAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "keys@example.com")

	key := newKey(u.ID, "et_abcde")
	require.NoError(t, s.CreateAPIKey(ctx, key))

	keys, err := s.GetAPIKeyByPrefix(ctx, "et_abcde")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
	assert.Equal(t, []string{"read", "write"}, keys[0].Scopes)
}

func TestAPIKey_ListAndRevoke(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "owner@example.com")
	other := seedUser(t, s, "other@example.com")

	for _, p := range []string{"et_aaaaa", "et_bbbbb"} {
		require.NoError(t, s.CreateAPIKey(ctx, newKey(u.ID, p)))
	}
	theirs := newKey(other.ID, "et_ccccc")
	require.NoError(t, s.CreateAPIKey(ctx, theirs))

	keys, err := s.ListAPIKeys(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	// Another user's key cannot be revoked.
	assert.ErrorIs(t, s.RevokeAPIKey(ctx, theirs.ID, u.ID), store.ErrNotFound)

	require.NoError(t, s.RevokeAPIKey(ctx, keys[0].ID, u.ID))
	assert.ErrorIs(t, s.RevokeAPIKey(ctx, keys[0].ID, u.ID), store.ErrNotFound)

	keys, err = s.ListAPIKeys(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestAPIKey_UpdateLastUsed(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "usage@example.com")
	key := newKey(u.ID, "et_used0")
	require.NoError(t, s.CreateAPIKey(ctx, key))

	require.NoError(t, s.UpdateAPIKeyLastUsed(ctx, key.ID))

	keys, err := s.GetAPIKeyByPrefix(ctx, "et_used0")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotNil(t, keys[0].LastUsedAt)
}

func TestAPIKey_DuplicateID(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "dupkey@example.com")

	first := newKey(u.ID, "et_dup01")
	require.NoError(t, s.CreateAPIKey(ctx, first))

	second := newKey(u.ID, "et_dup02")
	second.ID = first.ID
	assert.ErrorIs(t, s.CreateAPIKey(ctx, second), store.ErrDuplicateKey)
}

// --- Record Tests ---

func TestRecord_InsertAssignsDefaults(t *testing.T) {
	s := newStore(t)
	u := seedUser(t, s, "rec@example.com")

	row := insert(t, s, u.ID, "Timeout", "open")
	assert.NotEqual(t, uuid.Nil, row.ID)
	assert.Equal(t, 1, row.Occurrences)
	assert.Equal(t, []string{"db"}, row.Tags)
	assert.Nil(t, row.ResolvedAt)
	assert.Nil(t, row.ErrorCode)
	assert.False(t, row.LastOccurrenceAt.Before(row.FirstSeenAt))
}

func TestRecord_InsertResolvedStampsResolvedAt(t *testing.T) {
	s := newStore(t)
	u := seedUser(t, s, "resolved@example.com")

	row := insert(t, s, u.ID, "Fixed already", "resolved")
	require.NotNil(t, row.ResolvedAt)
	assert.False(t, row.ResolvedAt.Before(row.FirstSeenAt))
}

func TestRecord_ListNewestFirst(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "list@example.com")

	rows, err := s.ListRecords(ctx)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	first := insert(t, s, u.ID, "first", "open")
	time.Sleep(5 * time.Millisecond)
	second := insert(t, s, u.ID, "second", "open")

	rows, err = s.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID)
	assert.Equal(t, first.ID, rows[1].ID)
}

func TestRecord_UpdatePartial(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "upd@example.com")
	row := insert(t, s, u.ID, "before", "open")

	got, err := s.UpdateRecord(ctx, row.ID, store.RecordUpdate{
		Title:      strPtr("after"),
		ErrorCode:  strPtr("E42"),
		AssignedTo: strPtr("Lin"),
		Tags:       []string{"db", "timeout"},
	})
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, "details", got.Description)
	assert.Equal(t, "E42", *got.ErrorCode)
	assert.Equal(t, "Lin", *got.AssignedTo)
	assert.Equal(t, []string{"db", "timeout"}, got.Tags)

	// An empty string clears a nullable column.
	got, err = s.UpdateRecord(ctx, row.ID, store.RecordUpdate{ErrorCode: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, got.ErrorCode)
	assert.Equal(t, "after", got.Title)
}

func TestRecord_StatusDrivesResolvedAt(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "status@example.com")
	row := insert(t, s, u.ID, "flaky", "open")

	got, err := s.UpdateRecord(ctx, row.ID, store.RecordUpdate{Status: strPtr("resolved")})
	require.NoError(t, err)
	require.NotNil(t, got.ResolvedAt)
	stamped := *got.ResolvedAt

	// Moving between terminal states keeps the original stamp.
	got, err = s.UpdateRecord(ctx, row.ID, store.RecordUpdate{Status: strPtr("closed")})
	require.NoError(t, err)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, stamped.Equal(*got.ResolvedAt))

	got, err = s.UpdateRecord(ctx, row.ID, store.RecordUpdate{Status: strPtr("investigating")})
	require.NoError(t, err)
	assert.Nil(t, got.ResolvedAt)
}

func TestRecord_RejectsInvalidEnum(t *testing.T) {
	s := newStore(t)
	u := seedUser(t, s, "enum@example.com")
	row := insert(t, s, u.ID, "x", "open")

	_, err := s.UpdateRecord(context.Background(), row.ID, store.RecordUpdate{Severity: strPtr("urgent")})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestRecord_UpdateNotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.UpdateRecord(context.Background(), uuid.New(), store.RecordUpdate{Title: strPtr("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecord_Delete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "del@example.com")
	row := insert(t, s, u.ID, "gone", "open")

	require.NoError(t, s.DeleteRecord(ctx, row.ID))
	assert.ErrorIs(t, s.DeleteRecord(ctx, row.ID), store.ErrNotFound)

	rows, err := s.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// --- Ping Test ---

func TestPing(t *testing.T) {
	s := newStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
