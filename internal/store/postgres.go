package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, full_name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.FullName, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, full_name, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, full_name, created_at, updated_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`, id, userID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Error Records ---

const recordColumns = `id, title, description, resolution, severity, status, system, error_code, stack_trace,
	image_url, first_seen_at, last_occurrence_at, resolved_at, assigned_to, tags, occurrences, user_id,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*RecordRow, error) {
	var r RecordRow
	err := row.Scan(&r.ID, &r.Title, &r.Description, &r.Resolution, &r.Severity, &r.Status, &r.System,
		&r.ErrorCode, &r.StackTrace, &r.ImageURL, &r.FirstSeenAt, &r.LastOccurrenceAt, &r.ResolvedAt,
		&r.AssignedTo, &r.Tags, &r.Occurrences, &r.UserID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context) ([]RecordRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM errors ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := []RecordRow{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) InsertRecord(ctx context.Context, rec RecordInsert) (*RecordRow, error) {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO errors (title, description, resolution, severity, status, system, error_code, stack_trace,
		   image_url, resolved_at, assigned_to, tags, user_id)
		 VALUES ($1, $2, $3, $4, $5::text, $6, $7, $8, $9,
		   CASE WHEN $5::text IN ('resolved', 'closed') THEN GREATEST($10::timestamptz, NOW()) END,
		   $11, $12, $13)
		 RETURNING `+recordColumns,
		rec.Title, rec.Description, nullIfEmpty(rec.Resolution), rec.Severity, rec.Status, rec.System,
		nullIfEmpty(rec.ErrorCode), nullIfEmpty(rec.StackTrace), nullIfEmpty(rec.ImageURL), rec.ResolvedAt,
		nullIfEmpty(rec.AssignedTo), tags, rec.UserID)

	r, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) UpdateRecord(ctx context.Context, id uuid.UUID, upd RecordUpdate) (*RecordRow, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	argIdx := 2

	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if upd.Title != nil {
		set("title", *upd.Title)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.Resolution != nil {
		set("resolution", nullIfEmpty(upd.Resolution))
	}
	if upd.Severity != nil {
		set("severity", *upd.Severity)
	}
	if upd.System != nil {
		set("system", *upd.System)
	}
	if upd.ErrorCode != nil {
		set("error_code", nullIfEmpty(upd.ErrorCode))
	}
	if upd.StackTrace != nil {
		set("stack_trace", nullIfEmpty(upd.StackTrace))
	}
	if upd.ImageURL != nil {
		set("image_url", nullIfEmpty(upd.ImageURL))
	}
	if upd.AssignedTo != nil {
		set("assigned_to", nullIfEmpty(upd.AssignedTo))
	}
	if upd.Tags != nil {
		set("tags", upd.Tags)
	}

	// resolved_at follows the status: stamped (or kept) for resolved/closed, cleared otherwise.
	switch {
	case upd.Status != nil && upd.ResolvedAt != nil:
		sets = append(sets,
			fmt.Sprintf("status = $%d::text", argIdx),
			fmt.Sprintf(`resolved_at = CASE WHEN $%d::text IN ('resolved', 'closed')
			  THEN GREATEST($%d::timestamptz, first_seen_at) ELSE NULL END`, argIdx, argIdx+1))
		args = append(args, *upd.Status, *upd.ResolvedAt)
		argIdx += 2
	case upd.Status != nil:
		sets = append(sets,
			fmt.Sprintf("status = $%d::text", argIdx),
			fmt.Sprintf(`resolved_at = CASE WHEN $%d::text IN ('resolved', 'closed')
			  THEN COALESCE(resolved_at, GREATEST(NOW(), first_seen_at)) ELSE NULL END`, argIdx))
		args = append(args, *upd.Status)
		argIdx++
	case upd.ResolvedAt != nil:
		sets = append(sets, fmt.Sprintf(`resolved_at = CASE WHEN status IN ('resolved', 'closed')
		  THEN GREATEST($%d::timestamptz, first_seen_at) ELSE resolved_at END`, argIdx))
		args = append(args, *upd.ResolvedAt)
		argIdx++
	}

	query := `UPDATE errors SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + recordColumns

	r, err := scanRecord(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM errors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// nullIfEmpty maps a nil or empty optional string to SQL NULL.
func nullIfEmpty(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
