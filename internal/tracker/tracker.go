// Package tracker owns the in-memory record list. Every read goes through the
// store, every write is followed by a full re-read, and the list is only ever
// replaced wholesale by a successful fetch.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/errortracker/internal/notify"
	"github.com/kiranshivaraju/errortracker/internal/store"
	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// Notification actions emitted by the repository.
const (
	ActionList   = "list"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Repository is the process-local record cache.
type Repository struct {
	store    store.RecordStore
	notifier notify.Notifier
	now      func() time.Time

	mu      sync.RWMutex
	records []models.ErrorRecord
	stats   models.ErrorStats
	loaded  bool
	started uint64 // fetches begun
	applied uint64 // sequence number of the fetch currently shown
}

func New(s store.RecordStore, n notify.Notifier) *Repository {
	return &Repository{store: s, notifier: n, now: time.Now, records: []models.ErrorRecord{}}
}

// List fetches every record, newest first, and replaces the in-memory list. On
// failure the previous list is left untouched and a notification is surfaced.
// A fetch that finishes after a newer one has been applied is discarded.
func (r *Repository) List(ctx context.Context) ([]models.ErrorRecord, error) {
	r.mu.Lock()
	r.started++
	seq := r.started
	r.mu.Unlock()

	rows, err := r.store.ListRecords(ctx)
	if err != nil {
		r.fail(ctx, ActionList, "Failed to load errors", nil, err)
		return nil, fmt.Errorf("list records: %w", err)
	}

	records, err := MapRows(rows)
	if err != nil {
		r.fail(ctx, ActionList, "Failed to load errors", nil, err)
		return nil, fmt.Errorf("list records: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq > r.applied {
		r.records = records
		r.stats = models.ComputeStats(records)
		r.applied = seq
		r.loaded = true
	}
	return slices.Clone(r.records), nil
}

// Ensure fetches once if nothing has been loaded yet.
func (r *Repository) Ensure(ctx context.Context) error {
	if r.Loaded() {
		return nil
	}
	_, err := r.List(ctx)
	return err
}

// Loaded reports whether a fetch has ever succeeded.
func (r *Repository) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Records returns a copy of the last successfully fetched list.
func (r *Repository) Records() []models.ErrorRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.records)
}

// Stats returns the counts derived from the last successful fetch.
func (r *Repository) Stats() models.ErrorStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// Find looks a record up by id in the current list.
func (r *Repository) Find(id uuid.UUID) (models.ErrorRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.records {
		if r.records[i].ID == id {
			return r.records[i], true
		}
	}
	return models.ErrorRecord{}, false
}

// Create inserts a record owned by user and re-reads the list. Without a user
// it fails with models.ErrUnauthenticated before touching the store.
func (r *Repository) Create(ctx context.Context, user *models.User, payload *models.RecordPayload) (*models.ErrorRecord, error) {
	if user == nil {
		r.fail(ctx, ActionCreate, "User not authenticated", nil, models.ErrUnauthenticated)
		return nil, models.ErrUnauthenticated
	}

	row, err := r.store.InsertRecord(ctx, toInsert(payload, user.ID))
	if err != nil {
		r.fail(ctx, ActionCreate, "Failed to create error", nil, err)
		return nil, fmt.Errorf("create record: %w", err)
	}

	r.succeed(ctx, ActionCreate, "Error created successfully", row.ID)
	return r.resync(ctx, *row)
}

// Update replaces the fields set in patch and re-reads the list.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, patch models.RecordPatch) (*models.ErrorRecord, error) {
	row, err := r.store.UpdateRecord(ctx, id, toUpdate(patch))
	if err != nil {
		r.fail(ctx, ActionUpdate, "Failed to update error", &id, err)
		return nil, fmt.Errorf("update record %s: %w", id, err)
	}

	r.succeed(ctx, ActionUpdate, "Error updated successfully", id)
	return r.resync(ctx, *row)
}

// Delete removes a record and re-reads the list.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.store.DeleteRecord(ctx, id); err != nil {
		r.fail(ctx, ActionDelete, "Failed to delete error", &id, err)
		return fmt.Errorf("delete record %s: %w", id, err)
	}

	r.succeed(ctx, ActionDelete, "Error deleted successfully", id)
	// The write has landed; a failed re-read is already surfaced by List.
	_, _ = r.List(ctx)
	return nil
}

// resync re-reads the list after a write and returns the written record as it
// now appears there, falling back to the row the store returned.
func (r *Repository) resync(ctx context.Context, row store.RecordRow) (*models.ErrorRecord, error) {
	if _, err := r.List(ctx); err == nil {
		if rec, ok := r.Find(row.ID); ok {
			return &rec, nil
		}
	}

	rec, err := MapRow(row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) fail(ctx context.Context, action, msg string, id *uuid.UUID, err error) {
	n := models.Notification{
		Level:    models.NotifyError,
		Action:   action,
		Message:  msg,
		RecordID: id,
		At:       r.now(),
	}
	if err != nil && !errors.Is(err, models.ErrUnauthenticated) {
		n.Error = err.Error()
	}
	r.notifier.Notify(ctx, n)
}

func (r *Repository) succeed(ctx context.Context, action, msg string, id uuid.UUID) {
	r.notifier.Notify(ctx, models.Notification{
		Level:    models.NotifySuccess,
		Action:   action,
		Message:  msg,
		RecordID: &id,
		At:       r.now(),
	})
}
