package memory

import (
	"context"
	"sort"
	"sync"

	"teamy/internal/domain/usage"
	"teamy/pkg/errors"
)

var _ usage.Repository = (*UsageRepository)(nil)

// UsageRepository keeps records in process memory. Nothing survives a restart;
// used for STORAGE_DRIVER=memory and in tests.
type UsageRepository struct {
	mu      sync.RWMutex
	records map[int64]*usage.Record
}

// NewUsageRepository creates an empty in-memory repository
func NewUsageRepository() *UsageRepository {
	return &UsageRepository{
		records: make(map[int64]*usage.Record),
	}
}

// Touch creates an all-zero record if absent
func (r *UsageRepository) Touch(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensure(userID)
	return nil
}

// Increment creates the record if absent and bumps cmd
func (r *UsageRepository) Increment(ctx context.Context, userID int64, cmd usage.Command) error {
	if !cmd.Valid() {
		return errors.Wrapf(errors.ErrInvalidInput, "untracked command %d", int(cmd))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensure(userID).Counters[cmd]++
	return nil
}

// Get returns a copy of the record
func (r *UsageRepository) Get(ctx context.Context, userID int64) (*usage.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[userID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "usage record not found: user_id=%d", userID)
	}

	cp := *rec
	return &cp, nil
}

// List returns copies of all records ordered by user_id
func (r *UsageRepository) List(ctx context.Context) ([]*usage.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*usage.Record, 0, len(r.records))
	for _, rec := range r.records {
		cp := *rec
		records = append(records, &cp)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })

	return records, nil
}

// Count returns the number of records
func (r *UsageRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.records)), nil
}

// DeleteAll drops every record
func (r *UsageRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := int64(len(r.records))
	r.records = make(map[int64]*usage.Record)
	return removed, nil
}

// ensure must be called with mu held
func (r *UsageRepository) ensure(userID int64) *usage.Record {
	rec, ok := r.records[userID]
	if !ok {
		rec = usage.NewRecord(userID)
		r.records[userID] = rec
	}
	return rec
}
