package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/storefront-labs/catalog-projections/internal/catalog"
	"github.com/storefront-labs/catalog-projections/internal/core/storage"
)

// InMemoryRepository is a test helper that implements ProjectionRepository.
// Conflict injection: FailInserts/FailUpdates hold per-key counters of how
// many times the next write to that key should fail with the racing-writer
// error before succeeding.
type InMemoryRepository struct {
	mu   sync.Mutex
	rows map[catalog.Key]storage.VersionedProjection

	FailInserts map[catalog.Key]int
	FailUpdates map[catalog.Key]int

	// MaterializeOnFailedInsert seeds the row on an injected duplicate
	// failure, simulating the concurrent writer that won the race.
	MaterializeOnFailedInsert bool
}

// NewInMemoryRepository creates an empty in-memory projection repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		rows:        make(map[catalog.Key]storage.VersionedProjection),
		FailInserts: make(map[catalog.Key]int),
		FailUpdates: make(map[catalog.Key]int),
	}
}

// Seed places a row directly, bypassing the store's write path.
func (r *InMemoryRepository) Seed(projection catalog.Projection, version int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[projection.Key] = storage.VersionedProjection{Projection: projection.Clone(), Version: version}
}

func (r *InMemoryRepository) Get(_ context.Context, projType, code, store string) (*storage.VersionedProjection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[catalog.Key{Store: store, Type: projType, Code: code}]
	if !ok {
		return nil, nil
	}
	copied := row
	copied.Projection = row.Projection.Clone()
	return &copied, nil
}

func (r *InMemoryRepository) FindNotDeleted(_ context.Context, projType, code string) ([]storage.VersionedProjection, error) {
	found := r.filter(func(key catalog.Key, row storage.VersionedProjection) bool {
		return key.Type == projType && key.Code == code && !row.Deleted
	})
	sort.Slice(found, func(i, j int) bool { return found[i].Key.Store < found[j].Key.Store })
	return found, nil
}

func (r *InMemoryRepository) FindByCodes(_ context.Context, projType string, codes []string) ([]storage.VersionedProjection, error) {
	return r.filter(func(key catalog.Key, row storage.VersionedProjection) bool {
		return key.Type == projType && !row.Deleted && contains(codes, key.Code)
	}), nil
}

func (r *InMemoryRepository) FindByStoreAndCodes(_ context.Context, projType, store string, codes []string) ([]storage.VersionedProjection, error) {
	return r.filter(func(key catalog.Key, row storage.VersionedProjection) bool {
		return key.Type == projType && key.Store == store && !row.Deleted && contains(codes, key.Code)
	}), nil
}

func (r *InMemoryRepository) FindByStoreAndCodesIncludingDeleted(_ context.Context, projType, store string, codes []string) ([]storage.VersionedProjection, error) {
	return r.filter(func(key catalog.Key, _ storage.VersionedProjection) bool {
		return key.Type == projType && key.Store == store && contains(codes, key.Code)
	}), nil
}

func (r *InMemoryRepository) FindPage(_ context.Context, projType, store string, limit int, startAfter string) ([]storage.VersionedProjection, error) {
	page := r.filter(func(key catalog.Key, row storage.VersionedProjection) bool {
		return key.Type == projType && key.Store == store && !row.Deleted && key.Code > startAfter
	})
	if len(page) > limit {
		page = page[:limit]
	}
	return page, nil
}

func (r *InMemoryRepository) FindPageModifiedSince(_ context.Context, projType, store string, limit int, startAfter string, since time.Time) ([]storage.VersionedProjection, error) {
	page := r.filter(func(key catalog.Key, row storage.VersionedProjection) bool {
		return key.Type == projType && key.Store == store && !row.Deleted &&
			key.Code > startAfter && !row.ProjectionDateTime.Before(since)
	})
	if len(page) > limit {
		page = page[:limit]
	}
	return page, nil
}

func (r *InMemoryRepository) Insert(_ context.Context, projection *storage.VersionedProjection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailInserts[projection.Key] > 0 {
		r.FailInserts[projection.Key]--
		if r.MaterializeOnFailedInsert {
			racer := projection.Projection.Clone()
			r.rows[projection.Key] = storage.VersionedProjection{Projection: racer, Version: 1}
		}
		return storage.ErrDuplicate
	}
	if _, exists := r.rows[projection.Key]; exists {
		return storage.ErrDuplicate
	}

	projection.Version = 1
	r.rows[projection.Key] = storage.VersionedProjection{Projection: projection.Projection.Clone(), Version: 1}
	return nil
}

func (r *InMemoryRepository) Update(_ context.Context, projection *storage.VersionedProjection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailUpdates[projection.Key] > 0 {
		r.FailUpdates[projection.Key]--
		return storage.ErrVersionConflict
	}

	current, exists := r.rows[projection.Key]
	if !exists || current.Version != projection.Version {
		return storage.ErrVersionConflict
	}

	projection.Version++
	r.rows[projection.Key] = storage.VersionedProjection{Projection: projection.Projection.Clone(), Version: projection.Version}
	return nil
}

func (r *InMemoryRepository) DeleteAllByType(_ context.Context, projType string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for key := range r.rows {
		if key.Type == projType {
			delete(r.rows, key)
			removed++
		}
	}
	return removed, nil
}

func (r *InMemoryRepository) NearestExpiryTime(_ context.Context, now time.Time) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var nearest *time.Time
	for _, row := range r.rows {
		if row.Deleted || row.DisableDateTime == nil || !row.DisableDateTime.After(now) {
			continue
		}
		if nearest == nil || row.DisableDateTime.Before(*nearest) {
			at := *row.DisableDateTime
			nearest = &at
		}
	}
	return nearest, nil
}

func (r *InMemoryRepository) FindExpired(_ context.Context, now time.Time, limit int) ([]storage.VersionedProjection, error) {
	expired := r.filter(func(_ catalog.Key, row storage.VersionedProjection) bool {
		return !row.Deleted && row.DisableDateTime != nil && !row.DisableDateTime.After(now)
	})
	if len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (r *InMemoryRepository) filter(keep func(catalog.Key, storage.VersionedProjection) bool) []storage.VersionedProjection {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []storage.VersionedProjection
	for key, row := range r.rows {
		if keep(key, row) {
			copied := row
			copied.Projection = row.Projection.Clone()
			found = append(found, copied)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Key.Code < found[j].Key.Code })
	return found
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// InMemoryJournal is a test helper that implements HistoryJournal.
type InMemoryJournal struct {
	mu      sync.Mutex
	Entries []catalog.Projection
}

func (j *InMemoryJournal) Append(_ context.Context, snapshot catalog.Projection) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Entries = append(j.Entries, snapshot)
	return nil
}

func (j *InMemoryJournal) AppendAll(_ context.Context, snapshots []catalog.Projection) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Entries = append(j.Entries, snapshots...)
	return nil
}

// NotificationRecord captures one emitted change notification.
type NotificationRecord struct {
	Type       string
	Store      string
	ModifiedAt time.Time
	Codes      []string
}

// RecordingNotifier is a test helper that implements Notifier.
type RecordingNotifier struct {
	mu      sync.Mutex
	Records []NotificationRecord
}

func (n *RecordingNotifier) Notify(_ context.Context, projType, store string, modifiedAt time.Time, codes []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Records = append(n.Records, NotificationRecord{
		Type:       projType,
		Store:      store,
		ModifiedAt: modifiedAt,
		Codes:      append([]string(nil), codes...),
	})
	return nil
}
