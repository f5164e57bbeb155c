package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/storefront-labs/catalog-projections/internal/catalog"
	"github.com/storefront-labs/catalog-projections/internal/core/storage"
)

// ErrWriteContentionExceeded is returned when the second attempt to persist
// a projection also hits a concurrent-write conflict. The operation is not
// applied; callers should try again later, possibly with backoff.
var ErrWriteContentionExceeded = errors.New("projection write contention exceeded")

// Notifier emits a change-notification message for projections of one
// (type, store) group that were accepted at modifiedAt.
type Notifier interface {
	Notify(ctx context.Context, projType, store string, modifiedAt time.Time, codes []string) error
}

// Store is the projection persistence engine. It decides whether an incoming
// projection represents a real change, journals every accepted write, and
// emits change notifications. All cross-writer coordination happens through
// the repository's optimistic version check; the store holds no locks.
type Store struct {
	projections storage.ProjectionRepository
	history     storage.HistoryJournal
	notifier    Notifier

	defaultModifiedSinceOffset time.Duration
	nowFn                      func() time.Time
}

// Options tunes store behavior.
type Options struct {
	// DefaultModifiedSinceOffset is subtracted from a caller's modifiedSince
	// threshold when the caller does not supply an offset. It absorbs clock
	// skew and replication lag between poller and store.
	DefaultModifiedSinceOffset time.Duration
}

// New creates a projection store.
func New(projections storage.ProjectionRepository, history storage.HistoryJournal, notifier Notifier, opts Options) *Store {
	return &Store{
		projections:                projections,
		history:                    history,
		notifier:                   notifier,
		defaultModifiedSinceOffset: opts.DefaultModifiedSinceOffset,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// SaveOrUpdate persists candidate projection p and reports whether it was a
// real change. Writes with a content hash equal to the stored one are
// no-ops: no mutation, no history entry, no notification.
//
// A version or uniqueness conflict triggers exactly one retry from the
// initial read. A second consecutive conflict surfaces as
// ErrWriteContentionExceeded.
func (s *Store) SaveOrUpdate(ctx context.Context, projection catalog.Projection) (bool, error) {
	projection = s.normalize(projection)

	changed, err := s.trySaveOrUpdate(ctx, projection)
	if !isWriteConflict(err) {
		return changed, err
	}

	slog.Debug("[Store] Write conflict, retrying once",
		"store", projection.Key.Store,
		"type", projection.Key.Type,
		"code", projection.Key.Code)

	changed, err = s.trySaveOrUpdate(ctx, projection)
	if isWriteConflict(err) {
		return false, fmt.Errorf("%w: second attempt to persist %s/%s/%s failed: %v",
			ErrWriteContentionExceeded,
			projection.Key.Store, projection.Key.Type, projection.Key.Code, err)
	}
	return changed, err
}

func (s *Store) trySaveOrUpdate(ctx context.Context, projection catalog.Projection) (bool, error) {
	existing, err := s.projections.Get(ctx, projection.Key.Type, projection.Key.Code, projection.Key.Store)
	if err != nil {
		return false, fmt.Errorf("read existing projection: %w", err)
	}

	if existing == nil {
		inserted := storage.VersionedProjection{Projection: projection}
		if err := s.projections.Insert(ctx, &inserted); err != nil {
			return false, err
		}
		return true, s.journalAndNotify(ctx, projection)
	}

	if existing.ContentHash == projection.ContentHash {
		return false, nil
	}

	updated := storage.VersionedProjection{Projection: projection, Version: existing.Version}
	if err := s.projections.Update(ctx, &updated); err != nil {
		return false, err
	}
	return true, s.journalAndNotify(ctx, projection)
}

// SaveOrUpdateAll persists a batch of candidate projections. It echoes the
// input and reports how many rows actually changed. Existing keys, tombstones
// included, are diffed by content hash and only the changed subset is
// journaled; new keys are inserted unconditionally. Notifications are
// coalesced into one message per (type, store) group.
//
// Unlike SaveOrUpdate there is no conflict retry: the bulk path is meant for
// single-writer ingestion pipelines and lets conflicts propagate.
func (s *Store) SaveOrUpdateAll(ctx context.Context, projections []catalog.Projection) ([]catalog.Projection, int, error) {
	for i := range projections {
		projections[i] = s.normalize(projections[i])
	}

	existing, err := s.findExistingBatch(ctx, projections)
	if err != nil {
		return nil, 0, err
	}

	var (
		snapshots []catalog.Projection
		changed   []catalog.Projection
	)

	for _, projection := range projections {
		current, ok := existing[projection.Key]
		if !ok {
			inserted := storage.VersionedProjection{Projection: projection}
			if err := s.projections.Insert(ctx, &inserted); err != nil {
				return nil, 0, fmt.Errorf("bulk insert %s/%s/%s: %w",
					projection.Key.Store, projection.Key.Type, projection.Key.Code, err)
			}
			snapshots = append(snapshots, projection.Clone())
			changed = append(changed, projection)
			continue
		}

		if current.ContentHash == projection.ContentHash {
			continue
		}

		updated := storage.VersionedProjection{Projection: projection, Version: current.Version}
		if err := s.projections.Update(ctx, &updated); err != nil {
			return nil, 0, fmt.Errorf("bulk update %s/%s/%s: %w",
				projection.Key.Store, projection.Key.Type, projection.Key.Code, err)
		}
		snapshots = append(snapshots, projection.Clone())
		changed = append(changed, projection)
	}

	if err := s.history.AppendAll(ctx, snapshots); err != nil {
		return nil, 0, err
	}

	if err := s.notifyGrouped(ctx, changed); err != nil {
		return nil, 0, err
	}

	return projections, len(changed), nil
}

// RemoveAll hard-deletes every projection of the given type and returns the
// number of rows removed. Administrative operation: no history entries and
// no notifications are produced.
func (s *Store) RemoveAll(ctx context.Context, projType string) (int64, error) {
	return s.projections.DeleteAllByType(ctx, projType)
}

// NearestExpiryTime returns the minimum disable date time among live,
// not yet expired projections, or nil when none carry one. It feeds the
// expiry sweeper's scheduling.
func (s *Store) NearestExpiryTime(ctx context.Context) (*time.Time, error) {
	return s.projections.NearestExpiryTime(ctx, s.nowFn())
}

// normalize fills in derivable fields of a candidate projection: the content
// hash when the caller did not precompute it, and the projection date time
// when unset.
func (s *Store) normalize(projection catalog.Projection) catalog.Projection {
	if projection.ContentHash == "" && !projection.Deleted {
		projection.ContentHash = catalog.HashContent(projection.Content)
	}
	if projection.ProjectionDateTime.IsZero() {
		projection.ProjectionDateTime = s.nowFn()
	}
	return projection
}

// findExistingBatch partitions a batch into existing and new keys using one
// batched read per (type, store) group rather than one read per item. The
// read keeps tombstones visible so a re-save of a soft-deleted key updates
// the row back to life instead of colliding on insert.
func (s *Store) findExistingBatch(ctx context.Context, projections []catalog.Projection) (map[catalog.Key]storage.VersionedProjection, error) {
	type group struct {
		projType string
		store    string
	}

	codesByGroup := make(map[group][]string)
	for _, projection := range projections {
		g := group{projType: projection.Key.Type, store: projection.Key.Store}
		codesByGroup[g] = append(codesByGroup[g], projection.Key.Code)
	}

	existing := make(map[catalog.Key]storage.VersionedProjection)
	for g, codes := range codesByGroup {
		found, err := s.projections.FindByStoreAndCodesIncludingDeleted(ctx, g.projType, g.store, codes)
		if err != nil {
			return nil, fmt.Errorf("batched existence check for %s/%s: %w", g.store, g.projType, err)
		}
		for _, projection := range found {
			existing[projection.Key] = projection
		}
	}

	return existing, nil
}

// journalAndNotify records one accepted write. The snapshot is a value copy
// of the post-write state. The data write has already committed when either
// step fails; failures surface to the caller without rolling it back.
func (s *Store) journalAndNotify(ctx context.Context, projection catalog.Projection) error {
	if err := s.history.Append(ctx, projection.Clone()); err != nil {
		return err
	}
	return s.notifier.Notify(ctx,
		projection.Key.Type,
		projection.Key.Store,
		projection.ProjectionDateTime,
		[]string{projection.Key.Code})
}

// notifyGrouped coalesces accepted writes into one notification per
// (type, store) group, carrying every affected code in that group.
func (s *Store) notifyGrouped(ctx context.Context, projections []catalog.Projection) error {
	type group struct {
		projType string
		store    string
	}

	codesByGroup := make(map[group][]string)
	var order []group
	for _, projection := range projections {
		g := group{projType: projection.Key.Type, store: projection.Key.Store}
		if _, seen := codesByGroup[g]; !seen {
			order = append(order, g)
		}
		codesByGroup[g] = append(codesByGroup[g], projection.Key.Code)
	}

	modifiedAt := s.nowFn()
	for _, g := range order {
		if err := s.notifier.Notify(ctx, g.projType, g.store, modifiedAt, codesByGroup[g]); err != nil {
			return err
		}
	}
	return nil
}

func isWriteConflict(err error) bool {
	return errors.Is(err, storage.ErrVersionConflict) || errors.Is(err, storage.ErrDuplicate)
}
