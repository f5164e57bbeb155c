package storage

import (
	"context"
	"errors"
	"time"

	"github.com/storefront-labs/catalog-projections/internal/catalog"
)

// ErrDuplicate is returned by Insert when a projection with the same
// (store, type, code) already exists. Two writers that both observed
// "absent" race to insert; the loser gets this.
var ErrDuplicate = errors.New("projection already exists")

// ErrVersionConflict is returned by Update when the row's version no longer
// matches the one the caller read, meaning a concurrent writer got there
// first.
var ErrVersionConflict = errors.New("projection version conflict")

// VersionedProjection pairs a projection with the optimistic-concurrency
// version of the row it was read from.
type VersionedProjection struct {
	catalog.Projection
	Version int64
}

// ProjectionRepository is key-value style storage for the single current
// projection per (store, type, code).
type ProjectionRepository interface {
	// Get returns the projection for the key, deleted or not.
	// Returns (nil, nil) when no row exists.
	Get(ctx context.Context, projType, code, store string) (*VersionedProjection, error)

	// FindNotDeleted returns the not-deleted projections matching
	// (type, code) across all stores, ordered by store.
	FindNotDeleted(ctx context.Context, projType, code string) ([]VersionedProjection, error)

	// FindByCodes returns the not-deleted projections of the given type
	// whose code is in codes, across all stores.
	FindByCodes(ctx context.Context, projType string, codes []string) ([]VersionedProjection, error)

	// FindByStoreAndCodes is FindByCodes narrowed to one store.
	FindByStoreAndCodes(ctx context.Context, projType, store string, codes []string) ([]VersionedProjection, error)

	// FindByStoreAndCodesIncludingDeleted is FindByStoreAndCodes with
	// tombstones kept in the result. Write paths use it so a soft-deleted
	// key is classified as existing rather than new.
	FindByStoreAndCodesIncludingDeleted(ctx context.Context, projType, store string, codes []string) ([]VersionedProjection, error)

	// FindPage returns up to limit not-deleted projections of (type, store)
	// with code strictly greater than startAfter, ordered by code ascending.
	FindPage(ctx context.Context, projType, store string, limit int, startAfter string) ([]VersionedProjection, error)

	// FindPageModifiedSince is FindPage restricted to rows whose projection
	// date time is at or after the given threshold.
	FindPageModifiedSince(ctx context.Context, projType, store string, limit int, startAfter string, since time.Time) ([]VersionedProjection, error)

	// Insert creates the row at version 1. Returns ErrDuplicate if the key
	// already exists.
	Insert(ctx context.Context, projection *VersionedProjection) error

	// Update overwrites the row's state and bumps its version, but only if
	// the stored version still equals projection.Version. Returns
	// ErrVersionConflict otherwise.
	Update(ctx context.Context, projection *VersionedProjection) error

	// DeleteAllByType hard-deletes every row of the given type and returns
	// the number of rows removed.
	DeleteAllByType(ctx context.Context, projType string) (int64, error)

	// NearestExpiryTime returns the minimum disable date time among live,
	// not yet expired projections, or nil when none carry one.
	NearestExpiryTime(ctx context.Context, now time.Time) (*time.Time, error)

	// FindExpired returns up to limit not-deleted projections whose disable
	// date time has passed.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]VersionedProjection, error)
}

// HistoryJournal is the append-only change log: one entry per accepted
// write, storing a value snapshot of the projection's post-write state.
type HistoryJournal interface {
	Append(ctx context.Context, snapshot catalog.Projection) error
	AppendAll(ctx context.Context, snapshots []catalog.Projection) error
}
