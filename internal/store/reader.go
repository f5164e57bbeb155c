package store

import (
	"context"
	"time"

	"github.com/storefront-labs/catalog-projections/internal/catalog"
	"github.com/storefront-labs/catalog-projections/internal/core/storage"
)

// hasNext is the extra row fetched beyond the page limit to detect whether
// another page exists.
const hasNext = 1

// PaginationRequest selects one page of a code-ordered scan. StartAfter is
// the cursor: results begin strictly after that code. Empty means the first
// page.
type PaginationRequest struct {
	Limit      int
	StartAfter string
}

// PaginationResponse carries the cursor for the next page.
type PaginationResponse struct {
	Limit      int
	NextCursor string
	HasNext    bool
}

// ModifiedSince narrows a scan to rows modified at or after the threshold.
// The effective threshold is ModifiedSince minus the offset: the caller's
// OffsetMinutes when supplied, the store's configured default otherwise.
type ModifiedSince struct {
	ModifiedSince *time.Time
	OffsetMinutes *int
}

// FindAllResponse is one page of a scan. CurrentDateTime is only populated
// on the first page of a scan, for use as a stable modifiedSince anchor in
// subsequent incremental polls.
type FindAllResponse struct {
	Projections     []catalog.Projection
	Pagination      PaginationResponse
	CurrentDateTime *time.Time
}

// Get returns the projection for (type, code, store), including tombstones,
// or nil when no row exists.
func (s *Store) Get(ctx context.Context, projType, code, store string) (*catalog.Projection, error) {
	versioned, err := s.projections.Get(ctx, projType, code, store)
	if err != nil || versioned == nil {
		return nil, err
	}
	projection := versioned.Projection
	return &projection, nil
}

// GetAllByCodes returns the not-deleted projections of the given type whose
// code is in codes, across all stores.
func (s *Store) GetAllByCodes(ctx context.Context, projType string, codes []string) ([]catalog.Projection, error) {
	versioned, err := s.projections.FindByCodes(ctx, projType, codes)
	if err != nil {
		return nil, err
	}
	return stripVersions(versioned), nil
}

// GetAllByStoreAndCodes is GetAllByCodes narrowed to one store.
func (s *Store) GetAllByStoreAndCodes(ctx context.Context, projType, store string, codes []string) ([]catalog.Projection, error) {
	versioned, err := s.projections.FindByStoreAndCodes(ctx, projType, store, codes)
	if err != nil {
		return nil, err
	}
	return stripVersions(versioned), nil
}

// ReadAll returns one page of the not-deleted projections of (type, store),
// ordered by code ascending. It fetches limit+1 rows to decide whether a
// next page exists; the cursor for the next page is the code of the last
// row in the returned page.
func (s *Store) ReadAll(ctx context.Context, projType, store string, pagination PaginationRequest, modifiedSince ModifiedSince) (*FindAllResponse, error) {
	limit := pagination.Limit
	if limit <= 0 {
		limit = 1
	}

	rows, err := s.fetchPage(ctx, projType, store, limit+hasNext, pagination.StartAfter, modifiedSince)
	if err != nil {
		return nil, err
	}

	response := &FindAllResponse{
		Pagination: PaginationResponse{Limit: limit},
	}

	if len(rows) > limit {
		rows = rows[:limit]
		response.Pagination.HasNext = true
		response.Pagination.NextCursor = rows[limit-1].Key.Code
	}
	response.Projections = stripVersions(rows)

	if pagination.StartAfter == "" {
		serverTime := s.nowFn()
		response.CurrentDateTime = &serverTime
	}

	return response, nil
}

func (s *Store) fetchPage(ctx context.Context, projType, store string, limit int, startAfter string, modifiedSince ModifiedSince) ([]storage.VersionedProjection, error) {
	if modifiedSince.ModifiedSince == nil {
		return s.projections.FindPage(ctx, projType, store, limit, startAfter)
	}

	offset := s.defaultModifiedSinceOffset
	if modifiedSince.OffsetMinutes != nil {
		offset = time.Duration(*modifiedSince.OffsetMinutes) * time.Minute
	}
	threshold := modifiedSince.ModifiedSince.Add(-offset)

	return s.projections.FindPageModifiedSince(ctx, projType, store, limit, startAfter, threshold)
}

func stripVersions(versioned []storage.VersionedProjection) []catalog.Projection {
	if versioned == nil {
		return nil
	}
	projections := make([]catalog.Projection, 0, len(versioned))
	for _, v := range versioned {
		projections = append(projections, v.Projection)
	}
	return projections
}
