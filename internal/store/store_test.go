package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/catalog-projections/internal/catalog"
)

func makeProjection(store, projType, code string, content string) catalog.Projection {
	return catalog.New(
		catalog.Key{Store: store, Type: projType, Code: code},
		"guid-"+code, 1, []byte(content), time.Time{}, nil)
}

// newTestStore wires a store over fresh in-memory fakes with a fixed clock.
func newTestStore(opts Options) (*Store, *InMemoryRepository, *InMemoryJournal, *RecordingNotifier) {
	repo := NewInMemoryRepository()
	journal := &InMemoryJournal{}
	notifier := &RecordingNotifier{}
	s := New(repo, journal, notifier, opts)
	s.nowFn = func() time.Time {
		return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	}
	return s, repo, journal, notifier
}

func TestSaveOrUpdateInsertsNewProjection(t *testing.T) {
	s, repo, journal, notifier := newTestStore(Options{})

	changed, err := s.SaveOrUpdate(context.Background(), makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":10}`))
	require.NoError(t, err)
	assert.True(t, changed)

	row, err := repo.Get(context.Background(), catalog.TypeOffer, "offer-1", "kiosk")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(1), row.Version)
	assert.False(t, row.Deleted)
	assert.NotEmpty(t, row.ContentHash)

	require.Len(t, journal.Entries, 1)
	assert.Equal(t, "offer-1", journal.Entries[0].Key.Code)

	require.Len(t, notifier.Records, 1)
	assert.Equal(t, catalog.TypeOffer, notifier.Records[0].Type)
	assert.Equal(t, "kiosk", notifier.Records[0].Store)
	assert.Equal(t, []string{"offer-1"}, notifier.Records[0].Codes)
}

func TestSaveOrUpdateIdenticalContentIsNoOp(t *testing.T) {
	s, repo, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	_, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":10}`))
	require.NoError(t, err)

	changed, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":10}`))
	require.NoError(t, err)
	assert.False(t, changed, "re-submitting identical content must be a no-op")

	row, err := repo.Get(ctx, catalog.TypeOffer, "offer-1", "kiosk")
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.Version, "no-op must not bump the version")

	assert.Len(t, journal.Entries, 1, "no-op must not journal")
	assert.Len(t, notifier.Records, 1, "no-op must not notify")
}

func TestSaveOrUpdateChangedContentBumpsVersion(t *testing.T) {
	s, repo, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	_, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":10}`))
	require.NoError(t, err)

	changed, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":12}`))
	require.NoError(t, err)
	assert.True(t, changed)

	row, err := repo.Get(ctx, catalog.TypeOffer, "offer-1", "kiosk")
	require.NoError(t, err)
	assert.Equal(t, int64(2), row.Version)
	assert.JSONEq(t, `{"price":12}`, string(row.Content))

	assert.Len(t, journal.Entries, 2)
	assert.Len(t, notifier.Records, 2)
}

func TestSaveOrUpdateRetriesOnceOnVersionConflict(t *testing.T) {
	s, repo, _, _ := newTestStore(Options{})
	ctx := context.Background()

	_, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":10}`))
	require.NoError(t, err)

	key := catalog.Key{Store: "kiosk", Type: catalog.TypeOffer, Code: "offer-1"}
	repo.FailUpdates[key] = 1

	changed, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":12}`))
	require.NoError(t, err, "a single conflict must be absorbed by the retry")
	assert.True(t, changed)

	row, err := repo.Get(ctx, catalog.TypeOffer, "offer-1", "kiosk")
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":12}`, string(row.Content))
}

func TestSaveOrUpdateGivesUpAfterSecondConflict(t *testing.T) {
	s, repo, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	_, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":10}`))
	require.NoError(t, err)
	journal.Entries = nil
	notifier.Records = nil

	key := catalog.Key{Store: "kiosk", Type: catalog.TypeOffer, Code: "offer-1"}
	repo.FailUpdates[key] = 2

	changed, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":12}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWriteContentionExceeded))
	assert.False(t, changed)

	assert.Zero(t, repo.FailUpdates[key], "both attempts must have reached the repository")
	assert.Empty(t, journal.Entries, "a failed write must not journal")
	assert.Empty(t, notifier.Records, "a failed write must not notify")
}

func TestSaveOrUpdateRecoversFromLostInsertRace(t *testing.T) {
	s, repo, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	key := catalog.Key{Store: "kiosk", Type: catalog.TypeOffer, Code: "offer-1"}
	repo.FailInserts[key] = 1
	repo.MaterializeOnFailedInsert = true

	// The racing writer persisted identical content, so the retry resolves
	// to a no-op instead of an error.
	changed, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":10}`))
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Empty(t, journal.Entries)
	assert.Empty(t, notifier.Records)
}

func TestSaveOrUpdateAllCoalescesNotificationsPerGroup(t *testing.T) {
	s, _, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	batch := []catalog.Projection{
		makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":1}`),
		makeProjection("kiosk", catalog.TypeOffer, "offer-2", `{"price":2}`),
		makeProjection("kiosk", catalog.TypeOffer, "offer-3", `{"price":3}`),
		makeProjection("kiosk", catalog.TypeBrand, "brand-1", `{"name":"a"}`),
		makeProjection("web", catalog.TypeOffer, "offer-1", `{"price":1}`),
	}

	accepted, changed, err := s.SaveOrUpdateAll(ctx, batch)
	require.NoError(t, err)
	assert.Len(t, accepted, 5)
	assert.Equal(t, 5, changed)

	assert.Len(t, journal.Entries, 5, "every accepted write is journaled individually")

	require.Len(t, notifier.Records, 3, "one notification per (type, store) group")
	byGroup := make(map[string][]string)
	for _, record := range notifier.Records {
		byGroup[record.Type+"/"+record.Store] = record.Codes
	}
	assert.ElementsMatch(t, []string{"offer-1", "offer-2", "offer-3"}, byGroup[catalog.TypeOffer+"/kiosk"])
	assert.ElementsMatch(t, []string{"brand-1"}, byGroup[catalog.TypeBrand+"/kiosk"])
	assert.ElementsMatch(t, []string{"offer-1"}, byGroup[catalog.TypeOffer+"/web"])
}

func TestSaveOrUpdateAllSkipsUnchangedRows(t *testing.T) {
	s, repo, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	_, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":1}`))
	require.NoError(t, err)
	journal.Entries = nil
	notifier.Records = nil

	_, changed, err := s.SaveOrUpdateAll(ctx, []catalog.Projection{
		makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":1}`),
		makeProjection("kiosk", catalog.TypeOffer, "offer-2", `{"price":2}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	require.Len(t, journal.Entries, 1, "only the changed row is journaled")
	assert.Equal(t, "offer-2", journal.Entries[0].Key.Code)

	require.Len(t, notifier.Records, 1)
	assert.Equal(t, []string{"offer-2"}, notifier.Records[0].Codes)

	row, err := repo.Get(ctx, catalog.TypeOffer, "offer-1", "kiosk")
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.Version)
}

func TestSaveOrUpdateResurrectsTombstonedKey(t *testing.T) {
	s, repo, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	_, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":10}`))
	require.NoError(t, err)
	require.NoError(t, s.DeleteInStore(ctx, catalog.TypeOffer, "kiosk", "offer-1"))
	journal.Entries = nil
	notifier.Records = nil

	changed, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":11}`))
	require.NoError(t, err)
	assert.True(t, changed)

	row, err := repo.Get(ctx, catalog.TypeOffer, "offer-1", "kiosk")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.False(t, row.Deleted, "re-saving a deleted key must bring the row back")
	assert.Equal(t, int64(3), row.Version, "the tombstone's version history is continued, not reset")
	assert.JSONEq(t, `{"price":11}`, string(row.Content))

	assert.Len(t, journal.Entries, 1)
	assert.Len(t, notifier.Records, 1)
}

func TestSaveOrUpdateAllResurrectsTombstonedKey(t *testing.T) {
	s, repo, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	_, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":10}`))
	require.NoError(t, err)
	require.NoError(t, s.DeleteInStore(ctx, catalog.TypeOffer, "kiosk", "offer-1"))
	journal.Entries = nil
	notifier.Records = nil

	// The deleted key must be classified as existing, not new, so the batch
	// updates it instead of failing on a duplicate insert.
	_, changed, err := s.SaveOrUpdateAll(ctx, []catalog.Projection{
		makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":11}`),
		makeProjection("kiosk", catalog.TypeOffer, "offer-2", `{"price":2}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	row, err := repo.Get(ctx, catalog.TypeOffer, "offer-1", "kiosk")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.False(t, row.Deleted)
	assert.Equal(t, int64(3), row.Version)
	assert.JSONEq(t, `{"price":11}`, string(row.Content))

	assert.Len(t, journal.Entries, 2)
	require.Len(t, notifier.Records, 1)
	assert.ElementsMatch(t, []string{"offer-1", "offer-2"}, notifier.Records[0].Codes)
}

func TestDeleteTombstonesAcrossStores(t *testing.T) {
	s, repo, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	_, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":1}`))
	require.NoError(t, err)
	_, err = s.SaveOrUpdate(ctx, makeProjection("web", catalog.TypeOffer, "offer-1", `{"price":1}`))
	require.NoError(t, err)
	journal.Entries = nil
	notifier.Records = nil

	require.NoError(t, s.Delete(ctx, catalog.TypeOffer, "offer-1"))

	for _, store := range []string{"kiosk", "web"} {
		row, err := repo.Get(ctx, catalog.TypeOffer, "offer-1", store)
		require.NoError(t, err)
		require.NotNil(t, row, "tombstone row must remain resolvable")
		assert.True(t, row.Deleted)
		assert.Empty(t, row.Content)
		assert.Empty(t, row.ContentHash)
	}

	assert.Len(t, journal.Entries, 2, "one history entry per tombstoned key")
	require.Len(t, notifier.Records, 2, "deletes notify per key, not coalesced")
	for _, record := range notifier.Records {
		assert.Equal(t, []string{"offer-1"}, record.Codes)
	}
}

func TestDeleteInStoreMissingKeyIsNoOp(t *testing.T) {
	s, _, journal, notifier := newTestStore(Options{})

	require.NoError(t, s.DeleteInStore(context.Background(), catalog.TypeOffer, "kiosk", "ghost"))

	assert.Empty(t, journal.Entries)
	assert.Empty(t, notifier.Records)
}

func TestDeleteInStoreAlreadyDeletedIsNoOp(t *testing.T) {
	s, _, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	_, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":1}`))
	require.NoError(t, err)
	require.NoError(t, s.DeleteInStore(ctx, catalog.TypeOffer, "kiosk", "offer-1"))
	journal.Entries = nil
	notifier.Records = nil

	require.NoError(t, s.DeleteInStore(ctx, catalog.TypeOffer, "kiosk", "offer-1"))

	assert.Empty(t, journal.Entries)
	assert.Empty(t, notifier.Records)
}

func TestDeleteCategoryFixesUpParent(t *testing.T) {
	s, repo, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	parent := makeProjection("kiosk", catalog.TypeCategory, "cat-a", `{"name":"A","children":["cat-b","cat-c"]}`)
	child := makeProjection("kiosk", catalog.TypeCategory, "cat-b", `{"name":"B","parent":"cat-a","children":[]}`)
	_, err := s.SaveOrUpdate(ctx, parent)
	require.NoError(t, err)
	_, err = s.SaveOrUpdate(ctx, child)
	require.NoError(t, err)
	journal.Entries = nil
	notifier.Records = nil

	require.NoError(t, s.Delete(ctx, catalog.TypeCategory, "cat-b"))

	childRow, err := repo.Get(ctx, catalog.TypeCategory, "cat-b", "kiosk")
	require.NoError(t, err)
	assert.True(t, childRow.Deleted)

	parentRow, err := repo.Get(ctx, catalog.TypeCategory, "cat-a", "kiosk")
	require.NoError(t, err)
	require.NotNil(t, parentRow)
	assert.False(t, parentRow.Deleted)

	document, err := catalog.ParseCategoryDocument(parentRow.Content)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat-c"}, document.Children(), "deleted child must be gone from the parent")

	assert.Len(t, journal.Entries, 2, "parent fix-up and tombstone are both journaled")
	assert.Len(t, notifier.Records, 2, "parent fix-up and tombstone both notify")
}

func TestDeleteRootCategorySkipsFixup(t *testing.T) {
	s, _, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	root := makeProjection("kiosk", catalog.TypeCategory, "cat-root", `{"name":"Root","children":["cat-a"]}`)
	_, err := s.SaveOrUpdate(ctx, root)
	require.NoError(t, err)
	journal.Entries = nil
	notifier.Records = nil

	require.NoError(t, s.Delete(ctx, catalog.TypeCategory, "cat-root"))

	assert.Len(t, journal.Entries, 1, "only the tombstone itself is journaled")
	assert.Len(t, notifier.Records, 1)
}

func TestDeleteAllCoalescesNotifications(t *testing.T) {
	s, _, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	seeded := []catalog.Projection{
		makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"price":1}`),
		makeProjection("kiosk", catalog.TypeOffer, "offer-2", `{"price":2}`),
		makeProjection("web", catalog.TypeBrand, "brand-1", `{"name":"a"}`),
	}
	for _, projection := range seeded {
		_, err := s.SaveOrUpdate(ctx, projection)
		require.NoError(t, err)
	}
	journal.Entries = nil
	notifier.Records = nil

	targets := append(seeded, makeProjection("kiosk", catalog.TypeOffer, "ghost", `{}`))
	require.NoError(t, s.DeleteAll(ctx, targets))

	assert.Len(t, journal.Entries, 3, "missing keys are skipped")

	require.Len(t, notifier.Records, 2, "bulk delete coalesces per (type, store) group")
	byGroup := make(map[string][]string)
	for _, record := range notifier.Records {
		byGroup[record.Type+"/"+record.Store] = record.Codes
	}
	assert.ElementsMatch(t, []string{"offer-1", "offer-2"}, byGroup[catalog.TypeOffer+"/kiosk"])
	assert.ElementsMatch(t, []string{"brand-1"}, byGroup[catalog.TypeBrand+"/web"])
}

func TestRemoveAllLeavesNoTrace(t *testing.T) {
	s, repo, journal, notifier := newTestStore(Options{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, fmt.Sprintf("offer-%d", i), `{"price":1}`))
		require.NoError(t, err)
	}
	_, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeBrand, "brand-1", `{"name":"a"}`))
	require.NoError(t, err)
	journal.Entries = nil
	notifier.Records = nil

	removed, err := s.RemoveAll(ctx, catalog.TypeOffer)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	row, err := repo.Get(ctx, catalog.TypeOffer, "offer-0", "kiosk")
	require.NoError(t, err)
	assert.Nil(t, row, "removal is physical, not a tombstone")

	brand, err := repo.Get(ctx, catalog.TypeBrand, "brand-1", "kiosk")
	require.NoError(t, err)
	assert.NotNil(t, brand, "other types are untouched")

	assert.Empty(t, journal.Entries, "administrative removal writes no history")
	assert.Empty(t, notifier.Records, "administrative removal emits no notifications")
}

func TestReadAllPaginationCoversEveryRowExactlyOnce(t *testing.T) {
	s, _, _, _ := newTestStore(Options{})
	ctx := context.Background()

	const total = 7
	var want []string
	for i := 0; i < total; i++ {
		code := fmt.Sprintf("offer-%02d", i)
		want = append(want, code)
		_, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, code, fmt.Sprintf(`{"n":%d}`, i)))
		require.NoError(t, err)
	}

	for limit := 1; limit <= total+5; limit++ {
		var got []string
		cursor := ""
		firstPage := true
		for {
			page, err := s.ReadAll(ctx, catalog.TypeOffer, "kiosk",
				PaginationRequest{Limit: limit, StartAfter: cursor}, ModifiedSince{})
			require.NoError(t, err)

			if firstPage {
				assert.NotNil(t, page.CurrentDateTime, "limit=%d: first page carries the server time", limit)
				firstPage = false
			} else {
				assert.Nil(t, page.CurrentDateTime, "limit=%d: later pages carry no server time", limit)
			}

			for _, projection := range page.Projections {
				got = append(got, projection.Key.Code)
			}
			if !page.Pagination.HasNext {
				break
			}
			require.NotEmpty(t, page.Pagination.NextCursor)
			cursor = page.Pagination.NextCursor
		}
		assert.Equal(t, want, got, "limit=%d: pagination must cover every row exactly once, in order", limit)
	}
}

func TestReadAllExcludesTombstones(t *testing.T) {
	s, _, _, _ := newTestStore(Options{})
	ctx := context.Background()

	_, err := s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"n":1}`))
	require.NoError(t, err)
	_, err = s.SaveOrUpdate(ctx, makeProjection("kiosk", catalog.TypeOffer, "offer-2", `{"n":2}`))
	require.NoError(t, err)
	require.NoError(t, s.DeleteInStore(ctx, catalog.TypeOffer, "kiosk", "offer-1"))

	page, err := s.ReadAll(ctx, catalog.TypeOffer, "kiosk", PaginationRequest{Limit: 10}, ModifiedSince{})
	require.NoError(t, err)
	require.Len(t, page.Projections, 1)
	assert.Equal(t, "offer-2", page.Projections[0].Key.Code)

	// Point reads still resolve the tombstone.
	row, err := s.Get(ctx, catalog.TypeOffer, "offer-1", "kiosk")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.Deleted)
}

func TestReadAllModifiedSinceFiltersOldRows(t *testing.T) {
	s, _, _, _ := newTestStore(Options{})
	ctx := context.Background()

	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(10 * time.Minute), base.Add(20 * time.Minute)}
	for i, at := range times {
		projection := makeProjection("kiosk", catalog.TypeOffer, fmt.Sprintf("offer-%d", i), fmt.Sprintf(`{"n":%d}`, i))
		projection.ProjectionDateTime = at
		_, err := s.SaveOrUpdate(ctx, projection)
		require.NoError(t, err)
	}

	zeroOffset := 0
	threshold := times[1]
	page, err := s.ReadAll(ctx, catalog.TypeOffer, "kiosk",
		PaginationRequest{Limit: 10},
		ModifiedSince{ModifiedSince: &threshold, OffsetMinutes: &zeroOffset})
	require.NoError(t, err)

	var got []string
	for _, projection := range page.Projections {
		got = append(got, projection.Key.Code)
	}
	assert.Equal(t, []string{"offer-1", "offer-2"}, got, "threshold is inclusive")
}

func TestReadAllModifiedSinceAppliesDefaultOffset(t *testing.T) {
	s, _, _, _ := newTestStore(Options{DefaultModifiedSinceOffset: 15 * time.Minute})
	ctx := context.Background()

	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(10 * time.Minute), base.Add(20 * time.Minute)}
	for i, at := range times {
		projection := makeProjection("kiosk", catalog.TypeOffer, fmt.Sprintf("offer-%d", i), fmt.Sprintf(`{"n":%d}`, i))
		projection.ProjectionDateTime = at
		_, err := s.SaveOrUpdate(ctx, projection)
		require.NoError(t, err)
	}

	// Threshold t=20m with the configured 15m offset reaches back to t=5m,
	// which includes the 10m row but not the 0m row.
	threshold := times[2]
	page, err := s.ReadAll(ctx, catalog.TypeOffer, "kiosk",
		PaginationRequest{Limit: 10},
		ModifiedSince{ModifiedSince: &threshold})
	require.NoError(t, err)

	var got []string
	for _, projection := range page.Projections {
		got = append(got, projection.Key.Code)
	}
	assert.Equal(t, []string{"offer-1", "offer-2"}, got)
}

func TestNearestExpiryTime(t *testing.T) {
	s, _, _, _ := newTestStore(Options{})
	ctx := context.Background()

	nearest, err := s.NearestExpiryTime(ctx)
	require.NoError(t, err)
	assert.Nil(t, nearest, "no expiring projections yet")

	soon := time.Date(2026, 3, 15, 13, 0, 0, 0, time.UTC)
	later := soon.Add(2 * time.Hour)

	first := makeProjection("kiosk", catalog.TypeOffer, "offer-1", `{"n":1}`)
	first.DisableDateTime = &later
	second := makeProjection("kiosk", catalog.TypeOffer, "offer-2", `{"n":2}`)
	second.DisableDateTime = &soon

	_, err = s.SaveOrUpdate(ctx, first)
	require.NoError(t, err)
	_, err = s.SaveOrUpdate(ctx, second)
	require.NoError(t, err)

	nearest, err = s.NearestExpiryTime(ctx)
	require.NoError(t, err)
	require.NotNil(t, nearest)
	assert.True(t, nearest.Equal(soon))
}
