package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/storefront-labs/catalog-projections/internal/catalog"
	"github.com/storefront-labs/catalog-projections/internal/core/storage"
)

// Delete soft-deletes every not-deleted projection of (type, code) across
// all stores. One history entry and one notification per affected key.
func (s *Store) Delete(ctx context.Context, projType, code string) error {
	targets, err := s.projections.FindNotDeleted(ctx, projType, code)
	if err != nil {
		return fmt.Errorf("find projections to delete: %w", err)
	}

	var snapshots []catalog.Projection
	for i := range targets {
		deleted, err := s.softDelete(ctx, &targets[i])
		if err != nil {
			return err
		}
		snapshots = append(snapshots, deleted.Clone())
	}

	if err := s.history.AppendAll(ctx, snapshots); err != nil {
		return err
	}

	for _, snapshot := range snapshots {
		err := s.notifier.Notify(ctx,
			snapshot.Key.Type,
			snapshot.Key.Store,
			snapshot.ProjectionDateTime,
			[]string{snapshot.Key.Code})
		if err != nil {
			return err
		}
	}

	return nil
}

// DeleteInStore soft-deletes exactly one key. Deleting a key that does not
// exist, or is already deleted, is a no-op.
func (s *Store) DeleteInStore(ctx context.Context, projType, store, code string) error {
	target, err := s.projections.Get(ctx, projType, code, store)
	if err != nil {
		return fmt.Errorf("find projection to delete: %w", err)
	}
	if target == nil || target.Deleted {
		return nil
	}

	deleted, err := s.softDelete(ctx, target)
	if err != nil {
		return err
	}

	if err := s.history.Append(ctx, deleted.Clone()); err != nil {
		return err
	}

	return s.notifier.Notify(ctx, projType, store, deleted.ProjectionDateTime, []string{code})
}

// DeleteProjections soft-deletes the given projections by (type, code),
// across all stores, with per-key notifications.
func (s *Store) DeleteProjections(ctx context.Context, projections []catalog.Projection) error {
	for _, projection := range projections {
		if err := s.Delete(ctx, projection.Key.Type, projection.Key.Code); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll soft-deletes the given projections by exact key and coalesces
// notifications into one message per (type, store) group. Missing keys are
// skipped.
func (s *Store) DeleteAll(ctx context.Context, projections []catalog.Projection) error {
	var (
		snapshots []catalog.Projection
		affected  []catalog.Projection
	)

	for _, projection := range projections {
		target, err := s.projections.Get(ctx, projection.Key.Type, projection.Key.Code, projection.Key.Store)
		if err != nil {
			return fmt.Errorf("find projection to delete: %w", err)
		}
		if target == nil || target.Deleted {
			continue
		}

		deleted, err := s.softDelete(ctx, target)
		if err != nil {
			return err
		}
		snapshots = append(snapshots, deleted.Clone())
		affected = append(affected, deleted)
	}

	if err := s.history.AppendAll(ctx, snapshots); err != nil {
		return err
	}

	return s.notifyGrouped(ctx, affected)
}

// softDelete transitions one live row to its tombstone state, fixing up
// parent categories first when the row is a category.
func (s *Store) softDelete(ctx context.Context, target *storage.VersionedProjection) (catalog.Projection, error) {
	if target.Key.Type == catalog.TypeCategory {
		if err := s.fixupParentCategories(ctx, target.Projection); err != nil {
			return catalog.Projection{}, err
		}
	}

	deleted := target.Projection.AsDeleted(s.nowFn())
	versioned := storage.VersionedProjection{Projection: deleted, Version: target.Version}
	if err := s.projections.Update(ctx, &versioned); err != nil {
		return catalog.Projection{}, fmt.Errorf("soft-delete %s/%s/%s: %w",
			target.Key.Store, target.Key.Type, target.Key.Code, err)
	}

	return deleted, nil
}

// fixupParentCategories removes the deleted category's code from the
// children list of each directly-referencing parent and re-submits the
// parent through the normal write path, so the fix-up produces its own
// history entry and notification and is covered by the retry policy.
//
// Only direct parents are walked; grandparents' derived state is not
// recursively repaired. The two phases are not one transaction: if a parent
// write fails after the category was already tombstoned, stale child
// references persist until a corrective write occurs.
func (s *Store) fixupParentCategories(ctx context.Context, category catalog.Projection) error {
	if len(category.Content) == 0 {
		return nil
	}

	document, err := catalog.ParseCategoryDocument(category.Content)
	if err != nil {
		return err
	}
	if document.Parent() == "" {
		return nil
	}

	parents, err := s.projections.FindNotDeleted(ctx, catalog.TypeCategory, document.Parent())
	if err != nil {
		return fmt.Errorf("find parent categories of %s: %w", category.Key.Code, err)
	}

	for _, parent := range parents {
		parentDocument, err := catalog.ParseCategoryDocument(parent.Content)
		if err != nil {
			return err
		}
		if !parentDocument.RemoveChild(category.Key.Code) {
			continue
		}

		content, err := parentDocument.Encode()
		if err != nil {
			return err
		}

		updated := parent.Projection
		updated.Content = content
		updated.ContentHash = catalog.HashContent(content)
		updated.ProjectionDateTime = s.nowFn()

		if _, err := s.SaveOrUpdate(ctx, updated); err != nil {
			return fmt.Errorf("fix up parent category %s/%s: %w",
				parent.Key.Store, parent.Key.Code, err)
		}

		slog.Debug("[Store] Removed child from parent category",
			"store", parent.Key.Store,
			"parent", parent.Key.Code,
			"child", category.Key.Code)
	}

	return nil
}
