package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/storefront-labs/catalog-projections/internal/catalog"
)

// HistoryAdapter implements storage.HistoryJournal using PostgreSQL.
// Entries are insert-only; the BIGSERIAL sequence column orders a key's
// entries by acceptance.
type HistoryAdapter struct {
	db *sql.DB
}

// NewHistoryAdapter creates a history adapter sharing the given connection.
func NewHistoryAdapter(db *sql.DB) *HistoryAdapter {
	return &HistoryAdapter{db: db}
}

// Append journals one accepted write.
func (a *HistoryAdapter) Append(ctx context.Context, snapshot catalog.Projection) error {
	content, contentHash, schemaVersion, disableDateTime := writeColumns(snapshot)

	_, err := a.db.ExecContext(ctx, queryAppendHistory,
		snapshot.Key.Store,
		snapshot.Key.Type,
		snapshot.Key.Code,
		snapshot.GUID,
		content,
		contentHash,
		schemaVersion,
		snapshot.ProjectionDateTime,
		disableDateTime,
		snapshot.Deleted,
	)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	slog.Debug("[History] Appended entry",
		"store", snapshot.Key.Store,
		"type", snapshot.Key.Type,
		"code", snapshot.Key.Code,
		"deleted", snapshot.Deleted)
	return nil
}

// AppendAll journals a batch of accepted writes in one transaction.
func (a *HistoryAdapter) AppendAll(ctx context.Context, snapshots []catalog.Projection) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history append: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, queryAppendHistory)
	if err != nil {
		return fmt.Errorf("history append: prepare: %w", err)
	}
	defer stmt.Close()

	for _, snapshot := range snapshots {
		content, contentHash, schemaVersion, disableDateTime := writeColumns(snapshot)

		if _, err := stmt.ExecContext(ctx,
			snapshot.Key.Store,
			snapshot.Key.Type,
			snapshot.Key.Code,
			snapshot.GUID,
			content,
			contentHash,
			schemaVersion,
			snapshot.ProjectionDateTime,
			disableDateTime,
			snapshot.Deleted,
		); err != nil {
			return fmt.Errorf("history append %s/%s/%s: %w",
				snapshot.Key.Store, snapshot.Key.Type, snapshot.Key.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history append: commit: %w", err)
	}

	slog.Debug("[History] Appended batch", "entries", len(snapshots))
	return nil
}
