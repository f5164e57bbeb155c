package postgres

import (
	"database/sql"
	"fmt"

	"github.com/storefront-labs/catalog-projections/internal/catalog"
	"github.com/storefront-labs/catalog-projections/internal/core/storage"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanProjectionRow scans one catalog_projection row. Content, content hash
// and schema version are NULL for soft-deleted rows.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanProjectionRow(row scanner) (*storage.VersionedProjection, error) {
	var (
		projection      storage.VersionedProjection
		content         []byte
		contentHash     sql.NullString
		schemaVersion   sql.NullInt32
		disableDateTime sql.NullTime
	)

	err := row.Scan(
		&projection.Key.Store,
		&projection.Key.Type,
		&projection.Key.Code,
		&projection.GUID,
		&content,
		&contentHash,
		&schemaVersion,
		&projection.ProjectionDateTime,
		&disableDateTime,
		&projection.Deleted,
		&projection.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan projection row: %w", err)
	}

	projection.Content = content
	projection.ContentHash = contentHash.String
	projection.SchemaVersion = int(schemaVersion.Int32)
	if disableDateTime.Valid {
		disableAt := disableDateTime.Time
		projection.DisableDateTime = &disableAt
	}

	return &projection, nil
}

// writeColumns maps the nullable projection fields to their SQL values.
// Soft-deleted projections persist NULL content, hash and schema version.
func writeColumns(projection catalog.Projection) (content interface{}, contentHash interface{}, schemaVersion interface{}, disableDateTime interface{}) {
	if len(projection.Content) > 0 {
		// The content column is TEXT; pass a string so the driver does not
		// encode the parameter as bytea.
		content = string(projection.Content)
	}
	if projection.ContentHash != "" {
		contentHash = projection.ContentHash
	}
	if !projection.Deleted {
		schemaVersion = projection.SchemaVersion
	}
	if projection.DisableDateTime != nil {
		disableDateTime = *projection.DisableDateTime
	}
	return content, contentHash, schemaVersion, disableDateTime
}

func collectProjectionRows(rows *sql.Rows) ([]storage.VersionedProjection, error) {
	defer rows.Close()

	var projections []storage.VersionedProjection
	for rows.Next() {
		projection, err := scanProjectionRow(rows)
		if err != nil {
			return nil, err
		}
		projections = append(projections, *projection)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projection rows: %w", err)
	}

	return projections, nil
}
