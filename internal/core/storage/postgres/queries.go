package postgres

// SQL for projection and history storage. Column order in every SELECT
// matches scanProjectionRow.

const (
	projectionColumns = `
			store, type, code, guid, content, content_hash,
			schema_version, projection_date_time, disable_date_time, deleted, version`

	queryGetProjection = `
		SELECT` + projectionColumns + `
		FROM catalog_projection
		WHERE type = $1 AND code = $2 AND store = $3
	`

	queryFindNotDeleted = `
		SELECT` + projectionColumns + `
		FROM catalog_projection
		WHERE type = $1 AND code = $2 AND deleted = FALSE
		ORDER BY store ASC
	`

	queryFindByCodes = `
		SELECT` + projectionColumns + `
		FROM catalog_projection
		WHERE type = $1 AND code = ANY($2) AND deleted = FALSE
		ORDER BY store ASC, code ASC
	`

	queryFindByStoreAndCodes = `
		SELECT` + projectionColumns + `
		FROM catalog_projection
		WHERE type = $1 AND store = $2 AND code = ANY($3) AND deleted = FALSE
		ORDER BY code ASC
	`

	// queryFindByStoreAndCodesIncludingDeleted keeps tombstones visible. The
	// bulk write path uses it so a soft-deleted key takes the update branch
	// instead of colliding with its own tombstone on insert.
	queryFindByStoreAndCodesIncludingDeleted = `
		SELECT` + projectionColumns + `
		FROM catalog_projection
		WHERE type = $1 AND store = $2 AND code = ANY($3)
		ORDER BY code ASC
	`

	// queryFindPage is the keyset pagination read: rows strictly after the
	// cursor code, code ascending. An empty cursor starts the scan since
	// every code collates after the empty string.
	queryFindPage = `
		SELECT` + projectionColumns + `
		FROM catalog_projection
		WHERE type = $1 AND store = $2 AND code > $3 AND deleted = FALSE
		ORDER BY code ASC
		LIMIT $4
	`

	queryFindPageModifiedSince = `
		SELECT` + projectionColumns + `
		FROM catalog_projection
		WHERE type = $1 AND store = $2 AND code > $3 AND deleted = FALSE
		  AND projection_date_time >= $4
		ORDER BY code ASC
		LIMIT $5
	`

	// queryInsertProjection creates the row at version 1.
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) when another
	// writer inserted the key first; the adapter maps that to ErrDuplicate.
	queryInsertProjection = `
		INSERT INTO catalog_projection (
			store, type, code, guid, content, content_hash,
			schema_version, projection_date_time, disable_date_time, deleted, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
		ON CONFLICT (store, type, code) DO NOTHING
		RETURNING version
	`

	// queryUpdateProjection is the optimistic-concurrency write: it only
	// lands if the row still carries the version the caller read.
	queryUpdateProjection = `
		UPDATE catalog_projection
		SET guid = $1,
			content = $2,
			content_hash = $3,
			schema_version = $4,
			projection_date_time = $5,
			disable_date_time = $6,
			deleted = $7,
			version = version + 1
		WHERE store = $8 AND type = $9 AND code = $10 AND version = $11
	`

	queryDeleteAllByType = `DELETE FROM catalog_projection WHERE type = $1`

	queryNearestExpiryTime = `
		SELECT MIN(disable_date_time)
		FROM catalog_projection
		WHERE deleted = FALSE AND disable_date_time IS NOT NULL AND disable_date_time > $1
	`

	queryFindExpired = `
		SELECT` + projectionColumns + `
		FROM catalog_projection
		WHERE deleted = FALSE AND disable_date_time IS NOT NULL AND disable_date_time <= $1
		ORDER BY disable_date_time ASC
		LIMIT $2
	`

	// queryAppendHistory journals one accepted write. The sequence column is
	// a BIGSERIAL, so entries for a single key are ordered by acceptance.
	queryAppendHistory = `
		INSERT INTO catalog_projection_history (
			store, type, code, guid, content, content_hash,
			schema_version, projection_date_time, disable_date_time, deleted
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
)
