package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// syncColumns is the column set shared by every syncable entity table.
// Ordering matters: scanSyncRecord and the upsert argument list both follow
// it.
var syncColumns = []string{
	"id",
	"version",
	"server_version",
	"sync_status",
	"created_time",
	"updated_time",
	"deleted_time",
	"deleted",
	"payload",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// buildChangedSinceQuery selects one over-full page of records changed after
// cursor, tombstones included, ordered so a resumed pull is deterministic:
// ascending by updated_time with id as the tie-break.
func buildChangedSinceQuery(table string, cursor int64, limit uint64) (string, []any, error) {
	return psql.
		Select(syncColumns...).
		From(table).
		Where(sq.Gt{"updated_time": cursor}).
		OrderBy("updated_time ASC", "id ASC").
		Limit(limit).
		ToSql()
}

// buildBoundaryQuery selects the remaining records sharing the page-boundary
// updated_time. A group of equal timestamps must never be split across
// pages, or a cursor advanced to that timestamp would silently skip the
// rest of the group.
func buildBoundaryQuery(table string, boundary int64, afterID string) (string, []any, error) {
	return psql.
		Select(syncColumns...).
		From(table).
		Where(sq.And{sq.Eq{"updated_time": boundary}, sq.Gt{"id": afterID}}).
		OrderBy("id ASC").
		ToSql()
}

// buildHasLaterQuery asks whether any record was changed after boundary.
// It recomputes hasMore after a boundary extension swallowed the overflow row.
func buildHasLaterQuery(table string, boundary int64) (string, []any, error) {
	return psql.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(table).
		Where(sq.Gt{"updated_time": boundary}).
		Suffix(")").
		ToSql()
}

// getRecordForUpdate locks the target row for the remainder of the push
// transaction so the version comparison and the subsequent write are atomic
// with respect to concurrent pushes of the same record.
func getRecordForUpdate(table string) string {
	return fmt.Sprintf(`SELECT id, version, server_version, sync_status, created_time, updated_time, deleted_time, deleted, payload
		FROM %s
		WHERE id = $1
		FOR UPDATE;`, table)
}

// parentExistsQuery checks that a referenced parent record exists and is not
// a tombstone.
func parentExistsQuery(table string) string {
	return fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND NOT deleted);`, table)
}

// upsertRecordQuery writes the full record state computed by the push
// protocol. The version arithmetic happens in the service before this
// statement runs; the statement is a plain full overwrite keyed by id.
func upsertRecordQuery(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (id, version, server_version, sync_status, created_time, updated_time, deleted_time, deleted, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			version = EXCLUDED.version,
			server_version = EXCLUDED.server_version,
			sync_status = EXCLUDED.sync_status,
			created_time = EXCLUDED.created_time,
			updated_time = EXCLUDED.updated_time,
			deleted_time = EXCLUDED.deleted_time,
			deleted = EXCLUDED.deleted,
			payload = EXCLUDED.payload;`, table)
}

const (
	createStaff = `INSERT INTO staff (login, name, role, password_hash)
    VALUES ($1, $2, $3, $4)
    RETURNING staff_id, login, name, role, password_hash, created_at;`

	findStaffByLogin = `SELECT staff_id, login, name, role, password_hash, created_at
    FROM staff
    WHERE login = $1;`

	createDevice = `INSERT INTO devices (device_id, staff_id, label)
    VALUES ($1, $2, $3)
    RETURNING device_id, staff_id, label, registered_at;`

	findDevice = `SELECT device_id, staff_id, label, registered_at
    FROM devices
    WHERE device_id = $1 AND staff_id = $2;`
)
