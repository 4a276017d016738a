// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Partocare

package agent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/partocare/partosync/internal/logger"
	"github.com/partocare/partosync/models"
)

// ErrLocalRecordNotFound is returned by [LocalStore.Get] for unknown IDs.
var ErrLocalRecordNotFound = errors.New("local record was not found")

// SQLiteStore implements [LocalStore] over a single SQLite file. Every
// syncable table shares the envelope columns; the sync_state table keeps one
// pull cursor row per table.
type SQLiteStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSQLiteStore opens (and creates, if needed) the local database at path
// and ensures the schema for all given tables exists.
func NewSQLiteStore(ctx context.Context, path string, tables []string, log *logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Err(err).Str("func", "NewSQLiteStore").Msg("error opening local database")
		return nil, fmt.Errorf("error opening local database: %w", err)
	}

	// SQLite handles one writer at a time; funnel everything through a
	// single connection to avoid SQLITE_BUSY under the sync job.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "NewSQLiteStore").Msg("error pinging local database")
		return nil, err
	}

	store := &SQLiteStore{db: db, logger: log}
	if err = store.ensureSchema(ctx, tables); err != nil {
		return nil, err
	}

	return store, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema(ctx context.Context, tables []string) error {
	const syncStateDDL = `CREATE TABLE IF NOT EXISTS sync_state (
		table_name TEXT PRIMARY KEY,
		cursor     INTEGER NOT NULL DEFAULT 0
	);`

	if _, err := s.db.ExecContext(ctx, syncStateDDL); err != nil {
		return fmt.Errorf("error creating sync_state table: %w", err)
	}

	for _, table := range tables {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id             TEXT PRIMARY KEY,
			version        INTEGER NOT NULL,
			server_version INTEGER NOT NULL,
			sync_status    TEXT NOT NULL,
			created_time   INTEGER NOT NULL,
			updated_time   INTEGER NOT NULL,
			deleted_time   INTEGER NOT NULL DEFAULT 0,
			deleted        INTEGER NOT NULL DEFAULT 0,
			payload        TEXT NOT NULL
		);`, table)
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("error creating local table %s: %w", table, err)
		}
	}

	return nil
}

// Get implements [LocalStore].
func (s *SQLiteStore) Get(ctx context.Context, table string, id string) (models.SyncRecord, error) {
	query, args, err := sq.
		Select("id", "version", "server_version", "sync_status", "created_time", "updated_time", "deleted_time", "deleted", "payload").
		From(table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.SyncRecord{}, fmt.Errorf("error building local get query: %w", err)
	}

	var record models.SyncRecord
	var payload []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&record.ID,
		&record.Version,
		&record.ServerVersion,
		&record.SyncStatus,
		&record.CreatedTime,
		&record.UpdatedTime,
		&record.DeletedTime,
		&record.Deleted,
		&payload,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncRecord{}, ErrLocalRecordNotFound
	}
	if err != nil {
		s.logger.Err(err).Str("func", "Get").Str("table", table).Msg("error scanning local record")
		return models.SyncRecord{}, fmt.Errorf("error scanning local record: %w", err)
	}
	record.Payload = payload

	return record, nil
}

// SaveLocalEdit implements [LocalStore].
func (s *SQLiteStore) SaveLocalEdit(ctx context.Context, table string, record models.SyncRecord) error {
	record.SyncStatus = models.StatusUnsynced
	return s.upsert(ctx, table, record)
}

// ApplyRemote implements [LocalStore].
func (s *SQLiteStore) ApplyRemote(ctx context.Context, table string, record models.SyncRecord) error {
	record.SyncStatus = models.StatusSynced
	return s.upsert(ctx, table, record)
}

func (s *SQLiteStore) upsert(ctx context.Context, table string, record models.SyncRecord) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, version, server_version, sync_status, created_time, updated_time, deleted_time, deleted, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			version = excluded.version,
			server_version = excluded.server_version,
			sync_status = excluded.sync_status,
			created_time = excluded.created_time,
			updated_time = excluded.updated_time,
			deleted_time = excluded.deleted_time,
			deleted = excluded.deleted,
			payload = excluded.payload;`, table)

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.Version,
		record.ServerVersion,
		record.SyncStatus,
		record.CreatedTime,
		record.UpdatedTime,
		record.DeletedTime,
		record.Deleted,
		string(record.Payload),
	)
	if err != nil {
		s.logger.Err(err).Str("func", "upsert").Str("table", table).Str("record_id", record.ID).Msg("error upserting local record")
		return fmt.Errorf("error upserting local record: %w", err)
	}

	return nil
}

// ListUnsynced implements [LocalStore].
func (s *SQLiteStore) ListUnsynced(ctx context.Context, table string) ([]models.SyncRecord, error) {
	query, args, err := sq.
		Select("id", "version", "server_version", "sync_status", "created_time", "updated_time", "deleted_time", "deleted", "payload").
		From(table).
		Where(sq.Eq{"sync_status": models.StatusUnsynced}).
		OrderBy("updated_time ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building unsynced query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Err(err).Str("func", "ListUnsynced").Str("table", table).Msg("error selecting unsynced records")
		return nil, fmt.Errorf("error selecting unsynced records: %w", err)
	}
	defer rows.Close()

	var records []models.SyncRecord
	for rows.Next() {
		var record models.SyncRecord
		var payload []byte
		err = rows.Scan(
			&record.ID,
			&record.Version,
			&record.ServerVersion,
			&record.SyncStatus,
			&record.CreatedTime,
			&record.UpdatedTime,
			&record.DeletedTime,
			&record.Deleted,
			&payload,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning unsynced records: %w", err)
		}
		record.Payload = payload
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning unsynced records: %w", err)
	}

	return records, nil
}

// MarkSynced implements [LocalStore].
func (s *SQLiteStore) MarkSynced(ctx context.Context, table string, id string, serverVersion int64) error {
	query, args, err := sq.
		Update(table).
		Set("sync_status", models.StatusSynced).
		Set("server_version", serverVersion).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building mark synced query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Err(err).Str("func", "MarkSynced").Str("table", table).Str("record_id", id).Msg("error marking record synced")
		return fmt.Errorf("error marking record synced: %w", err)
	}

	return nil
}

// MarkConflicted implements [LocalStore].
func (s *SQLiteStore) MarkConflicted(ctx context.Context, table string, id string) error {
	query, args, err := sq.
		Update(table).
		Set("sync_status", models.StatusConflicted).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building mark conflicted query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Err(err).Str("func", "MarkConflicted").Str("table", table).Str("record_id", id).Msg("error marking record conflicted")
		return fmt.Errorf("error marking record conflicted: %w", err)
	}

	return nil
}

// Cursor implements [LocalStore].
func (s *SQLiteStore) Cursor(ctx context.Context, table string) (int64, error) {
	var cursor int64
	err := s.db.QueryRowContext(ctx, `SELECT cursor FROM sync_state WHERE table_name = ?;`, table).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("error reading pull cursor: %w", err)
	}

	return cursor, nil
}

// SetCursor implements [LocalStore].
func (s *SQLiteStore) SetCursor(ctx context.Context, table string, cursor int64) error {
	const query = `INSERT INTO sync_state (table_name, cursor) VALUES (?, ?)
		ON CONFLICT (table_name) DO UPDATE SET cursor = excluded.cursor;`

	if _, err := s.db.ExecContext(ctx, query, table, cursor); err != nil {
		s.logger.Err(err).Str("func", "SetCursor").Str("table", table).Msg("error storing pull cursor")
		return fmt.Errorf("error storing pull cursor: %w", err)
	}

	return nil
}
