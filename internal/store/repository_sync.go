// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Partocare

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/partocare/partosync/internal/logger"
	"github.com/partocare/partosync/models"
)

// SyncRepositoryPostgres implements [SyncRepository] on PostgreSQL. Every
// syncable table carries the same column set, so one repository serves all
// of them; the table name is taken from the registry whitelist, never from
// client input directly.
type SyncRepositoryPostgres struct {
	db     *DB
	logger *logger.Logger
}

// NewSyncRepositoryPostgres constructs the repository.
func NewSyncRepositoryPostgres(db *DB, log *logger.Logger) *SyncRepositoryPostgres {
	return &SyncRepositoryPostgres{db: db, logger: log}
}

// ListChangedSince implements [SyncRepository].
//
// It over-fetches limit+1 rows to detect a further page. If the overflow row
// shares its updated_time with the last row of the page, the page is
// extended with every remaining row of that timestamp group: a cursor set to
// that timestamp must not skip part of the group on the next call. After an
// extension, hasMore is recomputed with an EXISTS probe past the boundary.
func (r *SyncRepositoryPostgres) ListChangedSince(ctx context.Context, table string, cursor int64, limit int) ([]models.SyncRecord, bool, error) {
	query, args, err := buildChangedSinceQuery(table, cursor, uint64(limit)+1)
	if err != nil {
		r.logger.Err(err).Str("func", "ListChangedSince").Str("table", table).Msg("error building sql query")
		return nil, false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	records, err := r.queryRecords(ctx, query, args)
	if err != nil {
		r.logger.Err(err).Str("func", "ListChangedSince").Str("table", table).Msg("error selecting changed records")
		return nil, false, err
	}

	if len(records) <= limit {
		return records, false, nil
	}

	page := records[:limit]
	overflow := records[limit]
	boundary := page[len(page)-1].UpdatedTime

	if overflow.UpdatedTime > boundary {
		return page, true, nil
	}

	// The overflow row belongs to the boundary timestamp group. Pull in the
	// rest of the group and re-check whether anything lies beyond it.
	extQuery, extArgs, err := buildBoundaryQuery(table, boundary, page[len(page)-1].ID)
	if err != nil {
		r.logger.Err(err).Str("func", "ListChangedSince").Str("table", table).Msg("error building boundary query")
		return nil, false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	extension, err := r.queryRecords(ctx, extQuery, extArgs)
	if err != nil {
		r.logger.Err(err).Str("func", "ListChangedSince").Str("table", table).Msg("error extending boundary group")
		return nil, false, err
	}
	page = append(page, extension...)

	hasMore, err := r.hasChangesAfter(ctx, table, boundary)
	if err != nil {
		r.logger.Err(err).Str("func", "ListChangedSince").Str("table", table).Msg("error probing for later changes")
		return nil, false, err
	}

	return page, hasMore, nil
}

// InTransaction implements [SyncRepository].
func (r *SyncRepositoryPostgres) InTransaction(ctx context.Context, fn func(tx SyncTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Err(err).Str("func", "InTransaction").Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err = fn(&syncTx{tx: tx, logger: r.logger}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		r.logger.Err(err).Str("func", "InTransaction").Msg("failed to commit transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

func (r *SyncRepositoryPostgres) queryRecords(ctx context.Context, query string, args []any) ([]models.SyncRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var records []models.SyncRecord
	for rows.Next() {
		var record models.SyncRecord
		if err = scanSyncRecord(rows, &record); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return records, nil
}

func (r *SyncRepositoryPostgres) hasChangesAfter(ctx context.Context, table string, boundary int64) (bool, error) {
	query, args, err := buildHasLaterQuery(table, boundary)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var exists bool
	if err = r.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return exists, nil
}

// syncTx implements [SyncTx] over an open *sql.Tx.
type syncTx struct {
	tx        *sql.Tx
	logger    *logger.Logger
	savepoint int
}

// Get implements [SyncTx]. The row stays locked until commit or rollback.
func (t *syncTx) Get(ctx context.Context, table string, id string) (models.SyncRecord, error) {
	var record models.SyncRecord

	row := t.tx.QueryRowContext(ctx, getRecordForUpdate(table), id)
	err := scanSyncRecord(row, &record)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncRecord{}, ErrRecordNotFound
	}
	if err != nil {
		t.logger.Err(err).Str("func", "Get").Str("table", table).Msg("error scanning sync record")
		return models.SyncRecord{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return record, nil
}

// ParentExists implements [SyncTx].
func (t *syncTx) ParentExists(ctx context.Context, table string, id string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, parentExistsQuery(table), id).Scan(&exists)
	if err != nil {
		t.logger.Err(err).Str("func", "ParentExists").Str("table", table).Msg("error checking parent record")
		return false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return exists, nil
}

// Apply implements [SyncTx]. Each upsert runs under its own savepoint so a
// failing record rolls back alone while every other staged record survives
// to the final commit.
func (t *syncTx) Apply(ctx context.Context, table string, record models.SyncRecord) error {
	t.savepoint++
	name := fmt.Sprintf("sp_%d", t.savepoint)

	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		t.logger.Err(err).Str("func", "Apply").Str("table", table).Msg("error creating savepoint")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	_, err := t.tx.ExecContext(ctx, upsertRecordQuery(table),
		record.ID,
		record.Version,
		record.ServerVersion,
		record.SyncStatus,
		record.CreatedTime,
		record.UpdatedTime,
		record.DeletedTime,
		record.Deleted,
		[]byte(record.Payload),
	)
	if err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			t.logger.Err(rbErr).Str("func", "Apply").Str("table", table).Msg("error rolling back to savepoint")
			return fmt.Errorf("%w: %w", ErrExecutingQuery, rbErr)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", ErrParentNotFound, record.ID)
		}
		t.logger.Err(err).Str("func", "Apply").Str("table", table).Str("record_id", record.ID).Msg("error upserting sync record")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if _, err = t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		t.logger.Err(err).Str("func", "Apply").Str("table", table).Msg("error releasing savepoint")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSyncRecord(s scanner, record *models.SyncRecord) error {
	var payload []byte
	err := s.Scan(
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
		return err
	}
	record.Payload = payload

	return nil
}
