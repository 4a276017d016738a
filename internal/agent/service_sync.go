// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Partocare

package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/partocare/partosync/internal/adapter"
	"github.com/partocare/partosync/internal/logger"
	"github.com/partocare/partosync/models"
)

// syncRunner implements [SyncRunner]. One cycle pulls every table, then
// pushes the local backlog in parent-before-child order, folding the
// server's per-record verdicts back into the local store.
type syncRunner struct {
	server adapter.ServerAdapter
	local  LocalStore

	// tables is the full table list in dependency order.
	tables []string

	deviceID string

	logger *logger.Logger
}

// NewSyncRunner constructs a SyncRunner for the given device.
func NewSyncRunner(server adapter.ServerAdapter, local LocalStore, tables []string, deviceID string, logger *logger.Logger) SyncRunner {
	return &syncRunner{
		server:   server,
		local:    local,
		tables:   tables,
		deviceID: deviceID,
		logger:   logger,
	}
}

// RunCycle implements [SyncRunner]. A transport failure aborts the cycle
// and surfaces to the job, which retries with backoff; local state is
// always consistent because cursors advance only after a page is applied.
func (s *syncRunner) RunCycle(ctx context.Context) error {
	for _, table := range s.tables {
		if err := s.pullTable(ctx, table); err != nil {
			return fmt.Errorf("pulling %s: %w", table, err)
		}
	}

	for _, table := range s.tables {
		if err := s.pushTable(ctx, table); err != nil {
			return fmt.Errorf("pushing %s: %w", table, err)
		}
	}

	return nil
}

// pullTable drains the server's changes for one table, advancing the stored
// cursor to the max UpdatedTime of each applied page.
func (s *syncRunner) pullTable(ctx context.Context, table string) error {
	cursor, err := s.local.Cursor(ctx, table)
	if err != nil {
		return err
	}

	for {
		response, err := s.server.Pull(ctx, table, models.PullRequest{
			DeviceID:          s.deviceID,
			LastSyncTimestamp: cursor,
		})
		if err != nil {
			return err
		}

		for _, record := range response.Records {
			if err = s.applyRemote(ctx, table, record); err != nil {
				return err
			}
			if record.UpdatedTime > cursor {
				cursor = record.UpdatedTime
			}
		}

		if err = s.local.SetCursor(ctx, table, cursor); err != nil {
			return err
		}

		if !response.HasMore {
			return nil
		}
		if len(response.Records) == 0 {
			// hasMore with an empty page should not happen; bail out rather
			// than loop forever.
			s.logger.Warn().Str("table", table).Msg("server reported more data but returned an empty page")
			return nil
		}
	}
}

// applyRemote stores a pulled record unless the local copy carries pending
// changes. Unsynced and conflicted copies are kept as they are; the next
// push settles who wins.
func (s *syncRunner) applyRemote(ctx context.Context, table string, record models.SyncRecord) error {
	existing, err := s.local.Get(ctx, table, record.ID)
	switch {
	case errors.Is(err, ErrLocalRecordNotFound):
		return s.local.ApplyRemote(ctx, table, record)
	case err != nil:
		return err
	case existing.SyncStatus == models.StatusSynced:
		return s.local.ApplyRemote(ctx, table, record)
	default:
		s.logger.Debug().
			Str("table", table).
			Str("record_id", record.ID).
			Str("local_status", string(existing.SyncStatus)).
			Msg("keeping local pending changes over pulled record")
		return nil
	}
}

// pushTable submits the table's unsynced backlog and folds the response:
// accepted records flip to Synced, stale ones to Conflicted, and errored
// ones stay Unsynced for the next cycle.
func (s *syncRunner) pushTable(ctx context.Context, table string) error {
	unsynced, err := s.local.ListUnsynced(ctx, table)
	if err != nil {
		return err
	}
	if len(unsynced) == 0 {
		return nil
	}

	byID := make(map[string]models.SyncRecord, len(unsynced))
	for _, record := range unsynced {
		byID[record.ID] = record
	}

	response, err := s.server.Push(ctx, table, models.PushRequest{
		DeviceID: s.deviceID,
		Changes:  unsynced,
	})
	if err != nil {
		return err
	}

	for _, id := range response.SuccessIDs {
		// The server assigned its own ServerVersion; the local guess is one
		// past the last known value, corrected by the next pull.
		if err = s.local.MarkSynced(ctx, table, id, byID[id].ServerVersion+1); err != nil {
			return err
		}
	}

	for _, conflict := range response.Conflicts {
		s.logger.Warn().
			Str("table", table).
			Str("record_id", conflict.ID).
			Str("reason", conflict.Reason).
			Msg("push rejected as stale; flagging for reconciliation")
		if err = s.local.MarkConflicted(ctx, table, conflict.ID); err != nil {
			return err
		}
	}

	for _, recordError := range response.Errors {
		s.logger.Error().
			Str("table", table).
			Str("record_id", recordError.ID).
			Str("message", recordError.Message).
			Msg("push rejected record; will retry next cycle")
	}

	return nil
}
