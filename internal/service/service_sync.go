// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Partocare

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/partocare/partosync/internal/config"
	"github.com/partocare/partosync/internal/logger"
	"github.com/partocare/partosync/internal/store"
	"github.com/partocare/partosync/internal/utils"
	"github.com/partocare/partosync/models"
	"github.com/partocare/partosync/pkg/metrics"
)

// syncService is the concrete implementation of SyncService. It owns the
// conflict policy: the repository reads and writes records, the comparison
// of ServerVersion against the claimed base Version happens here, once, for
// every table.
type syncService struct {
	repository store.SyncRepository
	registry   *store.Registry

	// pageSize bounds one pull response.
	pageSize int

	// now supplies epoch-ms timestamps. Injectable for tests.
	now func() int64

	logger *logger.Logger
}

// NewSyncService constructs a SyncService over the given repository and
// table registry.
func NewSyncService(repository store.SyncRepository, registry *store.Registry, cfg config.Sync, logger *logger.Logger) SyncService {
	return &syncService{
		repository: repository,
		registry:   registry,
		pageSize:   cfg.MaxRecordsPerPull,
		now:        utils.NowMillis,
		logger:     logger,
	}
}

// Pull returns records of table changed after request.LastSyncTimestamp,
// ascending by UpdatedTime, tombstones included. A zero cursor returns the
// whole table. The page is bounded by the configured pull page size;
// HasMore tells the device to pull again with its cursor advanced to the
// max UpdatedTime of this page.
func (s *syncService) Pull(ctx context.Context, table string, request models.PullRequest) (models.PullResponse, error) {
	log := logger.FromContext(ctx)

	spec, err := s.registry.Lookup(table)
	if err != nil {
		log.Err(err).Str("table", table).Msg("pull for unknown table")
		return models.PullResponse{}, err
	}

	records, hasMore, err := s.repository.ListChangedSince(ctx, spec.Name, request.LastSyncTimestamp, s.pageSize)
	if err != nil {
		log.Err(err).Str("table", table).Msg("pull failed")
		return models.PullResponse{}, fmt.Errorf("pull failed: %w", err)
	}

	metrics.PulledRecords.WithLabelValues(spec.Name).Add(float64(len(records)))

	return models.PullResponse{
		Records:         records,
		ServerTimestamp: s.now(),
		HasMore:         hasMore,
	}, nil
}

// Push applies a batch of device changes to table.
//
// Records are processed independently: a validation failure, a missing
// parent, or a storage error on one record lands in the Errors bucket and
// never aborts the rest. A record whose claimed base Version is behind the
// server's ServerVersion lands in Conflicts with both copies attached.
// Everything accepted commits in one transaction.
func (s *syncService) Push(ctx context.Context, table string, request models.PushRequest) (models.PushResponse, error) {
	log := logger.FromContext(ctx)

	spec, err := s.registry.Lookup(table)
	if err != nil {
		log.Err(err).Str("table", table).Msg("push for unknown table")
		return models.PushResponse{}, err
	}

	response := models.PushResponse{
		SuccessIDs: []string{},
		Conflicts:  []models.Conflict{},
		Errors:     []models.RecordError{},
	}

	if len(request.Changes) == 0 {
		return response, nil
	}

	timer := metrics.ObservePushDuration(spec.Name)
	defer timer()
	metrics.PushBatchSize.WithLabelValues(spec.Name).Observe(float64(len(request.Changes)))

	err = s.repository.InTransaction(ctx, func(tx store.SyncTx) error {
		for _, incoming := range request.Changes {
			s.pushOne(ctx, tx, spec, incoming, &response)
		}
		return nil
	})
	if err != nil {
		log.Err(err).Str("table", table).Msg("push transaction failed")
		return models.PushResponse{}, fmt.Errorf("push failed: %w", err)
	}

	metrics.PushedRecords.WithLabelValues(spec.Name, "success").Add(float64(len(response.SuccessIDs)))
	metrics.PushedRecords.WithLabelValues(spec.Name, "conflict").Add(float64(len(response.Conflicts)))
	metrics.PushedRecords.WithLabelValues(spec.Name, "error").Add(float64(len(response.Errors)))

	return response, nil
}

// pushOne runs the per-record algorithm and files the outcome into exactly
// one bucket of response. It never returns an error: per-record failures
// must not unwind the batch transaction.
func (s *syncService) pushOne(ctx context.Context, tx store.SyncTx, spec store.TableSpec, incoming models.SyncRecord, response *models.PushResponse) {
	if err := incoming.Validate(); err != nil {
		response.Errors = append(response.Errors, models.RecordError{ID: incoming.ID, Message: err.Error()})
		return
	}

	if err := s.checkParent(ctx, tx, spec, incoming); err != nil {
		response.Errors = append(response.Errors, models.RecordError{ID: incoming.ID, Message: err.Error()})
		return
	}

	now := s.now()

	existing, err := tx.Get(ctx, spec.Name, incoming.ID)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		// First time the server sees this ID: insert with ServerVersion 1.
		record := incoming
		record.ServerVersion = 1
		record.SyncStatus = models.StatusSynced
		record.UpdatedTime = now
		if record.CreatedTime == 0 {
			record.CreatedTime = now
		}
		if err = tx.Apply(ctx, spec.Name, record); err != nil {
			response.Errors = append(response.Errors, models.RecordError{ID: incoming.ID, Message: err.Error()})
			return
		}
		response.SuccessIDs = append(response.SuccessIDs, record.ID)

	case err != nil:
		response.Errors = append(response.Errors, models.RecordError{ID: incoming.ID, Message: err.Error()})

	default:
		// Known gap: equality is accepted, so two writers who both observed
		// the same ServerVersion can overwrite each other undetected. Kept
		// as-is until the protocol grows a server-echoed version the client
		// must resubmit exactly.
		if existing.ServerVersion > incoming.Version {
			response.Conflicts = append(response.Conflicts, models.Conflict{
				ID:           incoming.ID,
				LocalRecord:  incoming,
				ServerRecord: existing,
				ConflictTime: now,
				Reason:       models.ConflictReasonServerNewer,
			})
			return
		}

		record := incoming
		record.ServerVersion = existing.ServerVersion + 1
		record.SyncStatus = models.StatusSynced
		record.UpdatedTime = now
		if record.CreatedTime == 0 {
			record.CreatedTime = existing.CreatedTime
		}
		if err = tx.Apply(ctx, spec.Name, record); err != nil {
			response.Errors = append(response.Errors, models.RecordError{ID: incoming.ID, Message: err.Error()})
			return
		}
		response.SuccessIDs = append(response.SuccessIDs, record.ID)
	}
}

// checkParent validates the parent reference of a child-table record before
// anything is written. Root tables pass trivially.
func (s *syncService) checkParent(ctx context.Context, tx store.SyncTx, spec store.TableSpec, incoming models.SyncRecord) error {
	if spec.ParentID == nil {
		return nil
	}

	parentID, err := spec.ParentID(incoming.Payload)
	if err != nil {
		return err
	}
	if parentID == "" {
		return fmt.Errorf("missing %s reference", spec.ParentTable)
	}

	exists, err := tx.ParentExists(ctx, spec.ParentTable, parentID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("referenced %s %s does not exist", spec.ParentTable, parentID)
	}

	return nil
}
