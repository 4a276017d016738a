// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Partocare

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/partocare/partosync/internal/logger"
	"github.com/partocare/partosync/internal/store"
	"github.com/partocare/partosync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fake repository
// ─────────────────────────────────────────────────────────────────────────────

// fakeSyncStore implements store.SyncRepository and store.SyncTx over a map.
// It mirrors the real repository's contract: ListChangedSince orders by
// (UpdatedTime, ID), never splits an equal-timestamp group, and Apply
// failures are isolated per record.
type fakeSyncStore struct {
	tables    map[string]map[string]models.SyncRecord
	applyErrs map[string]error
}

func newFakeSyncStore() *fakeSyncStore {
	return &fakeSyncStore{
		tables:    make(map[string]map[string]models.SyncRecord),
		applyErrs: make(map[string]error),
	}
}

func (f *fakeSyncStore) table(name string) map[string]models.SyncRecord {
	if f.tables[name] == nil {
		f.tables[name] = make(map[string]models.SyncRecord)
	}
	return f.tables[name]
}

func (f *fakeSyncStore) ListChangedSince(_ context.Context, table string, cursor int64, limit int) ([]models.SyncRecord, bool, error) {
	var changed []models.SyncRecord
	for _, record := range f.table(table) {
		if record.UpdatedTime > cursor {
			changed = append(changed, record)
		}
	}
	sort.Slice(changed, func(i, j int) bool {
		if changed[i].UpdatedTime != changed[j].UpdatedTime {
			return changed[i].UpdatedTime < changed[j].UpdatedTime
		}
		return changed[i].ID < changed[j].ID
	})

	if len(changed) <= limit {
		return changed, false, nil
	}
	cut := limit
	boundary := changed[limit-1].UpdatedTime
	for cut < len(changed) && changed[cut].UpdatedTime == boundary {
		cut++
	}
	return changed[:cut], cut < len(changed), nil
}

func (f *fakeSyncStore) InTransaction(_ context.Context, fn func(tx store.SyncTx) error) error {
	return fn(f)
}

func (f *fakeSyncStore) Get(_ context.Context, table string, id string) (models.SyncRecord, error) {
	record, ok := f.table(table)[id]
	if !ok {
		return models.SyncRecord{}, store.ErrRecordNotFound
	}
	return record, nil
}

func (f *fakeSyncStore) ParentExists(_ context.Context, table string, id string) (bool, error) {
	record, ok := f.table(table)[id]
	return ok && !record.Deleted, nil
}

func (f *fakeSyncStore) Apply(_ context.Context, table string, record models.SyncRecord) error {
	if err := f.applyErrs[record.ID]; err != nil {
		return err
	}
	f.table(table)[record.ID] = record
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func newTestSyncService(repo *fakeSyncStore, now int64) *syncService {
	return &syncService{
		repository: repo,
		registry:   store.NewRegistry(),
		pageSize:   100,
		now:        func() int64 { return now },
		logger:     logger.Nop(),
	}
}

// rec is a shorthand constructor for an inbound SyncRecord used only in
// tests.
func rec(id string, version int64, payload string) models.SyncRecord {
	return models.SyncRecord{
		ID:         id,
		Version:    version,
		SyncStatus: models.StatusUnsynced,
		Payload:    json.RawMessage(payload),
	}
}

func pushOneRecord(t *testing.T, svc *syncService, table string, record models.SyncRecord) models.PushResponse {
	t.Helper()
	response, err := svc.Push(context.Background(), table, models.PushRequest{
		DeviceID: "dev-1",
		Changes:  []models.SyncRecord{record},
	})
	require.NoError(t, err)
	return response
}

var (
	patientID = uuid.NewString()
	partoID   = uuid.NewString()
)

func seedPatient(f *fakeSyncStore, updatedTime int64) {
	f.table(models.TablePatients)[patientID] = models.SyncRecord{
		ID:            patientID,
		Version:       1,
		ServerVersion: 1,
		SyncStatus:    models.StatusSynced,
		CreatedTime:   updatedTime,
		UpdatedTime:   updatedTime,
		Payload:       json.RawMessage(`{"name":"A"}`),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Push: insert, overwrite, conflict
// ─────────────────────────────────────────────────────────────────────────────

func TestSyncService_Push_InsertAssignsServerVersionOne(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 1000)
	id := uuid.NewString()

	response := pushOneRecord(t, svc, models.TablePatients, rec(id, 1, `{"name":"A"}`))

	require.Equal(t, []string{id}, response.SuccessIDs)
	assert.Empty(t, response.Conflicts)
	assert.Empty(t, response.Errors)

	stored := f.table(models.TablePatients)[id]
	assert.Equal(t, int64(1), stored.ServerVersion)
	assert.Equal(t, models.StatusSynced, stored.SyncStatus)
	assert.Equal(t, int64(1000), stored.UpdatedTime)
	assert.Equal(t, int64(1000), stored.CreatedTime, "zero CreatedTime must be stamped on insert")
}

// TestSyncService_Push_ServerVersionMonotonic: after N accepted pushes the
// stored ServerVersion is exactly N.
func TestSyncService_Push_ServerVersionMonotonic(t *testing.T) {
	f := newFakeSyncStore()
	id := uuid.NewString()

	for n := int64(1); n <= 5; n++ {
		svc := newTestSyncService(f, 1000+n)
		response := pushOneRecord(t, svc, models.TablePatients, rec(id, n, `{"name":"A"}`))
		require.Len(t, response.SuccessIDs, 1, "push %d must be accepted", n)
		assert.Equal(t, n, f.table(models.TablePatients)[id].ServerVersion)
	}
}

func TestSyncService_Push_StaleVersionConflicts(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 2000)
	id := uuid.NewString()

	f.table(models.TablePatients)[id] = models.SyncRecord{
		ID:            id,
		Version:       3,
		ServerVersion: 3,
		SyncStatus:    models.StatusSynced,
		CreatedTime:   100,
		UpdatedTime:   1500,
		Payload:       json.RawMessage(`{"name":"server copy"}`),
	}

	response := pushOneRecord(t, svc, models.TablePatients, rec(id, 2, `{"name":"stale copy"}`))

	assert.Empty(t, response.SuccessIDs)
	assert.Empty(t, response.Errors)
	require.Len(t, response.Conflicts, 1)

	conflict := response.Conflicts[0]
	assert.Equal(t, id, conflict.ID)
	assert.Equal(t, models.ConflictReasonServerNewer, conflict.Reason)
	assert.Equal(t, int64(2000), conflict.ConflictTime)
	assert.Equal(t, int64(3), conflict.ServerRecord.ServerVersion)
	assert.Equal(t, int64(2), conflict.LocalRecord.Version)

	// The server copy must remain untouched.
	assert.JSONEq(t, `{"name":"server copy"}`, string(f.table(models.TablePatients)[id].Payload))
	assert.Equal(t, int64(1500), f.table(models.TablePatients)[id].UpdatedTime)
}

// TestSyncService_Push_SameVersionCollisionAccepted pins a documented
// protocol gap: two writers who both observed ServerVersion v and both
// claim Version v are NOT detected as conflicting. The second write is
// accepted and silently overwrites the first. Changing this requires a
// protocol change (the client must echo the exact server-assigned version),
// so the current behavior is pinned rather than fixed.
func TestSyncService_Push_SameVersionCollisionAccepted(t *testing.T) {
	f := newFakeSyncStore()
	id := uuid.NewString()

	// Device A's accepted edit brought ServerVersion to 2.
	f.table(models.TablePatients)[id] = models.SyncRecord{
		ID:            id,
		Version:       2,
		ServerVersion: 2,
		SyncStatus:    models.StatusSynced,
		CreatedTime:   100,
		UpdatedTime:   1500,
		Payload:       json.RawMessage(`{"name":"device A edit"}`),
	}

	// Device B pushes its own edit, also claiming Version 2.
	svc := newTestSyncService(f, 2000)
	response := pushOneRecord(t, svc, models.TablePatients, rec(id, 2, `{"name":"device B edit"}`))

	require.Len(t, response.SuccessIDs, 1, "equal versions are accepted, not conflicted")
	assert.Empty(t, response.Conflicts)
	assert.JSONEq(t, `{"name":"device B edit"}`, string(f.table(models.TablePatients)[id].Payload))
	assert.Equal(t, int64(3), f.table(models.TablePatients)[id].ServerVersion)
}

// TestSyncService_Push_ReplayDoubleIncrements pins the missing idempotency
// guard: replaying an already-accepted batch (e.g. after a timeout on the
// first response) increments ServerVersion a second time. A client-supplied
// idempotency token per batch would close this.
func TestSyncService_Push_ReplayDoubleIncrements(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 1000)
	id := uuid.NewString()
	change := rec(id, 1, `{"name":"A"}`)

	first := pushOneRecord(t, svc, models.TablePatients, change)
	require.Len(t, first.SuccessIDs, 1)
	require.Equal(t, int64(1), f.table(models.TablePatients)[id].ServerVersion)

	replay := pushOneRecord(t, svc, models.TablePatients, change)
	require.Len(t, replay.SuccessIDs, 1, "replay is accepted, not deduplicated")
	assert.Equal(t, int64(2), f.table(models.TablePatients)[id].ServerVersion)
}

// ─────────────────────────────────────────────────────────────────────────────
// Push: validation and batch isolation
// ─────────────────────────────────────────────────────────────────────────────

func TestSyncService_Push_ValidationErrors(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 1000)

	tests := []struct {
		name    string
		record  models.SyncRecord
		wantErr error
	}{
		{"EmptyID", rec("", 1, `{}`), models.ErrEmptyRecordID},
		{"NonUUID", rec("not-a-uuid", 1, `{}`), models.ErrInvalidRecordID},
		{"ZeroVersion", rec(uuid.NewString(), 0, `{}`), models.ErrInvalidVersion},
		{"EmptyPayload", rec(uuid.NewString(), 1, ``), models.ErrEmptyPayload},
		{"MalformedPayload", rec(uuid.NewString(), 1, `{broken`), models.ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := pushOneRecord(t, svc, models.TablePatients, tt.record)
			assert.Empty(t, response.SuccessIDs)
			require.Len(t, response.Errors, 1)
			assert.Equal(t, tt.record.ID, response.Errors[0].ID)
			assert.Contains(t, response.Errors[0].Message, tt.wantErr.Error())
		})
	}
}

func TestSyncService_Push_InconsistentTombstoneRejected(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 1000)

	record := rec(uuid.NewString(), 1, `{}`)
	record.Deleted = true // DeletedTime left at zero

	response := pushOneRecord(t, svc, models.TablePatients, record)
	require.Len(t, response.Errors, 1)
	assert.Contains(t, response.Errors[0].Message, models.ErrInconsistentDeletion.Error())
}

func TestSyncService_Push_MissingParentReference(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 1000)

	response := pushOneRecord(t, svc, models.TablePartographs, rec(uuid.NewString(), 1, `{"started_time":1}`))

	require.Len(t, response.Errors, 1)
	assert.Contains(t, response.Errors[0].Message, "missing patients reference")
}

func TestSyncService_Push_UnknownParentReference(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 1000)

	payload := fmt.Sprintf(`{"patient_id":%q}`, uuid.NewString())
	response := pushOneRecord(t, svc, models.TablePartographs, rec(uuid.NewString(), 1, payload))

	require.Len(t, response.Errors, 1)
	assert.Contains(t, response.Errors[0].Message, "does not exist")
}

func TestSyncService_Push_TombstonedParentRejected(t *testing.T) {
	f := newFakeSyncStore()
	seedPatient(f, 100)
	tombstone := f.table(models.TablePatients)[patientID]
	tombstone.Deleted = true
	tombstone.DeletedTime = 200
	f.table(models.TablePatients)[patientID] = tombstone

	svc := newTestSyncService(f, 1000)
	payload := fmt.Sprintf(`{"patient_id":%q}`, patientID)
	response := pushOneRecord(t, svc, models.TablePartographs, rec(uuid.NewString(), 1, payload))

	require.Len(t, response.Errors, 1)
	assert.Contains(t, response.Errors[0].Message, "does not exist")
}

// TestSyncService_Push_BatchIsolation: one bad record out of three must not
// drag the other two down with it.
func TestSyncService_Push_BatchIsolation(t *testing.T) {
	f := newFakeSyncStore()
	seedPatient(f, 100)
	svc := newTestSyncService(f, 1000)

	goodA := rec(uuid.NewString(), 1, fmt.Sprintf(`{"patient_id":%q}`, patientID))
	orphan := rec(uuid.NewString(), 1, fmt.Sprintf(`{"patient_id":%q}`, uuid.NewString()))
	goodB := rec(uuid.NewString(), 1, fmt.Sprintf(`{"patient_id":%q}`, patientID))

	response, err := svc.Push(context.Background(), models.TablePartographs, models.PushRequest{
		DeviceID: "dev-1",
		Changes:  []models.SyncRecord{goodA, orphan, goodB},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{goodA.ID, goodB.ID}, response.SuccessIDs)
	require.Len(t, response.Errors, 1)
	assert.Equal(t, orphan.ID, response.Errors[0].ID)
	assert.Empty(t, response.Conflicts)
}

func TestSyncService_Push_StorageFailureIsolated(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 1000)

	good := rec(uuid.NewString(), 1, `{}`)
	doomed := rec(uuid.NewString(), 1, `{}`)
	f.applyErrs[doomed.ID] = errors.New("disk full")

	response, err := svc.Push(context.Background(), models.TablePatients, models.PushRequest{
		DeviceID: "dev-1",
		Changes:  []models.SyncRecord{doomed, good},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{good.ID}, response.SuccessIDs)
	require.Len(t, response.Errors, 1)
	assert.Equal(t, doomed.ID, response.Errors[0].ID)
}

func TestSyncService_Push_UnknownTable(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 1000)

	_, err := svc.Push(context.Background(), "staff", models.PushRequest{DeviceID: "dev-1"})
	assert.ErrorIs(t, err, store.ErrUnknownSyncTarget)
}

func TestSyncService_Push_EmptyBatch(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 1000)

	response, err := svc.Push(context.Background(), models.TablePatients, models.PushRequest{DeviceID: "dev-1"})
	require.NoError(t, err)
	assert.Empty(t, response.SuccessIDs)
	assert.Empty(t, response.Conflicts)
	assert.Empty(t, response.Errors)
}

// Soft delete travels through push as an ordinary update: overwrite plus
// version bump, no special verb.
func TestSyncService_Push_TombstonePropagates(t *testing.T) {
	f := newFakeSyncStore()
	id := uuid.NewString()

	svc := newTestSyncService(f, 1000)
	pushOneRecord(t, svc, models.TablePatients, rec(id, 1, `{"name":"A"}`))

	local := f.table(models.TablePatients)[id]
	local.MarkDeleted(1500)

	svc = newTestSyncService(f, 2000)
	response := pushOneRecord(t, svc, models.TablePatients, local)

	require.Len(t, response.SuccessIDs, 1)
	stored := f.table(models.TablePatients)[id]
	assert.True(t, stored.Deleted)
	assert.Equal(t, int64(1500), stored.DeletedTime)
	assert.Equal(t, int64(2), stored.ServerVersion)
	assert.Equal(t, models.StatusSynced, stored.SyncStatus)
}

// ─────────────────────────────────────────────────────────────────────────────
// Pull
// ─────────────────────────────────────────────────────────────────────────────

func TestSyncService_Pull_ZeroCursorReturnsEverything(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 5000)

	alive := uuid.NewString()
	gone := uuid.NewString()
	f.table(models.TablePatients)[alive] = models.SyncRecord{ID: alive, ServerVersion: 1, UpdatedTime: 100, Payload: json.RawMessage(`{}`)}
	f.table(models.TablePatients)[gone] = models.SyncRecord{ID: gone, ServerVersion: 2, UpdatedTime: 200, Deleted: true, DeletedTime: 200, Payload: json.RawMessage(`{}`)}

	response, err := svc.Pull(context.Background(), models.TablePatients, models.PullRequest{DeviceID: "dev-1"})
	require.NoError(t, err)

	assert.Len(t, response.Records, 2, "tombstones must propagate through pull")
	assert.False(t, response.HasMore)
	assert.Equal(t, int64(5000), response.ServerTimestamp)
}

func TestSyncService_Pull_CursorFiltersOlderRecords(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 5000)

	old := uuid.NewString()
	fresh := uuid.NewString()
	f.table(models.TablePatients)[old] = models.SyncRecord{ID: old, UpdatedTime: 100, Payload: json.RawMessage(`{}`)}
	f.table(models.TablePatients)[fresh] = models.SyncRecord{ID: fresh, UpdatedTime: 300, Payload: json.RawMessage(`{}`)}

	response, err := svc.Pull(context.Background(), models.TablePatients, models.PullRequest{DeviceID: "dev-1", LastSyncTimestamp: 100})
	require.NoError(t, err)

	require.Len(t, response.Records, 1)
	assert.Equal(t, fresh, response.Records[0].ID)
}

// TestSyncService_Pull_CursorAdvanceTerminates: a device looping on HasMore
// with its cursor set to the max UpdatedTime of each page must drain the
// table and stop.
func TestSyncService_Pull_CursorAdvanceTerminates(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 5000)
	svc.pageSize = 3

	const total = 10
	for i := 0; i < total; i++ {
		id := uuid.NewString()
		f.table(models.TablePatients)[id] = models.SyncRecord{ID: id, UpdatedTime: int64(100 + i), Payload: json.RawMessage(`{}`)}
	}

	var cursor int64
	var seen int
	for pulls := 0; ; pulls++ {
		require.Less(t, pulls, 20, "pull loop must terminate")

		response, err := svc.Pull(context.Background(), models.TablePatients, models.PullRequest{DeviceID: "dev-1", LastSyncTimestamp: cursor})
		require.NoError(t, err)

		seen += len(response.Records)
		for _, record := range response.Records {
			if record.UpdatedTime > cursor {
				cursor = record.UpdatedTime
			}
		}
		if !response.HasMore {
			assert.Empty(t, svcPullAgain(t, svc, cursor), "drained table must yield an empty page")
			break
		}
	}
	assert.Equal(t, total, seen)
}

func svcPullAgain(t *testing.T, svc *syncService, cursor int64) []models.SyncRecord {
	t.Helper()
	response, err := svc.Pull(context.Background(), models.TablePatients, models.PullRequest{DeviceID: "dev-1", LastSyncTimestamp: cursor})
	require.NoError(t, err)
	return response.Records
}

func TestSyncService_Pull_UnknownTable(t *testing.T) {
	f := newFakeSyncStore()
	svc := newTestSyncService(f, 5000)

	_, err := svc.Pull(context.Background(), "no_such_table", models.PullRequest{DeviceID: "dev-1"})
	assert.ErrorIs(t, err, store.ErrUnknownSyncTarget)
}

// ─────────────────────────────────────────────────────────────────────────────
// Two-device scenario
// ─────────────────────────────────────────────────────────────────────────────

// TestSyncService_TwoDeviceScenario walks the full optimistic-concurrency
// story: device A creates and edits a patient, device B pushes a stale edit
// claiming the same version device A already consumed, and the collision is
// accepted (the documented same-version gap, asserted here end to end).
func TestSyncService_TwoDeviceScenario(t *testing.T) {
	f := newFakeSyncStore()
	id := uuid.NewString()

	// Device A pulls an empty table.
	svc := newTestSyncService(f, 1000)
	pull, err := svc.Pull(context.Background(), models.TablePatients, models.PullRequest{DeviceID: "dev-a"})
	require.NoError(t, err)
	require.Empty(t, pull.Records)

	// Device A creates P1 and pushes it.
	response := pushOneRecord(t, svc, models.TablePatients, rec(id, 1, `{"name":"P1"}`))
	require.Equal(t, []string{id}, response.SuccessIDs)
	require.Equal(t, int64(1), f.table(models.TablePatients)[id].ServerVersion)

	// Device B pulls and receives P1.
	pull, err = svc.Pull(context.Background(), models.TablePatients, models.PullRequest{DeviceID: "dev-b"})
	require.NoError(t, err)
	require.Len(t, pull.Records, 1)

	// Device A edits and pushes again; ServerVersion advances to 2.
	svc = newTestSyncService(f, 2000)
	response = pushOneRecord(t, svc, models.TablePatients, rec(id, 2, `{"name":"P1 by A"}`))
	require.Len(t, response.SuccessIDs, 1)
	require.Equal(t, int64(2), f.table(models.TablePatients)[id].ServerVersion)

	// Device B pushes its own edit claiming Version 2. ServerVersion(2) is
	// not greater than the claimed version, so the push is accepted and
	// device A's edit is silently overwritten.
	svc = newTestSyncService(f, 3000)
	response = pushOneRecord(t, svc, models.TablePatients, rec(id, 2, `{"name":"P1 by B"}`))
	require.Len(t, response.SuccessIDs, 1)
	assert.JSONEq(t, `{"name":"P1 by B"}`, string(f.table(models.TablePatients)[id].Payload))
	assert.Equal(t, int64(3), f.table(models.TablePatients)[id].ServerVersion)

	// Had device B claimed Version 1 (a genuinely stale base), the push
	// would have conflicted instead.
	response = pushOneRecord(t, svc, models.TablePatients, rec(id, 1, `{"name":"stale"}`))
	require.Len(t, response.Conflicts, 1)
	assert.Empty(t, response.SuccessIDs)
}
