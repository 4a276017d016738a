package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/partocare/partosync/internal/logger"
	"github.com/partocare/partosync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLocalStore implements LocalStore over maps.
type fakeLocalStore struct {
	records map[string]map[string]models.SyncRecord
	cursors map[string]int64
}

func newFakeLocalStore() *fakeLocalStore {
	return &fakeLocalStore{
		records: make(map[string]map[string]models.SyncRecord),
		cursors: make(map[string]int64),
	}
}

func (f *fakeLocalStore) table(name string) map[string]models.SyncRecord {
	if f.records[name] == nil {
		f.records[name] = make(map[string]models.SyncRecord)
	}
	return f.records[name]
}

func (f *fakeLocalStore) Get(_ context.Context, table string, id string) (models.SyncRecord, error) {
	record, ok := f.table(table)[id]
	if !ok {
		return models.SyncRecord{}, ErrLocalRecordNotFound
	}
	return record, nil
}

func (f *fakeLocalStore) SaveLocalEdit(_ context.Context, table string, record models.SyncRecord) error {
	record.SyncStatus = models.StatusUnsynced
	f.table(table)[record.ID] = record
	return nil
}

func (f *fakeLocalStore) ApplyRemote(_ context.Context, table string, record models.SyncRecord) error {
	record.SyncStatus = models.StatusSynced
	f.table(table)[record.ID] = record
	return nil
}

func (f *fakeLocalStore) ListUnsynced(_ context.Context, table string) ([]models.SyncRecord, error) {
	var unsynced []models.SyncRecord
	for _, record := range f.table(table) {
		if record.SyncStatus == models.StatusUnsynced {
			unsynced = append(unsynced, record)
		}
	}
	return unsynced, nil
}

func (f *fakeLocalStore) MarkSynced(_ context.Context, table string, id string, serverVersion int64) error {
	record := f.table(table)[id]
	record.SyncStatus = models.StatusSynced
	record.ServerVersion = serverVersion
	f.table(table)[id] = record
	return nil
}

func (f *fakeLocalStore) MarkConflicted(_ context.Context, table string, id string) error {
	record := f.table(table)[id]
	record.SyncStatus = models.StatusConflicted
	f.table(table)[id] = record
	return nil
}

func (f *fakeLocalStore) Cursor(_ context.Context, table string) (int64, error) {
	return f.cursors[table], nil
}

func (f *fakeLocalStore) SetCursor(_ context.Context, table string, cursor int64) error {
	f.cursors[table] = cursor
	return nil
}

// fakeServer implements adapter.ServerAdapter with scripted pull pages and
// push verdicts.
type fakeServer struct {
	pullPages map[string][]models.PullResponse
	pullCalls map[string]int
	pushFn    func(table string, request models.PushRequest) (models.PushResponse, error)
	pushed    map[string][]models.PushRequest
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		pullPages: make(map[string][]models.PullResponse),
		pullCalls: make(map[string]int),
		pushed:    make(map[string][]models.PushRequest),
	}
}

func (f *fakeServer) Register(_ context.Context, staff models.Staff) (models.Staff, error) {
	return staff, nil
}
func (f *fakeServer) Login(_ context.Context, staff models.Staff) (models.Staff, error) {
	return staff, nil
}
func (f *fakeServer) RegisterDevice(_ context.Context, device models.Device) (models.Device, error) {
	return device, nil
}
func (f *fakeServer) SetToken(string) {}
func (f *fakeServer) Token() string   { return "" }

func (f *fakeServer) Pull(_ context.Context, table string, _ models.PullRequest) (models.PullResponse, error) {
	pages := f.pullPages[table]
	call := f.pullCalls[table]
	f.pullCalls[table]++
	if call < len(pages) {
		return pages[call], nil
	}
	return models.PullResponse{Records: []models.SyncRecord{}, HasMore: false}, nil
}

func (f *fakeServer) Push(_ context.Context, table string, request models.PushRequest) (models.PushResponse, error) {
	f.pushed[table] = append(f.pushed[table], request)
	if f.pushFn != nil {
		return f.pushFn(table, request)
	}
	return models.PushResponse{}, nil
}

func remoteRecord(id string, serverVersion, updatedTime int64) models.SyncRecord {
	return models.SyncRecord{
		ID:            id,
		Version:       serverVersion,
		ServerVersion: serverVersion,
		SyncStatus:    models.StatusSynced,
		CreatedTime:   updatedTime,
		UpdatedTime:   updatedTime,
		Payload:       json.RawMessage(`{}`),
	}
}

func newTestRunner(server *fakeServer, local *fakeLocalStore, tables ...string) SyncRunner {
	return NewSyncRunner(server, local, tables, "dev-1", logger.Nop())
}

func TestSyncRunner_PullAppliesRemoteRecords(t *testing.T) {
	server := newFakeServer()
	server.pullPages["patients"] = []models.PullResponse{{
		Records: []models.SyncRecord{remoteRecord("p1", 1, 100), remoteRecord("p2", 2, 200)},
		HasMore: false,
	}}
	local := newFakeLocalStore()

	err := newTestRunner(server, local, "patients").RunCycle(context.Background())
	require.NoError(t, err)

	assert.Len(t, local.table("patients"), 2)
	assert.Equal(t, int64(200), local.cursors["patients"], "cursor must advance to max UpdatedTime")
}

func TestSyncRunner_PullDrainsMultiplePages(t *testing.T) {
	server := newFakeServer()
	server.pullPages["patients"] = []models.PullResponse{
		{Records: []models.SyncRecord{remoteRecord("p1", 1, 100)}, HasMore: true},
		{Records: []models.SyncRecord{remoteRecord("p2", 1, 200)}, HasMore: false},
	}
	local := newFakeLocalStore()

	err := newTestRunner(server, local, "patients").RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, server.pullCalls["patients"])
	assert.Len(t, local.table("patients"), 2)
	assert.Equal(t, int64(200), local.cursors["patients"])
}

func TestSyncRunner_PullKeepsLocalPendingChanges(t *testing.T) {
	server := newFakeServer()
	server.pullPages["patients"] = []models.PullResponse{{
		Records: []models.SyncRecord{remoteRecord("p1", 3, 300)},
		HasMore: false,
	}}

	local := newFakeLocalStore()
	local.table("patients")["p1"] = models.SyncRecord{
		ID:         "p1",
		Version:    2,
		SyncStatus: models.StatusUnsynced,
		Payload:    json.RawMessage(`{"name":"local edit"}`),
	}

	err := newTestRunner(server, local, "patients").RunCycle(context.Background())
	require.NoError(t, err)

	kept := local.table("patients")["p1"]
	assert.Equal(t, models.StatusUnsynced, kept.SyncStatus)
	assert.JSONEq(t, `{"name":"local edit"}`, string(kept.Payload))
}

func TestSyncRunner_PushFoldsVerdicts(t *testing.T) {
	server := newFakeServer()
	server.pushFn = func(table string, request models.PushRequest) (models.PushResponse, error) {
		return models.PushResponse{
			SuccessIDs: []string{"ok"},
			Conflicts:  []models.Conflict{{ID: "stale", Reason: models.ConflictReasonServerNewer}},
			Errors:     []models.RecordError{{ID: "broken", Message: "missing parent"}},
		}, nil
	}

	local := newFakeLocalStore()
	for _, id := range []string{"ok", "stale", "broken"} {
		local.table("patients")[id] = models.SyncRecord{
			ID:         id,
			Version:    2,
			SyncStatus: models.StatusUnsynced,
			Payload:    json.RawMessage(`{}`),
		}
	}

	err := newTestRunner(server, local, "patients").RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.StatusSynced, local.table("patients")["ok"].SyncStatus)
	assert.Equal(t, models.StatusConflicted, local.table("patients")["stale"].SyncStatus)
	assert.Equal(t, models.StatusUnsynced, local.table("patients")["broken"].SyncStatus,
		"errored records stay unsynced for the next cycle")
}

func TestSyncRunner_PushSkipsEmptyBacklog(t *testing.T) {
	server := newFakeServer()
	local := newFakeLocalStore()

	err := newTestRunner(server, local, "patients").RunCycle(context.Background())
	require.NoError(t, err)

	assert.Empty(t, server.pushed["patients"], "no push call for an empty backlog")
}

func TestSyncRunner_TablesPushedInGivenOrder(t *testing.T) {
	var order []string
	server := newFakeServer()
	server.pushFn = func(table string, request models.PushRequest) (models.PushResponse, error) {
		order = append(order, table)
		ids := make([]string, 0, len(request.Changes))
		for _, change := range request.Changes {
			ids = append(ids, change.ID)
		}
		return models.PushResponse{SuccessIDs: ids}, nil
	}

	local := newFakeLocalStore()
	local.table("patients")["p1"] = models.SyncRecord{ID: "p1", Version: 1, SyncStatus: models.StatusUnsynced, Payload: json.RawMessage(`{}`)}
	local.table("partographs")["pg1"] = models.SyncRecord{ID: "pg1", Version: 1, SyncStatus: models.StatusUnsynced, Payload: json.RawMessage(`{}`)}

	err := newTestRunner(server, local, "patients", "partographs").RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"patients", "partographs"}, order)
}

func TestSyncRunner_TransportFailureAbortsCycle(t *testing.T) {
	server := newFakeServer()
	boom := errors.New("connection refused")
	server.pushFn = func(table string, request models.PushRequest) (models.PushResponse, error) {
		return models.PushResponse{}, boom
	}

	local := newFakeLocalStore()
	local.table("patients")["p1"] = models.SyncRecord{ID: "p1", Version: 1, SyncStatus: models.StatusUnsynced, Payload: json.RawMessage(`{}`)}

	err := newTestRunner(server, local, "patients").RunCycle(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, models.StatusUnsynced, local.table("patients")["p1"].SyncStatus)
}
