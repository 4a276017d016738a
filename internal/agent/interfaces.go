package agent

import (
	"context"
	"time"

	"github.com/partocare/partosync/models"
)

// LocalStore is the device-side record cache the sync cycle works against.
// One store holds every syncable table plus the per-table pull cursor.
type LocalStore interface {
	// Get loads the local copy of a record. Returns [ErrLocalRecordNotFound]
	// when the ID is absent.
	Get(ctx context.Context, table string, id string) (models.SyncRecord, error)

	// SaveLocalEdit stores a record changed on this device, marked Unsynced,
	// so the next push picks it up.
	SaveLocalEdit(ctx context.Context, table string, record models.SyncRecord) error

	// ApplyRemote overwrites the local copy with the server's copy. The
	// caller decides whether local state may be overwritten.
	ApplyRemote(ctx context.Context, table string, record models.SyncRecord) error

	// ListUnsynced returns every record of table awaiting push.
	ListUnsynced(ctx context.Context, table string) ([]models.SyncRecord, error)

	// MarkSynced records a push acceptance: the server-assigned version is
	// stored and the record flips to Synced.
	MarkSynced(ctx context.Context, table string, id string, serverVersion int64) error

	// MarkConflicted flags a record whose push was rejected as stale.
	MarkConflicted(ctx context.Context, table string, id string) error

	// Cursor returns the last stored pull cursor for table, zero when the
	// table has never been pulled.
	Cursor(ctx context.Context, table string) (int64, error)

	// SetCursor stores the pull cursor for table.
	SetCursor(ctx context.Context, table string, cursor int64) error
}

// SyncRunner runs one full sync cycle against the server.
type SyncRunner interface {
	RunCycle(ctx context.Context) error
}

// SyncJob schedules sync cycles in the background.
type SyncJob interface {
	Start(ctx context.Context, interval time.Duration)
	Stop()
}
