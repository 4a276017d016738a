package store

import (
	"context"

	"github.com/partocare/partosync/models"
)

// SyncTx is the view of an open push transaction handed to the service
// layer. All reads and writes made through it happen inside the same
// database transaction, so the version comparison and the subsequent write
// are atomic with respect to concurrent pushes.
type SyncTx interface {
	// Get loads the current server copy of a record by ID, locking the row
	// until the transaction ends. Returns [ErrRecordNotFound] when the ID is
	// absent. Tombstones are returned, not filtered.
	Get(ctx context.Context, table string, id string) (models.SyncRecord, error)

	// ParentExists reports whether a live (non-tombstoned) record with the
	// given ID exists in table.
	ParentExists(ctx context.Context, table string, id string) (bool, error)

	// Apply upserts the full record state. A failure is isolated to this
	// record: the transaction stays usable and previously applied records
	// remain staged for commit. Foreign-key failures come back wrapped as
	// [ErrParentNotFound].
	Apply(ctx context.Context, table string, record models.SyncRecord) error
}

// SyncRepository is the persistence surface of the versioned entity store.
type SyncRepository interface {
	// ListChangedSince returns up to limit records from table whose
	// UpdatedTime is strictly greater than cursor, tombstones included,
	// ordered by (UpdatedTime, ID). When several records share the
	// UpdatedTime at the page boundary the whole group is returned even if
	// that exceeds limit. The second result reports whether more changes
	// exist past the returned page.
	ListChangedSince(ctx context.Context, table string, cursor int64, limit int) ([]models.SyncRecord, bool, error)

	// InTransaction runs fn inside a single database transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTransaction(ctx context.Context, fn func(tx SyncTx) error) error
}

// StaffRepository persists staff accounts and their registered devices.
type StaffRepository interface {
	CreateStaff(ctx context.Context, staff models.Staff) (models.Staff, error)
	FindStaffByLogin(ctx context.Context, login string) (models.Staff, error)

	RegisterDevice(ctx context.Context, device models.Device) (models.Device, error)
	FindDevice(ctx context.Context, deviceID string, staffID int64) (models.Device, error)
}
