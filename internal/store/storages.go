package store

import (
	"github.com/partocare/partosync/internal/logger"
)

// Storages bundles every repository behind one constructor so wiring in
// main stays a single call.
type Storages struct {
	Sync     SyncRepository
	Staff    StaffRepository
	Registry *Registry
}

// NewStorages builds all repositories over a shared database handle.
func NewStorages(db *DB, log *logger.Logger) *Storages {
	return &Storages{
		Sync:     NewSyncRepositoryPostgres(db, log),
		Staff:    NewStaffRepositoryPostgres(db, log),
		Registry: NewRegistry(),
	}
}
