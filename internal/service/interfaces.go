package service

import (
	"context"

	"github.com/partocare/partosync/models"
)

// SyncService is the pull/push protocol surface consumed by the HTTP
// handlers.
type SyncService interface {
	// Pull returns one page of records from table changed after the cursor
	// in the request, tombstones included.
	Pull(ctx context.Context, table string, request models.PullRequest) (models.PullResponse, error)

	// Push applies a batch of device changes to table. Records are processed
	// independently; the response buckets every change as a success, a
	// conflict, or a record error.
	Push(ctx context.Context, table string, request models.PushRequest) (models.PushResponse, error)
}

// AppInfoService reports build information about the running server.
type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
}

// AuthService handles staff accounts, device registration, and JWT token
// lifecycle.
type AuthService interface {
	RegisterStaff(ctx context.Context, staff models.Staff) (models.Staff, error)
	Login(ctx context.Context, staff models.Staff) (models.Staff, error)

	CreateToken(ctx context.Context, staff models.Staff) (models.Token, error)
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)

	RegisterDevice(ctx context.Context, device models.Device) (models.Device, error)

	// VerifyDevice checks that deviceID is registered to the staff account.
	// Returns [ErrDeviceNotVerified] when it is not.
	VerifyDevice(ctx context.Context, deviceID string, staffID int64) error
}
