package adapter

import (
	"context"

	"github.com/partocare/partosync/models"
)

// ServerAdapter is the agent's view of the sync server. Implementations
// handle transport, authentication headers, and HTTP error mapping so the
// agent's sync logic only sees protocol types.
type ServerAdapter interface {
	Register(ctx context.Context, staff models.Staff) (models.Staff, error)
	Login(ctx context.Context, staff models.Staff) (models.Staff, error)
	RegisterDevice(ctx context.Context, device models.Device) (models.Device, error)

	Pull(ctx context.Context, table string, request models.PullRequest) (models.PullResponse, error)
	Push(ctx context.Context, table string, request models.PushRequest) (models.PushResponse, error)

	SetToken(token string)
	Token() string
}
