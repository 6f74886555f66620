package queue

import (
	"context"

	"github.com/google/uuid"
)

// Store is the contract the queue needs from a storage backend. The
// backend owns durability, the clock and the atomic conditional update;
// the service itself keeps no state and can run as many instances.
type Store interface {
	// EnsureDevice creates the device record if it does not exist yet.
	// Devices are created implicitly, there is no registration step.
	EnsureDevice(ctx context.Context, deviceID string) error

	// CreateCommand appends a new command in queued state, stamped with
	// the backend clock, and returns it with its generated id.
	CreateCommand(ctx context.Context, deviceID string, payload []byte) (*Command, error)

	// ReserveNextCommand atomically picks the oldest queued command of
	// the device and transitions it to in_progress. The status check and
	// the update must be one atomic step per record, so that concurrent
	// polls never reserve the same command twice. Returns (nil, nil)
	// when nothing is queued.
	ReserveNextCommand(ctx context.Context, deviceID string) (*Command, error)

	// CompleteCommand transitions a delivered command to done and stores
	// the result. Completing an already done command overwrites result
	// and done timestamp. Returns ErrNotFound if the id does not resolve
	// and ErrNotDelivered if the command is still queued.
	CompleteCommand(ctx context.Context, deviceID string, commandID uuid.UUID, result string) error

	// UpsertDeviceState replaces the device's reported state and update
	// timestamp, leaving all other device fields untouched.
	UpsertDeviceState(ctx context.Context, deviceID string, state []byte) error

	GetDevice(ctx context.Context, deviceID string) (*Device, error)
	ListCommands(ctx context.Context, deviceID string, limit int) ([]Command, error)

	Close()
}
