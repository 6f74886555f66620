package storage

import (
	"context"
	"sync"
	"time"

	"github.com/KlarLuft/PurifierCloud/internal/queue"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory queue.Store for tests and for running
// without a database. The mutex stands in for the backend's atomic
// conditional update, so the reservation contract holds here too.
type MemoryStore struct {
	mu       sync.Mutex
	devices  map[string]*queue.Device
	commands map[string][]*queue.Command // per device, arrival order
	seq      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices:  make(map[string]*queue.Device),
		commands: make(map[string][]*queue.Command),
	}
}

func (m *MemoryStore) EnsureDevice(ctx context.Context, deviceID string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureDeviceLocked(deviceID)
	return nil
}

func (m *MemoryStore) ensureDeviceLocked(deviceID string) *queue.Device {
	device, ok := m.devices[deviceID]
	if !ok {
		device = &queue.Device{DeviceID: deviceID}
		m.devices[deviceID] = device
	}
	return device
}

func (m *MemoryStore) CreateCommand(ctx context.Context, deviceID string, payload []byte) (*queue.Command, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureDeviceLocked(deviceID)
	m.seq++

	cmd := &queue.Command{
		ID:        uuid.New(),
		DeviceID:  deviceID,
		Payload:   append([]byte(nil), payload...),
		Status:    queue.StatusQueued,
		CreatedAt: time.Now().UTC(),
		Seq:       m.seq,
	}
	m.commands[deviceID] = append(m.commands[deviceID], cmd)

	return cloneCommand(cmd), nil
}

func (m *MemoryStore) ReserveNextCommand(ctx context.Context, deviceID string) (*queue.Command, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	var oldest *queue.Command
	for _, cmd := range m.commands[deviceID] {
		if cmd.Status != queue.StatusQueued {
			continue
		}
		if oldest == nil || olderThan(cmd, oldest) {
			oldest = cmd
		}
	}
	if oldest == nil {
		return nil, nil
	}

	now := time.Now().UTC()
	oldest.Status = queue.StatusInProgress
	oldest.PickedAt = &now

	return cloneCommand(oldest), nil
}

func (m *MemoryStore) CompleteCommand(ctx context.Context, deviceID string, commandID uuid.UUID, result string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cmd := range m.commands[deviceID] {
		if cmd.ID != commandID {
			continue
		}
		if cmd.Status == queue.StatusQueued {
			return queue.ErrNotDelivered
		}
		now := time.Now().UTC()
		cmd.Status = queue.StatusDone
		cmd.DoneAt = &now
		cmd.Result = result
		return nil
	}

	return queue.ErrNotFound
}

func (m *MemoryStore) UpsertDeviceState(ctx context.Context, deviceID string, state []byte) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	device := m.ensureDeviceLocked(deviceID)
	device.State = append([]byte(nil), state...)
	device.UpdatedAt = time.Now().UTC()

	return nil
}

func (m *MemoryStore) GetDevice(ctx context.Context, deviceID string) (*queue.Device, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	device, ok := m.devices[deviceID]
	if !ok {
		return nil, queue.ErrNotFound
	}

	copy := *device
	copy.State = append([]byte(nil), device.State...)
	return &copy, nil
}

func (m *MemoryStore) ListCommands(ctx context.Context, deviceID string, limit int) ([]queue.Command, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.commands[deviceID]
	result := make([]queue.Command, 0, limit)

	// newest first
	for i := len(all) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, *cloneCommand(all[i]))
	}

	return result, nil
}

func (m *MemoryStore) Close() {}

// olderThan orders by created_at, ties broken by arrival sequence, so
// polling observes one deterministic total order.
func olderThan(a, b *queue.Command) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.Seq < b.Seq
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func cloneCommand(cmd *queue.Command) *queue.Command {
	copy := *cmd
	copy.Payload = append([]byte(nil), cmd.Payload...)
	if cmd.PickedAt != nil {
		t := *cmd.PickedAt
		copy.PickedAt = &t
	}
	if cmd.DoneAt != nil {
		t := *cmd.DoneAt
		copy.DoneAt = &t
	}
	return &copy
}
