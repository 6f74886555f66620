package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/KlarLuft/PurifierCloud/internal/queue"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EnsureDevice creates the device row if missing. Devices come into
// existence on first enqueue or first state report.
func (p *PostgresStore) EnsureDevice(ctx context.Context, deviceID string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO devices (device_id)
		VALUES ($1)
		ON CONFLICT (device_id) DO NOTHING
	`, deviceID)

	if err != nil {
		return fmt.Errorf("failed to ensure device: %w", err)
	}

	return nil
}

// CreateCommand inserts a new queued command. The id is generated here,
// created_at and the arrival sequence come from the database.
func (p *PostgresStore) CreateCommand(ctx context.Context, deviceID string, payload []byte) (*queue.Command, error) {
	cmd := queue.Command{
		ID:       uuid.New(),
		DeviceID: deviceID,
		Payload:  payload,
		Status:   queue.StatusQueued,
	}

	err := p.pool.QueryRow(ctx, `
		INSERT INTO commands (id, device_id, payload, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, seq
	`, cmd.ID, deviceID, payload, cmd.Status).Scan(&cmd.CreatedAt, &cmd.Seq)

	if err != nil {
		return nil, fmt.Errorf("failed to insert command: %w", err)
	}

	return &cmd, nil
}

// ReserveNextCommand picks the oldest queued command and flips it to
// in_progress in one statement. FOR UPDATE SKIP LOCKED plus the status
// guard on the outer UPDATE make the reservation atomic per record:
// a racing poll either locks a different row or finds nothing.
func (p *PostgresStore) ReserveNextCommand(ctx context.Context, deviceID string) (*queue.Command, error) {
	var cmd queue.Command

	err := p.pool.QueryRow(ctx, `
		UPDATE commands
		SET status = $1, picked_at = NOW()
		WHERE id = (
			SELECT id FROM commands
			WHERE device_id = $2 AND status = $3
			ORDER BY created_at ASC, seq ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		) AND status = $3
		RETURNING id, device_id, payload, status, created_at, seq, picked_at
	`, queue.StatusInProgress, deviceID, queue.StatusQueued).Scan(
		&cmd.ID, &cmd.DeviceID, &cmd.Payload, &cmd.Status,
		&cmd.CreatedAt, &cmd.Seq, &cmd.PickedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reserve command: %w", err)
	}

	return &cmd, nil
}

// CompleteCommand marks a delivered command as done. The status guard
// keeps a never-delivered command out: the update only matches rows
// past the queued state.
func (p *PostgresStore) CompleteCommand(ctx context.Context, deviceID string, commandID uuid.UUID, result string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE commands
		SET status = $1, done_at = NOW(), result = $2
		WHERE id = $3 AND device_id = $4 AND status <> $5
	`, queue.StatusDone, result, commandID, deviceID, queue.StatusQueued)

	if err != nil {
		return fmt.Errorf("failed to complete command: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Unterscheiden: unbekannte Id oder noch nicht zugestellt
		var status queue.Status
		err := p.pool.QueryRow(ctx, `
			SELECT status FROM commands WHERE id = $1 AND device_id = $2
		`, commandID, deviceID).Scan(&status)

		if errors.Is(err, pgx.ErrNoRows) {
			return queue.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to look up command: %w", err)
		}
		return queue.ErrNotDelivered
	}

	return nil
}

// UpsertDeviceState stores the reported state and bumps updated_at.
// Other device columns are left as they are.
func (p *PostgresStore) UpsertDeviceState(ctx context.Context, deviceID string, state []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO devices (device_id, state, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (device_id)
		DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = NOW()
	`, deviceID, state)

	if err != nil {
		return fmt.Errorf("failed to upsert device state: %w", err)
	}

	return nil
}

// GetDevice fetches a device record.
func (p *PostgresStore) GetDevice(ctx context.Context, deviceID string) (*queue.Device, error) {
	var device queue.Device

	err := p.pool.QueryRow(ctx, `
		SELECT device_id, state, updated_at
		FROM devices
		WHERE device_id = $1
	`, deviceID).Scan(&device.DeviceID, &device.State, &device.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, queue.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device: %w", err)
	}

	return &device, nil
}

// ListCommands returns the device's commands, newest first.
func (p *PostgresStore) ListCommands(ctx context.Context, deviceID string, limit int) ([]queue.Command, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, device_id, payload, status, created_at, seq, picked_at, done_at, COALESCE(result, '')
		FROM commands
		WHERE device_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`, deviceID, limit)

	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	commands := make([]queue.Command, 0)

	for rows.Next() {
		var cmd queue.Command
		err := rows.Scan(&cmd.ID, &cmd.DeviceID, &cmd.Payload, &cmd.Status,
			&cmd.CreatedAt, &cmd.Seq, &cmd.PickedAt, &cmd.DoneAt, &cmd.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		commands = append(commands, cmd)
	}

	return commands, rows.Err()
}
