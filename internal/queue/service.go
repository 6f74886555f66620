package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service implements the per-device command queue: enqueue, poll with
// atomic reservation, acknowledge, and device state reporting.
type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Enqueue appends a command to the device's queue and returns the
// backend-generated command id. The payload is stored as-is, the
// service never interprets it.
func (s *Service) Enqueue(ctx context.Context, deviceID string, payload []byte) (string, error) {
	if deviceID == "" {
		return "", fmt.Errorf("%w: deviceId is required", ErrInvalidRequest)
	}
	if !isStructured(payload) {
		return "", fmt.Errorf("%w: command must be a JSON value", ErrInvalidRequest)
	}

	if err := s.store.EnsureDevice(ctx, deviceID); err != nil {
		return "", fmt.Errorf("failed to ensure device: %w", err)
	}

	cmd, err := s.store.CreateCommand(ctx, deviceID, payload)
	if err != nil {
		return "", fmt.Errorf("failed to create command: %w", err)
	}

	s.logger.Info("Command enqueued",
		zap.String("device_id", deviceID),
		zap.String("command_id", cmd.ID.String()))

	return cmd.ID.String(), nil
}

// PollNext reserves the oldest queued command for the device and
// returns it, or nil when the queue is empty. Reservation is atomic:
// when two polls race, at most one of them gets the command, the other
// sees an empty queue (or the next queued command if there is one).
func (s *Service) PollNext(ctx context.Context, deviceID string) (*Delivery, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: deviceId is required", ErrInvalidRequest)
	}

	cmd, err := s.store.ReserveNextCommand(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve command: %w", err)
	}
	if cmd == nil {
		return nil, nil
	}

	s.logger.Info("Command delivered",
		zap.String("device_id", deviceID),
		zap.String("command_id", cmd.ID.String()))

	return &Delivery{
		CommandID: cmd.ID.String(),
		Payload:   cmd.Payload,
	}, nil
}

// Acknowledge marks a delivered command as done and stores its result.
// An empty result defaults to "OK". Re-acknowledging a done command is
// accepted, the latest result wins.
func (s *Service) Acknowledge(ctx context.Context, deviceID, commandID, result string) error {
	if deviceID == "" || commandID == "" {
		return fmt.Errorf("%w: deviceId and id are required", ErrInvalidRequest)
	}
	if result == "" {
		result = DefaultResult
	}

	// Ids are backend-generated, anything unparseable cannot resolve.
	id, err := uuid.Parse(commandID)
	if err != nil {
		return fmt.Errorf("%w: unknown command %q", ErrNotFound, commandID)
	}

	if err := s.store.CompleteCommand(ctx, deviceID, id, result); err != nil {
		return err
	}

	s.logger.Info("Command acknowledged",
		zap.String("device_id", deviceID),
		zap.String("command_id", commandID))

	return nil
}

// ReportState upserts the device's last reported state. Independent of
// the queue, it never touches command records.
func (s *Service) ReportState(ctx context.Context, deviceID string, state []byte) error {
	if deviceID == "" {
		return fmt.Errorf("%w: deviceId is required", ErrInvalidRequest)
	}
	if !isStructured(state) {
		return fmt.Errorf("%w: state must be a JSON value", ErrInvalidRequest)
	}

	if err := s.store.UpsertDeviceState(ctx, deviceID, state); err != nil {
		return fmt.Errorf("failed to upsert device state: %w", err)
	}

	return nil
}

// DeviceState returns the device record with its last reported state.
func (s *Service) DeviceState(ctx context.Context, deviceID string) (*Device, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: deviceId is required", ErrInvalidRequest)
	}
	return s.store.GetDevice(ctx, deviceID)
}

// History lists the device's commands, newest first.
func (s *Service) History(ctx context.Context, deviceID string, limit int) ([]Command, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: deviceId is required", ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListCommands(ctx, deviceID, limit)
}

// isStructured accepts any JSON value except the null literal.
func isStructured(raw []byte) bool {
	if len(raw) == 0 || !json.Valid(raw) {
		return false
	}
	return !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
