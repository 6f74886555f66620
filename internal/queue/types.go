package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a queued command. It only moves
// forward: queued -> in_progress -> done.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// DefaultResult is stored when a device acknowledges without a result.
const DefaultResult = "OK"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	// ErrNotDelivered is returned when a command is acknowledged before
	// any poll delivered it.
	ErrNotDelivered = errors.New("command not delivered yet")
)

func ValidateTransition(from, to Status) error {
	validTransitions := map[Status][]Status{
		StatusQueued:     {StatusInProgress},
		StatusInProgress: {StatusDone},
		StatusDone:       {StatusDone}, // re-ack overwrites result, state stays done
	}

	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("invalid current status: %s", from)
	}

	for _, validTo := range allowed {
		if validTo == to {
			return nil
		}
	}

	return fmt.Errorf("invalid status transition: %s -> %s", from, to)
}

type Device struct {
	DeviceID  string    `json:"deviceId"`
	State     []byte    `json:"-"` // JSONB
	UpdatedAt time.Time `json:"updatedAt"`
}

type Command struct {
	ID        uuid.UUID  `json:"id"`
	DeviceID  string     `json:"deviceId"`
	Payload   []byte     `json:"-"` // JSONB, opaque pass-through
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	Seq       int64      `json:"-"` // backend arrival order, tie-breaker
	PickedAt  *time.Time `json:"pickedAt,omitempty"`
	DoneAt    *time.Time `json:"doneAt,omitempty"`
	Result    string     `json:"result,omitempty"`
}

// Delivery is what a poll hands to the device: the reserved command's id
// and its original payload, unmodified.
type Delivery struct {
	CommandID string
	Payload   []byte
}
