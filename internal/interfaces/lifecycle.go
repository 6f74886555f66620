package interfaces

import (
	"context"

	"github.com/KlarLuft/PurifierCloud/internal/catalog"
	"github.com/KlarLuft/PurifierCloud/internal/config"
	"github.com/KlarLuft/PurifierCloud/internal/queue"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State          string `json:"state"`
	StorageBackend string `json:"storage_backend"`
	Timestamp      int64  `json:"timestamp"`
	Error          string `json:"error,omitempty"`
}

type LifecycleManager interface {
	Config() *config.Config
	Queue() *queue.Service
	Catalog() *catalog.Loader
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
