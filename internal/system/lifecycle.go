package system

import (
	"context"
	"sync"
	"time"

	"github.com/KlarLuft/PurifierCloud/internal/api/rest"
	"github.com/KlarLuft/PurifierCloud/internal/catalog"
	"github.com/KlarLuft/PurifierCloud/internal/config"
	"github.com/KlarLuft/PurifierCloud/internal/interfaces"
	"github.com/KlarLuft/PurifierCloud/internal/queue"
	"go.uber.org/zap"
)

// LifecycleManager wires store, queue service, catalog and the REST
// server together and owns startup and shutdown order.
type LifecycleManager struct {
	config       *config.Config
	store        queue.Store
	queueService *queue.Service
	catalog      *catalog.Loader
	logger       *zap.Logger

	restServer *rest.Server

	stateMu      sync.RWMutex
	currentState SystemState
	lastError    string

	shutdownOnce sync.Once
}

func NewLifecycleManager(store queue.Store, cfg *config.Config, logger *zap.Logger) *LifecycleManager {
	queueService := queue.NewService(store, logger)
	catalogLoader := catalog.NewLoader(cfg.Catalog.SearchPaths)

	lm := &LifecycleManager{
		config:       cfg,
		store:        store,
		queueService: queueService,
		catalog:      catalogLoader,
		logger:       logger,
		currentState: StateInitializing,
	}

	lm.restServer = rest.NewServer(cfg, lm, logger)

	return lm
}

func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}

func (lm *LifecycleManager) Queue() *queue.Service {
	return lm.queueService
}

func (lm *LifecycleManager) Catalog() *catalog.Loader {
	return lm.catalog
}

// RESTServer exposes the server for handler tests.
func (lm *LifecycleManager) RESTServer() *rest.Server {
	return lm.restServer
}

// Start starts the entire system
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting PurifierCloud command queue service")

	if err := lm.restServer.Start(); err != nil {
		lm.setError(err)
		return err
	}

	lm.setState(StateRunning)

	lm.logger.Info("System started successfully",
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.String("storage_backend", lm.config.Storage.Backend))

	return nil
}

func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()

	return interfaces.SystemStatus{
		State:          lm.currentState.String(),
		StorageBackend: lm.config.Storage.Backend,
		Timestamp:      time.Now().Unix(),
		Error:          lm.lastError,
	}
}

// Shutdown stops the REST server first, then releases the store.
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.setState(StateStopping)

		shutdownCtx, cancel := context.WithTimeout(ctx, lm.config.Server.ShutdownTimeout)
		defer cancel()

		if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
			lm.logger.Error("REST shutdown failed", zap.Error(err))
			shutdownErr = err
		}

		lm.store.Close()

		lm.setState(StateStopped)
	})

	return shutdownErr
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Invalid state transition", zap.Error(err))
		return
	}

	lm.logger.Info("System state changed",
		zap.String("from", lm.currentState.String()),
		zap.String("to", state.String()))

	lm.currentState = state
}

func (lm *LifecycleManager) setError(err error) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	lm.currentState = StateError
	lm.lastError = err.Error()
}
