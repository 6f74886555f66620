package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/KlarLuft/PurifierCloud/internal/config"
	"github.com/KlarLuft/PurifierCloud/internal/interfaces"
	"github.com/KlarLuft/PurifierCloud/internal/queue"
	"github.com/KlarLuft/PurifierCloud/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	lm     interfaces.LifecycleManager
	logger *zap.Logger
	server *http.Server
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router: gin.New(),
		lm:     lm,
		logger: logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

// Router exposes the gin engine for handler tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	// Wrong verb on a known path is 405, not 404
	s.router.HandleMethodNotAllowed = true
	s.router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, types.NewErrorResponse("method not allowed"))
	})
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("not found"))
	})

	// Public routes
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// ==================== COMMAND QUEUE ====================
		commands := v1.Group("/commands")
		{
			commands.POST("/enqueue", s.enqueueCommand)
			commands.GET("/next", s.pollNextCommand)
			commands.POST("/ack", s.acknowledgeCommand)
		}

		// ==================== DEVICES ====================
		devices := v1.Group("/devices")
		{
			devices.POST("/state", s.reportDeviceState)
			devices.GET("/:deviceId/state", s.getDeviceState)
			devices.GET("/:deviceId/commands", s.listDeviceCommands)
		}

		// ==================== MODEL CATALOG ====================
		models := v1.Group("/models")
		{
			models.GET("", s.listModels)
			models.GET("/:model", s.getModel)
		}

		// ==================== SYSTEM ====================
		system := v1.Group("/system")
		{
			system.GET("/status", s.getSystemStatus)
		}
	}
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// GET /api/v1/system/status
func (s *Server) getSystemStatus(c *gin.Context) {
	status := s.lm.GetCurrentStatus()
	c.JSON(http.StatusOK, status)
}

// serviceError maps queue errors onto the HTTP error taxonomy. Backend
// failures stay generic towards the caller, details go to the log only.
func (s *Server) serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, queue.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(err.Error()))
	case errors.Is(err, queue.ErrNotFound):
		c.JSON(http.StatusNotFound, types.NewErrorResponse(err.Error()))
	case errors.Is(err, queue.ErrNotDelivered):
		c.JSON(http.StatusConflict, types.NewErrorResponse(err.Error()))
	default:
		s.logger.Error("Backend failure", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("internal error"))
	}
}
