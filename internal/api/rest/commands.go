package rest

import (
	"encoding/json"
	"net/http"

	"github.com/KlarLuft/PurifierCloud/internal/metrics"
	"github.com/KlarLuft/PurifierCloud/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// POST /api/v1/commands/enqueue
func (s *Server) enqueueCommand(c *gin.Context) {
	var req struct {
		DeviceID string          `json:"deviceId" binding:"required"`
		Command  json.RawMessage `json:"command" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("deviceId and command are required"))
		return
	}

	id, err := s.lm.Queue().Enqueue(c.Request.Context(), req.DeviceID, req.Command)
	if err != nil {
		s.serviceError(c, err)
		return
	}

	metrics.CommandsEnqueued.Inc()

	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"id": id,
	})
}

// GET /api/v1/commands/next?deviceId=...
func (s *Server) pollNextCommand(c *gin.Context) {
	deviceID := c.Query("deviceId")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("deviceId is required"))
		return
	}

	timer := prometheus.NewTimer(metrics.ReserveDuration)
	delivery, err := s.lm.Queue().PollNext(c.Request.Context(), deviceID)
	timer.ObserveDuration()

	if err != nil {
		s.serviceError(c, err)
		return
	}

	if delivery == nil {
		metrics.PollEmpty.Inc()
		c.JSON(http.StatusOK, gin.H{
			"hasCommand": false,
		})
		return
	}

	metrics.CommandsDelivered.Inc()

	c.JSON(http.StatusOK, gin.H{
		"hasCommand": true,
		"id":         delivery.CommandID,
		"command":    json.RawMessage(delivery.Payload),
	})
}

// POST /api/v1/commands/ack
func (s *Server) acknowledgeCommand(c *gin.Context) {
	var req struct {
		DeviceID string `json:"deviceId" binding:"required"`
		ID       string `json:"id" binding:"required"`
		Result   string `json:"result"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("deviceId and id are required"))
		return
	}

	if err := s.lm.Queue().Acknowledge(c.Request.Context(), req.DeviceID, req.ID, req.Result); err != nil {
		s.serviceError(c, err)
		return
	}

	metrics.CommandsAcked.Inc()

	c.JSON(http.StatusOK, gin.H{
		"ok": true,
	})
}
