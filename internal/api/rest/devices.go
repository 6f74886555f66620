package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/KlarLuft/PurifierCloud/internal/types"
	"github.com/gin-gonic/gin"
)

// POST /api/v1/devices/state
func (s *Server) reportDeviceState(c *gin.Context) {
	var req struct {
		DeviceID string          `json:"deviceId" binding:"required"`
		State    json.RawMessage `json:"state" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("deviceId and state are required"))
		return
	}

	if err := s.lm.Queue().ReportState(c.Request.Context(), req.DeviceID, req.State); err != nil {
		s.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok": true,
	})
}

// GET /api/v1/devices/:deviceId/state
func (s *Server) getDeviceState(c *gin.Context) {
	deviceID := c.Param("deviceId")

	device, err := s.lm.Queue().DeviceState(c.Request.Context(), deviceID)
	if err != nil {
		s.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"deviceId":  device.DeviceID,
		"state":     json.RawMessage(device.State),
		"updatedAt": device.UpdatedAt,
	})
}

// GET /api/v1/devices/:deviceId/commands?limit=50
func (s *Server) listDeviceCommands(c *gin.Context) {
	deviceID := c.Param("deviceId")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("invalid limit"))
		return
	}

	commands, err := s.lm.Queue().History(c.Request.Context(), deviceID, limit)
	if err != nil {
		s.serviceError(c, err)
		return
	}

	response := make([]gin.H, 0, len(commands))
	for _, cmd := range commands {
		entry := gin.H{
			"id":        cmd.ID,
			"command":   json.RawMessage(cmd.Payload),
			"status":    cmd.Status,
			"createdAt": cmd.CreatedAt,
		}
		if cmd.PickedAt != nil {
			entry["pickedAt"] = cmd.PickedAt
		}
		if cmd.DoneAt != nil {
			entry["doneAt"] = cmd.DoneAt
		}
		if cmd.Result != "" {
			entry["result"] = cmd.Result
		}
		response = append(response, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"commands": response,
		"count":    len(response),
	})
}
