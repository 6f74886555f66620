package rest

import (
	"net/http"

	"github.com/KlarLuft/PurifierCloud/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /api/v1/models
func (s *Server) listModels(c *gin.Context) {
	models, err := s.lm.Catalog().LoadAll()
	if err != nil {
		s.logger.Error("Failed to load model catalog", zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("internal error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"models": models,
		"count":  len(models),
	})
}

// GET /api/v1/models/:model
func (s *Server) getModel(c *gin.Context) {
	name := c.Param("model")

	model, err := s.lm.Catalog().Load(name)
	if err != nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("model not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"model": model,
	})
}
