package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/diary/internal/model"
)

type HealthHandler struct {
	version string
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Root godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} model.HealthEnvelope
// @Router / [get]
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthEnvelope{
		Success: true,
		Data: &model.HealthResponse{
			Status:    "OK",
			Timestamp: time.Now().UTC(),
			Version:   h.version,
		},
		Message: "server is running",
	})
}
