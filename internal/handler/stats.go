package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/diary/internal/model"
	"github.com/kube-rca/diary/internal/service"
)

type StatsHandler struct {
	svc    *service.StatsService
	logger *slog.Logger
}

func NewStatsHandler(svc *service.StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, logger: logger}
}

// Stats godoc
// @Summary Service statistics
// @Description Only reachable from loopback and private networks.
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.StatsEnvelope
// @Failure 401 {object} model.ErrorEnvelope
// @Failure 403 {object} model.ErrorEnvelope
// @Failure 500 {object} model.ErrorEnvelope
// @Router /stats [get]
func (h *StatsHandler) Stats(c *gin.Context) {
	if user := GetAuthUser(c); user != nil {
		h.logger.DebugContext(c.Request.Context(), "stats requested", "user_id", user.ID)
	}

	snapshot, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, model.StatsEnvelope{
		Success: true,
		Data:    snapshot,
		Message: "stats retrieved",
	})
}
