package dashboard

import (
	"github.com/gin-gonic/gin"

	"docinsight-backend/internal/shared/server/middleware"
	"docinsight-backend/internal/shared/server/respond"
	"docinsight-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard/stats", h.stats)
}

func (h *Handler) stats(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	st, err := h.Svc.Stats(c.Request.Context(), userID)
	if err != nil {
		telemetry.Error("dashboard.stats_failed", map[string]any{
			"request_id": telemetry.RequestIDFromContext(c.Request.Context()),
			"user_id":    userID,
			"error":      err.Error(),
		})
		respond.Internal(c, "failed to compute stats")
		return
	}
	respond.OK(c, st)
}
