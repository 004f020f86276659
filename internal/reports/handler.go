package reports

import (
	"fmt"
	"time"

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
	rg.GET("/reports", h.get)
	rg.GET("/reports/export", h.export)
}

func (h *Handler) get(c *gin.Context) {
	r, ok := h.build(c)
	if !ok {
		return
	}
	respond.OK(c, r)
}

func (h *Handler) export(c *gin.Context) {
	r, ok := h.build(c)
	if !ok {
		return
	}
	data, err := Export(r)
	if err != nil {
		telemetry.Error("reports.export_failed", map[string]any{
			"request_id": telemetry.RequestIDFromContext(c.Request.Context()),
			"error":      err.Error(),
		})
		respond.Internal(c, "failed to export report")
		return
	}
	name := fmt.Sprintf("report-%s.xlsx", r.GeneratedAt.Format(time.DateOnly))
	respond.Attachment(c, name, ContentTypeXLSX, data)
}

func (h *Handler) build(c *gin.Context) (Report, bool) {
	userID := middleware.UserIDFromContext(c)
	r, err := h.Svc.Build(c.Request.Context(), userID)
	if err != nil {
		telemetry.Error("reports.build_failed", map[string]any{
			"request_id": telemetry.RequestIDFromContext(c.Request.Context()),
			"user_id":    userID,
			"error":      err.Error(),
		})
		respond.Internal(c, "failed to build report")
		return Report{}, false
	}
	return r, true
}
