package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cargodesk/cargodesk/internal/service"
)

// ReportsHandler serves aggregate dashboards.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// Dashboard GET /reports/dashboard.
func (h *ReportsHandler) Dashboard(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	summary, err := h.service.Dashboard(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}
