package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cargodesk/cargodesk/internal/api/dto"
	"github.com/cargodesk/cargodesk/internal/repository"
	"github.com/cargodesk/cargodesk/internal/service"
)

// AuditHandler serves the audit log to managers and super-admins.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{service: auditService}
}

// List GET /audit.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	filter := repository.AuditFilter{}
	if raw := c.Query("table"); raw != "" {
		filter.TableName = &raw
	}
	if raw := c.Query("record_id"); raw != "" {
		filter.RecordID = &raw
	}
	if raw := c.Query("actor_id"); raw != "" {
		filter.ActorID = &raw
	}
	if raw := c.Query("from"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &ts
		}
	}
	if raw := c.Query("to"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &ts
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	entries, err := h.service.List(c.UserContext(), actor.Profile, filter)
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, auditEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
