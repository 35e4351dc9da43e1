package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/cargodesk/cargodesk/internal/api/dto"
	"github.com/cargodesk/cargodesk/internal/service"
	apperrors "github.com/cargodesk/cargodesk/pkg/util"
)

// DepartmentsHandler serves department administration endpoints.
type DepartmentsHandler struct {
	service *service.DepartmentService
}

// NewDepartmentsHandler constructs handler.
func NewDepartmentsHandler(deptService *service.DepartmentService) *DepartmentsHandler {
	return &DepartmentsHandler{service: deptService}
}

// List GET /departments.
func (h *DepartmentsHandler) List(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	includeInactive := false
	if raw := c.Query("include_inactive"); raw != "" {
		includeInactive, _ = strconv.ParseBool(raw)
	}
	depts, err := h.service.List(c.UserContext(), actor, includeInactive)
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		items = append(items, departmentResponse(&depts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /departments.
func (h *DepartmentsHandler) Create(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dept, err := h.service.Create(c.UserContext(), actor, service.DepartmentInput{
		Code:            req.Code,
		Name:            req.Name,
		DefaultSLAHours: req.DefaultSLAHours,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": departmentResponse(dept)})
}

// Update PATCH /departments/:id.
func (h *DepartmentsHandler) Update(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.DepartmentInput{IsActive: req.IsActive}
	if req.Name != nil {
		input.Name = *req.Name
	}
	if req.DefaultSLAHours != nil {
		input.DefaultSLAHours = *req.DefaultSLAHours
	}
	dept, err := h.service.Update(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": departmentResponse(dept)})
}
