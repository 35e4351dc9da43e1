package dto

import "time"

// CreateDepartmentRequest payload.
type CreateDepartmentRequest struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	DefaultSLAHours int    `json:"default_sla_hours"`
}

// UpdateDepartmentRequest payload. Omitted fields are left unchanged.
type UpdateDepartmentRequest struct {
	Name            *string `json:"name"`
	DefaultSLAHours *int    `json:"default_sla_hours"`
	IsActive        *bool   `json:"is_active"`
}

// DepartmentResponse view.
type DepartmentResponse struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	DefaultSLAHours int       `json:"default_sla_hours"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
