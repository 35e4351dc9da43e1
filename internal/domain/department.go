package domain

import "time"

// Department represents an operational unit (sales, domestic ops, export-import
// ops, ...). DefaultSLAHours bounds the expected response time for tickets
// owned by the department.
type Department struct {
	ID              string
	Code            string
	Name            string
	DefaultSLAHours int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
