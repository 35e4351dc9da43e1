package domain

import "time"

// User is the domain model for every account: requesters, operations staff,
// department managers and super-admins are all users with a role name.
// Accounts are never hard-deleted; Active=false is a soft deactivation.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	RoleName     string
	DepartmentID *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Tier returns the capability tier of the user's role.
func (u *User) Tier() RoleTier {
	return Classify(u.RoleName)
}
