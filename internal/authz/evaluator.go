// Package authz centralizes authorization decisions as pure predicates over
// server-verified profile and resource state. Every endpoint consults these
// predicates; none may be bypassed by client-supplied flags.
package authz

import "github.com/cargodesk/cargodesk/internal/domain"

// Profile is the server-verified identity an authorization decision runs
// against. A nil profile, or one for an inactive account, is never authorized.
type Profile struct {
	UserID       string
	RoleName     string
	DepartmentID *string
	Active       bool
}

// ProfileOf builds a Profile from a loaded user.
func ProfileOf(user *domain.User) *Profile {
	if user == nil {
		return nil
	}
	return &Profile{
		UserID:       user.ID,
		RoleName:     user.RoleName,
		DepartmentID: user.DepartmentID,
		Active:       user.Active,
	}
}

func (p *Profile) authorized() bool {
	return p != nil && p.Active
}

// Tier returns the capability tier of the profile's role.
func (p *Profile) Tier() domain.RoleTier {
	if p == nil {
		return domain.TierRegular
	}
	return domain.Classify(p.RoleName)
}

func (p *Profile) managesDepartment(departmentID string) bool {
	return p.Tier() == domain.TierManager &&
		p.DepartmentID != nil && *p.DepartmentID == departmentID
}

// CanAccessTicket reports whether the profile may view or comment on the
// ticket: super-admins, managers of the owning department, and the ticket's
// creator or assignee.
func CanAccessTicket(p *Profile, ticket *domain.Ticket) bool {
	if !p.authorized() || ticket == nil {
		return false
	}
	if p.Tier() == domain.TierSuperAdmin {
		return true
	}
	if p.managesDepartment(ticket.DepartmentID) {
		return true
	}
	if ticket.CreatorID == p.UserID {
		return true
	}
	if ticket.AssigneeID != nil && *ticket.AssigneeID == p.UserID {
		return true
	}
	return false
}

// CanAssignTicket reports whether the profile may assign tickets.
func CanAssignTicket(p *Profile) bool {
	return p.authorized() && p.Tier() >= domain.TierManager
}

// CanCreateQuote reports whether the profile may submit quotes on RFQ tickets.
func CanCreateQuote(p *Profile) bool {
	return p.authorized() && p.Tier() >= domain.TierManager
}

// CanViewAuditLog reports whether the profile may read the audit log.
func CanViewAuditLog(p *Profile) bool {
	return p.authorized() && p.Tier() >= domain.TierManager
}

// CanManageUsers reports whether the profile may create, update or deactivate
// accounts.
func CanManageUsers(p *Profile) bool {
	return p.authorized() && p.Tier() == domain.TierSuperAdmin
}

// CanManageDepartments reports whether the profile may edit department
// reference data, including SLA hours.
func CanManageDepartments(p *Profile) bool {
	return p.authorized() && p.Tier() == domain.TierSuperAdmin
}

// CanCloseTicket reports whether the profile may close the ticket: its
// creator, its assignee, managers of the owning department, or a super-admin.
func CanCloseTicket(p *Profile, ticket *domain.Ticket) bool {
	return CanAccessTicket(p, ticket)
}

// CanOverrideClosed reports whether the profile may transition an already
// closed ticket. Explicit escape hatch for super-admins only.
func CanOverrideClosed(p *Profile) bool {
	return p.authorized() && p.Tier() == domain.TierSuperAdmin
}
