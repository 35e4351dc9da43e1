package authz

import (
	"testing"

	"github.com/cargodesk/cargodesk/internal/domain"
)

func strPtr(s string) *string { return &s }

func profile(userID, role string, deptID *string) *Profile {
	return &Profile{UserID: userID, RoleName: role, DepartmentID: deptID, Active: true}
}

func TestCanAccessTicket(t *testing.T) {
	deptSales := "dept-sales"
	deptOps := "dept-ops"
	ticket := &domain.Ticket{
		ID:           "t-1",
		CreatorID:    "creator-1",
		DepartmentID: deptSales,
		AssigneeID:   strPtr("assignee-1"),
	}

	cases := []struct {
		name string
		p    *Profile
		want bool
	}{
		{"super admin", profile("u-1", domain.RoleSuperAdmin, nil), true},
		{"manager of owning department", profile("u-2", domain.RoleSalesManager, &deptSales), true},
		{"manager of other department", profile("u-3", domain.RoleDomesticOpsManager, &deptOps), false},
		{"manager with no department", profile("u-4", domain.RoleSalesManager, nil), false},
		{"creator", profile("creator-1", domain.RoleUser, nil), true},
		{"assignee", profile("assignee-1", domain.RoleSalesStaff, &deptSales), true},
		{"staff in department but uninvolved", profile("u-5", domain.RoleSalesStaff, &deptSales), false},
		{"unrelated user", profile("u-6", domain.RoleUser, nil), false},
		{"nil profile", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccessTicket(tc.p, ticket); got != tc.want {
				t.Fatalf("CanAccessTicket = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInactiveProfileIsNeverAuthorized(t *testing.T) {
	dept := "dept-sales"
	ticket := &domain.Ticket{ID: "t-1", CreatorID: "u-1", DepartmentID: dept}
	p := &Profile{UserID: "u-1", RoleName: domain.RoleSuperAdmin, DepartmentID: &dept, Active: false}

	if CanAccessTicket(p, ticket) {
		t.Error("inactive super admin could access ticket")
	}
	if CanAssignTicket(p) {
		t.Error("inactive profile could assign")
	}
	if CanManageUsers(p) {
		t.Error("inactive profile could manage users")
	}
	if CanOverrideClosed(p) {
		t.Error("inactive profile could override closed")
	}
}

func TestManagerTierPredicates(t *testing.T) {
	dept := "dept-ops"
	cases := []struct {
		name string
		p    *Profile
		want bool
	}{
		{"super admin", profile("u-1", domain.RoleSuperAdmin, nil), true},
		{"manager", profile("u-2", domain.RoleEximOpsManager, &dept), true},
		{"staff", profile("u-3", domain.RoleEximOpsStaff, &dept), false},
		{"regular user", profile("u-4", domain.RoleUser, nil), false},
		{"unknown role", profile("u-5", "janitor", nil), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAssignTicket(tc.p); got != tc.want {
				t.Errorf("CanAssignTicket = %v, want %v", got, tc.want)
			}
			if got := CanCreateQuote(tc.p); got != tc.want {
				t.Errorf("CanCreateQuote = %v, want %v", got, tc.want)
			}
			if got := CanViewAuditLog(tc.p); got != tc.want {
				t.Errorf("CanViewAuditLog = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSuperAdminOnlyPredicates(t *testing.T) {
	dept := "dept-ops"
	manager := profile("u-1", domain.RoleWHTrafficManager, &dept)
	admin := profile("u-2", domain.RoleSuperAdmin, nil)

	if CanManageUsers(manager) || CanManageDepartments(manager) || CanOverrideClosed(manager) {
		t.Error("manager gained super-admin privileges")
	}
	if !CanManageUsers(admin) || !CanManageDepartments(admin) || !CanOverrideClosed(admin) {
		t.Error("super admin denied super-admin privileges")
	}
}

func TestProfileOf(t *testing.T) {
	if ProfileOf(nil) != nil {
		t.Fatal("ProfileOf(nil) should be nil")
	}
	dept := "dept-1"
	user := &domain.User{ID: "u-1", RoleName: domain.RoleSalesStaff, DepartmentID: &dept, Active: true}
	p := ProfileOf(user)
	if p.UserID != "u-1" || p.RoleName != domain.RoleSalesStaff || !p.Active {
		t.Fatalf("unexpected profile %+v", p)
	}
	if p.Tier() != domain.TierStaff {
		t.Fatalf("Tier() = %v, want staff", p.Tier())
	}
}
