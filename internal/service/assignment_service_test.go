package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/cargodesk/cargodesk/internal/domain"
	"github.com/cargodesk/cargodesk/internal/events"
	apperrors "github.com/cargodesk/cargodesk/pkg/util"
)

type assignmentFixture struct {
	service     *AssignmentService
	tickets     *fakeTicketRepo
	users       *fakeUserRepo
	assignments *fakeAssignmentRepo
	audit       *fakeAuditRepo
	dispatcher  *captureDispatcher
}

func newAssignmentFixture(users ...*domain.User) *assignmentFixture {
	f := &assignmentFixture{
		tickets:     newFakeTicketRepo(),
		users:       newFakeUserRepo(users...),
		assignments: &fakeAssignmentRepo{},
		audit:       &fakeAuditRepo{},
		dispatcher:  &captureDispatcher{},
	}
	f.service = NewAssignmentService(AssignmentDependencies{
		TicketRepo:     f.tickets,
		UserRepo:       f.users,
		AssignmentRepo: f.assignments,
		Audit:          NewAuditService(f.audit, zap.NewNop()),
		Dispatcher:     f.dispatcher,
		Logger:         zap.NewNop(),
	})
	return f
}

func staffUser(id, role, deptID string) *domain.User {
	dept := deptID
	return &domain.User{ID: id, Name: id, Email: id + "@cargodesk.test", RoleName: role, DepartmentID: &dept, Active: true}
}

func TestAssignTicket(t *testing.T) {
	dept := "dept-ops"
	f := newAssignmentFixture(staffUser("staff-1", domain.RoleDomesticOpsStaff, dept))
	f.tickets.put(&domain.Ticket{ID: "t-1", CreatorID: "user-1", DepartmentID: dept, Status: domain.TicketStatusOpen})

	manager := actorFor("mgr-1", domain.RoleDomesticOpsManager, &dept)
	updated, err := f.service.AssignTicket(context.Background(), manager, "t-1", "staff-1", "take this one")
	if err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}
	if updated.AssigneeID == nil || *updated.AssigneeID != "staff-1" {
		t.Errorf("assignee = %v", updated.AssigneeID)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS after assigning an open ticket", updated.Status)
	}
	if len(f.assignments.records) != 1 {
		t.Fatalf("assignment history rows = %d, want 1", len(f.assignments.records))
	}
	rec := f.assignments.records[0]
	if rec.AssigneeID != "staff-1" || rec.AssignerID != "mgr-1" || rec.Notes != "take this one" {
		t.Errorf("history row = %+v", rec)
	}
	if got := f.dispatcher.byType(events.EventTicketAssigned); len(got) != 1 {
		t.Errorf("ticket_assigned events = %d", len(got))
	}
	if len(f.audit.entries) != 1 {
		t.Errorf("audit entries = %d", len(f.audit.entries))
	}
}

func TestAssignTicketKeepsNonOpenStatus(t *testing.T) {
	dept := "dept-ops"
	f := newAssignmentFixture(staffUser("staff-2", domain.RoleDomesticOpsStaff, dept))
	prev := "staff-1"
	f.tickets.put(&domain.Ticket{ID: "t-1", CreatorID: "user-1", DepartmentID: dept, AssigneeID: &prev, Status: domain.TicketStatusPending})

	updated, err := f.service.AssignTicket(context.Background(), actorFor("mgr-1", domain.RoleDomesticOpsManager, &dept), "t-1", "staff-2", "")
	if err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}
	if updated.Status != domain.TicketStatusPending {
		t.Errorf("status = %s, reassignment should not move it", updated.Status)
	}
	if *updated.AssigneeID != "staff-2" {
		t.Errorf("assignee = %s", *updated.AssigneeID)
	}
}

func TestAssignTicketAuthority(t *testing.T) {
	deptOps := "dept-ops"
	deptSales := "dept-sales"
	f := newAssignmentFixture(
		staffUser("staff-ops", domain.RoleDomesticOpsStaff, deptOps),
		staffUser("staff-sales", domain.RoleSalesStaff, deptSales),
	)
	f.tickets.put(&domain.Ticket{ID: "t-1", CreatorID: "user-1", DepartmentID: deptOps, Status: domain.TicketStatusOpen})
	ctx := context.Background()

	// below manager tier
	_, err := f.service.AssignTicket(ctx, actorFor("staff-ops", domain.RoleDomesticOpsStaff, &deptOps), "t-1", "staff-ops", "")
	wantCode(t, err, apperrors.CodeForbidden)

	// manager of a different department
	_, err = f.service.AssignTicket(ctx, actorFor("mgr-sales", domain.RoleSalesManager, &deptSales), "t-1", "staff-ops", "")
	wantCode(t, err, apperrors.CodeForbidden)

	// assignee outside the ticket's department
	_, err = f.service.AssignTicket(ctx, actorFor("mgr-ops", domain.RoleDomesticOpsManager, &deptOps), "t-1", "staff-sales", "")
	wantCode(t, err, apperrors.CodeInvalidTransition)

	// super-admin may cross departments
	updated, err := f.service.AssignTicket(ctx, actorFor("admin-1", domain.RoleSuperAdmin, nil), "t-1", "staff-sales", "")
	if err != nil {
		t.Fatalf("super-admin cross-department assign: %v", err)
	}
	if *updated.AssigneeID != "staff-sales" {
		t.Errorf("assignee = %s", *updated.AssigneeID)
	}
}

func TestAssignTicketAssigneeChecks(t *testing.T) {
	dept := "dept-ops"
	inactive := staffUser("staff-gone", domain.RoleDomesticOpsStaff, dept)
	inactive.Active = false
	f := newAssignmentFixture(inactive)
	f.tickets.put(&domain.Ticket{ID: "t-1", CreatorID: "user-1", DepartmentID: dept, Status: domain.TicketStatusOpen})
	manager := actorFor("mgr-1", domain.RoleDomesticOpsManager, &dept)
	ctx := context.Background()

	_, err := f.service.AssignTicket(ctx, manager, "t-1", "staff-missing", "")
	wantCode(t, err, apperrors.CodeInvalidTransition)

	_, err = f.service.AssignTicket(ctx, manager, "t-1", "staff-gone", "")
	wantCode(t, err, apperrors.CodeInvalidTransition)

	_, err = f.service.AssignTicket(ctx, manager, "t-missing", "staff-gone", "")
	wantCode(t, err, apperrors.CodeInvalidTransition) // inactive check fires before ticket lookup

	if len(f.assignments.records) != 0 {
		t.Errorf("failed preconditions wrote %d history rows", len(f.assignments.records))
	}
}

func TestAssignTicketClosed(t *testing.T) {
	dept := "dept-ops"
	f := newAssignmentFixture(staffUser("staff-1", domain.RoleDomesticOpsStaff, dept))
	f.tickets.put(&domain.Ticket{ID: "t-1", CreatorID: "user-1", DepartmentID: dept, Status: domain.TicketStatusClosed})
	ctx := context.Background()

	_, err := f.service.AssignTicket(ctx, actorFor("mgr-1", domain.RoleDomesticOpsManager, &dept), "t-1", "staff-1", "")
	wantCode(t, err, apperrors.CodeInvalidTransition)

	// super-admin override keeps the closed status while changing the holder
	updated, err := f.service.AssignTicket(ctx, actorFor("admin-1", domain.RoleSuperAdmin, nil), "t-1", "staff-1", "")
	if err != nil {
		t.Fatalf("super-admin assign on closed ticket: %v", err)
	}
	if updated.Status != domain.TicketStatusClosed {
		t.Errorf("status = %s", updated.Status)
	}
	if *updated.AssigneeID != "staff-1" {
		t.Errorf("assignee = %s", *updated.AssigneeID)
	}
}

func TestAssignTicketRetriesOnceOnConflict(t *testing.T) {
	dept := "dept-ops"
	f := newAssignmentFixture(staffUser("staff-1", domain.RoleDomesticOpsStaff, dept))
	f.tickets.put(&domain.Ticket{ID: "t-1", CreatorID: "user-1", DepartmentID: dept, Status: domain.TicketStatusOpen})

	f.tickets.beforeApply = func(r *fakeTicketRepo) {
		r.tickets["t-1"].Status = domain.TicketStatusPending
		r.beforeApply = nil
	}

	updated, err := f.service.AssignTicket(context.Background(), actorFor("mgr-1", domain.RoleDomesticOpsManager, &dept), "t-1", "staff-1", "")
	if err != nil {
		t.Fatalf("AssignTicket after one conflict: %v", err)
	}
	if *updated.AssigneeID != "staff-1" {
		t.Errorf("assignee = %v", updated.AssigneeID)
	}
	if updated.Status != domain.TicketStatusPending {
		t.Errorf("status = %s, retry should keep the observed status", updated.Status)
	}
	if f.tickets.applyCalls != 2 {
		t.Errorf("ApplyTransition calls = %d, want 2", f.tickets.applyCalls)
	}
}

func TestAssignTicketConcurrentWinnerSurfacesConflict(t *testing.T) {
	dept := "dept-ops"
	f := newAssignmentFixture(staffUser("staff-loser", domain.RoleDomesticOpsStaff, dept))
	f.tickets.put(&domain.Ticket{ID: "t-1", CreatorID: "user-1", DepartmentID: dept, Status: domain.TicketStatusInProgress})

	// a rival assignment lands between this manager's read and write; the
	// status predicate alone would still match
	winner := "staff-winner"
	f.tickets.beforeApply = func(r *fakeTicketRepo) {
		r.tickets["t-1"].AssigneeID = &winner
		r.beforeApply = nil
	}

	_, err := f.service.AssignTicket(context.Background(), actorFor("mgr-1", domain.RoleDomesticOpsManager, &dept), "t-1", "staff-loser", "")
	wantCode(t, err, apperrors.CodeConflict)

	final, _ := f.tickets.GetByID(context.Background(), "t-1")
	if final.AssigneeID == nil || *final.AssigneeID != "staff-winner" {
		t.Errorf("assignee = %v, the concurrent winner must be kept", final.AssigneeID)
	}
	if f.tickets.applyCalls != 1 {
		t.Errorf("ApplyTransition calls = %d, want 1; the rival assignee must not be retried over", f.tickets.applyCalls)
	}
	if len(f.assignments.records) != 0 {
		t.Errorf("losing attempt wrote %d history rows", len(f.assignments.records))
	}
	if got := f.dispatcher.byType(events.EventTicketAssigned); len(got) != 0 {
		t.Errorf("losing attempt published %d ticket_assigned events", len(got))
	}
}

func TestAssignTicketConcurrentStatusAndAssigneeConflict(t *testing.T) {
	dept := "dept-ops"
	f := newAssignmentFixture(staffUser("staff-loser", domain.RoleDomesticOpsStaff, dept))
	f.tickets.put(&domain.Ticket{ID: "t-1", CreatorID: "user-1", DepartmentID: dept, Status: domain.TicketStatusOpen})

	// the rival assignment also moved the ticket OPEN -> IN_PROGRESS
	winner := "staff-winner"
	f.tickets.beforeApply = func(r *fakeTicketRepo) {
		r.tickets["t-1"].Status = domain.TicketStatusInProgress
		r.tickets["t-1"].AssigneeID = &winner
		r.beforeApply = nil
	}

	_, err := f.service.AssignTicket(context.Background(), actorFor("mgr-1", domain.RoleDomesticOpsManager, &dept), "t-1", "staff-loser", "")
	wantCode(t, err, apperrors.CodeConflict)

	final, _ := f.tickets.GetByID(context.Background(), "t-1")
	if final.AssigneeID == nil || *final.AssigneeID != "staff-winner" {
		t.Errorf("assignee = %v, the concurrent winner must be kept", final.AssigneeID)
	}
}

func TestAssignTicketHistoryFailureSwallowed(t *testing.T) {
	dept := "dept-ops"
	f := newAssignmentFixture(staffUser("staff-1", domain.RoleDomesticOpsStaff, dept))
	f.tickets.put(&domain.Ticket{ID: "t-1", CreatorID: "user-1", DepartmentID: dept, Status: domain.TicketStatusOpen})
	f.assignments.failErr = errors.New("history table unavailable")

	updated, err := f.service.AssignTicket(context.Background(), actorFor("mgr-1", domain.RoleDomesticOpsManager, &dept), "t-1", "staff-1", "")
	if err != nil {
		t.Fatalf("AssignTicket with failing history store: %v", err)
	}
	if *updated.AssigneeID != "staff-1" {
		t.Errorf("assignee = %v", updated.AssigneeID)
	}
}
