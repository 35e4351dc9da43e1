package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cargodesk/cargodesk/internal/api/dto"
	"github.com/cargodesk/cargodesk/internal/auth"
	"github.com/cargodesk/cargodesk/internal/domain"
	"github.com/cargodesk/cargodesk/internal/service"
	apperrors "github.com/cargodesk/cargodesk/pkg/util"
)

// requireActor resolves the authenticated caller into a service actor. The
// origin address rides along for audit trail entries.
func requireActor(c *fiber.Ctx) (service.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return service.Actor{}, apperrors.NewUnauthenticated("authentication required")
	}
	return service.Actor{Profile: principal.Profile, Origin: c.IP()}, nil
}

func ticketSummary(t *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:           t.ID,
		ReferenceKey: t.ReferenceKey,
		Type:         t.Type,
		DepartmentID: t.DepartmentID,
		CreatorID:    t.CreatorID,
		AssigneeID:   t.AssigneeID,
		Title:        t.Title,
		Status:       t.Status,
		Priority:     t.Priority,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		ClosedAt:     t.ClosedAt,
	}
}

func ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	resp := dto.TicketDetailResponse{
		TicketSummary: ticketSummary(detail.Ticket),
		Description:   detail.Ticket.Description,
		SLAHours:      detail.SLAHours,
		SLABreached:   detail.SLABreached,
		Comments:      make([]dto.CommentResponse, 0, len(detail.Comments)),
		Assignments:   make([]dto.AssignmentResponse, 0, len(detail.Assignments)),
	}
	for i := range detail.Comments {
		resp.Comments = append(resp.Comments, commentResponse(&detail.Comments[i]))
	}
	for i := range detail.Quotes {
		resp.Quotes = append(resp.Quotes, quoteResponse(&detail.Quotes[i]))
	}
	for _, a := range detail.Assignments {
		resp.Assignments = append(resp.Assignments, dto.AssignmentResponse{
			ID:         a.ID,
			AssigneeID: a.AssigneeID,
			AssignerID: a.AssignerID,
			Notes:      a.Notes,
			CreatedAt:  a.CreatedAt,
		})
	}
	return resp
}

func commentResponse(cm *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        cm.ID,
		AuthorID:  cm.AuthorID,
		Body:      cm.Body,
		CreatedAt: cm.CreatedAt,
	}
}

func quoteResponse(q *domain.Quote) dto.QuoteResponse {
	return dto.QuoteResponse{
		ID:         q.ID,
		AuthorID:   q.AuthorID,
		Amount:     q.Amount,
		Currency:   q.Currency,
		ValidUntil: q.ValidUntil,
		Notes:      q.Notes,
		CreatedAt:  q.CreatedAt,
	}
}

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		RoleName:     u.RoleName,
		DepartmentID: u.DepartmentID,
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func departmentResponse(d *domain.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		ID:              d.ID,
		Code:            d.Code,
		Name:            d.Name,
		DefaultSLAHours: d.DefaultSLAHours,
		IsActive:        d.IsActive,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func auditEntryResponse(e *domain.AuditEntry) dto.AuditEntryResponse {
	return dto.AuditEntryResponse{
		ID:         e.ID,
		TableName:  e.TableName,
		RecordID:   e.RecordID,
		Action:     e.Action,
		OldValues:  e.OldValues,
		NewValues:  e.NewValues,
		ActorID:    e.ActorID,
		OriginAddr: e.OriginAddr,
		CreatedAt:  e.CreatedAt,
	}
}
