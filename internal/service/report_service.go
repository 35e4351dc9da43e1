package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cargodesk/cargodesk/internal/domain"
	"github.com/cargodesk/cargodesk/internal/repository"
	apperrors "github.com/cargodesk/cargodesk/pkg/util"
)

const dashboardCacheKey = "cargodesk:dashboard:summary"

// DashboardSummary is the aggregate view served to managers.
type DashboardSummary struct {
	TicketsByStatus     map[domain.TicketStatus]int64 `json:"tickets_by_status"`
	TicketsByType       map[domain.TicketType]int64   `json:"tickets_by_type"`
	TicketsByDepartment map[string]int64              `json:"tickets_by_department"`
	BreachedCount       int64                         `json:"breached_count"`
	GeneratedAt         time.Time                     `json:"generated_at"`
}

// ReportService computes dashboard aggregates, caching them in Redis. Store
// failures surface as dependency failures; there is no silent in-memory
// fallback that would serve partial numbers.
type ReportService struct {
	tickets repository.TicketRepository
	cache   *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
}

// NewReportService constructs the service. cache may be nil.
func NewReportService(tickets repository.TicketRepository, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *ReportService {
	return &ReportService{tickets: tickets, cache: cache, ttl: ttl, logger: logger}
}

// Dashboard returns the summary, serving a cached copy when fresh.
// Manager-or-above only.
func (s *ReportService) Dashboard(ctx context.Context, actor Actor) (*DashboardSummary, error) {
	if actor.Profile == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	if actor.Profile.Tier() < domain.TierManager {
		return nil, apperrors.NewForbidden("dashboard requires a manager role")
	}

	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	summary, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, summary)
	return summary, nil
}

func (s *ReportService) compute(ctx context.Context) (*DashboardSummary, error) {
	now := time.Now()

	byStatus, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.NewDependencyFailure("dashboard aggregation failed", err)
	}
	byType, err := s.tickets.CountByType(ctx)
	if err != nil {
		return nil, apperrors.NewDependencyFailure("dashboard aggregation failed", err)
	}
	byDept, err := s.tickets.CountByDepartment(ctx)
	if err != nil {
		return nil, apperrors.NewDependencyFailure("dashboard aggregation failed", err)
	}
	breached, err := s.tickets.CountBreached(ctx, now)
	if err != nil {
		return nil, apperrors.NewDependencyFailure("dashboard aggregation failed", err)
	}

	summary := &DashboardSummary{
		TicketsByStatus:     make(map[domain.TicketStatus]int64, len(byStatus)),
		TicketsByType:       make(map[domain.TicketType]int64, len(byType)),
		TicketsByDepartment: make(map[string]int64, len(byDept)),
		BreachedCount:       breached,
		GeneratedAt:         now,
	}
	for _, row := range byStatus {
		summary.TicketsByStatus[row.Status] = row.Count
	}
	for _, row := range byType {
		summary.TicketsByType[row.Type] = row.Count
	}
	for _, row := range byDept {
		summary.TicketsByDepartment[row.DepartmentCode] = row.Count
	}
	return summary, nil
}

func (s *ReportService) fromCache(ctx context.Context) *DashboardSummary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, dashboardCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		return nil
	}
	var summary DashboardSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil
	}
	return &summary
}

func (s *ReportService) toCache(ctx context.Context, summary *DashboardSummary) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
}
