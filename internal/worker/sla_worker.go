// Package worker hosts the background loops that run beside the HTTP server.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cargodesk/cargodesk/internal/config"
	"github.com/cargodesk/cargodesk/internal/events"
	"github.com/cargodesk/cargodesk/internal/repository"
)

// dedupe keys expire after a day so a ticket warns at most once per day while
// it remains open past the threshold.
const slaDedupeTTL = 24 * time.Hour

// SLAWorker periodically scans for tickets nearing their department SLA
// deadline and emits sla_breach_imminent events for them. Redis deduplicates
// warnings across sweeps and across replicas; when Redis is unavailable the
// sweep still runs and may warn more than once.
type SLAWorker struct {
	tickets    repository.TicketRepository
	cache      *redis.Client
	dispatcher events.Dispatcher
	cfg        config.SLAConfig
	logger     *zap.Logger
}

// NewSLAWorker wires the sweep loop. cache may be nil.
func NewSLAWorker(
	tickets repository.TicketRepository,
	cache *redis.Client,
	dispatcher events.Dispatcher,
	cfg config.SLAConfig,
	logger *zap.Logger,
) *SLAWorker {
	return &SLAWorker{
		tickets:    tickets,
		cache:      cache,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled, sweeping at the configured interval.
func (w *SLAWorker) Run(ctx context.Context) {
	interval := w.cfg.SweepInterval()
	w.logger.Info("sla worker started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sla worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass. Exported so a sweep can be triggered on demand.
func (w *SLAWorker) Sweep(ctx context.Context) {
	now := time.Now().UTC()
	candidates, err := w.tickets.ListBreachCandidates(ctx, now, w.cfg.ImminentFraction)
	if err != nil {
		w.logger.Error("sla sweep query failed", zap.Error(err))
		return
	}

	for _, candidate := range candidates {
		if !w.claim(ctx, candidate.Ticket.ID) {
			continue
		}
		deadline := candidate.Ticket.CreatedAt.Add(time.Duration(candidate.SLAHours) * time.Hour)
		event := events.Event{
			ID:           uuid.NewString(),
			Type:         events.EventSLABreachImminent,
			TicketID:     candidate.Ticket.ID,
			Status:       candidate.Ticket.Status,
			DepartmentID: candidate.Ticket.DepartmentID,
			Timestamp:    now,
			Payload: events.SLABreachImminentPayload{
				SLAHours:     candidate.SLAHours,
				Deadline:     deadline,
				AssigneeID:   candidate.Ticket.AssigneeID,
				CreatorID:    candidate.Ticket.CreatorID,
				ElapsedHours: now.Sub(candidate.Ticket.CreatedAt).Hours(),
			},
		}
		_ = w.dispatcher.Publish(ctx, event)
	}
}

// claim reserves the warning for a ticket. Returns true when this sweep is
// the first to see the ticket within the dedupe window.
func (w *SLAWorker) claim(ctx context.Context, ticketID string) bool {
	if w.cache == nil {
		return true
	}
	key := fmt.Sprintf("cargodesk:sla:warned:%s", ticketID)
	ok, err := w.cache.SetNX(ctx, key, 1, slaDedupeTTL).Result()
	if err != nil {
		w.logger.Warn("sla dedupe check failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return true
	}
	return ok
}
