package escalation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/metadata"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

// Finder lists open requests that are candidates for SLA escalation.
type Finder interface {
	ListEscalatable(stages []metadata.Stage) (*[]models.Request, error)
}

// Escalator force-advances a single stalled request. Satisfied by the
// request service.
type Escalator interface {
	EscalateRequest(requestID uuid.UUID) (bool, error)
}

// Scheduler periodically sweeps stalled requests past their SLA window.
// It holds no lock across requests: each escalation is an independent
// conditional transition, so a failed or raced request is simply retried
// on the next sweep.
type Scheduler struct {
	finder    Finder
	escalator Escalator
	stages    []metadata.Stage
	interval  time.Duration
	log       *zap.Logger
	clock     func() time.Time
}

func NewScheduler(finder Finder, escalator Escalator, stages []metadata.Stage, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		finder:    finder,
		escalator: escalator,
		stages:    stages,
		interval:  interval,
		log:       log,
		clock:     time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	s.clock = clock
	return s
}

// Run drives sweeps on a ticker until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("escalation scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("escalation scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep escalates every request whose SLA window has elapsed. Per-request
// failures are logged and skipped; the sweep always finishes the batch.
func (s *Scheduler) Sweep() int {
	candidates, err := s.finder.ListEscalatable(s.stages)
	if err != nil {
		s.log.Error("failed to list escalatable requests", zap.Error(err))
		return 0
	}

	now := s.clock()
	escalated := 0
	for i := range *candidates {
		request := &(*candidates)[i]

		if !request.Escalation.Enabled {
			continue
		}

		elapsedHours := now.Sub(request.Escalation.LastActionAt).Hours()
		if elapsedHours < request.Escalation.EscalateAfterHours {
			continue
		}

		applied, err := s.escalator.EscalateRequest(request.ID)
		if err != nil {
			s.log.Warn("failed to escalate request",
				zap.String("request_id", request.ID.String()),
				zap.String("current_level", request.CurrentLevel.String()),
				zap.Error(err),
			)
			continue
		}
		if applied {
			escalated++
			s.log.Info("request escalated",
				zap.String("request_id", request.ID.String()),
				zap.Float64("elapsed_hours", elapsedHours),
			)
		}
	}

	return escalated
}
