package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/caregiver-api/pkg/errors"
	"github.com/jwalitptl/caregiver-api/pkg/logger"

	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/repository"
)

// Scheduler materializes concrete reminder events from a
// certification's expiration date and the owning provider's rules.
// It only ever writes rows; sending is the dispatcher's job.
type Scheduler struct {
	rules  repository.ReminderRuleRepository
	events repository.ReminderEventRepository
	logger *logger.Logger

	// now is swappable for tests
	now func() time.Time
}

func NewScheduler(rules repository.ReminderRuleRepository, events repository.ReminderEventRepository, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		rules:  rules,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the scheduler's clock. Tests use it to pin time.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Materialize creates one scheduled event per applicable offset,
// skipping offsets that already fall in the past. Returns the number
// of events actually written; re-running is a no-op thanks to the
// insert-if-absent guard in the event store.
func (s *Scheduler) Materialize(ctx context.Context, cert *model.Certification) (int, error) {
	if cert.ExpirationAt == nil {
		return 0, apperrors.BadRequest("certification has no expiration date", nil)
	}

	offsets, err := s.offsetsForProvider(ctx, cert.ProviderID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	created := 0
	for _, days := range offsets {
		candidate := cert.ExpirationAt.AddDate(0, 0, -days)
		if candidate.Before(now) {
			// A late-discovered expiration must not spam long-past
			// offsets. An offset landing exactly on now still counts;
			// it becomes due on the next tick.
			continue
		}

		event := &model.ReminderEvent{
			CertificationID: cert.ID,
			ScheduledFor:    candidate,
		}
		inserted, err := s.events.CreateIfAbsent(ctx, event)
		if err != nil {
			return created, fmt.Errorf("failed to materialize reminder at %d days: %w", days, err)
		}
		if inserted {
			created++
		}
	}

	if created > 0 {
		s.logger.Info("materialized reminder events",
			"certification_id", cert.ID.String(), "events", created)
	}
	return created, nil
}

// Rematerialize drops the certification's still-pending events and
// rebuilds them from the current expiration date. Sent and failed
// events are never touched.
func (s *Scheduler) Rematerialize(ctx context.Context, cert *model.Certification) (int, error) {
	deleted, err := s.events.DeleteScheduled(ctx, cert.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate scheduled events: %w", err)
	}
	if deleted > 0 {
		s.logger.Debug("invalidated scheduled events",
			"certification_id", cert.ID.String(), "deleted", deleted)
	}

	if cert.ExpirationAt == nil {
		return 0, nil
	}
	return s.Materialize(ctx, cert)
}

// InvalidateScheduled removes pending events without rebuilding, for
// when an expiration date is cleared outright.
func (s *Scheduler) InvalidateScheduled(ctx context.Context, cert *model.Certification) error {
	_, err := s.events.DeleteScheduled(ctx, cert.ID)
	return err
}

func (s *Scheduler) offsetsForProvider(ctx context.Context, providerID uuid.UUID) ([]int, error) {
	rules, err := s.rules.ListEnabled(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder rules: %w", err)
	}
	if len(rules) == 0 {
		return model.DefaultReminderOffsets, nil
	}

	offsets := make([]int, 0, len(rules))
	for _, rule := range rules {
		if rule.DaysBeforeExpiration <= 0 {
			return nil, apperrors.BadRequest(
				fmt.Sprintf("malformed reminder rule %s: non-positive offset", rule.ID), nil)
		}
		offsets = append(offsets, rule.DaysBeforeExpiration)
	}
	return offsets, nil
}
