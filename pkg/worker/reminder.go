package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/caregiver-api/internal/email"
	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/repository"
	"github.com/jwalitptl/caregiver-api/internal/service/reminder"

	"github.com/jwalitptl/caregiver-api/pkg/logger"
	"github.com/jwalitptl/caregiver-api/pkg/metrics"
)

type ReminderWorkerConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

// ReminderWorker is the engine's polling loop. Each tick refreshes
// cached certification statuses, then dispatches due reminder events,
// sequentially and to completion. Ticks never overlap within a
// process; a failed tick is logged and the loop resumes on the next
// interval.
type ReminderWorker struct {
	certs    repository.CertificationRepository
	events   repository.ReminderEventRepository
	emailSvc email.Service
	config   ReminderWorkerConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics

	// now is swappable for tests
	now func() time.Time
}

func NewReminderWorker(
	certs repository.CertificationRepository,
	events repository.ReminderEventRepository,
	emailSvc email.Service,
	config ReminderWorkerConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *ReminderWorker {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}

	return &ReminderWorker{
		certs:    certs,
		events:   events,
		emailSvc: emailSvc,
		config:   config,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.logger.Info("Starting reminder worker",
		"poll_interval", w.config.PollInterval.String(), "batch_size", w.config.BatchSize)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down reminder worker")
			return
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				w.logger.Error(err, "Tick failed")
			}
		}
	}
}

// Tick runs one refresh-then-dispatch cycle against a single wall
// clock reading, so status derivation and due selection agree on now.
func (w *ReminderWorker) Tick(ctx context.Context) error {
	timer := prometheus.NewTimer(w.metrics.TickDuration)
	defer timer.ObserveDuration()

	now := w.now()

	if err := w.refreshStatuses(ctx, now); err != nil {
		// Store unavailability aborts the whole tick; nothing partial
		// is left behind because every write is an atomic row update.
		return fmt.Errorf("failed to refresh statuses: %w", err)
	}

	return w.dispatchDue(ctx, now)
}

func (w *ReminderWorker) refreshStatuses(ctx context.Context, now time.Time) error {
	transitions, err := w.certs.RefreshStatuses(ctx, now)
	if err != nil {
		w.metrics.DatabaseOperations.WithLabelValues("refresh_statuses", "error").Inc()
		return err
	}
	w.metrics.DatabaseOperations.WithLabelValues("refresh_statuses", "success").Inc()

	for status, count := range transitions {
		w.metrics.StatusTransitions.WithLabelValues(string(status)).Add(float64(count))
		w.logger.Info("certification status transitions",
			"to_status", string(status), "count", count)
	}
	return nil
}

func (w *ReminderWorker) dispatchDue(ctx context.Context, now time.Time) error {
	due, err := w.events.GetDue(ctx, now, w.config.BatchSize)
	if err != nil {
		w.metrics.DatabaseOperations.WithLabelValues("get_due", "error").Inc()
		return fmt.Errorf("failed to select due reminders: %w", err)
	}
	w.metrics.DatabaseOperations.WithLabelValues("get_due", "success").Inc()
	w.metrics.DueQueueSize.Set(float64(len(due)))

	if len(due) == 0 {
		return nil
	}

	// One failing send must not abort the batch: each event gets its
	// own terminal write and the loop moves on.
	for _, item := range due {
		if err := w.dispatchOne(ctx, item, now); err != nil {
			w.logger.Error(err, "Failed to dispatch reminder",
				"event_id", item.EventID.String(),
				"certification_id", item.CertificationID.String())
		}
	}
	return nil
}

func (w *ReminderWorker) dispatchOne(ctx context.Context, item *model.DueReminder, now time.Time) error {
	msg := reminder.Render(item.CertName, item.ExpirationAt, model.CalendarDaysUntil(item.ExpirationAt, now))

	if err := w.emailSvc.Send(ctx, item.ProviderEmail, msg.Subject, msg.Body); err != nil {
		w.metrics.RemindersFailed.Inc()
		matched, updateErr := w.events.MarkFailed(ctx, item.EventID, err.Error())
		if updateErr != nil {
			w.logger.Error(updateErr, "Failed to record send failure",
				"event_id", item.EventID.String())
		} else if !matched {
			w.logger.Warn("Event already finalized by another dispatcher",
				"event_id", item.EventID.String())
		}
		return err
	}

	matched, err := w.events.MarkSent(ctx, item.EventID, now)
	if err != nil {
		// Send succeeded but the status write did not: the accepted
		// at-most-one-crash duplicate window.
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	if !matched {
		w.logger.Warn("Event already finalized by another dispatcher",
			"event_id", item.EventID.String())
		return nil
	}

	w.metrics.RemindersSent.Inc()
	w.logger.Info("reminder sent",
		"event_id", item.EventID.String(),
		"to", item.ProviderEmail,
		"days_remaining", msg.DaysRemaining)
	return nil
}
