package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jwalitptl/caregiver-api/internal/repository"
	"github.com/jwalitptl/caregiver-api/pkg/logger"
)

// RetentionWorker purges delivered reminder events past the retention
// window on a daily cron schedule. Failed events are never purged;
// they are the operator's record of undelivered reminders.
type RetentionWorker struct {
	events        repository.ReminderEventRepository
	retentionDays int
	schedule      string
	cronEngine    *cron.Cron
	logger        *logger.Logger
}

func NewRetentionWorker(events repository.ReminderEventRepository, retentionDays int, schedule string, logger *logger.Logger) *RetentionWorker {
	if retentionDays <= 0 {
		panic("retentionDays must be greater than 0")
	}
	if schedule == "" {
		schedule = "@daily"
	}

	return &RetentionWorker{
		events:        events,
		retentionDays: retentionDays,
		schedule:      schedule,
		cronEngine:    cron.New(),
		logger:        logger,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) error {
	_, err := w.cronEngine.AddFunc(w.schedule, func() {
		jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		if err := w.cleanup(jobCtx); err != nil {
			w.logger.Error(err, "Reminder retention cleanup failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retention job: %w", err)
	}

	w.cronEngine.Start()
	w.logger.Info("Retention worker started",
		"schedule", w.schedule, "retention_days", w.retentionDays)
	return nil
}

func (w *RetentionWorker) Stop() {
	<-w.cronEngine.Stop().Done()
	w.logger.Info("Retention worker stopped")
}

func (w *RetentionWorker) cleanup(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.events.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge sent reminders: %w", err)
	}

	if rows > 0 {
		w.logger.Info("Purged sent reminder events",
			"deleted", rows, "older_than", cutoff.Format(time.RFC3339))
	}
	return nil
}
