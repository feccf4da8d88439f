package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/repository"
)

type reminderEventRepository struct {
	*BaseRepository
}

func NewReminderEventRepository(base BaseRepository) repository.ReminderEventRepository {
	return &reminderEventRepository{BaseRepository: &base}
}

// CreateIfAbsent relies on the partial unique index on
// (certification_id, scheduled_for) WHERE status = 'scheduled', so
// re-running materialization never duplicates a pending reminder.
func (r *reminderEventRepository) CreateIfAbsent(ctx context.Context, event *model.ReminderEvent) (bool, error) {
	query := `
		INSERT INTO reminder_events (id, certification_id, scheduled_for, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (certification_id, scheduled_for) WHERE status = 'scheduled' DO NOTHING
	`
	event.ID = uuid.New()
	event.Status = model.ReminderEventStatusScheduled
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt

	result, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.CertificationID,
		event.ScheduledFor,
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create reminder event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *reminderEventRepository) ListForCertification(ctx context.Context, certificationID uuid.UUID) ([]*model.ReminderEvent, error) {
	query := `
		SELECT id, certification_id, scheduled_for, status, sent_at, error_message, created_at, updated_at
		FROM reminder_events
		WHERE certification_id = $1
		ORDER BY scheduled_for ASC
	`
	var events []*model.ReminderEvent
	if err := r.db.SelectContext(ctx, &events, query, certificationID); err != nil {
		return nil, fmt.Errorf("failed to list reminder events: %w", err)
	}
	return events, nil
}

// DeleteScheduled removes pending events for a certification, ahead of
// re-materialization from a changed expiration date. Sent and failed
// rows stay put as the delivery audit trail.
func (r *reminderEventRepository) DeleteScheduled(ctx context.Context, certificationID uuid.UUID) (int64, error) {
	query := `DELETE FROM reminder_events WHERE certification_id = $1 AND status = 'scheduled'`
	result, err := r.db.ExecContext(ctx, query, certificationID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete scheduled events: %w", err)
	}
	return result.RowsAffected()
}

func (r *reminderEventRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]*model.DueReminder, error) {
	query := `
		SELECT e.id AS event_id,
			e.certification_id,
			p.id AS provider_id,
			p.email AS provider_email,
			p.name AS provider_name,
			COALESCE(t.name, c.custom_name, '') AS cert_name,
			c.expiration_at,
			e.scheduled_for
		FROM reminder_events e
		JOIN certifications c ON c.id = e.certification_id
		JOIN providers p ON p.id = c.provider_id
		LEFT JOIN certification_types t ON t.id = c.type_id
		WHERE e.status = 'scheduled'
		  AND e.scheduled_for <= $1
		  AND c.expiration_at IS NOT NULL
		ORDER BY e.scheduled_for ASC
		LIMIT $2
		FOR UPDATE OF e SKIP LOCKED
	`
	var due []*model.DueReminder
	if err := r.db.SelectContext(ctx, &due, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to select due reminders: %w", err)
	}
	return due, nil
}

func (r *reminderEventRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	// The status guard doubles as an optimistic-concurrency check: a row
	// already finalized by another dispatcher will not match.
	query := `
		UPDATE reminder_events
		SET status = 'sent', sent_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'scheduled'
	`
	result, err := r.db.ExecContext(ctx, query, id, sentAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *reminderEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) (bool, error) {
	query := `
		UPDATE reminder_events
		SET status = 'failed', error_message = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
	`
	result, err := r.db.ExecContext(ctx, query, id, errorMessage)
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder failed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// DeleteSentBefore purges delivered reminders past the retention
// window. Failed rows are kept; operators query them for follow-up.
func (r *reminderEventRepository) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM reminder_events WHERE status = 'sent' AND sent_at < $1`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sent events: %w", err)
	}
	return result.RowsAffected()
}
