package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/jwalitptl/caregiver-api/pkg/errors"

	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/repository"
)

// Postgres error code for unique_violation
const uniqueViolation = "23505"

type reminderRuleRepository struct {
	*BaseRepository
}

func NewReminderRuleRepository(base BaseRepository) repository.ReminderRuleRepository {
	return &reminderRuleRepository{BaseRepository: &base}
}

func (r *reminderRuleRepository) Create(ctx context.Context, rule *model.ReminderRule) error {
	query := `
		INSERT INTO reminder_rules (id, provider_id, days_before_expiration, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	rule.ID = uuid.New()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.ProviderID,
		rule.DaysBeforeExpiration,
		rule.Enabled,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return apperrors.Conflict(
				fmt.Sprintf("a rule for %d days before expiration already exists", rule.DaysBeforeExpiration), err)
		}
		return fmt.Errorf("failed to create reminder rule: %w", err)
	}
	return nil
}

func (r *reminderRuleRepository) GetForProvider(ctx context.Context, id, providerID uuid.UUID) (*model.ReminderRule, error) {
	query := `
		SELECT id, provider_id, days_before_expiration, enabled, created_at, updated_at
		FROM reminder_rules
		WHERE id = $1 AND provider_id = $2
	`
	var rule model.ReminderRule
	if err := r.db.GetContext(ctx, &rule, query, id, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("reminder rule", err)
		}
		return nil, err
	}
	return &rule, nil
}

func (r *reminderRuleRepository) Update(ctx context.Context, rule *model.ReminderRule) error {
	query := `
		UPDATE reminder_rules
		SET days_before_expiration = $1, enabled = $2, updated_at = $3
		WHERE id = $4
	`
	rule.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query, rule.DaysBeforeExpiration, rule.Enabled, rule.UpdatedAt, rule.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return apperrors.Conflict(
				fmt.Sprintf("a rule for %d days before expiration already exists", rule.DaysBeforeExpiration), err)
		}
		return fmt.Errorf("failed to update reminder rule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("reminder rule", nil)
	}
	return nil
}

func (r *reminderRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reminder_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder rule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("reminder rule", nil)
	}
	return nil
}

func (r *reminderRuleRepository) List(ctx context.Context, providerID uuid.UUID) ([]*model.ReminderRule, error) {
	query := `
		SELECT id, provider_id, days_before_expiration, enabled, created_at, updated_at
		FROM reminder_rules
		WHERE provider_id = $1
		ORDER BY days_before_expiration DESC
	`
	var rules []*model.ReminderRule
	if err := r.db.SelectContext(ctx, &rules, query, providerID); err != nil {
		return nil, fmt.Errorf("failed to list reminder rules: %w", err)
	}
	return rules, nil
}

func (r *reminderRuleRepository) ListEnabled(ctx context.Context, providerID uuid.UUID) ([]*model.ReminderRule, error) {
	query := `
		SELECT id, provider_id, days_before_expiration, enabled, created_at, updated_at
		FROM reminder_rules
		WHERE provider_id = $1 AND enabled = TRUE
		ORDER BY days_before_expiration DESC
	`
	var rules []*model.ReminderRule
	if err := r.db.SelectContext(ctx, &rules, query, providerID); err != nil {
		return nil, fmt.Errorf("failed to list enabled reminder rules: %w", err)
	}
	return rules, nil
}

func (r *reminderRuleRepository) CountForProvider(ctx context.Context, providerID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reminder_rules WHERE provider_id = $1`, providerID)
	if err != nil {
		return 0, fmt.Errorf("failed to count reminder rules: %w", err)
	}
	return count, nil
}
