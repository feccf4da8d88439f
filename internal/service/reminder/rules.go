package reminder

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/caregiver-api/pkg/errors"

	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/repository"
)

// RuleService manages per-provider reminder rules. Disabling a rule
// only stops future materialization; events already scheduled under it
// stay in place until dispatched or the certification changes.
type RuleService struct {
	rules repository.ReminderRuleRepository
}

func NewRuleService(rules repository.ReminderRuleRepository) *RuleService {
	return &RuleService{rules: rules}
}

func (s *RuleService) ListRules(ctx context.Context, providerID uuid.UUID) ([]*model.ReminderRule, error) {
	return s.rules.List(ctx, providerID)
}

func (s *RuleService) CreateRule(ctx context.Context, providerID uuid.UUID, req *model.CreateReminderRuleRequest) (*model.ReminderRule, error) {
	if req.DaysBeforeExpiration <= 0 {
		return nil, apperrors.BadRequest("days_before_expiration must be positive", nil)
	}

	rule := &model.ReminderRule{
		ProviderID:           providerID,
		DaysBeforeExpiration: req.DaysBeforeExpiration,
		Enabled:              req.Enabled,
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RuleService) UpdateRule(ctx context.Context, providerID, ruleID uuid.UUID, req *model.UpdateReminderRuleRequest) (*model.ReminderRule, error) {
	rule, err := s.rules.GetForProvider(ctx, ruleID, providerID)
	if err != nil {
		return nil, err
	}

	if req.DaysBeforeExpiration != nil {
		if *req.DaysBeforeExpiration <= 0 {
			return nil, apperrors.BadRequest("days_before_expiration must be positive", nil)
		}
		rule.DaysBeforeExpiration = *req.DaysBeforeExpiration
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RuleService) DeleteRule(ctx context.Context, providerID, ruleID uuid.UUID) error {
	rule, err := s.rules.GetForProvider(ctx, ruleID, providerID)
	if err != nil {
		return err
	}
	return s.rules.Delete(ctx, rule.ID)
}

// EnsureDefaultRules seeds the 30/7/1 triple the first time a provider
// needs reminders and has no rules of their own.
func (s *RuleService) EnsureDefaultRules(ctx context.Context, providerID uuid.UUID) error {
	count, err := s.rules.CountForProvider(ctx, providerID)
	if err != nil {
		return fmt.Errorf("failed to check existing rules: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, days := range model.DefaultReminderOffsets {
		rule := &model.ReminderRule{
			ProviderID:           providerID,
			DaysBeforeExpiration: days,
			Enabled:              true,
		}
		if err := s.rules.Create(ctx, rule); err != nil {
			// Another request may have seeded concurrently.
			if apperrors.IsCode(err, apperrors.ErrConflict) {
				continue
			}
			return fmt.Errorf("failed to seed default rule (%d days): %w", days, err)
		}
	}
	return nil
}
