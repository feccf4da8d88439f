package reminder

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/caregiver-api/pkg/errors"

	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/repository/memory"
)

func newTestRuleService() (*RuleService, *memory.RuleRepo) {
	repo := &memory.RuleRepo{Store: memory.NewStore()}
	return NewRuleService(repo), repo
}

func TestRuleServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRuleService()
	providerID := uuid.New()

	rule, err := svc.CreateRule(ctx, providerID, &model.CreateReminderRuleRequest{
		DaysBeforeExpiration: 14,
		Enabled:              true,
	})
	require.NoError(t, err)
	assert.Equal(t, providerID, rule.ProviderID)
	assert.Equal(t, 14, rule.DaysBeforeExpiration)
	assert.NotEqual(t, uuid.Nil, rule.ID)
}

func TestRuleServiceRejectsDuplicateOffset(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRuleService()
	providerID := uuid.New()

	req := &model.CreateReminderRuleRequest{DaysBeforeExpiration: 14, Enabled: true}
	_, err := svc.CreateRule(ctx, providerID, req)
	require.NoError(t, err)

	_, err = svc.CreateRule(ctx, providerID, req)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))

	// A different provider may use the same offset.
	_, err = svc.CreateRule(ctx, uuid.New(), req)
	assert.NoError(t, err)
}

func TestRuleServiceRejectsNonPositiveOffset(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRuleService()

	_, err := svc.CreateRule(ctx, uuid.New(), &model.CreateReminderRuleRequest{DaysBeforeExpiration: 0})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	_, err = svc.CreateRule(ctx, uuid.New(), &model.CreateReminderRuleRequest{DaysBeforeExpiration: -3})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}

func TestRuleServiceUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRuleService()
	providerID := uuid.New()

	rule, err := svc.CreateRule(ctx, providerID, &model.CreateReminderRuleRequest{
		DaysBeforeExpiration: 14,
		Enabled:              true,
	})
	require.NoError(t, err)

	disabled := false
	days := 10
	updated, err := svc.UpdateRule(ctx, providerID, rule.ID, &model.UpdateReminderRuleRequest{
		DaysBeforeExpiration: &days,
		Enabled:              &disabled,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.DaysBeforeExpiration)
	assert.False(t, updated.Enabled)

	// Another provider cannot touch the rule.
	_, err = svc.UpdateRule(ctx, uuid.New(), rule.ID, &model.UpdateReminderRuleRequest{Enabled: &disabled})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestRuleServiceDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRuleService()
	providerID := uuid.New()

	rule, err := svc.CreateRule(ctx, providerID, &model.CreateReminderRuleRequest{
		DaysBeforeExpiration: 14,
		Enabled:              true,
	})
	require.NoError(t, err)

	err = svc.DeleteRule(ctx, uuid.New(), rule.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

	require.NoError(t, svc.DeleteRule(ctx, providerID, rule.ID))

	rules, err := svc.ListRules(ctx, providerID)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestEnsureDefaultRules(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestRuleService()
	providerID := uuid.New()

	require.NoError(t, svc.EnsureDefaultRules(ctx, providerID))

	rules, err := repo.List(ctx, providerID)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	var offsets []int
	for _, r := range rules {
		offsets = append(offsets, r.DaysBeforeExpiration)
		assert.True(t, r.Enabled)
	}
	assert.ElementsMatch(t, model.DefaultReminderOffsets, offsets)

	// Re-running does not duplicate the seed.
	require.NoError(t, svc.EnsureDefaultRules(ctx, providerID))
	rules, err = repo.List(ctx, providerID)
	require.NoError(t, err)
	assert.Len(t, rules, 3)
}

func TestEnsureDefaultRulesSkipsProviderWithOwnRules(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestRuleService()
	providerID := uuid.New()

	_, err := svc.CreateRule(ctx, providerID, &model.CreateReminderRuleRequest{
		DaysBeforeExpiration: 60,
		Enabled:              true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.EnsureDefaultRules(ctx, providerID))

	rules, err := repo.List(ctx, providerID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 60, rules[0].DaysBeforeExpiration)
}
