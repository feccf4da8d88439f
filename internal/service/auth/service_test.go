package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/caregiver-api/pkg/errors"

	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/repository/memory"
)

func newTestService() *Service {
	return NewService(&memory.ProviderRepo{Store: memory.NewStore()}, "test-secret", time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	provider, err := svc.Register(ctx, &model.RegisterProviderRequest{
		Email:    "carer@example.com",
		Name:     "Pat Carer",
		Password: "correct horse battery staple",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, provider.PasswordHash)
	assert.NotEqual(t, "correct horse battery staple", provider.PasswordHash)

	token, loggedIn, err := svc.Login(ctx, &model.LoginRequest{
		Email:    "carer@example.com",
		Password: "correct horse battery staple",
	})
	require.NoError(t, err)
	assert.Equal(t, provider.ID, loggedIn.ID)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, provider.ID.String(), claims.ProviderID)
	assert.Equal(t, "carer@example.com", claims.Email)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	req := &model.RegisterProviderRequest{
		Email:    "carer@example.com",
		Name:     "Pat Carer",
		Password: "password123",
	}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Register(ctx, &model.RegisterProviderRequest{
		Email:    "carer@example.com",
		Name:     "Pat Carer",
		Password: "password123",
	})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, &model.LoginRequest{
		Email:    "carer@example.com",
		Password: "wrong",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))

	_, _, err = svc.Login(ctx, &model.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
}

func TestValidateTokenRejectsForgery(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Register(ctx, &model.RegisterProviderRequest{
		Email:    "carer@example.com",
		Name:     "Pat Carer",
		Password: "password123",
	})
	require.NoError(t, err)

	token, _, err := svc.Login(ctx, &model.LoginRequest{
		Email:    "carer@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	other := NewService(&memory.ProviderRepo{Store: memory.NewStore()}, "different-secret", time.Hour)
	_, err = other.ValidateToken(ctx, token)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))

	_, err = svc.ValidateToken(ctx, "not-a-token")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&memory.ProviderRepo{Store: memory.NewStore()}, "test-secret", -time.Hour)

	_, err := svc.Register(ctx, &model.RegisterProviderRequest{
		Email:    "carer@example.com",
		Name:     "Pat Carer",
		Password: "password123",
	})
	require.NoError(t, err)

	token, _, err := svc.Login(ctx, &model.LoginRequest{
		Email:    "carer@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, token)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
}
