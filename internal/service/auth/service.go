package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/jwalitptl/caregiver-api/pkg/errors"

	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/repository"
)

type Claims struct {
	ProviderID string `json:"provider_id"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

type Service struct {
	providers repository.ProviderRepository
	secret    []byte
	expiry    time.Duration
}

func NewService(providers repository.ProviderRepository, secret string, expiry time.Duration) *Service {
	return &Service{
		providers: providers,
		secret:    []byte(secret),
		expiry:    expiry,
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterProviderRequest) (*model.Provider, error) {
	if existing, err := s.providers.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, apperrors.Conflict("email already registered", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	provider := &model.Provider{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
	}
	if err := s.providers.Create(ctx, provider); err != nil {
		return nil, err
	}
	return provider, nil
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (string, *model.Provider, error) {
	provider, err := s.providers.GetByEmail(ctx, req.Email)
	if err != nil {
		return "", nil, apperrors.Unauthorized(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(provider.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, apperrors.Unauthorized(err)
	}

	token, err := s.issueToken(provider)
	if err != nil {
		return "", nil, err
	}
	return token, provider, nil
}

func (s *Service) issueToken(provider *model.Provider) (string, error) {
	now := time.Now()
	claims := &Claims{
		ProviderID: provider.ID.String(),
		Email:      provider.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			Subject:   provider.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) ValidateToken(_ context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized(err)
	}

	if _, err := uuid.Parse(claims.ProviderID); err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}
