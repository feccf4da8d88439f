package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/caregiver-api/pkg/errors"

	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/repository"
)

type providerRepository struct {
	*BaseRepository
}

func NewProviderRepository(base BaseRepository) repository.ProviderRepository {
	return &providerRepository{BaseRepository: &base}
}

func (r *providerRepository) Create(ctx context.Context, provider *model.Provider) error {
	query := `
		INSERT INTO providers (id, email, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	provider.ID = uuid.New()
	provider.CreatedAt = time.Now()
	provider.UpdatedAt = provider.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		provider.ID,
		provider.Email,
		provider.Name,
		provider.PasswordHash,
		provider.CreatedAt,
		provider.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

func (r *providerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	query := `SELECT id, email, name, password_hash, created_at, updated_at FROM providers WHERE id = $1`
	var provider model.Provider
	if err := r.db.GetContext(ctx, &provider, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("provider", err)
		}
		return nil, err
	}
	return &provider, nil
}

func (r *providerRepository) GetByEmail(ctx context.Context, email string) (*model.Provider, error) {
	query := `SELECT id, email, name, password_hash, created_at, updated_at FROM providers WHERE email = $1`
	var provider model.Provider
	if err := r.db.GetContext(ctx, &provider, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("provider", err)
		}
		return nil, err
	}
	return &provider, nil
}
