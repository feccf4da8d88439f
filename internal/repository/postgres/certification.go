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

type certificationTypeRepository struct {
	*BaseRepository
}

func NewCertificationTypeRepository(base BaseRepository) repository.CertificationTypeRepository {
	return &certificationTypeRepository{BaseRepository: &base}
}

func (r *certificationTypeRepository) List(ctx context.Context) ([]*model.CertificationType, error) {
	query := `
		SELECT id, name, is_common, created_at, updated_at
		FROM certification_types
		ORDER BY is_common DESC, name ASC
	`
	var types []*model.CertificationType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("failed to list certification types: %w", err)
	}
	return types, nil
}

func (r *certificationTypeRepository) Get(ctx context.Context, id uuid.UUID) (*model.CertificationType, error) {
	query := `SELECT id, name, is_common, created_at, updated_at FROM certification_types WHERE id = $1`
	var ct model.CertificationType
	if err := r.db.GetContext(ctx, &ct, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("certification type", err)
		}
		return nil, err
	}
	return &ct, nil
}

type certificationRepository struct {
	*BaseRepository
}

func NewCertificationRepository(base BaseRepository) repository.CertificationRepository {
	return &certificationRepository{BaseRepository: &base}
}

const certificationColumns = `
	c.id, c.provider_id, c.type_id, c.custom_name, c.issued_at,
	c.expiration_at, c.status, c.notes, c.created_at, c.updated_at,
	t.name AS type_name
`

func (r *certificationRepository) Create(ctx context.Context, cert *model.Certification) error {
	query := `
		INSERT INTO certifications (
			id, provider_id, type_id, custom_name, issued_at,
			expiration_at, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	cert.ID = uuid.New()
	cert.CreatedAt = time.Now()
	cert.UpdatedAt = cert.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		cert.ID,
		cert.ProviderID,
		cert.TypeID,
		cert.CustomName,
		cert.IssuedAt,
		cert.ExpirationAt,
		cert.Status,
		cert.Notes,
		cert.CreatedAt,
		cert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create certification: %w", err)
	}
	return nil
}

func (r *certificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Certification, error) {
	query := `
		SELECT ` + certificationColumns + `
		FROM certifications c
		LEFT JOIN certification_types t ON t.id = c.type_id
		WHERE c.id = $1
	`
	var cert model.Certification
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("certification", err)
		}
		return nil, err
	}
	return &cert, nil
}

func (r *certificationRepository) GetForProvider(ctx context.Context, id, providerID uuid.UUID) (*model.Certification, error) {
	query := `
		SELECT ` + certificationColumns + `
		FROM certifications c
		LEFT JOIN certification_types t ON t.id = c.type_id
		WHERE c.id = $1 AND c.provider_id = $2
	`
	var cert model.Certification
	if err := r.db.GetContext(ctx, &cert, query, id, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("certification", err)
		}
		return nil, err
	}
	return &cert, nil
}

func (r *certificationRepository) Update(ctx context.Context, cert *model.Certification) error {
	query := `
		UPDATE certifications
		SET type_id = $1, custom_name = $2, issued_at = $3,
			expiration_at = $4, status = $5, notes = $6, updated_at = $7
		WHERE id = $8
	`
	cert.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		cert.TypeID,
		cert.CustomName,
		cert.IssuedAt,
		cert.ExpirationAt,
		cert.Status,
		cert.Notes,
		cert.UpdatedAt,
		cert.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update certification: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("certification", nil)
	}
	return nil
}

func (r *certificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// reminder_events go with it via ON DELETE CASCADE
	result, err := r.db.ExecContext(ctx, `DELETE FROM certifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete certification: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("certification", nil)
	}
	return nil
}

func (r *certificationRepository) List(ctx context.Context, providerID uuid.UUID, status *model.CertificationStatus) ([]*model.Certification, error) {
	query := `
		SELECT ` + certificationColumns + `
		FROM certifications c
		LEFT JOIN certification_types t ON t.id = c.type_id
		WHERE c.provider_id = $1
	`
	args := []interface{}{providerID}
	if status != nil {
		query += ` AND c.status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY c.expiration_at ASC NULLS LAST, c.created_at DESC`

	var certs []*model.Certification
	if err := r.db.SelectContext(ctx, &certs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list certifications: %w", err)
	}
	return certs, nil
}

// RefreshStatuses runs three set-based updates, one per derived status.
// Each statement only touches rows whose cached status disagrees with
// the derived value, so a second run with the same now writes nothing.
// The missing status is assigned by hand, never by this refresh.
func (r *certificationRepository) RefreshStatuses(ctx context.Context, now time.Time) (map[model.CertificationStatus]int64, error) {
	transitions := make(map[model.CertificationStatus]int64, 3)

	statements := []struct {
		to    model.CertificationStatus
		query string
	}{
		{model.CertificationStatusExpired, `
			UPDATE certifications
			SET status = 'expired', updated_at = $1
			WHERE expiration_at IS NOT NULL
			  AND expiration_at < $1
			  AND status NOT IN ('expired', 'missing')
		`},
		{model.CertificationStatusExpiringSoon, `
			UPDATE certifications
			SET status = 'expiring_soon', updated_at = $1
			WHERE expiration_at IS NOT NULL
			  AND expiration_at >= $1
			  AND expiration_at < $1 + INTERVAL '31 days'
			  AND status NOT IN ('expiring_soon', 'missing')
		`},
		{model.CertificationStatusActive, `
			UPDATE certifications
			SET status = 'active', updated_at = $1
			WHERE (expiration_at IS NULL OR expiration_at >= $1 + INTERVAL '31 days')
			  AND status NOT IN ('active', 'missing')
		`},
	}

	for _, stmt := range statements {
		result, err := r.db.ExecContext(ctx, stmt.query, now)
		if err != nil {
			return transitions, fmt.Errorf("failed to refresh %s statuses: %w", stmt.to, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return transitions, err
		}
		if rows > 0 {
			transitions[stmt.to] = rows
		}
	}

	return transitions, nil
}
