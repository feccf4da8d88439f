package certification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	apperrors "github.com/jwalitptl/caregiver-api/pkg/errors"
	"github.com/jwalitptl/caregiver-api/pkg/logger"

	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/repository"
	"github.com/jwalitptl/caregiver-api/internal/service/reminder"
)

// Service owns certification CRUD and keeps the reminder schedule in
// step with expiration-date changes.
type Service struct {
	certs     repository.CertificationRepository
	types     repository.CertificationTypeRepository
	events    repository.ReminderEventRepository
	scheduler *reminder.Scheduler
	rules     *reminder.RuleService
	logger    *logger.Logger

	// typeCache holds the seeded certification type list; it changes
	// only on deploys, so a short TTL is plenty.
	typeCache *gocache.Cache

	now func() time.Time
}

const typeCacheKey = "certification_types"

func NewService(
	certs repository.CertificationRepository,
	types repository.CertificationTypeRepository,
	events repository.ReminderEventRepository,
	scheduler *reminder.Scheduler,
	rules *reminder.RuleService,
	logger *logger.Logger,
) *Service {
	return &Service{
		certs:     certs,
		types:     types,
		events:    events,
		scheduler: scheduler,
		rules:     rules,
		logger:    logger,
		typeCache: gocache.New(10*time.Minute, 30*time.Minute),
		now:       time.Now,
	}
}

func (s *Service) ListTypes(ctx context.Context) ([]*model.CertificationType, error) {
	if cached, ok := s.typeCache.Get(typeCacheKey); ok {
		return cached.([]*model.CertificationType), nil
	}

	types, err := s.types.List(ctx)
	if err != nil {
		return nil, err
	}
	s.typeCache.Set(typeCacheKey, types, gocache.DefaultExpiration)
	return types, nil
}

func (s *Service) Create(ctx context.Context, providerID uuid.UUID, req *model.CreateCertificationRequest) (*model.Certification, error) {
	if err := validateNameSource(req.TypeID, req.CustomName); err != nil {
		return nil, err
	}
	if req.TypeID != nil {
		if _, err := s.types.Get(ctx, *req.TypeID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	cert := &model.Certification{
		ProviderID:   providerID,
		TypeID:       req.TypeID,
		CustomName:   req.CustomName,
		IssuedAt:     req.IssuedAt,
		ExpirationAt: req.ExpirationAt,
		Status:       model.DeriveStatus(req.ExpirationAt, now),
		Notes:        req.Notes,
	}

	if err := s.certs.Create(ctx, cert); err != nil {
		return nil, fmt.Errorf("failed to create certification: %w", err)
	}

	if cert.ExpirationAt != nil && cert.ExpirationAt.After(now) {
		if err := s.rules.EnsureDefaultRules(ctx, providerID); err != nil {
			s.logger.Error(err, "failed to seed default reminder rules",
				"provider_id", providerID.String())
		}
		if _, err := s.scheduler.Materialize(ctx, cert); err != nil {
			s.logger.Error(err, "failed to materialize reminders",
				"certification_id", cert.ID.String())
		}
	}

	return s.certs.Get(ctx, cert.ID)
}

func (s *Service) Get(ctx context.Context, providerID, id uuid.UUID) (*model.Certification, error) {
	cert, err := s.certs.GetForProvider(ctx, id, providerID)
	if err != nil {
		return nil, err
	}
	// Never trust the cached status within the refresh interval.
	cert.Status = freshStatus(cert, s.now())
	return cert, nil
}

func (s *Service) GetWithEvents(ctx context.Context, providerID, id uuid.UUID) (*model.Certification, []*model.ReminderEvent, error) {
	cert, err := s.Get(ctx, providerID, id)
	if err != nil {
		return nil, nil, err
	}
	events, err := s.events.ListForCertification(ctx, cert.ID)
	if err != nil {
		return nil, nil, err
	}
	return cert, events, nil
}

func (s *Service) List(ctx context.Context, providerID uuid.UUID, status *model.CertificationStatus) ([]*model.Certification, *model.CertificationSummary, error) {
	certs, err := s.certs.List(ctx, providerID, status)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	summary := &model.CertificationSummary{Total: len(certs)}
	for _, cert := range certs {
		cert.Status = freshStatus(cert, now)
		switch cert.Status {
		case model.CertificationStatusActive:
			summary.Active++
		case model.CertificationStatusExpiringSoon:
			summary.ExpiringSoon++
		case model.CertificationStatusExpired:
			summary.Expired++
		case model.CertificationStatusMissing:
			summary.Missing++
		}
	}
	return certs, summary, nil
}

func (s *Service) Update(ctx context.Context, providerID, id uuid.UUID, req *model.UpdateCertificationRequest) (*model.Certification, error) {
	cert, err := s.certs.GetForProvider(ctx, id, providerID)
	if err != nil {
		return nil, err
	}

	if req.TypeID != nil {
		if _, err := s.types.Get(ctx, *req.TypeID); err != nil {
			return nil, err
		}
		cert.TypeID = req.TypeID
		cert.CustomName = nil
	} else if req.CustomName != nil {
		cert.CustomName = req.CustomName
		cert.TypeID = nil
	}
	if req.IssuedAt != nil {
		cert.IssuedAt = req.IssuedAt
	}
	if req.Notes != nil {
		cert.Notes = req.Notes
	}

	expirationChanged := false
	switch {
	case req.ClearExpiration:
		expirationChanged = cert.ExpirationAt != nil
		cert.ExpirationAt = nil
	case req.ExpirationAt != nil:
		expirationChanged = cert.ExpirationAt == nil || !cert.ExpirationAt.Equal(*req.ExpirationAt)
		cert.ExpirationAt = req.ExpirationAt
	}

	if err := validateNameSource(cert.TypeID, cert.CustomName); err != nil {
		return nil, err
	}

	now := s.now()
	cert.Status = model.DeriveStatus(cert.ExpirationAt, now)

	if err := s.certs.Update(ctx, cert); err != nil {
		return nil, fmt.Errorf("failed to update certification: %w", err)
	}

	// A date change invalidates pending reminders and rebuilds them
	// from the new date; sent and failed events stay untouched.
	if expirationChanged {
		if cert.ExpirationAt == nil {
			if err := s.scheduler.InvalidateScheduled(ctx, cert); err != nil {
				s.logger.Error(err, "failed to invalidate reminders",
					"certification_id", cert.ID.String())
			}
		} else {
			if err := s.rules.EnsureDefaultRules(ctx, providerID); err != nil {
				s.logger.Error(err, "failed to seed default reminder rules",
					"provider_id", providerID.String())
			}
			if _, err := s.scheduler.Rematerialize(ctx, cert); err != nil {
				s.logger.Error(err, "failed to rematerialize reminders",
					"certification_id", cert.ID.String())
			}
		}
	}

	return s.certs.Get(ctx, cert.ID)
}

func (s *Service) Delete(ctx context.Context, providerID, id uuid.UUID) error {
	cert, err := s.certs.GetForProvider(ctx, id, providerID)
	if err != nil {
		return err
	}
	// Event rows cascade with the certification.
	return s.certs.Delete(ctx, cert.ID)
}

// freshStatus recomputes from the expiration date, preserving a
// manually assigned missing status.
func freshStatus(cert *model.Certification, now time.Time) model.CertificationStatus {
	if cert.Status == model.CertificationStatusMissing {
		return cert.Status
	}
	return model.DeriveStatus(cert.ExpirationAt, now)
}

// Exactly one of type reference and custom name must be present.
func validateNameSource(typeID *uuid.UUID, customName *string) error {
	hasType := typeID != nil
	hasName := customName != nil && *customName != ""
	if hasType == hasName {
		return apperrors.BadRequest("exactly one of type_id and custom_name is required", nil)
	}
	return nil
}
