package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/caregiver-api/internal/model"
)

// All repository interfaces in one file
type (
	ProviderRepository interface {
		Create(ctx context.Context, provider *model.Provider) error
		Get(ctx context.Context, id uuid.UUID) (*model.Provider, error)
		GetByEmail(ctx context.Context, email string) (*model.Provider, error)
	}

	CertificationTypeRepository interface {
		List(ctx context.Context) ([]*model.CertificationType, error)
		Get(ctx context.Context, id uuid.UUID) (*model.CertificationType, error)
	}

	CertificationRepository interface {
		Create(ctx context.Context, cert *model.Certification) error
		Get(ctx context.Context, id uuid.UUID) (*model.Certification, error)
		GetForProvider(ctx context.Context, id, providerID uuid.UUID) (*model.Certification, error)
		Update(ctx context.Context, cert *model.Certification) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, providerID uuid.UUID, status *model.CertificationStatus) ([]*model.Certification, error)

		// RefreshStatuses applies the derived status to every row whose
		// cached value disagrees with it; returns transitions per status.
		RefreshStatuses(ctx context.Context, now time.Time) (map[model.CertificationStatus]int64, error)
	}

	ReminderRuleRepository interface {
		Create(ctx context.Context, rule *model.ReminderRule) error
		GetForProvider(ctx context.Context, id, providerID uuid.UUID) (*model.ReminderRule, error)
		Update(ctx context.Context, rule *model.ReminderRule) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, providerID uuid.UUID) ([]*model.ReminderRule, error)
		ListEnabled(ctx context.Context, providerID uuid.UUID) ([]*model.ReminderRule, error)
		CountForProvider(ctx context.Context, providerID uuid.UUID) (int, error)
	}

	ReminderEventRepository interface {
		// CreateIfAbsent inserts the event unless a scheduled row for the
		// same (certification, scheduled_for) already exists. Reports
		// whether a row was written.
		CreateIfAbsent(ctx context.Context, event *model.ReminderEvent) (bool, error)
		ListForCertification(ctx context.Context, certificationID uuid.UUID) ([]*model.ReminderEvent, error)
		DeleteScheduled(ctx context.Context, certificationID uuid.UUID) (int64, error)

		// GetDue selects up to limit scheduled events with scheduled_for
		// <= now, oldest first, joined to certification and provider.
		GetDue(ctx context.Context, now time.Time, limit int) ([]*model.DueReminder, error)

		// MarkSent / MarkFailed transition a single event; both are
		// guarded by status = 'scheduled' and report whether the guard
		// matched, so a row claimed elsewhere is never written twice.
		MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error)
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) (bool, error)

		DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
