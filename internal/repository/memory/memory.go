// Package memory holds in-memory repository implementations used by
// service and worker tests. They honor the same guards as the postgres
// repositories: insert-if-absent on pending reminders and the
// status = scheduled check on terminal transitions.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/caregiver-api/pkg/errors"

	"github.com/jwalitptl/caregiver-api/internal/model"
)

type Store struct {
	mu sync.Mutex

	Providers      map[uuid.UUID]*model.Provider
	Types          map[uuid.UUID]*model.CertificationType
	Certifications map[uuid.UUID]*model.Certification
	Rules          map[uuid.UUID]*model.ReminderRule
	Events         map[uuid.UUID]*model.ReminderEvent
}

func NewStore() *Store {
	return &Store{
		Providers:      make(map[uuid.UUID]*model.Provider),
		Types:          make(map[uuid.UUID]*model.CertificationType),
		Certifications: make(map[uuid.UUID]*model.Certification),
		Rules:          make(map[uuid.UUID]*model.ReminderRule),
		Events:         make(map[uuid.UUID]*model.ReminderEvent),
	}
}

// --- ProviderRepository ---

type ProviderRepo struct{ *Store }

func (r *ProviderRepo) Create(_ context.Context, p *model.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.Providers[p.ID] = &cp
	return nil
}

func (r *ProviderRepo) Get(_ context.Context, id uuid.UUID) (*model.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.Providers[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, apperrors.NotFound("provider", nil)
}

func (r *ProviderRepo) GetByEmail(_ context.Context, email string) (*model.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.Providers {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("provider", nil)
}

// --- CertificationTypeRepository ---

type TypeRepo struct{ *Store }

func (r *TypeRepo) List(_ context.Context) ([]*model.CertificationType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.CertificationType, 0, len(r.Types))
	for _, t := range r.Types {
		ct := *t
		out = append(out, &ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *TypeRepo) Get(_ context.Context, id uuid.UUID) (*model.CertificationType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.Types[id]; ok {
		ct := *t
		return &ct, nil
	}
	return nil, apperrors.NotFound("certification type", nil)
}

// --- CertificationRepository ---

type CertificationRepo struct{ *Store }

func (r *CertificationRepo) Create(_ context.Context, cert *model.Certification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cert.ID = uuid.New()
	cert.CreatedAt = time.Now()
	cert.UpdatedAt = cert.CreatedAt
	cp := *cert
	r.Certifications[cert.ID] = &cp
	return nil
}

func (r *CertificationRepo) Get(_ context.Context, id uuid.UUID) (*model.Certification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.Certifications[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, apperrors.NotFound("certification", nil)
}

func (r *CertificationRepo) GetForProvider(_ context.Context, id, providerID uuid.UUID) (*model.Certification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.Certifications[id]; ok && c.ProviderID == providerID {
		cp := *c
		return &cp, nil
	}
	return nil, apperrors.NotFound("certification", nil)
}

func (r *CertificationRepo) Update(_ context.Context, cert *model.Certification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Certifications[cert.ID]; !ok {
		return apperrors.NotFound("certification", nil)
	}
	cert.UpdatedAt = time.Now()
	cp := *cert
	r.Certifications[cert.ID] = &cp
	return nil
}

func (r *CertificationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Certifications[id]; !ok {
		return apperrors.NotFound("certification", nil)
	}
	delete(r.Certifications, id)
	for eventID, e := range r.Events {
		if e.CertificationID == id {
			delete(r.Events, eventID)
		}
	}
	return nil
}

func (r *CertificationRepo) List(_ context.Context, providerID uuid.UUID, status *model.CertificationStatus) ([]*model.Certification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Certification
	for _, c := range r.Certifications {
		if c.ProviderID != providerID {
			continue
		}
		if status != nil && c.Status != *status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ExpirationAt, out[j].ExpirationAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out, nil
}

func (r *CertificationRepo) RefreshStatuses(_ context.Context, now time.Time) (map[model.CertificationStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	transitions := make(map[model.CertificationStatus]int64)
	for _, c := range r.Certifications {
		if c.Status == model.CertificationStatusMissing {
			continue
		}
		derived := model.DeriveStatus(c.ExpirationAt, now)
		if c.Status != derived {
			c.Status = derived
			c.UpdatedAt = now
			transitions[derived]++
		}
	}
	return transitions, nil
}

// --- ReminderRuleRepository ---

type RuleRepo struct{ *Store }

func (r *RuleRepo) Create(_ context.Context, rule *model.ReminderRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.Rules {
		if existing.ProviderID == rule.ProviderID && existing.DaysBeforeExpiration == rule.DaysBeforeExpiration {
			return apperrors.Conflict("a rule for this offset already exists", nil)
		}
	}
	rule.ID = uuid.New()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	cp := *rule
	r.Rules[rule.ID] = &cp
	return nil
}

func (r *RuleRepo) GetForProvider(_ context.Context, id, providerID uuid.UUID) (*model.ReminderRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule, ok := r.Rules[id]; ok && rule.ProviderID == providerID {
		cp := *rule
		return &cp, nil
	}
	return nil, apperrors.NotFound("reminder rule", nil)
}

func (r *RuleRepo) Update(_ context.Context, rule *model.ReminderRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Rules[rule.ID]; !ok {
		return apperrors.NotFound("reminder rule", nil)
	}
	for _, existing := range r.Rules {
		if existing.ID != rule.ID && existing.ProviderID == rule.ProviderID &&
			existing.DaysBeforeExpiration == rule.DaysBeforeExpiration {
			return apperrors.Conflict("a rule for this offset already exists", nil)
		}
	}
	rule.UpdatedAt = time.Now()
	cp := *rule
	r.Rules[rule.ID] = &cp
	return nil
}

func (r *RuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Rules[id]; !ok {
		return apperrors.NotFound("reminder rule", nil)
	}
	delete(r.Rules, id)
	return nil
}

func (r *RuleRepo) List(_ context.Context, providerID uuid.UUID) ([]*model.ReminderRule, error) {
	return r.list(providerID, false), nil
}

func (r *RuleRepo) ListEnabled(_ context.Context, providerID uuid.UUID) ([]*model.ReminderRule, error) {
	return r.list(providerID, true), nil
}

func (r *RuleRepo) list(providerID uuid.UUID, enabledOnly bool) []*model.ReminderRule {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ReminderRule
	for _, rule := range r.Rules {
		if rule.ProviderID != providerID {
			continue
		}
		if enabledOnly && !rule.Enabled {
			continue
		}
		cp := *rule
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DaysBeforeExpiration > out[j].DaysBeforeExpiration
	})
	return out
}

func (r *RuleRepo) CountForProvider(_ context.Context, providerID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, rule := range r.Rules {
		if rule.ProviderID == providerID {
			count++
		}
	}
	return count, nil
}

// --- ReminderEventRepository ---

type EventRepo struct{ *Store }

func (r *EventRepo) CreateIfAbsent(_ context.Context, event *model.ReminderEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.Events {
		if existing.CertificationID == event.CertificationID &&
			existing.ScheduledFor.Equal(event.ScheduledFor) &&
			existing.Status == model.ReminderEventStatusScheduled {
			return false, nil
		}
	}
	event.ID = uuid.New()
	event.Status = model.ReminderEventStatusScheduled
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	cp := *event
	r.Events[event.ID] = &cp
	return true, nil
}

func (r *EventRepo) ListForCertification(_ context.Context, certificationID uuid.UUID) ([]*model.ReminderEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ReminderEvent
	for _, e := range r.Events {
		if e.CertificationID == certificationID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (r *EventRepo) DeleteScheduled(_ context.Context, certificationID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, e := range r.Events {
		if e.CertificationID == certificationID && e.Status == model.ReminderEventStatusScheduled {
			delete(r.Events, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *EventRepo) GetDue(_ context.Context, now time.Time, limit int) ([]*model.DueReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*model.DueReminder
	for _, e := range r.Events {
		if e.Status != model.ReminderEventStatusScheduled || e.ScheduledFor.After(now) {
			continue
		}
		cert, ok := r.Certifications[e.CertificationID]
		if !ok || cert.ExpirationAt == nil {
			continue
		}
		provider, ok := r.Providers[cert.ProviderID]
		if !ok {
			continue
		}
		due = append(due, &model.DueReminder{
			EventID:         e.ID,
			CertificationID: cert.ID,
			ProviderID:      provider.ID,
			ProviderEmail:   provider.Email,
			ProviderName:    provider.Name,
			CertName:        cert.DisplayName(),
			ExpirationAt:    *cert.ExpirationAt,
			ScheduledFor:    e.ScheduledFor,
		})
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(due[j].ScheduledFor) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *EventRepo) MarkSent(_ context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.Events[id]
	if !ok || e.Status != model.ReminderEventStatusScheduled {
		return false, nil
	}
	e.Status = model.ReminderEventStatusSent
	e.SentAt = &sentAt
	e.UpdatedAt = sentAt
	return true, nil
}

func (r *EventRepo) MarkFailed(_ context.Context, id uuid.UUID, errorMessage string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.Events[id]
	if !ok || e.Status != model.ReminderEventStatusScheduled {
		return false, nil
	}
	e.Status = model.ReminderEventStatusFailed
	e.ErrorMessage = &errorMessage
	e.UpdatedAt = time.Now()
	return true, nil
}

func (r *EventRepo) DeleteSentBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, e := range r.Events {
		if e.Status == model.ReminderEventStatusSent && e.SentAt != nil && e.SentAt.Before(before) {
			delete(r.Events, id)
			deleted++
		}
	}
	return deleted, nil
}
