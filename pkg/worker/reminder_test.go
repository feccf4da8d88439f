package worker

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/caregiver-api/pkg/logger"
	"github.com/jwalitptl/caregiver-api/pkg/metrics"

	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/repository/memory"
)

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

// fakeEmailService records sends and fails for addresses listed in
// failFor.
type fakeEmailService struct {
	mu      sync.Mutex
	sent    []sentEmail
	failFor map[string]bool
}

func newFakeEmailService() *fakeEmailService {
	return &fakeEmailService{failFor: make(map[string]bool)}
}

func (f *fakeEmailService) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[to] {
		return errors.New("smtp: connection refused")
	}
	f.sent = append(f.sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}

type workerFixture struct {
	worker *ReminderWorker
	store  *memory.Store
	email  *fakeEmailService
	now    time.Time
}

func newWorkerFixture(t *testing.T, now time.Time) *workerFixture {
	t.Helper()
	store := memory.NewStore()
	emailSvc := newFakeEmailService()

	w := NewReminderWorker(
		&memory.CertificationRepo{Store: store},
		&memory.EventRepo{Store: store},
		emailSvc,
		ReminderWorkerConfig{BatchSize: 50, PollInterval: time.Minute},
		logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard}),
		metrics.NewUnregistered("test"),
	)

	f := &workerFixture{worker: w, store: store, email: emailSvc, now: now}
	w.now = func() time.Time { return f.now }
	return f
}

func (f *workerFixture) seedProvider(email string) *model.Provider {
	p := &model.Provider{Email: email, Name: "Test Provider"}
	p.ID = uuid.New()
	f.store.Providers[p.ID] = p
	return p
}

func (f *workerFixture) seedCertification(providerID uuid.UUID, name string, expirationAt *time.Time, status model.CertificationStatus) *model.Certification {
	c := &model.Certification{
		ProviderID:   providerID,
		CustomName:   &name,
		ExpirationAt: expirationAt,
		Status:       status,
	}
	c.ID = uuid.New()
	f.store.Certifications[c.ID] = c
	return c
}

func (f *workerFixture) seedEvent(certID uuid.UUID, scheduledFor time.Time) *model.ReminderEvent {
	e := &model.ReminderEvent{
		CertificationID: certID,
		ScheduledFor:    scheduledFor,
		Status:          model.ReminderEventStatusScheduled,
	}
	e.ID = uuid.New()
	f.store.Events[e.ID] = e
	return e
}

func TestNewReminderWorkerValidatesConfig(t *testing.T) {
	assert.Panics(t, func() {
		NewReminderWorker(nil, nil, nil, ReminderWorkerConfig{BatchSize: 0, PollInterval: time.Minute}, nil, nil)
	})
	assert.Panics(t, func() {
		NewReminderWorker(nil, nil, nil, ReminderWorkerConfig{BatchSize: 10, PollInterval: 0}, nil, nil)
	})
}

func TestTickRefreshesStatuses(t *testing.T) {
	now := time.Date(2025, time.March, 24, 9, 0, 0, 0, time.UTC)
	f := newWorkerFixture(t, now)
	p := f.seedProvider("carer@example.com")

	// Cached statuses written before time moved on.
	expired := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)
	expiring := time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)
	staleExpired := f.seedCertification(p.ID, "CPR", &expired, model.CertificationStatusExpiringSoon)
	staleExpiring := f.seedCertification(p.ID, "First Aid", &expiring, model.CertificationStatusActive)
	missing := f.seedCertification(p.ID, "TB Test", nil, model.CertificationStatusMissing)

	require.NoError(t, f.worker.Tick(context.Background()))

	assert.Equal(t, model.CertificationStatusExpired, f.store.Certifications[staleExpired.ID].Status)
	assert.Equal(t, model.CertificationStatusExpiringSoon, f.store.Certifications[staleExpiring.ID].Status)
	// The refresher never rewrites a manually flagged row.
	assert.Equal(t, model.CertificationStatusMissing, f.store.Certifications[missing.ID].Status)

	// A second refresh with the same clock touches nothing.
	transitions, err := (&memory.CertificationRepo{Store: f.store}).RefreshStatuses(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, transitions)
}

func TestTickDispatchesDueReminder(t *testing.T) {
	// Seven calendar days out, dispatched mid-morning.
	now := time.Date(2025, time.March, 24, 9, 0, 0, 0, time.UTC)
	expiration := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)

	f := newWorkerFixture(t, now)
	p := f.seedProvider("carer@example.com")
	cert := f.seedCertification(p.ID, "CPR", &expiration, model.CertificationStatusExpiringSoon)
	event := f.seedEvent(cert.ID, time.Date(2025, time.March, 24, 0, 0, 0, 0, time.UTC))

	require.NoError(t, f.worker.Tick(context.Background()))

	require.Len(t, f.email.sent, 1)
	assert.Equal(t, "carer@example.com", f.email.sent[0].To)
	assert.Equal(t, "Certification expires in 7 days: CPR", f.email.sent[0].Subject)
	assert.Contains(t, f.email.sent[0].Body, "March 31, 2025")

	stored := f.store.Events[event.ID]
	assert.Equal(t, model.ReminderEventStatusSent, stored.Status)
	require.NotNil(t, stored.SentAt)
	assert.True(t, stored.SentAt.Equal(now))
}

func TestTickSkipsFutureEvents(t *testing.T) {
	now := time.Date(2025, time.March, 24, 9, 0, 0, 0, time.UTC)
	expiration := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)

	f := newWorkerFixture(t, now)
	p := f.seedProvider("carer@example.com")
	cert := f.seedCertification(p.ID, "CPR", &expiration, model.CertificationStatusExpiringSoon)
	event := f.seedEvent(cert.ID, time.Date(2025, time.March, 30, 0, 0, 0, 0, time.UTC))

	require.NoError(t, f.worker.Tick(context.Background()))

	assert.Empty(t, f.email.sent)
	assert.Equal(t, model.ReminderEventStatusScheduled, f.store.Events[event.ID].Status)
}

func TestTickDoesNotRedeliver(t *testing.T) {
	now := time.Date(2025, time.March, 24, 9, 0, 0, 0, time.UTC)
	expiration := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)

	f := newWorkerFixture(t, now)
	p := f.seedProvider("carer@example.com")
	cert := f.seedCertification(p.ID, "CPR", &expiration, model.CertificationStatusExpiringSoon)
	f.seedEvent(cert.ID, time.Date(2025, time.March, 24, 0, 0, 0, 0, time.UTC))

	require.NoError(t, f.worker.Tick(context.Background()))
	require.Len(t, f.email.sent, 1)

	// The sent row no longer matches the due selection.
	f.now = f.now.Add(5 * time.Minute)
	require.NoError(t, f.worker.Tick(context.Background()))
	assert.Len(t, f.email.sent, 1)
}

func TestTickIsolatesSendFailures(t *testing.T) {
	now := time.Date(2025, time.March, 24, 9, 0, 0, 0, time.UTC)
	expiration := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)

	f := newWorkerFixture(t, now)
	flaky := f.seedProvider("flaky@example.com")
	healthy := f.seedProvider("healthy@example.com")
	f.email.failFor["flaky@example.com"] = true

	flakyCert := f.seedCertification(flaky.ID, "CPR", &expiration, model.CertificationStatusExpiringSoon)
	healthyCert := f.seedCertification(healthy.ID, "First Aid", &expiration, model.CertificationStatusExpiringSoon)
	due := time.Date(2025, time.March, 24, 0, 0, 0, 0, time.UTC)
	flakyEvent := f.seedEvent(flakyCert.ID, due)
	healthyEvent := f.seedEvent(healthyCert.ID, due)

	require.NoError(t, f.worker.Tick(context.Background()))

	// The healthy recipient's reminder went out despite the failure.
	require.Len(t, f.email.sent, 1)
	assert.Equal(t, "healthy@example.com", f.email.sent[0].To)

	failed := f.store.Events[flakyEvent.ID]
	assert.Equal(t, model.ReminderEventStatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.True(t, strings.Contains(*failed.ErrorMessage, "connection refused"))

	assert.Equal(t, model.ReminderEventStatusSent, f.store.Events[healthyEvent.ID].Status)
}

func TestTickRespectsBatchSize(t *testing.T) {
	now := time.Date(2025, time.March, 24, 9, 0, 0, 0, time.UTC)
	expiration := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)

	f := newWorkerFixture(t, now)
	f.worker.config.BatchSize = 2
	p := f.seedProvider("carer@example.com")

	for i := 0; i < 5; i++ {
		cert := f.seedCertification(p.ID, "CPR", &expiration, model.CertificationStatusExpiringSoon)
		f.seedEvent(cert.ID, now.Add(-time.Duration(i+1)*time.Hour))
	}

	require.NoError(t, f.worker.Tick(context.Background()))
	assert.Len(t, f.email.sent, 2)

	// The remainder drains on subsequent ticks.
	require.NoError(t, f.worker.Tick(context.Background()))
	require.NoError(t, f.worker.Tick(context.Background()))
	assert.Len(t, f.email.sent, 5)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	f := newWorkerFixture(t, time.Now())
	f.worker.config.PollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.worker.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
