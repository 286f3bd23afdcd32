package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"code404/api/internal/models"
	"code404/api/internal/push"
	"code404/api/internal/repository"
)

var errMemberMissing = repository.ErrMemberNotFound

// In-memory stand-ins for the repository and transport seams.

type fakeSubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]models.PushSubscription
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{subs: make(map[string]models.PushSubscription)}
}

func (s *fakeSubscriptionStore) Upsert(_ context.Context, sub models.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.Endpoint] = sub
	return nil
}

func (s *fakeSubscriptionStore) DeleteByEndpoint(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, endpoint)
	return nil
}

func (s *fakeSubscriptionStore) ListAll(_ context.Context) ([]models.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PushSubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out, nil
}

func (s *fakeSubscriptionStore) ListByUser(_ context.Context, userID string) ([]models.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PushSubscription
	for _, sub := range s.subs {
		if sub.UserID != nil && *sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *fakeSubscriptionStore) has(endpoint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[endpoint]
	return ok
}

type fakeScheduleStore struct {
	mu        sync.Mutex
	schedules map[string]models.NotificationSchedule
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{schedules: make(map[string]models.NotificationSchedule)}
}

func (s *fakeScheduleStore) Create(_ context.Context, schedule models.NotificationSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[schedule.ID] = schedule
	return nil
}

func (s *fakeScheduleStore) ListDue(_ context.Context, now time.Time) ([]models.NotificationSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.NotificationSchedule
	for _, schedule := range s.schedules {
		if schedule.Status == models.ScheduleStatusPending && !schedule.SendAt.After(now) {
			due = append(due, schedule)
		}
	}
	return due, nil
}

func (s *fakeScheduleStore) setStatus(id string, status models.ScheduleStatus, cause *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule, ok := s.schedules[id]
	if !ok {
		return errors.New("schedule not found")
	}
	schedule.Status = status
	schedule.Error = cause
	s.schedules[id] = schedule
	return nil
}

func (s *fakeScheduleStore) MarkSent(_ context.Context, id string) error {
	return s.setStatus(id, models.ScheduleStatusSent, nil)
}

func (s *fakeScheduleStore) MarkFailed(_ context.Context, id string, cause string) error {
	return s.setStatus(id, models.ScheduleStatusFailed, &cause)
}

func (s *fakeScheduleStore) ResetPending(_ context.Context, id string) error {
	return s.setStatus(id, models.ScheduleStatusPending, nil)
}

// fakeDispatcher returns canned results per endpoint; unknown endpoints
// succeed.
type fakeDispatcher struct {
	notReady bool
	results  map[string]push.Result

	mu   sync.Mutex
	sent []string
}

func (d *fakeDispatcher) Ready() error {
	if d.notReady {
		return push.ErrMissingVAPIDKeys
	}
	return nil
}

func (d *fakeDispatcher) PublicKey() string { return "test-public-key" }

func (d *fakeDispatcher) Send(_ context.Context, sub models.Subscription, _ models.NotificationPayload) push.Result {
	d.mu.Lock()
	d.sent = append(d.sent, sub.Endpoint)
	d.mu.Unlock()

	if r, ok := d.results[sub.Endpoint]; ok {
		r.Endpoint = sub.Endpoint
		return r
	}
	return push.Result{Endpoint: sub.Endpoint, Success: true, StatusCode: 201}
}

type fakeMemberStore struct {
	mu      sync.Mutex
	members []models.Member
}

func (s *fakeMemberStore) FindByUsername(_ context.Context, username string) (models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.Username == username {
			return m, nil
		}
	}
	return models.Member{}, errMemberMissing
}

func (s *fakeMemberStore) GetByID(_ context.Context, id string) (models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.ID == id {
			return m, nil
		}
	}
	return models.Member{}, errMemberMissing
}

func (s *fakeMemberStore) List(_ context.Context) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Member(nil), s.members...), nil
}

func (s *fakeMemberStore) UpdateCredentials(_ context.Context, id string, username string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.members {
		if m.ID == id {
			s.members[i].Username = username
			s.members[i].PasswordHash = hash
			return nil
		}
	}
	return errMemberMissing
}

type sentMail struct {
	to, name, username, password string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]bool
}

func (m *fakeMailer) SendCredentials(_ context.Context, to, name, username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[to] {
		return fmt.Errorf("smtp refused %s", to)
	}
	m.sent = append(m.sent, sentMail{to: to, name: name, username: username, password: password})
	return nil
}
