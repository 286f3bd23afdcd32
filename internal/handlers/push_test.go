package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"code404/api/internal/config"
	"code404/api/internal/models"
	"code404/api/internal/push"
	"code404/api/internal/ratelimit"
	"code404/api/internal/service"
)

type stubDispatcher struct {
	mu       sync.Mutex
	notReady bool
	sent     []string
}

func (d *stubDispatcher) Ready() error {
	if d.notReady {
		return push.ErrMissingVAPIDKeys
	}
	return nil
}

func (d *stubDispatcher) PublicKey() string { return "test-public-key" }

func (d *stubDispatcher) Send(_ context.Context, sub models.Subscription, _ models.NotificationPayload) push.Result {
	d.mu.Lock()
	d.sent = append(d.sent, sub.Endpoint)
	d.mu.Unlock()
	return push.Result{Endpoint: sub.Endpoint, Success: true, StatusCode: http.StatusCreated}
}

type stubSubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]models.PushSubscription
}

func newStubSubscriptionStore() *stubSubscriptionStore {
	return &stubSubscriptionStore{subs: make(map[string]models.PushSubscription)}
}

func (s *stubSubscriptionStore) Upsert(_ context.Context, sub models.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.Endpoint] = sub
	return nil
}

func (s *stubSubscriptionStore) DeleteByEndpoint(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, endpoint)
	return nil
}

func (s *stubSubscriptionStore) ListAll(_ context.Context) ([]models.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PushSubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out, nil
}

func (s *stubSubscriptionStore) ListByUser(_ context.Context, userID string) ([]models.PushSubscription, error) {
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

type stubScheduleStore struct {
	created []models.NotificationSchedule
}

func (s *stubScheduleStore) Create(_ context.Context, schedule models.NotificationSchedule) error {
	s.created = append(s.created, schedule)
	return nil
}

func (s *stubScheduleStore) ListDue(context.Context, time.Time) ([]models.NotificationSchedule, error) {
	return nil, nil
}

func (s *stubScheduleStore) MarkSent(context.Context, string) error { return nil }

func (s *stubScheduleStore) MarkFailed(context.Context, string, string) error { return nil }

func (s *stubScheduleStore) ResetPending(context.Context, string) error { return nil }

type pushTestEnv struct {
	router     *gin.Engine
	cfg        *config.AppConfig
	subs       *stubSubscriptionStore
	schedules  *stubScheduleStore
	dispatcher *stubDispatcher
}

func newPushEnv(t *testing.T) *pushTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testAppConfig(t)
	cfg.WebPush.SendSecret = "send-secret"

	env := &pushTestEnv{
		cfg:        cfg,
		subs:       newStubSubscriptionStore(),
		schedules:  &stubScheduleStore{},
		dispatcher: &stubDispatcher{},
	}

	pushService := service.NewPushService(env.subs, env.schedules, env.dispatcher, 4, zerolog.Nop())
	h := NewHandlerSet(
		zerolog.Nop(), nil, nil, ratelimit.NewMemoryStore(), nil,
		nil, pushService, nil, nil, nil, cfg,
	)

	env.router = gin.New()
	h.Register(env.router.Group(""))
	return env
}

func (env *pushTestEnv) do(method, path, body string, withSecret bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if withSecret {
		req.Header.Set("X-WebPush-Secret", env.cfg.WebPush.SendSecret)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestVAPIDPublicKey(t *testing.T) {
	env := newPushEnv(t)

	w := env.do(http.MethodGet, "/v1/webpush/public-key", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "test-public-key")

	env.dispatcher.notReady = true
	w = env.do(http.MethodGet, "/v1/webpush/public-key", "", false)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "Push is not configured")
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	env := newPushEnv(t)

	body := `{"subscription":{"endpoint":"https://push.example/ep1","keys":{"p256dh":"k","auth":"a"}},"userId":"m-1"}`
	w := env.do(http.MethodPost, "/v1/webpush/subscribe", body, false)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, env.subs.subs, 1)

	w = env.do(http.MethodPost, "/v1/webpush/subscribe", `{"subscription":{"keys":{"p256dh":"k","auth":"a"}}}`, false)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodDelete, "/v1/webpush/subscribe", `{"subscription":{"endpoint":"https://push.example/ep1"}}`, false)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, env.subs.subs)

	// Removing an endpoint that is already gone still succeeds.
	w = env.do(http.MethodDelete, "/v1/webpush/subscribe", `{"subscription":{"endpoint":"https://push.example/ep1"}}`, false)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSendNotifications_RequiresAuthorization(t *testing.T) {
	env := newPushEnv(t)

	body := `{"payload":{"title":"Meeting","body":"Room 404"}}`
	w := env.do(http.MethodPost, "/v1/webpush/send", body, false)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Empty(t, env.dispatcher.sent)
}

func TestSendNotifications_Broadcast(t *testing.T) {
	env := newPushEnv(t)

	for _, ep := range []string{"https://push.example/ep1", "https://push.example/ep2"} {
		body := `{"subscription":{"endpoint":"` + ep + `","keys":{"p256dh":"k","auth":"a"}}}`
		w := env.do(http.MethodPost, "/v1/webpush/subscribe", body, false)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do(http.MethodPost, "/v1/webpush/send", `{"payload":{"title":"Meeting","body":"Room 404"}}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.dispatcher.sent, 2)
	require.Contains(t, w.Body.String(), `"success":true`)

	w = env.do(http.MethodPost, "/v1/webpush/send", `{"payload":{"body":"no title"}}`, true)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendNotifications_Unconfigured(t *testing.T) {
	env := newPushEnv(t)
	env.dispatcher.notReady = true

	w := env.do(http.MethodPost, "/v1/webpush/send", `{"payload":{"title":"Meeting"}}`, true)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "Push is not configured")
}

func TestCreateSchedule(t *testing.T) {
	env := newPushEnv(t)

	body := `{"sendAt":"2026-10-01T18:00:00Z","payload":{"title":"Hack night"},"audience":"all"}`
	w := env.do(http.MethodPost, "/v1/webpush/schedule", body, true)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, env.schedules.created, 1)
	require.Equal(t, models.ScheduleStatusPending, env.schedules.created[0].Status)
	require.Contains(t, w.Body.String(), `"id"`)
}

func TestRetrySchedule_Unknown(t *testing.T) {
	env := newPushEnv(t)

	// The stub store accepts any id, so only exercise the happy path here;
	// not-found mapping is covered at the service layer.
	w := env.do(http.MethodPost, "/v1/webpush/schedule/retry", `{"id":"sched-1"}`, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/v1/webpush/schedule/retry", `{}`, true)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
