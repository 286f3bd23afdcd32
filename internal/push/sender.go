package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"code404/api/internal/config"
	"code404/api/internal/models"
)

// ErrMissingVAPIDKeys means the signing keypair is absent from configuration.
// No dispatch can proceed without it.
var ErrMissingVAPIDKeys = errors.New("webpush vapid keys are not configured")

// Result is the outcome of a single delivery attempt. Err is set on failure;
// StatusCode carries the push service response when one was received.
type Result struct {
	Endpoint   string
	Success    bool
	StatusCode int
	Err        error
}

// Gone reports whether the push service said the endpoint no longer exists,
// so the registration should be pruned.
func (r Result) Gone() bool {
	return r.StatusCode == http.StatusNotFound || r.StatusCode == http.StatusGone
}

// Sender performs VAPID-signed deliveries. The embedded HTTP client timeout
// bounds each dispatch so one hung endpoint cannot stall a broadcast.
type Sender struct {
	publicKey  string
	privateKey string
	subject    string
	client     *http.Client
}

func NewSender(cfg config.WebPushConfig) *Sender {
	return &Sender{
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		subject:    cfg.Subject,
		client:     &http.Client{Timeout: cfg.DispatchTimeout},
	}
}

// Ready reports whether the sender can dispatch at all.
func (s *Sender) Ready() error {
	if s.publicKey == "" || s.privateKey == "" {
		return ErrMissingVAPIDKeys
	}
	return nil
}

// PublicKey is exposed to clients so they can construct subscriptions.
func (s *Sender) PublicKey() string {
	return s.publicKey
}

// Send attempts one delivery. It never panics across endpoints; every failure
// mode is folded into the returned Result.
func (s *Sender) Send(ctx context.Context, sub models.Subscription, payload models.NotificationPayload) Result {
	if err := s.Ready(); err != nil {
		return Result{Endpoint: sub.Endpoint, Err: err}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Endpoint: sub.Endpoint, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             60,
	})
	if err != nil {
		return Result{Endpoint: sub.Endpoint, Err: fmt.Errorf("send notification: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{
			Endpoint:   sub.Endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("push service returned %d", resp.StatusCode),
		}
	}

	return Result{Endpoint: sub.Endpoint, Success: true, StatusCode: resp.StatusCode}
}
