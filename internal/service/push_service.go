package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"code404/api/internal/ids"
	"code404/api/internal/models"
	"code404/api/internal/push"
)

// Dispatcher performs one delivery attempt per subscription.
type Dispatcher interface {
	Ready() error
	PublicKey() string
	Send(ctx context.Context, sub models.Subscription, payload models.NotificationPayload) push.Result
}

// SubscriptionStore is the registry of push endpoints.
type SubscriptionStore interface {
	Upsert(ctx context.Context, sub models.PushSubscription) error
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	ListAll(ctx context.Context) ([]models.PushSubscription, error)
	ListByUser(ctx context.Context, userID string) ([]models.PushSubscription, error)
}

// ScheduleStore holds queued future broadcasts.
type ScheduleStore interface {
	Create(ctx context.Context, schedule models.NotificationSchedule) error
	ListDue(ctx context.Context, now time.Time) ([]models.NotificationSchedule, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause string) error
	ResetPending(ctx context.Context, id string) error
}

type PushService struct {
	subs          SubscriptionStore
	schedules     ScheduleStore
	dispatcher    Dispatcher
	maxConcurrent int
	log           zerolog.Logger
}

func NewPushService(subs SubscriptionStore, schedules ScheduleStore, dispatcher Dispatcher, maxConcurrent int, log zerolog.Logger) *PushService {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &PushService{
		subs:          subs,
		schedules:     schedules,
		dispatcher:    dispatcher,
		maxConcurrent: maxConcurrent,
		log:           log,
	}
}

func (s *PushService) PublicKey() (string, error) {
	if err := s.dispatcher.Ready(); err != nil {
		return "", err
	}
	return s.dispatcher.PublicKey(), nil
}

// Register upserts a subscription keyed by endpoint; re-registration
// overwrites the previous keys and owner.
func (s *PushService) Register(ctx context.Context, sub models.Subscription, userID *string) error {
	return s.subs.Upsert(ctx, models.PushSubscription{
		Endpoint:     sub.Endpoint,
		Subscription: sub,
		UserID:       userID,
	})
}

// Unregister is idempotent; removing an absent endpoint succeeds.
func (s *PushService) Unregister(ctx context.Context, endpoint string) error {
	return s.subs.DeleteByEndpoint(ctx, endpoint)
}

func (s *PushService) Subscriptions(ctx context.Context) ([]models.PushSubscription, error) {
	return s.subs.ListAll(ctx)
}

// Broadcast fans the payload out to every registered subscription. Endpoints
// fail independently; each one the push service reports gone (404/410) is
// unregistered on the spot. The returned slice has one entry per
// subscription regardless of outcome.
func (s *PushService) Broadcast(ctx context.Context, payload models.NotificationPayload) ([]push.Result, error) {
	if err := s.dispatcher.Ready(); err != nil {
		return nil, err
	}

	subs, err := s.subs.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	return s.fanOut(ctx, subs, payload), nil
}

// SendToUser delivers to every subscription registered by one member.
func (s *PushService) SendToUser(ctx context.Context, userID string, payload models.NotificationPayload) ([]push.Result, error) {
	if err := s.dispatcher.Ready(); err != nil {
		return nil, err
	}

	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.fanOut(ctx, subs, payload), nil
}

func (s *PushService) fanOut(ctx context.Context, subs []models.PushSubscription, payload models.NotificationPayload) []push.Result {
	results := make([]push.Result, len(subs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			result := s.dispatcher.Send(gctx, sub.Subscription, payload)
			results[i] = result

			if !result.Success && result.Gone() {
				if err := s.subs.DeleteByEndpoint(gctx, sub.Endpoint); err != nil {
					s.log.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("prune gone subscription failed")
				} else {
					s.log.Info().Str("endpoint", sub.Endpoint).Msg("pruned gone subscription")
				}
			}
			// Dispatch failures never abort sibling deliveries.
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Schedule queues a broadcast for a future send time.
func (s *PushService) Schedule(ctx context.Context, sendAt time.Time, payload models.NotificationPayload, audience string) (models.NotificationSchedule, error) {
	if audience == "" {
		audience = "all"
	}
	schedule := models.NotificationSchedule{
		ID:       ids.New(),
		SendAt:   sendAt,
		Payload:  payload,
		Audience: audience,
		Status:   models.ScheduleStatusPending,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return models.NotificationSchedule{}, err
	}
	return schedule, nil
}

// RetrySchedule resets a schedule to pending so the dispatcher reprocesses it.
func (s *PushService) RetrySchedule(ctx context.Context, id string) error {
	return s.schedules.ResetPending(ctx, id)
}

// ProcessDueSchedules broadcasts every pending schedule whose send time has
// passed and records the per-schedule outcome. Called from the cron job.
func (s *PushService) ProcessDueSchedules(ctx context.Context, now time.Time) (int, error) {
	due, err := s.schedules.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, schedule := range due {
		results, err := s.Broadcast(ctx, schedule.Payload)
		if err != nil {
			if markErr := s.schedules.MarkFailed(ctx, schedule.ID, err.Error()); markErr != nil {
				s.log.Error().Err(markErr).Str("schedule_id", schedule.ID).Msg("mark failed schedule")
			}
			continue
		}

		delivered := 0
		for _, r := range results {
			if r.Success {
				delivered++
			}
		}
		s.log.Info().
			Str("schedule_id", schedule.ID).
			Int("subscriptions", len(results)).
			Int("delivered", delivered).
			Msg("scheduled broadcast dispatched")

		if err := s.schedules.MarkSent(ctx, schedule.ID); err != nil {
			return processed, fmt.Errorf("mark sent %s: %w", schedule.ID, err)
		}
		processed++
	}

	return processed, nil
}
