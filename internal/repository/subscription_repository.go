package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"code404/api/internal/models"
)

type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// Upsert registers a subscription keyed by its endpoint. Re-registering the
// same endpoint overwrites keys and owner without creating duplicates.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub models.PushSubscription) error {
	raw, err := json.Marshal(sub.Subscription)
	if err != nil {
		return fmt.Errorf("marshal subscription: %w", err)
	}

	const query = `
		INSERT INTO webpush_subscriptions (endpoint, subscription, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (endpoint)
		DO UPDATE SET
			subscription = EXCLUDED.subscription,
			user_id = EXCLUDED.user_id,
			updated_at = NOW()
	`
	_, err = r.pool.Exec(ctx, query, sub.Endpoint, raw, sub.UserID)
	return err
}

// DeleteByEndpoint removes a registration. A missing row is not an error;
// unregistering is idempotent.
func (r *SubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	const query = `DELETE FROM webpush_subscriptions WHERE endpoint = $1`
	_, err := r.pool.Exec(ctx, query, endpoint)
	return err
}

func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]models.PushSubscription, error) {
	const query = `
		SELECT endpoint, subscription, user_id, created_at, updated_at
		FROM webpush_subscriptions
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	const query = `
		SELECT endpoint, subscription, user_id, created_at, updated_at
		FROM webpush_subscriptions
		WHERE user_id = $1
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

type subscriptionRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSubscriptions(rows subscriptionRows) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	for rows.Next() {
		var (
			sub models.PushSubscription
			raw []byte
		)
		if err := rows.Scan(&sub.Endpoint, &raw, &sub.UserID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &sub.Subscription); err != nil {
			return nil, fmt.Errorf("unmarshal subscription %s: %w", sub.Endpoint, err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
