package models

import "time"

// SubscriptionKeys are the client-generated encryption keys of a push
// subscription, opaque to everything but the push sender.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type Subscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

// PushSubscription is the stored registration. The endpoint is the natural
// key; UserID is set when the client registered while logged in, enabling
// targeted delivery.
type PushSubscription struct {
	Endpoint     string
	Subscription Subscription
	UserID       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type NotificationPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

type ScheduleStatus string

const (
	ScheduleStatusPending ScheduleStatus = "pending"
	ScheduleStatusSent    ScheduleStatus = "sent"
	ScheduleStatusFailed  ScheduleStatus = "failed"
)

// NotificationSchedule is a broadcast queued for a future send time. The cron
// scheduler claims due pending rows and records the outcome.
type NotificationSchedule struct {
	ID        string
	SendAt    time.Time
	Payload   NotificationPayload
	Audience  string
	Status    ScheduleStatus
	Error     *string
	TriedAt   *time.Time
	CreatedAt time.Time
}
