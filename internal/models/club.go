package models

import "time"

// AdminDecision is an audit record of an approval/hold ruling on a pending
// request (membership application, project interest, and the like).
type AdminDecision struct {
	ID        string
	RequestID string
	Decision  string
	ActedBy   string
	ActedAt   time.Time
}

type ClubSessionStatus string

const (
	ClubSessionStatusScheduled ClubSessionStatus = "scheduled"
	ClubSessionStatusArchived  ClubSessionStatus = "archived"
)

// ClubSession is a calendar entry for a club meeting. Past sessions are
// archived nightly so they drop out of listings without manual cleanup.
type ClubSession struct {
	ID         string
	Title      string
	Date       time.Time
	Status     ClubSessionStatus
	ArchivedAt *time.Time
}
