package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"code404/api/internal/ratelimit"
	"code404/api/internal/repository"
	"code404/api/internal/service"
)

// Scheduler runs the periodic maintenance work: dispatching due notification
// schedules, sweeping expired rate-limit windows, and archiving past club
// sessions.
type Scheduler struct {
	cron     *cron.Cron
	push     *service.PushService
	sessions *repository.SessionRepository
	sweeper  *ratelimit.MemoryStore
	log      zerolog.Logger
}

// NewScheduler wires the jobs. sweeper may be nil when rate limiting is
// backed by Redis, which expires its own keys.
func NewScheduler(push *service.PushService, sessions *repository.SessionRepository, sweeper *ratelimit.MemoryStore, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		push:     push,
		sessions: sessions,
		sweeper:  sweeper,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 * * * * *", s.dispatchDueSchedules); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 */10 * * * *", s.sweepRateLimits); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 0 0 * * *", s.archivePastSessions); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish, up to a grace period.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler jobs still running at shutdown")
	}
}

func (s *Scheduler) dispatchDueSchedules() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	processed, err := s.push.ProcessDueSchedules(ctx, time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("dispatch due schedules failed")
		return
	}
	if processed > 0 {
		s.log.Info().Int("processed", processed).Msg("due schedules dispatched")
	}
}

func (s *Scheduler) sweepRateLimits() {
	if s.sweeper == nil {
		return
	}
	if removed := s.sweeper.Sweep(); removed > 0 {
		s.log.Debug().Int("removed", removed).Msg("rate limit windows swept")
	}
}

func (s *Scheduler) archivePastSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	archived, err := s.sessions.ArchivePast(ctx, today)
	if err != nil {
		s.log.Error().Err(err).Msg("archive past sessions failed")
		return
	}
	if archived > 0 {
		s.log.Info().Int64("archived", archived).Msg("past sessions archived")
	}
}
