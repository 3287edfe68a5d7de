package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler runs the periodic housekeeping jobs: expiring stale challenges
// and opening tournament registration when its window starts.
type Scheduler struct {
	sched       gocron.Scheduler
	challenges  ChallengeService
	tournaments TournamentService
	interval    time.Duration
	logger      *slog.Logger
}

func NewScheduler(challenges ChallengeService, tournaments TournamentService, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{
		sched:       sched,
		challenges:  challenges,
		tournaments: tournaments,
		interval:    interval,
		logger:      logger,
	}, nil
}

// Start registers the jobs and starts the scheduler. Jobs run with ctx and
// never overlap with themselves.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name string
		fn   func(context.Context) (int64, error)
		attr string
	}{
		{"expire-challenges", s.ExpireChallenges, "expired"},
		{"open-registrations", s.OpenRegistrations, "opened"},
	}
	for _, job := range jobs {
		job := job
		_, err := s.sched.NewJob(
			gocron.DurationJob(s.interval),
			gocron.NewTask(func() {
				n, err := job.fn(ctx)
				if err != nil {
					s.logger.ErrorContext(ctx, "Scheduled job failed", slog.String("job", job.name), slog.Any("error", err))
					return
				}
				if n > 0 {
					s.logger.InfoContext(ctx, "Scheduled job finished", slog.String("job", job.name), slog.Int64(job.attr, n))
				}
			}),
			gocron.WithName(job.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return fmt.Errorf("failed to register job %s: %w", job.name, err)
		}
	}
	s.sched.Start()
	return nil
}

func (s *Scheduler) ExpireChallenges(ctx context.Context) (int64, error) {
	return s.challenges.ExpireStale(ctx, time.Now().UTC())
}

func (s *Scheduler) OpenRegistrations(ctx context.Context) (int64, error) {
	return s.tournaments.OpenDueRegistrations(ctx, time.Now().UTC())
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
