package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/repositories"
)

type DashboardService interface {
	GetStats(ctx context.Context) (models.DashboardStats, error)
}

type dashboardService struct {
	userRepo       repositories.UserRepository
	tournamentRepo repositories.TournamentRepository
	challengeRepo  repositories.ChallengeRepository
	rankRepo       repositories.RankRequestRepository
	penaltyRepo    repositories.PenaltyRepository
}

func NewDashboardService(
	userRepo repositories.UserRepository,
	tournamentRepo repositories.TournamentRepository,
	challengeRepo repositories.ChallengeRepository,
	rankRepo repositories.RankRequestRepository,
	penaltyRepo repositories.PenaltyRepository,
) DashboardService {
	return &dashboardService{
		userRepo:       userRepo,
		tournamentRepo: tournamentRepo,
		challengeRepo:  challengeRepo,
		rankRepo:       rankRepo,
		penaltyRepo:    penaltyRepo,
	}
}

// GetStats runs every count concurrently; the first failure cancels the rest.
func (s *dashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	banned := models.UserStatusBanned
	ongoing := models.TournamentOngoing
	completed := models.ChallengeCompleted

	g, gCtx := errgroup.WithContext(ctx)
	count := func(dst *int, name string, fn func(context.Context) (int, error)) {
		g.Go(func() error {
			n, err := fn(gCtx)
			if err != nil {
				return fmt.Errorf("failed to count %s: %w", name, err)
			}
			*dst = n
			return nil
		})
	}

	count(&stats.UsersTotal, "users", func(ctx context.Context) (int, error) { return s.userRepo.Count(ctx, nil) })
	count(&stats.BannedUsers, "banned users", func(ctx context.Context) (int, error) { return s.userRepo.Count(ctx, &banned) })
	count(&stats.TournamentsTotal, "tournaments", func(ctx context.Context) (int, error) { return s.tournamentRepo.Count(ctx, nil) })
	count(&stats.OngoingTournaments, "ongoing tournaments", func(ctx context.Context) (int, error) { return s.tournamentRepo.Count(ctx, &ongoing) })
	count(&stats.ChallengesTotal, "challenges", func(ctx context.Context) (int, error) { return s.challengeRepo.Count(ctx, nil) })
	count(&stats.CompletedChallenges, "completed challenges", func(ctx context.Context) (int, error) { return s.challengeRepo.Count(ctx, &completed) })
	count(&stats.PendingRankRequests, "pending rank requests", func(ctx context.Context) (int, error) {
		return s.rankRepo.CountByStatus(ctx, models.RankRequestPending)
	})
	count(&stats.OpenPenaltyAppeals, "open appeals", func(ctx context.Context) (int, error) {
		return s.penaltyRepo.CountByStatus(ctx, models.PenaltyAppealed)
	})

	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, err
	}
	return stats, nil
}
