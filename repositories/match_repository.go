package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/sabo-arena/models"
)

var (
	ErrMatchNotFound = errors.New("tournament match not found")
	ErrBracketExists = errors.New("bracket already generated for tournament")
	ErrMatchDecided  = errors.New("tournament match already completed")
)

type MatchRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// LockByTournament loads the bracket with its rows locked until exec's
	// transaction ends.
	LockByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	// Update refuses to touch a match that is already completed and returns
	// ErrMatchDecided instead.
	Update(ctx context.Context, exec SQLExecutor, m *models.Match) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	query := `
		INSERT INTO tournament_matches
			(tournament_id, round, match_number, kind, player1_id, player2_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, updated_at`

	for _, m := range matches {
		err := exec.QueryRowContext(ctx, query,
			m.TournamentID, m.Round, m.MatchNumber, m.Kind, m.Player1ID, m.Player2ID, m.Status,
		).Scan(&m.ID, &m.UpdatedAt)
		if err != nil {
			if code, constraint, ok := pqConstraint(err); ok && code == pqUniqueViolation && constraint == "tournament_matches_number_key" {
				return ErrBracketExists
			}
			return fmt.Errorf("failed to create match %d for tournament %d: %w", m.MatchNumber, m.TournamentID, err)
		}
	}
	return nil
}

const matchColumns = `id, tournament_id, round, match_number, kind, player1_id, player2_id,
	player1_score, player2_score, winner_id, status, updated_at`

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	return r.query(ctx, r.db, `
		SELECT `+matchColumns+`
		FROM tournament_matches
		WHERE tournament_id = $1
		ORDER BY match_number ASC`, tournamentID)
}

func (r *postgresMatchRepository) LockByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	return r.query(ctx, exec, `
		SELECT `+matchColumns+`
		FROM tournament_matches
		WHERE tournament_id = $1
		ORDER BY match_number ASC
		FOR UPDATE`, tournamentID)
}

func (r *postgresMatchRepository) query(ctx context.Context, exec SQLExecutor, query string, tournamentID int) ([]*models.Match, error) {
	rows, err := exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(
			&m.ID, &m.TournamentID, &m.Round, &m.MatchNumber, &m.Kind, &m.Player1ID, &m.Player2ID,
			&m.Player1Score, &m.Player2Score, &m.WinnerID, &m.Status, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		UPDATE tournament_matches SET
			player1_id = $1,
			player2_id = $2,
			player1_score = $3,
			player2_score = $4,
			winner_id = $5,
			status = $6,
			updated_at = now()
		WHERE id = $7 AND status <> 'completed'
		RETURNING updated_at`

	err := exec.QueryRowContext(ctx, query,
		m.Player1ID, m.Player2ID, m.Player1Score, m.Player2Score, m.WinnerID, m.Status, m.ID,
	).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMatchDecided
		}
		return fmt.Errorf("failed to update match %d: %w", m.ID, err)
	}
	return nil
}
