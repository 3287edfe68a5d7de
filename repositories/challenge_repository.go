package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/sabo-arena/models"
)

var (
	ErrChallengeNotFound      = errors.New("challenge not found")
	ErrChallengeStatusChanged = errors.New("challenge status changed concurrently")
	ErrChallengePlayerInvalid = errors.New("challenge player does not exist")
)

type ChallengeRepository interface {
	Create(ctx context.Context, c *models.Challenge) error
	GetByID(ctx context.Context, id int) (*models.Challenge, error)
	List(ctx context.Context, filter models.ChallengeFilter) ([]*models.Challenge, error)
	// TransitionStatus moves a challenge from one status to another and
	// fails with ErrChallengeStatusChanged if it is no longer in from.
	TransitionStatus(ctx context.Context, id int, from, to models.ChallengeStatus) error
	// Complete stores the result of an accepted challenge.
	Complete(ctx context.Context, exec SQLExecutor, c *models.Challenge) error
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
	Count(ctx context.Context, status *models.ChallengeStatus) (int, error)
}

type postgresChallengeRepository struct {
	db *sql.DB
}

func NewPostgresChallengeRepository(db *sql.DB) ChallengeRepository {
	return &postgresChallengeRepository{db: db}
}

const challengeColumns = `id, challenger_id, opponent_id, challenger_rank, opponent_rank, stake_amount, race_to,
	handicap_challenger, handicap_opponent, message, status, challenger_score, opponent_score, winner_id,
	expires_at, created_at, completed_at`

func scanChallenge(row interface{ Scan(...interface{}) error }) (*models.Challenge, error) {
	var c models.Challenge
	err := row.Scan(
		&c.ID, &c.ChallengerID, &c.OpponentID, &c.ChallengerRank, &c.OpponentRank, &c.StakeAmount, &c.RaceTo,
		&c.HandicapChallenger, &c.HandicapOpponent, &c.Message, &c.Status, &c.ChallengerScore, &c.OpponentScore,
		&c.WinnerID, &c.ExpiresAt, &c.CreatedAt, &c.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresChallengeRepository) Create(ctx context.Context, c *models.Challenge) error {
	query := `
		INSERT INTO challenges
			(challenger_id, opponent_id, challenger_rank, opponent_rank, stake_amount, race_to,
			 handicap_challenger, handicap_opponent, message, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		c.ChallengerID, c.OpponentID, c.ChallengerRank, c.OpponentRank, c.StakeAmount, c.RaceTo,
		c.HandicapChallenger, c.HandicapOpponent, c.Message, c.Status, c.ExpiresAt,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if code, _, ok := pqConstraint(err); ok && code == pqForeignKeyViolation {
			return ErrChallengePlayerInvalid
		}
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

func (r *postgresChallengeRepository) GetByID(ctx context.Context, id int) (*models.Challenge, error) {
	c, err := scanChallenge(r.db.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to scan challenge %d: %w", id, err)
	}
	return c, nil
}

func (r *postgresChallengeRepository) List(ctx context.Context, filter models.ChallengeFilter) ([]*models.Challenge, error) {
	var qb strings.Builder
	qb.WriteString(`SELECT ` + challengeColumns + ` FROM challenges WHERE 1=1`)
	args := []interface{}{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		n := strconv.Itoa(len(args))
		qb.WriteString(` AND (challenger_id = $` + n + ` OR opponent_id = $` + n + `)`)
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		qb.WriteString(` AND status = $` + strconv.Itoa(len(args)))
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	args = append(args, limit, offset)
	qb.WriteString(fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)))

	rows, err := r.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges: %w", err)
	}
	defer rows.Close()

	challenges := make([]*models.Challenge, 0)
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge row: %w", err)
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func (r *postgresChallengeRepository) TransitionStatus(ctx context.Context, id int, from, to models.ChallengeStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE challenges SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update challenge %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrChallengeStatusChanged)
}

func (r *postgresChallengeRepository) Complete(ctx context.Context, exec SQLExecutor, c *models.Challenge) error {
	query := `
		UPDATE challenges SET
			status = 'completed',
			challenger_score = $1,
			opponent_score = $2,
			winner_id = $3,
			completed_at = $4
		WHERE id = $5 AND status = 'accepted'`

	result, err := exec.ExecContext(ctx, query, c.ChallengerScore, c.OpponentScore, c.WinnerID, c.CompletedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to complete challenge %d: %w", c.ID, err)
	}
	return checkAffectedRows(result, ErrChallengeStatusChanged)
}

func (r *postgresChallengeRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE challenges SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire challenges: %w", err)
	}
	return result.RowsAffected()
}

func (r *postgresChallengeRepository) Count(ctx context.Context, status *models.ChallengeStatus) (int, error) {
	var count int
	var err error
	if status == nil {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM challenges`).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM challenges WHERE status = $1`, *status).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count challenges: %w", err)
	}
	return count, nil
}
