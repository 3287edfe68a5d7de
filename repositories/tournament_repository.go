package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/sabo-arena/models"
)

var (
	ErrTournamentNotFound         = errors.New("tournament not found")
	ErrTournamentSlugConflict     = errors.New("tournament slug conflict")
	ErrTournamentOrganizerInvalid = errors.New("tournament organizer does not exist")
	ErrRegistrationNotFound       = errors.New("registration not found")
	ErrRegistrationConflict       = errors.New("player already registered")
)

type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter models.TournamentFilter) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerID int) error
	SetLogo(ctx context.Context, id int, logoKey string) error
	// OpenDueRegistrations moves upcoming tournaments whose registration
	// window has started into registration.
	OpenDueRegistrations(ctx context.Context, now time.Time) (int64, error)
	Count(ctx context.Context, status *models.TournamentStatus) (int, error)

	AddRegistration(ctx context.Context, reg *models.Registration) error
	WithdrawRegistration(ctx context.Context, tournamentID, userID int) error
	ListRegistrations(ctx context.Context, tournamentID int) ([]models.Registration, error)
	CountRegistrations(ctx context.Context, tournamentID int) (int, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, name, slug, description, organizer_id, bracket_size, race_to, entry_fee, prize_pool,
	venue, registration_start, registration_end, start_date, status, winner_id, logo_key, created_at`

func scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	var t models.Tournament
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.Description, &t.OrganizerID, &t.BracketSize, &t.RaceTo, &t.EntryFee,
		&t.PrizePool, &t.Venue, &t.RegistrationStart, &t.RegistrationEnd, &t.StartDate, &t.Status,
		&t.WinnerID, &t.LogoKey, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments
			(name, slug, description, organizer_id, bracket_size, race_to, entry_fee, prize_pool, venue,
			 registration_start, registration_end, start_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Slug, t.Description, t.OrganizerID, t.BracketSize, t.RaceTo, t.EntryFee, t.PrizePool, t.Venue,
		t.RegistrationStart, t.RegistrationEnd, t.StartDate, t.Status,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok {
			switch {
			case code == pqUniqueViolation && constraint == "tournaments_slug_key":
				return ErrTournamentSlugConflict
			case code == pqForeignKeyViolation:
				return ErrTournamentOrganizerInvalid
			}
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := scanTournament(r.db.QueryRowContext(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter models.TournamentFilter) ([]*models.Tournament, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset)

	var rows *sql.Rows
	var err error
	if filter.Status != nil {
		rows, err = r.db.QueryContext(ctx, `SELECT `+tournamentColumns+` FROM tournaments
			WHERE status = $1 ORDER BY start_date DESC LIMIT $2 OFFSET $3`, *filter.Status, limit, offset)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT `+tournamentColumns+` FROM tournaments
			ORDER BY start_date DESC LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	result, err := exec.ExecContext(ctx, `UPDATE tournaments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerID int) error {
	result, err := exec.ExecContext(ctx, `UPDATE tournaments SET winner_id = $1 WHERE id = $2`, winnerID, id)
	if err != nil {
		return fmt.Errorf("failed to set tournament %d winner: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetLogo(ctx context.Context, id int, logoKey string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tournaments SET logo_key = $1 WHERE id = $2`, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to set tournament %d logo: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) OpenDueRegistrations(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tournaments SET status = 'registration' WHERE status = 'upcoming' AND registration_start <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to open tournament registrations: %w", err)
	}
	return result.RowsAffected()
}

func (r *postgresTournamentRepository) Count(ctx context.Context, status *models.TournamentStatus) (int, error) {
	var count int
	var err error
	if status == nil {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tournaments`).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tournaments WHERE status = $1`, *status).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count tournaments: %w", err)
	}
	return count, nil
}

// AddRegistration inserts a registration, reactivating a withdrawn one.
func (r *postgresTournamentRepository) AddRegistration(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO tournament_registrations (tournament_id, user_id, status)
		VALUES ($1, $2, 'registered')
		ON CONFLICT (tournament_id, user_id) DO UPDATE SET status = 'registered', created_at = now()
			WHERE tournament_registrations.status = 'withdrawn'
		RETURNING id, status, created_at`

	err := r.db.QueryRowContext(ctx, query, reg.TournamentID, reg.UserID).Scan(&reg.ID, &reg.Status, &reg.CreatedAt)
	if err != nil {
		// the conditional upsert returns no row when the player is already active
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationConflict
		}
		if code, _, ok := pqConstraint(err); ok && code == pqForeignKeyViolation {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to register user %d for tournament %d: %w", reg.UserID, reg.TournamentID, err)
	}
	return nil
}

func (r *postgresTournamentRepository) WithdrawRegistration(ctx context.Context, tournamentID, userID int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tournament_registrations SET status = 'withdrawn'
		WHERE tournament_id = $1 AND user_id = $2 AND status = 'registered'`, tournamentID, userID)
	if err != nil {
		return fmt.Errorf("failed to withdraw user %d from tournament %d: %w", userID, tournamentID, err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

// ListRegistrations returns active registrations in registration order,
// with the player's public profile attached.
func (r *postgresTournamentRepository) ListRegistrations(ctx context.Context, tournamentID int) ([]models.Registration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			tr.id, tr.tournament_id, tr.user_id, tr.status, tr.created_at,
			u.display_name, u.verified_rank, u.elo, u.avatar_key
		FROM tournament_registrations tr
		JOIN users u ON u.id = tr.user_id
		WHERE tr.tournament_id = $1 AND tr.status = 'registered'
		ORDER BY tr.created_at ASC, tr.id ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations: %w", err)
	}
	defer rows.Close()

	regs := make([]models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		var user models.User
		var rank sql.NullString
		if err := rows.Scan(
			&reg.ID, &reg.TournamentID, &reg.UserID, &reg.Status, &reg.CreatedAt,
			&user.DisplayName, &rank, &user.Elo, &user.AvatarKey,
		); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		user.ID = reg.UserID
		if rank.Valid {
			verified := models.Rank(rank.String)
			user.VerifiedRank = &verified
		}
		reg.User = &user
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *postgresTournamentRepository) CountRegistrations(ctx context.Context, tournamentID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_registrations WHERE tournament_id = $1 AND status = 'registered'`,
		tournamentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}
