package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/sabo-arena/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserEmailConflict = errors.New("user email conflict")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetForUpdate reads a user and locks the row until exec's transaction
	// ends. Callers locking several users go in ascending id order.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	SetStatus(ctx context.Context, id int, status models.UserStatus, reason *string) error
	SetVerifiedRank(ctx context.Context, exec SQLExecutor, id int, rank models.Rank) error
	UpdateElo(ctx context.Context, exec SQLExecutor, id int, elo int) error
	// AdjustSpa adds delta to the SPA balance, clamped at zero, and returns
	// the new balance.
	AdjustSpa(ctx context.Context, exec SQLExecutor, id int, delta int) (int, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Leaderboard(ctx context.Context, order models.LeaderboardOrder, limit, offset int) ([]models.User, error)
	Count(ctx context.Context, status *models.UserStatus) (int, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `id, email, password_hash, display_name, phone, club_name, bio, role, status,
	ban_reason, verified_rank, elo, spa_points, avatar_key, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	var rank sql.NullString
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Phone, &u.ClubName, &u.Bio,
		&u.Role, &u.Status, &u.BanReason, &rank, &u.Elo, &u.SpaPoints, &u.AvatarKey, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rank.Valid {
		r := models.Rank(rank.String)
		u.VerifiedRank = &r
	}
	return &u, nil
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, display_name, phone, club_name, role, status, elo, spa_points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Phone,
		user.ClubName,
		user.Role,
		user.Status,
		user.Elo,
		user.SpaPoints,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok && code == pqUniqueViolation && constraint == "users_email_key" {
			return ErrUserEmailConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.getOne(ctx, query, email)
}

func (r *postgresUserRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.User, error) {
	user, err := scanUser(exec.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user %d: %w", id, err)
	}
	return user, nil
}

func (r *postgresUserRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

func (r *postgresUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			display_name = $1,
			phone = $2,
			club_name = $3,
			bio = $4,
			avatar_key = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		user.DisplayName,
		user.Phone,
		user.ClubName,
		user.Bio,
		user.AvatarKey,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) SetStatus(ctx context.Context, id int, status models.UserStatus, reason *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET status = $1, ban_reason = $2 WHERE id = $3`, status, reason, id)
	if err != nil {
		return fmt.Errorf("failed to set status for user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) SetVerifiedRank(ctx context.Context, exec SQLExecutor, id int, rank models.Rank) error {
	result, err := exec.ExecContext(ctx, `UPDATE users SET verified_rank = $1 WHERE id = $2`, rank, id)
	if err != nil {
		return fmt.Errorf("failed to set verified rank for user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateElo(ctx context.Context, exec SQLExecutor, id int, elo int) error {
	result, err := exec.ExecContext(ctx, `UPDATE users SET elo = $1 WHERE id = $2`, elo, id)
	if err != nil {
		return fmt.Errorf("failed to update elo for user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) AdjustSpa(ctx context.Context, exec SQLExecutor, id int, delta int) (int, error) {
	var balance int
	err := exec.QueryRowContext(ctx,
		`UPDATE users SET spa_points = GREATEST(spa_points + $1, 0) WHERE id = $2 RETURNING spa_points`,
		delta, id,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to adjust spa points for user %d: %w", id, err)
	}
	return balance, nil
}

func (r *postgresUserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var where strings.Builder
	where.WriteString(` WHERE 1=1`)
	args := []interface{}{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		where.WriteString(` AND (display_name ILIKE $` + n + ` OR email ILIKE $` + n + `)`)
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where.WriteString(` AND status = $` + strconv.Itoa(len(args)))
	}
	if filter.Rank != nil {
		args = append(args, *filter.Rank)
		where.WriteString(` AND verified_rank = $` + strconv.Itoa(len(args)))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	args = append(args, limit, offset)
	query := `SELECT ` + userColumns + ` FROM users` + where.String() +
		fmt.Sprintf(` ORDER BY id ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	users, err := r.queryUsers(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *postgresUserRepository) Leaderboard(ctx context.Context, order models.LeaderboardOrder, limit, offset int) ([]models.User, error) {
	column := "elo"
	if order == models.LeaderboardBySpa {
		column = "spa_points"
	}
	limit, offset = normalizePage(limit, offset)
	query := `SELECT ` + userColumns + ` FROM users WHERE status = 'active'
		ORDER BY ` + column + ` DESC, id ASC LIMIT $1 OFFSET $2`
	return r.queryUsers(ctx, query, limit, offset)
}

func (r *postgresUserRepository) Count(ctx context.Context, status *models.UserStatus) (int, error) {
	var count int
	var err error
	if status == nil {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE status = $1`, *status).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *postgresUserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
