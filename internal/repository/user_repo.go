package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/idfuturestars/starguide/pkg/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, username, password_hash, full_name, role, status,
	avatar_url, bio, grade_level, school, level, xp_total, streak_days, created_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.FullName,
		&user.Role, &user.Status, &user.AvatarURL, &user.Bio, &user.GradeLevel, &user.School,
		&user.Progress.Level, &user.Progress.XPTotal, &user.Progress.StreakDays,
		&user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, full_name, role, status, grade_level, school)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	user.ID = uuid.New()
	if user.Role == "" {
		user.Role = models.RoleStudent
	}
	user.Status = models.StatusActive
	user.Progress = models.Progress{Level: 1}

	return r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.PasswordHash, user.FullName,
		user.Role, user.Status, user.GradeLevel, user.School,
	).Scan(&user.CreatedAt)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

// GetByIdentifier resolves a login identifier that may be an email address or
// a username.
func (r *UserRepo) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, identifier))
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}

func (r *UserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET
			full_name = COALESCE($1, full_name),
			bio = COALESCE($2, bio),
			grade_level = COALESCE($3, grade_level),
			school = COALESCE($4, school),
			avatar_url = COALESCE($5, avatar_url)
		WHERE id = $6`,
		req.FullName, req.Bio, req.GradeLevel, req.School, req.AvatarURL, userID,
	)
	return err
}

// AddXP credits experience points and bumps the level every 1000 XP.
// Returns true when the credit crossed a level boundary.
func (r *UserRepo) AddXP(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	var leveled bool
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET
			xp_total = xp_total + $1,
			level = 1 + (xp_total + $1) / 1000
		WHERE id = $2
		RETURNING level > 1 + (xp_total - $1) / 1000`,
		amount, userID,
	).Scan(&leveled)
	return leveled, err
}

func (r *UserRepo) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, username, level, xp_total
		FROM users
		WHERE status = 'active'
		ORDER BY xp_total DESC, username ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Level, &e.XPTotal); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TouchStreak bumps streak_days when the last activity was yesterday, resets
// it to 1 after a gap, and leaves it unchanged for repeat logins on the same
// day.
func (r *UserRepo) TouchStreak(ctx context.Context, userID uuid.UUID, now time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET streak_days = CASE
			WHEN last_login_at IS NULL THEN 1
			WHEN last_login_at::date = $2::date - 1 THEN streak_days + 1
			WHEN last_login_at::date < $2::date - 1 THEN 1
			ELSE GREATEST(streak_days, 1)
		END
		WHERE id = $1`,
		userID, now,
	)
	return err
}

// ExpireStreaks zeroes streaks for users with no login in the last two days.
// Returns the affected user ids so the caller can record the lapse.
func (r *UserRepo) ExpireStreaks(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE users SET streak_days = 0
		WHERE streak_days > 0
		  AND (last_login_at IS NULL OR last_login_at::date < $1::date - 1)
		RETURNING id`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
