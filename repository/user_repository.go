package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"earnify/database"
	"earnify/domain/entities"
	"earnify/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const userColumns = `
	id, username, first_name, last_name,
	balance, pending_balance, total_earned, referral_earnings,
	daily_streak, last_claim, referral_code, referred_by,
	level, is_blocked, version, created_at, updated_at`

// UserRepository implements interfaces.UserRepository
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a user repository over the pool
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

func newUserRepository(q Queryable) interfaces.UserRepository {
	return &UserRepository{q: q}
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Balance,
		&user.PendingBalance,
		&user.TotalEarned,
		&user.ReferralEarnings,
		&user.DailyStreak,
		&user.LastClaim,
		&user.ReferralCode,
		&user.ReferredBy,
		&user.Level,
		&user.IsBlocked,
		&user.Version,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by principal ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}

// GetByIDForUpdate retrieves a user and locks the row until the transaction ends
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", id, err)
	}
	return user, nil
}

// GetByReferralCode resolves a referral code to its owner
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by referral code: %w", err)
	}
	return user, nil
}

// Create inserts a new account with zero balances
func (r *UserRepository) Create(ctx context.Context, user *entities.User) (bool, error) {
	query := `
		INSERT INTO users (id, username, first_name, last_name, referral_code, referred_by, level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at, updated_at
	`

	if user.Level == 0 {
		user.Level = 1
	}

	err := r.q.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.ReferralCode,
		user.ReferredBy,
		user.Level,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create user %d: %w", user.ID, err)
	}
	return true, nil
}

// UpdateProfile refreshes display fields
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, username, firstName, lastName string) error {
	query := `
		UPDATE users
		SET username = $2, first_name = $3, last_name = $4, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.Exec(ctx, query, id, username, firstName, lastName)
	if err != nil {
		return fmt.Errorf("failed to update profile for user %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", id)
	}
	return nil
}

// AdjustBalances applies signed deltas atomically. The WHERE clause refuses any
// adjustment that would take balance or pending_balance below zero.
func (r *UserRepository) AdjustBalances(ctx context.Context, id int64, adj entities.BalanceAdjustment) (*entities.User, error) {
	query := `
		UPDATE users
		SET balance = balance + $2,
			pending_balance = pending_balance + $3,
			total_earned = total_earned + $4,
			referral_earnings = referral_earnings + $5,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1
		  AND balance + $2 >= 0
		  AND pending_balance + $3 >= 0
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query,
		id,
		adj.Balance,
		adj.PendingBalance,
		adj.TotalEarned,
		adj.ReferralEarnings,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if isCheckViolation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to adjust balances for user %d: %w", id, err)
	}
	return user, nil
}

// SetReferredBy stores the referral code a user signed up with
func (r *UserRepository) SetReferredBy(ctx context.Context, id int64, code string) error {
	query := `UPDATE users SET referred_by = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.q.Exec(ctx, query, id, code)
	if err != nil {
		return fmt.Errorf("failed to set referrer for user %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", id)
	}
	return nil
}

// UpdateStreak records a daily claim
func (r *UserRepository) UpdateStreak(ctx context.Context, id int64, streak int, claimedAt time.Time) error {
	query := `
		UPDATE users
		SET daily_streak = $2, last_claim = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.Exec(ctx, query, id, streak, claimedAt)
	if err != nil {
		return fmt.Errorf("failed to update streak for user %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", id)
	}
	return nil
}
