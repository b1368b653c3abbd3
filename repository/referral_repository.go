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

// ReferralRepository implements interfaces.ReferralRepository
type ReferralRepository struct {
	q Queryable
}

// NewReferralRepository creates a referral repository over the pool
func NewReferralRepository(db *database.DB) *ReferralRepository {
	return &ReferralRepository{q: db.Pool}
}

func newReferralRepository(q Queryable) interfaces.ReferralRepository {
	return &ReferralRepository{q: q}
}

// Create appends an edge; a referee can only ever have one referrer
func (r *ReferralRepository) Create(ctx context.Context, edge *entities.ReferralEdge) error {
	query := `
		INSERT INTO referral_edges (referrer_id, referee_id, is_active)
		VALUES ($1, $2, $3)
		RETURNING joined_at
	`
	err := r.q.QueryRow(ctx, query, edge.ReferrerID, edge.RefereeID, edge.IsActive).Scan(&edge.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to create referral edge %d -> %d: %w", edge.ReferrerID, edge.RefereeID, err)
	}
	return nil
}

// GetByReferee returns the edge pointing at a referee, if any
func (r *ReferralRepository) GetByReferee(ctx context.Context, refereeID int64) (*entities.ReferralEdge, error) {
	query := `
		SELECT referrer_id, referee_id, is_active, commission_earned, joined_at, activated_at
		FROM referral_edges
		WHERE referee_id = $1
	`

	var edge entities.ReferralEdge
	err := r.q.QueryRow(ctx, query, refereeID).Scan(
		&edge.ReferrerID,
		&edge.RefereeID,
		&edge.IsActive,
		&edge.CommissionEarned,
		&edge.JoinedAt,
		&edge.ActivatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral edge for referee %d: %w", refereeID, err)
	}
	return &edge, nil
}

// Activate marks the referee's edge active. Activating an active edge is a no-op success.
func (r *ReferralRepository) Activate(ctx context.Context, refereeID int64, at time.Time) (bool, error) {
	query := `
		UPDATE referral_edges
		SET is_active = TRUE, activated_at = COALESCE(activated_at, $2)
		WHERE referee_id = $1
	`
	result, err := r.q.Exec(ctx, query, refereeID, at)
	if err != nil {
		return false, fmt.Errorf("failed to activate referral edge for referee %d: %w", refereeID, err)
	}
	return result.RowsAffected() == 1, nil
}

// AddCommission accumulates the commission paid along an edge
func (r *ReferralRepository) AddCommission(ctx context.Context, referrerID, refereeID, amount int64) error {
	query := `
		UPDATE referral_edges
		SET commission_earned = commission_earned + $3
		WHERE referrer_id = $1 AND referee_id = $2
	`
	result, err := r.q.Exec(ctx, query, referrerID, refereeID, amount)
	if err != nil {
		return fmt.Errorf("failed to add commission on edge %d -> %d: %w", referrerID, refereeID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("referral edge %d -> %d not found", referrerID, refereeID)
	}
	return nil
}

// GetStats summarises a referrer's downline
func (r *ReferralRepository) GetStats(ctx context.Context, referrerID int64) (*entities.ReferralStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COALESCE(SUM(commission_earned), 0)
		FROM referral_edges
		WHERE referrer_id = $1
	`

	var stats entities.ReferralStats
	err := r.q.QueryRow(ctx, query, referrerID).Scan(
		&stats.TotalReferrals,
		&stats.ActiveReferrals,
		&stats.TotalCommission,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral stats for user %d: %w", referrerID, err)
	}
	return &stats, nil
}
