package entities

import (
	"time"

	"github.com/google/uuid"
)

// ReferralEdge links a referrer to a referee. Edges start inactive.
type ReferralEdge struct {
	ReferrerID       int64      `db:"referrer_id"`
	RefereeID        int64      `db:"referee_id"`
	IsActive         bool       `db:"is_active"`
	CommissionEarned int64      `db:"commission_earned"`
	JoinedAt         time.Time  `db:"joined_at"`
	ActivatedAt      *time.Time `db:"activated_at"`
}

// ReferralStats summarises a referrer's downline
type ReferralStats struct {
	TotalReferrals  int   `json:"totalReferrals"`
	ActiveReferrals int   `json:"activeReferrals"`
	TotalCommission int64 `json:"totalCommission"`
}

// ReferralBonusEntry is an outbox row owing a referrer their commission
type ReferralBonusEntry struct {
	ID                  uuid.UUID  `db:"id"`
	ReferrerID          int64      `db:"referrer_id"`
	RefereeID           int64      `db:"referee_id"`
	SourceTransactionID int64      `db:"source_transaction_id"`
	Amount              int64      `db:"amount"`
	Attempts            int        `db:"attempts"`
	LastError           string     `db:"last_error"`
	ProcessedAt         *time.Time `db:"processed_at"`
	CreatedAt           time.Time  `db:"created_at"`
}

// CommissionFor returns the commission owed on amount at the given basis points, floored
func CommissionFor(amount, basisPoints int64) int64 {
	if amount <= 0 || basisPoints <= 0 {
		return 0
	}
	return amount * basisPoints / 10000
}
