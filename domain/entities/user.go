package entities

import (
	"time"
)

// User is a rewards account keyed by the principal's Telegram ID.
// Accounts are never hard-deleted; IsBlocked is a soft flag.
type User struct {
	ID               int64      `db:"id"`
	Username         string     `db:"username"`
	FirstName        string     `db:"first_name"`
	LastName         string     `db:"last_name"`
	Balance          int64      `db:"balance"`
	PendingBalance   int64      `db:"pending_balance"`
	TotalEarned      int64      `db:"total_earned"`
	ReferralEarnings int64      `db:"referral_earnings"`
	DailyStreak      int        `db:"daily_streak"`
	LastClaim        *time.Time `db:"last_claim"`
	ReferralCode     string     `db:"referral_code"`
	ReferredBy       *string    `db:"referred_by"`
	Level            int        `db:"level"`
	IsBlocked        bool       `db:"is_blocked"`
	Version          int64      `db:"version"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// FieldValue returns the current value of a ledger field
func (u *User) FieldValue(field BalanceField) int64 {
	if field == FieldPendingBalance {
		return u.PendingBalance
	}
	return u.Balance
}

// BalanceAdjustment is a set of signed deltas applied to a user row in one statement
type BalanceAdjustment struct {
	Balance          int64
	PendingBalance   int64
	TotalEarned      int64
	ReferralEarnings int64
}

// IsZero reports whether the adjustment changes nothing
func (a BalanceAdjustment) IsZero() bool {
	return a == BalanceAdjustment{}
}

// Principal is the authenticated caller asserted by the host platform
type Principal struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// DisplayName returns the best human-readable name for the principal
func (p Principal) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	if p.LastName != "" {
		return p.FirstName + " " + p.LastName
	}
	return p.FirstName
}
