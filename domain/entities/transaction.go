package entities

import (
	"time"
)

// Category identifies the rule that produced a ledger entry
type Category string

const (
	CategoryAdReward      Category = "ad_reward"
	CategoryDailyReward   Category = "daily_reward"
	CategoryCPAReward     Category = "cpa_reward"
	CategoryReferralBonus Category = "referral_bonus"
	CategoryGameWager     Category = "game_wager"
	CategoryWithdrawal    Category = "withdrawal"
)

// IsEarning reports whether credits in this category count toward total earned
func (c Category) IsEarning() bool {
	switch c {
	case CategoryAdReward, CategoryDailyReward, CategoryCPAReward, CategoryReferralBonus:
		return true
	}
	return false
}

// TriggersReferralBonus reports whether a settled credit in this category owes the referrer a commission.
// Pending CPA credits and referral bonuses themselves never do.
func (c Category) TriggersReferralBonus() bool {
	return c == CategoryAdReward || c == CategoryDailyReward
}

func (c Category) String() string {
	return string(c)
}

// TransactionStatus is the lifecycle state of a ledger entry
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Direction is credit or debit; Transaction.Amount is always a positive magnitude
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// BalanceField names the user column a ledger entry targets
type BalanceField string

const (
	FieldBalance        BalanceField = "balance"
	FieldPendingBalance BalanceField = "pending_balance"
)

// Valid reports whether the field is one of the ledger columns
func (f BalanceField) Valid() bool {
	return f == FieldBalance || f == FieldPendingBalance
}

// BankDetails is the payout destination attached to withdrawal entries
type BankDetails struct {
	Bank          string `json:"bank"`
	AccountNumber string `json:"accountNumber"`
}

// Transaction is an append-only ledger entry. Only Status may change, and only out of pending.
type Transaction struct {
	ID            int64             `db:"id"`
	UserID        int64             `db:"user_id"`
	Amount        int64             `db:"amount"`
	Direction     Direction         `db:"direction"`
	Category      Category          `db:"category"`
	Status        TransactionStatus `db:"status"`
	TargetField   BalanceField      `db:"target_field"`
	BalanceBefore int64             `db:"balance_before"`
	BalanceAfter  int64             `db:"balance_after"`
	Description   string            `db:"description"`
	Metadata      map[string]any    `db:"metadata"`
	BankDetails   *BankDetails      `db:"bank_details"`
	RelatedUserID *int64            `db:"related_user_id"`
	CreatedAt     time.Time         `db:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at"`
}

// SignedAmount returns the amount with its direction applied
func (t *Transaction) SignedAmount() int64 {
	if t.Direction == DirectionDebit {
		return -t.Amount
	}
	return t.Amount
}

// IsPendingWithdrawal reports whether the entry still awaits the payout processor
func (t *Transaction) IsPendingWithdrawal() bool {
	return t.Category == CategoryWithdrawal && t.Status == StatusPending
}

// LedgerTotals are the balances implied by a user's transaction log
type LedgerTotals struct {
	Balance        int64
	PendingBalance int64
	EntryCount     int64
}
