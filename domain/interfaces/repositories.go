package interfaces

import (
	"context"
	"time"

	"earnify/domain/entities"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user account access
type UserRepository interface {
	// GetByID retrieves a user by principal ID, returning nil if absent
	GetByID(ctx context.Context, id int64) (*entities.User, error)

	// GetByIDForUpdate reads the user and locks the row for the rest of the unit
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.User, error)

	// GetByReferralCode resolves a referral code to its owner
	GetByReferralCode(ctx context.Context, code string) (*entities.User, error)

	// Create inserts a new account. Returns false if the ID already exists.
	Create(ctx context.Context, user *entities.User) (bool, error)

	// UpdateProfile refreshes the display fields asserted by the host platform
	UpdateProfile(ctx context.Context, id int64, username, firstName, lastName string) error

	// AdjustBalances applies signed deltas in one statement. Returns nil if the
	// user does not exist or the result would make balance or pending_balance negative.
	AdjustBalances(ctx context.Context, id int64, adj entities.BalanceAdjustment) (*entities.User, error)

	// SetReferredBy stores the referral code a user signed up with
	SetReferredBy(ctx context.Context, id int64, code string) error

	// UpdateStreak records a daily claim
	UpdateStreak(ctx context.Context, id int64, streak int, claimedAt time.Time) error
}

// TransactionRepository defines the interface for the ledger entry log
type TransactionRepository interface {
	// Create appends a ledger entry and fills its ID and timestamps
	Create(ctx context.Context, tx *entities.Transaction) error

	// GetByIDForUpdate retrieves an entry and locks it
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Transaction, error)

	// UpdateStatus moves a pending entry to a final status. Returns false if it was not pending.
	UpdateStatus(ctx context.Context, id int64, status entities.TransactionStatus, note string) (bool, error)

	// GetRecentByUser returns the newest entries for a user
	GetRecentByUser(ctx context.Context, userID int64, limit int) ([]*entities.Transaction, error)

	// GetLedgerTotals re-derives balance and pending_balance from the log
	GetLedgerTotals(ctx context.Context, userID int64) (*entities.LedgerTotals, error)
}

// GameRepository defines the interface for the game catalogue
type GameRepository interface {
	GetByID(ctx context.Context, id int64) (*entities.Game, error)
	ListActive(ctx context.Context) ([]*entities.Game, error)
	Create(ctx context.Context, game *entities.Game) error

	// RecordPlay increments play counters; must run in the wager's unit
	RecordPlay(ctx context.Context, id int64, amount int64) error
}

// ReferralRepository defines the interface for the referral graph
type ReferralRepository interface {
	Create(ctx context.Context, edge *entities.ReferralEdge) error
	GetByReferee(ctx context.Context, refereeID int64) (*entities.ReferralEdge, error)

	// Activate flips an edge to active. Returns false if no edge exists for the referee.
	Activate(ctx context.Context, refereeID int64, at time.Time) (bool, error)

	AddCommission(ctx context.Context, referrerID, refereeID, amount int64) error
	GetStats(ctx context.Context, referrerID int64) (*entities.ReferralStats, error)
}

// ReferralBonusOutboxRepository defines the interface for owed referral commissions
type ReferralBonusOutboxRepository interface {
	Enqueue(ctx context.Context, entry *entities.ReferralBonusEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.ReferralBonusEntry, error)
	ListUnprocessed(ctx context.Context, limit, maxAttempts int) ([]*entities.ReferralBonusEntry, error)

	// MarkProcessed settles an entry once. Returns false if it was already processed.
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	RecordFailure(ctx context.Context, id uuid.UUID, reason string) error
}

// PostbackReceiptRepository defines the interface for postback idempotency receipts
type PostbackReceiptRepository interface {
	// Insert stores a receipt. Returns false if one already exists for the key.
	Insert(ctx context.Context, receipt *entities.PostbackReceipt) (bool, error)
}

// OfferRepository defines the interface for CPA offers and click tracking
type OfferRepository interface {
	GetByID(ctx context.Context, id int64) (*entities.Offer, error)
	ListActive(ctx context.Context) ([]*entities.Offer, error)
	Create(ctx context.Context, offer *entities.Offer) error
	RecordClick(ctx context.Context, userID, offerID int64) error
}
