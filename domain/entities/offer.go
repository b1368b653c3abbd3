package entities

import "time"

// Offer is a CPA task surfaced to users
type Offer struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Reward      int64     `db:"reward"`
	Link        string    `db:"link"`
	ImageURL    string    `db:"image_url"`
	Category    string    `db:"category"`
	Type        string    `db:"offer_type"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}

// PostbackReceipt records a settled network conversion; its key makes postbacks idempotent
type PostbackReceipt struct {
	ID            int64     `db:"id"`
	UserID        int64     `db:"user_id"`
	OfferID       string    `db:"offer_id"`
	NetworkTxID   string    `db:"network_tx_id"`
	Reward        int64     `db:"reward"`
	TransactionID int64     `db:"transaction_id"`
	CreatedAt     time.Time `db:"created_at"`
}
