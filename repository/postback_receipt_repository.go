package repository

import (
	"context"
	"errors"
	"fmt"

	"earnify/domain/entities"
	"earnify/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// PostbackReceiptRepository implements interfaces.PostbackReceiptRepository
type PostbackReceiptRepository struct {
	q Queryable
}

func newPostbackReceiptRepository(q Queryable) interfaces.PostbackReceiptRepository {
	return &PostbackReceiptRepository{q: q}
}

// Insert stores a receipt keyed by (user_id, offer_id, network_tx_id)
func (r *PostbackReceiptRepository) Insert(ctx context.Context, receipt *entities.PostbackReceipt) (bool, error) {
	query := `
		INSERT INTO postback_receipts (user_id, offer_id, network_tx_id, reward, transaction_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, offer_id, network_tx_id) DO NOTHING
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		receipt.UserID,
		receipt.OfferID,
		receipt.NetworkTxID,
		receipt.Reward,
		receipt.TransactionID,
	).Scan(&receipt.ID, &receipt.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert postback receipt for user %d: %w", receipt.UserID, err)
	}
	return true, nil
}
