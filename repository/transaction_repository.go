package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"earnify/database"
	"earnify/domain/entities"
	"earnify/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `
	id, user_id, amount, direction, category, status, target_field,
	balance_before, balance_after, description, metadata, bank_details,
	related_user_id, created_at, updated_at`

// TransactionRepository implements interfaces.TransactionRepository
type TransactionRepository struct {
	q Queryable
}

// NewTransactionRepository creates a transaction repository over the pool
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

func newTransactionRepository(q Queryable) interfaces.TransactionRepository {
	return &TransactionRepository{q: q}
}

func scanTransaction(row pgx.Row) (*entities.Transaction, error) {
	var tx entities.Transaction
	var metadata, bankDetails []byte
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Direction,
		&tx.Category,
		&tx.Status,
		&tx.TargetField,
		&tx.BalanceBefore,
		&tx.BalanceAfter,
		&tx.Description,
		&metadata,
		&bankDetails,
		&tx.RelatedUserID,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for transaction %d: %w", tx.ID, err)
		}
	}
	if len(bankDetails) > 0 {
		tx.BankDetails = &entities.BankDetails{}
		if err := json.Unmarshal(bankDetails, tx.BankDetails); err != nil {
			return nil, fmt.Errorf("failed to decode bank details for transaction %d: %w", tx.ID, err)
		}
	}
	return &tx, nil
}

// Create appends a ledger entry
func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	metadata := tx.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode transaction metadata: %w", err)
	}

	var bankDetailsJSON []byte
	if tx.BankDetails != nil {
		bankDetailsJSON, err = json.Marshal(tx.BankDetails)
		if err != nil {
			return fmt.Errorf("failed to encode bank details: %w", err)
		}
	}

	query := `
		INSERT INTO transactions (
			user_id, amount, direction, category, status, target_field,
			balance_before, balance_after, description, metadata, bank_details, related_user_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err = r.q.QueryRow(ctx, query,
		tx.UserID,
		tx.Amount,
		tx.Direction,
		tx.Category,
		tx.Status,
		tx.TargetField,
		tx.BalanceBefore,
		tx.BalanceAfter,
		tx.Description,
		metadataJSON,
		bankDetailsJSON,
		tx.RelatedUserID,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to record %s transaction for user %d: %w", tx.Category, tx.UserID, err)
	}

	tx.Metadata = metadata
	return nil
}

// GetByIDForUpdate retrieves an entry and locks it
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return tx, nil
}

// UpdateStatus moves a pending entry to a final status, recording an optional note in metadata
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, status entities.TransactionStatus, note string) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $2,
			metadata = CASE WHEN $3::text = '' THEN metadata
			                ELSE metadata || jsonb_build_object('resolutionNote', $3::text) END,
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	result, err := r.q.Exec(ctx, query, id, status, note)
	if err != nil {
		return false, fmt.Errorf("failed to update status of transaction %d: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

// GetRecentByUser returns the newest entries for a user
func (r *TransactionRepository) GetRecentByUser(ctx context.Context, userID int64, limit int) ([]*entities.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var transactions []*entities.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

// GetLedgerTotals re-derives balances from the log.
// A pending withdrawal holds its amount in pending_balance; a failed one nets to zero.
func (r *TransactionRepository) GetLedgerTotals(ctx context.Context, userID int64) (*entities.LedgerTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE
				WHEN target_field <> 'balance' THEN 0
				WHEN category = 'withdrawal' AND status = 'failed' THEN 0
				WHEN direction = 'credit' THEN amount
				ELSE -amount
			END), 0) AS balance,
			COALESCE(SUM(CASE
				WHEN category = 'withdrawal' AND status = 'pending' THEN amount
				WHEN target_field <> 'pending_balance' OR status = 'failed' THEN 0
				WHEN direction = 'credit' THEN amount
				ELSE -amount
			END), 0) AS pending_balance,
			COUNT(*) AS entry_count
		FROM transactions
		WHERE user_id = $1
	`

	var totals entities.LedgerTotals
	err := r.q.QueryRow(ctx, query, userID).Scan(&totals.Balance, &totals.PendingBalance, &totals.EntryCount)
	if err != nil {
		return nil, fmt.Errorf("failed to compute ledger totals for user %d: %w", userID, err)
	}
	return &totals, nil
}
