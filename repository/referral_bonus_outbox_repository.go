package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"earnify/database"
	"earnify/domain/entities"
	"earnify/domain/interfaces"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const outboxColumns = `
	id, referrer_id, referee_id, source_transaction_id, amount,
	attempts, last_error, processed_at, created_at`

// ReferralBonusOutboxRepository implements interfaces.ReferralBonusOutboxRepository
type ReferralBonusOutboxRepository struct {
	q Queryable
}

// NewReferralBonusOutboxRepository creates an outbox repository over the pool
func NewReferralBonusOutboxRepository(db *database.DB) *ReferralBonusOutboxRepository {
	return &ReferralBonusOutboxRepository{q: db.Pool}
}

func newReferralBonusOutboxRepository(q Queryable) interfaces.ReferralBonusOutboxRepository {
	return &ReferralBonusOutboxRepository{q: q}
}

func scanOutboxEntry(row pgx.Row) (*entities.ReferralBonusEntry, error) {
	var entry entities.ReferralBonusEntry
	err := row.Scan(
		&entry.ID,
		&entry.ReferrerID,
		&entry.RefereeID,
		&entry.SourceTransactionID,
		&entry.Amount,
		&entry.Attempts,
		&entry.LastError,
		&entry.ProcessedAt,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Enqueue stores an owed commission. The ID is generated if unset.
func (r *ReferralBonusOutboxRepository) Enqueue(ctx context.Context, entry *entities.ReferralBonusEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	query := `
		INSERT INTO referral_bonus_outbox (id, referrer_id, referee_id, source_transaction_id, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.q.QueryRow(ctx, query,
		entry.ID,
		entry.ReferrerID,
		entry.RefereeID,
		entry.SourceTransactionID,
		entry.Amount,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue referral bonus for referrer %d: %w", entry.ReferrerID, err)
	}
	return nil
}

// GetByID retrieves an outbox entry
func (r *ReferralBonusOutboxRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.ReferralBonusEntry, error) {
	query := `SELECT ` + outboxColumns + ` FROM referral_bonus_outbox WHERE id = $1`

	entry, err := scanOutboxEntry(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral bonus %s: %w", id, err)
	}
	return entry, nil
}

// ListUnprocessed returns the oldest unsettled entries that have not exhausted their attempts
func (r *ReferralBonusOutboxRepository) ListUnprocessed(ctx context.Context, limit, maxAttempts int) ([]*entities.ReferralBonusEntry, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM referral_bonus_outbox
		WHERE processed_at IS NULL AND attempts < $2
		ORDER BY created_at
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed referral bonuses: %w", err)
	}
	defer rows.Close()

	var entries []*entities.ReferralBonusEntry
	for rows.Next() {
		entry, err := scanOutboxEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan referral bonus: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate referral bonuses: %w", err)
	}
	return entries, nil
}

// MarkProcessed settles an entry exactly once
func (r *ReferralBonusOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE referral_bonus_outbox
		SET processed_at = $2, attempts = attempts + 1
		WHERE id = $1 AND processed_at IS NULL
	`
	result, err := r.q.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark referral bonus %s processed: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

// RecordFailure counts a failed settlement attempt
func (r *ReferralBonusOutboxRepository) RecordFailure(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE referral_bonus_outbox
		SET attempts = attempts + 1, last_error = $2
		WHERE id = $1 AND processed_at IS NULL
	`
	if _, err := r.q.Exec(ctx, query, id, reason); err != nil {
		return fmt.Errorf("failed to record referral bonus failure for %s: %w", id, err)
	}
	return nil
}
