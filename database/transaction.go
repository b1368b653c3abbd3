package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BeginSerializable opens a SERIALIZABLE read-write transaction.
// Conflicting ledger mutations fail with SQLSTATE 40001 and must be re-run by the caller.
func (db *DB) BeginSerializable(ctx context.Context) (pgx.Tx, error) {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin serializable transaction: %w", err)
	}
	return tx, nil
}
