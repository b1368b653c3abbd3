package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"earnify/config"
	"earnify/database"
	"earnify/events"
	"earnify/infrastructure"
)

// withServices runs fn against services backed by a fresh pool. Events go to the
// local audit log only, so operator actions never wait on NATS.
func withServices(ctx context.Context, fn func(*container) error) error {
	cfg := config.Get()
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	bus := events.NewBus()
	subscribeAuditLog(bus)
	return fn(buildServices(cfg, infrastructure.NewUnitOfWorkFactory(db, bus), nil))
}

// ActivateReferral marks the referee's edge active so their earnings pay commission
func ActivateReferral(ctx context.Context, refereeID int64) error {
	return withServices(ctx, func(c *container) error {
		return c.api.Referrals.Activate(ctx, refereeID)
	})
}

// ResolveWithdrawal applies a payout outcome by hand
func ResolveWithdrawal(ctx context.Context, transactionID int64, success bool, reason string) error {
	return withServices(ctx, func(c *container) error {
		tx, err := c.api.Withdrawals.ResolveWithdrawal(ctx, transactionID, success, reason)
		if err != nil {
			return err
		}
		fmt.Printf("withdrawal %d is now %s\n", tx.ID, tx.Status)
		return nil
	})
}

// Reconcile prints the user's stored balances next to those implied by the log.
// It fails when they disagree.
func Reconcile(ctx context.Context, userID int64) error {
	return withServices(ctx, func(c *container) error {
		report, err := c.api.Ledger.Reconcile(ctx, userID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to print report: %w", err)
		}
		if !report.InSync() {
			return fmt.Errorf("ledger drift for user %d", userID)
		}
		return nil
	})
}
