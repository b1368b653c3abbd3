package services

import (
	"context"
	"fmt"
	"time"

	"earnify/domain/apperrors"
	"earnify/domain/entities"
	"earnify/domain/interfaces"
	"earnify/events"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// Clock returns the current time
type Clock func() time.Time

// AtomicContext is what an AtomicWrite sees of the ledger write it joins.
// Writes that change the user row should replace User with the updated row.
type AtomicContext struct {
	User        *entities.User
	Transaction *entities.Transaction
}

// AtomicWrite is an extra store write that commits or rolls back with a ledger entry
type AtomicWrite func(ctx context.Context, uow interfaces.UnitOfWork, ac *AtomicContext) error

// BalanceDelta describes one signed change to a user's ledger field
type BalanceDelta struct {
	UserID        int64
	Amount        int64 // signed; negative debits the field
	Field         entities.BalanceField
	Category      entities.Category
	Status        entities.TransactionStatus
	Description   string
	Metadata      map[string]any
	BankDetails   *entities.BankDetails
	RelatedUserID *int64

	// Guard runs against the locked user row before anything is written
	Guard func(user *entities.User) error
	// Describe, when set, replaces Description once Guard has passed
	Describe func() string
}

func (d BalanceDelta) description() string {
	if d.Describe != nil {
		return d.Describe()
	}
	return d.Description
}

// LedgerResult is the committed outcome of a ledger write
type LedgerResult struct {
	User        *entities.User
	Transaction *entities.Transaction
}

// ReconciliationReport compares stored balances with those implied by the transaction log
type ReconciliationReport struct {
	UserID          int64 `json:"userId"`
	Balance         int64 `json:"balance"`
	ExpectedBalance int64 `json:"expectedBalance"`
	PendingBalance  int64 `json:"pendingBalance"`
	ExpectedPending int64 `json:"expectedPending"`
	EntryCount      int64 `json:"entryCount"`
}

// InSync reports whether the stored balances match the log
func (r *ReconciliationReport) InSync() bool {
	return r.Balance == r.ExpectedBalance && r.PendingBalance == r.ExpectedPending
}

// LedgerConfig tunes the ledger's retry discipline
type LedgerConfig struct {
	// MaxRetries bounds re-executions of a unit after a serialization failure
	MaxRetries uint64

	// IsRetryable classifies store errors that are resolved by re-running the unit
	IsRetryable func(error) bool

	Now     Clock
	Metrics Metrics
}

// LedgerService is the single path by which balances change
type LedgerService struct {
	uowFactory  interfaces.UnitOfWorkFactory
	maxRetries  uint64
	isRetryable func(error) bool
	now         Clock
	metrics     Metrics
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory interfaces.UnitOfWorkFactory, cfg LedgerConfig) *LedgerService {
	s := &LedgerService{
		uowFactory:  uowFactory,
		maxRetries:  cfg.MaxRetries,
		isRetryable: cfg.IsRetryable,
		now:         cfg.Now,
		metrics:     cfg.Metrics,
	}
	if s.isRetryable == nil {
		s.isRetryable = func(error) bool { return false }
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.metrics == nil {
		s.metrics = NoopMetrics{}
	}
	return s
}

// Now returns the ledger's clock reading
func (s *LedgerService) Now() time.Time {
	return s.now()
}

// RunInTransaction runs fn in a fresh unit of work and commits it.
// The whole unit is re-executed when the store reports a serialization failure.
func (s *LedgerService) RunInTransaction(ctx context.Context, fn func(ctx context.Context, uow interfaces.UnitOfWork) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			s.metrics.RecordLedgerRetry(ctx)
		}

		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return s.classify(fmt.Errorf("failed to begin transaction: %w", err))
		}
		defer uow.Rollback()

		if err := fn(ctx, uow); err != nil {
			return s.classify(err)
		}

		if err := uow.Commit(); err != nil {
			return s.classify(err)
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(s.newBackOff(), ctx))
	if err != nil && s.isRetryable(err) {
		log.WithFields(log.Fields{
			"attempts": attempt,
			"error":    err,
		}).Error("Ledger unit abandoned after repeated serialization failures")
		return fmt.Errorf("failed to commit ledger unit after %d attempts: %w", attempt, err)
	}
	return err
}

func (s *LedgerService) classify(err error) error {
	if s.isRetryable(err) {
		return err
	}
	return backoff.Permanent(err)
}

func (s *LedgerService) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, s.maxRetries)
}

// ApplyBalanceDelta applies delta and any extra writes as one atomic unit
func (s *LedgerService) ApplyBalanceDelta(ctx context.Context, delta BalanceDelta, extras ...AtomicWrite) (*LedgerResult, error) {
	var result *LedgerResult
	err := s.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		r, err := s.ApplyWithinUnit(ctx, uow, delta, extras...)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		s.recordRejection(ctx, err)
		return nil, err
	}

	s.recordCommitted(ctx, result)
	return result, nil
}

// ApplyWithinUnit applies delta inside a unit the caller already owns.
// Used when the caller must read other rows in the same unit first.
func (s *LedgerService) ApplyWithinUnit(ctx context.Context, uow interfaces.UnitOfWork, delta BalanceDelta, extras ...AtomicWrite) (*LedgerResult, error) {
	if delta.Amount == 0 {
		return nil, apperrors.BadRequest("amount must be non-zero")
	}
	if delta.Field == "" {
		delta.Field = entities.FieldBalance
	}
	if !delta.Field.Valid() {
		return nil, apperrors.BadRequest("unknown balance field %q", delta.Field)
	}
	if delta.Status == "" {
		delta.Status = entities.StatusCompleted
	}

	user, err := uow.UserRepository().GetByIDForUpdate(ctx, delta.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.UserNotFound(delta.UserID)
	}
	if user.IsBlocked {
		return nil, apperrors.AccountBlocked(user.ID)
	}
	if delta.Guard != nil {
		if err := delta.Guard(user); err != nil {
			return nil, err
		}
	}

	before := user.FieldValue(delta.Field)
	if before+delta.Amount < 0 {
		return nil, apperrors.InsufficientFunds(before, -delta.Amount)
	}

	updated, err := uow.UserRepository().AdjustBalances(ctx, user.ID, adjustmentFor(delta))
	if err != nil {
		return nil, fmt.Errorf("failed to adjust balances: %w", err)
	}
	if updated == nil {
		// The conditional update refused the change
		return nil, apperrors.InsufficientFunds(before, -delta.Amount)
	}

	tx := &entities.Transaction{
		UserID:        user.ID,
		Amount:        abs(delta.Amount),
		Direction:     entities.DirectionCredit,
		Category:      delta.Category,
		Status:        delta.Status,
		TargetField:   delta.Field,
		BalanceBefore: before,
		BalanceAfter:  updated.FieldValue(delta.Field),
		Description:   delta.description(),
		Metadata:      delta.Metadata,
		BankDetails:   delta.BankDetails,
		RelatedUserID: delta.RelatedUserID,
	}
	if delta.Amount < 0 {
		tx.Direction = entities.DirectionDebit
	}
	if err := uow.TransactionRepository().Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	ac := &AtomicContext{User: updated, Transaction: tx}
	for _, write := range extras {
		if err := write(ctx, uow, ac); err != nil {
			return nil, err
		}
	}

	if err := uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:        user.ID,
		TransactionID: tx.ID,
		Field:         string(tx.TargetField),
		Category:      tx.Category.String(),
		Status:        string(tx.Status),
		OldValue:      tx.BalanceBefore,
		NewValue:      tx.BalanceAfter,
		ChangeAmount:  delta.Amount,
	}); err != nil {
		return nil, fmt.Errorf("failed to publish balance change event: %w", err)
	}

	return &LedgerResult{User: ac.User, Transaction: tx}, nil
}

// Reconcile re-derives a user's balances from the transaction log
func (s *LedgerService) Reconcile(ctx context.Context, userID int64) (*ReconciliationReport, error) {
	var report *ReconciliationReport
	err := s.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		user, err := uow.UserRepository().GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if user == nil {
			return apperrors.UserNotFound(userID)
		}

		totals, err := uow.TransactionRepository().GetLedgerTotals(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get ledger totals: %w", err)
		}

		report = &ReconciliationReport{
			UserID:          userID,
			Balance:         user.Balance,
			ExpectedBalance: totals.Balance,
			PendingBalance:  user.PendingBalance,
			ExpectedPending: totals.PendingBalance,
			EntryCount:      totals.EntryCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !report.InSync() {
		log.WithFields(log.Fields{
			"userId":          userID,
			"balance":         report.Balance,
			"expectedBalance": report.ExpectedBalance,
			"pending":         report.PendingBalance,
			"expectedPending": report.ExpectedPending,
		}).Warn("Ledger drift detected")
	}
	return report, nil
}

func (s *LedgerService) recordCommitted(ctx context.Context, result *LedgerResult) {
	tx := result.Transaction
	s.metrics.RecordLedgerEntry(ctx, tx.Category.String(), string(tx.TargetField), tx.SignedAmount())

	log.WithFields(log.Fields{
		"userId":        tx.UserID,
		"transactionId": tx.ID,
		"category":      tx.Category,
		"field":         tx.TargetField,
		"amount":        tx.SignedAmount(),
		"balanceAfter":  tx.BalanceAfter,
	}).Debug("Ledger entry committed")
}

func (s *LedgerService) recordRejection(ctx context.Context, err error) {
	if appErr, ok := apperrors.As(err); ok {
		s.metrics.RecordLedgerRejection(ctx, string(appErr.Code))
		return
	}
	s.metrics.RecordLedgerRejection(ctx, string(apperrors.CodeInternal))
}

// adjustmentFor translates a delta into column deltas. Earning credits also grow
// total_earned, and referral bonuses grow referral_earnings.
func adjustmentFor(delta BalanceDelta) entities.BalanceAdjustment {
	var adj entities.BalanceAdjustment
	if delta.Field == entities.FieldPendingBalance {
		adj.PendingBalance = delta.Amount
	} else {
		adj.Balance = delta.Amount
	}
	if delta.Amount > 0 && delta.Category.IsEarning() {
		adj.TotalEarned = delta.Amount
		if delta.Category == entities.CategoryReferralBonus {
			adj.ReferralEarnings = delta.Amount
		}
	}
	return adj
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
