package services

import (
	"context"
	"fmt"
	"strings"

	"earnify/domain/apperrors"
	"earnify/domain/entities"
	"earnify/domain/interfaces"
	"earnify/events"

	log "github.com/sirupsen/logrus"
)

// WithdrawalService moves balance into pending payouts and applies payout outcomes
type WithdrawalService struct {
	ledger        *LedgerService
	minWithdrawal int64
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(ledger *LedgerService, minWithdrawal int64) *WithdrawalService {
	return &WithdrawalService{
		ledger:        ledger,
		minWithdrawal: minWithdrawal,
	}
}

// RequestWithdrawal debits balance and reserves the amount in pending_balance
// until the payout processor reports back.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, userID, amount int64, bank entities.BankDetails) (*LedgerResult, error) {
	bank.Bank = strings.TrimSpace(bank.Bank)
	bank.AccountNumber = strings.TrimSpace(bank.AccountNumber)
	if bank.Bank == "" || bank.AccountNumber == "" {
		return nil, apperrors.BadRequest("bank and account number are required")
	}
	if amount < s.minWithdrawal {
		return nil, apperrors.BelowMinimum(s.minWithdrawal, amount)
	}

	reserve := func(ctx context.Context, uow interfaces.UnitOfWork, ac *AtomicContext) error {
		updated, err := uow.UserRepository().AdjustBalances(ctx, ac.User.ID, entities.BalanceAdjustment{PendingBalance: amount})
		if err != nil {
			return fmt.Errorf("failed to reserve withdrawal: %w", err)
		}
		if updated == nil {
			return fmt.Errorf("failed to reserve withdrawal for user %d", ac.User.ID)
		}
		ac.User = updated

		return uow.EventBus().Publish(events.WithdrawalRequestedEvent{
			TransactionID: ac.Transaction.ID,
			UserID:        ac.User.ID,
			Amount:        amount,
			Bank:          bank.Bank,
			AccountNumber: bank.AccountNumber,
			RequestedAt:   ac.Transaction.CreatedAt,
		})
	}

	result, err := s.ledger.ApplyBalanceDelta(ctx, BalanceDelta{
		UserID:      userID,
		Amount:      -amount,
		Field:       entities.FieldBalance,
		Category:    entities.CategoryWithdrawal,
		Status:      entities.StatusPending,
		Description: "Withdrawal to " + bank.Bank,
		BankDetails: &bank,
	}, reserve)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"userId":        userID,
		"transactionId": result.Transaction.ID,
		"amount":        amount,
	}).Info("Withdrawal requested")
	return result, nil
}

// ResolveWithdrawal applies the payout processor's outcome to a pending withdrawal.
// A failed payout returns the reserved amount to balance.
func (s *WithdrawalService) ResolveWithdrawal(ctx context.Context, transactionID int64, success bool, reason string) (*entities.Transaction, error) {
	var resolved *entities.Transaction
	err := s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		tx, err := uow.TransactionRepository().GetByIDForUpdate(ctx, transactionID)
		if err != nil {
			return fmt.Errorf("failed to get transaction: %w", err)
		}
		if tx == nil {
			return apperrors.New(apperrors.KindNotFound, apperrors.CodeTransactionNotFound, "transaction %d not found", transactionID)
		}
		if !tx.IsPendingWithdrawal() {
			return apperrors.New(apperrors.KindStateConflict, apperrors.CodeTransactionNotPending,
				"transaction %d is a %s entry with status %s", transactionID, tx.Category, tx.Status)
		}

		status := entities.StatusCompleted
		adj := entities.BalanceAdjustment{PendingBalance: -tx.Amount}
		if !success {
			status = entities.StatusFailed
			adj.Balance = tx.Amount
		}

		updated, err := uow.UserRepository().AdjustBalances(ctx, tx.UserID, adj)
		if err != nil {
			return fmt.Errorf("failed to release withdrawal reservation: %w", err)
		}
		if updated == nil {
			return fmt.Errorf("pending balance of user %d does not cover withdrawal %d", tx.UserID, tx.ID)
		}

		changed, err := uow.TransactionRepository().UpdateStatus(ctx, tx.ID, status, reason)
		if err != nil {
			return fmt.Errorf("failed to update withdrawal status: %w", err)
		}
		if !changed {
			return apperrors.New(apperrors.KindStateConflict, apperrors.CodeTransactionNotPending, "transaction %d is no longer pending", tx.ID)
		}
		tx.Status = status

		if err := uow.EventBus().Publish(events.WithdrawalResolvedEvent{
			TransactionID: tx.ID,
			UserID:        tx.UserID,
			Amount:        tx.Amount,
			Status:        string(status),
			Reason:        reason,
		}); err != nil {
			return fmt.Errorf("failed to publish withdrawal resolution: %w", err)
		}

		resolved = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"transactionId": resolved.ID,
		"userId":        resolved.UserID,
		"status":        resolved.Status,
	}).Info("Withdrawal resolved")
	return resolved, nil
}
