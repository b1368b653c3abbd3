package services

import (
	"context"
	"testing"

	"earnify/domain/apperrors"
	"earnify/domain/entities"
	"earnify/domain/testhelpers"
	"earnify/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testBank = entities.BankDetails{Bank: "First Bank", AccountNumber: "0123456789"}

func TestWithdrawalService_RequestWithdrawal(t *testing.T) {
	t.Parallel()

	uow := testhelpers.NewMockUnitOfWork()
	uow.ExpectCommit()

	debited := expectLedgerWrite(uow, testUser(TestUserID, 1000), entities.BalanceAdjustment{Balance: -500})
	reserved := *debited
	reserved.PendingBalance = 500
	uow.UserRepo.On("AdjustBalances", mock.Anything, TestUserID, entities.BalanceAdjustment{PendingBalance: 500}).Return(&reserved, nil).Once()
	uow.TransactionRepo.On("Create", mock.Anything, mock.MatchedBy(func(tx *entities.Transaction) bool {
		return tx.Direction == entities.DirectionDebit &&
			tx.Category == entities.CategoryWithdrawal &&
			tx.Status == entities.StatusPending &&
			tx.Amount == 500 &&
			tx.BankDetails != nil && *tx.BankDetails == testBank
	})).Run(assignTransactionID).Return(nil).Once()
	uow.Publisher.On("Publish", mock.MatchedBy(func(e events.WithdrawalRequestedEvent) bool {
		return e.UserID == TestUserID && e.Amount == 500 && e.AccountNumber == testBank.AccountNumber
	})).Return(nil).Once()
	uow.Publisher.On("Publish", mock.Anything).Return(nil)

	result, err := NewWithdrawalService(newTestLedger(uow), 500).RequestWithdrawal(context.Background(), TestUserID, 500, testBank)

	require.NoError(t, err)
	assert.Equal(t, int64(500), result.User.Balance)
	assert.Equal(t, int64(500), result.User.PendingBalance)
	uow.AssertAllExpectations(t)
}

func TestWithdrawalService_RequestWithdrawal_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		amount   int64
		bank     entities.BankDetails
		balance  int64
		wantCode apperrors.Code
	}{
		{name: "missing bank", amount: 500, bank: entities.BankDetails{AccountNumber: "1"}, balance: 1000, wantCode: apperrors.CodeBadRequest},
		{name: "blank account", amount: 500, bank: entities.BankDetails{Bank: "First Bank", AccountNumber: "  "}, balance: 1000, wantCode: apperrors.CodeBadRequest},
		{name: "below minimum", amount: 499, bank: testBank, balance: 1000, wantCode: apperrors.CodeBelowMinimum},
		{name: "more than balance", amount: 600, bank: testBank, balance: 550, wantCode: apperrors.CodeInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uow := testhelpers.NewMockUnitOfWork()
			uow.On("Begin", mock.Anything).Return(nil).Maybe()
			uow.On("Rollback").Return(nil).Maybe()
			uow.UserRepo.On("GetByIDForUpdate", mock.Anything, TestUserID).Return(testUser(TestUserID, tt.balance), nil).Maybe()

			_, err := NewWithdrawalService(newTestLedger(uow), 500).RequestWithdrawal(context.Background(), TestUserID, tt.amount, tt.bank)

			appErr, ok := apperrors.As(err)
			require.True(t, ok, "expected classified error, got %v", err)
			assert.Equal(t, tt.wantCode, appErr.Code)
			uow.AssertNotCalled(t, "Commit")
			uow.UserRepo.AssertNotCalled(t, "AdjustBalances", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func pendingWithdrawal() *entities.Transaction {
	return &entities.Transaction{
		ID:          42,
		UserID:      TestUserID,
		Amount:      500,
		Direction:   entities.DirectionDebit,
		Category:    entities.CategoryWithdrawal,
		Status:      entities.StatusPending,
		TargetField: entities.FieldBalance,
		BankDetails: &testBank,
	}
}

func TestWithdrawalService_ResolveWithdrawal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		success    bool
		adj        entities.BalanceAdjustment
		wantStatus entities.TransactionStatus
	}{
		{name: "paid out", success: true, adj: entities.BalanceAdjustment{PendingBalance: -500}, wantStatus: entities.StatusCompleted},
		{name: "payout failed refunds balance", success: false, adj: entities.BalanceAdjustment{PendingBalance: -500, Balance: 500}, wantStatus: entities.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uow := testhelpers.NewMockUnitOfWork()
			uow.ExpectCommit()

			uow.TransactionRepo.On("GetByIDForUpdate", mock.Anything, int64(42)).Return(pendingWithdrawal(), nil)
			uow.UserRepo.On("AdjustBalances", mock.Anything, TestUserID, tt.adj).Return(testUser(TestUserID, 500), nil).Once()
			uow.TransactionRepo.On("UpdateStatus", mock.Anything, int64(42), tt.wantStatus, "bank said so").Return(true, nil).Once()
			uow.Publisher.On("Publish", mock.MatchedBy(func(e events.WithdrawalResolvedEvent) bool {
				return e.TransactionID == 42 && e.Status == string(tt.wantStatus)
			})).Return(nil).Once()

			tx, err := NewWithdrawalService(newTestLedger(uow), 500).ResolveWithdrawal(context.Background(), 42, tt.success, "bank said so")

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, tx.Status)
			uow.AssertAllExpectations(t)
		})
	}
}

func TestWithdrawalService_ResolveWithdrawal_Rejections(t *testing.T) {
	t.Parallel()

	completed := pendingWithdrawal()
	completed.Status = entities.StatusCompleted

	reward := pendingWithdrawal()
	reward.Category = entities.CategoryCPAReward

	tests := []struct {
		name     string
		tx       *entities.Transaction
		wantCode apperrors.Code
	}{
		{name: "unknown transaction", tx: nil, wantCode: apperrors.CodeTransactionNotFound},
		{name: "already completed", tx: completed, wantCode: apperrors.CodeTransactionNotPending},
		{name: "not a withdrawal", tx: reward, wantCode: apperrors.CodeTransactionNotPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uow := testhelpers.NewMockUnitOfWork()
			uow.ExpectRollback()
			if tt.tx == nil {
				uow.TransactionRepo.On("GetByIDForUpdate", mock.Anything, int64(42)).Return(nil, nil)
			} else {
				uow.TransactionRepo.On("GetByIDForUpdate", mock.Anything, int64(42)).Return(tt.tx, nil)
			}

			_, err := NewWithdrawalService(newTestLedger(uow), 500).ResolveWithdrawal(context.Background(), 42, true, "")

			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
			uow.UserRepo.AssertNotCalled(t, "AdjustBalances", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
