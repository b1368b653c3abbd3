package services

import (
	"sync/atomic"
	"time"

	"earnify/domain/entities"
	"earnify/domain/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

const (
	TestUserID     = int64(100)
	TestReferrerID = int64(200)
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

// newTestLedger builds a ledger that hands out uow for every unit and reads testNow
func newTestLedger(uow *testhelpers.MockUnitOfWork) *LedgerService {
	return NewLedgerService(&testhelpers.SingleUnitFactory{UnitOfWork: uow}, LedgerConfig{
		MaxRetries: 3,
		Now:        func() time.Time { return testNow },
	})
}

// expectLedgerWrite sets up a successful balance adjustment and transaction insert for userID
func expectLedgerWrite(uow *testhelpers.MockUnitOfWork, before *entities.User, adj entities.BalanceAdjustment) *entities.User {
	after := *before
	after.Balance += adj.Balance
	after.PendingBalance += adj.PendingBalance
	after.TotalEarned += adj.TotalEarned
	after.ReferralEarnings += adj.ReferralEarnings
	after.Version++

	uow.UserRepo.On("GetByIDForUpdate", mock.Anything, before.ID).Return(before, nil).Once()
	uow.UserRepo.On("AdjustBalances", mock.Anything, before.ID, adj).Return(&after, nil).Once()
	return &after
}

var nextTransactionID int64

// assignTransactionID mimics the database filling in generated columns
func assignTransactionID(args mock.Arguments) {
	tx := args.Get(1).(*entities.Transaction)
	tx.ID = atomic.AddInt64(&nextTransactionID, 1)
	tx.CreatedAt = testNow
	tx.UpdatedAt = testNow
}

func assignEntryID(args mock.Arguments) {
	entry := args.Get(1).(*entities.ReferralBonusEntry)
	entry.ID = uuid.New()
	entry.CreatedAt = testNow
}

func testUser(id, balance int64) *entities.User {
	return &entities.User{
		ID:           id,
		Username:     "tester",
		Balance:      balance,
		TotalEarned:  balance,
		ReferralCode: "ABC123",
		Level:        1,
	}
}

