package testhelpers

import (
	"context"
	"time"

	"earnify/domain/entities"
	"earnify/domain/interfaces"
	"earnify/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByReferralCode(ctx context.Context, code string) (*entities.User, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id int64, username, firstName, lastName string) error {
	args := m.Called(ctx, id, username, firstName, lastName)
	return args.Error(0)
}

func (m *MockUserRepository) AdjustBalances(ctx context.Context, id int64, adj entities.BalanceAdjustment) (*entities.User, error) {
	args := m.Called(ctx, id, adj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) SetReferredBy(ctx context.Context, id int64, code string) error {
	args := m.Called(ctx, id, code)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateStreak(ctx context.Context, id int64, streak int, claimedAt time.Time) error {
	args := m.Called(ctx, id, streak, claimedAt)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id int64, status entities.TransactionStatus, note string) (bool, error) {
	args := m.Called(ctx, id, status, note)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) GetRecentByUser(ctx context.Context, userID int64, limit int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetLedgerTotals(ctx context.Context, userID int64) (*entities.LedgerTotals, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerTotals), args.Error(1)
}

// MockGameRepository is a mock implementation of GameRepository
type MockGameRepository struct {
	mock.Mock
}

func (m *MockGameRepository) GetByID(ctx context.Context, id int64) (*entities.Game, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Game), args.Error(1)
}

func (m *MockGameRepository) ListActive(ctx context.Context) ([]*entities.Game, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Game), args.Error(1)
}

func (m *MockGameRepository) Create(ctx context.Context, game *entities.Game) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}

func (m *MockGameRepository) RecordPlay(ctx context.Context, id int64, amount int64) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

// MockReferralRepository is a mock implementation of ReferralRepository
type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) Create(ctx context.Context, edge *entities.ReferralEdge) error {
	args := m.Called(ctx, edge)
	return args.Error(0)
}

func (m *MockReferralRepository) GetByReferee(ctx context.Context, refereeID int64) (*entities.ReferralEdge, error) {
	args := m.Called(ctx, refereeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ReferralEdge), args.Error(1)
}

func (m *MockReferralRepository) Activate(ctx context.Context, refereeID int64, at time.Time) (bool, error) {
	args := m.Called(ctx, refereeID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralRepository) AddCommission(ctx context.Context, referrerID, refereeID, amount int64) error {
	args := m.Called(ctx, referrerID, refereeID, amount)
	return args.Error(0)
}

func (m *MockReferralRepository) GetStats(ctx context.Context, referrerID int64) (*entities.ReferralStats, error) {
	args := m.Called(ctx, referrerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ReferralStats), args.Error(1)
}

// MockReferralBonusOutboxRepository is a mock implementation of ReferralBonusOutboxRepository
type MockReferralBonusOutboxRepository struct {
	mock.Mock
}

func (m *MockReferralBonusOutboxRepository) Enqueue(ctx context.Context, entry *entities.ReferralBonusEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockReferralBonusOutboxRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.ReferralBonusEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ReferralBonusEntry), args.Error(1)
}

func (m *MockReferralBonusOutboxRepository) ListUnprocessed(ctx context.Context, limit, maxAttempts int) ([]*entities.ReferralBonusEntry, error) {
	args := m.Called(ctx, limit, maxAttempts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ReferralBonusEntry), args.Error(1)
}

func (m *MockReferralBonusOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralBonusOutboxRepository) RecordFailure(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

// MockPostbackReceiptRepository is a mock implementation of PostbackReceiptRepository
type MockPostbackReceiptRepository struct {
	mock.Mock
}

func (m *MockPostbackReceiptRepository) Insert(ctx context.Context, receipt *entities.PostbackReceipt) (bool, error) {
	args := m.Called(ctx, receipt)
	return args.Bool(0), args.Error(1)
}

// MockOfferRepository is a mock implementation of OfferRepository
type MockOfferRepository struct {
	mock.Mock
}

func (m *MockOfferRepository) GetByID(ctx context.Context, id int64) (*entities.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Offer), args.Error(1)
}

func (m *MockOfferRepository) ListActive(ctx context.Context) ([]*entities.Offer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Offer), args.Error(1)
}

func (m *MockOfferRepository) Create(ctx context.Context, offer *entities.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockOfferRepository) RecordClick(ctx context.Context, userID, offerID int64) error {
	args := m.Called(ctx, userID, offerID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockUnitOfWork wires mock repositories into a unit of work
type MockUnitOfWork struct {
	mock.Mock

	UserRepo        *MockUserRepository
	TransactionRepo *MockTransactionRepository
	GameRepo        *MockGameRepository
	ReferralRepo    *MockReferralRepository
	OutboxRepo      *MockReferralBonusOutboxRepository
	ReceiptRepo     *MockPostbackReceiptRepository
	OfferRepo       *MockOfferRepository
	Publisher       *MockEventPublisher
}

// NewMockUnitOfWork creates a unit of work with a fresh mock for every repository
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		UserRepo:        &MockUserRepository{},
		TransactionRepo: &MockTransactionRepository{},
		GameRepo:        &MockGameRepository{},
		ReferralRepo:    &MockReferralRepository{},
		OutboxRepo:      &MockReferralBonusOutboxRepository{},
		ReceiptRepo:     &MockPostbackReceiptRepository{},
		OfferRepo:       &MockOfferRepository{},
		Publisher:       &MockEventPublisher{},
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() interfaces.UserRepository {
	return m.UserRepo
}

func (m *MockUnitOfWork) TransactionRepository() interfaces.TransactionRepository {
	return m.TransactionRepo
}

func (m *MockUnitOfWork) GameRepository() interfaces.GameRepository {
	return m.GameRepo
}

func (m *MockUnitOfWork) ReferralRepository() interfaces.ReferralRepository {
	return m.ReferralRepo
}

func (m *MockUnitOfWork) ReferralBonusOutboxRepository() interfaces.ReferralBonusOutboxRepository {
	return m.OutboxRepo
}

func (m *MockUnitOfWork) PostbackReceiptRepository() interfaces.PostbackReceiptRepository {
	return m.ReceiptRepo
}

func (m *MockUnitOfWork) OfferRepository() interfaces.OfferRepository {
	return m.OfferRepo
}

func (m *MockUnitOfWork) EventBus() interfaces.EventPublisher {
	return m.Publisher
}

// ExpectCommit sets up the Begin/Commit/Rollback sequence of a successful unit
func (m *MockUnitOfWork) ExpectCommit() {
	m.On("Begin", mock.Anything).Return(nil)
	m.On("Commit").Return(nil)
	m.On("Rollback").Return(nil).Maybe()
}

// ExpectRollback sets up the Begin/Rollback sequence of a failed unit
func (m *MockUnitOfWork) ExpectRollback() {
	m.On("Begin", mock.Anything).Return(nil)
	m.On("Rollback").Return(nil)
}

// AssertAllExpectations verifies the unit and every repository mock
func (m *MockUnitOfWork) AssertAllExpectations(t mock.TestingT) {
	m.AssertExpectations(t)
	m.UserRepo.AssertExpectations(t)
	m.TransactionRepo.AssertExpectations(t)
	m.GameRepo.AssertExpectations(t)
	m.ReferralRepo.AssertExpectations(t)
	m.OutboxRepo.AssertExpectations(t)
	m.ReceiptRepo.AssertExpectations(t)
	m.OfferRepo.AssertExpectations(t)
	m.Publisher.AssertExpectations(t)
}

// MockUnitOfWorkFactory hands out a prepared unit of work
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() interfaces.UnitOfWork {
	args := m.Called()
	return args.Get(0).(interfaces.UnitOfWork)
}

// SingleUnitFactory returns the same unit of work for every Create call
type SingleUnitFactory struct {
	UnitOfWork interfaces.UnitOfWork
}

func (f *SingleUnitFactory) Create() interfaces.UnitOfWork {
	return f.UnitOfWork
}
