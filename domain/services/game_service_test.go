package services

import (
	"context"
	"testing"

	"earnify/domain/apperrors"
	"earnify/domain/entities"
	"earnify/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testGameID = int64(7)

func testGame(minWager, maxWager int64) *entities.Game {
	return &entities.Game{
		ID:        testGameID,
		Name:      "Stack Tower",
		IframeURL: "https://games.example/stack",
		MinWager:  minWager,
		MaxWager:  maxWager,
		IsActive:  true,
	}
}

func TestGameService_PlaceWager(t *testing.T) {
	t.Parallel()

	uow := testhelpers.NewMockUnitOfWork()
	uow.ExpectCommit()

	uow.GameRepo.On("GetByID", mock.Anything, testGameID).Return(testGame(10, 1000), nil)
	expectLedgerWrite(uow, testUser(TestUserID, 300), entities.BalanceAdjustment{Balance: -120})
	uow.TransactionRepo.On("Create", mock.Anything, mock.MatchedBy(func(tx *entities.Transaction) bool {
		return tx.Direction == entities.DirectionDebit &&
			tx.Category == entities.CategoryGameWager &&
			tx.Amount == 120 &&
			tx.BalanceAfter == 180
	})).Run(assignTransactionID).Return(nil)
	uow.GameRepo.On("RecordPlay", mock.Anything, testGameID, int64(120)).Return(nil).Once()
	uow.Publisher.On("Publish", mock.Anything).Return(nil)

	result, err := NewGameService(newTestLedger(uow)).PlaceWager(context.Background(), TestUserID, testGameID, 120)

	require.NoError(t, err)
	assert.Equal(t, int64(180), result.User.Balance)
	assert.Equal(t, int64(300), result.User.TotalEarned, "wagers never touch total earned")
	uow.AssertAllExpectations(t)
}

func TestGameService_PlaceWager_Rejections(t *testing.T) {
	t.Parallel()

	inactive := testGame(10, 1000)
	inactive.IsActive = false

	tests := []struct {
		name     string
		amount   int64
		game     *entities.Game
		balance  int64
		wantCode apperrors.Code
	}{
		{name: "missing game", amount: 50, game: nil, balance: 100, wantCode: apperrors.CodeGameNotFound},
		{name: "inactive game", amount: 50, game: inactive, balance: 100, wantCode: apperrors.CodeGameNotFound},
		{name: "below minimum", amount: 5, game: testGame(10, 1000), balance: 100, wantCode: apperrors.CodeInvalidWager},
		{name: "above maximum", amount: 1001, game: testGame(10, 1000), balance: 5000, wantCode: apperrors.CodeInvalidWager},
		{name: "more than balance", amount: 50, game: testGame(10, 1000), balance: 40, wantCode: apperrors.CodeInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uow := testhelpers.NewMockUnitOfWork()
			uow.ExpectRollback()

			if tt.game == nil {
				uow.GameRepo.On("GetByID", mock.Anything, testGameID).Return(nil, nil)
			} else {
				uow.GameRepo.On("GetByID", mock.Anything, testGameID).Return(tt.game, nil)
			}
			uow.UserRepo.On("GetByIDForUpdate", mock.Anything, TestUserID).Return(testUser(TestUserID, tt.balance), nil).Maybe()

			_, err := NewGameService(newTestLedger(uow)).PlaceWager(context.Background(), TestUserID, testGameID, tt.amount)

			appErr, ok := apperrors.As(err)
			require.True(t, ok, "expected classified error, got %v", err)
			assert.Equal(t, tt.wantCode, appErr.Code)
			uow.UserRepo.AssertNotCalled(t, "AdjustBalances", mock.Anything, mock.Anything, mock.Anything)
			uow.GameRepo.AssertNotCalled(t, "RecordPlay", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("non-positive wager", func(t *testing.T) {
		uow := testhelpers.NewMockUnitOfWork()
		_, err := NewGameService(newTestLedger(uow)).PlaceWager(context.Background(), TestUserID, testGameID, 0)
		assert.ErrorIs(t, err, apperrors.ErrInvalidWager)
		uow.AssertNotCalled(t, "Begin", mock.Anything)
	})
}

func TestGameService_CreateGame(t *testing.T) {
	t.Parallel()

	t.Run("defaults wager bounds", func(t *testing.T) {
		uow := testhelpers.NewMockUnitOfWork()
		uow.ExpectCommit()
		uow.GameRepo.On("Create", mock.Anything, mock.MatchedBy(func(g *entities.Game) bool {
			return g.MinWager == entities.DefaultMinWager && g.MaxWager == entities.DefaultMaxWager && g.IsActive
		})).Return(nil).Once()

		game, err := NewGameService(newTestLedger(uow)).CreateGame(context.Background(), GameInput{
			Name:      " Stack Tower ",
			IframeURL: "https://games.example/stack",
		})

		require.NoError(t, err)
		assert.Equal(t, "Stack Tower", game.Name)
		uow.AssertAllExpectations(t)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		service := NewGameService(newTestLedger(testhelpers.NewMockUnitOfWork()))

		_, err := service.CreateGame(context.Background(), GameInput{IframeURL: "https://games.example/x"})
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)

		_, err = service.CreateGame(context.Background(), GameInput{Name: "x", IframeURL: "https://games.example/x", MinWager: 100, MaxWager: 50})
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	})
}
