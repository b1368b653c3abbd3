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

func TestOfferService_Create(t *testing.T) {
	t.Parallel()

	t.Run("fills defaults", func(t *testing.T) {
		uow := testhelpers.NewMockUnitOfWork()
		uow.ExpectCommit()
		uow.OfferRepo.On("Create", mock.Anything, mock.MatchedBy(func(o *entities.Offer) bool {
			return o.Category == "General" && o.Type == "direct" && o.IsActive
		})).Return(nil).Once()

		offer, err := NewOfferService(newTestLedger(uow)).Create(context.Background(), OfferInput{
			Title:  "Survey",
			Reward: 30,
			Link:   "https://offers.example/survey",
		})

		require.NoError(t, err)
		assert.Equal(t, "Survey", offer.Title)
		uow.AssertAllExpectations(t)
	})

	t.Run("validates input", func(t *testing.T) {
		service := NewOfferService(newTestLedger(testhelpers.NewMockUnitOfWork()))

		_, err := service.Create(context.Background(), OfferInput{Title: "Survey", Link: "https://offers.example/s"})
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)

		_, err = service.Create(context.Background(), OfferInput{Title: "Survey", Reward: 10})
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	})
}

func TestOfferService_TrackClick(t *testing.T) {
	t.Parallel()

	t.Run("records click", func(t *testing.T) {
		uow := testhelpers.NewMockUnitOfWork()
		uow.ExpectCommit()
		uow.OfferRepo.On("GetByID", mock.Anything, int64(3)).Return(&entities.Offer{ID: 3, IsActive: true}, nil)
		uow.OfferRepo.On("RecordClick", mock.Anything, TestUserID, int64(3)).Return(nil).Once()

		require.NoError(t, NewOfferService(newTestLedger(uow)).TrackClick(context.Background(), TestUserID, 3))
		uow.AssertAllExpectations(t)
	})

	t.Run("unknown offer", func(t *testing.T) {
		uow := testhelpers.NewMockUnitOfWork()
		uow.ExpectRollback()
		uow.OfferRepo.On("GetByID", mock.Anything, int64(3)).Return(nil, nil)

		err := NewOfferService(newTestLedger(uow)).TrackClick(context.Background(), TestUserID, 3)
		assert.ErrorIs(t, err, apperrors.ErrOfferNotFound)
	})
}
