package services

import (
	"context"
	"fmt"
	"strings"

	"earnify/domain/apperrors"
	"earnify/domain/entities"
	"earnify/domain/interfaces"
)

// OfferInput holds the admin-supplied fields of a new CPA offer
type OfferInput struct {
	Title       string
	Description string
	Reward      int64
	Link        string
	ImageURL    string
	Category    string
	Type        string
}

// OfferService manages CPA offers shown to users
type OfferService struct {
	ledger *LedgerService
}

// NewOfferService creates a new offer service
func NewOfferService(ledger *LedgerService) *OfferService {
	return &OfferService{ledger: ledger}
}

// ListActive returns active offers, highest reward first
func (s *OfferService) ListActive(ctx context.Context) ([]*entities.Offer, error) {
	var offers []*entities.Offer
	err := s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		var err error
		offers, err = uow.OfferRepository().ListActive(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

// Create adds an offer
func (s *OfferService) Create(ctx context.Context, input OfferInput) (*entities.Offer, error) {
	offer := &entities.Offer{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Reward:      input.Reward,
		Link:        strings.TrimSpace(input.Link),
		ImageURL:    input.ImageURL,
		Category:    input.Category,
		Type:        input.Type,
		IsActive:    true,
	}
	if offer.Category == "" {
		offer.Category = "General"
	}
	if offer.Type == "" {
		offer.Type = "direct"
	}

	if offer.Title == "" || offer.Link == "" {
		return nil, apperrors.BadRequest("title and link are required")
	}
	if offer.Reward <= 0 {
		return nil, apperrors.BadRequest("reward must be positive")
	}

	err := s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		return uow.OfferRepository().Create(ctx, offer)
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// TrackClick records that a user opened an offer
func (s *OfferService) TrackClick(ctx context.Context, userID, offerID int64) error {
	return s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		offer, err := uow.OfferRepository().GetByID(ctx, offerID)
		if err != nil {
			return fmt.Errorf("failed to get offer: %w", err)
		}
		if offer == nil || !offer.IsActive {
			return apperrors.New(apperrors.KindNotFound, apperrors.CodeOfferNotFound, "offer %d not found", offerID)
		}
		return uow.OfferRepository().RecordClick(ctx, userID, offerID)
	})
}
