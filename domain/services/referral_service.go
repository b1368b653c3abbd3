package services

import (
	"context"
	"fmt"
	"strings"

	"earnify/domain/apperrors"
	"earnify/domain/entities"
	"earnify/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// ReferralService maintains the referral graph
type ReferralService struct {
	ledger *LedgerService
}

// NewReferralService creates a new referral service
func NewReferralService(ledger *LedgerService) *ReferralService {
	return &ReferralService{ledger: ledger}
}

// Register links a newly created user to the owner of referralCode inside the
// user's creation unit. Unknown codes and self-referrals are ignored; the
// registration itself still succeeds. Returns the created edge, if any.
func (s *ReferralService) Register(ctx context.Context, uow interfaces.UnitOfWork, referralCode string, newUser *entities.User) (*entities.ReferralEdge, error) {
	code := strings.ToUpper(strings.TrimSpace(referralCode))
	if code == "" {
		return nil, nil
	}

	referrer, err := uow.UserRepository().GetByReferralCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}
	if referrer == nil {
		log.WithFields(log.Fields{
			"userId":       newUser.ID,
			"referralCode": code,
		}).Warn("Unknown referral code at registration")
		return nil, nil
	}
	if referrer.ID == newUser.ID {
		log.WithField("userId", newUser.ID).Warn("Self-referral refused")
		return nil, nil
	}

	edge := &entities.ReferralEdge{
		ReferrerID: referrer.ID,
		RefereeID:  newUser.ID,
		IsActive:   false,
	}
	if err := uow.ReferralRepository().Create(ctx, edge); err != nil {
		return nil, fmt.Errorf("failed to create referral edge: %w", err)
	}
	if err := uow.UserRepository().SetReferredBy(ctx, newUser.ID, code); err != nil {
		return nil, fmt.Errorf("failed to store referrer: %w", err)
	}
	newUser.ReferredBy = &code

	log.WithFields(log.Fields{
		"referrerId": referrer.ID,
		"refereeId":  newUser.ID,
	}).Info("Referral registered")
	return edge, nil
}

// Activate makes the referee's edge eligible for commissions
func (s *ReferralService) Activate(ctx context.Context, refereeID int64) error {
	err := s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		activated, err := uow.ReferralRepository().Activate(ctx, refereeID, s.ledger.Now())
		if err != nil {
			return err
		}
		if !activated {
			return apperrors.New(apperrors.KindNotFound, apperrors.CodeUserNotFound, "user %d has no referrer", refereeID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.WithField("refereeId", refereeID).Info("Referral activated")
	return nil
}

// Stats summarises a referrer's downline
func (s *ReferralService) Stats(ctx context.Context, referrerID int64) (*entities.ReferralStats, error) {
	var stats *entities.ReferralStats
	err := s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		var err error
		stats, err = uow.ReferralRepository().GetStats(ctx, referrerID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get referral stats: %w", err)
	}
	return stats, nil
}
