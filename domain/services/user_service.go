package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"earnify/domain/apperrors"
	"earnify/domain/entities"
	"earnify/domain/interfaces"
	"earnify/events"

	log "github.com/sirupsen/logrus"
)

const (
	recentTransactionLimit = 10
	referralCodeAttempts   = 5
)

// AuthResult is the outcome of authenticating a principal
type AuthResult struct {
	User      *entities.User
	IsNewUser bool
}

// Dashboard is the read model behind the user dashboard
type Dashboard struct {
	User               *entities.User
	ReferralStats      *entities.ReferralStats
	RecentTransactions []*entities.Transaction
}

// UserService registers principals and serves account reads
type UserService struct {
	ledger    *LedgerService
	referrals *ReferralService
	newCode   func() (string, error)
}

// NewUserService creates a new user service
func NewUserService(ledger *LedgerService, referrals *ReferralService) *UserService {
	return &UserService{
		ledger:    ledger,
		referrals: referrals,
		newCode:   randomReferralCode,
	}
}

// Authenticate returns the principal's account, creating it on first sight.
// A referral code is only honoured when the account is created.
func (s *UserService) Authenticate(ctx context.Context, principal entities.Principal, referralCode string) (*AuthResult, error) {
	var result *AuthResult
	err := s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		users := uow.UserRepository()

		existing, err := users.GetByID(ctx, principal.ID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if existing != nil {
			if existing.Username != principal.Username || existing.FirstName != principal.FirstName || existing.LastName != principal.LastName {
				if err := users.UpdateProfile(ctx, existing.ID, principal.Username, principal.FirstName, principal.LastName); err != nil {
					return err
				}
				existing.Username = principal.Username
				existing.FirstName = principal.FirstName
				existing.LastName = principal.LastName
			}
			result = &AuthResult{User: existing}
			return nil
		}

		code, err := s.uniqueReferralCode(ctx, users)
		if err != nil {
			return err
		}

		user := &entities.User{
			ID:           principal.ID,
			Username:     principal.Username,
			FirstName:    principal.FirstName,
			LastName:     principal.LastName,
			ReferralCode: code,
			Level:        1,
		}
		created, err := users.Create(ctx, user)
		if err != nil {
			return err
		}
		if !created {
			// Lost a race with a concurrent first login
			existing, err := users.GetByID(ctx, principal.ID)
			if err != nil {
				return fmt.Errorf("failed to get user: %w", err)
			}
			result = &AuthResult{User: existing}
			return nil
		}

		edge, err := s.referrals.Register(ctx, uow, referralCode, user)
		if err != nil {
			return err
		}

		event := events.UserCreatedEvent{
			UserID:       user.ID,
			Username:     principal.DisplayName(),
			ReferralCode: user.ReferralCode,
		}
		if edge != nil {
			referrerID := edge.ReferrerID
			event.ReferrerID = &referrerID
		}
		if err := uow.EventBus().Publish(event); err != nil {
			return fmt.Errorf("failed to publish user created event: %w", err)
		}

		result = &AuthResult{User: user, IsNewUser: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.IsNewUser {
		log.WithFields(log.Fields{
			"userId":       result.User.ID,
			"referralCode": result.User.ReferralCode,
		}).Info("New user registered")
	}
	return result, nil
}

// Dashboard returns balances, referral stats and the latest transactions
func (s *UserService) Dashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	var dashboard *Dashboard
	err := s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		user, err := uow.UserRepository().GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if user == nil {
			return apperrors.UserNotFound(userID)
		}

		stats, err := uow.ReferralRepository().GetStats(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get referral stats: %w", err)
		}

		recent, err := uow.TransactionRepository().GetRecentByUser(ctx, userID, recentTransactionLimit)
		if err != nil {
			return fmt.Errorf("failed to get recent transactions: %w", err)
		}

		dashboard = &Dashboard{
			User:               user,
			ReferralStats:      stats,
			RecentTransactions: recent,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dashboard, nil
}

// Profile returns the user's account
func (s *UserService) Profile(ctx context.Context, userID int64) (*entities.User, error) {
	var user *entities.User
	err := s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		var err error
		user, err = uow.UserRepository().GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if user == nil {
			return apperrors.UserNotFound(userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) uniqueReferralCode(ctx context.Context, users interfaces.UserRepository) (string, error) {
	for i := 0; i < referralCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		owner, err := users.GetByReferralCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check referral code: %w", err)
		}
		if owner == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to find a free referral code after %d attempts", referralCodeAttempts)
}

// randomReferralCode returns six uppercase hex characters
func randomReferralCode() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
