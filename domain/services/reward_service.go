package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"earnify/domain/apperrors"
	"earnify/domain/entities"
	"earnify/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const (
	dailyClaimInterval = 24 * time.Hour
	streakResetAfter   = 48 * time.Hour
)

// RewardConfig holds the fixed reward amounts
type RewardConfig struct {
	AdReward    int64
	DailyReward int64
}

// DailyClaimResult is the outcome of a daily claim
type DailyClaimResult struct {
	Reward int64
	Streak int
	Ledger *LedgerResult
}

// RewardService settles ad-view and daily rewards
type RewardService struct {
	ledger  *LedgerService
	bonuses *ReferralBonusService
	config  RewardConfig
}

// NewRewardService creates a new reward service
func NewRewardService(ledger *LedgerService, bonuses *ReferralBonusService, config RewardConfig) *RewardService {
	return &RewardService{
		ledger:  ledger,
		bonuses: bonuses,
		config:  config,
	}
}

// CompleteAdView credits the fixed ad reward
func (s *RewardService) CompleteAdView(ctx context.Context, userID int64) (*LedgerResult, error) {
	var owed *entities.ReferralBonusEntry
	result, err := s.ledger.ApplyBalanceDelta(ctx, BalanceDelta{
		UserID:      userID,
		Amount:      s.config.AdReward,
		Field:       entities.FieldBalance,
		Category:    entities.CategoryAdReward,
		Status:      entities.StatusCompleted,
		Description: "Ad view reward",
	}, s.bonuses.Enqueue(&owed))
	if err != nil {
		return nil, err
	}

	s.settleBonus(ctx, owed)
	return result, nil
}

// ClaimDaily credits the daily reward if 24 hours have passed since the last claim.
// A gap longer than 48 hours restarts the streak.
func (s *RewardService) ClaimDaily(ctx context.Context, userID int64) (*DailyClaimResult, error) {
	var streak int
	var claimedAt time.Time

	guard := func(user *entities.User) error {
		claimedAt = s.ledger.Now()
		streak = 1
		if user.LastClaim == nil {
			return nil
		}

		elapsed := claimedAt.Sub(*user.LastClaim)
		if elapsed < dailyClaimInterval {
			return apperrors.AlreadyClaimed(hoursUntilNextClaim(elapsed))
		}
		if elapsed <= streakResetAfter {
			streak = user.DailyStreak + 1
		}
		return nil
	}

	recordStreak := func(ctx context.Context, uow interfaces.UnitOfWork, ac *AtomicContext) error {
		if err := uow.UserRepository().UpdateStreak(ctx, ac.User.ID, streak, claimedAt); err != nil {
			return fmt.Errorf("failed to update streak: %w", err)
		}
		ac.User.DailyStreak = streak
		ac.User.LastClaim = &claimedAt
		return nil
	}

	var owed *entities.ReferralBonusEntry
	result, err := s.ledger.ApplyBalanceDelta(ctx, BalanceDelta{
		UserID:      userID,
		Amount:      s.config.DailyReward,
		Field:       entities.FieldBalance,
		Category:    entities.CategoryDailyReward,
		Status:      entities.StatusCompleted,
		Guard:       guard,
		Describe:    func() string { return fmt.Sprintf("Daily login reward - Day %d", streak) },
	}, recordStreak, s.bonuses.Enqueue(&owed))
	if err != nil {
		return nil, err
	}

	s.settleBonus(ctx, owed)
	return &DailyClaimResult{
		Reward: s.config.DailyReward,
		Streak: streak,
		Ledger: result,
	}, nil
}

// settleBonus credits an owed commission right away. Failures stay in the
// outbox for the sweep worker, so the referee's reward is unaffected.
func (s *RewardService) settleBonus(ctx context.Context, owed *entities.ReferralBonusEntry) {
	if owed == nil {
		return
	}
	if err := s.bonuses.Process(ctx, owed); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"entryId":    owed.ID,
			"referrerId": owed.ReferrerID,
		}).Warn("Deferred referral bonus to sweep")
	}
}

func hoursUntilNextClaim(elapsed time.Duration) int {
	return int(math.Ceil((dailyClaimInterval - elapsed).Hours()))
}
