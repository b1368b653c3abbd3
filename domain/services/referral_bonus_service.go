package services

import (
	"context"
	"errors"
	"fmt"

	"earnify/domain/entities"
	"earnify/domain/interfaces"
	"earnify/events"

	log "github.com/sirupsen/logrus"
)

var errBonusAlreadyProcessed = errors.New("referral bonus already processed")

// ReferralBonusService settles referral commissions owed through the outbox
type ReferralBonusService struct {
	ledger        *LedgerService
	commissionBps int64
	metrics       Metrics
}

// NewReferralBonusService creates a new referral bonus service
func NewReferralBonusService(ledger *LedgerService, commissionBps int64, metrics Metrics) *ReferralBonusService {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &ReferralBonusService{
		ledger:        ledger,
		commissionBps: commissionBps,
		metrics:       metrics,
	}
}

// Enqueue returns an AtomicWrite that owes the referee's referrer a commission on
// the entry being written. owed is set to the enqueued entry, or nil if none is owed.
func (s *ReferralBonusService) Enqueue(owed **entities.ReferralBonusEntry) AtomicWrite {
	return func(ctx context.Context, uow interfaces.UnitOfWork, ac *AtomicContext) error {
		*owed = nil

		tx := ac.Transaction
		if tx.Direction != entities.DirectionCredit ||
			tx.Status != entities.StatusCompleted ||
			!tx.Category.TriggersReferralBonus() {
			return nil
		}

		edge, err := uow.ReferralRepository().GetByReferee(ctx, tx.UserID)
		if err != nil {
			return fmt.Errorf("failed to get referral edge: %w", err)
		}
		if edge == nil || !edge.IsActive {
			return nil
		}

		amount := entities.CommissionFor(tx.Amount, s.commissionBps)
		if amount == 0 {
			return nil
		}

		entry := &entities.ReferralBonusEntry{
			ReferrerID:          edge.ReferrerID,
			RefereeID:           edge.RefereeID,
			SourceTransactionID: tx.ID,
			Amount:              amount,
		}
		if err := uow.ReferralBonusOutboxRepository().Enqueue(ctx, entry); err != nil {
			return fmt.Errorf("failed to enqueue referral bonus: %w", err)
		}
		*owed = entry
		return nil
	}
}

// Process credits the referrer for one outbox entry. Settling an entry twice is a no-op.
func (s *ReferralBonusService) Process(ctx context.Context, entry *entities.ReferralBonusEntry) error {
	refereeID := entry.RefereeID
	delta := BalanceDelta{
		UserID:      entry.ReferrerID,
		Amount:      entry.Amount,
		Field:       entities.FieldBalance,
		Category:    entities.CategoryReferralBonus,
		Status:      entities.StatusCompleted,
		Description: "Referral commission",
		Metadata: map[string]any{
			"refereeId":           entry.RefereeID,
			"sourceTransactionId": entry.SourceTransactionID,
			"bonusEntryId":        entry.ID.String(),
		},
		RelatedUserID: &refereeID,
	}

	settle := func(ctx context.Context, uow interfaces.UnitOfWork, ac *AtomicContext) error {
		marked, err := uow.ReferralBonusOutboxRepository().MarkProcessed(ctx, entry.ID, s.ledger.Now())
		if err != nil {
			return fmt.Errorf("failed to mark referral bonus processed: %w", err)
		}
		if !marked {
			return errBonusAlreadyProcessed
		}
		if err := uow.ReferralRepository().AddCommission(ctx, entry.ReferrerID, entry.RefereeID, entry.Amount); err != nil {
			return fmt.Errorf("failed to add commission: %w", err)
		}
		return uow.EventBus().Publish(events.ReferralBonusCreditedEvent{
			EntryID:       entry.ID.String(),
			ReferrerID:    entry.ReferrerID,
			RefereeID:     entry.RefereeID,
			Amount:        entry.Amount,
			TransactionID: ac.Transaction.ID,
		})
	}

	_, err := s.ledger.ApplyBalanceDelta(ctx, delta, settle)
	if errors.Is(err, errBonusAlreadyProcessed) {
		log.WithField("entryId", entry.ID).Debug("Referral bonus already settled")
		s.metrics.RecordReferralBonus(ctx, "duplicate")
		return nil
	}
	if err != nil {
		s.metrics.RecordReferralBonus(ctx, "failed")
		s.recordFailure(ctx, entry, err)
		return fmt.Errorf("failed to settle referral bonus %s: %w", entry.ID, err)
	}

	s.metrics.RecordReferralBonus(ctx, "credited")
	log.WithFields(log.Fields{
		"entryId":    entry.ID,
		"referrerId": entry.ReferrerID,
		"refereeId":  entry.RefereeID,
		"amount":     entry.Amount,
	}).Info("Referral bonus credited")
	return nil
}

// ProcessPending settles up to limit unprocessed entries and returns how many were credited
func (s *ReferralBonusService) ProcessPending(ctx context.Context, limit, maxAttempts int) (int, error) {
	var pending []*entities.ReferralBonusEntry
	err := s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		var err error
		pending, err = uow.ReferralBonusOutboxRepository().ListUnprocessed(ctx, limit, maxAttempts)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list unprocessed referral bonuses: %w", err)
	}

	processed := 0
	for _, entry := range pending {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if err := s.Process(ctx, entry); err != nil {
			log.WithError(err).WithField("entryId", entry.ID).Warn("Referral bonus left for a later sweep")
			continue
		}
		processed++
	}
	return processed, nil
}

func (s *ReferralBonusService) recordFailure(ctx context.Context, entry *entities.ReferralBonusEntry, cause error) {
	err := s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		return uow.ReferralBonusOutboxRepository().RecordFailure(ctx, entry.ID, cause.Error())
	})
	if err != nil {
		log.WithError(err).WithField("entryId", entry.ID).Error("Failed to record referral bonus failure")
	}
}
