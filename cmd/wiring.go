package cmd

import (
	"context"
	"fmt"

	"earnify/api"
	"earnify/config"
	"earnify/domain/interfaces"
	"earnify/domain/services"
	"earnify/events"
	"earnify/infrastructure"
	"earnify/repository"

	log "github.com/sirupsen/logrus"
)

// container holds the domain services built over one unit of work factory
type container struct {
	api     api.Services
	bonuses *services.ReferralBonusService
}

func buildServices(cfg *config.Config, uowFactory interfaces.UnitOfWorkFactory, metrics services.Metrics) *container {
	ledger := services.NewLedgerService(uowFactory, services.LedgerConfig{
		MaxRetries:  cfg.LedgerRetries,
		IsRetryable: repository.IsSerializationFailure,
		Metrics:     metrics,
	})
	referrals := services.NewReferralService(ledger)
	bonuses := services.NewReferralBonusService(ledger, cfg.ReferralCommissionBps, metrics)

	return &container{
		bonuses: bonuses,
		api: api.Services{
			Ledger:  ledger,
			Users:   services.NewUserService(ledger, referrals),
			Rewards: services.NewRewardService(ledger, bonuses, services.RewardConfig{
				AdReward:    cfg.AdReward,
				DailyReward: cfg.DailyReward,
			}),
			Games:       services.NewGameService(ledger),
			Offers:      services.NewOfferService(ledger),
			Postbacks:   services.NewPostbackService(ledger, cfg.PostbackSecret, metrics),
			Withdrawals: services.NewWithdrawalService(ledger, cfg.MinWithdrawal),
			Referrals:   referrals,
		},
	}
}

// newEventPublisher returns the publisher committed units hand their events to.
// With NATS disabled events only reach in-process subscribers.
func newEventPublisher(ctx context.Context, cfg *config.Config, localBus *events.Bus, observer infrastructure.PublishObserver) (interfaces.EventPublisher, func(), error) {
	if !cfg.NATSEnabled {
		log.Info("NATS disabled, events stay in process")
		return localBus, func() {}, nil
	}

	client := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := client.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := client.EnsureStream(infrastructure.EventStreamName, mapper.StreamSubjects()); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Failed to close NATS connection")
		}
	}
	return infrastructure.NewNATSEventPublisher(client, mapper, localBus, observer), closeFn, nil
}

// subscribeAuditLog records money leaving the platform in the service log
func subscribeAuditLog(bus *events.Bus) {
	bus.Subscribe(events.EventTypeWithdrawalRequested, func(_ context.Context, event events.Event) {
		e, ok := event.(events.WithdrawalRequestedEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"transactionId": e.TransactionID,
			"userId":        e.UserID,
			"amount":        e.Amount,
			"bank":          e.Bank,
		}).Info("Withdrawal queued for payout")
	})
	bus.Subscribe(events.EventTypeWithdrawalResolved, func(_ context.Context, event events.Event) {
		e, ok := event.(events.WithdrawalResolvedEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"transactionId": e.TransactionID,
			"userId":        e.UserID,
			"status":        e.Status,
			"reason":        e.Reason,
		}).Info("Withdrawal resolved")
	})
}
