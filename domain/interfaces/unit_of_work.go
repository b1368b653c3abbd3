package interfaces

import (
	"context"

	"earnify/events"
)

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the owning unit commits
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}

// UnitOfWork is one atomic store transaction with transaction-scoped repositories
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() UserRepository
	TransactionRepository() TransactionRepository
	GameRepository() GameRepository
	ReferralRepository() ReferralRepository
	ReferralBonusOutboxRepository() ReferralBonusOutboxRepository
	PostbackReceiptRepository() PostbackReceiptRepository
	OfferRepository() OfferRepository

	// EventBus buffers events that are published only if the unit commits
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
