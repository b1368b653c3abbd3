package repository

import (
	"context"
	"errors"
	"fmt"

	"earnify/database"
	"earnify/domain/interfaces"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// unitOfWork implements interfaces.UnitOfWork over one SERIALIZABLE pgx transaction
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher

	userRepo        interfaces.UserRepository
	transactionRepo interfaces.TransactionRepository
	gameRepo        interfaces.GameRepository
	referralRepo    interfaces.ReferralRepository
	outboxRepo      interfaces.ReferralBonusOutboxRepository
	receiptRepo     interfaces.PostbackReceiptRepository
	offerRepo       interfaces.OfferRepository
}

// UnitOfWorkFactory creates repository-backed units of work
type UnitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db}
}

// CreateWithPublisher creates a unit of work whose events go through the given transactional publisher
func (f *UnitOfWorkFactory) CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) interfaces.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.BeginSerializable(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.ctx = ctx

	u.userRepo = newUserRepository(tx)
	u.transactionRepo = newTransactionRepository(tx)
	u.gameRepo = newGameRepository(tx)
	u.referralRepo = newReferralRepository(tx)
	u.outboxRepo = newReferralBonusOutboxRepository(tx)
	u.receiptRepo = newPostbackReceiptRepository(tx)
	u.offerRepo = newOfferRepository(tx)

	return nil
}

// Commit commits the transaction, then flushes buffered events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		u.tx = nil
		if u.transactionalPublisher != nil {
			u.transactionalPublisher.Discard()
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Events are best-effort once the data is durable
	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			log.WithError(err).Error("Failed to flush events after commit")
		}
	}

	return nil
}

// Rollback rolls back the transaction. Safe to call after Commit.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil

	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

func (u *unitOfWork) TransactionRepository() interfaces.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

func (u *unitOfWork) GameRepository() interfaces.GameRepository {
	if u.gameRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.gameRepo
}

func (u *unitOfWork) ReferralRepository() interfaces.ReferralRepository {
	if u.referralRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.referralRepo
}

func (u *unitOfWork) ReferralBonusOutboxRepository() interfaces.ReferralBonusOutboxRepository {
	if u.outboxRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.outboxRepo
}

func (u *unitOfWork) PostbackReceiptRepository() interfaces.PostbackReceiptRepository {
	if u.receiptRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.receiptRepo
}

func (u *unitOfWork) OfferRepository() interfaces.OfferRepository {
	if u.offerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.offerRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("unit of work has no event publisher")
	}
	return u.transactionalPublisher
}
