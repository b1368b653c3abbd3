package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange         EventType = "balance_change"
	EventTypeUserCreated           EventType = "user_created"
	EventTypeWithdrawalRequested   EventType = "withdrawal_requested"
	EventTypeWithdrawalResolved    EventType = "withdrawal_resolved"
	EventTypeReferralBonusCredited EventType = "referral_bonus_credited"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent is emitted for every committed ledger entry
type BalanceChangeEvent struct {
	UserID        int64  `json:"userId"`
	TransactionID int64  `json:"transactionId"`
	Field         string `json:"field"`
	Category      string `json:"category"`
	Status        string `json:"status"`
	OldValue      int64  `json:"oldValue"`
	NewValue      int64  `json:"newValue"`
	ChangeAmount  int64  `json:"changeAmount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserCreatedEvent is emitted when a principal first authenticates
type UserCreatedEvent struct {
	UserID       int64  `json:"userId"`
	Username     string `json:"username"`
	ReferralCode string `json:"referralCode"`
	ReferrerID   *int64 `json:"referrerId,omitempty"`
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// WithdrawalRequestedEvent is the payout record consumed by the payout processor
type WithdrawalRequestedEvent struct {
	TransactionID int64     `json:"transactionId"`
	UserID        int64     `json:"userId"`
	Amount        int64     `json:"amount"`
	Bank          string    `json:"bank"`
	AccountNumber string    `json:"accountNumber"`
	RequestedAt   time.Time `json:"requestedAt"`
}

func (e WithdrawalRequestedEvent) Type() EventType {
	return EventTypeWithdrawalRequested
}

// WithdrawalResolvedEvent reports the payout processor's outcome
type WithdrawalResolvedEvent struct {
	TransactionID int64  `json:"transactionId"`
	UserID        int64  `json:"userId"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

func (e WithdrawalResolvedEvent) Type() EventType {
	return EventTypeWithdrawalResolved
}

// ReferralBonusCreditedEvent is emitted once an outbox entry settles
type ReferralBonusCreditedEvent struct {
	EntryID       string `json:"entryId"`
	ReferrerID    int64  `json:"referrerId"`
	RefereeID     int64  `json:"refereeId"`
	Amount        int64  `json:"amount"`
	TransactionID int64  `json:"transactionId"`
}

func (e ReferralBonusCreditedEvent) Type() EventType {
	return EventTypeReferralBonusCredited
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus dispatches events to in-process subscribers
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on local event bus")
}

// Emit calls every handler for the event on its own goroutine. Handler panics are recovered.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Publish adapts the bus to the publisher interface used by units of work
func (b *Bus) Publish(event Event) error {
	b.Emit(context.Background(), event)
	return nil
}
