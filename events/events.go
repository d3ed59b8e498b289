package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"dicewager/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange     EventType = "balance_change"
	EventTypeAccountRegistered EventType = "account_registered"
	EventTypeWagerCreated      EventType = "wager_created"
	EventTypeWagerJoined       EventType = "wager_joined"
	EventTypeWagerSettled      EventType = "wager_settled"
	EventTypeWagerCancelled    EventType = "wager_cancelled"
	EventTypeTransferFinished  EventType = "transfer_finished"
)

// AllEventTypes lists every event type, for subscribers that forward everything
var AllEventTypes = []EventType{
	EventTypeBalanceChange,
	EventTypeAccountRegistered,
	EventTypeWagerCreated,
	EventTypeWagerJoined,
	EventTypeWagerSettled,
	EventTypeWagerCancelled,
	EventTypeTransferFinished,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	AccountID       int64                  `json:"account_id"`
	OldBalance      int64                  `json:"old_balance"`
	NewBalance      int64                  `json:"new_balance"`
	TransactionType models.TransactionType `json:"transaction_type"`
	ChangeAmount    int64                  `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountRegisteredEvent represents a new account joining through an invite code
type AccountRegisteredEvent struct {
	AccountID      int64  `json:"account_id"`
	Username       string `json:"username"`
	InviterID      *int64 `json:"inviter_id,omitempty"`
	InitialBalance int64  `json:"initial_balance"`
}

func (e AccountRegisteredEvent) Type() EventType {
	return EventTypeAccountRegistered
}

// WagerCreatedEvent represents a wager opened by its creator
type WagerCreatedEvent struct {
	WagerID   string `json:"wager_id"`
	CreatorID int64  `json:"creator_id"`
	Stake     int64  `json:"stake"`
}

func (e WagerCreatedEvent) Type() EventType {
	return EventTypeWagerCreated
}

// WagerJoinedEvent represents an opponent committing their stake
type WagerJoinedEvent struct {
	WagerID    string `json:"wager_id"`
	CreatorID  int64  `json:"creator_id"`
	OpponentID int64  `json:"opponent_id"`
	Stake      int64  `json:"stake"`
}

func (e WagerJoinedEvent) Type() EventType {
	return EventTypeWagerJoined
}

// WagerSettledEvent is emitted once every settlement credit of a wager is applied
type WagerSettledEvent struct {
	Entry models.HistoryEntry `json:"entry"`
	Kind  models.OutcomeKind  `json:"outcome"`
}

func (e WagerSettledEvent) Type() EventType {
	return EventTypeWagerSettled
}

// WagerCancelledEvent represents a cancelled wager whose stakes were refunded
type WagerCancelledEvent struct {
	WagerID    string `json:"wager_id"`
	CreatorID  int64  `json:"creator_id"`
	OpponentID *int64 `json:"opponent_id,omitempty"`
	Stake      int64  `json:"stake"`
}

func (e WagerCancelledEvent) Type() EventType {
	return EventTypeWagerCancelled
}

// TransferFinishedEvent represents a bridge transfer reaching a final status
type TransferFinishedEvent struct {
	TransferID string                   `json:"transfer_id"`
	AccountID  int64                    `json:"account_id"`
	Direction  models.TransferDirection `json:"direction"`
	Status     models.TransferStatus    `json:"status"`
	Amount     int64                    `json:"amount"`
}

func (e TransferFinishedEvent) Type() EventType {
	return EventTypeTransferFinished
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
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
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler for every event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Handlers run asynchronously so a slow subscriber never blocks the emitter
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

// TransactionalBus holds events raised inside a unit of work until it commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events")

	// Handlers outlive the request, so they get a detached context
	eventCtx := context.WithoutCancel(ctx)
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard is called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

// Pending returns the number of events waiting for a commit
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
