package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicewager/models"
)

func TestTransactionalBus_FlushDeliversToSubscribers(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan BalanceChangeEvent, 1)
	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		if balanceEvent, ok := event.(BalanceChangeEvent); ok {
			received <- balanceEvent
		}
	})

	sent := BalanceChangeEvent{
		AccountID:       42,
		OldBalance:      1000,
		NewBalance:      800,
		TransactionType: models.TransactionTypeWagerStake,
		ChangeAmount:    -200,
	}
	transactionalBus.Publish(sent)
	assert.Equal(t, 1, transactionalBus.Pending())

	require.NoError(t, transactionalBus.Flush(context.Background()))
	assert.Equal(t, 0, transactionalBus.Pending())

	select {
	case got := <-received:
		assert.Equal(t, sent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestTransactionalBus_DiscardDropsEvents(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan struct{}, 1)
	mainBus.Subscribe(EventTypeWagerCreated, func(ctx context.Context, event Event) {
		received <- struct{}{}
	})

	transactionalBus.Publish(WagerCreatedEvent{WagerID: "w-1", CreatorID: 1, Stake: 100})
	transactionalBus.Discard()
	require.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case <-received:
		t.Fatal("discarded event was delivered")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_SubscribeAllReceivesEveryType(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	seen := make(map[EventType]bool)
	var wg sync.WaitGroup
	wg.Add(3)
	bus.SubscribeAll(func(ctx context.Context, event Event) {
		defer wg.Done()
		mu.Lock()
		seen[event.Type()] = true
		mu.Unlock()
	})

	ctx := context.Background()
	bus.Emit(ctx, WagerCreatedEvent{WagerID: "w-1"})
	bus.Emit(ctx, WagerCancelledEvent{WagerID: "w-1"})
	bus.Emit(ctx, AccountRegisteredEvent{AccountID: 7})
	wg.Wait()

	assert.True(t, seen[EventTypeWagerCreated])
	assert.True(t, seen[EventTypeWagerCancelled])
	assert.True(t, seen[EventTypeAccountRegistered])
}

func TestBus_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewBus()

	done := make(chan struct{}, 1)
	bus.Subscribe(EventTypeWagerJoined, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeWagerJoined, func(ctx context.Context, event Event) {
		done <- struct{}{}
	})

	bus.Emit(context.Background(), WagerJoinedEvent{WagerID: "w-2"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler was not called")
	}
}
