package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"dicewager/events"
	"dicewager/models"
)

func TestMessages_Settled(t *testing.T) {
	entry := models.HistoryEntry{
		WagerID:       "wager-1",
		CreatorID:     10,
		OpponentID:    int64Ptr(20),
		Stake:         200,
		CreatorScore:  12,
		OpponentScore: 9,
		WinnerID:      int64Ptr(10),
		WinAmount:     380,
		Status:        models.WagerStatusCompleted,
	}

	msgs := Messages(events.WagerSettledEvent{Entry: entry, Kind: models.OutcomeCreatorWin})
	assert.Len(t, msgs, 2)
	assert.Equal(t, "You won wager wager-1 12 to 9 and received 380.", msgs[10])
	assert.Equal(t, "You lost wager wager-1 9 to 12.", msgs[20])

	entry.OpponentScore = 12
	tie := Messages(events.WagerSettledEvent{Entry: entry, Kind: models.OutcomeTie})
	assert.Equal(t, tie[10], tie[20])
	assert.Contains(t, tie[10], "tie")
}

func TestMessages_Other(t *testing.T) {
	assert.Len(t, Messages(events.WagerJoinedEvent{WagerID: "w", CreatorID: 10, OpponentID: 20, Stake: 100}), 1)
	assert.Empty(t, Messages(events.WagerCancelledEvent{WagerID: "w", CreatorID: 10, Stake: 100}))
	assert.Contains(t, Messages(events.WagerCancelledEvent{WagerID: "w", CreatorID: 10, OpponentID: int64Ptr(20), Stake: 100}), int64(20))
	assert.Empty(t, Messages(events.BalanceChangeEvent{AccountID: 10, TransactionType: models.TransactionTypeWagerWin}))
	assert.Contains(t, Messages(events.BalanceChangeEvent{AccountID: 30, TransactionType: models.TransactionTypeInviteEarning, ChangeAmount: 14})[30], "14")
	assert.Contains(t, Messages(events.TransferFinishedEvent{AccountID: 10, Direction: models.TransferDirectionWithdraw, Status: models.TransferStatusFailed})[10], "failed")
}

func TestNotificationHandler_ContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	notifier := new(MockNotifier)
	handler := NewNotificationHandler(notifier)

	notifier.On("Notify", ctx, int64(10), mock.Anything).Return(errors.New("dm closed"))
	notifier.On("Notify", ctx, int64(20), mock.Anything).Return(nil)

	handler.Handle(ctx, events.WagerSettledEvent{
		Entry: models.HistoryEntry{WagerID: "w", CreatorID: 10, OpponentID: int64Ptr(20), Stake: 100, CreatorScore: 4, OpponentScore: 4},
		Kind:  models.OutcomeTie,
	})

	notifier.AssertNumberOfCalls(t, "Notify", 2)
}
