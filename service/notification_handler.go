package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"dicewager/events"
	"dicewager/models"
)

// NotificationHandler turns committed domain events into player messages
type NotificationHandler struct {
	notifier Notifier
}

// NewNotificationHandler creates a handler sending through notifier
func NewNotificationHandler(notifier Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// RegisterNotificationSubscriptions subscribes the handler to every event players hear about.
// Handlers run on the bus goroutines after the wager lock has been released.
func RegisterNotificationSubscriptions(bus *events.Bus, notifier Notifier) *NotificationHandler {
	h := NewNotificationHandler(notifier)
	bus.Subscribe(events.EventTypeWagerJoined, h.Handle)
	bus.Subscribe(events.EventTypeWagerSettled, h.Handle)
	bus.Subscribe(events.EventTypeWagerCancelled, h.Handle)
	bus.Subscribe(events.EventTypeTransferFinished, h.Handle)
	bus.Subscribe(events.EventTypeBalanceChange, h.Handle)

	log.Info("Notification subscriptions registered")
	return h
}

// Handle dispatches one event to the affected players
func (h *NotificationHandler) Handle(ctx context.Context, event events.Event) {
	for accountID, message := range Messages(event) {
		if err := h.notifier.Notify(ctx, accountID, message); err != nil {
			log.WithFields(log.Fields{
				"accountID": accountID,
				"eventType": event.Type(),
				"error":     err,
			}).Warn("Failed to notify player")
		}
	}
}

// Messages returns the message each affected account receives for event
func Messages(event events.Event) map[int64]string {
	switch e := event.(type) {
	case events.WagerJoinedEvent:
		return map[int64]string{
			e.CreatorID: fmt.Sprintf("Your wager %s for %d was joined. Roll your dice with /roll.", e.WagerID, e.Stake),
		}

	case events.WagerSettledEvent:
		return settledMessages(e)

	case events.WagerCancelledEvent:
		if e.OpponentID == nil {
			return nil
		}
		return map[int64]string{
			*e.OpponentID: fmt.Sprintf("Wager %s was cancelled by its creator. Your stake of %d was refunded.", e.WagerID, e.Stake),
		}

	case events.TransferFinishedEvent:
		verb := "Deposit"
		if e.Direction == models.TransferDirectionWithdraw {
			verb = "Withdrawal"
		}
		if e.Status == models.TransferStatusCompleted {
			return map[int64]string{
				e.AccountID: fmt.Sprintf("%s of %d completed.", verb, e.Amount),
			}
		}
		return map[int64]string{
			e.AccountID: fmt.Sprintf("%s %s failed. Your balance was not changed.", verb, e.TransferID),
		}

	case events.BalanceChangeEvent:
		if e.TransactionType != models.TransactionTypeInviteEarning {
			return nil
		}
		return map[int64]string{
			e.AccountID: fmt.Sprintf("You earned %d from a player you invited.", e.ChangeAmount),
		}
	}
	return nil
}

func settledMessages(e events.WagerSettledEvent) map[int64]string {
	entry := e.Entry
	if entry.OpponentID == nil {
		return nil
	}
	opponentID := *entry.OpponentID

	if e.Kind == models.OutcomeTie {
		msg := fmt.Sprintf("Wager %s ended in a tie at %d. Your stake of %d was refunded.", entry.WagerID, entry.CreatorScore, entry.Stake)
		return map[int64]string{entry.CreatorID: msg, opponentID: msg}
	}

	winner, loser := entry.CreatorID, opponentID
	winnerScore, loserScore := entry.CreatorScore, entry.OpponentScore
	if e.Kind == models.OutcomeOpponentWin {
		winner, loser = loser, winner
		winnerScore, loserScore = loserScore, winnerScore
	}

	return map[int64]string{
		winner: fmt.Sprintf("You won wager %s %d to %d and received %d.", entry.WagerID, winnerScore, loserScore, entry.WinAmount),
		loser:  fmt.Sprintf("You lost wager %s %d to %d.", entry.WagerID, loserScore, winnerScore),
	}
}
