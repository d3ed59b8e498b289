package service

import (
	"context"
	"fmt"

	"dicewager/events"
	"dicewager/models"
)

// RecordBalanceChange records a balance history entry and emits a balance change event.
// Every balance mutation goes through here inside the same unit of work.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.BalanceHistory) error {
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		AccountID:       history.AccountID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		TransactionType: history.TransactionType,
		ChangeAmount:    history.ChangeAmount,
	})

	return nil
}

// debitAccount debits an account inside uow and records the change
func debitAccount(ctx context.Context, uow UnitOfWork, accountID, amount int64, txType models.TransactionType, related *relatedEntity) (int64, error) {
	newBalance, err := uow.AccountRepository().Debit(ctx, accountID, amount)
	if err != nil {
		return 0, err
	}

	history := &models.BalanceHistory{
		AccountID:       accountID,
		BalanceBefore:   newBalance + amount,
		BalanceAfter:    newBalance,
		ChangeAmount:    -amount,
		TransactionType: txType,
	}
	related.apply(history)
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// creditAccount credits an account inside uow and records the change
func creditAccount(ctx context.Context, uow UnitOfWork, accountID, amount int64, isInviteEarning bool, txType models.TransactionType, related *relatedEntity) (int64, error) {
	newBalance, err := uow.AccountRepository().Credit(ctx, accountID, amount, isInviteEarning)
	if err != nil {
		return 0, err
	}

	history := &models.BalanceHistory{
		AccountID:       accountID,
		BalanceBefore:   newBalance - amount,
		BalanceAfter:    newBalance,
		ChangeAmount:    amount,
		TransactionType: txType,
	}
	related.apply(history)
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// relatedEntity links a balance change to the wager or transfer that caused it
type relatedEntity struct {
	id       string
	kind     models.RelatedType
	metadata map[string]any
}

func relatedWager(wagerID string, metadata map[string]any) *relatedEntity {
	return &relatedEntity{id: wagerID, kind: models.RelatedTypeWager, metadata: metadata}
}

func relatedTransfer(transferID string, metadata map[string]any) *relatedEntity {
	return &relatedEntity{id: transferID, kind: models.RelatedTypeTransfer, metadata: metadata}
}

func (r *relatedEntity) apply(history *models.BalanceHistory) {
	if r == nil {
		return
	}
	id := r.id
	kind := r.kind
	history.RelatedID = &id
	history.RelatedType = &kind
	history.TransactionMetadata = r.metadata
}
