package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial       TransactionType = "initial"
	TransactionTypeWagerStake    TransactionType = "wager_stake"
	TransactionTypeWagerWin      TransactionType = "wager_win"
	TransactionTypeWagerRefund   TransactionType = "wager_refund"
	TransactionTypeInviteEarning TransactionType = "invite_earning"
	TransactionTypeHouseFee      TransactionType = "house_fee"
	TransactionTypeDeposit       TransactionType = "deposit"
	TransactionTypeWithdraw      TransactionType = "withdraw"
	TransactionTypeManual        TransactionType = "manual"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeWager    RelatedType = "wager"
	RelatedTypeTransfer RelatedType = "transfer"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	AccountID           int64           `db:"account_id"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *string         `db:"related_id"`
	RelatedType         *RelatedType    `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}
