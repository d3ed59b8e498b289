package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferDirection is the direction of a bridge transfer
type TransferDirection string

const (
	TransferDirectionDeposit  TransferDirection = "deposit"
	TransferDirectionWithdraw TransferDirection = "withdraw"
)

// TransferStatus represents the lifecycle of a bridge transfer
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusFailed    TransferStatus = "failed"
)

// Transfer records an exchange between the game balance and the on-chain token
type Transfer struct {
	ID            string            `db:"id"`
	AccountID     int64             `db:"account_id"`
	Direction     TransferDirection `db:"direction"`
	Amount        int64             `db:"amount"`       // game units
	TokenAmount   decimal.Decimal   `db:"token_amount"` // token base units
	TxHash        *string           `db:"tx_hash"`
	Status        TransferStatus    `db:"status"`
	FailureReason *string           `db:"failure_reason"`
	CreatedAt     time.Time         `db:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at"`
}

// TransferRequest is handed to the payment gateway
type TransferRequest struct {
	TransferID    string
	Direction     TransferDirection
	AccountID     int64
	WalletAddress string
	TokenAmount   decimal.Decimal // base units, withdrawals only
	TxHash        string          // deposits only
}

// TransferResult is the resolved outcome of a gateway transfer
type TransferResult struct {
	Success     bool
	TokenAmount decimal.Decimal // base units actually moved
	TxHash      string
	Err         error
}
