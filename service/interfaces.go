package service

import (
	"context"

	"github.com/shopspring/decimal"

	"dicewager/events"
	"dicewager/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account by its chat user id
	GetByID(ctx context.Context, id int64) (*models.Account, error)

	// GetByIDForUpdate retrieves an account and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error)

	// GetByInviteCode retrieves the account owning an invite code
	GetByInviteCode(ctx context.Context, code string) (*models.Account, error)

	// Create inserts a new account
	Create(ctx context.Context, account *models.Account) error

	// Debit atomically subtracts amount, failing with ErrInsufficientFunds rather than going negative
	Debit(ctx context.Context, id int64, amount int64) (newBalance int64, err error)

	// Credit atomically adds amount, also adding to invite earnings when isInviteEarning is set
	Credit(ctx context.Context, id int64, amount int64, isInviteEarning bool) (newBalance int64, err error)

	// SetInviter records the inviter of an account exactly once
	SetInviter(ctx context.Context, inviteeID int64, inviterID int64) error

	// CountInvitees returns how many accounts were registered with the inviter's code
	CountInvitees(ctx context.Context, inviterID int64) (int64, error)

	// SetWalletAddress links an on-chain wallet to the account
	SetWalletAddress(ctx context.Context, id int64, address string) error
}

// WagerRepository defines the interface for wager data access
type WagerRepository interface {
	// Create inserts a new wager
	Create(ctx context.Context, wager *models.Wager) error

	// GetByID retrieves a wager by its ID
	GetByID(ctx context.Context, id string) (*models.Wager, error)

	// GetByIDForUpdate retrieves a wager and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id string) (*models.Wager, error)

	// Update persists the mutable fields of a wager, including its outcome
	Update(ctx context.Context, wager *models.Wager) error

	// ListOpen returns wagers still waiting for an opponent, newest first
	ListOpen(ctx context.Context, limit int) ([]*models.Wager, error)

	// ListActiveByAccount returns non-terminal wagers the account takes part in
	ListActiveByAccount(ctx context.Context, accountID int64) ([]*models.Wager, error)

	// ListByStatus returns all wagers in the given status, oldest first
	ListByStatus(ctx context.Context, status models.WagerStatus) ([]*models.Wager, error)
}

// SettlementCreditRepository records which credits of a terminal wager were applied
type SettlementCreditRepository interface {
	// MarkApplied stores the credit marker and reports false if it already existed
	MarkApplied(ctx context.Context, credit *models.SettlementCredit) (bool, error)

	// ListByWager returns the credits already applied for a wager
	ListByWager(ctx context.Context, wagerID string) ([]*models.SettlementCredit, error)
}

// HistoryRepository defines the interface for the append-only game history
type HistoryRepository interface {
	// Append stores a snapshot of a terminal wager
	Append(ctx context.Context, entry *models.HistoryEntry) error

	// GetByWagerID returns the snapshot of a wager, if recorded
	GetByWagerID(ctx context.Context, wagerID string) (*models.HistoryEntry, error)

	// QueryByAccount returns entries involving the account, newest first
	QueryByAccount(ctx context.Context, accountID int64, status *models.WagerStatus, limit, offset int) ([]*models.HistoryEntry, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByAccount returns the most recent balance changes of an account
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error)
}

// TransferRepository defines the interface for bridge transfer records
type TransferRepository interface {
	Create(ctx context.Context, transfer *models.Transfer) error
	GetByID(ctx context.Context, id string) (*models.Transfer, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Transfer, error)
	Update(ctx context.Context, transfer *models.Transfer) error
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transfer, error)
	ListPending(ctx context.Context) ([]*models.Transfer, error)

	// SumPending totals the game amount of pending transfers of an account in one direction
	SumPending(ctx context.Context, accountID int64, direction models.TransferDirection) (int64, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and releases the events published inside it
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	WagerRepository() WagerRepository
	SettlementCreditRepository() SettlementCreditRepository
	HistoryRepository() HistoryRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	TransferRepository() TransferRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// LedgerService exposes standalone balance operations
type LedgerService interface {
	// Debit subtracts amount from the account and returns the new balance
	Debit(ctx context.Context, accountID int64, amount int64) (int64, error)

	// Credit adds amount to the account and returns the new balance
	Credit(ctx context.Context, accountID int64, amount int64, isInviteEarning bool) (int64, error)

	// GetBalance returns the current balance
	GetBalance(ctx context.Context, accountID int64) (int64, error)

	// GetBalanceHistory returns recent balance changes
	GetBalanceHistory(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error)
}

// WagerRegistry owns the wager state machine
type WagerRegistry interface {
	// Create escrows the creator's stake and opens a pending wager
	Create(ctx context.Context, creatorID int64, stake int64) (*models.Wager, error)

	// Join escrows the opponent's stake and attaches them to the wager
	Join(ctx context.Context, wagerID string, opponentID int64) (*models.Wager, error)

	// SubmitRoll records one die value for a participant, settling the wager after the last roll
	SubmitRoll(ctx context.Context, wagerID string, playerID int64, value int) (*models.RollResult, error)

	// Cancel refunds every committed stake of an open wager
	Cancel(ctx context.Context, wagerID string, requesterID int64) (*models.Wager, error)

	// Get retrieves a wager by ID
	Get(ctx context.Context, wagerID string) (*models.Wager, error)

	// ListOpen returns wagers waiting for an opponent
	ListOpen(ctx context.Context, limit int) ([]*models.Wager, error)

	// ListActiveByAccount returns the account's non-terminal wagers
	ListActiveByAccount(ctx context.Context, accountID int64) ([]*models.Wager, error)
}

// SettlementService computes and applies wager outcomes
type SettlementService interface {
	// Prepare computes the outcome of a fully rolled wager, routing the inviter fee
	Prepare(ctx context.Context, uow UnitOfWork, wager *models.Wager) (*models.Outcome, error)

	// Apply credits every share of a resolving wager and completes it.
	// The caller must hold the wager lock.
	Apply(ctx context.Context, wagerID string) (*models.Wager, error)

	// ResumePending replays the settlement of every wager left in resolving
	ResumePending(ctx context.Context) (int, error)
}

// HistoryService exposes the game history log
type HistoryService interface {
	// Append records a terminal wager snapshot
	Append(ctx context.Context, entry *models.HistoryEntry) error

	// QueryByAccount returns one page of the account's history, newest first
	QueryByAccount(ctx context.Context, accountID int64, status *models.WagerStatus, limit, offset int) (*models.HistoryPage, error)

	// Receipt returns the snapshot of a terminal wager and the settlement credits applied for it
	Receipt(ctx context.Context, wagerID string) (*models.WagerReceipt, error)
}

// InviteService manages the one-level invite graph
type InviteService interface {
	// RecordInvite sets the inviter of an account exactly once
	RecordInvite(ctx context.Context, inviteeID int64, inviterID int64) error

	// GetInviter returns the inviter of an account, or nil
	GetInviter(ctx context.Context, accountID int64) (*int64, error)

	// GetStats returns the account's invite code, invitee count and earnings
	GetStats(ctx context.Context, accountID int64) (*models.InviteStats, error)
}

// UserService manages registration and account profile data
type UserService interface {
	// Register creates an account through a valid invite code
	Register(ctx context.Context, accountID int64, username string, inviteCode string) (*models.Account, error)

	// GetAccount retrieves a registered account
	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)

	// EnsureHouseAccount creates the house account if it does not exist
	EnsureHouseAccount(ctx context.Context) (*models.Account, error)

	// LinkWallet stores the account's on-chain wallet address
	LinkWallet(ctx context.Context, accountID int64, address string) error
}

// BridgeService exchanges game balance for the on-chain token
type BridgeService interface {
	// GetExchangeRate returns whole tokens per game unit
	GetExchangeRate(ctx context.Context) (decimal.Decimal, error)

	// Deposit credits the account once the gateway confirms the deposit transaction
	Deposit(ctx context.Context, accountID int64, txHash string) (*models.Transfer, error)

	// Withdraw sends tokens to the linked wallet and debits the account once confirmed
	Withdraw(ctx context.Context, accountID int64, amount int64) (*models.Transfer, error)

	// CompleteTransfer applies a resolved gateway result to a pending transfer
	CompleteTransfer(ctx context.Context, transferID string, result models.TransferResult) (*models.Transfer, error)

	// ListTransfers returns recent transfers of an account
	ListTransfers(ctx context.Context, accountID int64, limit int) ([]*models.Transfer, error)

	// ResumePending re-requests confirmation of deposits left pending by a restart
	ResumePending(ctx context.Context) (int, error)

	// Close waits for in-flight gateway results
	Close()
}

// PaymentGateway is the external token bridge
type PaymentGateway interface {
	// GetExchangeRate returns whole tokens per game unit
	GetExchangeRate(ctx context.Context) (decimal.Decimal, error)

	// RequestTransfer starts a transfer; the channel yields exactly one result
	RequestTransfer(ctx context.Context, req models.TransferRequest) (<-chan models.TransferResult, error)
}

// Notifier pushes a message to a player
type Notifier interface {
	Notify(ctx context.Context, accountID int64, message string) error
}
