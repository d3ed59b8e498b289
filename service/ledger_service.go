package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"dicewager/metrics"
	"dicewager/models"
)

const maxBalanceHistoryLimit = 100

type ledgerService struct {
	uowFactory UnitOfWorkFactory
	metrics    *metrics.Engine
}

// NewLedgerService creates the standalone ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory, m *metrics.Engine) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
		metrics:    m,
	}
}

// Debit subtracts amount from the account and returns the new balance
func (s *ledgerService) Debit(ctx context.Context, accountID int64, amount int64) (newBalance int64, err error) {
	defer func() { s.metrics.LedgerOperation("debit", err) }()

	if amount <= 0 {
		return 0, fmt.Errorf("%w: debit amount must be positive", models.ErrInvalidAmount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	newBalance, err = debitAccount(ctx, uow, accountID, amount, models.TransactionTypeManual, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to debit account %d: %w", accountID, err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID":  accountID,
		"amount":     amount,
		"newBalance": newBalance,
	}).Debug("Account debited")

	return newBalance, nil
}

// Credit adds amount to the account and returns the new balance
func (s *ledgerService) Credit(ctx context.Context, accountID int64, amount int64, isInviteEarning bool) (newBalance int64, err error) {
	defer func() { s.metrics.LedgerOperation("credit", err) }()

	if amount < 0 {
		return 0, fmt.Errorf("%w: credit amount cannot be negative", models.ErrInvalidAmount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txType := models.TransactionTypeManual
	if isInviteEarning {
		txType = models.TransactionTypeInviteEarning
	}
	newBalance, err = creditAccount(ctx, uow, accountID, amount, isInviteEarning, txType, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to credit account %d: %w", accountID, err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID":       accountID,
		"amount":          amount,
		"isInviteEarning": isInviteEarning,
		"newBalance":      newBalance,
	}).Debug("Account credited")

	return newBalance, nil
}

// GetBalance returns the current balance
func (s *ledgerService) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return 0, models.ErrAccountNotFound
	}
	return account.Balance, nil
}

// GetBalanceHistory returns recent balance changes
func (s *ledgerService) GetBalanceHistory(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error) {
	if limit <= 0 || limit > maxBalanceHistoryLimit {
		limit = maxBalanceHistoryLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	history, err := uow.BalanceHistoryRepository().GetByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history: %w", err)
	}
	return history, nil
}
