package service

import (
	"context"
	"fmt"

	"dicewager/models"
)

// Paging defaults of the history log
const (
	DefaultHistoryPageSize = 5
	MaxHistoryPageSize     = 50
)

type historyService struct {
	uowFactory UnitOfWorkFactory
}

// NewHistoryService creates the game history service
func NewHistoryService(uowFactory UnitOfWorkFactory) HistoryService {
	return &historyService{uowFactory: uowFactory}
}

// Append records a terminal wager snapshot
func (s *historyService) Append(ctx context.Context, entry *models.HistoryEntry) error {
	if !entry.Status.IsTerminal() {
		return fmt.Errorf("cannot record history for %s wager %s", entry.Status, entry.WagerID)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.HistoryRepository().Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// QueryByAccount returns one page of the account's history, newest first.
// HasMore is found by reading one entry past the page.
func (s *historyService) QueryByAccount(ctx context.Context, accountID int64, status *models.WagerStatus, limit, offset int) (*models.HistoryPage, error) {
	if limit <= 0 {
		limit = DefaultHistoryPageSize
	}
	if limit > MaxHistoryPageSize {
		limit = MaxHistoryPageSize
	}
	if offset < 0 {
		offset = 0
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.HistoryRepository()
	entries, err := repo.QueryByAccount(ctx, accountID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	next, err := repo.QueryByAccount(ctx, accountID, status, 1, offset+limit)
	if err != nil {
		return nil, fmt.Errorf("failed to look past history page: %w", err)
	}

	return &models.HistoryPage{
		Entries: entries,
		Limit:   limit,
		Offset:  offset,
		HasMore: len(next) > 0,
	}, nil
}

// Receipt returns the snapshot of a terminal wager and the settlement credits applied for it.
// Wagers without a recorded snapshot are reported as not found.
func (s *historyService) Receipt(ctx context.Context, wagerID string) (*models.WagerReceipt, error) {
	if !validWagerID(wagerID) {
		return nil, models.ErrWagerNotFound
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entry, err := uow.HistoryRepository().GetByWagerID(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}
	if entry == nil {
		return nil, models.ErrWagerNotFound
	}

	credits, err := uow.SettlementCreditRepository().ListByWager(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlement credits: %w", err)
	}
	return &models.WagerReceipt{Entry: entry, Credits: credits}, nil
}
