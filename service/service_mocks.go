package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"dicewager/models"
)

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, accountID int64, username string, inviteCode string) (*models.Account, error) {
	args := m.Called(ctx, accountID, username, inviteCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockUserService) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockUserService) EnsureHouseAccount(ctx context.Context) (*models.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockUserService) LinkWallet(ctx context.Context, accountID int64, address string) error {
	args := m.Called(ctx, accountID, address)
	return args.Error(0)
}

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Debit(ctx context.Context, accountID int64, amount int64) (int64, error) {
	args := m.Called(ctx, accountID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) Credit(ctx context.Context, accountID int64, amount int64, isInviteEarning bool) (int64, error) {
	args := m.Called(ctx, accountID, amount, isInviteEarning)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) GetBalanceHistory(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockWagerRegistry is a mock implementation of WagerRegistry
type MockWagerRegistry struct {
	mock.Mock
}

func (m *MockWagerRegistry) wager(args mock.Arguments) (*models.Wager, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockWagerRegistry) wagers(args mock.Arguments) ([]*models.Wager, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

func (m *MockWagerRegistry) Create(ctx context.Context, creatorID int64, stake int64) (*models.Wager, error) {
	return m.wager(m.Called(ctx, creatorID, stake))
}

func (m *MockWagerRegistry) Join(ctx context.Context, wagerID string, opponentID int64) (*models.Wager, error) {
	return m.wager(m.Called(ctx, wagerID, opponentID))
}

func (m *MockWagerRegistry) SubmitRoll(ctx context.Context, wagerID string, playerID int64, value int) (*models.RollResult, error) {
	args := m.Called(ctx, wagerID, playerID, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RollResult), args.Error(1)
}

func (m *MockWagerRegistry) Cancel(ctx context.Context, wagerID string, requesterID int64) (*models.Wager, error) {
	return m.wager(m.Called(ctx, wagerID, requesterID))
}

func (m *MockWagerRegistry) Get(ctx context.Context, wagerID string) (*models.Wager, error) {
	return m.wager(m.Called(ctx, wagerID))
}

func (m *MockWagerRegistry) ListOpen(ctx context.Context, limit int) ([]*models.Wager, error) {
	return m.wagers(m.Called(ctx, limit))
}

func (m *MockWagerRegistry) ListActiveByAccount(ctx context.Context, accountID int64) ([]*models.Wager, error) {
	return m.wagers(m.Called(ctx, accountID))
}

// MockHistoryService is a mock implementation of HistoryService
type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) Append(ctx context.Context, entry *models.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryService) QueryByAccount(ctx context.Context, accountID int64, status *models.WagerStatus, limit, offset int) (*models.HistoryPage, error) {
	args := m.Called(ctx, accountID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HistoryPage), args.Error(1)
}

func (m *MockHistoryService) Receipt(ctx context.Context, wagerID string) (*models.WagerReceipt, error) {
	args := m.Called(ctx, wagerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WagerReceipt), args.Error(1)
}

// MockInviteService is a mock implementation of InviteService
type MockInviteService struct {
	mock.Mock
}

func (m *MockInviteService) RecordInvite(ctx context.Context, inviteeID int64, inviterID int64) error {
	args := m.Called(ctx, inviteeID, inviterID)
	return args.Error(0)
}

func (m *MockInviteService) GetInviter(ctx context.Context, accountID int64) (*int64, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

func (m *MockInviteService) GetStats(ctx context.Context, accountID int64) (*models.InviteStats, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InviteStats), args.Error(1)
}

// MockBridgeService is a mock implementation of BridgeService
type MockBridgeService struct {
	mock.Mock
}

func (m *MockBridgeService) transfer(args mock.Arguments) (*models.Transfer, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transfer), args.Error(1)
}

func (m *MockBridgeService) GetExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockBridgeService) Deposit(ctx context.Context, accountID int64, txHash string) (*models.Transfer, error) {
	return m.transfer(m.Called(ctx, accountID, txHash))
}

func (m *MockBridgeService) Withdraw(ctx context.Context, accountID int64, amount int64) (*models.Transfer, error) {
	return m.transfer(m.Called(ctx, accountID, amount))
}

func (m *MockBridgeService) CompleteTransfer(ctx context.Context, transferID string, result models.TransferResult) (*models.Transfer, error) {
	return m.transfer(m.Called(ctx, transferID, result))
}

func (m *MockBridgeService) ListTransfers(ctx context.Context, accountID int64, limit int) ([]*models.Transfer, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transfer), args.Error(1)
}

func (m *MockBridgeService) ResumePending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockBridgeService) Close() {
	m.Called()
}
