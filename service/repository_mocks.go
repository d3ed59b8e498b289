package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"dicewager/events"
	"dicewager/models"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByInviteCode(ctx context.Context, code string) (*models.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) Debit(ctx context.Context, id int64, amount int64) (int64, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) Credit(ctx context.Context, id int64, amount int64, isInviteEarning bool) (int64, error) {
	args := m.Called(ctx, id, amount, isInviteEarning)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) SetInviter(ctx context.Context, inviteeID int64, inviterID int64) error {
	args := m.Called(ctx, inviteeID, inviterID)
	return args.Error(0)
}

func (m *MockAccountRepository) CountInvitees(ctx context.Context, inviterID int64) (int64, error) {
	args := m.Called(ctx, inviterID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) SetWalletAddress(ctx context.Context, id int64, address string) error {
	args := m.Called(ctx, id, address)
	return args.Error(0)
}

// MockWagerRepository is a mock implementation of WagerRepository
type MockWagerRepository struct {
	mock.Mock
}

func (m *MockWagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

func (m *MockWagerRepository) GetByID(ctx context.Context, id string) (*models.Wager, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Wager, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) Update(ctx context.Context, wager *models.Wager) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

func (m *MockWagerRepository) ListOpen(ctx context.Context, limit int) ([]*models.Wager, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) ListActiveByAccount(ctx context.Context, accountID int64) ([]*models.Wager, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) ListByStatus(ctx context.Context, status models.WagerStatus) ([]*models.Wager, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

// MockSettlementCreditRepository is a mock implementation of SettlementCreditRepository
type MockSettlementCreditRepository struct {
	mock.Mock
}

func (m *MockSettlementCreditRepository) MarkApplied(ctx context.Context, credit *models.SettlementCredit) (bool, error) {
	args := m.Called(ctx, credit)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettlementCreditRepository) ListByWager(ctx context.Context, wagerID string) ([]*models.SettlementCredit, error) {
	args := m.Called(ctx, wagerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SettlementCredit), args.Error(1)
}

// MockHistoryRepository is a mock implementation of HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, entry *models.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) GetByWagerID(ctx context.Context, wagerID string) (*models.HistoryEntry, error) {
	args := m.Called(ctx, wagerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HistoryEntry), args.Error(1)
}

func (m *MockHistoryRepository) QueryByAccount(ctx context.Context, accountID int64, status *models.WagerStatus, limit, offset int) ([]*models.HistoryEntry, error) {
	args := m.Called(ctx, accountID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.HistoryEntry), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockTransferRepository is a mock implementation of TransferRepository
type MockTransferRepository struct {
	mock.Mock
}

func (m *MockTransferRepository) Create(ctx context.Context, transfer *models.Transfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockTransferRepository) GetByID(ctx context.Context, id string) (*models.Transfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transfer), args.Error(1)
}

func (m *MockTransferRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Transfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transfer), args.Error(1)
}

func (m *MockTransferRepository) Update(ctx context.Context, transfer *models.Transfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockTransferRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transfer, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transfer), args.Error(1)
}

func (m *MockTransferRepository) ListPending(ctx context.Context) ([]*models.Transfer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transfer), args.Error(1)
}

func (m *MockTransferRepository) SumPending(ctx context.Context, accountID int64, direction models.TransferDirection) (int64, error) {
	args := m.Called(ctx, accountID, direction)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns every event published so far
func (m *MockEventPublisher) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.events...)
}

// MockUnitOfWork is a mock implementation of UnitOfWork.
// Begin, Commit and Rollback are expectations; repositories are plain fields.
type MockUnitOfWork struct {
	mock.Mock

	accountRepo        AccountRepository
	wagerRepo          WagerRepository
	creditRepo         SettlementCreditRepository
	historyRepo        HistoryRepository
	balanceHistoryRepo BalanceHistoryRepository
	transferRepo       TransferRepository
	publisher          MockEventPublisher
}

// SetRepositories wires the repositories handed out by the unit of work. Any may be nil.
func (m *MockUnitOfWork) SetRepositories(
	accountRepo AccountRepository,
	wagerRepo WagerRepository,
	creditRepo SettlementCreditRepository,
	historyRepo HistoryRepository,
	balanceHistoryRepo BalanceHistoryRepository,
	transferRepo TransferRepository,
) {
	m.accountRepo = accountRepo
	m.wagerRepo = wagerRepo
	m.creditRepo = creditRepo
	m.historyRepo = historyRepo
	m.balanceHistoryRepo = balanceHistoryRepo
	m.transferRepo = transferRepo
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository                   { return m.accountRepo }
func (m *MockUnitOfWork) WagerRepository() WagerRepository                       { return m.wagerRepo }
func (m *MockUnitOfWork) SettlementCreditRepository() SettlementCreditRepository { return m.creditRepo }
func (m *MockUnitOfWork) HistoryRepository() HistoryRepository                   { return m.historyRepo }
func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository     { return m.balanceHistoryRepo }
func (m *MockUnitOfWork) TransferRepository() TransferRepository                 { return m.transferRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher                               { return &m.publisher }

// PublishedEvents returns the events published through this unit of work
func (m *MockUnitOfWork) PublishedEvents() []events.Event {
	return m.publisher.Events()
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) GetExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentGateway) RequestTransfer(ctx context.Context, req models.TransferRequest) (<-chan models.TransferResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan models.TransferResult), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, accountID int64, message string) error {
	args := m.Called(ctx, accountID, message)
	return args.Error(0)
}
