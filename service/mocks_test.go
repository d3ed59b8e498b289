package service

import (
	"github.com/stretchr/testify/mock"
)

// testRepos bundles the mocks behind one MockUnitOfWork
type testRepos struct {
	uow            *MockUnitOfWork
	factory        *MockUnitOfWorkFactory
	accounts       *MockAccountRepository
	wagers         *MockWagerRepository
	credits        *MockSettlementCreditRepository
	history        *MockHistoryRepository
	balanceHistory *MockBalanceHistoryRepository
	transfers      *MockTransferRepository
}

// newTestRepos returns a factory that always hands out the same unit of work
func newTestRepos() *testRepos {
	r := &testRepos{
		uow:            new(MockUnitOfWork),
		factory:        new(MockUnitOfWorkFactory),
		accounts:       new(MockAccountRepository),
		wagers:         new(MockWagerRepository),
		credits:        new(MockSettlementCreditRepository),
		history:        new(MockHistoryRepository),
		balanceHistory: new(MockBalanceHistoryRepository),
		transfers:      new(MockTransferRepository),
	}
	r.uow.SetRepositories(r.accounts, r.wagers, r.credits, r.history, r.balanceHistory, r.transfers)

	r.factory.On("Create").Return(r.uow)
	r.uow.On("Begin", mock.Anything).Return(nil)
	r.uow.On("Commit").Return(nil).Maybe()
	r.uow.On("Rollback").Return(nil)
	return r
}

func int64Ptr(v int64) *int64 {
	return &v
}
