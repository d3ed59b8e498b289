package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dicewager/models"
)

func TestLedgerService_Debit(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		repos := newTestRepos()
		svc := NewLedgerService(repos.factory, nil)

		_, err := svc.Debit(ctx, 10, 0)
		assert.ErrorIs(t, err, models.ErrInvalidAmount)
		_, err = svc.Debit(ctx, 10, -5)
		assert.ErrorIs(t, err, models.ErrInvalidAmount)
		repos.factory.AssertNotCalled(t, "Create")
	})

	t.Run("insufficient funds leaves no history", func(t *testing.T) {
		repos := newTestRepos()
		svc := NewLedgerService(repos.factory, nil)
		repos.accounts.On("Debit", ctx, int64(10), int64(500)).Return(int64(0), models.ErrInsufficientFunds)

		_, err := svc.Debit(ctx, 10, 500)
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
		repos.balanceHistory.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("records the change", func(t *testing.T) {
		repos := newTestRepos()
		svc := NewLedgerService(repos.factory, nil)
		repos.accounts.On("Debit", ctx, int64(10), int64(300)).Return(int64(700), nil)
		repos.balanceHistory.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.BalanceBefore == 1000 && h.BalanceAfter == 700 && h.ChangeAmount == -300
		})).Return(nil)

		balance, err := svc.Debit(ctx, 10, 300)
		require.NoError(t, err)
		assert.Equal(t, int64(700), balance)
	})
}

func TestLedgerService_Credit(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects negative amounts", func(t *testing.T) {
		repos := newTestRepos()
		svc := NewLedgerService(repos.factory, nil)

		_, err := svc.Credit(ctx, 10, -1, false)
		assert.ErrorIs(t, err, models.ErrInvalidAmount)
	})

	t.Run("invite earning", func(t *testing.T) {
		repos := newTestRepos()
		svc := NewLedgerService(repos.factory, nil)
		repos.accounts.On("Credit", ctx, int64(30), int64(14), true).Return(int64(1014), nil)
		repos.balanceHistory.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.TransactionType == models.TransactionTypeInviteEarning && h.ChangeAmount == 14
		})).Return(nil)

		balance, err := svc.Credit(ctx, 30, 14, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1014), balance)
	})
}

func TestLedgerService_GetBalance(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos()
	svc := NewLedgerService(repos.factory, nil)
	repos.accounts.On("GetByID", ctx, int64(10)).Return(&models.Account{ID: 10, Balance: 640}, nil)
	repos.accounts.On("GetByID", ctx, int64(11)).Return(nil, nil)

	balance, err := svc.GetBalance(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(640), balance)

	_, err = svc.GetBalance(ctx, 11)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}
