package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dicewager/models"
)

func TestInviteService_RecordInvite(t *testing.T) {
	ctx := context.Background()

	t.Run("self invite", func(t *testing.T) {
		repos := newTestRepos()
		svc := NewInviteService(repos.factory)

		err := svc.RecordInvite(ctx, 10, 10)
		assert.ErrorIs(t, err, models.ErrSelfInvite)
		repos.factory.AssertNotCalled(t, "Create")
	})

	t.Run("unknown inviter", func(t *testing.T) {
		repos := newTestRepos()
		svc := NewInviteService(repos.factory)
		repos.accounts.On("GetByID", ctx, int64(30)).Return(nil, nil)

		err := svc.RecordInvite(ctx, 10, 30)
		assert.ErrorIs(t, err, models.ErrAccountNotFound)
		repos.accounts.AssertNotCalled(t, "SetInviter", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already invited", func(t *testing.T) {
		repos := newTestRepos()
		svc := NewInviteService(repos.factory)
		repos.accounts.On("GetByID", ctx, int64(30)).Return(&models.Account{ID: 30}, nil)
		repos.accounts.On("SetInviter", ctx, int64(10), int64(30)).Return(models.ErrAlreadyInvited)

		err := svc.RecordInvite(ctx, 10, 30)
		assert.ErrorIs(t, err, models.ErrAlreadyInvited)
		repos.uow.AssertNotCalled(t, "Commit")
	})

	t.Run("records edge", func(t *testing.T) {
		repos := newTestRepos()
		svc := NewInviteService(repos.factory)
		repos.accounts.On("GetByID", ctx, int64(30)).Return(&models.Account{ID: 30}, nil)
		repos.accounts.On("SetInviter", ctx, int64(10), int64(30)).Return(nil)

		require.NoError(t, svc.RecordInvite(ctx, 10, 30))
		repos.uow.AssertCalled(t, "Commit")
	})
}

func TestInviteService_GetInviter(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos()
	svc := NewInviteService(repos.factory)
	repos.accounts.On("GetByID", ctx, int64(10)).Return(&models.Account{ID: 10, InviterID: int64Ptr(30)}, nil)
	repos.accounts.On("GetByID", ctx, int64(11)).Return(nil, nil)

	inviter, err := svc.GetInviter(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(30), *inviter)

	_, err = svc.GetInviter(ctx, 11)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestInviteService_GetStats(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos()
	svc := NewInviteService(repos.factory)
	repos.accounts.On("GetByID", ctx, int64(30)).Return(&models.Account{ID: 30, InviteCode: "ABC123", InviteEarnings: 28}, nil)
	repos.accounts.On("CountInvitees", ctx, int64(30)).Return(int64(2), nil)

	stats, err := svc.GetStats(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, &models.InviteStats{AccountID: 30, InviteCode: "ABC123", InviteeCount: 2, InviteEarnings: 28}, stats)
}
