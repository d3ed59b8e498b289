package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicewager/models"
	"dicewager/repository/testutil"
)

func TestAccountRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	t.Run("account not found", func(t *testing.T) {
		account, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, account)
	})

	t.Run("account found by id and invite code", func(t *testing.T) {
		created := testutil.CreateTestAccount(123456, "alice")
		require.NoError(t, repo.Create(ctx, created))
		assert.False(t, created.CreatedAt.IsZero())

		account, err := repo.GetByID(ctx, 123456)
		require.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, "alice", account.Username)
		assert.Equal(t, int64(1000), account.Balance)
		assert.Equal(t, created.InviteCode, account.InviteCode)
		assert.Nil(t, account.InviterID)

		byCode, err := repo.GetByInviteCode(ctx, created.InviteCode)
		require.NoError(t, err)
		require.NotNil(t, byCode)
		assert.Equal(t, int64(123456), byCode.ID)

		locked, err := repo.GetByIDForUpdate(ctx, 123456)
		require.NoError(t, err)
		require.NotNil(t, locked)
		assert.Equal(t, account.Balance, locked.Balance)
	})

	t.Run("duplicate id", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, testutil.CreateTestAccount(200, "bob")))

		dup := testutil.CreateTestAccount(200, "bob")
		dup.InviteCode = "DUP200"
		assert.ErrorIs(t, repo.Create(ctx, dup), models.ErrAlreadyRegistered)
	})

	t.Run("duplicate invite code", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, testutil.CreateTestAccount(300, "carol")))

		other := testutil.CreateTestAccount(301, "dave")
		other.InviteCode = testutil.InviteCodeFor(300)
		assert.ErrorIs(t, repo.Create(ctx, other), models.ErrInviteCodeTaken)
	})
}

func TestAccountRepository_DebitCredit(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, testutil.CreateTestAccountWithBalance(1, "alice", 500)))

	balance, err := repo.Debit(ctx, 1, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)

	_, err = repo.Debit(ctx, 1, 301)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	balance, err = repo.Debit(ctx, 1, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	_, err = repo.Debit(ctx, 42, 1)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)

	balance, err = repo.Credit(ctx, 1, 70, true)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)

	balance, err = repo.Credit(ctx, 1, 30, false)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	account, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(70), account.InviteEarnings)

	_, err = repo.Credit(ctx, 42, 1, false)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestAccountRepository_ConcurrentDebitCredit(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()
	const (
		initial  = int64(1000)
		amount   = int64(100)
		debits   = 30
		credits  = 5
		accounts = int64(1)
	)
	require.NoError(t, repo.Create(ctx, testutil.CreateTestAccountWithBalance(accounts, "alice", initial)))

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		negative  atomic.Bool
	)
	for i := 0; i < debits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			balance, err := repo.Debit(ctx, accounts, amount)
			if err != nil {
				assert.ErrorIs(t, err, models.ErrInsufficientFunds)
				return
			}
			if balance < 0 {
				negative.Store(true)
			}
			succeeded.Add(1)
		}()
	}
	for i := 0; i < credits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Credit(ctx, accounts, amount, false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, negative.Load(), "a debit returned a negative balance")
	// at most the initial balance plus every credit can be debited
	assert.LessOrEqual(t, succeeded.Load(), (initial+credits*amount)/amount)
	assert.GreaterOrEqual(t, succeeded.Load(), initial/amount)

	account, err := repo.GetByID(ctx, accounts)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, account.Balance, int64(0))
	assert.Equal(t, initial+credits*amount-succeeded.Load()*amount, account.Balance)
}

func TestAccountRepository_SetInviter(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()
	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, repo.Create(ctx, testutil.CreateTestAccount(id, "player")))
	}

	require.NoError(t, repo.SetInviter(ctx, 2, 1))
	assert.ErrorIs(t, repo.SetInviter(ctx, 2, 3), models.ErrAlreadyInvited)
	assert.ErrorIs(t, repo.SetInviter(ctx, 3, 3), models.ErrSelfInvite)
	assert.ErrorIs(t, repo.SetInviter(ctx, 99, 1), models.ErrAccountNotFound)

	account, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, account.InviterID)
	assert.Equal(t, int64(1), *account.InviterID)

	count, err := repo.CountInvitees(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAccountRepository_SetWalletAddress(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, testutil.CreateTestAccount(1, "alice")))

	address := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	require.NoError(t, repo.SetWalletAddress(ctx, 1, address))

	account, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, account.WalletAddress)
	assert.Equal(t, address, *account.WalletAddress)

	assert.ErrorIs(t, repo.SetWalletAddress(ctx, 2, address), models.ErrAccountNotFound)
}
