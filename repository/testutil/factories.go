package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"dicewager/models"
)

// InviteCodeFor derives a valid, unique invite code from an account id
func InviteCodeFor(id int64) string {
	return fmt.Sprintf("T%05d", id%100000)
}

// CreateTestAccount creates a test account with default values
func CreateTestAccount(id int64, username string) *models.Account {
	return &models.Account{
		ID:         id,
		Username:   username,
		Balance:    1000,
		InviteCode: InviteCodeFor(id),
	}
}

// CreateTestAccountWithBalance creates a test account with a specific balance
func CreateTestAccountWithBalance(id int64, username string, balance int64) *models.Account {
	account := CreateTestAccount(id, username)
	account.Balance = balance
	return account
}

// CreateTestHouseAccount creates the house account
func CreateTestHouseAccount(id int64) *models.Account {
	account := CreateTestAccountWithBalance(id, "house", 0)
	account.IsHouse = true
	return account
}

// CreateTestWager creates a pending wager with a fresh id
func CreateTestWager(creatorID int64, stake int64) *models.Wager {
	return &models.Wager{
		ID:        uuid.NewString(),
		CreatorID: creatorID,
		Stake:     stake,
		Status:    models.WagerStatusPending,
		CreatedAt: time.Now(),
	}
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(accountID int64, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		AccountID:       accountID,
		BalanceBefore:   1000,
		BalanceAfter:    900,
		ChangeAmount:    -100,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
	}
}
