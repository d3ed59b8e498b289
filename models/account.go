package models

import (
	"time"
)

// InviteCodeLength is the fixed length of an account invite code
const InviteCodeLength = 6

// Account represents a registered player with a game balance
type Account struct {
	ID             int64     `db:"id"` // Chat platform user id
	Username       string    `db:"username"`
	Balance        int64     `db:"balance"`
	InviteCode     string    `db:"invite_code"`
	InviterID      *int64    `db:"inviter_id"`
	InviteEarnings int64     `db:"invite_earnings"`
	WalletAddress  *string   `db:"wallet_address"`
	IsHouse        bool      `db:"is_house"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// HasInviter reports whether the account was registered through another player's code
func (a *Account) HasInviter() bool {
	return a.InviterID != nil
}

// InviteStats summarizes an account's referral activity
type InviteStats struct {
	AccountID      int64
	InviteCode     string
	InviteeCount   int64
	InviteEarnings int64
}
