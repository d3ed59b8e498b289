package models

import "errors"

// Domain errors. Callers match them with errors.Is.
var (
	ErrInvalidStake         = errors.New("invalid stake")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrWagerNotFound        = errors.New("wager not found")
	ErrWagerNotJoinable     = errors.New("wager is not joinable")
	ErrNotAParticipant      = errors.New("not a participant in this wager")
	ErrNotCreator           = errors.New("only the wager creator can do this")
	ErrRollSequenceComplete = errors.New("all dice already rolled")
	ErrInvalidRoll          = errors.New("die value must be between 1 and 6")
	ErrAlreadyInvited       = errors.New("account already has an inviter")
	ErrSelfInvite           = errors.New("an account cannot invite itself")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAlreadyRegistered    = errors.New("account already registered")
	ErrInvalidInviteCode    = errors.New("invalid invite code")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrWalletNotLinked      = errors.New("no wallet linked to account")
	ErrInvalidWallet        = errors.New("invalid wallet address")
	ErrTransferNotFound     = errors.New("transfer not found")
	ErrBridgeUnavailable    = errors.New("token bridge unavailable")
	ErrInviteCodeTaken      = errors.New("invite code already in use")
	ErrDepositClaimed       = errors.New("deposit transaction already claimed")
	ErrInvalidTxHash        = errors.New("invalid transaction hash")
)
