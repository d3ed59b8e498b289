package service

import (
	"errors"

	"dicewager/models"
)

// IsUserError reports whether err is a validation failure the player should see verbatim
func IsUserError(err error) bool {
	for _, target := range []error{
		models.ErrInvalidStake,
		models.ErrInsufficientFunds,
		models.ErrInvalidAmount,
		models.ErrWagerNotFound,
		models.ErrWagerNotJoinable,
		models.ErrNotAParticipant,
		models.ErrNotCreator,
		models.ErrRollSequenceComplete,
		models.ErrInvalidRoll,
		models.ErrAlreadyInvited,
		models.ErrSelfInvite,
		models.ErrAccountNotFound,
		models.ErrAlreadyRegistered,
		models.ErrInvalidInviteCode,
		models.ErrWalletNotLinked,
		models.ErrInvalidWallet,
		models.ErrTransferNotFound,
		models.ErrBridgeUnavailable,
		models.ErrDepositClaimed,
		models.ErrInvalidTxHash,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
