package bot

import (
	"errors"
	"fmt"

	"dicewager/models"
	"dicewager/service"
)

const genericErrorMessage = "Something went wrong. Please try again later."

var errorMessages = []struct {
	err     error
	message string
}{
	{models.ErrInvalidStake, "That stake is not allowed."},
	{models.ErrInsufficientFunds, "You don't have enough balance for that."},
	{models.ErrInvalidAmount, "The amount must be a positive number."},
	{models.ErrWagerNotFound, "That wager doesn't exist."},
	{models.ErrWagerNotJoinable, "That wager is no longer open."},
	{models.ErrNotAParticipant, "You are not playing in that wager."},
	{models.ErrNotCreator, "Only the player who created the wager can cancel it."},
	{models.ErrRollSequenceComplete, "You have already rolled all three dice."},
	{models.ErrInvalidRoll, "Dice values must be between 1 and 6."},
	{models.ErrAlreadyInvited, "Your inviter is already set."},
	{models.ErrSelfInvite, "You cannot use your own invite code."},
	{models.ErrAccountNotFound, "You need to `/register` with an invite code first."},
	{models.ErrAlreadyRegistered, "You are already registered."},
	{models.ErrInvalidInviteCode, "That invite code is not valid."},
	{models.ErrWalletNotLinked, "Link a wallet first with `/wallet`."},
	{models.ErrInvalidWallet, "That is not a valid wallet address."},
	{models.ErrTransferNotFound, "That transfer doesn't exist."},
	{models.ErrBridgeUnavailable, "The token bridge is unavailable right now."},
	{models.ErrDepositClaimed, "That deposit transaction was already submitted."},
	{models.ErrInvalidTxHash, "That is not a valid transaction hash."},
	{models.ErrStorageUnavailable, "The game is temporarily unavailable. Please try again shortly."},
}

// ErrorMessage maps a service error to the message shown to the player.
// Unknown errors get a generic message.
func ErrorMessage(err error) string {
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			return m.message
		}
	}
	return genericErrorMessage
}

// stakeErrorMessage spells out the configured stake rule
func stakeErrorMessage(rules service.WagerRules) string {
	return fmt.Sprintf("Stakes must be %s.", FormatStakeRule(rules))
}

// errorMessage is ErrorMessage with the stake rule filled in
func (r *commandRouter) errorMessage(err error) string {
	if errors.Is(err, models.ErrInvalidStake) {
		return stakeErrorMessage(r.rules)
	}
	return ErrorMessage(err)
}
