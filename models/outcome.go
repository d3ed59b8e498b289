package models

// OutcomeKind is the tagged variant of a resolved wager
type OutcomeKind string

const (
	OutcomeCreatorWin  OutcomeKind = "creator_win"
	OutcomeOpponentWin OutcomeKind = "opponent_win"
	OutcomeTie         OutcomeKind = "tie"
)

// Outcome is the computed payout split of a wager
type Outcome struct {
	Kind           OutcomeKind
	WinnerID       *int64
	LoserID        *int64
	InviterFee     int64
	ProjectFee     int64
	WinnerPayout   int64
	CreatorRefund  int64
	OpponentRefund int64

	// FeeRecipientID receives the inviter fee: the winner's inviter, or the house
	FeeRecipientID     *int64
	FeeIsInviteEarning bool
}

// IsTie reports whether both sides were refunded
func (o *Outcome) IsTie() bool {
	return o.Kind == OutcomeTie
}

// CreditKind identifies one credit of a settlement
type CreditKind string

const (
	CreditWinnerPayout   CreditKind = "winner_payout"
	CreditInviterFee     CreditKind = "inviter_fee"
	CreditProjectFee     CreditKind = "project_fee"
	CreditCreatorRefund  CreditKind = "creator_refund"
	CreditOpponentRefund CreditKind = "opponent_refund"
)

// SettlementCredit is a single balance credit owed by a terminal wager
type SettlementCredit struct {
	WagerID         string
	Kind            CreditKind
	RecipientID     int64
	Amount          int64
	IsInviteEarning bool
}

// TransactionType maps a credit to its balance history type
func (c SettlementCredit) TransactionType() TransactionType {
	switch c.Kind {
	case CreditWinnerPayout:
		return TransactionTypeWagerWin
	case CreditInviterFee:
		if c.IsInviteEarning {
			return TransactionTypeInviteEarning
		}
		return TransactionTypeHouseFee
	case CreditProjectFee:
		return TransactionTypeHouseFee
	default:
		return TransactionTypeWagerRefund
	}
}
