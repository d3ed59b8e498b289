package models

import (
	"time"
)

// RollsPerPlayer is the number of dice each participant throws in a wager
const RollsPerPlayer = 3

// WagerStatus represents the state of a wager
type WagerStatus string

const (
	WagerStatusPending              WagerStatus = "pending"
	WagerStatusAwaitingOpponentRoll WagerStatus = "awaiting_opponent_roll"
	WagerStatusResolving            WagerStatus = "resolving"
	WagerStatusCompleted            WagerStatus = "completed"
	WagerStatusCancelled            WagerStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible
func (s WagerStatus) IsTerminal() bool {
	return s == WagerStatusCompleted || s == WagerStatusCancelled
}

// IsOpen reports whether the wager still accepts joins, rolls and cancellation
func (s WagerStatus) IsOpen() bool {
	return s == WagerStatusPending || s == WagerStatusAwaitingOpponentRoll
}

// Wager represents a creator-vs-opponent dice contest with an escrowed stake
type Wager struct {
	ID            string      `db:"id"`
	CreatorID     int64       `db:"creator_id"`
	OpponentID    *int64      `db:"opponent_id"`
	Stake         int64       `db:"stake"`
	CreatorScore  int         `db:"creator_score"`
	CreatorRolls  int         `db:"creator_rolls"`
	OpponentScore int         `db:"opponent_score"`
	OpponentRolls int         `db:"opponent_rolls"`
	Status        WagerStatus `db:"status"`
	Outcome       *Outcome    `db:"-"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
	ResolvedAt    *time.Time  `db:"resolved_at"`
}

// IsParticipant checks if an account is involved in the wager
func (w *Wager) IsParticipant(accountID int64) bool {
	return w.CreatorID == accountID || (w.OpponentID != nil && *w.OpponentID == accountID)
}

// HasOpponent reports whether an opponent has joined and committed their stake
func (w *Wager) HasOpponent() bool {
	return w.OpponentID != nil
}

// RollSession returns the roll progress of a participant
func (w *Wager) RollSession(accountID int64) RollSession {
	session := RollSession{WagerID: w.ID, AccountID: accountID}
	switch {
	case w.CreatorID == accountID:
		session.DiceThrown = w.CreatorRolls
		session.Total = w.CreatorScore
	case w.OpponentID != nil && *w.OpponentID == accountID:
		session.DiceThrown = w.OpponentRolls
		session.Total = w.OpponentScore
	}
	session.Complete = session.DiceThrown >= RollsPerPlayer
	return session
}

// BothRolled reports whether both participants have thrown all their dice
func (w *Wager) BothRolled() bool {
	return w.HasOpponent() && w.CreatorRolls >= RollsPerPlayer && w.OpponentRolls >= RollsPerPlayer
}

// RollSession is the roll progress of one participant in one wager
type RollSession struct {
	WagerID    string
	AccountID  int64
	DiceThrown int
	Total      int
	Complete   bool
}

// RollResult is returned after a die value has been recorded
type RollResult struct {
	Session RollSession
	Value   int
	Wager   *Wager
	// Settled is true when this roll completed the wager and every credit was applied
	Settled bool
}
