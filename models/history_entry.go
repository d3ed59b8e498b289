package models

import (
	"time"
)

// HistoryEntry is an immutable snapshot of a terminal wager
type HistoryEntry struct {
	ID             int64       `db:"id"`
	WagerID        string      `db:"wager_id"`
	CreatorID      int64       `db:"creator_id"`
	OpponentID     *int64      `db:"opponent_id"`
	Stake          int64       `db:"stake"`
	CreatorScore   int         `db:"creator_score"`
	OpponentScore  int         `db:"opponent_score"`
	WinnerID       *int64      `db:"winner_id"`
	WinAmount      int64       `db:"win_amount"`
	InviterFee     int64       `db:"inviter_fee"`
	ProjectFee     int64       `db:"project_fee"`
	FeeRecipientID *int64      `db:"fee_recipient_id"`
	Status         WagerStatus `db:"status"`
	WagerCreatedAt time.Time   `db:"wager_created_at"`
	RecordedAt     time.Time   `db:"recorded_at"`
}

// NewHistoryEntry snapshots a wager that has reached a terminal status
func NewHistoryEntry(w *Wager) *HistoryEntry {
	entry := &HistoryEntry{
		WagerID:        w.ID,
		CreatorID:      w.CreatorID,
		OpponentID:     w.OpponentID,
		Stake:          w.Stake,
		CreatorScore:   w.CreatorScore,
		OpponentScore:  w.OpponentScore,
		Status:         w.Status,
		WagerCreatedAt: w.CreatedAt,
	}
	if o := w.Outcome; o != nil {
		entry.WinnerID = o.WinnerID
		entry.WinAmount = o.WinnerPayout
		entry.InviterFee = o.InviterFee
		entry.ProjectFee = o.ProjectFee
		entry.FeeRecipientID = o.FeeRecipientID
	}
	return entry
}

// HistoryPage is one page of an account's history
type HistoryPage struct {
	Entries []*HistoryEntry
	Limit   int
	Offset  int
	HasMore bool
}

// WagerReceipt is the recorded snapshot of a terminal wager with the credits applied for it
type WagerReceipt struct {
	Entry   *HistoryEntry
	Credits []*SettlementCredit
}
