package server

import (
	"time"

	"dicewager/models"
)

type accountResponse struct {
	AccountID  int64     `json:"account_id"`
	Username   string    `json:"username"`
	Balance    int64     `json:"balance"`
	InviteCode string    `json:"invite_code"`
	InviterID  *int64    `json:"inviter_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func newAccountResponse(a *models.Account) accountResponse {
	return accountResponse{
		AccountID:  a.ID,
		Username:   a.Username,
		Balance:    a.Balance,
		InviteCode: a.InviteCode,
		InviterID:  a.InviterID,
		CreatedAt:  a.CreatedAt,
	}
}

type balanceResponse struct {
	AccountID int64 `json:"account_id"`
	Balance   int64 `json:"balance"`
}

type outcomeResponse struct {
	Kind         models.OutcomeKind `json:"kind"`
	WinnerID     *int64             `json:"winner_id,omitempty"`
	WinnerPayout int64              `json:"winner_payout"`
	InviterFee   int64              `json:"inviter_fee"`
	ProjectFee   int64              `json:"project_fee"`
}

type wagerResponse struct {
	ID            string             `json:"id"`
	CreatorID     int64              `json:"creator_id"`
	OpponentID    *int64             `json:"opponent_id,omitempty"`
	Stake         int64              `json:"stake"`
	Status        models.WagerStatus `json:"status"`
	CreatorScore  int                `json:"creator_score"`
	CreatorRolls  int                `json:"creator_rolls"`
	OpponentScore int                `json:"opponent_score"`
	OpponentRolls int                `json:"opponent_rolls"`
	Outcome       *outcomeResponse   `json:"outcome,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	ResolvedAt    *time.Time         `json:"resolved_at,omitempty"`
}

func newWagerResponse(w *models.Wager) wagerResponse {
	resp := wagerResponse{
		ID:            w.ID,
		CreatorID:     w.CreatorID,
		OpponentID:    w.OpponentID,
		Stake:         w.Stake,
		Status:        w.Status,
		CreatorScore:  w.CreatorScore,
		CreatorRolls:  w.CreatorRolls,
		OpponentScore: w.OpponentScore,
		OpponentRolls: w.OpponentRolls,
		CreatedAt:     w.CreatedAt,
		ResolvedAt:    w.ResolvedAt,
	}
	if o := w.Outcome; o != nil {
		resp.Outcome = &outcomeResponse{
			Kind:         o.Kind,
			WinnerID:     o.WinnerID,
			WinnerPayout: o.WinnerPayout,
			InviterFee:   o.InviterFee,
			ProjectFee:   o.ProjectFee,
		}
	}
	return resp
}

type historyEntryResponse struct {
	WagerID       string             `json:"wager_id"`
	CreatorID     int64              `json:"creator_id"`
	OpponentID    *int64             `json:"opponent_id,omitempty"`
	Stake         int64              `json:"stake"`
	CreatorScore  int                `json:"creator_score"`
	OpponentScore int                `json:"opponent_score"`
	WinnerID      *int64             `json:"winner_id,omitempty"`
	WinAmount     int64              `json:"win_amount"`
	Status        models.WagerStatus `json:"status"`
	RecordedAt    time.Time          `json:"recorded_at"`
}

type historyResponse struct {
	Page    int                    `json:"page"`
	HasMore bool                   `json:"has_more"`
	Entries []historyEntryResponse `json:"entries"`
}

func newHistoryResponse(page int, p *models.HistoryPage) historyResponse {
	resp := historyResponse{
		Page:    page,
		HasMore: p.HasMore,
		Entries: make([]historyEntryResponse, 0, len(p.Entries)),
	}
	for _, e := range p.Entries {
		resp.Entries = append(resp.Entries, newHistoryEntryResponse(e))
	}
	return resp
}

func newHistoryEntryResponse(e *models.HistoryEntry) historyEntryResponse {
	return historyEntryResponse{
		WagerID:       e.WagerID,
		CreatorID:     e.CreatorID,
		OpponentID:    e.OpponentID,
		Stake:         e.Stake,
		CreatorScore:  e.CreatorScore,
		OpponentScore: e.OpponentScore,
		WinnerID:      e.WinnerID,
		WinAmount:     e.WinAmount,
		Status:        e.Status,
		RecordedAt:    e.RecordedAt,
	}
}

type creditResponse struct {
	Kind            models.CreditKind `json:"kind"`
	RecipientID     int64             `json:"recipient_id"`
	Amount          int64             `json:"amount"`
	IsInviteEarning bool              `json:"is_invite_earning"`
}

type receiptResponse struct {
	historyEntryResponse
	InviterFee     int64            `json:"inviter_fee"`
	ProjectFee     int64            `json:"project_fee"`
	FeeRecipientID *int64           `json:"fee_recipient_id,omitempty"`
	Credits        []creditResponse `json:"credits"`
}

func newReceiptResponse(r *models.WagerReceipt) receiptResponse {
	resp := receiptResponse{
		historyEntryResponse: newHistoryEntryResponse(r.Entry),
		InviterFee:           r.Entry.InviterFee,
		ProjectFee:           r.Entry.ProjectFee,
		FeeRecipientID:       r.Entry.FeeRecipientID,
		Credits:              make([]creditResponse, 0, len(r.Credits)),
	}
	for _, c := range r.Credits {
		resp.Credits = append(resp.Credits, creditResponse{
			Kind:            c.Kind,
			RecipientID:     c.RecipientID,
			Amount:          c.Amount,
			IsInviteEarning: c.IsInviteEarning,
		})
	}
	return resp
}

type ledgerEntryResponse struct {
	BalanceBefore   int64                  `json:"balance_before"`
	BalanceAfter    int64                  `json:"balance_after"`
	ChangeAmount    int64                  `json:"change_amount"`
	TransactionType models.TransactionType `json:"transaction_type"`
	RelatedID       *string                `json:"related_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

func newLedgerResponse(history []*models.BalanceHistory) []ledgerEntryResponse {
	out := make([]ledgerEntryResponse, 0, len(history))
	for _, h := range history {
		out = append(out, ledgerEntryResponse{
			BalanceBefore:   h.BalanceBefore,
			BalanceAfter:    h.BalanceAfter,
			ChangeAmount:    h.ChangeAmount,
			TransactionType: h.TransactionType,
			RelatedID:       h.RelatedID,
			CreatedAt:       h.CreatedAt,
		})
	}
	return out
}

type transferResponse struct {
	ID            string                   `json:"id"`
	Direction     models.TransferDirection `json:"direction"`
	Amount        int64                    `json:"amount"`
	TokenAmount   string                   `json:"token_amount"`
	TxHash        *string                  `json:"tx_hash,omitempty"`
	Status        models.TransferStatus    `json:"status"`
	FailureReason *string                  `json:"failure_reason,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

func newTransfersResponse(transfers []*models.Transfer) []transferResponse {
	out := make([]transferResponse, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, transferResponse{
			ID:            t.ID,
			Direction:     t.Direction,
			Amount:        t.Amount,
			TokenAmount:   t.TokenAmount.String(),
			TxHash:        t.TxHash,
			Status:        t.Status,
			FailureReason: t.FailureReason,
			CreatedAt:     t.CreatedAt,
		})
	}
	return out
}
