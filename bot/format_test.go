package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dicewager/models"
	"dicewager/service"
)

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-2500, "-2,500"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatBalance(tt.input))
	}
}

func TestFormatDiscordTimestamp(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	assert.Equal(t, "<t:1700000000:R>", FormatDiscordTimestamp(ts, "R"))
}

func TestFormatOutcome_Tie(t *testing.T) {
	w := &models.Wager{
		Stake:         400,
		CreatorScore:  11,
		OpponentScore: 11,
		Outcome:       &models.Outcome{Kind: models.OutcomeTie, CreatorRefund: 400, OpponentRefund: 400},
	}
	assert.Equal(t, "It's a tie at 11! Both stakes of **400** were refunded.", FormatOutcome(w))
	assert.Empty(t, FormatOutcome(&models.Wager{}))
}

func TestFormatRoll_Progress(t *testing.T) {
	opponent := int64(9)

	tests := []struct {
		name     string
		result   *models.RollResult
		contains string
	}{
		{
			name: "mid sequence",
			result: &models.RollResult{
				Session: models.RollSession{DiceThrown: 1, Total: 4},
				Value:   4,
				Wager:   &models.Wager{Status: models.WagerStatusPending},
			},
			contains: "(1/3, total 4).",
		},
		{
			name: "done without opponent",
			result: &models.RollResult{
				Session: models.RollSession{DiceThrown: 3, Total: 10, Complete: true},
				Value:   2,
				Wager:   &models.Wager{Status: models.WagerStatusPending},
			},
			contains: "Waiting for an opponent to join.",
		},
		{
			name: "done with opponent still rolling",
			result: &models.RollResult{
				Session: models.RollSession{DiceThrown: 3, Total: 10, Complete: true},
				Value:   2,
				Wager:   &models.Wager{OpponentID: &opponent, Status: models.WagerStatusAwaitingOpponentRoll},
			},
			contains: "Waiting for your opponent to roll.",
		},
		{
			name: "settlement unfinished",
			result: &models.RollResult{
				Session: models.RollSession{DiceThrown: 3, Total: 10, Complete: true},
				Value:   2,
				Wager:   &models.Wager{OpponentID: &opponent, Status: models.WagerStatusResolving},
			},
			contains: "The payout is being finalized.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, FormatRoll(tt.result), tt.contains)
		})
	}
}

func TestFormatHistoryPage_Views(t *testing.T) {
	const me int64 = 1
	other := int64(2)
	recorded := time.Unix(1700000000, 0)

	page := &models.HistoryPage{
		Entries: []*models.HistoryEntry{
			{WagerID: "lost", CreatorID: me, OpponentID: &other, Stake: 300, CreatorScore: 5, OpponentScore: 15, WinnerID: &other, Status: models.WagerStatusCompleted, RecordedAt: recorded},
			{WagerID: "tie", CreatorID: me, OpponentID: &other, Stake: 100, CreatorScore: 9, OpponentScore: 9, Status: models.WagerStatusCompleted, RecordedAt: recorded},
			{WagerID: "gone", CreatorID: me, Stake: 200, Status: models.WagerStatusCancelled, RecordedAt: recorded},
		},
		Limit: 5,
	}

	out := FormatHistoryPage(me, page)

	assert.Contains(t, out, "`lost` lost 5 to 15, -300")
	assert.Contains(t, out, "`tie` tie 9 to 9, stake 100")
	assert.Contains(t, out, "`gone` cancelled, stake 200 refunded")
	assert.Contains(t, out, "<t:1700000000:d>")
	assert.NotContains(t, out, "more with")
}

func TestFormatStakeRule(t *testing.T) {
	assert.Equal(t, "a multiple of 100 between 100 and 1,000", FormatStakeRule(testRules))
	assert.Equal(t, "between 1 and 10,000", FormatStakeRule(service.WagerRules{StakeUnit: 1, MinStake: 1, MaxStake: 10000}))
}

func TestFormatTransferList_Empty(t *testing.T) {
	assert.Equal(t, "You have no deposits or withdrawals yet.", FormatTransferList(nil))
}
