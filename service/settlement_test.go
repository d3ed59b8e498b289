package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dicewager/events"
	"dicewager/models"
)

const testHouseID int64 = 1

func TestSettle(t *testing.T) {
	tests := []struct {
		name          string
		creatorScore  int
		opponentScore int
		stake         int64
		want          models.Outcome
	}{
		{
			name:          "creator wins 200",
			creatorScore:  12,
			opponentScore: 9,
			stake:         200,
			want:          models.Outcome{Kind: models.OutcomeCreatorWin, InviterFee: 14, ProjectFee: 6, WinnerPayout: 380},
		},
		{
			name:          "opponent wins 1000",
			creatorScore:  5,
			opponentScore: 17,
			stake:         1000,
			want:          models.Outcome{Kind: models.OutcomeOpponentWin, InviterFee: 70, ProjectFee: 30, WinnerPayout: 1900},
		},
		{
			name:          "minimum stake",
			creatorScore:  10,
			opponentScore: 3,
			stake:         100,
			want:          models.Outcome{Kind: models.OutcomeCreatorWin, InviterFee: 7, ProjectFee: 3, WinnerPayout: 190},
		},
		{
			name:          "fees truncate",
			creatorScore:  4,
			opponentScore: 8,
			stake:         50,
			want:          models.Outcome{Kind: models.OutcomeOpponentWin, InviterFee: 3, ProjectFee: 1, WinnerPayout: 96},
		},
		{
			name:          "tie refunds both",
			creatorScore:  11,
			opponentScore: 11,
			stake:         300,
			want:          models.Outcome{Kind: models.OutcomeTie, CreatorRefund: 300, OpponentRefund: 300},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Settle(tt.creatorScore, tt.opponentScore, tt.stake))
		})
	}
}

func TestSettle_PaysOutExactlyThePot(t *testing.T) {
	for stake := int64(1); stake <= 5000; stake += 7 {
		for _, scores := range [][2]int{{3, 18}, {18, 3}, {9, 9}} {
			o := Settle(scores[0], scores[1], stake)
			total := o.WinnerPayout + o.InviterFee + o.ProjectFee + o.CreatorRefund + o.OpponentRefund
			require.Equal(t, 2*stake, total, "stake %d scores %v", stake, scores)
			require.GreaterOrEqual(t, o.InviterFee, int64(0))
			require.GreaterOrEqual(t, o.ProjectFee, int64(0))
		}
	}
}

func resolvingWager(creatorScore, opponentScore int, stake int64) *models.Wager {
	return &models.Wager{
		ID:            "wager-1",
		CreatorID:     10,
		OpponentID:    int64Ptr(20),
		Stake:         stake,
		CreatorScore:  creatorScore,
		CreatorRolls:  models.RollsPerPlayer,
		OpponentScore: opponentScore,
		OpponentRolls: models.RollsPerPlayer,
		Status:        models.WagerStatusResolving,
	}
}

func TestCreditsFor(t *testing.T) {
	t.Run("win with inviter", func(t *testing.T) {
		w := resolvingWager(12, 9, 200)
		o := Settle(12, 9, 200)
		o.WinnerID = int64Ptr(10)
		o.LoserID = int64Ptr(20)
		o.FeeRecipientID = int64Ptr(30)
		o.FeeIsInviteEarning = true
		w.Outcome = &o

		credits := CreditsFor(w, testHouseID)
		require.Len(t, credits, 3)

		assert.Equal(t, models.CreditWinnerPayout, credits[0].Kind)
		assert.Equal(t, int64(10), credits[0].RecipientID)
		assert.Equal(t, int64(380), credits[0].Amount)

		assert.Equal(t, models.CreditInviterFee, credits[1].Kind)
		assert.Equal(t, int64(30), credits[1].RecipientID)
		assert.Equal(t, int64(14), credits[1].Amount)
		assert.True(t, credits[1].IsInviteEarning)

		assert.Equal(t, models.CreditProjectFee, credits[2].Kind)
		assert.Equal(t, testHouseID, credits[2].RecipientID)
		assert.Equal(t, int64(6), credits[2].Amount)
	})

	t.Run("win without inviter routes fee to house", func(t *testing.T) {
		w := resolvingWager(3, 9, 200)
		o := Settle(3, 9, 200)
		o.WinnerID = int64Ptr(20)
		o.LoserID = int64Ptr(10)
		w.Outcome = &o

		credits := CreditsFor(w, testHouseID)
		require.Len(t, credits, 3)
		assert.Equal(t, int64(20), credits[0].RecipientID)
		assert.Equal(t, testHouseID, credits[1].RecipientID)
		assert.False(t, credits[1].IsInviteEarning)
	})

	t.Run("tie refunds both players", func(t *testing.T) {
		w := resolvingWager(9, 9, 500)
		o := Settle(9, 9, 500)
		w.Outcome = &o

		credits := CreditsFor(w, testHouseID)
		require.Len(t, credits, 2)
		assert.Equal(t, models.CreditCreatorRefund, credits[0].Kind)
		assert.Equal(t, int64(10), credits[0].RecipientID)
		assert.Equal(t, models.CreditOpponentRefund, credits[1].Kind)
		assert.Equal(t, int64(20), credits[1].RecipientID)
		assert.Equal(t, int64(500), credits[1].Amount)
	})

	t.Run("zero fees are skipped", func(t *testing.T) {
		w := resolvingWager(9, 3, 10)
		o := Settle(9, 3, 10)
		o.WinnerID = int64Ptr(10)
		w.Outcome = &o

		credits := CreditsFor(w, testHouseID)
		require.Len(t, credits, 1)
		assert.Equal(t, int64(20), credits[0].Amount)
	})

	t.Run("no outcome", func(t *testing.T) {
		assert.Nil(t, CreditsFor(resolvingWager(1, 2, 100), testHouseID))
	})
}

func TestSettlementService_Prepare(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		inviterID     *int64
		wantRecipient int64
		wantEarning   bool
	}{
		{name: "player inviter", inviterID: int64Ptr(30), wantRecipient: 30, wantEarning: true},
		{name: "house inviter", inviterID: int64Ptr(testHouseID), wantRecipient: testHouseID, wantEarning: false},
		{name: "no inviter", inviterID: nil, wantRecipient: testHouseID, wantEarning: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repos := newTestRepos()
			svc := NewSettlementService(repos.factory, NewKeyedMutex(), testHouseID, nil)

			repos.accounts.On("GetByID", ctx, int64(20)).Return(&models.Account{ID: 20, InviterID: tt.inviterID}, nil)

			w := resolvingWager(4, 15, 200)
			outcome, err := svc.Prepare(ctx, repos.uow, w)
			require.NoError(t, err)

			assert.Equal(t, models.OutcomeOpponentWin, outcome.Kind)
			assert.Equal(t, int64(20), *outcome.WinnerID)
			assert.Equal(t, int64(10), *outcome.LoserID)
			assert.Equal(t, tt.wantRecipient, *outcome.FeeRecipientID)
			assert.Equal(t, tt.wantEarning, outcome.FeeIsInviteEarning)
		})
	}
}

func TestSettlementService_PrepareTieSkipsInviterLookup(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos()
	svc := NewSettlementService(repos.factory, NewKeyedMutex(), testHouseID, nil)

	outcome, err := svc.Prepare(ctx, repos.uow, resolvingWager(7, 7, 200))
	require.NoError(t, err)
	assert.True(t, outcome.IsTie())
	assert.Nil(t, outcome.WinnerID)
	repos.accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestSettlementService_ApplySkipsCreditsAlreadyMarked(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos()
	svc := NewSettlementService(repos.factory, NewKeyedMutex(), testHouseID, nil)

	w := resolvingWager(12, 9, 200)
	o := Settle(12, 9, 200)
	o.WinnerID = int64Ptr(10)
	o.LoserID = int64Ptr(20)
	o.FeeRecipientID = int64Ptr(testHouseID)
	w.Outcome = &o

	repos.wagers.On("GetByID", ctx, "wager-1").Return(w, nil)
	locked := *w
	repos.wagers.On("GetByIDForUpdate", ctx, "wager-1").Return(&locked, nil)

	// The payout was applied before a crash, the fees were not
	repos.credits.On("MarkApplied", ctx, mock.MatchedBy(func(c *models.SettlementCredit) bool {
		return c.Kind == models.CreditWinnerPayout
	})).Return(false, nil)
	repos.credits.On("MarkApplied", ctx, mock.MatchedBy(func(c *models.SettlementCredit) bool {
		return c.Kind != models.CreditWinnerPayout
	})).Return(true, nil)

	repos.accounts.On("Credit", ctx, testHouseID, int64(14), false).Return(int64(1014), nil)
	repos.accounts.On("Credit", ctx, testHouseID, int64(6), false).Return(int64(1020), nil)
	repos.balanceHistory.On("Record", ctx, mock.Anything).Return(nil)
	repos.wagers.On("Update", ctx, mock.MatchedBy(func(w *models.Wager) bool {
		return w.Status == models.WagerStatusCompleted && w.ResolvedAt != nil
	})).Return(nil)
	repos.history.On("Append", ctx, mock.MatchedBy(func(e *models.HistoryEntry) bool {
		return e.WagerID == "wager-1" && e.WinAmount == 380 && e.Status == models.WagerStatusCompleted
	})).Return(nil)

	settled, err := svc.Apply(ctx, "wager-1")
	require.NoError(t, err)
	assert.Equal(t, models.WagerStatusCompleted, settled.Status)

	repos.accounts.AssertNotCalled(t, "Credit", ctx, int64(10), int64(380), false)
	repos.accounts.AssertNumberOfCalls(t, "Credit", 2)

	var settledEvents int
	for _, e := range repos.uow.PublishedEvents() {
		if _, ok := e.(events.WagerSettledEvent); ok {
			settledEvents++
		}
	}
	assert.Equal(t, 1, settledEvents)
}

func TestSettlementService_ApplyCompletedIsNoop(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos()
	svc := NewSettlementService(repos.factory, NewKeyedMutex(), testHouseID, nil)

	w := resolvingWager(12, 9, 200)
	w.Status = models.WagerStatusCompleted
	repos.wagers.On("GetByID", ctx, "wager-1").Return(w, nil)

	got, err := svc.Apply(ctx, "wager-1")
	require.NoError(t, err)
	assert.Same(t, w, got)
	repos.credits.AssertNotCalled(t, "MarkApplied", mock.Anything, mock.Anything)
}

func TestSettlementService_ApplyRejectsOpenWager(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos()
	svc := NewSettlementService(repos.factory, NewKeyedMutex(), testHouseID, nil)

	w := resolvingWager(12, 9, 200)
	w.Status = models.WagerStatusPending
	repos.wagers.On("GetByID", ctx, "wager-1").Return(w, nil)

	_, err := svc.Apply(ctx, "wager-1")
	assert.Error(t, err)
}

func TestSettlementService_ApplyUnknownWager(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos()
	svc := NewSettlementService(repos.factory, NewKeyedMutex(), testHouseID, nil)

	repos.wagers.On("GetByID", ctx, "missing").Return(nil, nil)

	_, err := svc.Apply(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrWagerNotFound)
}
