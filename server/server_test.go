package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dicewager/models"
	"dicewager/service"
)

type fakeHealth struct {
	err error
}

func (f fakeHealth) Health(context.Context) error {
	return f.err
}

type apiMocks struct {
	users   *service.MockUserService
	ledger  *service.MockLedgerService
	wagers  *service.MockWagerRegistry
	history *service.MockHistoryService
	bridge  *service.MockBridgeService
}

func newTestAPI(health error) (http.Handler, *apiMocks) {
	m := &apiMocks{
		users:   new(service.MockUserService),
		ledger:  new(service.MockLedgerService),
		wagers:  new(service.MockWagerRegistry),
		history: new(service.MockHistoryService),
		bridge:  new(service.MockBridgeService),
	}
	api := &API{
		Users:   m.users,
		Ledger:  m.ledger,
		Wagers:  m.wagers,
		History: m.history,
		Bridge:  m.bridge,
		Health:  fakeHealth{err: health},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "# metrics")
		}),
	}
	return api.Router(), m
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	h, _ := newTestAPI(nil)
	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	h, _ = newTestAPI(errors.New("db down"))
	rec = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	h, _ := newTestAPI(nil)
	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestRegister(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		h, m := newTestAPI(nil)
		m.users.On("Register", mock.Anything, int64(55), "bob", "ABC123").Return(&models.Account{
			ID:         55,
			Username:   "bob",
			Balance:    1000,
			InviteCode: "QWE456",
		}, nil)

		rec := do(t, h, http.MethodPost, "/v1/accounts", `{"account_id":55,"username":"bob","invite_code":"ABC123"}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, float64(1000), body["balance"])
		assert.Equal(t, "QWE456", body["invite_code"])
		m.users.AssertExpectations(t)
	})

	t.Run("conflict", func(t *testing.T) {
		h, m := newTestAPI(nil)
		m.users.On("Register", mock.Anything, int64(55), "bob", "ABC123").
			Return(nil, fmt.Errorf("failed to register: %w", models.ErrAlreadyRegistered))

		rec := do(t, h, http.MethodPost, "/v1/accounts", `{"account_id":55,"username":"bob","invite_code":"ABC123"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("bad invite code", func(t *testing.T) {
		h, m := newTestAPI(nil)
		m.users.On("Register", mock.Anything, int64(55), "bob", "NOPE").Return(nil, models.ErrInvalidInviteCode)

		rec := do(t, h, http.MethodPost, "/v1/accounts", `{"account_id":55,"username":"bob","invite_code":"NOPE"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, models.ErrInvalidInviteCode.Error(), decode(t, rec)["error"])
	})

	t.Run("malformed body", func(t *testing.T) {
		h, m := newTestAPI(nil)
		rec := do(t, h, http.MethodPost, "/v1/accounts", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, h, http.MethodPost, "/v1/accounts", `{"account_id":0}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		m.users.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBalance(t *testing.T) {
	h, m := newTestAPI(nil)
	m.ledger.On("GetBalance", mock.Anything, int64(7)).Return(int64(1180), nil)
	m.ledger.On("GetBalance", mock.Anything, int64(8)).Return(int64(0), models.ErrAccountNotFound)
	m.ledger.On("GetBalance", mock.Anything, int64(9)).Return(int64(0), models.ErrStorageUnavailable)

	rec := do(t, h, http.MethodGet, "/v1/accounts/7/balance", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1180), decode(t, rec)["balance"])

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/accounts/8/balance", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/v1/accounts/9/balance", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/accounts/abc/balance", "").Code)
}

func TestHistory(t *testing.T) {
	h, m := newTestAPI(nil)
	cancelled := models.WagerStatusCancelled
	m.history.On("QueryByAccount", mock.Anything, int64(7), &cancelled, historyPageSize, 2*historyPageSize).Return(&models.HistoryPage{
		Entries: []*models.HistoryEntry{{WagerID: "w-1", CreatorID: 7, Stake: 100, Status: models.WagerStatusCancelled}},
		Limit:   historyPageSize,
		Offset:  2 * historyPageSize,
	}, nil)

	rec := do(t, h, http.MethodGet, "/v1/accounts/7/history?status=cancelled&page=3", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(3), body["page"])
	assert.Equal(t, false, body["has_more"])
	assert.Len(t, body["entries"], 1)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/accounts/7/history?status=pending", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/accounts/7/history?page=0", "").Code)
}

func TestGetWager(t *testing.T) {
	h, m := newTestAPI(nil)
	winner := int64(7)
	m.wagers.On("Get", mock.Anything, "w-1").Return(&models.Wager{
		ID:        "w-1",
		CreatorID: 7,
		Stake:     200,
		Status:    models.WagerStatusCompleted,
		Outcome:   &models.Outcome{Kind: models.OutcomeCreatorWin, WinnerID: &winner, WinnerPayout: 380, InviterFee: 14, ProjectFee: 6},
	}, nil)
	m.wagers.On("Get", mock.Anything, "missing").Return(nil, models.ErrWagerNotFound)

	rec := do(t, h, http.MethodGet, "/v1/wagers/w-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	outcome := decode(t, rec)["outcome"].(map[string]any)
	assert.Equal(t, "creator_win", outcome["kind"])
	assert.Equal(t, float64(380), outcome["winner_payout"])

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/wagers/missing", "").Code)
}

func TestListOpenWagers(t *testing.T) {
	h, m := newTestAPI(nil)
	m.wagers.On("ListOpen", mock.Anything, 5).Return([]*models.Wager{
		{ID: "w-1", CreatorID: 7, Stake: 100, Status: models.WagerStatusPending},
	}, nil)
	m.wagers.On("ListOpen", mock.Anything, 20).Return(nil, errors.New("boom"))

	rec := do(t, h, http.MethodGet, "/v1/wagers?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "w-1", out[0]["id"])

	rec = do(t, h, http.MethodGet, "/v1/wagers", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode(t, rec)["error"])

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/wagers?limit=500", "").Code)
}

func TestWagerReceipt(t *testing.T) {
	h, m := newTestAPI(nil)
	winner := int64(7)
	house := int64(1)
	m.history.On("Receipt", mock.Anything, "w-1").Return(&models.WagerReceipt{
		Entry: &models.HistoryEntry{
			WagerID: "w-1", CreatorID: 7, Stake: 200, WinnerID: &winner, WinAmount: 380,
			InviterFee: 14, ProjectFee: 6, FeeRecipientID: &house, Status: models.WagerStatusCompleted,
		},
		Credits: []*models.SettlementCredit{
			{WagerID: "w-1", Kind: models.CreditWinnerPayout, RecipientID: 7, Amount: 380},
			{WagerID: "w-1", Kind: models.CreditInviterFee, RecipientID: 1, Amount: 14},
		},
	}, nil)
	m.history.On("Receipt", mock.Anything, "abc").Return(nil, models.ErrWagerNotFound)

	rec := do(t, h, http.MethodGet, "/v1/wagers/w-1/receipt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "w-1", body["wager_id"])
	assert.Equal(t, float64(14), body["inviter_fee"])
	credits := body["credits"].([]any)
	require.Len(t, credits, 2)
	assert.Equal(t, "winner_payout", credits[0].(map[string]any)["kind"])

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/wagers/abc/receipt", "").Code)
}

func TestLedger(t *testing.T) {
	h, m := newTestAPI(nil)
	related := "w-1"
	m.ledger.On("GetBalanceHistory", mock.Anything, int64(7), 20).Return([]*models.BalanceHistory{
		{AccountID: 7, BalanceBefore: 1000, BalanceAfter: 800, ChangeAmount: -200, TransactionType: models.TransactionTypeWagerStake, RelatedID: &related},
	}, nil)

	rec := do(t, h, http.MethodGet, "/v1/accounts/7/ledger", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, float64(-200), out[0]["change_amount"])
	assert.Equal(t, "w-1", out[0]["related_id"])

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/accounts/7/ledger?limit=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/accounts/x/ledger", "").Code)
}

func TestTransfers(t *testing.T) {
	h, m := newTestAPI(nil)
	m.bridge.On("ListTransfers", mock.Anything, int64(7), 10).Return([]*models.Transfer{
		{ID: "t-1", AccountID: 7, Direction: models.TransferDirectionWithdraw, Amount: 300, TokenAmount: decimal.NewFromInt(3000), Status: models.TransferStatusPending},
	}, nil)

	rec := do(t, h, http.MethodGet, "/v1/accounts/7/transfers?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "withdraw", out[0]["direction"])
	assert.Equal(t, "3000", out[0]["token_amount"])
	assert.Equal(t, "pending", out[0]["status"])

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/accounts/7/transfers?limit=51", "").Code)
}

func TestTransfersBridgeDisabled(t *testing.T) {
	api := &API{Health: fakeHealth{}}
	rec := do(t, api.Router(), http.MethodGet, "/v1/accounts/7/transfers", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
