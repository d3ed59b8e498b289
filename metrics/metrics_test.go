package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGet_ReturnsSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}

func TestEngine_NilIsNoop(t *testing.T) {
	var m *Engine
	assert.NotPanics(t, func() {
		m.WagerEvent("created")
		m.ObserveSettlement("tie", time.Second)
		m.CreditApplied("winner_payout", true)
		m.SettlementResumed(nil)
		m.LedgerOperation("debit", errors.New("x"))
		m.TransferFinished("deposit", "completed")
		m.CommandThrottled("roll")
		m.EventForwarded("nats", nil)
	})
}

func TestEngine_CountsCredits(t *testing.T) {
	m := Get()
	before := testutil.ToFloat64(m.credits.WithLabelValues("project_fee", "skipped"))

	m.CreditApplied("project_fee", false)

	assert.Equal(t, before+1, testutil.ToFloat64(m.credits.WithLabelValues("project_fee", "skipped")))
}

func TestEngine_LedgerResultLabel(t *testing.T) {
	m := Get()
	before := testutil.ToFloat64(m.ledgerOps.WithLabelValues("credit", "error"))

	m.LedgerOperation("credit", errors.New("storage down"))

	assert.Equal(t, before+1, testutil.ToFloat64(m.ledgerOps.WithLabelValues("credit", "error")))
}
