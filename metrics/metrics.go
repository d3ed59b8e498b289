package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	engineOnce     sync.Once
	engineRegistry *Engine
)

// Engine holds the Prometheus collectors of the wager engine.
// A nil *Engine is valid and records nothing.
type Engine struct {
	wagers            *prometheus.CounterVec
	settlementLatency *prometheus.HistogramVec
	credits           *prometheus.CounterVec
	settlementRetries *prometheus.CounterVec
	ledgerOps         *prometheus.CounterVec
	transfers         *prometheus.CounterVec
	commandsThrottled *prometheus.CounterVec
	eventsForwarded   *prometheus.CounterVec
}

// Get returns the process-wide metrics registry, registering collectors on first use
func Get() *Engine {
	engineOnce.Do(func() {
		engineRegistry = &Engine{
			wagers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dicewager",
				Subsystem: "wagers",
				Name:      "transitions_total",
				Help:      "Wager state transitions by resulting event.",
			}, []string{"event"}),
			settlementLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "dicewager",
				Subsystem: "settlement",
				Name:      "duration_seconds",
				Help:      "Time from the final roll to a completed settlement.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"outcome"}),
			credits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dicewager",
				Subsystem: "settlement",
				Name:      "credits_total",
				Help:      "Settlement credits by kind and whether they were applied or already present.",
			}, []string{"kind", "result"}),
			settlementRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dicewager",
				Subsystem: "settlement",
				Name:      "resumes_total",
				Help:      "Resumed settlements of wagers left in resolving.",
			}, []string{"result"}),
			ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dicewager",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Standalone ledger operations by type and result.",
			}, []string{"op", "result"}),
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dicewager",
				Subsystem: "bridge",
				Name:      "transfers_total",
				Help:      "Bridge transfers by direction and final status.",
			}, []string{"direction", "status"}),
			commandsThrottled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dicewager",
				Subsystem: "bot",
				Name:      "commands_throttled_total",
				Help:      "Chat commands rejected by the per-user rate limiter.",
			}, []string{"command"}),
			eventsForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dicewager",
				Subsystem: "events",
				Name:      "forwarded_total",
				Help:      "Domain events forwarded to the external sink.",
			}, []string{"sink", "result"}),
		}
		prometheus.MustRegister(
			engineRegistry.wagers,
			engineRegistry.settlementLatency,
			engineRegistry.credits,
			engineRegistry.settlementRetries,
			engineRegistry.ledgerOps,
			engineRegistry.transfers,
			engineRegistry.commandsThrottled,
			engineRegistry.eventsForwarded,
		)
	})
	return engineRegistry
}

// WagerEvent counts a wager transition such as "created", "joined" or "cancelled"
func (m *Engine) WagerEvent(event string) {
	if m == nil {
		return
	}
	m.wagers.WithLabelValues(event).Inc()
}

// ObserveSettlement records a completed settlement
func (m *Engine) ObserveSettlement(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.wagers.WithLabelValues("completed").Inc()
	m.settlementLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// CreditApplied counts one settlement credit
func (m *Engine) CreditApplied(kind string, applied bool) {
	if m == nil {
		return
	}
	result := "applied"
	if !applied {
		result = "skipped"
	}
	m.credits.WithLabelValues(kind, result).Inc()
}

// SettlementResumed counts a replayed settlement
func (m *Engine) SettlementResumed(err error) {
	if m == nil {
		return
	}
	m.settlementRetries.WithLabelValues(resultLabel(err)).Inc()
}

// LedgerOperation counts a standalone debit or credit
func (m *Engine) LedgerOperation(op string, err error) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(op, resultLabel(err)).Inc()
}

// TransferFinished counts a bridge transfer reaching a final status
func (m *Engine) TransferFinished(direction, status string) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(direction, status).Inc()
}

// CommandThrottled counts a rate-limited chat command
func (m *Engine) CommandThrottled(command string) {
	if m == nil {
		return
	}
	m.commandsThrottled.WithLabelValues(command).Inc()
}

// EventForwarded counts an event handed to the external sink
func (m *Engine) EventForwarded(sink string, err error) {
	if m == nil {
		return
	}
	m.eventsForwarded.WithLabelValues(sink, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
