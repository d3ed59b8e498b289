package service

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// SettlementWorker retries settlements and deposit confirmations interrupted by a failure or restart
type SettlementWorker struct {
	settlement SettlementService
	bridge     BridgeService
	interval   time.Duration
}

// NewSettlementWorker creates a new settlement worker. bridge may be nil.
func NewSettlementWorker(settlement SettlementService, bridge BridgeService, interval time.Duration) *SettlementWorker {
	return &SettlementWorker{
		settlement: settlement,
		bridge:     bridge,
		interval:   interval,
	}
}

// Start runs one pass immediately and then one per interval until ctx ends or the returned func is called.
// The returned func blocks until the loop has exited.
func (w *SettlementWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	done := make(chan struct{})

	w.RunOnce(ctx)

	go func() {
		defer close(done)
		log.WithField("interval", w.interval).Info("Settlement worker started")

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Settlement worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Settlement worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stopChan) })
		<-done
	}
}

// RunOnce replays every wager left in resolving and re-requests pending deposits
func (w *SettlementWorker) RunOnce(ctx context.Context) int {
	settled, err := w.settlement.ResumePending(ctx)
	if err != nil {
		log.Errorf("Error resuming settlements: %v", err)
	}
	if settled > 0 {
		log.WithField("settled", settled).Info("Resumed interrupted settlements")
	}

	if w.bridge != nil {
		if resumed, err := w.bridge.ResumePending(ctx); err != nil {
			log.Errorf("Failed to resume pending deposits: %v", err)
		} else if resumed > 0 {
			log.WithField("count", resumed).Info("Resumed pending deposits")
		}
	}
	return settled
}
