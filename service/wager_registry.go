package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"dicewager/events"
	"dicewager/metrics"
	"dicewager/models"
)

const maxOpenWagersListed = 50

type wagerRegistry struct {
	uowFactory UnitOfWorkFactory
	settlement SettlementService
	locks      *KeyedMutex
	rules      WagerRules
	metrics    *metrics.Engine
	now        func() time.Time
	newID      func() string
}

// NewWagerRegistry creates the registry that owns the wager state machine
func NewWagerRegistry(uowFactory UnitOfWorkFactory, settlement SettlementService, locks *KeyedMutex, rules WagerRules, m *metrics.Engine) WagerRegistry {
	return &wagerRegistry{
		uowFactory: uowFactory,
		settlement: settlement,
		locks:      locks,
		rules:      rules,
		metrics:    m,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Create escrows the creator's stake and opens a pending wager
func (r *wagerRegistry) Create(ctx context.Context, creatorID int64, stake int64) (*models.Wager, error) {
	if err := r.rules.ValidateStake(stake); err != nil {
		return nil, err
	}

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := r.now()
	wager := &models.Wager{
		ID:        r.newID(),
		CreatorID: creatorID,
		Stake:     stake,
		Status:    models.WagerStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	related := relatedWager(wager.ID, map[string]any{"role": "creator"})
	if _, err := debitAccount(ctx, uow, creatorID, stake, models.TransactionTypeWagerStake, related); err != nil {
		return nil, fmt.Errorf("failed to escrow creator stake: %w", err)
	}

	if err := uow.WagerRepository().Create(ctx, wager); err != nil {
		return nil, fmt.Errorf("failed to create wager: %w", err)
	}

	uow.EventBus().Publish(events.WagerCreatedEvent{
		WagerID:   wager.ID,
		CreatorID: creatorID,
		Stake:     stake,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.WagerEvent("created")
	log.WithFields(log.Fields{
		"wagerID":   wager.ID,
		"creatorID": creatorID,
		"stake":     stake,
	}).Info("Wager created")

	return wager, nil
}

// validWagerID reports whether id can name a wager at all
func validWagerID(id string) bool {
	return uuid.Validate(id) == nil
}

// Join escrows the opponent's stake and attaches them to the wager
func (r *wagerRegistry) Join(ctx context.Context, wagerID string, opponentID int64) (*models.Wager, error) {
	if !validWagerID(wagerID) {
		return nil, models.ErrWagerNotFound
	}
	unlock := r.locks.Lock(wagerID)
	defer unlock()

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := uow.WagerRepository().GetByIDForUpdate(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return nil, models.ErrWagerNotFound
	}

	switch {
	case !wager.Status.IsOpen():
		return nil, fmt.Errorf("%w: wager is %s", models.ErrWagerNotJoinable, wager.Status)
	case wager.HasOpponent():
		return nil, fmt.Errorf("%w: wager already has an opponent", models.ErrWagerNotJoinable)
	case wager.CreatorID == opponentID:
		return nil, fmt.Errorf("%w: cannot join your own wager", models.ErrWagerNotJoinable)
	}

	related := relatedWager(wager.ID, map[string]any{"role": "opponent"})
	if _, err := debitAccount(ctx, uow, opponentID, wager.Stake, models.TransactionTypeWagerStake, related); err != nil {
		return nil, fmt.Errorf("failed to escrow opponent stake: %w", err)
	}

	wager.OpponentID = &opponentID
	wager.UpdatedAt = r.now()
	if err := uow.WagerRepository().Update(ctx, wager); err != nil {
		return nil, fmt.Errorf("failed to update wager: %w", err)
	}

	uow.EventBus().Publish(events.WagerJoinedEvent{
		WagerID:    wager.ID,
		CreatorID:  wager.CreatorID,
		OpponentID: opponentID,
		Stake:      wager.Stake,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.WagerEvent("joined")
	log.WithFields(log.Fields{
		"wagerID":    wager.ID,
		"opponentID": opponentID,
	}).Info("Wager joined")

	return wager, nil
}

// SubmitRoll records one die value for a participant.
// The roll that completes both sequences moves the wager to resolving and settles it
// before the wager lock is released.
func (r *wagerRegistry) SubmitRoll(ctx context.Context, wagerID string, playerID int64, value int) (*models.RollResult, error) {
	if value < 1 || value > 6 {
		return nil, models.ErrInvalidRoll
	}
	if !validWagerID(wagerID) {
		return nil, models.ErrWagerNotFound
	}

	unlock := r.locks.Lock(wagerID)
	defer unlock()

	wager, err := r.recordRoll(ctx, wagerID, playerID, value)
	if err != nil {
		return nil, err
	}

	result := &models.RollResult{
		Session: wager.RollSession(playerID),
		Value:   value,
		Wager:   wager,
	}

	if wager.Status != models.WagerStatusResolving {
		return result, nil
	}

	settled, err := r.settlement.Apply(ctx, wager.ID)
	if err != nil {
		// The outcome is persisted; the settlement worker finishes the remaining credits
		log.WithFields(log.Fields{
			"wagerID": wager.ID,
			"error":   err,
		}).Error("Settlement incomplete, left for retry")
		return result, nil
	}

	result.Wager = settled
	result.Settled = true
	return result, nil
}

// recordRoll adds the die value and, when both players are done, persists the outcome
func (r *wagerRegistry) recordRoll(ctx context.Context, wagerID string, playerID int64, value int) (*models.Wager, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := uow.WagerRepository().GetByIDForUpdate(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return nil, models.ErrWagerNotFound
	}
	if !wager.IsParticipant(playerID) {
		return nil, models.ErrNotAParticipant
	}
	if wager.RollSession(playerID).Complete {
		return nil, models.ErrRollSequenceComplete
	}
	if !wager.Status.IsOpen() {
		return nil, fmt.Errorf("%w: wager is %s", models.ErrWagerNotJoinable, wager.Status)
	}

	if playerID == wager.CreatorID {
		wager.CreatorScore += value
		wager.CreatorRolls++
	} else {
		wager.OpponentScore += value
		wager.OpponentRolls++
	}
	wager.UpdatedAt = r.now()

	switch {
	case wager.BothRolled():
		outcome, err := r.settlement.Prepare(ctx, uow, wager)
		if err != nil {
			return nil, fmt.Errorf("failed to compute outcome: %w", err)
		}
		wager.Outcome = outcome
		wager.Status = models.WagerStatusResolving
	case wager.CreatorRolls >= models.RollsPerPlayer:
		wager.Status = models.WagerStatusAwaitingOpponentRoll
	}

	if err := uow.WagerRepository().Update(ctx, wager); err != nil {
		return nil, fmt.Errorf("failed to update wager: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"wagerID":  wager.ID,
		"playerID": playerID,
		"value":    value,
		"status":   wager.Status,
	}).Debug("Roll recorded")

	return wager, nil
}

// Cancel refunds every committed stake of an open wager and closes it
func (r *wagerRegistry) Cancel(ctx context.Context, wagerID string, requesterID int64) (*models.Wager, error) {
	if !validWagerID(wagerID) {
		return nil, models.ErrWagerNotFound
	}
	unlock := r.locks.Lock(wagerID)
	defer unlock()

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := uow.WagerRepository().GetByIDForUpdate(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return nil, models.ErrWagerNotFound
	}
	if wager.CreatorID != requesterID {
		return nil, models.ErrNotCreator
	}
	if !wager.Status.IsOpen() {
		return nil, fmt.Errorf("%w: wager is %s", models.ErrWagerNotJoinable, wager.Status)
	}

	refunds := []*models.SettlementCredit{{
		WagerID:     wager.ID,
		Kind:        models.CreditCreatorRefund,
		RecipientID: wager.CreatorID,
		Amount:      wager.Stake,
	}}
	if wager.HasOpponent() {
		refunds = append(refunds, &models.SettlementCredit{
			WagerID:     wager.ID,
			Kind:        models.CreditOpponentRefund,
			RecipientID: *wager.OpponentID,
			Amount:      wager.Stake,
		})
	}
	for _, refund := range refunds {
		if _, err := applyCredit(ctx, uow, refund); err != nil {
			return nil, err
		}
	}

	now := r.now()
	wager.Status = models.WagerStatusCancelled
	wager.UpdatedAt = now
	wager.ResolvedAt = &now
	if err := uow.WagerRepository().Update(ctx, wager); err != nil {
		return nil, fmt.Errorf("failed to update wager: %w", err)
	}

	if err := uow.HistoryRepository().Append(ctx, models.NewHistoryEntry(wager)); err != nil {
		return nil, fmt.Errorf("failed to append history: %w", err)
	}

	uow.EventBus().Publish(events.WagerCancelledEvent{
		WagerID:    wager.ID,
		CreatorID:  wager.CreatorID,
		OpponentID: wager.OpponentID,
		Stake:      wager.Stake,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.WagerEvent("cancelled")
	log.WithFields(log.Fields{
		"wagerID":      wager.ID,
		"refundedBoth": wager.HasOpponent(),
	}).Info("Wager cancelled")

	return wager, nil
}

// Get retrieves a wager by ID
func (r *wagerRegistry) Get(ctx context.Context, wagerID string) (*models.Wager, error) {
	if !validWagerID(wagerID) {
		return nil, models.ErrWagerNotFound
	}
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := uow.WagerRepository().GetByID(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return nil, models.ErrWagerNotFound
	}
	return wager, nil
}

// ListOpen returns wagers waiting for an opponent
func (r *wagerRegistry) ListOpen(ctx context.Context, limit int) ([]*models.Wager, error) {
	if limit <= 0 || limit > maxOpenWagersListed {
		limit = maxOpenWagersListed
	}

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wagers, err := uow.WagerRepository().ListOpen(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open wagers: %w", err)
	}
	return wagers, nil
}

// ListActiveByAccount returns the account's non-terminal wagers
func (r *wagerRegistry) ListActiveByAccount(ctx context.Context, accountID int64) ([]*models.Wager, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wagers, err := uow.WagerRepository().ListActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active wagers: %w", err)
	}
	return wagers, nil
}
