package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"dicewager/events"
	"dicewager/metrics"
	"dicewager/models"
)

// Fee shares of the pot, in percent of one stake
const (
	InviterFeePercent = 7
	ProjectFeePercent = 3
)

// Settle computes the payout split of a wager from both scores and the stake.
// The winner receives twice the stake minus both fees, so the shares always add up to 2*stake.
func Settle(creatorScore, opponentScore int, stake int64) models.Outcome {
	if creatorScore == opponentScore {
		return models.Outcome{
			Kind:           models.OutcomeTie,
			CreatorRefund:  stake,
			OpponentRefund: stake,
		}
	}

	kind := models.OutcomeCreatorWin
	if opponentScore > creatorScore {
		kind = models.OutcomeOpponentWin
	}

	inviterFee := stake * InviterFeePercent / 100
	projectFee := stake * ProjectFeePercent / 100
	return models.Outcome{
		Kind:         kind,
		InviterFee:   inviterFee,
		ProjectFee:   projectFee,
		WinnerPayout: 2*stake - inviterFee - projectFee,
	}
}

// CreditsFor lists the credits a resolved wager owes. Zero amounts are omitted.
func CreditsFor(w *models.Wager, houseAccountID int64) []*models.SettlementCredit {
	o := w.Outcome
	if o == nil {
		return nil
	}

	var credits []*models.SettlementCredit
	add := func(kind models.CreditKind, recipient *int64, amount int64, inviteEarning bool) {
		if recipient == nil || amount <= 0 {
			return
		}
		credits = append(credits, &models.SettlementCredit{
			WagerID:         w.ID,
			Kind:            kind,
			RecipientID:     *recipient,
			Amount:          amount,
			IsInviteEarning: inviteEarning,
		})
	}

	if o.IsTie() {
		add(models.CreditCreatorRefund, &w.CreatorID, o.CreatorRefund, false)
		add(models.CreditOpponentRefund, w.OpponentID, o.OpponentRefund, false)
		return credits
	}

	house := houseAccountID
	add(models.CreditWinnerPayout, o.WinnerID, o.WinnerPayout, false)
	feeRecipient := o.FeeRecipientID
	if feeRecipient == nil {
		feeRecipient = &house
	}
	add(models.CreditInviterFee, feeRecipient, o.InviterFee, o.FeeIsInviteEarning)
	add(models.CreditProjectFee, &house, o.ProjectFee, false)
	return credits
}

// applyCredit applies one credit inside uow unless its marker already exists
func applyCredit(ctx context.Context, uow UnitOfWork, credit *models.SettlementCredit) (bool, error) {
	inserted, err := uow.SettlementCreditRepository().MarkApplied(ctx, credit)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s credit: %w", credit.Kind, err)
	}
	if !inserted {
		return false, nil
	}

	related := relatedWager(credit.WagerID, map[string]any{"credit": string(credit.Kind)})
	if _, err := creditAccount(ctx, uow, credit.RecipientID, credit.Amount, credit.IsInviteEarning, credit.TransactionType(), related); err != nil {
		return false, fmt.Errorf("failed to apply %s credit to %d: %w", credit.Kind, credit.RecipientID, err)
	}
	return true, nil
}

type settlementService struct {
	uowFactory     UnitOfWorkFactory
	locks          *KeyedMutex
	houseAccountID int64
	metrics        *metrics.Engine
	now            func() time.Time
}

// NewSettlementService creates the service applying wager outcomes.
// locks must be the same set the wager registry uses.
func NewSettlementService(uowFactory UnitOfWorkFactory, locks *KeyedMutex, houseAccountID int64, m *metrics.Engine) SettlementService {
	return &settlementService{
		uowFactory:     uowFactory,
		locks:          locks,
		houseAccountID: houseAccountID,
		metrics:        m,
		now:            time.Now,
	}
}

// Prepare computes the outcome of a wager in which both players have rolled
func (s *settlementService) Prepare(ctx context.Context, uow UnitOfWork, w *models.Wager) (*models.Outcome, error) {
	if !w.BothRolled() {
		return nil, fmt.Errorf("wager %s is not fully rolled", w.ID)
	}

	outcome := Settle(w.CreatorScore, w.OpponentScore, w.Stake)
	if outcome.IsTie() {
		return &outcome, nil
	}

	winner, loser := w.CreatorID, *w.OpponentID
	if outcome.Kind == models.OutcomeOpponentWin {
		winner, loser = loser, winner
	}
	outcome.WinnerID = &winner
	outcome.LoserID = &loser

	winnerAccount, err := uow.AccountRepository().GetByID(ctx, winner)
	if err != nil {
		return nil, fmt.Errorf("failed to get winner: %w", err)
	}
	if winnerAccount == nil {
		return nil, fmt.Errorf("winner %d: %w", winner, models.ErrAccountNotFound)
	}

	house := s.houseAccountID
	if winnerAccount.InviterID != nil {
		inviter := *winnerAccount.InviterID
		outcome.FeeRecipientID = &inviter
		outcome.FeeIsInviteEarning = inviter != house
	} else {
		outcome.FeeRecipientID = &house
	}

	return &outcome, nil
}

// Apply credits every share of a resolving wager and marks it completed
func (s *settlementService) Apply(ctx context.Context, wagerID string) (*models.Wager, error) {
	start := s.now()

	w, err := s.loadWager(ctx, wagerID)
	if err != nil {
		return nil, err
	}
	if w.Status == models.WagerStatusCompleted {
		return w, nil
	}
	if w.Status != models.WagerStatusResolving || w.Outcome == nil {
		return nil, fmt.Errorf("wager %s is %s, not resolving", wagerID, w.Status)
	}

	for _, credit := range CreditsFor(w, s.houseAccountID) {
		applied, err := s.applyCreditInOwnTx(ctx, credit)
		if err != nil {
			return nil, err
		}
		s.metrics.CreditApplied(string(credit.Kind), applied)
	}

	completed, err := s.complete(ctx, wagerID)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveSettlement(string(completed.Outcome.Kind), s.now().Sub(start))
	log.WithFields(log.Fields{
		"wagerID": wagerID,
		"outcome": completed.Outcome.Kind,
		"stake":   completed.Stake,
	}).Info("Wager settled")

	return completed, nil
}

// ResumePending replays every wager left in resolving by an earlier failure
func (s *settlementService) ResumePending(ctx context.Context) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	pending, err := uow.WagerRepository().ListByStatus(ctx, models.WagerStatusResolving)
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to list resolving wagers: %w", err)
	}

	settled := 0
	var errs []error
	for _, w := range pending {
		unlock := s.locks.Lock(w.ID)
		_, err := s.Apply(ctx, w.ID)
		unlock()

		s.metrics.SettlementResumed(err)
		if err != nil {
			log.WithFields(log.Fields{
				"wagerID": w.ID,
				"error":   err,
			}).Warn("Failed to resume settlement")
			errs = append(errs, err)
			continue
		}
		settled++
	}

	return settled, errors.Join(errs...)
}

func (s *settlementService) loadWager(ctx context.Context, wagerID string) (*models.Wager, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	w, err := uow.WagerRepository().GetByID(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}
	if w == nil {
		return nil, models.ErrWagerNotFound
	}
	return w, nil
}

func (s *settlementService) applyCreditInOwnTx(ctx context.Context, credit *models.SettlementCredit) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	applied, err := applyCredit(ctx, uow, credit)
	if err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit %s credit: %w", credit.Kind, err)
	}
	return applied, nil
}

// complete moves a resolving wager to completed and appends its history entry
func (s *settlementService) complete(ctx context.Context, wagerID string) (*models.Wager, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	w, err := uow.WagerRepository().GetByIDForUpdate(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wager: %w", err)
	}
	if w == nil {
		return nil, models.ErrWagerNotFound
	}
	if w.Status == models.WagerStatusCompleted {
		return w, nil
	}

	resolvedAt := s.now()
	w.Status = models.WagerStatusCompleted
	w.ResolvedAt = &resolvedAt
	if err := uow.WagerRepository().Update(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to complete wager: %w", err)
	}

	entry := models.NewHistoryEntry(w)
	if err := uow.HistoryRepository().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append history: %w", err)
	}

	uow.EventBus().Publish(events.WagerSettledEvent{Entry: *entry, Kind: w.Outcome.Kind})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return w, nil
}
