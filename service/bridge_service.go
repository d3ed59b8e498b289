package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"dicewager/events"
	"dicewager/metrics"
	"dicewager/models"
)

const maxTransfersListed = 50

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// UnitsToTokenBase converts game units into token base units, rounding down
func UnitsToTokenBase(amount int64, rate decimal.Decimal, decimals int32) decimal.Decimal {
	return decimal.NewFromInt(amount).Mul(rate).Shift(decimals).Floor()
}

// TokenBaseToUnits converts token base units into whole game units, rounding down
func TokenBaseToUnits(base decimal.Decimal, rate decimal.Decimal, decimals int32) int64 {
	if !rate.IsPositive() {
		return 0
	}
	return base.Shift(-decimals).Div(rate).Floor().IntPart()
}

type bridgeService struct {
	uowFactory    UnitOfWorkFactory
	gateway       PaymentGateway
	tokenDecimals int32
	metrics       *metrics.Engine
	now           func() time.Time
	newID         func() string

	wg sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]bool // transfers waiting on a gateway result
	reported map[string]bool // pending withdrawals already flagged for reconciliation
}

// NewBridgeService creates the token bridge service. A nil gateway disables the bridge.
func NewBridgeService(uowFactory UnitOfWorkFactory, gateway PaymentGateway, tokenDecimals int32, m *metrics.Engine) BridgeService {
	return &bridgeService{
		uowFactory:    uowFactory,
		gateway:       gateway,
		tokenDecimals: tokenDecimals,
		metrics:       m,
		now:           time.Now,
		newID:         uuid.NewString,
		inFlight:      make(map[string]bool),
		reported:      make(map[string]bool),
	}
}

// GetExchangeRate returns whole tokens per game unit
func (s *bridgeService) GetExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	if s.gateway == nil {
		return decimal.Zero, models.ErrBridgeUnavailable
	}
	rate, err := s.gateway.GetExchangeRate(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", models.ErrBridgeUnavailable, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive exchange rate %s", models.ErrBridgeUnavailable, rate)
	}
	return rate, nil
}

// Deposit records a pending deposit and asks the gateway to confirm the transaction
func (s *bridgeService) Deposit(ctx context.Context, accountID int64, txHash string) (*models.Transfer, error) {
	if s.gateway == nil {
		return nil, models.ErrBridgeUnavailable
	}
	txHash = strings.ToLower(strings.TrimSpace(txHash))
	if !txHashPattern.MatchString(txHash) {
		return nil, models.ErrInvalidTxHash
	}

	transfer, wallet, err := s.createTransfer(ctx, accountID, models.TransferDirectionDeposit, 0, decimal.Zero, &txHash)
	if err != nil {
		return nil, err
	}

	s.request(ctx, transfer, models.TransferRequest{
		TransferID:    transfer.ID,
		Direction:     models.TransferDirectionDeposit,
		AccountID:     accountID,
		WalletAddress: wallet,
		TxHash:        txHash,
	})
	return transfer, nil
}

// Withdraw records a pending withdrawal and asks the gateway to send the tokens.
// The balance is only debited once the gateway confirms.
func (s *bridgeService) Withdraw(ctx context.Context, accountID int64, amount int64) (*models.Transfer, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: withdrawal must be positive", models.ErrInvalidAmount)
	}

	rate, err := s.GetExchangeRate(ctx)
	if err != nil {
		return nil, err
	}
	tokenAmount := UnitsToTokenBase(amount, rate, s.tokenDecimals)
	if !tokenAmount.IsPositive() {
		return nil, fmt.Errorf("%w: withdrawal is worth less than one token base unit", models.ErrInvalidAmount)
	}

	transfer, wallet, err := s.createTransfer(ctx, accountID, models.TransferDirectionWithdraw, amount, tokenAmount, nil)
	if err != nil {
		return nil, err
	}

	s.request(ctx, transfer, models.TransferRequest{
		TransferID:    transfer.ID,
		Direction:     models.TransferDirectionWithdraw,
		AccountID:     accountID,
		WalletAddress: wallet,
		TokenAmount:   tokenAmount,
	})
	return transfer, nil
}

// createTransfer validates the account and inserts a pending transfer
func (s *bridgeService) createTransfer(ctx context.Context, accountID int64, direction models.TransferDirection, amount int64, tokenAmount decimal.Decimal, txHash *string) (*models.Transfer, string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Row lock serializes concurrent withdrawals of the same account
	account, err := uow.AccountRepository().GetByIDForUpdate(ctx, accountID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, "", models.ErrAccountNotFound
	}
	if account.WalletAddress == nil {
		return nil, "", models.ErrWalletNotLinked
	}
	if direction == models.TransferDirectionWithdraw {
		reserved, err := uow.TransferRepository().SumPending(ctx, accountID, models.TransferDirectionWithdraw)
		if err != nil {
			return nil, "", fmt.Errorf("failed to sum pending withdrawals: %w", err)
		}
		if account.Balance-reserved < amount {
			return nil, "", fmt.Errorf("%w: %d available after pending withdrawals", models.ErrInsufficientFunds, max(account.Balance-reserved, 0))
		}
	}

	now := s.now()
	transfer := &models.Transfer{
		ID:          s.newID(),
		AccountID:   accountID,
		Direction:   direction,
		Amount:      amount,
		TokenAmount: tokenAmount,
		TxHash:      txHash,
		Status:      models.TransferStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uow.TransferRepository().Create(ctx, transfer); err != nil {
		return nil, "", fmt.Errorf("failed to create transfer: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"transferID": transfer.ID,
		"accountID":  accountID,
		"direction":  direction,
		"amount":     amount,
	}).Info("Transfer requested")

	return transfer, *account.WalletAddress, nil
}

// request hands the transfer to the gateway and completes it when the result arrives.
// It reports false when the transfer is already waiting on a result.
func (s *bridgeService) request(ctx context.Context, transfer *models.Transfer, req models.TransferRequest) bool {
	if !s.track(transfer.ID) {
		return false
	}

	// The result may arrive long after the command that started it returns
	bgCtx := context.WithoutCancel(ctx)

	results, err := s.gateway.RequestTransfer(bgCtx, req)
	if err != nil {
		s.completeLogged(bgCtx, transfer.ID, models.TransferResult{Err: err})
		s.untrack(transfer.ID)
		return true
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.untrack(transfer.ID)
		result, ok := <-results
		if !ok {
			result = models.TransferResult{Err: errors.New("gateway closed without a result")}
		}
		s.completeLogged(bgCtx, transfer.ID, result)
	}()
	return true
}

func (s *bridgeService) track(transferID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[transferID] {
		return false
	}
	s.inFlight[transferID] = true
	return true
}

func (s *bridgeService) untrack(transferID string) {
	s.mu.Lock()
	delete(s.inFlight, transferID)
	s.mu.Unlock()
}

func (s *bridgeService) isInFlight(transferID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[transferID]
}

// reportOnce reports whether transferID is flagged for the first time
func (s *bridgeService) reportOnce(transferID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reported[transferID] {
		return false
	}
	s.reported[transferID] = true
	return true
}

func (s *bridgeService) completeLogged(ctx context.Context, transferID string, result models.TransferResult) {
	if _, err := s.CompleteTransfer(ctx, transferID, result); err != nil {
		log.WithFields(log.Fields{
			"transferID": transferID,
			"error":      err,
		}).Error("Failed to complete transfer")
	}
}

// CompleteTransfer applies a resolved gateway result to a pending transfer.
// Transfers that already reached a final status are returned unchanged.
func (s *bridgeService) CompleteTransfer(ctx context.Context, transferID string, result models.TransferResult) (*models.Transfer, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transfer, err := uow.TransferRepository().GetByIDForUpdate(ctx, transferID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	if transfer == nil {
		return nil, models.ErrTransferNotFound
	}
	if transfer.Status != models.TransferStatusPending {
		return transfer, nil
	}

	if result.Success {
		if err := s.applyTransfer(ctx, uow, transfer, result); err != nil {
			return nil, err
		}
	} else {
		reason := "gateway rejected the transfer"
		if result.Err != nil {
			reason = result.Err.Error()
		}
		transfer.Status = models.TransferStatusFailed
		transfer.FailureReason = &reason
	}

	transfer.UpdatedAt = s.now()
	if err := uow.TransferRepository().Update(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to update transfer: %w", err)
	}

	uow.EventBus().Publish(events.TransferFinishedEvent{
		TransferID: transfer.ID,
		AccountID:  transfer.AccountID,
		Direction:  transfer.Direction,
		Status:     transfer.Status,
		Amount:     transfer.Amount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.metrics.TransferFinished(string(transfer.Direction), string(transfer.Status))
	fields := log.Fields{
		"transferID": transfer.ID,
		"accountID":  transfer.AccountID,
		"direction":  transfer.Direction,
		"status":     transfer.Status,
		"amount":     transfer.Amount,
	}
	if transfer.FailureReason != nil {
		fields["reason"] = *transfer.FailureReason
	}
	log.WithFields(fields).Info("Transfer finished")

	return transfer, nil
}

// applyTransfer moves the game balance for a confirmed transfer, or marks it failed
func (s *bridgeService) applyTransfer(ctx context.Context, uow UnitOfWork, transfer *models.Transfer, result models.TransferResult) error {
	if result.TxHash != "" {
		txHash := result.TxHash
		transfer.TxHash = &txHash
	}

	switch transfer.Direction {
	case models.TransferDirectionDeposit:
		rate, err := s.GetExchangeRate(ctx)
		if err != nil {
			return err
		}
		units := TokenBaseToUnits(result.TokenAmount, rate, s.tokenDecimals)
		transfer.TokenAmount = result.TokenAmount
		if units <= 0 {
			reason := "deposit is worth less than one game unit"
			transfer.Status = models.TransferStatusFailed
			transfer.FailureReason = &reason
			return nil
		}
		related := relatedTransfer(transfer.ID, map[string]any{"tx_hash": result.TxHash})
		if _, err := creditAccount(ctx, uow, transfer.AccountID, units, false, models.TransactionTypeDeposit, related); err != nil {
			return fmt.Errorf("failed to credit deposit: %w", err)
		}
		transfer.Amount = units

	case models.TransferDirectionWithdraw:
		related := relatedTransfer(transfer.ID, map[string]any{"tx_hash": result.TxHash})
		_, err := debitAccount(ctx, uow, transfer.AccountID, transfer.Amount, models.TransactionTypeWithdraw, related)
		if errors.Is(err, models.ErrInsufficientFunds) {
			// Tokens left the bridge but the balance was spent in the meantime
			reason := "insufficient balance when the withdrawal confirmed"
			transfer.Status = models.TransferStatusFailed
			transfer.FailureReason = &reason
			log.WithFields(log.Fields{
				"transferID": transfer.ID,
				"accountID":  transfer.AccountID,
				"txHash":     result.TxHash,
			}).Error("Withdrawal confirmed on chain without covering balance, needs reconciliation")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to debit withdrawal: %w", err)
		}
	}

	transfer.Status = models.TransferStatusCompleted
	return nil
}

// ListTransfers returns recent transfers of an account
func (s *bridgeService) ListTransfers(ctx context.Context, accountID int64, limit int) ([]*models.Transfer, error) {
	if limit <= 0 || limit > maxTransfersListed {
		limit = maxTransfersListed
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transfers, err := uow.TransferRepository().ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	return transfers, nil
}

// ResumePending re-requests confirmation of pending deposits that are not waiting on the gateway.
// Pending withdrawals are only reported, once each, since resending could pay twice.
func (s *bridgeService) ResumePending(ctx context.Context) (int, error) {
	if s.gateway == nil {
		return 0, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	pending, err := uow.TransferRepository().ListPending(ctx)
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to list pending transfers: %w", err)
	}

	resumed := 0
	for _, t := range pending {
		if s.isInFlight(t.ID) {
			continue
		}
		if t.Direction != models.TransferDirectionDeposit || t.TxHash == nil {
			if s.reportOnce(t.ID) {
				log.WithFields(log.Fields{
					"transferID": t.ID,
					"accountID":  t.AccountID,
					"amount":     t.Amount,
				}).Warn("Withdrawal pending without a gateway result, needs reconciliation")
			}
			continue
		}

		account, err := s.accountWallet(ctx, t.AccountID)
		if err != nil {
			log.WithFields(log.Fields{
				"transferID": t.ID,
				"error":      err,
			}).Warn("Failed to resume deposit")
			continue
		}

		if s.request(ctx, t, models.TransferRequest{
			TransferID:    t.ID,
			Direction:     t.Direction,
			AccountID:     t.AccountID,
			WalletAddress: account,
			TxHash:        *t.TxHash,
		}) {
			resumed++
		}
	}
	return resumed, nil
}

func (s *bridgeService) accountWallet(ctx context.Context, accountID int64) (string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return "", models.ErrAccountNotFound
	}
	if account.WalletAddress == nil {
		return "", models.ErrWalletNotLinked
	}
	return *account.WalletAddress, nil
}

// Close waits for in-flight gateway results
func (s *bridgeService) Close() {
	s.wg.Wait()
}
