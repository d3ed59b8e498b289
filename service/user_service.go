package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"dicewager/events"
	"dicewager/models"
)

const (
	inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteCodeAttempts = 5
)

var inviteCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// userService implements the UserService interface
type userService struct {
	uowFactory      UnitOfWorkFactory
	startingBalance int64
	houseAccountID  int64
	houseInviteCode string
	newInviteCode   func() (string, error)
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory, startingBalance int64, houseAccountID int64, houseInviteCode string) UserService {
	return &userService{
		uowFactory:      uowFactory,
		startingBalance: startingBalance,
		houseAccountID:  houseAccountID,
		houseInviteCode: NormalizeInviteCode(houseInviteCode),
		newInviteCode:   GenerateInviteCode,
	}
}

// NormalizeInviteCode trims and upper-cases a user supplied code
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidInviteCode reports whether code has the invite code format
func ValidInviteCode(code string) bool {
	return inviteCodePattern.MatchString(code)
}

// GenerateInviteCode returns a random invite code
func GenerateInviteCode() (string, error) {
	buf := make([]byte, models.InviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(buf), nil
}

// Register creates an account through a valid invite code
func (s *userService) Register(ctx context.Context, accountID int64, username string, inviteCode string) (*models.Account, error) {
	code := NormalizeInviteCode(inviteCode)
	if !ValidInviteCode(code) {
		return nil, models.ErrInvalidInviteCode
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.AccountRepository()

	existing, err := repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, models.ErrAlreadyRegistered
	}

	inviter, err := repo.GetByInviteCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up invite code: %w", err)
	}
	if inviter == nil {
		return nil, models.ErrInvalidInviteCode
	}

	ownCode, err := s.uniqueInviteCode(ctx, repo)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:         accountID,
		Username:   username,
		Balance:    s.startingBalance,
		InviteCode: ownCode,
	}
	if err := repo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if err := recordInvite(ctx, uow, accountID, inviter.ID); err != nil {
		return nil, err
	}
	inviterID := inviter.ID
	account.InviterID = &inviterID

	history := &models.BalanceHistory{
		AccountID:       accountID,
		BalanceBefore:   0,
		BalanceAfter:    s.startingBalance,
		ChangeAmount:    s.startingBalance,
		TransactionType: models.TransactionTypeInitial,
		TransactionMetadata: map[string]any{
			"username":   username,
			"inviter_id": inviterID,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record initial balance: %w", err)
	}

	uow.EventBus().Publish(events.AccountRegisteredEvent{
		AccountID:      accountID,
		Username:       username,
		InviterID:      account.InviterID,
		InitialBalance: s.startingBalance,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID":  accountID,
		"username":   username,
		"inviterID":  inviterID,
		"inviteCode": ownCode,
	}).Info("Account registered")

	return account, nil
}

func (s *userService) uniqueInviteCode(ctx context.Context, repo AccountRepository) (string, error) {
	for range inviteCodeAttempts {
		code, err := s.newInviteCode()
		if err != nil {
			return "", err
		}
		if code == s.houseInviteCode {
			continue
		}
		taken, err := repo.GetByInviteCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check invite code: %w", err)
		}
		if taken == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free invite code after %d attempts: %w", inviteCodeAttempts, models.ErrInviteCodeTaken)
}

// GetAccount retrieves a registered account
func (s *userService) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, models.ErrAccountNotFound
	}
	return account, nil
}

// EnsureHouseAccount creates the house account if it does not exist
func (s *userService) EnsureHouseAccount(ctx context.Context) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.AccountRepository()
	house, err := repo.GetByID(ctx, s.houseAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get house account: %w", err)
	}
	if house != nil {
		if !house.IsHouse {
			return nil, fmt.Errorf("account %d exists but is not the house account", s.houseAccountID)
		}
		return house, nil
	}

	if !ValidInviteCode(s.houseInviteCode) {
		return nil, fmt.Errorf("house invite code %q: %w", s.houseInviteCode, models.ErrInvalidInviteCode)
	}

	house = &models.Account{
		ID:         s.houseAccountID,
		Username:   "house",
		InviteCode: s.houseInviteCode,
		IsHouse:    true,
	}
	if err := repo.Create(ctx, house); err != nil {
		if errors.Is(err, models.ErrInviteCodeTaken) {
			return nil, fmt.Errorf("house invite code %q is held by another account: %w", s.houseInviteCode, err)
		}
		return nil, fmt.Errorf("failed to create house account: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID":  house.ID,
		"inviteCode": house.InviteCode,
	}).Info("House account created")

	return house, nil
}

// LinkWallet stores the account's on-chain wallet address
func (s *userService) LinkWallet(ctx context.Context, accountID int64, address string) error {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return models.ErrInvalidWallet
	}
	checksummed := common.HexToAddress(address).Hex()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.AccountRepository().SetWalletAddress(ctx, accountID, checksummed); err != nil {
		return fmt.Errorf("failed to link wallet: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID": accountID,
		"wallet":    checksummed,
	}).Info("Wallet linked")
	return nil
}
