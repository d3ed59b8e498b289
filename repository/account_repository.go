package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"dicewager/database"
	"dicewager/models"
)

const accountColumns = `id, username, balance, invite_code, inviter_id, invite_earnings, wallet_address, is_house, created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Balance,
		&a.InviteCode,
		&a.InviterID,
		&a.InviteEarnings,
		&a.WalletAddress,
		&a.IsHouse,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID retrieves an account by its chat user id
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	account, err := scanAccount(r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get account", err)
	}
	return account, nil
}

// GetByIDForUpdate retrieves an account and locks its row until the transaction ends
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	account, err := scanAccount(r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("lock account", err)
	}
	return account, nil
}

// GetByInviteCode retrieves the account owning an invite code
func (r *AccountRepository) GetByInviteCode(ctx context.Context, code string) (*models.Account, error) {
	account, err := scanAccount(r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE invite_code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get account by invite code", err)
	}
	return account, nil
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, username, balance, invite_code, inviter_id, wallet_address, is_house)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING invite_earnings, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		account.ID,
		account.Username,
		account.Balance,
		account.InviteCode,
		account.InviterID,
		account.WalletAddress,
		account.IsHouse,
	).Scan(&account.InviteEarnings, &account.CreatedAt, &account.UpdatedAt)

	switch uniqueViolation(err) {
	case "":
	case "accounts_pkey":
		return models.ErrAlreadyRegistered
	case "accounts_invite_code_key":
		return models.ErrInviteCodeTaken
	default:
		return storageError("create account", err)
	}
	if err != nil {
		return storageError("create account", err)
	}
	return nil
}

// Debit atomically subtracts amount, failing with ErrInsufficientFunds rather than going negative
func (r *AccountRepository) Debit(ctx context.Context, id int64, amount int64) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, id, amount).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		if err := r.mustExist(ctx, id); err != nil {
			return 0, err
		}
		return 0, models.ErrInsufficientFunds
	}
	if err != nil {
		return 0, storageError("debit account", err)
	}
	return balance, nil
}

// Credit atomically adds amount, also adding to invite earnings when isInviteEarning is set
func (r *AccountRepository) Credit(ctx context.Context, id int64, amount int64, isInviteEarning bool) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2,
		    invite_earnings = invite_earnings + CASE WHEN $3::boolean THEN $2 ELSE 0 END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, id, amount, isInviteEarning).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, models.ErrAccountNotFound
	}
	if err != nil {
		return 0, storageError("credit account", err)
	}
	return balance, nil
}

// SetInviter records the inviter of an account exactly once
func (r *AccountRepository) SetInviter(ctx context.Context, inviteeID int64, inviterID int64) error {
	if inviteeID == inviterID {
		return models.ErrSelfInvite
	}

	result, err := r.q.Exec(ctx, `
		UPDATE accounts SET inviter_id = $2, updated_at = NOW()
		WHERE id = $1 AND inviter_id IS NULL
	`, inviteeID, inviterID)
	if err != nil {
		return storageError("set inviter", err)
	}
	if result.RowsAffected() == 0 {
		if err := r.mustExist(ctx, inviteeID); err != nil {
			return err
		}
		return models.ErrAlreadyInvited
	}
	return nil
}

// CountInvitees returns how many accounts were registered with the inviter's code
func (r *AccountRepository) CountInvitees(ctx context.Context, inviterID int64) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE inviter_id = $1`, inviterID).Scan(&count); err != nil {
		return 0, storageError("count invitees", err)
	}
	return count, nil
}

// SetWalletAddress links an on-chain wallet to the account
func (r *AccountRepository) SetWalletAddress(ctx context.Context, id int64, address string) error {
	result, err := r.q.Exec(ctx, `UPDATE accounts SET wallet_address = $2, updated_at = NOW() WHERE id = $1`, id, address)
	if err != nil {
		return storageError("set wallet address", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) mustExist(ctx context.Context, id int64) error {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return storageError("check account", err)
	}
	if !exists {
		return models.ErrAccountNotFound
	}
	return nil
}
