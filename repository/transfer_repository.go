package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"dicewager/database"
	"dicewager/models"
)

const transferColumns = `id::text, account_id, direction, amount, token_amount::text, tx_hash, status, failure_reason, created_at, updated_at`

// TransferRepository implements the TransferRepository interface
type TransferRepository struct {
	q queryable
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *database.DB) *TransferRepository {
	return &TransferRepository{q: db.Pool}
}

// newTransferRepositoryWithTx creates a new transfer repository with a transaction
func newTransferRepositoryWithTx(tx queryable) *TransferRepository {
	return &TransferRepository{q: tx}
}

func scanTransfer(row pgx.Row) (*models.Transfer, error) {
	var t models.Transfer
	var tokenAmount string
	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Direction,
		&t.Amount,
		&tokenAmount,
		&t.TxHash,
		&t.Status,
		&t.FailureReason,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.TokenAmount, err = decimal.NewFromString(tokenAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token amount %q: %w", tokenAmount, err)
	}
	return &t, nil
}

// Create inserts a new transfer
func (r *TransferRepository) Create(ctx context.Context, transfer *models.Transfer) error {
	query := `
		INSERT INTO transfers (id, account_id, direction, amount, token_amount, tx_hash, status)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		transfer.ID,
		transfer.AccountID,
		string(transfer.Direction),
		transfer.Amount,
		transfer.TokenAmount.String(),
		transfer.TxHash,
		string(transfer.Status),
	).Scan(&transfer.CreatedAt, &transfer.UpdatedAt)
	if uniqueViolation(err) == "idx_transfers_deposit_tx" {
		return models.ErrDepositClaimed
	}
	if err != nil {
		return storageError("create transfer", err)
	}
	return nil
}

func (r *TransferRepository) getOne(ctx context.Context, op, query string, id string) (*models.Transfer, error) {
	// ids are uuids; anything else cannot match a row
	if uuid.Validate(id) != nil {
		return nil, nil
	}
	transfer, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(fmt.Sprintf("%s transfer %s", op, id), err)
	}
	return transfer, nil
}

// GetByID retrieves a transfer by its ID
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*models.Transfer, error) {
	return r.getOne(ctx, "get", `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a transfer and locks its row until the transaction ends
func (r *TransferRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Transfer, error) {
	return r.getOne(ctx, "lock", `SELECT `+transferColumns+` FROM transfers WHERE id = $1 FOR UPDATE`, id)
}

// Update persists the result of a transfer
func (r *TransferRepository) Update(ctx context.Context, transfer *models.Transfer) error {
	query := `
		UPDATE transfers SET
			amount = $2,
			token_amount = $3::numeric,
			tx_hash = $4,
			status = $5,
			failure_reason = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		transfer.ID,
		transfer.Amount,
		transfer.TokenAmount.String(),
		transfer.TxHash,
		string(transfer.Status),
		transfer.FailureReason,
	).Scan(&transfer.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrTransferNotFound
	}
	if err != nil {
		return storageError(fmt.Sprintf("update transfer %s", transfer.ID), err)
	}
	return nil
}

func (r *TransferRepository) list(ctx context.Context, op, query string, args ...any) ([]*models.Transfer, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError(op, err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}
	return transfers, nil
}

// ListByAccount returns the most recent transfers of an account
func (r *TransferRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transfer, error) {
	return r.list(ctx, fmt.Sprintf("list transfers of %d", accountID), `
		SELECT `+transferColumns+` FROM transfers
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
}

// SumPending returns the total game amount of the account's pending transfers in one direction
func (r *TransferRepository) SumPending(ctx context.Context, accountID int64, direction models.TransferDirection) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::bigint FROM transfers
		WHERE account_id = $1 AND direction = $2 AND status = 'pending'
	`, accountID, string(direction)).Scan(&total)
	if err != nil {
		return 0, storageError("sum pending transfers", err)
	}
	return total, nil
}

// ListPending returns every transfer still waiting for the gateway, oldest first
func (r *TransferRepository) ListPending(ctx context.Context) ([]*models.Transfer, error) {
	return r.list(ctx, "list pending transfers", `
		SELECT `+transferColumns+` FROM transfers
		WHERE status = 'pending'
		ORDER BY created_at ASC
	`)
}
