package repository

import (
	"context"
	"fmt"

	"dicewager/database"
	"dicewager/models"
)

// SettlementCreditRepository implements the SettlementCreditRepository interface
type SettlementCreditRepository struct {
	q queryable
}

// NewSettlementCreditRepository creates a new settlement credit repository
func NewSettlementCreditRepository(db *database.DB) *SettlementCreditRepository {
	return &SettlementCreditRepository{q: db.Pool}
}

// newSettlementCreditRepositoryWithTx creates a new settlement credit repository with a transaction
func newSettlementCreditRepositoryWithTx(tx queryable) *SettlementCreditRepository {
	return &SettlementCreditRepository{q: tx}
}

// MarkApplied stores the credit marker and reports false if it already existed.
// The caller applies the credit in the same transaction only when true is returned.
func (r *SettlementCreditRepository) MarkApplied(ctx context.Context, credit *models.SettlementCredit) (bool, error) {
	result, err := r.q.Exec(ctx, `
		INSERT INTO settlement_credits (wager_id, kind, recipient_id, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (wager_id, kind) DO NOTHING
	`, credit.WagerID, string(credit.Kind), credit.RecipientID, credit.Amount)
	if err != nil {
		return false, storageError(fmt.Sprintf("mark %s credit of wager %s", credit.Kind, credit.WagerID), err)
	}
	return result.RowsAffected() == 1, nil
}

// ListByWager returns the credits already applied for a wager
func (r *SettlementCreditRepository) ListByWager(ctx context.Context, wagerID string) ([]*models.SettlementCredit, error) {
	rows, err := r.q.Query(ctx, `
		SELECT wager_id::text, kind, recipient_id, amount
		FROM settlement_credits
		WHERE wager_id = $1
		ORDER BY applied_at, kind
	`, wagerID)
	if err != nil {
		return nil, storageError(fmt.Sprintf("list credits of wager %s", wagerID), err)
	}
	defer rows.Close()

	var credits []*models.SettlementCredit
	for rows.Next() {
		var c models.SettlementCredit
		if err := rows.Scan(&c.WagerID, &c.Kind, &c.RecipientID, &c.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan settlement credit: %w", err)
		}
		credits = append(credits, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement credits: %w", err)
	}
	return credits, nil
}
