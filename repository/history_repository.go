package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dicewager/database"
	"dicewager/models"
)

const historyColumns = `
	id, wager_id::text, creator_id, opponent_id, stake, creator_score, opponent_score,
	winner_id, win_amount, inviter_fee, project_fee, fee_recipient_id,
	status::text, wager_created_at, recorded_at`

// HistoryRepository implements the HistoryRepository interface
type HistoryRepository struct {
	q queryable
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{q: db.Pool}
}

// newHistoryRepositoryWithTx creates a new history repository with a transaction
func newHistoryRepositoryWithTx(tx queryable) *HistoryRepository {
	return &HistoryRepository{q: tx}
}

func scanHistoryEntry(row pgx.Row) (*models.HistoryEntry, error) {
	var e models.HistoryEntry
	err := row.Scan(
		&e.ID,
		&e.WagerID,
		&e.CreatorID,
		&e.OpponentID,
		&e.Stake,
		&e.CreatorScore,
		&e.OpponentScore,
		&e.WinnerID,
		&e.WinAmount,
		&e.InviterFee,
		&e.ProjectFee,
		&e.FeeRecipientID,
		&e.Status,
		&e.WagerCreatedAt,
		&e.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Append stores a snapshot of a terminal wager. A second snapshot of the same wager is ignored.
func (r *HistoryRepository) Append(ctx context.Context, entry *models.HistoryEntry) error {
	query := `
		INSERT INTO history_entries (
			wager_id, creator_id, opponent_id, stake, creator_score, opponent_score,
			winner_id, win_amount, inviter_fee, project_fee, fee_recipient_id,
			status, wager_created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::wager_status, $13)
		ON CONFLICT (wager_id) DO NOTHING
		RETURNING id, recorded_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.WagerID,
		entry.CreatorID,
		entry.OpponentID,
		entry.Stake,
		entry.CreatorScore,
		entry.OpponentScore,
		entry.WinnerID,
		entry.WinAmount,
		entry.InviterFee,
		entry.ProjectFee,
		entry.FeeRecipientID,
		string(entry.Status),
		entry.WagerCreatedAt,
	).Scan(&entry.ID, &entry.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return storageError(fmt.Sprintf("append history of wager %s", entry.WagerID), err)
	}
	return nil
}

// GetByWagerID returns the snapshot of a wager, if recorded
func (r *HistoryRepository) GetByWagerID(ctx context.Context, wagerID string) (*models.HistoryEntry, error) {
	entry, err := scanHistoryEntry(r.q.QueryRow(ctx, `SELECT `+historyColumns+` FROM history_entries WHERE wager_id = $1`, wagerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(fmt.Sprintf("get history of wager %s", wagerID), err)
	}
	return entry, nil
}

// QueryByAccount returns entries involving the account, newest first
func (r *HistoryRepository) QueryByAccount(ctx context.Context, accountID int64, status *models.WagerStatus, limit, offset int) ([]*models.HistoryEntry, error) {
	var statusFilter *string
	if status != nil {
		s := string(*status)
		statusFilter = &s
	}

	rows, err := r.q.Query(ctx, `
		SELECT `+historyColumns+` FROM history_entries
		WHERE (creator_id = $1 OR opponent_id = $1)
		  AND ($2::text IS NULL OR status::text = $2::text)
		ORDER BY recorded_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, accountID, statusFilter, limit, offset)
	if err != nil {
		return nil, storageError(fmt.Sprintf("query history of %d", accountID), err)
	}
	defer rows.Close()

	entries := []*models.HistoryEntry{}
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate history", err)
	}
	return entries, nil
}
