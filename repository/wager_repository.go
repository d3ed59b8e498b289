package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dicewager/database"
	"dicewager/models"
)

const wagerColumns = `
	id::text, creator_id, opponent_id, stake,
	creator_score, creator_rolls, opponent_score, opponent_rolls,
	status::text, outcome_kind::text, winner_id,
	inviter_fee, project_fee, winner_payout, fee_recipient_id, fee_is_invite_earning,
	created_at, updated_at, resolved_at`

// WagerRepository implements the WagerRepository interface
type WagerRepository struct {
	q queryable
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(db *database.DB) *WagerRepository {
	return &WagerRepository{q: db.Pool}
}

// newWagerRepositoryWithTx creates a new wager repository with a transaction
func newWagerRepositoryWithTx(tx queryable) *WagerRepository {
	return &WagerRepository{q: tx}
}

func scanWager(row pgx.Row) (*models.Wager, error) {
	var (
		w              models.Wager
		outcomeKind    *string
		winnerID       *int64
		inviterFee     int64
		projectFee     int64
		winnerPayout   int64
		feeRecipientID *int64
		feeIsEarning   bool
	)

	err := row.Scan(
		&w.ID,
		&w.CreatorID,
		&w.OpponentID,
		&w.Stake,
		&w.CreatorScore,
		&w.CreatorRolls,
		&w.OpponentScore,
		&w.OpponentRolls,
		&w.Status,
		&outcomeKind,
		&winnerID,
		&inviterFee,
		&projectFee,
		&winnerPayout,
		&feeRecipientID,
		&feeIsEarning,
		&w.CreatedAt,
		&w.UpdatedAt,
		&w.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	if outcomeKind != nil {
		o := &models.Outcome{
			Kind:               models.OutcomeKind(*outcomeKind),
			WinnerID:           winnerID,
			InviterFee:         inviterFee,
			ProjectFee:         projectFee,
			WinnerPayout:       winnerPayout,
			FeeRecipientID:     feeRecipientID,
			FeeIsInviteEarning: feeIsEarning,
		}
		switch {
		case o.IsTie():
			o.CreatorRefund = w.Stake
			o.OpponentRefund = w.Stake
		case winnerID != nil && *winnerID == w.CreatorID:
			o.LoserID = w.OpponentID
		case winnerID != nil:
			loser := w.CreatorID
			o.LoserID = &loser
		}
		w.Outcome = o
	}

	return &w, nil
}

func (r *WagerRepository) getOne(ctx context.Context, query string, args ...any) (*models.Wager, error) {
	wager, err := scanWager(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return wager, nil
}

func (r *WagerRepository) getMany(ctx context.Context, query string, args ...any) ([]*models.Wager, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wagers []*models.Wager
	for rows.Next() {
		wager, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wager: %w", err)
		}
		wagers = append(wagers, wager)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wagers: %w", err)
	}
	return wagers, nil
}

// Create inserts a new wager
func (r *WagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	query := `
		INSERT INTO wagers (id, creator_id, opponent_id, stake, status)
		VALUES ($1, $2, $3, $4, $5::wager_status)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		wager.ID,
		wager.CreatorID,
		wager.OpponentID,
		wager.Stake,
		string(wager.Status),
	).Scan(&wager.CreatedAt, &wager.UpdatedAt)
	if err != nil {
		return storageError("create wager", err)
	}
	return nil
}

// GetByID retrieves a wager by its ID
func (r *WagerRepository) GetByID(ctx context.Context, id string) (*models.Wager, error) {
	if uuid.Validate(id) != nil {
		return nil, nil
	}
	wager, err := r.getOne(ctx, `SELECT `+wagerColumns+` FROM wagers WHERE id = $1`, id)
	if err != nil {
		return nil, storageError(fmt.Sprintf("get wager %s", id), err)
	}
	return wager, nil
}

// GetByIDForUpdate retrieves a wager and locks its row until the transaction ends
func (r *WagerRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Wager, error) {
	if uuid.Validate(id) != nil {
		return nil, nil
	}
	wager, err := r.getOne(ctx, `SELECT `+wagerColumns+` FROM wagers WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, storageError(fmt.Sprintf("lock wager %s", id), err)
	}
	return wager, nil
}

// Update persists the mutable fields of a wager, including its outcome
func (r *WagerRepository) Update(ctx context.Context, wager *models.Wager) error {
	var (
		outcomeKind    *string
		winnerID       *int64
		inviterFee     int64
		projectFee     int64
		winnerPayout   int64
		feeRecipientID *int64
		feeIsEarning   bool
	)
	if o := wager.Outcome; o != nil {
		kind := string(o.Kind)
		outcomeKind = &kind
		winnerID = o.WinnerID
		inviterFee = o.InviterFee
		projectFee = o.ProjectFee
		winnerPayout = o.WinnerPayout
		feeRecipientID = o.FeeRecipientID
		feeIsEarning = o.FeeIsInviteEarning
	}

	query := `
		UPDATE wagers SET
			opponent_id = $2,
			creator_score = $3,
			creator_rolls = $4,
			opponent_score = $5,
			opponent_rolls = $6,
			status = $7::wager_status,
			outcome_kind = $8::outcome_kind,
			winner_id = $9,
			inviter_fee = $10,
			project_fee = $11,
			winner_payout = $12,
			fee_recipient_id = $13,
			fee_is_invite_earning = $14,
			resolved_at = $15,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		wager.ID,
		wager.OpponentID,
		wager.CreatorScore,
		wager.CreatorRolls,
		wager.OpponentScore,
		wager.OpponentRolls,
		string(wager.Status),
		outcomeKind,
		winnerID,
		inviterFee,
		projectFee,
		winnerPayout,
		feeRecipientID,
		feeIsEarning,
		wager.ResolvedAt,
	).Scan(&wager.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrWagerNotFound
	}
	if err != nil {
		return storageError(fmt.Sprintf("update wager %s", wager.ID), err)
	}
	return nil
}

// ListOpen returns wagers still waiting for an opponent, newest first
func (r *WagerRepository) ListOpen(ctx context.Context, limit int) ([]*models.Wager, error) {
	wagers, err := r.getMany(ctx, `
		SELECT `+wagerColumns+` FROM wagers
		WHERE status IN ('pending', 'awaiting_opponent_roll') AND opponent_id IS NULL
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, storageError("list open wagers", err)
	}
	return wagers, nil
}

// ListActiveByAccount returns non-terminal wagers the account takes part in
func (r *WagerRepository) ListActiveByAccount(ctx context.Context, accountID int64) ([]*models.Wager, error) {
	wagers, err := r.getMany(ctx, `
		SELECT `+wagerColumns+` FROM wagers
		WHERE (creator_id = $1 OR opponent_id = $1)
		  AND status NOT IN ('completed', 'cancelled')
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, storageError(fmt.Sprintf("list active wagers of %d", accountID), err)
	}
	return wagers, nil
}

// ListByStatus returns all wagers in the given status, oldest first
func (r *WagerRepository) ListByStatus(ctx context.Context, status models.WagerStatus) ([]*models.Wager, error) {
	wagers, err := r.getMany(ctx, `
		SELECT `+wagerColumns+` FROM wagers
		WHERE status = $1::wager_status
		ORDER BY updated_at ASC
	`, string(status))
	if err != nil {
		return nil, storageError(fmt.Sprintf("list %s wagers", status), err)
	}
	return wagers, nil
}
