package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"funplanet-backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ClaimIntent struct {
	ID        uuid.UUID          `db:"id"`
	ClaimID   uuid.UUID          `db:"claim_id"`
	UserID    uuid.UUID          `db:"user_id"`
	ToAddress string             `db:"to_address"`
	Amount    int64              `db:"amount"`
	TxHash    *string            `db:"tx_hash"`
	Status    model.IntentStatus `db:"status"`
	CreatedAt time.Time          `db:"created_at"`
	UpdatedAt time.Time          `db:"updated_at"`
}

func (i *ClaimIntent) toModel() *model.ClaimIntent {
	return &model.ClaimIntent{
		ID:        i.ID,
		ClaimID:   i.ClaimID,
		UserID:    i.UserID,
		ToAddress: i.ToAddress,
		Amount:    i.Amount,
		TxHash:    i.TxHash,
		Status:    i.Status,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func (r *Repository) CreateIntent(ctx context.Context, intent *model.ClaimIntent) error {
	query, args, err := squirrel.
		Insert("claim_intents").
		SetMap(map[string]interface{}{
			"id":         intent.ID,
			"claim_id":   intent.ClaimID,
			"user_id":    intent.UserID,
			"to_address": intent.ToAddress,
			"amount":     intent.Amount,
			"tx_hash":    intent.TxHash,
			"status":     intent.Status,
			"created_at": intent.CreatedAt,
			"updated_at": intent.UpdatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build intent insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert intent: %w", err)
	}

	return nil
}

func (r *Repository) MarkIntentSubmitted(ctx context.Context, intentID uuid.UUID, txHash string) error {
	return r.updateIntent(ctx, intentID, model.IntentSubmitted, &txHash)
}

// MarkIntentStatus moves an intent to a terminal state. Settlement steps are
// keyed by intent id, so repeating them after a crash is harmless.
func (r *Repository) MarkIntentStatus(ctx context.Context, intentID uuid.UUID, status model.IntentStatus) error {
	return r.updateIntent(ctx, intentID, status, nil)
}

func (r *Repository) updateIntent(ctx context.Context, intentID uuid.UUID, status model.IntentStatus, txHash *string) error {
	builder := squirrel.
		Update("claim_intents").
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": intentID})
	if txHash != nil {
		builder = builder.Set("tx_hash", *txHash)
	}

	query, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Repository) GetIntentByID(ctx context.Context, intentID uuid.UUID) (*model.ClaimIntent, error) {
	var intent ClaimIntent
	query, args, err := squirrel.
		Select("*").
		From("claim_intents").
		Where(squirrel.Eq{"id": intentID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &intent, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return intent.toModel(), nil
}

// FinalizeIntent settles a successful on-chain transfer: intent confirmed,
// claim completed, total_claimed bumped, all in one transaction. The guard on
// the intent's status makes the operation idempotent; a second finalize (or a
// finalize racing a compensation) returns ErrIntentSettled and changes
// nothing.
func (r *Repository) FinalizeIntent(ctx context.Context, intent *model.ClaimIntent, txHash string) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := claimIntentTransition(ctx, tx, intent.ID, model.IntentConfirmed, &txHash); err != nil {
			return err
		}

		now := time.Now().UTC()
		claimQuery, claimArgs, err := squirrel.
			Update("claims").
			Set("status", model.ClaimStatusCompleted).
			Set("tx_hash", txHash).
			Set("updated_at", now).
			Where(squirrel.Eq{"id": intent.ClaimID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, claimQuery, claimArgs...); err != nil {
			return err
		}

		userQuery, userArgs, err := squirrel.
			Update("users").
			Set("total_claimed", squirrel.Expr("total_claimed + ?", intent.Amount)).
			Where(squirrel.Eq{"id": intent.UserID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, userQuery, userArgs...)
		return err
	})
}

// CompensateIntent backs out a failed transfer: intent failed, claim failed,
// the deducted balance re-credited and the daily allowance released, all in
// one transaction keyed by intent id.
func (r *Repository) CompensateIntent(ctx context.Context, intent *model.ClaimIntent) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := claimIntentTransition(ctx, tx, intent.ID, model.IntentFailed, nil); err != nil {
			return err
		}

		now := time.Now().UTC()
		claimQuery, claimArgs, err := squirrel.
			Update("claims").
			Set("status", model.ClaimStatusFailed).
			Set("updated_at", now).
			Where(squirrel.Eq{"id": intent.ClaimID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, claimQuery, claimArgs...); err != nil {
			return err
		}

		creditQuery, creditArgs, err := squirrel.
			Update("users").
			Set("pending_balance", squirrel.Expr("pending_balance + ?", intent.Amount)).
			Where(squirrel.Eq{"id": intent.UserID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, creditQuery, creditArgs...); err != nil {
			return err
		}

		dayStart := intent.CreatedAt.UTC().Truncate(24 * time.Hour)
		dailyQuery, dailyArgs, err := squirrel.
			Update("daily_claim_logs").
			Set("amount_claimed", squirrel.Expr("GREATEST(amount_claimed - ?, 0)", intent.Amount)).
			Where(squirrel.Eq{"user_id": intent.UserID, "day": dayStart}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, dailyQuery, dailyArgs...)
		return err
	})
}

// claimIntentTransition moves an intent out of its in-flight states. Zero
// rows affected means another settlement path got there first.
func claimIntentTransition(ctx context.Context, tx *sqlx.Tx, intentID uuid.UUID, status model.IntentStatus, txHash *string) error {
	builder := squirrel.
		Update("claim_intents").
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": intentID}).
		Where(squirrel.Eq{"status": []model.IntentStatus{model.IntentPending, model.IntentSubmitted}})
	if txHash != nil {
		builder = builder.Set("tx_hash", *txHash)
	}

	query, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrIntentSettled
	}

	return nil
}

// GetStaleIntents returns non-terminal intents last touched before the cutoff.
// These are the rows the reconciler re-examines against the chain.
func (r *Repository) GetStaleIntents(ctx context.Context, cutoff time.Time) ([]*model.ClaimIntent, error) {
	query, args, err := squirrel.
		Select("*").
		From("claim_intents").
		Where(squirrel.Eq{"status": []model.IntentStatus{model.IntentPending, model.IntentSubmitted}}).
		Where(squirrel.Lt{"updated_at": cutoff}).
		OrderBy("created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var intents []ClaimIntent
	err = r.db.SelectContext(ctx, &intents, query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]*model.ClaimIntent, len(intents))
	for i := range intents {
		out[i] = intents[i].toModel()
	}

	return out, nil
}
