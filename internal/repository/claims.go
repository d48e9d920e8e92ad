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

type Claim struct {
	ID            uuid.UUID         `db:"id"`
	UserID        uuid.UUID         `db:"user_id"`
	WalletAddress string            `db:"wallet_address"`
	Type          model.ClaimType   `db:"claim_type"`
	Amount        int64             `db:"amount"`
	Status        model.ClaimStatus `db:"status"`
	GameID        *uuid.UUID        `db:"game_id"`
	TxHash        *string           `db:"tx_hash"`
	CreatedAt     time.Time         `db:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at"`
}

func (c *Claim) toModel() *model.Claim {
	return &model.Claim{
		ID:            c.ID,
		UserID:        c.UserID,
		WalletAddress: c.WalletAddress,
		Type:          c.Type,
		Amount:        c.Amount,
		Status:        c.Status,
		GameID:        c.GameID,
		TxHash:        c.TxHash,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (r *Repository) CreateClaim(ctx context.Context, claim *model.Claim) error {
	query, args, err := squirrel.
		Insert("claims").
		SetMap(map[string]interface{}{
			"id":             claim.ID,
			"user_id":        claim.UserID,
			"wallet_address": claim.WalletAddress,
			"claim_type":     claim.Type,
			"amount":         claim.Amount,
			"status":         claim.Status,
			"game_id":        claim.GameID,
			"tx_hash":        claim.TxHash,
			"created_at":     claim.CreatedAt,
			"updated_at":     claim.UpdatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build claim insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert claim: %w", err)
	}

	return nil
}

func (r *Repository) GetClaimByID(ctx context.Context, claimID uuid.UUID) (*model.Claim, error) {
	var claim Claim
	query, args, err := squirrel.
		Select("*").
		From("claims").
		Where(squirrel.Eq{"id": claimID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &claim, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return claim.toModel(), nil
}

// HasCompletedClaim reports whether a completed (or still in-flight) claim of
// the given type exists for the user. Pending and pending_approval rows count
// so a second request cannot race past the first.
func (r *Repository) HasCompletedClaim(ctx context.Context, userID uuid.UUID, claimType model.ClaimType) (bool, error) {
	return r.hasClaim(ctx, squirrel.And{
		squirrel.Eq{"user_id": userID},
		squirrel.Eq{"claim_type": claimType},
		squirrel.Eq{"status": []model.ClaimStatus{
			model.ClaimStatusCompleted,
			model.ClaimStatusPending,
			model.ClaimStatusPendingApproval,
		}},
	})
}

func (r *Repository) HasCompletedClaimToday(ctx context.Context, userID uuid.UUID, claimType model.ClaimType, day time.Time) (bool, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	return r.hasClaim(ctx, squirrel.And{
		squirrel.Eq{"user_id": userID},
		squirrel.Eq{"claim_type": claimType},
		squirrel.Eq{"status": []model.ClaimStatus{
			model.ClaimStatusCompleted,
			model.ClaimStatusPending,
			model.ClaimStatusPendingApproval,
		}},
		squirrel.GtOrEq{"created_at": dayStart},
		squirrel.Lt{"created_at": dayStart.Add(24 * time.Hour)},
	})
}

func (r *Repository) HasCompletedGameClaim(ctx context.Context, gameID uuid.UUID, claimType model.ClaimType) (bool, error) {
	return r.hasClaim(ctx, squirrel.And{
		squirrel.Eq{"game_id": gameID},
		squirrel.Eq{"claim_type": claimType},
		squirrel.Eq{"status": []model.ClaimStatus{
			model.ClaimStatusCompleted,
			model.ClaimStatusPending,
			model.ClaimStatusPendingApproval,
		}},
	})
}

func (r *Repository) hasClaim(ctx context.Context, where squirrel.And) (bool, error) {
	query, args, err := squirrel.
		Select("count(1)").
		From("claims").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	var count int
	err = r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *Repository) UpdateClaimStatus(ctx context.Context, claimID uuid.UUID, status model.ClaimStatus, txHash *string) error {
	builder := squirrel.
		Update("claims").
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": claimID})
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

// GetPendingApprovalClaims lists pending_approval claims belonging to any of
// the given parent's children.
func (r *Repository) GetPendingApprovalClaims(ctx context.Context, parentID uuid.UUID) ([]*model.Claim, error) {
	query, args, err := squirrel.
		Select("c.*").
		From("claims c").
		Join("users u ON u.id = c.user_id").
		Where(squirrel.Eq{"u.parent_id": parentID}).
		Where(squirrel.Eq{"c.status": model.ClaimStatusPendingApproval}).
		OrderBy("c.created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var claims []Claim
	err = r.db.SelectContext(ctx, &claims, query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Claim, len(claims))
	for i := range claims {
		out[i] = claims[i].toModel()
	}

	return out, nil
}

// ReserveDailyAllowance adds amount to the user's daily claim log for the
// given day, failing with ErrDailyLimitExceeded when the running total would
// pass the limit. The existing row is locked for the duration of the
// transaction so concurrent claims serialize on the cap check. Returns the
// remaining allowance after the reservation.
func (r *Repository) ReserveDailyAllowance(ctx context.Context, userID uuid.UUID, day time.Time, amount, limit int64) (int64, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	var remaining int64

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Select("amount_claimed").
			From("daily_claim_logs").
			Where(squirrel.Eq{"user_id": userID, "day": dayStart}).
			Suffix("FOR UPDATE").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		var claimed int64
		err = tx.GetContext(ctx, &claimed, query, args...)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if claimed+amount > limit {
			remaining = limit - claimed
			if remaining < 0 {
				remaining = 0
			}
			return ErrDailyLimitExceeded
		}

		upsert, upsertArgs, err := squirrel.
			Insert("daily_claim_logs").
			Columns("user_id", "day", "amount_claimed").
			Values(userID, dayStart, amount).
			Suffix("ON CONFLICT (user_id, day) DO UPDATE SET amount_claimed = daily_claim_logs.amount_claimed + EXCLUDED.amount_claimed").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, upsert, upsertArgs...)
		if err != nil {
			return err
		}

		remaining = limit - claimed - amount
		return nil
	})
	if err != nil {
		return remaining, err
	}

	return remaining, nil
}

// ReleaseDailyAllowance backs out a reservation after a failed transfer so
// the user is not charged allowance for tokens that never moved.
func (r *Repository) ReleaseDailyAllowance(ctx context.Context, userID uuid.UUID, day time.Time, amount int64) error {
	dayStart := day.UTC().Truncate(24 * time.Hour)

	query, args, err := squirrel.
		Update("daily_claim_logs").
		Set("amount_claimed", squirrel.Expr("GREATEST(amount_claimed - ?, 0)", amount)).
		Where(squirrel.Eq{"user_id": userID, "day": dayStart}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) GetDailyClaimed(ctx context.Context, userID uuid.UUID, day time.Time) (int64, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour)

	query, args, err := squirrel.
		Select("amount_claimed").
		From("daily_claim_logs").
		Where(squirrel.Eq{"user_id": userID, "day": dayStart}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var claimed int64
	err = r.db.GetContext(ctx, &claimed, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}

	return claimed, nil
}
