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
)

type Donation struct {
	ID          uuid.UUID            `db:"id"`
	UserID      uuid.UUID            `db:"user_id"`
	Amount      int64                `db:"amount"`
	Note        string               `db:"note"`
	Status      model.DonationStatus `db:"status"`
	TxHash      *string              `db:"tx_hash"`
	CreatedAt   time.Time            `db:"created_at"`
	ProcessedAt *time.Time           `db:"processed_at"`
}

func (d *Donation) toModel() *model.Donation {
	return &model.Donation{
		ID:          d.ID,
		UserID:      d.UserID,
		Amount:      d.Amount,
		Note:        d.Note,
		Status:      d.Status,
		TxHash:      d.TxHash,
		CreatedAt:   d.CreatedAt,
		ProcessedAt: d.ProcessedAt,
	}
}

func (r *Repository) CreateDonation(ctx context.Context, donation *model.Donation) error {
	query, args, err := squirrel.
		Insert("donations").
		SetMap(map[string]interface{}{
			"id":         donation.ID,
			"user_id":    donation.UserID,
			"amount":     donation.Amount,
			"note":       donation.Note,
			"status":     donation.Status,
			"created_at": donation.CreatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build donation insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert donation: %w", err)
	}

	return nil
}

func (r *Repository) GetDonationByID(ctx context.Context, donationID uuid.UUID) (*model.Donation, error) {
	var donation Donation
	query, args, err := squirrel.
		Select("*").
		From("donations").
		Where(squirrel.Eq{"id": donationID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &donation, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return donation.toModel(), nil
}

func (r *Repository) GetPendingDonations(ctx context.Context) ([]*model.Donation, error) {
	query, args, err := squirrel.
		Select("*").
		From("donations").
		Where(squirrel.Eq{"status": model.DonationPending}).
		OrderBy("created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var donations []Donation
	err = r.db.SelectContext(ctx, &donations, query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Donation, len(donations))
	for i := range donations {
		out[i] = donations[i].toModel()
	}

	return out, nil
}

func (r *Repository) MarkDonationResult(ctx context.Context, donationID uuid.UUID, status model.DonationStatus, txHash *string) error {
	now := time.Now().UTC()
	builder := squirrel.
		Update("donations").
		Set("status", status).
		Set("processed_at", now).
		Where(squirrel.Eq{"id": donationID})
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
