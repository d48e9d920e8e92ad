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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const uniqueViolationCode = "23505"

type User struct {
	ID               uuid.UUID  `db:"id"`
	Username         string     `db:"username"`
	Email            string     `db:"email"`
	WalletAddress    *string    `db:"wallet_address"`
	PendingBalance   int64      `db:"pending_balance"`
	TotalClaimed     int64      `db:"total_claimed"`
	IsAdmin          bool       `db:"is_admin"`
	ParentID         *uuid.UUID `db:"parent_id"`
	RegistrationDate time.Time  `db:"registration_date"`
}

func (u *User) toModel() *model.User {
	return &model.User{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		WalletAddress:    u.WalletAddress,
		PendingBalance:   u.PendingBalance,
		TotalClaimed:     u.TotalClaimed,
		IsAdmin:          u.IsAdmin,
		ParentID:         u.ParentID,
		RegistrationDate: u.RegistrationDate,
	}
}

func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query, args, err := squirrel.
		Insert("users").
		SetMap(map[string]interface{}{
			"id":                user.ID,
			"username":          user.Username,
			"email":             user.Email,
			"wallet_address":    user.WalletAddress,
			"pending_balance":   user.PendingBalance,
			"is_admin":          user.IsAdmin,
			"parent_id":         user.ParentID,
			"registration_date": user.RegistrationDate,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	var user User
	query, args, err := squirrel.
		Select("*").
		From("users").
		Where(squirrel.Eq{"id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user User
	query, args, err := squirrel.
		Select("*").
		From("users").
		Where(squirrel.Eq{"username": username}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

// SetWalletAddress binds a wallet to the user. Returns true when this is the
// first wallet ever set for the account, which makes the user eligible for
// the first_wallet claim.
func (r *Repository) SetWalletAddress(ctx context.Context, userID uuid.UUID, address string) (bool, error) {
	var firstSet bool

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		takenQuery, takenArgs, err := squirrel.
			Select("count(1)").
			From("users").
			Where(squirrel.Eq{"wallet_address": address}).
			Where(squirrel.NotEq{"id": userID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		var taken int
		if err := tx.GetContext(ctx, &taken, takenQuery, takenArgs...); err != nil {
			return err
		}
		if taken > 0 {
			return ErrWalletTaken
		}

		var current *string
		currentQuery, currentArgs, err := squirrel.
			Select("wallet_address").
			From("users").
			Where(squirrel.Eq{"id": userID}).
			Suffix("FOR UPDATE").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		if err := tx.GetContext(ctx, &current, currentQuery, currentArgs...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		firstSet = current == nil

		updateQuery, updateArgs, err := squirrel.
			Update("users").
			Set("wallet_address", address).
			Where(squirrel.Eq{"id": userID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, updateQuery, updateArgs...)
		return err
	})
	if err != nil {
		return false, err
	}

	return firstSet, nil
}

func (r *Repository) CreditPendingBalance(ctx context.Context, userID uuid.UUID, amount int64) error {
	query, args, err := squirrel.
		Update("users").
		Set("pending_balance", squirrel.Expr("pending_balance + ?", amount)).
		Where(squirrel.Eq{"id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
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

// DeductPendingBalance removes amount from the user's off-chain ledger. The
// balance check lives in the UPDATE predicate so concurrent claims cannot
// overdraw the account.
func (r *Repository) DeductPendingBalance(ctx context.Context, userID uuid.UUID, amount int64) error {
	query, args, err := squirrel.
		Update("users").
		Set("pending_balance", squirrel.Expr("pending_balance - ?", amount)).
		Where(squirrel.Eq{"id": userID}).
		Where(squirrel.Expr("pending_balance >= ?", amount)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
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
		return ErrInsufficientBalance
	}

	return nil
}

func (r *Repository) GetTopUsers(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	query, args, err := squirrel.
		Select("username", "total_claimed", "pending_balance").
		From("users").
		OrderBy("total_claimed DESC, pending_balance DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Username       string `db:"username"`
		TotalClaimed   int64  `db:"total_claimed"`
		PendingBalance int64  `db:"pending_balance"`
	}
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}

	entries := make([]*model.LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = &model.LeaderboardEntry{
			Username:     row.Username,
			TotalClaimed: row.TotalClaimed,
			Pending:      row.PendingBalance,
		}
	}

	return entries, nil
}

func (r *Repository) GetChildren(ctx context.Context, parentID uuid.UUID) ([]*model.User, error) {
	query, args, err := squirrel.
		Select("*").
		From("users").
		Where(squirrel.Eq{"parent_id": parentID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var users []User
	err = r.db.SelectContext(ctx, &users, query, args...)
	if err != nil {
		return nil, err
	}

	children := make([]*model.User, len(users))
	for i := range users {
		children[i] = users[i].toModel()
	}

	return children, nil
}
