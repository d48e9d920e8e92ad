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

type Game struct {
	ID          uuid.UUID `db:"id"`
	OwnerID     uuid.UUID `db:"owner_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	BundleURL   string    `db:"bundle_url"`
	CoverURL    string    `db:"cover_url"`
	CreatedAt   time.Time `db:"created_at"`
}

func (g *Game) toModel() *model.Game {
	return &model.Game{
		ID:          g.ID,
		OwnerID:     g.OwnerID,
		Title:       g.Title,
		Description: g.Description,
		BundleURL:   g.BundleURL,
		CoverURL:    g.CoverURL,
		CreatedAt:   g.CreatedAt,
	}
}

func (r *Repository) CreateGame(ctx context.Context, game *model.Game) error {
	query, args, err := squirrel.
		Insert("games").
		SetMap(map[string]interface{}{
			"id":          game.ID,
			"owner_id":    game.OwnerID,
			"title":       game.Title,
			"description": game.Description,
			"bundle_url":  game.BundleURL,
			"cover_url":   game.CoverURL,
			"created_at":  game.CreatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build game insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}

	return nil
}

func (r *Repository) GetGameByID(ctx context.Context, gameID uuid.UUID) (*model.Game, error) {
	var game Game
	query, args, err := squirrel.
		Select("*").
		From("games").
		Where(squirrel.Eq{"id": gameID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &game, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return game.toModel(), nil
}

func (r *Repository) ListGames(ctx context.Context, limit int) ([]*model.Game, error) {
	query, args, err := squirrel.
		Select("*").
		From("games").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var games []Game
	err = r.db.SelectContext(ctx, &games, query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Game, len(games))
	for i := range games {
		out[i] = games[i].toModel()
	}

	return out, nil
}
