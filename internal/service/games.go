package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"funplanet-backend/internal/model"
	"funplanet-backend/internal/repository"

	"github.com/google/uuid"
)

const gameListLimit = 100

// Upload is a file received from a multipart form, destined for object storage.
type Upload struct {
	FileHeader *multipart.FileHeader
}

// Uploader stores a file and returns its public URL.
type Uploader interface {
	UploadFile(ctx context.Context, fileHeader *multipart.FileHeader, key string) (string, error)
}

type GameService struct {
	repo    GameRepository
	storage Uploader
}

func NewGameService(repo GameRepository, storage Uploader) *GameService {
	return &GameService{
		repo:    repo,
		storage: storage,
	}
}

// Upload stores the game bundle and cover image, then records the game. A
// recorded game makes its owner eligible for the game-upload reward.
func (s *GameService) Upload(ctx context.Context, game *model.Game, bundle, cover Upload) (*model.Game, error) {
	if bundle.FileHeader == nil {
		return nil, errors.New("game bundle is required")
	}

	game.ID = uuid.New()
	game.CreatedAt = time.Now().UTC()

	bundleURL, err := s.storage.UploadFile(ctx, bundle.FileHeader, storageKey(game.ID, "bundle", bundle.FileHeader.Filename))
	if err != nil {
		return nil, err
	}
	game.BundleURL = bundleURL

	if cover.FileHeader != nil {
		coverURL, err := s.storage.UploadFile(ctx, cover.FileHeader, storageKey(game.ID, "cover", cover.FileHeader.Filename))
		if err != nil {
			return nil, err
		}
		game.CoverURL = coverURL
	}

	if err := s.repo.CreateGame(ctx, game); err != nil {
		return nil, err
	}

	return game, nil
}

func (s *GameService) List(ctx context.Context) ([]*model.Game, error) {
	return s.repo.ListGames(ctx, gameListLimit)
}

func (s *GameService) GetByID(ctx context.Context, gameID uuid.UUID) (*model.Game, error) {
	game, err := s.repo.GetGameByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return game, nil
}

func storageKey(gameID uuid.UUID, kind, filename string) string {
	return fmt.Sprintf("games/%s/%s%s", gameID, kind, filepath.Ext(filename))
}
