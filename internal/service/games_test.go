package service

import (
	"context"
	"mime/multipart"
	"strings"
	"testing"

	"funplanet-backend/internal/model"
	"funplanet-backend/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fileUpload(name string) Upload {
	return Upload{FileHeader: &multipart.FileHeader{Filename: name}}
}

func TestGameService_Upload(t *testing.T) {
	t.Run("stores bundle and cover under the game key", func(t *testing.T) {
		repo := &mocks.MockGameRepository{}
		storage := &mocks.MockUploader{}

		storage.On("UploadFile", mock.Anything, mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "games/") && strings.HasSuffix(key, "/bundle.zip")
		})).Return("https://cdn.test/bundle.zip", nil)
		storage.On("UploadFile", mock.Anything, mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "games/") && strings.HasSuffix(key, "/cover.png")
		})).Return("https://cdn.test/cover.png", nil)
		repo.On("CreateGame", mock.Anything, mock.MatchedBy(func(game *model.Game) bool {
			return game.BundleURL == "https://cdn.test/bundle.zip" &&
				game.CoverURL == "https://cdn.test/cover.png"
		})).Return(nil)

		service := NewGameService(repo, storage)
		game, err := service.Upload(context.Background(),
			&model.Game{OwnerID: uuid.New(), Title: "maze runner"},
			fileUpload("maze.zip"), fileUpload("art.png"))

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, game.ID)
		repo.AssertExpectations(t)
		storage.AssertExpectations(t)
	})

	t.Run("cover is optional", func(t *testing.T) {
		repo := &mocks.MockGameRepository{}
		storage := &mocks.MockUploader{}

		storage.On("UploadFile", mock.Anything, mock.Anything, mock.Anything).
			Return("https://cdn.test/bundle.zip", nil).Once()
		repo.On("CreateGame", mock.Anything, mock.MatchedBy(func(game *model.Game) bool {
			return game.BundleURL == "https://cdn.test/bundle.zip" && game.CoverURL == ""
		})).Return(nil)

		service := NewGameService(repo, storage)
		_, err := service.Upload(context.Background(),
			&model.Game{OwnerID: uuid.New(), Title: "maze runner"},
			fileUpload("maze.zip"), Upload{})

		require.NoError(t, err)
		repo.AssertExpectations(t)
		storage.AssertExpectations(t)
	})

	t.Run("missing bundle is rejected", func(t *testing.T) {
		repo := &mocks.MockGameRepository{}
		storage := &mocks.MockUploader{}

		service := NewGameService(repo, storage)
		_, err := service.Upload(context.Background(),
			&model.Game{OwnerID: uuid.New(), Title: "maze runner"},
			Upload{}, Upload{})

		assert.Error(t, err)
		storage.AssertNotCalled(t, "UploadFile", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "CreateGame", mock.Anything, mock.Anything)
	})

	t.Run("storage failure skips the record", func(t *testing.T) {
		repo := &mocks.MockGameRepository{}
		storage := &mocks.MockUploader{}

		storage.On("UploadFile", mock.Anything, mock.Anything, mock.Anything).
			Return("", assert.AnError)

		service := NewGameService(repo, storage)
		_, err := service.Upload(context.Background(),
			&model.Game{OwnerID: uuid.New(), Title: "maze runner"},
			fileUpload("maze.zip"), Upload{})

		assert.ErrorIs(t, err, assert.AnError)
		repo.AssertNotCalled(t, "CreateGame", mock.Anything, mock.Anything)
	})
}
