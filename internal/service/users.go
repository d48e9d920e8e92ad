package service

import (
	"context"
	"errors"
	"time"

	"funplanet-backend/internal/chain"
	"funplanet-backend/internal/model"
	"funplanet-backend/internal/repository"
	"funplanet-backend/pkg/auth"
	"funplanet-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/google/uuid"
)

const leaderboardSize = 20

type UserService struct {
	repo UserRepository
	auth *auth.BearerAuth
}

func NewUserService(repo UserRepository, bearerAuth *auth.BearerAuth) *UserService {
	return &UserService{
		repo: repo,
		auth: bearerAuth,
	}
}

func (s *UserService) Register(ctx context.Context, username, email string, parentID *uuid.UUID) (*model.User, string, error) {
	user := &model.User{
		ID:               uuid.New(),
		Username:         username,
		Email:            email,
		ParentID:         parentID,
		RegistrationDate: time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", err
	}

	token, err := s.auth.IssueToken(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}

	logger.Logger().Info("registered user",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))

	return user, token, nil
}

func (s *UserService) Login(ctx context.Context, username string) (string, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	return s.auth.IssueToken(user.ID, user.Username)
}

func (s *UserService) GetByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// SetWallet links a wallet address to the user. The first time a wallet is
// linked the caller should follow up with a first-wallet claim; SetWallet
// itself only records the address.
func (s *UserService) SetWallet(ctx context.Context, userID uuid.UUID, address string) (bool, error) {
	if !chain.IsValidAddress(address) {
		return false, ErrInvalidAddress
	}

	firstSet, err := s.repo.SetWalletAddress(ctx, userID, address)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return false, ErrUserNotFound
		case errors.Is(err, repository.ErrWalletTaken):
			return false, ErrWalletMismatch
		}
		return false, err
	}

	return firstSet, nil
}

// CreditReward adds earned CAMLY to the user's pending balance. This is the
// off-chain half of the reward flow; claims move it on-chain.
func (s *UserService) CreditReward(ctx context.Context, userID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}

	if err := s.repo.CreditPendingBalance(ctx, userID, amount); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *UserService) Leaderboard(ctx context.Context) ([]*model.LeaderboardEntry, error) {
	return s.repo.GetTopUsers(ctx, leaderboardSize)
}

// Children lists the accounts registered under a parent, for the parent
// dashboard alongside pending approvals.
func (s *UserService) Children(ctx context.Context, parentID uuid.UUID) ([]*model.User, error) {
	return s.repo.GetChildren(ctx, parentID)
}
