package service

import (
	"context"
	"time"

	"funplanet-backend/internal/model"

	"github.com/google/uuid"
)

// Fixed reward amounts in whole CAMLY.
const (
	FirstWalletReward    = 50_000
	GameCompletionReward = 1_000
	GameUploadReward     = 10_000
)

// claimRule binds a claim type to its reward amount and eligibility check.
// Amount-bearing types (arbitrary, direct) have their own entry points and do
// not appear here, so a lookup miss is exactly "unknown claim type" for the
// fixed-reward endpoint.
type claimRule struct {
	Amount       int64
	RequiresGame bool
	Eligible     func(ctx context.Context, s *ClaimService, userID uuid.UUID, gameID *uuid.UUID) error
}

var claimRules = map[model.ClaimType]claimRule{
	model.ClaimFirstWallet: {
		Amount: FirstWalletReward,
		Eligible: func(ctx context.Context, s *ClaimService, userID uuid.UUID, _ *uuid.UUID) error {
			claimed, err := s.repo.HasCompletedClaim(ctx, userID, model.ClaimFirstWallet)
			if err != nil {
				return err
			}
			if claimed {
				return ErrAlreadyClaimed
			}
			return nil
		},
	},
	model.ClaimGameCompletion: {
		Amount: GameCompletionReward,
		Eligible: func(ctx context.Context, s *ClaimService, userID uuid.UUID, _ *uuid.UUID) error {
			claimed, err := s.repo.HasCompletedClaimToday(ctx, userID, model.ClaimGameCompletion, time.Now().UTC())
			if err != nil {
				return err
			}
			if claimed {
				return ErrAlreadyClaimed
			}
			return nil
		},
	},
	model.ClaimGameUpload: {
		Amount:       GameUploadReward,
		RequiresGame: true,
		Eligible: func(ctx context.Context, s *ClaimService, userID uuid.UUID, gameID *uuid.UUID) error {
			game, err := s.repo.GetGameByID(ctx, *gameID)
			if err != nil {
				return ErrGameNotFound
			}
			if game.OwnerID != userID {
				return ErrNotGameOwner
			}

			claimed, err := s.repo.HasCompletedGameClaim(ctx, *gameID, model.ClaimGameUpload)
			if err != nil {
				return err
			}
			if claimed {
				return ErrAlreadyClaimed
			}
			return nil
		},
	},
}
