package service

import (
	"context"
	"errors"
	"math/big"
	"time"

	"funplanet-backend/internal/chain"
	"funplanet-backend/internal/model"
	"funplanet-backend/internal/repository"
	"funplanet-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/google/uuid"
)

type DonationService struct {
	repo        DonationRepository
	chain       ChainClient
	treasury    string
	gasFloorWei *big.Int
	sendDelay   time.Duration
}

func NewDonationService(repo DonationRepository, chainClient ChainClient, treasury string, gasFloorWei *big.Int, sendDelay time.Duration) *DonationService {
	if sendDelay == 0 {
		sendDelay = 2 * time.Second
	}
	return &DonationService{
		repo:        repo,
		chain:       chainClient,
		treasury:    treasury,
		gasFloorWei: gasFloorWei,
		sendDelay:   sendDelay,
	}
}

// Donate pledges part of the user's pending balance to the treasury. The
// ledger deduction happens now; the on-chain leg is swept later by an admin.
func (s *DonationService) Donate(ctx context.Context, userID uuid.UUID, amount int64, note string) (*model.Donation, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := s.repo.DeductPendingBalance(ctx, userID, amount); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}

	donation := &model.Donation{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Note:      note,
		Status:    model.DonationPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateDonation(ctx, donation); err != nil {
		if creditErr := s.repo.CreditPendingBalance(ctx, userID, amount); creditErr != nil {
			logger.Logger().Error("failed to re-credit donation amount",
				zap.String("user_id", userID.String()), zap.Error(creditErr))
		}
		return nil, err
	}

	return donation, nil
}

type DonationResult struct {
	DonationID uuid.UUID
	Success    bool
	TxHash     string
	TxURL      string
	Error      string
}

type SweepResult struct {
	Processed int
	Failed    int
	Results   []DonationResult
}

// Process sweeps pending donations to the treasury, one transaction per
// record. Items run sequentially with a fixed delay so transfers from the
// shared reward key never race on the nonce. A per-item failure is recorded
// and the sweep continues; a pre-flight shortfall stops everything before
// any transfer.
func (s *DonationService) Process(ctx context.Context, donationID *uuid.UUID, processAll bool) (*SweepResult, error) {
	log := logger.Logger()

	var donations []*model.Donation
	switch {
	case donationID != nil:
		donation, err := s.repo.GetDonationByID(ctx, *donationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrDonationNotPending
			}
			return nil, err
		}
		if donation.Status != model.DonationPending {
			return nil, ErrDonationNotPending
		}
		donations = []*model.Donation{donation}
	case processAll:
		var err error
		donations, err = s.repo.GetPendingDonations(ctx)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoDonationSelected
	}

	if len(donations) == 0 {
		return &SweepResult{}, nil
	}

	var required int64
	for _, donation := range donations {
		required += donation.Amount
	}

	pool, err := s.chain.TokenBalance(ctx, s.chain.RewardWalletAddress())
	if err != nil {
		return nil, err
	}
	if available := chain.FromWei(pool); available < required {
		return nil, &InsufficientPoolError{Available: available, Required: required}
	}

	native, err := s.chain.NativeBalance(ctx, s.chain.RewardWalletAddress())
	if err != nil {
		return nil, err
	}
	if native.Cmp(s.gasFloorWei) < 0 {
		return nil, ErrInsufficientGas
	}

	result := &SweepResult{Results: make([]DonationResult, 0, len(donations))}
	for i, donation := range donations {
		if i > 0 {
			time.Sleep(s.sendDelay)
		}

		item := s.processOne(ctx, donation)
		result.Results = append(result.Results, item)
		if item.Success {
			result.Processed++
		} else {
			result.Failed++
			log.Warn("donation sweep item failed",
				zap.String("donation_id", donation.ID.String()),
				zap.String("error", item.Error))
		}
	}

	return result, nil
}

func (s *DonationService) processOne(ctx context.Context, donation *model.Donation) DonationResult {
	item := DonationResult{DonationID: donation.ID}

	txHash, err := s.chain.Transfer(ctx, s.treasury, chain.ToWei(donation.Amount), nil)
	if err != nil {
		item.Error = err.Error()
		s.markResult(ctx, donation.ID, model.DonationFailed, nil)
		return item
	}

	if err := s.chain.WaitMined(ctx, txHash); err != nil {
		item.Error = err.Error()
		item.TxHash = txHash
		s.markResult(ctx, donation.ID, model.DonationFailed, &txHash)
		return item
	}

	item.Success = true
	item.TxHash = txHash
	item.TxURL = s.chain.TxURL(txHash)
	s.markResult(ctx, donation.ID, model.DonationCompleted, &txHash)
	return item
}

func (s *DonationService) markResult(ctx context.Context, donationID uuid.UUID, status model.DonationStatus, txHash *string) {
	if err := s.repo.MarkDonationResult(ctx, donationID, status, txHash); err != nil {
		logger.Logger().Error("failed to record donation result",
			zap.String("donation_id", donationID.String()),
			zap.Error(err))
	}
}
