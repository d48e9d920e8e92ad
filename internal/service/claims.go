package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"funplanet-backend/internal/chain"
	"funplanet-backend/internal/model"
	"funplanet-backend/internal/repository"
	"funplanet-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
)

type ClaimService struct {
	repo        ClaimRepository
	chain       ChainClient
	notifier    *Notifier
	dailyLimit  int64
	gasFloorWei *big.Int
}

func NewClaimService(repo ClaimRepository, chainClient ChainClient, notifier *Notifier, dailyLimit int64, gasFloorWei *big.Int) *ClaimService {
	return &ClaimService{
		repo:        repo,
		chain:       chainClient,
		notifier:    notifier,
		dailyLimit:  dailyLimit,
		gasFloorWei: gasFloorWei,
	}
}

type ClaimResult struct {
	ClaimID        uuid.UUID
	Status         model.ClaimStatus
	TxHash         string
	TxURL          string
	Amount         int64
	NewPending     int64
	DailyRemaining int64
}

// Claim handles the fixed-reward claim types. Sequence: resolve user, bind
// wallet, check eligibility, then either park the claim for parental
// approval or settle it on-chain.
func (s *ClaimService) Claim(ctx context.Context, userID uuid.UUID, walletAddress string, claimType model.ClaimType, gameID *uuid.UUID) (*ClaimResult, error) {
	user, err := s.verifyWallet(ctx, userID, walletAddress)
	if err != nil {
		return nil, err
	}

	rule, ok := claimRules[claimType]
	if !ok {
		return nil, ErrUnknownClaimType
	}
	if rule.RequiresGame && gameID == nil {
		return nil, ErrGameRequired
	}

	if err := rule.Eligible(ctx, s, userID, gameID); err != nil {
		return nil, err
	}

	if user.PendingBalance < rule.Amount {
		return nil, ErrInsufficientBalance
	}

	claim := newClaim(user, walletAddress, claimType, rule.Amount, gameID)

	if user.IsChild() {
		claim.Status = model.ClaimStatusPendingApproval
		if err := s.repo.CreateClaim(ctx, claim); err != nil {
			return nil, err
		}
		s.publish(user.ID, claim, "")

		return &ClaimResult{
			ClaimID:    claim.ID,
			Status:     model.ClaimStatusPendingApproval,
			Amount:     claim.Amount,
			NewPending: user.PendingBalance,
		}, nil
	}

	if err := s.repo.CreateClaim(ctx, claim); err != nil {
		return nil, err
	}

	return s.settle(ctx, user, claim)
}

// ClaimDirect converts an arbitrary slice of the user's pending balance into
// an on-chain transfer.
func (s *ClaimService) ClaimDirect(ctx context.Context, userID uuid.UUID, walletAddress string, amount int64) (*ClaimResult, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	user, err := s.verifyWallet(ctx, userID, walletAddress)
	if err != nil {
		return nil, err
	}

	claim := newClaim(user, walletAddress, model.ClaimDirect, amount, nil)
	if err := s.repo.CreateClaim(ctx, claim); err != nil {
		return nil, err
	}

	return s.settle(ctx, user, claim)
}

// ClaimArbitrary is the guardian-gated variant: child accounts must present a
// valid parent signature over (wallet, amount) or the claim is parked for
// in-app approval.
func (s *ClaimService) ClaimArbitrary(ctx context.Context, userID uuid.UUID, walletAddress string, amount int64, parentSignature string) (*ClaimResult, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	user, err := s.verifyWallet(ctx, userID, walletAddress)
	if err != nil {
		return nil, err
	}

	if user.IsChild() {
		if parentSignature == "" {
			if user.PendingBalance < amount {
				return nil, ErrInsufficientBalance
			}

			claim := newClaim(user, walletAddress, model.ClaimArbitrary, amount, nil)
			claim.Status = model.ClaimStatusPendingApproval
			if err := s.repo.CreateClaim(ctx, claim); err != nil {
				return nil, err
			}
			s.publish(user.ID, claim, "")

			return nil, ErrParentApprovalRequired
		}

		if err := s.verifyParentSignature(ctx, user, walletAddress, amount, parentSignature); err != nil {
			return nil, err
		}
	}

	claim := newClaim(user, walletAddress, model.ClaimArbitrary, amount, nil)
	if err := s.repo.CreateClaim(ctx, claim); err != nil {
		return nil, err
	}

	return s.settle(ctx, user, claim)
}

// SignClaim issues an off-chain voucher instead of transferring: the balance
// is deducted optimistically and the client submits the transaction itself.
// A voucher the client never redeems is not reconciled.
func (s *ClaimService) SignClaim(ctx context.Context, userID uuid.UUID, walletAddress string, amount int64) (*model.ClaimVoucher, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	user, err := s.verifyWallet(ctx, userID, walletAddress)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeductPendingBalance(ctx, user.ID, amount); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}

	claim := newClaim(user, walletAddress, model.ClaimArbitrary, amount, nil)
	claim.Status = model.ClaimStatusSigned
	if err := s.repo.CreateClaim(ctx, claim); err != nil {
		s.refund(ctx, user.ID, amount)
		return nil, err
	}

	voucher, err := s.chain.IssueVoucher(walletAddress, chain.ToWei(amount))
	if err != nil {
		s.refund(ctx, user.ID, amount)
		if statusErr := s.repo.UpdateClaimStatus(ctx, claim.ID, model.ClaimStatusFailed, nil); statusErr != nil {
			logger.Logger().Error("failed to mark voucher claim failed",
				zap.String("claim_id", claim.ID.String()), zap.Error(statusErr))
		}
		return nil, err
	}

	return &model.ClaimVoucher{
		Signature:       voucher.Signature,
		Nonce:           voucher.Nonce,
		AmountWei:       voucher.AmountWei.String(),
		ContractAddress: voucher.ContractAddress,
		ChainID:         voucher.ChainID,
	}, nil
}

func (s *ClaimService) ListPendingApprovals(ctx context.Context, parentID uuid.UUID) ([]*model.Claim, error) {
	return s.repo.GetPendingApprovalClaims(ctx, parentID)
}

// ApproveClaim executes a claim previously parked as pending_approval, after
// verifying the caller is the claimant's parent. A claim in any other state
// is rejected, so re-approving a completed claim can never transfer twice.
func (s *ClaimService) ApproveClaim(ctx context.Context, parentID, claimID uuid.UUID) (*ClaimResult, error) {
	claim, err := s.repo.GetClaimByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}

	if claim.Status != model.ClaimStatusPendingApproval {
		return nil, ErrClaimNotApprovable
	}

	user, err := s.repo.GetUserByID(ctx, claim.UserID)
	if err != nil {
		return nil, err
	}
	if user.ParentID == nil || *user.ParentID != parentID {
		return nil, ErrNotParentOfClaimant
	}

	return s.settle(ctx, user, claim)
}

// DailyRemaining reports how much of today's allowance the user has left.
func (s *ClaimService) DailyRemaining(ctx context.Context, userID uuid.UUID) (int64, error) {
	claimed, err := s.repo.GetDailyClaimed(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	remaining := s.dailyLimit - claimed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *ClaimService) verifyWallet(ctx context.Context, userID uuid.UUID, walletAddress string) (*model.User, error) {
	if !chain.IsValidAddress(walletAddress) {
		return nil, ErrInvalidAddress
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if user.WalletAddress == nil {
		return nil, ErrWalletNotSet
	}
	if !chain.SameAddress(*user.WalletAddress, walletAddress) {
		return nil, ErrWalletMismatch
	}

	return user, nil
}

// ParentApprovalMessage is the exact text a guardian's wallet signs to
// authorize a child's claim. Kept stable: the frontend builds the identical
// string for personal_sign.
func ParentApprovalMessage(childWallet string, amount int64) []byte {
	return []byte(fmt.Sprintf("FUN Planet claim approval\nwallet: %s\namount: %d CAMLY",
		strings.ToLower(childWallet), amount))
}

func (s *ClaimService) verifyParentSignature(ctx context.Context, child *model.User, walletAddress string, amount int64, signature string) error {
	parent, err := s.repo.GetUserByID(ctx, *child.ParentID)
	if err != nil {
		return err
	}
	if parent.WalletAddress == nil {
		return ErrInvalidParentSignature
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return ErrInvalidParentSignature
	}

	recovered, err := chain.RecoverSigner(ParentApprovalMessage(walletAddress, amount), sig)
	if err != nil {
		return ErrInvalidParentSignature
	}
	if !chain.SameAddress(recovered.Hex(), *parent.WalletAddress) {
		return ErrInvalidParentSignature
	}

	return nil
}

// settle runs the on-chain leg of a claim: pre-flight checks, atomic ledger
// deduction, intent row, transfer, confirmation, finalize. Every mutation
// after the deduction is keyed by the intent id so the reconciler can repair
// a crash at any point.
func (s *ClaimService) settle(ctx context.Context, user *model.User, claim *model.Claim) (*ClaimResult, error) {
	log := logger.Logger()

	if err := s.preflight(ctx, claim.Amount); err != nil {
		s.failClaim(ctx, claim)
		return nil, err
	}

	if err := s.repo.DeductPendingBalance(ctx, user.ID, claim.Amount); err != nil {
		s.failClaim(ctx, claim)
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}

	now := time.Now().UTC()
	dailyRemaining, err := s.repo.ReserveDailyAllowance(ctx, user.ID, now, claim.Amount, s.dailyLimit)
	if err != nil {
		s.refund(ctx, user.ID, claim.Amount)
		s.failClaim(ctx, claim)
		if errors.Is(err, repository.ErrDailyLimitExceeded) {
			return nil, ErrDailyLimitExceeded
		}
		return nil, err
	}

	intent := &model.ClaimIntent{
		ID:        uuid.New(),
		ClaimID:   claim.ID,
		UserID:    user.ID,
		ToAddress: claim.WalletAddress,
		Amount:    claim.Amount,
		Status:    model.IntentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateIntent(ctx, intent); err != nil {
		s.refund(ctx, user.ID, claim.Amount)
		if releaseErr := s.repo.ReleaseDailyAllowance(ctx, user.ID, now, claim.Amount); releaseErr != nil {
			log.Error("failed to release daily allowance", zap.Error(releaseErr))
		}
		s.failClaim(ctx, claim)
		return nil, err
	}

	txHash, err := s.chain.Transfer(ctx, claim.WalletAddress, chain.ToWei(claim.Amount), func(hash string) error {
		// Recorded before the broadcast, so an intent without a hash always
		// means the transaction was never sent.
		if err := s.repo.MarkIntentSubmitted(ctx, intent.ID, hash); err != nil {
			return fmt.Errorf("failed to record submitted intent: %w", err)
		}
		h := hash
		intent.TxHash = &h
		intent.Status = model.IntentSubmitted
		return nil
	})
	if err != nil {
		if intent.TxHash != nil {
			// The intent is recorded as submitted but the broadcast failed in
			// a way that may still have reached the network. The reconciler
			// settles it from the receipt.
			log.Warn("send failed after intent was recorded",
				zap.String("intent_id", intent.ID.String()),
				zap.String("tx_hash", *intent.TxHash),
				zap.Error(err))
			claim.Status = model.ClaimStatusPending
			s.publish(user.ID, claim, *intent.TxHash)
			return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}

		s.compensate(ctx, intent)
		claim.Status = model.ClaimStatusFailed
		s.publish(user.ID, claim, "")
		if errors.Is(err, chain.ErrInsufficientGas) {
			return nil, ErrInsufficientGas
		}
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	result := &ClaimResult{
		ClaimID:        claim.ID,
		TxHash:         txHash,
		TxURL:          s.chain.TxURL(txHash),
		Amount:         claim.Amount,
		NewPending:     user.PendingBalance - claim.Amount,
		DailyRemaining: dailyRemaining,
	}

	if err := s.chain.WaitMined(ctx, txHash); err != nil {
		if errors.Is(err, chain.ErrTxReverted) {
			s.compensate(ctx, intent)
			claim.Status = model.ClaimStatusFailed
			s.publish(user.ID, claim, txHash)
			return nil, fmt.Errorf("%w: transaction reverted", ErrTransferFailed)
		}

		// Confirmation timed out: the transfer may still land. Leave the
		// intent submitted for the reconciler and report the claim pending.
		log.Warn("claim confirmation pending",
			zap.String("claim_id", claim.ID.String()),
			zap.String("tx_hash", txHash),
			zap.Error(err))
		claim.Status = model.ClaimStatusPending
		s.publish(user.ID, claim, txHash)
		result.Status = model.ClaimStatusPending
		return result, nil
	}

	if err := s.repo.FinalizeIntent(ctx, intent, txHash); err != nil && !errors.Is(err, repository.ErrIntentSettled) {
		log.Error("failed to finalize intent",
			zap.String("intent_id", intent.ID.String()),
			zap.Error(err))
	}

	claim.Status = model.ClaimStatusCompleted
	s.publish(user.ID, claim, txHash)
	result.Status = model.ClaimStatusCompleted
	return result, nil
}

// preflight verifies the reward wallet can actually fund the transfer before
// any ledger mutation happens.
func (s *ClaimService) preflight(ctx context.Context, amount int64) error {
	pool, err := s.chain.TokenBalance(ctx, s.chain.RewardWalletAddress())
	if err != nil {
		return err
	}
	if available := chain.FromWei(pool); available < amount {
		return &InsufficientPoolError{Available: available, Required: amount}
	}

	native, err := s.chain.NativeBalance(ctx, s.chain.RewardWalletAddress())
	if err != nil {
		return err
	}
	if native.Cmp(s.gasFloorWei) < 0 {
		return ErrInsufficientGas
	}

	return nil
}

func (s *ClaimService) compensate(ctx context.Context, intent *model.ClaimIntent) {
	err := s.repo.CompensateIntent(ctx, intent)
	if err != nil && !errors.Is(err, repository.ErrIntentSettled) {
		logger.Logger().Error("failed to compensate intent",
			zap.String("intent_id", intent.ID.String()),
			zap.Error(err))
	}
}

func (s *ClaimService) refund(ctx context.Context, userID uuid.UUID, amount int64) {
	if err := s.repo.CreditPendingBalance(ctx, userID, amount); err != nil {
		logger.Logger().Error("failed to re-credit pending balance",
			zap.String("user_id", userID.String()),
			zap.Int64("amount", amount),
			zap.Error(err))
	}
}

func (s *ClaimService) failClaim(ctx context.Context, claim *model.Claim) {
	if err := s.repo.UpdateClaimStatus(ctx, claim.ID, model.ClaimStatusFailed, nil); err != nil {
		logger.Logger().Error("failed to mark claim failed",
			zap.String("claim_id", claim.ID.String()),
			zap.Error(err))
	}
	claim.Status = model.ClaimStatusFailed
}

func (s *ClaimService) publish(userID uuid.UUID, claim *model.Claim, txHash string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(userID, model.ClaimEvent{
		ClaimID: claim.ID,
		Status:  string(claim.Status),
		TxHash:  txHash,
		Amount:  claim.Amount,
	})
}

func newClaim(user *model.User, walletAddress string, claimType model.ClaimType, amount int64, gameID *uuid.UUID) *model.Claim {
	now := time.Now().UTC()
	return &model.Claim{
		ID:            uuid.New(),
		UserID:        user.ID,
		WalletAddress: walletAddress,
		Type:          claimType,
		Amount:        amount,
		Status:        model.ClaimStatusPending,
		GameID:        gameID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
