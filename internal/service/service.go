package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"funplanet-backend/internal/chain"
	"funplanet-backend/internal/gateway"
	"funplanet-backend/internal/model"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrUsernameTaken          = errors.New("username or email already registered")
	ErrWalletNotSet           = errors.New("no wallet address on file")
	ErrWalletMismatch         = errors.New("wallet address does not match the one on file")
	ErrInvalidAddress         = errors.New("invalid wallet address")
	ErrNonPositiveAmount      = errors.New("amount must be positive")
	ErrUnknownClaimType       = errors.New("unknown claim type")
	ErrAlreadyClaimed         = errors.New("already claimed")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrDailyLimitExceeded     = errors.New("daily claim limit exceeded")
	ErrParentApprovalRequired = errors.New("parent approval required")
	ErrInvalidParentSignature = errors.New("invalid parent signature")
	ErrGameNotFound           = errors.New("game not found")
	ErrGameRequired           = errors.New("game_id is required for this claim type")
	ErrClaimNotFound          = errors.New("claim not found")
	ErrNotGameOwner           = errors.New("game belongs to another user")
	ErrClaimNotApprovable     = errors.New("claim is not awaiting approval")
	ErrNotParentOfClaimant    = errors.New("claim does not belong to one of your children")
	ErrTransferFailed         = errors.New("on-chain transfer failed")
	ErrInsufficientGas        = errors.New("insufficient BNB for gas in reward wallet")
	ErrDonationNotPending     = errors.New("donation is not pending")
	ErrNoDonationSelected     = errors.New("either donation_id or process_all must be set")
)

// InsufficientPoolError reports a pre-flight shortfall of the reward wallet's
// on-chain token balance, with numeric context for the caller.
type InsufficientPoolError struct {
	Available int64
	Required  int64
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("insufficient reward pool: have %d, need %d CAMLY", e.Available, e.Required)
}

type Service struct {
	*UserService
	*ClaimService
	*DonationService
	*GameService
	*GatewayService
}

func NewService(
	userService *UserService,
	claimService *ClaimService,
	donationService *DonationService,
	gameService *GameService,
	gatewayService *GatewayService,
) *Service {
	return &Service{
		UserService:     userService,
		ClaimService:    claimService,
		DonationService: donationService,
		GameService:     gameService,
		GatewayService:  gatewayService,
	}
}

type UserServiceI interface {
	Register(ctx context.Context, username, email string, parentID *uuid.UUID) (*model.User, string, error)
	Login(ctx context.Context, username string) (string, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
	SetWallet(ctx context.Context, userID uuid.UUID, address string) (bool, error)
	CreditReward(ctx context.Context, userID uuid.UUID, amount int64) error
	Leaderboard(ctx context.Context) ([]*model.LeaderboardEntry, error)
	Children(ctx context.Context, parentID uuid.UUID) ([]*model.User, error)
}

type ClaimServiceI interface {
	Claim(ctx context.Context, userID uuid.UUID, walletAddress string, claimType model.ClaimType, gameID *uuid.UUID) (*ClaimResult, error)
	ClaimDirect(ctx context.Context, userID uuid.UUID, walletAddress string, amount int64) (*ClaimResult, error)
	ClaimArbitrary(ctx context.Context, userID uuid.UUID, walletAddress string, amount int64, parentSignature string) (*ClaimResult, error)
	SignClaim(ctx context.Context, userID uuid.UUID, walletAddress string, amount int64) (*model.ClaimVoucher, error)
	ListPendingApprovals(ctx context.Context, parentID uuid.UUID) ([]*model.Claim, error)
	ApproveClaim(ctx context.Context, parentID, claimID uuid.UUID) (*ClaimResult, error)
}

type DonationServiceI interface {
	Donate(ctx context.Context, userID uuid.UUID, amount int64, note string) (*model.Donation, error)
	Process(ctx context.Context, donationID *uuid.UUID, processAll bool) (*SweepResult, error)
}

type GatewayServiceI interface {
	Chat(ctx context.Context, messages []gateway.ChatMessage) (string, error)
	RateGame(ctx context.Context, title, description string) (*gateway.GameRating, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type GameServiceI interface {
	Upload(ctx context.Context, game *model.Game, bundle, cover Upload) (*model.Game, error)
	List(ctx context.Context) ([]*model.Game, error)
}

// UserRepository is the persistence surface the user service needs.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	SetWalletAddress(ctx context.Context, userID uuid.UUID, address string) (bool, error)
	CreditPendingBalance(ctx context.Context, userID uuid.UUID, amount int64) error
	GetTopUsers(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error)
	GetChildren(ctx context.Context, parentID uuid.UUID) ([]*model.User, error)
}

// ClaimRepository is the persistence surface the claim pipeline needs.
type ClaimRepository interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
	DeductPendingBalance(ctx context.Context, userID uuid.UUID, amount int64) error
	CreditPendingBalance(ctx context.Context, userID uuid.UUID, amount int64) error

	CreateClaim(ctx context.Context, claim *model.Claim) error
	GetClaimByID(ctx context.Context, claimID uuid.UUID) (*model.Claim, error)
	HasCompletedClaim(ctx context.Context, userID uuid.UUID, claimType model.ClaimType) (bool, error)
	HasCompletedClaimToday(ctx context.Context, userID uuid.UUID, claimType model.ClaimType, day time.Time) (bool, error)
	HasCompletedGameClaim(ctx context.Context, gameID uuid.UUID, claimType model.ClaimType) (bool, error)
	UpdateClaimStatus(ctx context.Context, claimID uuid.UUID, status model.ClaimStatus, txHash *string) error
	GetPendingApprovalClaims(ctx context.Context, parentID uuid.UUID) ([]*model.Claim, error)

	ReserveDailyAllowance(ctx context.Context, userID uuid.UUID, day time.Time, amount, limit int64) (int64, error)
	ReleaseDailyAllowance(ctx context.Context, userID uuid.UUID, day time.Time, amount int64) error
	GetDailyClaimed(ctx context.Context, userID uuid.UUID, day time.Time) (int64, error)

	CreateIntent(ctx context.Context, intent *model.ClaimIntent) error
	MarkIntentSubmitted(ctx context.Context, intentID uuid.UUID, txHash string) error
	FinalizeIntent(ctx context.Context, intent *model.ClaimIntent, txHash string) error
	CompensateIntent(ctx context.Context, intent *model.ClaimIntent) error
	GetStaleIntents(ctx context.Context, cutoff time.Time) ([]*model.ClaimIntent, error)

	GetGameByID(ctx context.Context, gameID uuid.UUID) (*model.Game, error)
}

type DonationRepository interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
	DeductPendingBalance(ctx context.Context, userID uuid.UUID, amount int64) error
	CreditPendingBalance(ctx context.Context, userID uuid.UUID, amount int64) error
	CreateDonation(ctx context.Context, donation *model.Donation) error
	GetDonationByID(ctx context.Context, donationID uuid.UUID) (*model.Donation, error)
	GetPendingDonations(ctx context.Context) ([]*model.Donation, error)
	MarkDonationResult(ctx context.Context, donationID uuid.UUID, status model.DonationStatus, txHash *string) error
}

type GameRepository interface {
	CreateGame(ctx context.Context, game *model.Game) error
	GetGameByID(ctx context.Context, gameID uuid.UUID) (*model.Game, error)
	ListGames(ctx context.Context, limit int) ([]*model.Game, error)
}

// ChainClient abstracts the BSC client so the claim pipeline can be tested
// without a node.
type ChainClient interface {
	TokenBalance(ctx context.Context, addr string) (*big.Int, error)
	NativeBalance(ctx context.Context, addr string) (*big.Int, error)
	Transfer(ctx context.Context, to string, amountWei *big.Int, onSigned func(txHash string) error) (string, error)
	WaitMined(ctx context.Context, txHash string) error
	TxStatus(ctx context.Context, txHash string) (bool, error)
	IssueVoucher(wallet string, amountWei *big.Int) (*chain.Voucher, error)
	RewardWalletAddress() string
	TxURL(txHash string) string
	ChainID() int64
	ContractAddress() string
}
