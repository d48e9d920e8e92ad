package mocks

import (
	"context"
	"math/big"
	"mime/multipart"
	"time"

	"funplanet-backend/internal/chain"
	"funplanet-backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) SetWalletAddress(ctx context.Context, userID uuid.UUID, address string) (bool, error) {
	args := m.Called(ctx, userID, address)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) CreditPendingBalance(ctx context.Context, userID uuid.UUID, amount int64) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockUserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.LeaderboardEntry), args.Error(1)
}

func (m *MockUserRepository) GetChildren(ctx context.Context, parentID uuid.UUID) ([]*model.User, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

type MockClaimRepository struct {
	mock.Mock
}

func (m *MockClaimRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockClaimRepository) DeductPendingBalance(ctx context.Context, userID uuid.UUID, amount int64) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockClaimRepository) CreditPendingBalance(ctx context.Context, userID uuid.UUID, amount int64) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockClaimRepository) CreateClaim(ctx context.Context, claim *model.Claim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockClaimRepository) GetClaimByID(ctx context.Context, claimID uuid.UUID) (*model.Claim, error) {
	args := m.Called(ctx, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Claim), args.Error(1)
}

func (m *MockClaimRepository) HasCompletedClaim(ctx context.Context, userID uuid.UUID, claimType model.ClaimType) (bool, error) {
	args := m.Called(ctx, userID, claimType)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimRepository) HasCompletedClaimToday(ctx context.Context, userID uuid.UUID, claimType model.ClaimType, day time.Time) (bool, error) {
	args := m.Called(ctx, userID, claimType, day)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimRepository) HasCompletedGameClaim(ctx context.Context, gameID uuid.UUID, claimType model.ClaimType) (bool, error) {
	args := m.Called(ctx, gameID, claimType)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimRepository) UpdateClaimStatus(ctx context.Context, claimID uuid.UUID, status model.ClaimStatus, txHash *string) error {
	args := m.Called(ctx, claimID, status, txHash)
	return args.Error(0)
}

func (m *MockClaimRepository) GetPendingApprovalClaims(ctx context.Context, parentID uuid.UUID) ([]*model.Claim, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Claim), args.Error(1)
}

func (m *MockClaimRepository) ReserveDailyAllowance(ctx context.Context, userID uuid.UUID, day time.Time, amount, limit int64) (int64, error) {
	args := m.Called(ctx, userID, day, amount, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClaimRepository) ReleaseDailyAllowance(ctx context.Context, userID uuid.UUID, day time.Time, amount int64) error {
	args := m.Called(ctx, userID, day, amount)
	return args.Error(0)
}

func (m *MockClaimRepository) GetDailyClaimed(ctx context.Context, userID uuid.UUID, day time.Time) (int64, error) {
	args := m.Called(ctx, userID, day)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClaimRepository) CreateIntent(ctx context.Context, intent *model.ClaimIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockClaimRepository) MarkIntentSubmitted(ctx context.Context, intentID uuid.UUID, txHash string) error {
	args := m.Called(ctx, intentID, txHash)
	return args.Error(0)
}

func (m *MockClaimRepository) FinalizeIntent(ctx context.Context, intent *model.ClaimIntent, txHash string) error {
	args := m.Called(ctx, intent, txHash)
	return args.Error(0)
}

func (m *MockClaimRepository) CompensateIntent(ctx context.Context, intent *model.ClaimIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockClaimRepository) GetStaleIntents(ctx context.Context, cutoff time.Time) ([]*model.ClaimIntent, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ClaimIntent), args.Error(1)
}

func (m *MockClaimRepository) GetGameByID(ctx context.Context, gameID uuid.UUID) (*model.Game, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Game), args.Error(1)
}

type MockDonationRepository struct {
	mock.Mock
}

func (m *MockDonationRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockDonationRepository) DeductPendingBalance(ctx context.Context, userID uuid.UUID, amount int64) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockDonationRepository) CreditPendingBalance(ctx context.Context, userID uuid.UUID, amount int64) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockDonationRepository) CreateDonation(ctx context.Context, donation *model.Donation) error {
	args := m.Called(ctx, donation)
	return args.Error(0)
}

func (m *MockDonationRepository) GetDonationByID(ctx context.Context, donationID uuid.UUID) (*model.Donation, error) {
	args := m.Called(ctx, donationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Donation), args.Error(1)
}

func (m *MockDonationRepository) GetPendingDonations(ctx context.Context) ([]*model.Donation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Donation), args.Error(1)
}

func (m *MockDonationRepository) MarkDonationResult(ctx context.Context, donationID uuid.UUID, status model.DonationStatus, txHash *string) error {
	args := m.Called(ctx, donationID, status, txHash)
	return args.Error(0)
}

type MockGameRepository struct {
	mock.Mock
}

func (m *MockGameRepository) CreateGame(ctx context.Context, game *model.Game) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}

func (m *MockGameRepository) GetGameByID(ctx context.Context, gameID uuid.UUID) (*model.Game, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Game), args.Error(1)
}

func (m *MockGameRepository) ListGames(ctx context.Context, limit int) ([]*model.Game, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Game), args.Error(1)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) UploadFile(ctx context.Context, fileHeader *multipart.FileHeader, key string) (string, error) {
	args := m.Called(ctx, fileHeader, key)
	return args.String(0), args.Error(1)
}

type MockChainClient struct {
	mock.Mock
}

func (m *MockChainClient) TokenBalance(ctx context.Context, addr string) (*big.Int, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockChainClient) NativeBalance(ctx context.Context, addr string) (*big.Int, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockChainClient) Transfer(ctx context.Context, to string, amountWei *big.Int, onSigned func(txHash string) error) (string, error) {
	args := m.Called(ctx, to, amountWei)
	hash := args.String(0)
	if hash != "" && onSigned != nil {
		if err := onSigned(hash); err != nil {
			return "", err
		}
	}
	return hash, args.Error(1)
}

func (m *MockChainClient) WaitMined(ctx context.Context, txHash string) error {
	args := m.Called(ctx, txHash)
	return args.Error(0)
}

func (m *MockChainClient) TxStatus(ctx context.Context, txHash string) (bool, error) {
	args := m.Called(ctx, txHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockChainClient) IssueVoucher(wallet string, amountWei *big.Int) (*chain.Voucher, error) {
	args := m.Called(wallet, amountWei)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.Voucher), args.Error(1)
}

func (m *MockChainClient) RewardWalletAddress() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockChainClient) TxURL(txHash string) string {
	args := m.Called(txHash)
	return args.String(0)
}

func (m *MockChainClient) ChainID() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}

func (m *MockChainClient) ContractAddress() string {
	args := m.Called()
	return args.String(0)
}
