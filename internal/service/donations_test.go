package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"funplanet-backend/internal/chain"
	"funplanet-backend/internal/model"
	"funplanet-backend/internal/repository"
	"funplanet-backend/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testTreasury = "0x5555555555555555555555555555555555555555"

func newDonationService(repo *mocks.MockDonationRepository, chainMock *mocks.MockChainClient) *DonationService {
	return NewDonationService(repo, chainMock, testTreasury, testGasFloor(), time.Millisecond)
}

func pendingDonation(amount int64) *model.Donation {
	return &model.Donation{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Amount: amount,
		Status: model.DonationPending,
	}
}

func TestDonationService_Donate(t *testing.T) {
	t.Run("pledge deducts the pending balance", func(t *testing.T) {
		repo := &mocks.MockDonationRepository{}
		userID := uuid.New()

		repo.On("GetUserByID", mock.Anything, userID).Return(&model.User{ID: userID}, nil)
		repo.On("DeductPendingBalance", mock.Anything, userID, int64(5_000)).Return(nil)
		repo.On("CreateDonation", mock.Anything, mock.MatchedBy(func(d *model.Donation) bool {
			return d.UserID == userID && d.Amount == 5_000 && d.Status == model.DonationPending
		})).Return(nil)

		service := newDonationService(repo, &mocks.MockChainClient{})
		donation, err := service.Donate(context.Background(), userID, 5_000, "for the animals")

		require.NoError(t, err)
		assert.Equal(t, model.DonationPending, donation.Status)
		repo.AssertExpectations(t)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		repo := &mocks.MockDonationRepository{}
		userID := uuid.New()

		repo.On("GetUserByID", mock.Anything, userID).Return(&model.User{ID: userID}, nil)
		repo.On("DeductPendingBalance", mock.Anything, userID, int64(5_000)).
			Return(repository.ErrInsufficientBalance)

		service := newDonationService(repo, &mocks.MockChainClient{})
		_, err := service.Donate(context.Background(), userID, 5_000, "")

		assert.ErrorIs(t, err, ErrInsufficientBalance)
		repo.AssertNotCalled(t, "CreateDonation", mock.Anything, mock.Anything)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		service := newDonationService(&mocks.MockDonationRepository{}, &mocks.MockChainClient{})
		_, err := service.Donate(context.Background(), uuid.New(), 0, "")
		assert.ErrorIs(t, err, ErrNonPositiveAmount)
	})
}

func TestDonationService_Process(t *testing.T) {
	t.Run("neither id nor all selected", func(t *testing.T) {
		service := newDonationService(&mocks.MockDonationRepository{}, &mocks.MockChainClient{})
		_, err := service.Process(context.Background(), nil, false)
		assert.ErrorIs(t, err, ErrNoDonationSelected)
	})

	t.Run("pool shortfall stops before any transfer", func(t *testing.T) {
		repo := &mocks.MockDonationRepository{}
		chainMock := &mocks.MockChainClient{}
		donations := []*model.Donation{pendingDonation(30_000), pendingDonation(30_000)}

		repo.On("GetPendingDonations", mock.Anything).Return(donations, nil)
		chainMock.On("RewardWalletAddress").Return(testRewardWallet)
		chainMock.On("TokenBalance", mock.Anything, testRewardWallet).
			Return(chain.ToWei(40_000), nil)

		service := newDonationService(repo, chainMock)
		_, err := service.Process(context.Background(), nil, true)

		var poolErr *InsufficientPoolError
		require.ErrorAs(t, err, &poolErr)
		assert.Equal(t, int64(40_000), poolErr.Available)
		assert.Equal(t, int64(60_000), poolErr.Required)
		chainMock.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "MarkDonationResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gas shortfall stops the sweep", func(t *testing.T) {
		repo := &mocks.MockDonationRepository{}
		chainMock := &mocks.MockChainClient{}

		repo.On("GetPendingDonations", mock.Anything).Return([]*model.Donation{pendingDonation(1_000)}, nil)
		chainMock.On("RewardWalletAddress").Return(testRewardWallet)
		chainMock.On("TokenBalance", mock.Anything, testRewardWallet).
			Return(chain.ToWei(1_000_000), nil)
		chainMock.On("NativeBalance", mock.Anything, testRewardWallet).
			Return(big.NewInt(1), nil)

		service := newDonationService(repo, chainMock)
		_, err := service.Process(context.Background(), nil, true)

		assert.ErrorIs(t, err, ErrInsufficientGas)
		chainMock.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sweep continues past a failed item", func(t *testing.T) {
		repo := &mocks.MockDonationRepository{}
		chainMock := &mocks.MockChainClient{}
		first := pendingDonation(10_000)
		second := pendingDonation(20_000)

		repo.On("GetPendingDonations", mock.Anything).Return([]*model.Donation{first, second}, nil)
		chainMock.On("RewardWalletAddress").Return(testRewardWallet)
		chainMock.On("TokenBalance", mock.Anything, testRewardWallet).
			Return(chain.ToWei(1_000_000), nil)
		chainMock.On("NativeBalance", mock.Anything, testRewardWallet).
			Return(big.NewInt(1_000_000_000_000_000_000), nil)

		chainMock.On("Transfer", mock.Anything, testTreasury, chain.ToWei(10_000)).
			Return("", assert.AnError)
		repo.On("MarkDonationResult", mock.Anything, first.ID, model.DonationFailed, (*string)(nil)).Return(nil)

		chainMock.On("Transfer", mock.Anything, testTreasury, chain.ToWei(20_000)).
			Return(testTxHash, nil)
		chainMock.On("WaitMined", mock.Anything, testTxHash).Return(nil)
		chainMock.On("TxURL", testTxHash).Return("https://bscscan.com/tx/" + testTxHash)
		repo.On("MarkDonationResult", mock.Anything, second.ID, model.DonationCompleted, mock.Anything).Return(nil)

		service := newDonationService(repo, chainMock)
		result, err := service.Process(context.Background(), nil, true)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Results, 2)
		assert.False(t, result.Results[0].Success)
		assert.True(t, result.Results[1].Success)
		assert.Equal(t, testTxHash, result.Results[1].TxHash)
		repo.AssertExpectations(t)
		chainMock.AssertExpectations(t)
	})

	t.Run("single donation must be pending", func(t *testing.T) {
		repo := &mocks.MockDonationRepository{}
		donation := pendingDonation(1_000)
		donation.Status = model.DonationCompleted

		repo.On("GetDonationByID", mock.Anything, donation.ID).Return(donation, nil)

		service := newDonationService(repo, &mocks.MockChainClient{})
		_, err := service.Process(context.Background(), &donation.ID, false)

		assert.ErrorIs(t, err, ErrDonationNotPending)
	})

	t.Run("empty sweep is a no-op", func(t *testing.T) {
		repo := &mocks.MockDonationRepository{}
		chainMock := &mocks.MockChainClient{}
		repo.On("GetPendingDonations", mock.Anything).Return([]*model.Donation{}, nil)

		service := newDonationService(repo, chainMock)
		result, err := service.Process(context.Background(), nil, true)

		require.NoError(t, err)
		assert.Zero(t, result.Processed)
		chainMock.AssertNotCalled(t, "TokenBalance", mock.Anything, mock.Anything)
	})
}
