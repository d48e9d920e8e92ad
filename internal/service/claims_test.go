package service

import (
	"context"
	"math/big"
	"testing"

	"funplanet-backend/internal/chain"
	"funplanet-backend/internal/model"
	"funplanet-backend/internal/repository"
	"funplanet-backend/internal/service/mocks"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testWallet       = "0x1111111111111111111111111111111111111111"
	testRewardWallet = "0x2222222222222222222222222222222222222222"
	testTxHash       = "0xabc123"
	testDailyLimit   = int64(100_000)
)

func testGasFloor() *big.Int {
	return big.NewInt(5_000_000_000_000_000) // 0.005 BNB
}

func userWithWallet(balance int64) *model.User {
	wallet := testWallet
	return &model.User{
		ID:             uuid.New(),
		Username:       "kid",
		WalletAddress:  &wallet,
		PendingBalance: balance,
	}
}

// expectHealthyChain wires the pre-flight reads: a well-funded reward pool
// and enough BNB for gas.
func expectHealthyChain(chainMock *mocks.MockChainClient) {
	chainMock.On("RewardWalletAddress").Return(testRewardWallet)
	chainMock.On("TokenBalance", mock.Anything, testRewardWallet).
		Return(chain.ToWei(10_000_000), nil)
	chainMock.On("NativeBalance", mock.Anything, testRewardWallet).
		Return(big.NewInt(1_000_000_000_000_000_000), nil)
}

func expectSuccessfulSettle(repo *mocks.MockClaimRepository, chainMock *mocks.MockChainClient, user *model.User, amount int64) {
	expectHealthyChain(chainMock)
	repo.On("DeductPendingBalance", mock.Anything, user.ID, amount).Return(nil)
	repo.On("ReserveDailyAllowance", mock.Anything, user.ID, mock.Anything, amount, testDailyLimit).
		Return(testDailyLimit-amount, nil)
	repo.On("CreateIntent", mock.Anything, mock.Anything).Return(nil)
	chainMock.On("Transfer", mock.Anything, testWallet, chain.ToWei(amount)).
		Return(testTxHash, nil)
	repo.On("MarkIntentSubmitted", mock.Anything, mock.Anything, testTxHash).Return(nil)
	chainMock.On("TxURL", testTxHash).Return("https://bscscan.com/tx/" + testTxHash)
	chainMock.On("WaitMined", mock.Anything, testTxHash).Return(nil)
	repo.On("FinalizeIntent", mock.Anything, mock.Anything, testTxHash).Return(nil)
}

func TestClaimService_Claim(t *testing.T) {
	tests := []struct {
		name          string
		wallet        string
		claimType     model.ClaimType
		gameID        *uuid.UUID
		mockSetup     func(*mocks.MockClaimRepository, *mocks.MockChainClient, *model.User)
		expectedError error
		check         func(*testing.T, *mocks.MockClaimRepository, *mocks.MockChainClient, *ClaimResult)
	}{
		{
			name:          "invalid wallet address",
			wallet:        "not-an-address",
			claimType:     model.ClaimFirstWallet,
			mockSetup:     func(*mocks.MockClaimRepository, *mocks.MockChainClient, *model.User) {},
			expectedError: ErrInvalidAddress,
		},
		{
			name:      "unknown claim type",
			wallet:    testWallet,
			claimType: model.ClaimType("bonus"),
			mockSetup: func(repo *mocks.MockClaimRepository, _ *mocks.MockChainClient, user *model.User) {
				repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
			},
			expectedError: ErrUnknownClaimType,
		},
		{
			name:      "first wallet already claimed",
			wallet:    testWallet,
			claimType: model.ClaimFirstWallet,
			mockSetup: func(repo *mocks.MockClaimRepository, _ *mocks.MockChainClient, user *model.User) {
				repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
				repo.On("HasCompletedClaim", mock.Anything, user.ID, model.ClaimFirstWallet).
					Return(true, nil)
			},
			expectedError: ErrAlreadyClaimed,
			check: func(t *testing.T, repo *mocks.MockClaimRepository, chainMock *mocks.MockChainClient, _ *ClaimResult) {
				repo.AssertNotCalled(t, "DeductPendingBalance", mock.Anything, mock.Anything, mock.Anything)
				chainMock.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:      "game upload without game id",
			wallet:    testWallet,
			claimType: model.ClaimGameUpload,
			mockSetup: func(repo *mocks.MockClaimRepository, _ *mocks.MockChainClient, user *model.User) {
				repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
			},
			expectedError: ErrGameRequired,
		},
		{
			name:      "insufficient pending balance leaves ledger untouched",
			wallet:    testWallet,
			claimType: model.ClaimFirstWallet,
			mockSetup: func(repo *mocks.MockClaimRepository, _ *mocks.MockChainClient, user *model.User) {
				user.PendingBalance = FirstWalletReward - 1
				repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
				repo.On("HasCompletedClaim", mock.Anything, user.ID, model.ClaimFirstWallet).
					Return(false, nil)
			},
			expectedError: ErrInsufficientBalance,
			check: func(t *testing.T, repo *mocks.MockClaimRepository, chainMock *mocks.MockChainClient, _ *ClaimResult) {
				repo.AssertNotCalled(t, "CreateClaim", mock.Anything, mock.Anything)
				repo.AssertNotCalled(t, "DeductPendingBalance", mock.Anything, mock.Anything, mock.Anything)
				chainMock.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:      "child claim parks for parental approval",
			wallet:    testWallet,
			claimType: model.ClaimFirstWallet,
			mockSetup: func(repo *mocks.MockClaimRepository, _ *mocks.MockChainClient, user *model.User) {
				parentID := uuid.New()
				user.ParentID = &parentID
				repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
				repo.On("HasCompletedClaim", mock.Anything, user.ID, model.ClaimFirstWallet).
					Return(false, nil)
				repo.On("CreateClaim", mock.Anything, mock.MatchedBy(func(claim *model.Claim) bool {
					return claim.Status == model.ClaimStatusPendingApproval
				})).Return(nil)
			},
			check: func(t *testing.T, repo *mocks.MockClaimRepository, chainMock *mocks.MockChainClient, result *ClaimResult) {
				assert.Equal(t, model.ClaimStatusPendingApproval, result.Status)
				repo.AssertNotCalled(t, "DeductPendingBalance", mock.Anything, mock.Anything, mock.Anything)
				chainMock.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:      "first wallet claim settles on-chain",
			wallet:    testWallet,
			claimType: model.ClaimFirstWallet,
			mockSetup: func(repo *mocks.MockClaimRepository, chainMock *mocks.MockChainClient, user *model.User) {
				repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
				repo.On("HasCompletedClaim", mock.Anything, user.ID, model.ClaimFirstWallet).
					Return(false, nil)
				repo.On("CreateClaim", mock.Anything, mock.Anything).Return(nil)
				expectSuccessfulSettle(repo, chainMock, user, FirstWalletReward)
			},
			check: func(t *testing.T, _ *mocks.MockClaimRepository, _ *mocks.MockChainClient, result *ClaimResult) {
				assert.Equal(t, model.ClaimStatusCompleted, result.Status)
				assert.Equal(t, testTxHash, result.TxHash)
				assert.Equal(t, int64(FirstWalletReward), result.Amount)
				assert.Equal(t, testDailyLimit-FirstWalletReward, result.DailyRemaining)
			},
		},
		{
			name:      "daily limit exceeded refunds the deduction",
			wallet:    testWallet,
			claimType: model.ClaimGameCompletion,
			mockSetup: func(repo *mocks.MockClaimRepository, chainMock *mocks.MockChainClient, user *model.User) {
				repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
				repo.On("HasCompletedClaimToday", mock.Anything, user.ID, model.ClaimGameCompletion, mock.Anything).
					Return(false, nil)
				repo.On("CreateClaim", mock.Anything, mock.Anything).Return(nil)
				expectHealthyChain(chainMock)
				repo.On("DeductPendingBalance", mock.Anything, user.ID, int64(GameCompletionReward)).Return(nil)
				repo.On("ReserveDailyAllowance", mock.Anything, user.ID, mock.Anything, int64(GameCompletionReward), testDailyLimit).
					Return(int64(0), repository.ErrDailyLimitExceeded)
				repo.On("CreditPendingBalance", mock.Anything, user.ID, int64(GameCompletionReward)).Return(nil)
				repo.On("UpdateClaimStatus", mock.Anything, mock.Anything, model.ClaimStatusFailed, (*string)(nil)).Return(nil)
			},
			expectedError: ErrDailyLimitExceeded,
			check: func(t *testing.T, repo *mocks.MockClaimRepository, chainMock *mocks.MockChainClient, _ *ClaimResult) {
				repo.AssertCalled(t, "CreditPendingBalance", mock.Anything, mock.Anything, int64(GameCompletionReward))
				chainMock.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockClaimRepository{}
			chainMock := &mocks.MockChainClient{}
			user := userWithWallet(1_000_000)
			tt.mockSetup(repo, chainMock, user)

			service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
			result, err := service.Claim(context.Background(), user.ID, tt.wallet, tt.claimType, tt.gameID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				require.NoError(t, err)
				require.NotNil(t, result)
			}
			if tt.check != nil {
				tt.check(t, repo, chainMock, result)
			}
			repo.AssertExpectations(t)
			chainMock.AssertExpectations(t)
		})
	}
}

func TestClaimService_ClaimDirect(t *testing.T) {
	t.Run("full balance claim settles", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		user := userWithWallet(50_000)

		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("CreateClaim", mock.Anything, mock.Anything).Return(nil)
		expectSuccessfulSettle(repo, chainMock, user, 50_000)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		result, err := service.ClaimDirect(context.Background(), user.ID, testWallet, 50_000)

		require.NoError(t, err)
		assert.Equal(t, model.ClaimStatusCompleted, result.Status)
		assert.Equal(t, int64(0), result.NewPending)
		repo.AssertExpectations(t)
		chainMock.AssertExpectations(t)
	})

	t.Run("overdraw fails on balance before the daily cap", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		user := userWithWallet(0)

		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("CreateClaim", mock.Anything, mock.Anything).Return(nil)
		expectHealthyChain(chainMock)
		repo.On("DeductPendingBalance", mock.Anything, user.ID, int64(60_000)).
			Return(repository.ErrInsufficientBalance)
		repo.On("UpdateClaimStatus", mock.Anything, mock.Anything, model.ClaimStatusFailed, (*string)(nil)).Return(nil)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		_, err := service.ClaimDirect(context.Background(), user.ID, testWallet, 60_000)

		assert.ErrorIs(t, err, ErrInsufficientBalance)
		repo.AssertNotCalled(t, "ReserveDailyAllowance",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		chainMock.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		service := NewClaimService(&mocks.MockClaimRepository{}, &mocks.MockChainClient{}, nil, testDailyLimit, testGasFloor())
		_, err := service.ClaimDirect(context.Background(), uuid.New(), testWallet, 0)
		assert.ErrorIs(t, err, ErrNonPositiveAmount)
	})
}

func TestClaimService_SettleFailures(t *testing.T) {
	t.Run("empty reward pool reports available and required", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		user := userWithWallet(100_000)

		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("CreateClaim", mock.Anything, mock.Anything).Return(nil)
		chainMock.On("RewardWalletAddress").Return(testRewardWallet)
		chainMock.On("TokenBalance", mock.Anything, testRewardWallet).
			Return(chain.ToWei(10_000), nil)
		repo.On("UpdateClaimStatus", mock.Anything, mock.Anything, model.ClaimStatusFailed, (*string)(nil)).Return(nil)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		_, err := service.ClaimDirect(context.Background(), user.ID, testWallet, 50_000)

		var poolErr *InsufficientPoolError
		require.ErrorAs(t, err, &poolErr)
		assert.Equal(t, int64(10_000), poolErr.Available)
		assert.Equal(t, int64(50_000), poolErr.Required)
		repo.AssertNotCalled(t, "DeductPendingBalance", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("transfer failure compensates the intent", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		user := userWithWallet(100_000)

		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("CreateClaim", mock.Anything, mock.Anything).Return(nil)
		expectHealthyChain(chainMock)
		repo.On("DeductPendingBalance", mock.Anything, user.ID, int64(50_000)).Return(nil)
		repo.On("ReserveDailyAllowance", mock.Anything, user.ID, mock.Anything, int64(50_000), testDailyLimit).
			Return(int64(50_000), nil)
		repo.On("CreateIntent", mock.Anything, mock.Anything).Return(nil)
		chainMock.On("Transfer", mock.Anything, testWallet, chain.ToWei(50_000)).
			Return("", assert.AnError)
		repo.On("CompensateIntent", mock.Anything, mock.MatchedBy(func(intent *model.ClaimIntent) bool {
			return intent.Amount == 50_000 && intent.UserID == user.ID
		})).Return(nil)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		_, err := service.ClaimDirect(context.Background(), user.ID, testWallet, 50_000)

		assert.ErrorIs(t, err, ErrTransferFailed)
		repo.AssertExpectations(t)
		chainMock.AssertExpectations(t)
	})

	t.Run("confirmation timeout leaves claim pending for reconciler", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		user := userWithWallet(100_000)

		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("CreateClaim", mock.Anything, mock.Anything).Return(nil)
		expectHealthyChain(chainMock)
		repo.On("DeductPendingBalance", mock.Anything, user.ID, int64(50_000)).Return(nil)
		repo.On("ReserveDailyAllowance", mock.Anything, user.ID, mock.Anything, int64(50_000), testDailyLimit).
			Return(int64(50_000), nil)
		repo.On("CreateIntent", mock.Anything, mock.Anything).Return(nil)
		chainMock.On("Transfer", mock.Anything, testWallet, chain.ToWei(50_000)).
			Return(testTxHash, nil)
		repo.On("MarkIntentSubmitted", mock.Anything, mock.Anything, testTxHash).Return(nil)
		chainMock.On("TxURL", testTxHash).Return("https://bscscan.com/tx/" + testTxHash)
		chainMock.On("WaitMined", mock.Anything, testTxHash).Return(context.DeadlineExceeded)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		result, err := service.ClaimDirect(context.Background(), user.ID, testWallet, 50_000)

		require.NoError(t, err)
		assert.Equal(t, model.ClaimStatusPending, result.Status)
		assert.Equal(t, testTxHash, result.TxHash)
		repo.AssertNotCalled(t, "FinalizeIntent", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "CompensateIntent", mock.Anything, mock.Anything)
	})

	t.Run("intent record failure aborts the send", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		user := userWithWallet(100_000)

		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("CreateClaim", mock.Anything, mock.Anything).Return(nil)
		expectHealthyChain(chainMock)
		repo.On("DeductPendingBalance", mock.Anything, user.ID, int64(50_000)).Return(nil)
		repo.On("ReserveDailyAllowance", mock.Anything, user.ID, mock.Anything, int64(50_000), testDailyLimit).
			Return(int64(50_000), nil)
		repo.On("CreateIntent", mock.Anything, mock.Anything).Return(nil)
		chainMock.On("Transfer", mock.Anything, testWallet, chain.ToWei(50_000)).
			Return(testTxHash, nil)
		repo.On("MarkIntentSubmitted", mock.Anything, mock.Anything, testTxHash).
			Return(assert.AnError)
		repo.On("CompensateIntent", mock.Anything, mock.MatchedBy(func(intent *model.ClaimIntent) bool {
			return intent.TxHash == nil && intent.Amount == 50_000
		})).Return(nil)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		_, err := service.ClaimDirect(context.Background(), user.ID, testWallet, 50_000)

		assert.ErrorIs(t, err, ErrTransferFailed)
		chainMock.AssertNotCalled(t, "WaitMined", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "FinalizeIntent", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("send failure after intent is recorded defers to reconciliation", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		user := userWithWallet(100_000)

		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("CreateClaim", mock.Anything, mock.Anything).Return(nil)
		expectHealthyChain(chainMock)
		repo.On("DeductPendingBalance", mock.Anything, user.ID, int64(50_000)).Return(nil)
		repo.On("ReserveDailyAllowance", mock.Anything, user.ID, mock.Anything, int64(50_000), testDailyLimit).
			Return(int64(50_000), nil)
		repo.On("CreateIntent", mock.Anything, mock.Anything).Return(nil)
		chainMock.On("Transfer", mock.Anything, testWallet, chain.ToWei(50_000)).
			Return(testTxHash, assert.AnError)
		repo.On("MarkIntentSubmitted", mock.Anything, mock.Anything, testTxHash).Return(nil)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		_, err := service.ClaimDirect(context.Background(), user.ID, testWallet, 50_000)

		assert.ErrorIs(t, err, ErrTransferFailed)
		repo.AssertNotCalled(t, "CompensateIntent", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "CreditPendingBalance", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})
}

func TestClaimService_ClaimArbitrary(t *testing.T) {
	parentSigner, err := chain.NewKeySigner("4c0883a69102937d6231471b5dbb6204fe51296170827936ea5cce4b76994b0f")
	require.NoError(t, err)

	newChild := func(parentID uuid.UUID, balance int64) *model.User {
		child := userWithWallet(balance)
		child.ParentID = &parentID
		return child
	}

	t.Run("child without signature parks the claim", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		child := newChild(uuid.New(), 100_000)

		repo.On("GetUserByID", mock.Anything, child.ID).Return(child, nil)
		repo.On("CreateClaim", mock.Anything, mock.MatchedBy(func(claim *model.Claim) bool {
			return claim.Status == model.ClaimStatusPendingApproval && claim.Amount == 30_000
		})).Return(nil)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		_, err := service.ClaimArbitrary(context.Background(), child.ID, testWallet, 30_000, "")

		assert.ErrorIs(t, err, ErrParentApprovalRequired)
		chainMock.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("valid parent signature settles immediately", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		parentID := uuid.New()
		child := newChild(parentID, 100_000)

		parentWallet := parentSigner.Address().Hex()
		parent := &model.User{ID: parentID, Username: "parent", WalletAddress: &parentWallet}

		sig, err := parentSigner.SignMessage(ParentApprovalMessage(testWallet, 30_000))
		require.NoError(t, err)

		repo.On("GetUserByID", mock.Anything, child.ID).Return(child, nil)
		repo.On("GetUserByID", mock.Anything, parentID).Return(parent, nil)
		repo.On("CreateClaim", mock.Anything, mock.Anything).Return(nil)
		expectSuccessfulSettle(repo, chainMock, child, 30_000)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		result, err := service.ClaimArbitrary(context.Background(), child.ID, testWallet, 30_000, hexutil.Encode(sig))

		require.NoError(t, err)
		assert.Equal(t, model.ClaimStatusCompleted, result.Status)
		repo.AssertExpectations(t)
		chainMock.AssertExpectations(t)
	})

	t.Run("signature from the wrong key is rejected", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		parentID := uuid.New()
		child := newChild(parentID, 100_000)

		otherWallet := "0x3333333333333333333333333333333333333333"
		parent := &model.User{ID: parentID, Username: "parent", WalletAddress: &otherWallet}

		sig, err := parentSigner.SignMessage(ParentApprovalMessage(testWallet, 30_000))
		require.NoError(t, err)

		repo.On("GetUserByID", mock.Anything, child.ID).Return(child, nil)
		repo.On("GetUserByID", mock.Anything, parentID).Return(parent, nil)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		_, err = service.ClaimArbitrary(context.Background(), child.ID, testWallet, 30_000, hexutil.Encode(sig))

		assert.ErrorIs(t, err, ErrInvalidParentSignature)
		repo.AssertNotCalled(t, "CreateClaim", mock.Anything, mock.Anything)
		chainMock.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("signature over a different amount is rejected", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		parentID := uuid.New()
		child := newChild(parentID, 100_000)

		parentWallet := parentSigner.Address().Hex()
		parent := &model.User{ID: parentID, Username: "parent", WalletAddress: &parentWallet}

		sig, err := parentSigner.SignMessage(ParentApprovalMessage(testWallet, 10_000))
		require.NoError(t, err)

		repo.On("GetUserByID", mock.Anything, child.ID).Return(child, nil)
		repo.On("GetUserByID", mock.Anything, parentID).Return(parent, nil)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		_, err = service.ClaimArbitrary(context.Background(), child.ID, testWallet, 30_000, hexutil.Encode(sig))

		assert.ErrorIs(t, err, ErrInvalidParentSignature)
	})

	t.Run("adult skips the signature check", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		user := userWithWallet(100_000)

		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("CreateClaim", mock.Anything, mock.Anything).Return(nil)
		expectSuccessfulSettle(repo, chainMock, user, 30_000)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		result, err := service.ClaimArbitrary(context.Background(), user.ID, testWallet, 30_000, "")

		require.NoError(t, err)
		assert.Equal(t, model.ClaimStatusCompleted, result.Status)
	})
}

func TestClaimService_ApproveClaim(t *testing.T) {
	parentID := uuid.New()

	parkedClaim := func(user *model.User) *model.Claim {
		return &model.Claim{
			ID:            uuid.New(),
			UserID:        user.ID,
			WalletAddress: testWallet,
			Type:          model.ClaimArbitrary,
			Amount:        30_000,
			Status:        model.ClaimStatusPendingApproval,
		}
	}

	t.Run("approval settles the parked claim", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		child := userWithWallet(100_000)
		child.ParentID = &parentID
		claim := parkedClaim(child)

		repo.On("GetClaimByID", mock.Anything, claim.ID).Return(claim, nil)
		repo.On("GetUserByID", mock.Anything, child.ID).Return(child, nil)
		expectSuccessfulSettle(repo, chainMock, child, 30_000)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		result, err := service.ApproveClaim(context.Background(), parentID, claim.ID)

		require.NoError(t, err)
		assert.Equal(t, model.ClaimStatusCompleted, result.Status)
		repo.AssertExpectations(t)
		chainMock.AssertExpectations(t)
	})

	t.Run("re-approving a settled claim cannot transfer twice", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		child := userWithWallet(100_000)
		child.ParentID = &parentID
		claim := parkedClaim(child)
		claim.Status = model.ClaimStatusCompleted

		repo.On("GetClaimByID", mock.Anything, claim.ID).Return(claim, nil)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		_, err := service.ApproveClaim(context.Background(), parentID, claim.ID)

		assert.ErrorIs(t, err, ErrClaimNotApprovable)
		chainMock.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "DeductPendingBalance", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stranger cannot approve", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		child := userWithWallet(100_000)
		otherParent := uuid.New()
		child.ParentID = &otherParent
		claim := parkedClaim(child)

		repo.On("GetClaimByID", mock.Anything, claim.ID).Return(claim, nil)
		repo.On("GetUserByID", mock.Anything, child.ID).Return(child, nil)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		_, err := service.ApproveClaim(context.Background(), parentID, claim.ID)

		assert.ErrorIs(t, err, ErrNotParentOfClaimant)
	})

	t.Run("missing claim", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		claimID := uuid.New()
		repo.On("GetClaimByID", mock.Anything, claimID).Return(nil, repository.ErrNotFound)

		service := NewClaimService(repo, &mocks.MockChainClient{}, nil, testDailyLimit, testGasFloor())
		_, err := service.ApproveClaim(context.Background(), parentID, claimID)

		assert.ErrorIs(t, err, ErrClaimNotFound)
	})
}

func TestClaimService_SignClaim(t *testing.T) {
	t.Run("voucher is issued after the deduction", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		user := userWithWallet(100_000)

		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("DeductPendingBalance", mock.Anything, user.ID, int64(40_000)).Return(nil)
		repo.On("CreateClaim", mock.Anything, mock.MatchedBy(func(claim *model.Claim) bool {
			return claim.Status == model.ClaimStatusSigned
		})).Return(nil)
		chainMock.On("IssueVoucher", testWallet, chain.ToWei(40_000)).Return(&chain.Voucher{
			Signature:       "0xsig",
			Nonce:           "0xnonce",
			AmountWei:       chain.ToWei(40_000),
			ContractAddress: "0x4444444444444444444444444444444444444444",
			ChainID:         56,
		}, nil)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		voucher, err := service.SignClaim(context.Background(), user.ID, testWallet, 40_000)

		require.NoError(t, err)
		assert.Equal(t, "0xsig", voucher.Signature)
		assert.Equal(t, chain.ToWei(40_000).String(), voucher.AmountWei)
		assert.Equal(t, int64(56), voucher.ChainID)
		repo.AssertExpectations(t)
		chainMock.AssertExpectations(t)
	})

	t.Run("insufficient balance issues nothing", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		user := userWithWallet(10_000)

		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("DeductPendingBalance", mock.Anything, user.ID, int64(40_000)).
			Return(repository.ErrInsufficientBalance)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		_, err := service.SignClaim(context.Background(), user.ID, testWallet, 40_000)

		assert.ErrorIs(t, err, ErrInsufficientBalance)
		chainMock.AssertNotCalled(t, "IssueVoucher", mock.Anything, mock.Anything)
	})

	t.Run("signer failure refunds the deduction", func(t *testing.T) {
		repo := &mocks.MockClaimRepository{}
		chainMock := &mocks.MockChainClient{}
		user := userWithWallet(100_000)

		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("DeductPendingBalance", mock.Anything, user.ID, int64(40_000)).Return(nil)
		repo.On("CreateClaim", mock.Anything, mock.Anything).Return(nil)
		chainMock.On("IssueVoucher", testWallet, chain.ToWei(40_000)).Return(nil, assert.AnError)
		repo.On("CreditPendingBalance", mock.Anything, user.ID, int64(40_000)).Return(nil)
		repo.On("UpdateClaimStatus", mock.Anything, mock.Anything, model.ClaimStatusFailed, (*string)(nil)).Return(nil)

		service := NewClaimService(repo, chainMock, nil, testDailyLimit, testGasFloor())
		_, err := service.SignClaim(context.Background(), user.ID, testWallet, 40_000)

		assert.Error(t, err)
		repo.AssertExpectations(t)
	})
}
