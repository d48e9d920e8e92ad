package chain

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) Signer {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	signer, err := NewKeySigner(hex.EncodeToString(crypto.FromECDSA(key)))
	require.NoError(t, err)

	return signer
}

func TestKeySigner_SignAndRecover(t *testing.T) {
	signer := newTestSigner(t)

	message := []byte("claim authorization")
	sig, err := signer.SignMessage(message)
	require.NoError(t, err)
	assert.Len(t, sig, 65)
	assert.GreaterOrEqual(t, sig[64], byte(27))

	recovered, err := RecoverSigner(message, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestRecoverSigner_WrongMessage(t *testing.T) {
	signer := newTestSigner(t)

	sig, err := signer.SignMessage([]byte("original"))
	require.NoError(t, err)

	recovered, err := RecoverSigner([]byte("tampered"), sig)
	require.NoError(t, err)
	assert.NotEqual(t, signer.Address(), recovered)
}

func TestRecoverSigner_BadSignatureLength(t *testing.T) {
	_, err := RecoverSigner([]byte("message"), []byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestNewKeySigner_AcceptsHexPrefix(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	raw := hex.EncodeToString(crypto.FromECDSA(key))

	plain, err := NewKeySigner(raw)
	require.NoError(t, err)
	prefixed, err := NewKeySigner("0x" + raw)
	require.NoError(t, err)

	assert.Equal(t, plain.Address(), prefixed.Address())
}

func TestClaimMessage_Deterministic(t *testing.T) {
	wallet := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	contract := common.HexToAddress("0x0000000000000000000000000000000000000C11")
	amount := ToWei(50_000)
	chainID := big.NewInt(56)

	var nonce [32]byte
	nonce[31] = 7

	first := ClaimMessage(wallet, amount, nonce, chainID, contract)
	second := ClaimMessage(wallet, amount, nonce, chainID, contract)
	assert.Equal(t, first, second)

	var otherNonce [32]byte
	otherNonce[31] = 8
	assert.NotEqual(t, first, ClaimMessage(wallet, amount, otherNonce, chainID, contract))
	assert.NotEqual(t, first, ClaimMessage(wallet, ToWei(50_001), nonce, chainID, contract))
}

func TestWeiConversion(t *testing.T) {
	assert.Equal(t, "50000000000000000000000", ToWei(50_000).String())
	assert.Equal(t, int64(50_000), FromWei(ToWei(50_000)))
	assert.Equal(t, int64(0), FromWei(big.NewInt(1)))
}

func TestAddressHelpers(t *testing.T) {
	assert.True(t, IsValidAddress("0x000000000000000000000000000000000000dEaD"))
	assert.False(t, IsValidAddress("dead"))
	assert.True(t, SameAddress(
		"0x000000000000000000000000000000000000dead",
		"0x000000000000000000000000000000000000DEAD",
	))
	assert.False(t, SameAddress(
		"0x000000000000000000000000000000000000dead",
		"0x000000000000000000000000000000000000beef",
	))
}
