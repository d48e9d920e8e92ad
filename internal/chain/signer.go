package chain

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer isolates key material behind a minimal interface. Nothing outside
// this package ever sees the raw private key.
type Signer interface {
	Address() common.Address
	// SignMessage signs the EIP-191 personal-message hash of message.
	SignMessage(message []byte) ([]byte, error)
}

type keySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeySigner(hexKey string) (Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &keySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *keySigner) Address() common.Address {
	return s.address
}

func (s *keySigner) SignMessage(message []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(message), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}

	// Shift the recovery id to the 27/28 convention expected by on-chain
	// ecrecover and wallet tooling.
	sig[64] += 27
	return sig, nil
}

// RecoverSigner returns the address that produced an EIP-191 personal
// signature over message. Accepts both 0/1 and 27/28 recovery ids.
func RecoverSigner(message, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}

	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}
