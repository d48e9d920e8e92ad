package chain

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Voucher carries everything a client needs to redeem a signed claim against
// the claim contract with its own wallet.
type Voucher struct {
	Signature       string
	Nonce           string
	AmountWei       *big.Int
	ContractAddress string
	ChainID         int64
}

// ClaimMessage computes keccak256 over the packed claim parameters. The
// layout must stay in lockstep with the claim contract's verification:
// abi.encodePacked(wallet, amountWei, nonce, chainId, contract).
func ClaimMessage(wallet common.Address, amountWei *big.Int, nonce [32]byte, chainID *big.Int, contract common.Address) []byte {
	return crypto.Keccak256(
		wallet.Bytes(),
		common.LeftPadBytes(amountWei.Bytes(), 32),
		nonce[:],
		common.LeftPadBytes(chainID.Bytes(), 32),
		contract.Bytes(),
	)
}

// IssueVoucher signs a claim authorization for wallet over amountWei with a
// fresh random nonce.
func (c *Client) IssueVoucher(wallet string, amountWei *big.Int) (*Voucher, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate voucher nonce: %w", err)
	}

	message := ClaimMessage(
		common.HexToAddress(wallet),
		amountWei,
		nonce,
		big.NewInt(c.cfg.ChainID),
		c.claimContract,
	)

	sig, err := c.voucherSigner.SignMessage(message)
	if err != nil {
		return nil, err
	}

	return &Voucher{
		Signature:       hexutil.Encode(sig),
		Nonce:           hexutil.Encode(nonce[:]),
		AmountWei:       amountWei,
		ContractAddress: c.claimContract.Hex(),
		ChainID:         c.cfg.ChainID,
	}, nil
}
