package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"funplanet-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc20ABI = `[
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

// erc20TransferGasLimit is generous for a plain token transfer; unused gas is
// refunded.
const erc20TransferGasLimit = 100_000

var (
	ErrTxReverted      = errors.New("transaction reverted")
	ErrTxNotFound      = errors.New("transaction not found")
	ErrAllRPCsFailed   = errors.New("all rpc endpoints failed")
	ErrInsufficientGas = errors.New("insufficient BNB for gas in reward wallet")
)

type Config struct {
	RPCEndpoints    []string      `yaml:"rpcEndpoints"`
	ChainID         int64         `yaml:"chainId"`
	TokenAddress    string        `yaml:"tokenAddress"`
	ClaimContract   string        `yaml:"claimContract"`
	ExplorerBaseURL string        `yaml:"explorerBaseUrl"`
	RPCTimeout      time.Duration `yaml:"rpcTimeout"`
	ConfirmTimeout  time.Duration `yaml:"confirmTimeout"`

	// Env only, never from the config file.
	RewardWalletKey  string `yaml:"-"`
	VoucherSignerKey string `yaml:"-"`
}

// Client talks to BSC. Reads fail over across every configured endpoint;
// writes are pinned to the first endpoint so nonce state stays coherent.
type Client struct {
	cfg           Config
	clients       []*ethclient.Client
	token         common.Address
	claimContract common.Address
	erc20         abi.ABI

	rewardSigner  Signer
	rewardKey     *keySigner
	voucherSigner Signer

	// Serializes chain-mutating calls from the reward wallet. One key, one
	// nonce sequence; concurrent transfers would collide without this.
	nonceMu   sync.Mutex
	nextNonce uint64
	nonceInit bool
}

func New(cfg Config) (*Client, error) {
	if len(cfg.RPCEndpoints) == 0 {
		return nil, errors.New("no rpc endpoints configured")
	}
	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("invalid token address %q", cfg.TokenAddress)
	}
	if !common.IsHexAddress(cfg.ClaimContract) {
		return nil, fmt.Errorf("invalid claim contract address %q", cfg.ClaimContract)
	}
	if cfg.RPCTimeout == 0 {
		cfg.RPCTimeout = 15 * time.Second
	}
	if cfg.ConfirmTimeout == 0 {
		cfg.ConfirmTimeout = 2 * time.Minute
	}

	clients := make([]*ethclient.Client, 0, len(cfg.RPCEndpoints))
	for _, endpoint := range cfg.RPCEndpoints {
		client, err := ethclient.Dial(endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to dial rpc %s: %w", endpoint, err)
		}
		clients = append(clients, client)
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}

	rewardSigner, err := NewKeySigner(cfg.RewardWalletKey)
	if err != nil {
		return nil, fmt.Errorf("reward wallet key: %w", err)
	}
	voucherSigner, err := NewKeySigner(cfg.VoucherSignerKey)
	if err != nil {
		return nil, fmt.Errorf("voucher signer key: %w", err)
	}

	return &Client{
		cfg:           cfg,
		clients:       clients,
		token:         common.HexToAddress(cfg.TokenAddress),
		claimContract: common.HexToAddress(cfg.ClaimContract),
		erc20:         parsed,
		rewardSigner:  rewardSigner,
		rewardKey:     rewardSigner.(*keySigner),
		voucherSigner: voucherSigner,
	}, nil
}

func (c *Client) Close() {
	for _, client := range c.clients {
		client.Close()
	}
}

func (c *Client) RewardWalletAddress() string {
	return c.rewardSigner.Address().Hex()
}

func (c *Client) VoucherSignerAddress() string {
	return c.voucherSigner.Address().Hex()
}

func (c *Client) ChainID() int64 {
	return c.cfg.ChainID
}

func (c *Client) ContractAddress() string {
	return c.claimContract.Hex()
}

func (c *Client) TxURL(txHash string) string {
	return fmt.Sprintf("%s/tx/%s", strings.TrimRight(c.cfg.ExplorerBaseURL, "/"), txHash)
}

// withReadRetry runs a read call against each endpoint in turn until one
// succeeds. Transfers never go through here.
func (c *Client) withReadRetry(ctx context.Context, call func(ctx context.Context, client *ethclient.Client) error) error {
	log := logger.Logger()

	var lastErr error
	for i, client := range c.clients {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.RPCTimeout)
		err := call(callCtx, client)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("rpc read failed, trying next endpoint",
			zap.Int("endpoint_index", i),
			zap.Error(err))
	}

	return fmt.Errorf("%w: %v", ErrAllRPCsFailed, lastErr)
}

// TokenBalance returns the CAMLY balance of addr.
func (c *Client) TokenBalance(ctx context.Context, addr string) (*big.Int, error) {
	data, err := c.erc20.Pack("balanceOf", common.HexToAddress(addr))
	if err != nil {
		return nil, err
	}

	var balance *big.Int
	err = c.withReadRetry(ctx, func(ctx context.Context, client *ethclient.Client) error {
		out, err := client.CallContract(ctx, ethereum.CallMsg{
			To:   &c.token,
			Data: data,
		}, nil)
		if err != nil {
			return err
		}

		results, err := c.erc20.Unpack("balanceOf", out)
		if err != nil {
			return err
		}
		balance = results[0].(*big.Int)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return balance, nil
}

// NativeBalance returns the BNB balance of addr in wei.
func (c *Client) NativeBalance(ctx context.Context, addr string) (*big.Int, error) {
	var balance *big.Int
	err := c.withReadRetry(ctx, func(ctx context.Context, client *ethclient.Client) error {
		b, err := client.BalanceAt(ctx, common.HexToAddress(addr), nil)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	return balance, nil
}

// Transfer sends amountWei CAMLY from the reward wallet to addr and returns
// the transaction hash. The whole build-sign-send sequence holds the nonce
// lock, so transfers from the shared key are strictly serialized.
// Transfer moves amountWei of the token from the reward wallet to the
// recipient. When onSigned is non-nil it runs with the transaction hash
// after signing and before the broadcast; an error from it aborts the send,
// so callers can durably record the hash of every transaction that might
// reach the network.
func (c *Client) Transfer(ctx context.Context, to string, amountWei *big.Int, onSigned func(txHash string) error) (string, error) {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()

	primary := c.clients[0]

	if !c.nonceInit {
		nonceCtx, cancel := context.WithTimeout(ctx, c.cfg.RPCTimeout)
		nonce, err := primary.PendingNonceAt(nonceCtx, c.rewardSigner.Address())
		cancel()
		if err != nil {
			return "", fmt.Errorf("failed to fetch pending nonce: %w", err)
		}
		c.nextNonce = nonce
		c.nonceInit = true
	}

	gasCtx, cancel := context.WithTimeout(ctx, c.cfg.RPCTimeout)
	gasPrice, err := primary.SuggestGasPrice(gasCtx)
	cancel()
	if err != nil {
		return "", fmt.Errorf("failed to suggest gas price: %w", err)
	}

	data, err := c.erc20.Pack("transfer", common.HexToAddress(to), amountWei)
	if err != nil {
		return "", err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    c.nextNonce,
		To:       &c.token,
		Value:    big.NewInt(0),
		Gas:      erc20TransferGasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(c.cfg.ChainID)), c.rewardKey.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	txHash := signed.Hash().Hex()
	if onSigned != nil {
		if err := onSigned(txHash); err != nil {
			return "", err
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.cfg.RPCTimeout)
	err = primary.SendTransaction(sendCtx, signed)
	cancel()
	if err != nil {
		// Nonce state is suspect after any send failure; refetch next time.
		c.nonceInit = false
		if strings.Contains(err.Error(), "insufficient funds") {
			return "", ErrInsufficientGas
		}
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	c.nextNonce++
	return txHash, nil
}

// WaitMined blocks until the transaction has one confirmation, the receipt
// shows a revert, or the confirm timeout elapses.
func (c *Client) WaitMined(ctx context.Context, txHash string) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		status, err := c.TxStatus(waitCtx, txHash)
		if err == nil {
			if status {
				return nil
			}
			return ErrTxReverted
		}
		if !errors.Is(err, ErrTxNotFound) && !errors.Is(err, ErrAllRPCsFailed) {
			return err
		}

		select {
		case <-waitCtx.Done():
			return fmt.Errorf("timed out waiting for confirmation of %s: %w", txHash, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

// TxStatus looks up the receipt for txHash. Returns ErrTxNotFound while the
// transaction is still unmined.
func (c *Client) TxStatus(ctx context.Context, txHash string) (bool, error) {
	var success bool
	err := c.withReadRetry(ctx, func(ctx context.Context, client *ethclient.Client) error {
		receipt, err := client.TransactionReceipt(ctx, common.HexToHash(txHash))
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				return ErrTxNotFound
			}
			return err
		}
		success = receipt.Status == types.ReceiptStatusSuccessful
		return nil
	})
	if err != nil {
		if strings.Contains(err.Error(), ErrTxNotFound.Error()) {
			return false, ErrTxNotFound
		}
		return false, err
	}

	return success, nil
}

// ToWei converts a whole-token CAMLY amount to its 18-decimal wei form.
func ToWei(amount int64) *big.Int {
	wei := new(big.Int).Mul(big.NewInt(amount), big.NewInt(1e9))
	return wei.Mul(wei, big.NewInt(1e9))
}

// FromWei truncates a wei amount to whole tokens.
func FromWei(wei *big.Int) int64 {
	tokens := new(big.Int).Div(wei, big.NewInt(1e9))
	return tokens.Div(tokens, big.NewInt(1e9)).Int64()
}

// IsValidAddress reports whether s is a well-formed 0x address.
func IsValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// SameAddress compares two hex addresses case-insensitively.
func SameAddress(a, b string) bool {
	return common.HexToAddress(a) == common.HexToAddress(b)
}
