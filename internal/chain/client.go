package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// ErrTxReverted marks a transaction that was mined with a failed status.
var ErrTxReverted = errors.New("transaction reverted")

// ErrTxNotMined marks a confirmation wait that exhausted its attempts.
var ErrTxNotMined = errors.New("transaction not mined within attempt budget")

// Call is one prepared contract invocation: target plus ABI-packed calldata.
// Dialects build these; the client transports them.
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Wallet is the session capability the client consumes for submissions. The
// connection UX behind it is not this package's concern.
type Wallet interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Client wraps go-ethereum RPC with the read and submit helpers the
// orchestrators need.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	logger    *zap.Logger
}

// NewClient dials the RPC endpoint.
func NewClient(ctx context.Context, rpcURL string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		logger:    logger,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// CallContract performs an eth_call against the latest block.
func (c *Client) CallContract(ctx context.Context, call Call) ([]byte, error) {
	msg := ethereum.CallMsg{To: &call.To, Data: call.Data}
	return c.ethClient.CallContract(ctx, msg, nil)
}

// Submit signs and broadcasts a call as a transaction and returns its hash.
func (c *Client) Submit(ctx context.Context, wallet Wallet, call Call) (common.Hash, error) {
	if wallet == nil {
		return common.Hash{}, fmt.Errorf("wallet is nil")
	}

	chainID, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get chain id: %w", err)
	}
	from := wallet.Address()

	nonce, err := c.ethClient.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	gasLimit, err := c.ethClient.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &call.To,
		Value: value,
		Data:  call.Data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &call.To,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     call.Data,
	})
	signed, err := wallet.SignTx(tx, chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := c.ethClient.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}

	c.logger.Info("transaction submitted",
		zap.String("to", call.To.Hex()),
		zap.String("tx", signed.Hash().Hex()))
	return signed.Hash(), nil
}

// WaitMined polls for the receipt with a bounded attempt count. A mined
// receipt with failed status returns ErrTxReverted; running out of attempts
// returns ErrTxNotMined.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash, maxAttempts int, interval time.Duration) (*types.Receipt, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	var receipt *types.Receipt
	err := backoff.Retry(func() error {
		r, err := c.ethClient.TransactionReceipt(ctx, txHash)
		if err != nil {
			return fmt.Errorf("receipt not available: %w", err)
		}
		receipt = r
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxAttempts-1)), ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrTxNotMined, txHash.Hex())
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, txHash.Hex())
	}
	return receipt, nil
}
