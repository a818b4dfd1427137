package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "owner", "type": "address"}, {"internalType": "address", "name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "spender", "type": "address"}, {"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "approve", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"internalType": "string", "name": "", "type": "string"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI    abi.ABI
	erc20Once   sync.Once
	erc20ABIErr error
)

func getERC20ABI() (abi.ABI, error) {
	erc20Once.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

// MaxApproval is the unlimited-approval amount, 2^256-1.
var MaxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Allowance reads the spender allowance of a plaintext token.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	tokenABI, err := getERC20ABI()
	if err != nil {
		return nil, err
	}
	data, err := tokenABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("pack allowance: %w", err)
	}
	resp, err := c.CallContract(ctx, Call{To: token, Data: data})
	if err != nil {
		return nil, fmt.Errorf("call allowance: %w", err)
	}
	values, err := tokenABI.Unpack("allowance", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack allowance: %w", err)
	}
	allowance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("allowance is not uint256")
	}
	return allowance, nil
}

// HasEncryptedAllowance checks whether any allowance ciphertext exists for
// the spender on an encrypted token. Magnitude is not observable without
// decryption, so existence of a non-zero handle is the whole check.
func (c *Client) HasEncryptedAllowance(ctx context.Context, token, owner, spender common.Address) (bool, error) {
	tokenABI, err := getERC20ABI()
	if err != nil {
		return false, err
	}
	data, err := tokenABI.Pack("allowance", owner, spender)
	if err != nil {
		return false, fmt.Errorf("pack allowance: %w", err)
	}
	resp, err := c.CallContract(ctx, Call{To: token, Data: data})
	if err != nil {
		return false, fmt.Errorf("call allowance: %w", err)
	}
	if len(resp) < 32 {
		return false, nil
	}
	return common.BytesToHash(resp[:32]) != (common.Hash{}), nil
}

// BalanceOf reads the plaintext balance of an account.
func (c *Client) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	tokenABI, err := getERC20ABI()
	if err != nil {
		return nil, err
	}
	data, err := tokenABI.Pack("balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	resp, err := c.CallContract(ctx, Call{To: token, Data: data})
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}
	values, err := tokenABI.Unpack("balanceOf", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balance is not uint256")
	}
	return balance, nil
}

// EncryptedBalanceHandle reads the raw balance slot of an encrypted token as
// a ciphertext handle hash.
func (c *Client) EncryptedBalanceHandle(ctx context.Context, token, account common.Address) (common.Hash, error) {
	tokenABI, err := getERC20ABI()
	if err != nil {
		return common.Hash{}, err
	}
	data, err := tokenABI.Pack("balanceOf", account)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack balanceOf: %w", err)
	}
	resp, err := c.CallContract(ctx, Call{To: token, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("call balanceOf: %w", err)
	}
	if len(resp) < 32 {
		return common.Hash{}, fmt.Errorf("balance response too short: %d bytes", len(resp))
	}
	return common.BytesToHash(resp[:32]), nil
}

// ApproveCall builds the approve calldata for a plaintext or encrypted token.
func ApproveCall(token, spender common.Address, amount *big.Int) (Call, error) {
	tokenABI, err := getERC20ABI()
	if err != nil {
		return Call{}, err
	}
	data, err := tokenABI.Pack("approve", spender, amount)
	if err != nil {
		return Call{}, fmt.Errorf("pack approve: %w", err)
	}
	return Call{To: token, Data: data}, nil
}

// TokenMeta reads decimals and symbol of a token contract.
func (c *Client) TokenMeta(ctx context.Context, token common.Address) (uint8, string, error) {
	tokenABI, err := getERC20ABI()
	if err != nil {
		return 0, "", err
	}

	data, err := tokenABI.Pack("decimals")
	if err != nil {
		return 0, "", fmt.Errorf("pack decimals: %w", err)
	}
	resp, err := c.CallContract(ctx, Call{To: token, Data: data})
	if err != nil {
		return 0, "", fmt.Errorf("call decimals: %w", err)
	}
	values, err := tokenABI.Unpack("decimals", resp)
	if err != nil {
		return 0, "", fmt.Errorf("unpack decimals: %w", err)
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, "", fmt.Errorf("decimals is not uint8")
	}

	symbol := ""
	if data, err = tokenABI.Pack("symbol"); err == nil {
		if resp, err := c.CallContract(ctx, Call{To: token, Data: data}); err == nil {
			if values, err := tokenABI.Unpack("symbol", resp); err == nil {
				if s, ok := values[0].(string); ok {
					symbol = s
				}
			}
		}
	}
	return decimals, symbol, nil
}
