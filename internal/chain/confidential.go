package chain

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Encrypted tokens expose wrap/unwrap against their plaintext counterpart:
// wrap locks plaintext balance and mints ciphertext balance, unwrap burns a
// ciphertext amount back to plaintext.
const confidentialTokenABIJSON = `[
  {"inputs": [{"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "wrap", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "unwrap", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
]`

var (
	confidentialABI    abi.ABI
	confidentialOnce   sync.Once
	confidentialABIErr error
)

func getConfidentialABI() (abi.ABI, error) {
	confidentialOnce.Do(func() {
		confidentialABI, confidentialABIErr = abi.JSON(strings.NewReader(confidentialTokenABIJSON))
	})
	return confidentialABI, confidentialABIErr
}

// WrapCall builds the wrap calldata on an encrypted token.
func WrapCall(token common.Address, amount *big.Int) (Call, error) {
	parsed, err := getConfidentialABI()
	if err != nil {
		return Call{}, err
	}
	data, err := parsed.Pack("wrap", amount)
	if err != nil {
		return Call{}, fmt.Errorf("pack wrap: %w", err)
	}
	return Call{To: token, Data: data}, nil
}

// UnwrapCall builds the unwrap calldata on an encrypted token.
func UnwrapCall(token common.Address, amount *big.Int) (Call, error) {
	parsed, err := getConfidentialABI()
	if err != nil {
		return Call{}, err
	}
	data, err := parsed.Pack("unwrap", amount)
	if err != nil {
		return Call{}, fmt.Errorf("pack unwrap: %w", err)
	}
	return Call{To: token, Data: data}, nil
}
