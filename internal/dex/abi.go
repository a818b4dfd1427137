package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// The three entry point ABIs. Same operations, different call shapes: the
// encrypted dialects take ciphertext input tuples where the native dialect
// takes plain integers, and only the encrypted dialects expose the reserve
// harvest entry point.

const nativeAMMABIJSON = `[
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "int24", "name": "tick", "type": "int24"},
     {"internalType": "uint8", "name": "side", "type": "uint8"},
     {"internalType": "uint256", "name": "amount", "type": "uint256"},
     {"internalType": "uint256", "name": "deadline", "type": "uint256"},
     {"internalType": "int24", "name": "maxTickDrift", "type": "int24"}
   ], "name": "deposit", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "int24", "name": "tick", "type": "int24"},
     {"internalType": "uint8", "name": "side", "type": "uint8"},
     {"internalType": "uint256", "name": "amount", "type": "uint256"}
   ], "name": "withdraw", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "int24", "name": "tick", "type": "int24"},
     {"internalType": "uint8", "name": "side", "type": "uint8"}
   ], "name": "claim", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "bool", "name": "zeroForOne", "type": "bool"},
     {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
     {"internalType": "uint256", "name": "minAmountOut", "type": "uint256"},
     {"internalType": "uint256", "name": "deadline", "type": "uint256"}
   ], "name": "swap", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "uint256", "name": "amount0", "type": "uint256"},
     {"internalType": "uint256", "name": "amount1", "type": "uint256"},
     {"internalType": "uint256", "name": "deadline", "type": "uint256"}
   ], "name": "addLiquidity", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "uint256", "name": "shares", "type": "uint256"},
     {"internalType": "uint256", "name": "deadline", "type": "uint256"}
   ], "name": "removeLiquidity", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "bool", "name": "zeroForOne", "type": "bool"},
     {"internalType": "uint256", "name": "amountIn", "type": "uint256"}
   ], "name": "getQuote", "outputs": [
     {"internalType": "uint256", "name": "amountOut", "type": "uint256"}
   ], "stateMutability": "view", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"}
   ], "name": "getPoolReserves", "outputs": [
     {"internalType": "uint256", "name": "reserve0", "type": "uint256"},
     {"internalType": "uint256", "name": "reserve1", "type": "uint256"}
   ], "stateMutability": "view", "type": "function"}
]`

const encryptedInputComponents = `[
  {"internalType": "bytes32", "name": "ctHash", "type": "bytes32"},
  {"internalType": "uint8", "name": "securityZone", "type": "uint8"},
  {"internalType": "uint8", "name": "utype", "type": "uint8"},
  {"internalType": "bytes", "name": "signature", "type": "bytes"}
]`

const encryptedAMMABIJSON = `[
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "int24", "name": "tick", "type": "int24"},
     {"internalType": "uint8", "name": "side", "type": "uint8"},
     {"components": ` + encryptedInputComponents + `, "internalType": "struct InEuint128", "name": "encAmount", "type": "tuple"},
     {"internalType": "uint256", "name": "deadline", "type": "uint256"},
     {"internalType": "int24", "name": "maxTickDrift", "type": "int24"}
   ], "name": "deposit", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "int24", "name": "tick", "type": "int24"},
     {"internalType": "uint8", "name": "side", "type": "uint8"},
     {"components": ` + encryptedInputComponents + `, "internalType": "struct InEuint128", "name": "encAmount", "type": "tuple"}
   ], "name": "withdraw", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "int24", "name": "tick", "type": "int24"},
     {"internalType": "uint8", "name": "side", "type": "uint8"}
   ], "name": "claim", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"components": ` + encryptedInputComponents + `, "internalType": "struct InEbool", "name": "encZeroForOne", "type": "tuple"},
     {"components": ` + encryptedInputComponents + `, "internalType": "struct InEuint128", "name": "encAmountIn", "type": "tuple"},
     {"components": ` + encryptedInputComponents + `, "internalType": "struct InEuint128", "name": "encMinAmountOut", "type": "tuple"},
     {"internalType": "uint256", "name": "deadline", "type": "uint256"}
   ], "name": "swap", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"components": ` + encryptedInputComponents + `, "internalType": "struct InEuint128", "name": "encAmount0", "type": "tuple"},
     {"components": ` + encryptedInputComponents + `, "internalType": "struct InEuint128", "name": "encAmount1", "type": "tuple"},
     {"internalType": "uint256", "name": "deadline", "type": "uint256"}
   ], "name": "addLiquidity", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"components": ` + encryptedInputComponents + `, "internalType": "struct InEuint128", "name": "encShares", "type": "tuple"},
     {"internalType": "uint256", "name": "deadline", "type": "uint256"}
   ], "name": "removeLiquidity", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"}
   ], "name": "getPoolReserves", "outputs": [
     {"internalType": "uint256", "name": "reserve0", "type": "uint256"},
     {"internalType": "uint256", "name": "reserve1", "type": "uint256"}
   ], "stateMutability": "view", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"}
   ], "name": "trySyncReserves", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
]`

const mixedAMMABIJSON = `[
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "int24", "name": "tick", "type": "int24"},
     {"internalType": "uint8", "name": "side", "type": "uint8"},
     {"internalType": "uint256", "name": "amount", "type": "uint256"},
     {"components": ` + encryptedInputComponents + `, "internalType": "struct InEuint128", "name": "encAmount", "type": "tuple"},
     {"internalType": "uint256", "name": "deadline", "type": "uint256"},
     {"internalType": "int24", "name": "maxTickDrift", "type": "int24"}
   ], "name": "deposit", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "int24", "name": "tick", "type": "int24"},
     {"internalType": "uint8", "name": "side", "type": "uint8"},
     {"components": ` + encryptedInputComponents + `, "internalType": "struct InEuint128", "name": "encAmount", "type": "tuple"}
   ], "name": "withdraw", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "int24", "name": "tick", "type": "int24"},
     {"internalType": "uint8", "name": "side", "type": "uint8"}
   ], "name": "claim", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "bool", "name": "zeroForOne", "type": "bool"},
     {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
     {"components": ` + encryptedInputComponents + `, "internalType": "struct InEuint128", "name": "encAmountIn", "type": "tuple"},
     {"internalType": "uint256", "name": "minAmountOut", "type": "uint256"},
     {"internalType": "uint256", "name": "deadline", "type": "uint256"}
   ], "name": "swap", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "uint256", "name": "amount", "type": "uint256"},
     {"components": ` + encryptedInputComponents + `, "internalType": "struct InEuint128", "name": "encAmount", "type": "tuple"},
     {"internalType": "uint256", "name": "deadline", "type": "uint256"}
   ], "name": "addLiquidity", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"components": ` + encryptedInputComponents + `, "internalType": "struct InEuint128", "name": "encShares", "type": "tuple"},
     {"internalType": "uint256", "name": "deadline", "type": "uint256"}
   ], "name": "removeLiquidity", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
     {"internalType": "bool", "name": "zeroForOne", "type": "bool"},
     {"internalType": "uint256", "name": "amountIn", "type": "uint256"}
   ], "name": "getQuote", "outputs": [
     {"internalType": "uint256", "name": "amountOut", "type": "uint256"}
   ], "stateMutability": "view", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"}
   ], "name": "getPoolReserves", "outputs": [
     {"internalType": "uint256", "name": "reserve0", "type": "uint256"},
     {"internalType": "uint256", "name": "reserve1", "type": "uint256"}
   ], "stateMutability": "view", "type": "function"},
  {"inputs": [
     {"internalType": "bytes32", "name": "poolId", "type": "bytes32"}
   ], "name": "trySyncReserves", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
]`

var (
	nativeABI    abi.ABI
	nativeOnce   sync.Once
	nativeABIErr error

	encryptedABI    abi.ABI
	encryptedOnce   sync.Once
	encryptedABIErr error

	mixedABI    abi.ABI
	mixedOnce   sync.Once
	mixedABIErr error
)

// NativeAMMABI returns the parsed plaintext AMM ABI.
func NativeAMMABI() (abi.ABI, error) {
	nativeOnce.Do(func() {
		nativeABI, nativeABIErr = abi.JSON(strings.NewReader(nativeAMMABIJSON))
	})
	return nativeABI, nativeABIErr
}

// EncryptedAMMABI returns the parsed fully-encrypted AMM ABI.
func EncryptedAMMABI() (abi.ABI, error) {
	encryptedOnce.Do(func() {
		encryptedABI, encryptedABIErr = abi.JSON(strings.NewReader(encryptedAMMABIJSON))
	})
	return encryptedABI, encryptedABIErr
}

// MixedAMMABI returns the parsed mixed-encryption AMM ABI.
func MixedAMMABI() (abi.ABI, error) {
	mixedOnce.Do(func() {
		mixedABI, mixedABIErr = abi.JSON(strings.NewReader(mixedAMMABIJSON))
	})
	return mixedABI, mixedABIErr
}
