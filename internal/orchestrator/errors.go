package orchestrator

import (
	"errors"
	"strings"

	"cipherdex/internal/dex"
	"cipherdex/internal/fhe"
	"cipherdex/internal/model"
	"cipherdex/internal/tickmath"
)

// classify maps a provider or ledger failure onto the user-facing taxonomy.
// Already-typed errors pass through unchanged; unrecognized failures keep
// their raw message under KindUnknown. Classification itself never fails.
func classify(err error) *model.TxError {
	if err == nil {
		return nil
	}

	var typed *model.TxError
	if errors.As(err, &typed) {
		return typed
	}

	switch {
	case errors.Is(err, fhe.ErrNotReady):
		return model.NewTxError(model.KindSessionNotReady, "", err)
	case errors.Is(err, fhe.ErrDecryptExhausted):
		return model.NewTxError(model.KindDecryptFailed, "", err)
	case errors.Is(err, dex.ErrDialectUnconfigured):
		return model.NewTxError(model.KindDialectMismatch, "", err)
	case errors.Is(err, tickmath.ErrTickOutOfRange), errors.Is(err, tickmath.ErrTickSpacing):
		return model.NewTxError(model.KindInvalidTick, "", err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "user denied", "user rejected", "request rejected", "signature denied"):
		return model.NewTxError(model.KindUserCancelled, "", err)
	case containsAny(msg, "insufficient funds for gas", "insufficient funds"):
		return model.NewTxError(model.KindInsufficientFunds, "", err)
	case containsAny(msg, "insufficient balance", "exceeds balance", "insufficient shares"):
		return model.NewTxError(model.KindInsufficientBalance, "", err)
	case containsAny(msg, "deadline", "expired", "stale price"):
		return model.NewTxError(model.KindDeadlineExpired, "", err)
	case containsAny(msg, "tick drift", "price moved", "slippage", "too little received"):
		return model.NewTxError(model.KindPriceMoved, "", err)
	case containsAny(msg, "invalid tick", "tick out of range", "tick spacing"):
		return model.NewTxError(model.KindInvalidTick, "", err)
	case containsAny(msg, "dialect", "wrong pool variant"):
		return model.NewTxError(model.KindDialectMismatch, "", err)
	default:
		return model.NewTxError(model.KindUnknown, err.Error(), err)
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
