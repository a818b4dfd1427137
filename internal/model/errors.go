package model

import (
	"fmt"
)

// ErrorKind is the user-facing classification of an operation failure. Every
// provider or ledger error is mapped to exactly one kind before it reaches
// the caller; unrecognized failures keep their raw message under KindUnknown.
type ErrorKind string

const (
	KindUserCancelled       ErrorKind = "user-cancelled-signature"
	KindInsufficientFunds   ErrorKind = "insufficient-funds"
	KindInsufficientBalance ErrorKind = "insufficient-balance"
	KindDeadlineExpired     ErrorKind = "stale-price"
	KindPriceMoved          ErrorKind = "price-moved-beyond-drift"
	KindInvalidTick         ErrorKind = "invalid-tick"
	KindDialectMismatch     ErrorKind = "dialect-mismatch"
	KindSessionNotReady     ErrorKind = "session-not-ready"
	KindDecryptFailed       ErrorKind = "decrypt-failed"
	KindUnknown             ErrorKind = "unknown"
)

// TxError is the typed failure surfaced by orchestrators.
type TxError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

// NewTxError wraps cause under the given kind. Message falls back to the
// cause's text when empty.
func NewTxError(kind ErrorKind, message string, cause error) *TxError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &TxError{Kind: kind, Message: message, cause: cause}
}

func (e *TxError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TxError) Unwrap() error {
	return e.cause
}

// Is lets errors.Is match on kind: errors.Is(err, &TxError{Kind: k}).
func (e *TxError) Is(target error) bool {
	other, ok := target.(*TxError)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}
