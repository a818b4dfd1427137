package fhe

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"cipherdex/internal/model"
)

var testAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")

func readySession(t *testing.T, p Provider) *Session {
	t.Helper()
	s := NewSession(p, 1, nil)
	if err := s.Init(testAccount, 31337); err != nil {
		t.Fatalf("init session: %v", err)
	}
	return s
}

func TestMockRoundTrip(t *testing.T) {
	s := readySession(t, NewMockProvider())
	ctx := context.Background()

	for _, v := range []int64{0, 1, 42, 1 << 40} {
		value := big.NewInt(v)
		handle, err := s.Encrypt(ctx, value)
		if err != nil {
			t.Fatalf("encrypt %d: %v", v, err)
		}
		got, err := s.Decrypt(ctx, handle, 3)
		if err != nil {
			t.Fatalf("decrypt %d: %v", v, err)
		}
		if got.Cmp(value) != 0 {
			t.Fatalf("round trip %d gave %s", v, got)
		}
	}

	huge := new(big.Int).Lsh(big.NewInt(1), 128)
	handle, err := s.Encrypt(ctx, huge)
	if err != nil {
		t.Fatalf("encrypt 2^128: %v", err)
	}
	got, err := s.Decrypt(ctx, handle, 1)
	if err != nil {
		t.Fatalf("decrypt 2^128: %v", err)
	}
	if got.Cmp(huge) != 0 {
		t.Fatalf("round trip 2^128 gave %s", got)
	}
}

func TestMockBoolRoundTrip(t *testing.T) {
	s := readySession(t, NewMockProvider())
	ctx := context.Background()

	for _, v := range []bool{true, false} {
		handle, err := s.EncryptBool(ctx, v)
		if err != nil {
			t.Fatalf("encrypt bool %v: %v", v, err)
		}
		got, err := s.Decrypt(ctx, handle, 1)
		if err != nil {
			t.Fatalf("decrypt bool %v: %v", v, err)
		}
		want := int64(0)
		if v {
			want = 1
		}
		if got.Int64() != want {
			t.Fatalf("bool round trip %v gave %s", v, got)
		}
	}
}

func TestMockRejectsNegative(t *testing.T) {
	s := readySession(t, NewMockProvider())
	if _, err := s.Encrypt(context.Background(), big.NewInt(-1)); err == nil {
		t.Fatalf("expected error for negative value")
	}
}

func TestSessionNotReady(t *testing.T) {
	s := NewSession(NewMockProvider(), 1, nil)
	_, err := s.Encrypt(context.Background(), big.NewInt(1))
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}

	var txErr *model.TxError
	if !errors.As(err, &txErr) || txErr.Kind != model.KindSessionNotReady {
		t.Fatalf("expected session-not-ready kind, got %v", err)
	}
}

func TestSessionDispose(t *testing.T) {
	s := readySession(t, NewMockProvider())
	s.Dispose()
	if s.Ready() {
		t.Fatalf("session still ready after dispose")
	}
	if _, err := s.EncryptBool(context.Background(), true); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady after dispose, got %v", err)
	}
}

func TestSessionMatches(t *testing.T) {
	s := readySession(t, NewMockProvider())
	if !s.Matches(testAccount, 31337) {
		t.Fatalf("session does not match its own binding")
	}
	if s.Matches(testAccount, 1) {
		t.Fatalf("session matched a different chain")
	}
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	if s.Matches(other, 31337) {
		t.Fatalf("session matched a different account")
	}
}

// flakyProvider fails a fixed number of decrypts before succeeding.
type flakyProvider struct {
	MockProvider
	failures int
	calls    int
}

func (p *flakyProvider) Decrypt(ctx context.Context, handle model.CiphertextHandle) (*big.Int, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, fmt.Errorf("transient decrypt failure %d", p.calls)
	}
	return p.MockProvider.Decrypt(ctx, handle)
}

func TestDecryptRetriesTransientFailures(t *testing.T) {
	p := &flakyProvider{failures: 2}
	s := readySession(t, p)
	ctx := context.Background()

	handle, err := s.Encrypt(ctx, big.NewInt(7))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	got, err := s.Decrypt(ctx, handle, 5)
	if err != nil {
		t.Fatalf("decrypt after retries: %v", err)
	}
	if got.Int64() != 7 {
		t.Fatalf("decrypt gave %s, want 7", got)
	}
	if p.calls != 3 {
		t.Fatalf("provider called %d times, want 3", p.calls)
	}
}

func TestDecryptExhaustionIsTerminal(t *testing.T) {
	p := &flakyProvider{failures: 10}
	s := readySession(t, p)
	ctx := context.Background()

	handle, err := s.Encrypt(ctx, big.NewInt(7))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	value, err := s.Decrypt(ctx, handle, 3)
	if !errors.Is(err, ErrDecryptExhausted) {
		t.Fatalf("expected ErrDecryptExhausted, got %v", err)
	}
	if value != nil {
		t.Fatalf("exhausted decrypt returned value %s, want nil", value)
	}
	if p.calls != 3 {
		t.Fatalf("provider called %d times, want exactly 3", p.calls)
	}
}
