package dex

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"cipherdex/internal/model"
)

var (
	plainA = model.Token{
		Address: common.HexToAddress("0x1000000000000000000000000000000000000001"),
		Symbol:  "USDA",
		Kind:    model.TokenPlaintext,
	}
	plainB = model.Token{
		Address: common.HexToAddress("0x2000000000000000000000000000000000000002"),
		Symbol:  "WETH",
		Kind:    model.TokenPlaintext,
	}
	encA = model.Token{
		Address: common.HexToAddress("0x3000000000000000000000000000000000000003"),
		Symbol:  "eUSDA",
		Kind:    model.TokenEncrypted,
	}
	encB = model.Token{
		Address: common.HexToAddress("0x4000000000000000000000000000000000000004"),
		Symbol:  "eWETH",
		Kind:    model.TokenEncrypted,
	}

	allEntries = EntryPoints{
		model.DialectNative:    common.HexToAddress("0xaaa0000000000000000000000000000000000001"),
		model.DialectEncrypted: common.HexToAddress("0xaaa0000000000000000000000000000000000002"),
		model.DialectMixed:     common.HexToAddress("0xaaa0000000000000000000000000000000000003"),
	}
)

func newTestResolver(entries EntryPoints) *Resolver {
	return NewResolver(31337, entries, 3000, 60, nil)
}

func TestResolveDialectFromKinds(t *testing.T) {
	r := newTestResolver(allEntries)

	cases := []struct {
		a, b model.Token
		want model.Dialect
	}{
		{plainA, plainB, model.DialectNative},
		{encA, encB, model.DialectEncrypted},
		{plainA, encA, model.DialectMixed},
		{encA, plainA, model.DialectMixed},
	}
	for _, tc := range cases {
		desc, dialect, err := r.Resolve(tc.a, tc.b)
		if err != nil {
			t.Fatalf("resolve %s/%s: %v", tc.a.Symbol, tc.b.Symbol, err)
		}
		if desc.Dialect != tc.want {
			t.Fatalf("%s/%s resolved to %s, want %s", tc.a.Symbol, tc.b.Symbol, desc.Dialect, tc.want)
		}
		if dialect.Kind() != tc.want {
			t.Fatalf("dialect kind %s, want %s", dialect.Kind(), tc.want)
		}
		if desc.EntryPoint != allEntries[tc.want] {
			t.Fatalf("entry point %s, want %s", desc.EntryPoint.Hex(), allEntries[tc.want].Hex())
		}
	}
}

func TestResolveCanonicalOrder(t *testing.T) {
	r := newTestResolver(allEntries)

	forward, _, err := r.Resolve(plainA, plainB)
	if err != nil {
		t.Fatalf("resolve forward: %v", err)
	}
	reverse, _, err := r.Resolve(plainB, plainA)
	if err != nil {
		t.Fatalf("resolve reverse: %v", err)
	}

	if forward.PoolID != reverse.PoolID {
		t.Fatalf("pool id depends on argument order")
	}
	if forward.Token0.Address != plainA.Address {
		t.Fatalf("token0 is %s, want lower address first", forward.Token0.Symbol)
	}
}

func TestResolveFailsClosed(t *testing.T) {
	// Only the native dialect is deployed on this chain.
	r := newTestResolver(EntryPoints{
		model.DialectNative: allEntries[model.DialectNative],
	})

	if _, _, err := r.Resolve(plainA, plainB); err != nil {
		t.Fatalf("native pair should resolve: %v", err)
	}
	_, _, err := r.Resolve(encA, encB)
	if !errors.Is(err, ErrDialectUnconfigured) {
		t.Fatalf("expected ErrDialectUnconfigured, got %v", err)
	}
	_, _, err = r.Resolve(plainA, encA)
	if !errors.Is(err, ErrDialectUnconfigured) {
		t.Fatalf("expected ErrDialectUnconfigured for mixed pair, got %v", err)
	}
}

func TestResolveRejectsSameToken(t *testing.T) {
	r := newTestResolver(allEntries)
	if _, _, err := r.Resolve(plainA, plainA); err == nil {
		t.Fatalf("expected error for identical tokens")
	}
}

func TestSwitchChainDropsCache(t *testing.T) {
	r := newTestResolver(allEntries)
	before, _, err := r.Resolve(plainA, plainB)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	otherEntry := common.HexToAddress("0xbbb0000000000000000000000000000000000001")
	r.SwitchChain(1, EntryPoints{model.DialectNative: otherEntry})

	after, _, err := r.Resolve(plainA, plainB)
	if err != nil {
		t.Fatalf("resolve after switch: %v", err)
	}
	if after.ChainID != 1 || after.EntryPoint != otherEntry {
		t.Fatalf("descriptor not rebuilt after chain switch: %+v", after)
	}
	if after.PoolID == before.PoolID {
		t.Fatalf("pool id unchanged despite new entry point")
	}
}

func TestComputePoolIDDeterministic(t *testing.T) {
	entry := allEntries[model.DialectNative]
	a := ComputePoolID(plainA.Address, plainB.Address, 3000, 60, entry)
	b := ComputePoolID(plainA.Address, plainB.Address, 3000, 60, entry)
	if a != b {
		t.Fatalf("pool id not deterministic")
	}
	if a == ComputePoolID(plainA.Address, plainB.Address, 500, 60, entry) {
		t.Fatalf("fee does not affect pool id")
	}
	if a == ComputePoolID(plainA.Address, plainB.Address, 3000, 10, entry) {
		t.Fatalf("tick spacing does not affect pool id")
	}
}
