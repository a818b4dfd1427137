package orchestrator

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"cipherdex/internal/chain"
	"cipherdex/internal/dex"
	"cipherdex/internal/model"
)

var (
	plainUSD = model.Token{
		Address:  common.HexToAddress("0x1000000000000000000000000000000000000001"),
		Symbol:   "USD",
		Decimals: 18,
		Kind:     model.TokenPlaintext,
	}
	plainETH = model.Token{
		Address:  common.HexToAddress("0x2000000000000000000000000000000000000002"),
		Symbol:   "WETH",
		Decimals: 18,
		Kind:     model.TokenPlaintext,
	}
	encUSD = model.Token{
		Address:     common.HexToAddress("0x3000000000000000000000000000000000000003"),
		Symbol:      "eUSD",
		Decimals:    18,
		Kind:        model.TokenEncrypted,
		PairedToken: plainUSD.Address,
	}
	encETH = model.Token{
		Address:     common.HexToAddress("0x4000000000000000000000000000000000000004"),
		Symbol:      "eWETH",
		Decimals:    18,
		Kind:        model.TokenEncrypted,
		PairedToken: plainETH.Address,
	}

	// Plaintext WETH that has an encrypted twin, for conversion flows.
	wrappedETH = model.Token{
		Address:     common.HexToAddress("0x5000000000000000000000000000000000000005"),
		Symbol:      "WETH",
		Decimals:    18,
		Kind:        model.TokenPlaintext,
		PairedToken: encETH.Address,
	}

	entries = dex.EntryPoints{
		model.DialectNative:    common.HexToAddress("0xaaa0000000000000000000000000000000000001"),
		model.DialectEncrypted: common.HexToAddress("0xaaa0000000000000000000000000000000000002"),
		model.DialectMixed:     common.HexToAddress("0xaaa0000000000000000000000000000000000003"),
	}

	reservesSelector = crypto.Keccak256([]byte("getPoolReserves(bytes32)"))[:4]
	quoteSelector    = crypto.Keccak256([]byte("getQuote(bytes32,bool,uint256)"))[:4]
	syncSelector     = crypto.Keccak256([]byte("trySyncReserves(bytes32)"))[:4]
	wrapSelector     = crypto.Keccak256([]byte("wrap(uint256)"))[:4]
	unwrapSelector   = crypto.Keccak256([]byte("unwrap(uint256)"))[:4]
	approveSelector  = crypto.Keccak256([]byte("approve(address,uint256)"))[:4]
)

type fakeWallet struct{}

func (fakeWallet) Address() common.Address {
	return common.HexToAddress("0x9999999999999999999999999999999999999999")
}

func (fakeWallet) SignTx(tx *types.Transaction, _ *big.Int) (*types.Transaction, error) {
	return tx, nil
}

// fakeLedger answers reads from in-memory state and records every
// submission. Reserves flip from baseline once enough harvest calls landed.
type fakeLedger struct {
	mu sync.Mutex

	reserve0, reserve1 *big.Int
	quoteOut           *big.Int

	allowance   *big.Int
	encAllowed  bool
	encBalances map[common.Address]common.Hash
	balances    map[common.Address]*big.Int

	harvestNeeded int
	harvests      int

	submitErr error
	waitErr   error

	submitted []chain.Call
	calls     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		reserve0:    big.NewInt(1_000_000),
		reserve1:    big.NewInt(1_000_000),
		quoteOut:    big.NewInt(2000),
		allowance:   new(big.Int),
		encBalances: make(map[common.Address]common.Hash),
		balances:    make(map[common.Address]*big.Int),
	}
}

func (f *fakeLedger) selectorOf(data []byte) []byte {
	if len(data) < 4 {
		return nil
	}
	return data[:4]
}

func (f *fakeLedger) CallContract(_ context.Context, call chain.Call) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	parsed, err := dex.NativeAMMABI()
	if err != nil {
		return nil, err
	}
	switch {
	case string(f.selectorOf(call.Data)) == string(reservesSelector):
		return parsed.Methods["getPoolReserves"].Outputs.Pack(f.reserve0, f.reserve1)
	case string(f.selectorOf(call.Data)) == string(quoteSelector):
		return parsed.Methods["getQuote"].Outputs.Pack(f.quoteOut)
	default:
		return nil, fmt.Errorf("unexpected read %x", f.selectorOf(call.Data))
	}
}

func (f *fakeLedger) Submit(_ context.Context, _ chain.Wallet, call chain.Call) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return common.Hash{}, f.submitErr
	}
	f.submitted = append(f.submitted, call)

	if string(f.selectorOf(call.Data)) == string(syncSelector) {
		f.harvests++
		if f.harvestNeeded > 0 && f.harvests >= f.harvestNeeded {
			f.reserve0 = new(big.Int).Add(f.reserve0, big.NewInt(777))
		}
	}

	var hash common.Hash
	binary.BigEndian.PutUint64(hash[:8], uint64(len(f.submitted)))
	return hash, nil
}

func (f *fakeLedger) WaitMined(_ context.Context, txHash common.Hash, _ int, _ time.Duration) (*types.Receipt, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: txHash}, nil
}

func (f *fakeLedger) Allowance(context.Context, common.Address, common.Address, common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.allowance), nil
}

func (f *fakeLedger) HasEncryptedAllowance(context.Context, common.Address, common.Address, common.Address) (bool, error) {
	return f.encAllowed, nil
}

func (f *fakeLedger) BalanceOf(_ context.Context, token, _ common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if balance, ok := f.balances[token]; ok {
		return new(big.Int).Set(balance), nil
	}
	return new(big.Int), nil
}

func (f *fakeLedger) EncryptedBalanceHandle(_ context.Context, token, _ common.Address) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.encBalances[token], nil
}

func (f *fakeLedger) submissionSelectors() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, 0, len(f.submitted))
	for _, call := range f.submitted {
		out = append(out, call.Data[:4])
	}
	return out
}

// stubSession implements Encryptor with call counting and optional failure.
type stubSession struct {
	ready       bool
	encrypts    int
	encryptsB   int
	decrypts    int
	decryptErr  error
	decryptWith *big.Int
}

func (s *stubSession) Ready() bool { return s.ready }

func (s *stubSession) Encrypt(_ context.Context, value *big.Int) (model.CiphertextHandle, error) {
	if !s.ready {
		return model.CiphertextHandle{}, model.NewTxError(model.KindSessionNotReady, "", nil)
	}
	s.encrypts++
	return model.CiphertextHandle{Hash: common.BigToHash(value), TypeTag: 0x10}, nil
}

func (s *stubSession) EncryptBool(_ context.Context, value bool) (model.CiphertextHandle, error) {
	if !s.ready {
		return model.CiphertextHandle{}, model.NewTxError(model.KindSessionNotReady, "", nil)
	}
	s.encryptsB++
	v := big.NewInt(0)
	if value {
		v.SetInt64(1)
	}
	return model.CiphertextHandle{Hash: common.BigToHash(v), TypeTag: 0x11}, nil
}

func (s *stubSession) Decrypt(_ context.Context, handle model.CiphertextHandle, _ int) (*big.Int, error) {
	s.decrypts++
	if s.decryptErr != nil {
		return nil, s.decryptErr
	}
	if s.decryptWith != nil {
		return s.decryptWith, nil
	}
	return handle.Hash.Big(), nil
}

func testDeps(ledger *fakeLedger, session Encryptor) Deps {
	return Deps{
		Ledger:   ledger,
		Wallet:   fakeWallet{},
		Session:  session,
		Resolver: dex.NewResolver(31337, entries, 3000, 60, nil),
		Config: Config{
			DeadlineOffset:  time.Minute,
			SlippageBps:     50,
			TakerTickDrift:  120,
			WaitAttempts:    1,
			WaitInterval:    time.Nanosecond,
			DecryptAttempts: 2,
			ResyncAttempts:  5,
			ResyncInterval:  time.Nanosecond,
		},
	}
}

func TestPlaceOrderRejectsZeroAmount(t *testing.T) {
	ledger := newFakeLedger()
	p := NewPlaceOrder(testDeps(ledger, &stubSession{ready: true}))

	_, err := p.Run(context.Background(), plainUSD, plainETH, 120, big.NewInt(0), true)
	if err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if p.Step() != StepError {
		t.Fatalf("step is %s, want error", p.Step())
	}
	if len(ledger.submitted) != 0 || ledger.calls != 0 {
		t.Fatalf("ledger was contacted during local validation")
	}
}

func TestPlaceOrderRejectsInvalidTick(t *testing.T) {
	ledger := newFakeLedger()
	p := NewPlaceOrder(testDeps(ledger, &stubSession{ready: true}))

	_, err := p.Run(context.Background(), plainUSD, plainETH, 61, big.NewInt(100), true)
	var txErr *model.TxError
	if !errors.As(err, &txErr) || txErr.Kind != model.KindInvalidTick {
		t.Fatalf("expected invalid-tick error, got %v", err)
	}
	if len(ledger.submitted) != 0 {
		t.Fatalf("invalid tick reached the ledger")
	}
}

func TestPlaceOrderNativeFlow(t *testing.T) {
	ledger := newFakeLedger()
	session := &stubSession{ready: true}
	p := NewPlaceOrder(testDeps(ledger, session))

	result, err := p.Run(context.Background(), plainUSD, plainETH, -120, big.NewInt(500), true)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if p.Step() != StepComplete {
		t.Fatalf("step is %s, want complete", p.Step())
	}
	if session.encrypts != 0 {
		t.Fatalf("native order encrypted %d values", session.encrypts)
	}

	// Zero allowance forces an approval before the deposit.
	selectors := ledger.submissionSelectors()
	if len(selectors) != 2 {
		t.Fatalf("submitted %d transactions, want approve+deposit", len(selectors))
	}
	if string(selectors[0]) != string(approveSelector) {
		t.Fatalf("first submission is not approve")
	}

	parsed, _ := dex.NativeAMMABI()
	if string(selectors[1]) != string(parsed.Methods["deposit"].ID) {
		t.Fatalf("second submission is not deposit")
	}
	if result.Bucket.Tick != -120 || result.Bucket.Side != model.SideBuy {
		t.Fatalf("bucket %+v, want tick -120 buy", result.Bucket)
	}
	// Equal reserves put the current tick at 0, so a buy below is a maker
	// order.
	if result.Classification.OrderType != model.OrderLimitBuy {
		t.Fatalf("classified as %s, want limit-buy", result.Classification.OrderType)
	}
}

func TestPlaceOrderTakerGetsBoundedDrift(t *testing.T) {
	ledger := newFakeLedger()
	p := NewPlaceOrder(testDeps(ledger, &stubSession{ready: true}))

	result, err := p.Run(context.Background(), plainUSD, plainETH, 120, big.NewInt(500), true)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if result.Classification.OrderType != model.OrderTakeProfit {
		t.Fatalf("classified as %s, want take-profit", result.Classification.OrderType)
	}
	if result.Classification.MaxTickDrift != 120 {
		t.Fatalf("taker drift %d, want configured 120", result.Classification.MaxTickDrift)
	}
}

func TestPlaceOrderEncryptedFlow(t *testing.T) {
	ledger := newFakeLedger()
	ledger.encAllowed = true
	session := &stubSession{ready: true}
	p := NewPlaceOrder(testDeps(ledger, session))

	_, err := p.Run(context.Background(), encUSD, encETH, -120, big.NewInt(500), true)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if session.encrypts != 1 {
		t.Fatalf("encrypted %d values, want exactly the amount", session.encrypts)
	}

	parsed, _ := dex.EncryptedAMMABI()
	selectors := ledger.submissionSelectors()
	if len(selectors) != 1 || string(selectors[0]) != string(parsed.Methods["deposit"].ID) {
		t.Fatalf("want a single encrypted deposit submission")
	}
}

func TestPlaceOrderSessionNotReadyFailsBeforeAnySubmission(t *testing.T) {
	ledger := newFakeLedger()
	// No pre-existing allowance: a late readiness check would broadcast the
	// max-approval before discovering the session is unusable.
	p := NewPlaceOrder(testDeps(ledger, &stubSession{ready: false}))

	_, err := p.Run(context.Background(), encUSD, encETH, -120, big.NewInt(500), true)
	var txErr *model.TxError
	if !errors.As(err, &txErr) || txErr.Kind != model.KindSessionNotReady {
		t.Fatalf("expected session-not-ready, got %v", err)
	}
	if len(ledger.submitted) != 0 {
		t.Fatalf("%d transactions reached the ledger before the readiness failure", len(ledger.submitted))
	}
}

func TestAddLiquiditySessionNotReadyFailsLocally(t *testing.T) {
	ledger := newFakeLedger()
	a := NewAddLiquidity(testDeps(ledger, &stubSession{ready: false}))

	_, err := a.Run(context.Background(), plainETH, encUSD, big.NewInt(100), big.NewInt(200))
	var txErr *model.TxError
	if !errors.As(err, &txErr) || txErr.Kind != model.KindSessionNotReady {
		t.Fatalf("expected session-not-ready, got %v", err)
	}
	if len(ledger.submitted) != 0 || ledger.calls != 0 {
		t.Fatalf("ledger was contacted despite the unready session")
	}
}

func TestWithdrawAllUsesMaxSentinel(t *testing.T) {
	ledger := newFakeLedger()
	w := NewWithdraw(testDeps(ledger, &stubSession{ready: true}))

	_, err := w.Run(context.Background(), plainUSD, plainETH, 60, model.SideSell, nil)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	parsed, _ := dex.NativeAMMABI()
	if len(ledger.submitted) != 1 {
		t.Fatalf("submitted %d transactions, want 1", len(ledger.submitted))
	}
	values, err := parsed.Methods["withdraw"].Inputs.Unpack(ledger.submitted[0].Data[4:])
	if err != nil {
		t.Fatalf("unpack withdraw: %v", err)
	}
	amount := values[3].(*big.Int)
	if amount.Cmp(MaxUint128) != 0 {
		t.Fatalf("withdraw-all amount is %s, want max uint128", amount)
	}
}

func TestWithdrawEncryptedEncryptsSentinel(t *testing.T) {
	ledger := newFakeLedger()
	session := &stubSession{ready: true}
	w := NewWithdraw(testDeps(ledger, session))

	_, err := w.Run(context.Background(), encUSD, encETH, 60, model.SideSell, nil)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if session.encrypts != 1 {
		t.Fatalf("encrypted %d values, want 1", session.encrypts)
	}
	if w.Step() != StepComplete {
		t.Fatalf("step %s, want complete", w.Step())
	}
}

func TestClaimSubmitsWithoutAmount(t *testing.T) {
	ledger := newFakeLedger()
	c := NewClaim(testDeps(ledger, &stubSession{ready: true}))

	_, err := c.Run(context.Background(), plainUSD, plainETH, 0, model.SideBuy)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	parsed, _ := dex.NativeAMMABI()
	selectors := ledger.submissionSelectors()
	if len(selectors) != 1 || string(selectors[0]) != string(parsed.Methods["claim"].ID) {
		t.Fatalf("want a single claim submission")
	}
}

func TestSwapNativeMinOutFromQuote(t *testing.T) {
	ledger := newFakeLedger()
	ledger.allowance = big.NewInt(1 << 30)
	s := NewSwap(testDeps(ledger, &stubSession{ready: true}))

	result, err := s.Run(context.Background(), plainUSD, plainETH, big.NewInt(1000))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if result.Quote.Estimated {
		t.Fatalf("native quote flagged as estimate")
	}
	// 2000 quoted minus 50 bps.
	if result.MinOut.Int64() != 1990 {
		t.Fatalf("min out %s, want 1990", result.MinOut)
	}

	parsed, _ := dex.NativeAMMABI()
	last := ledger.submitted[len(ledger.submitted)-1]
	values, err := parsed.Methods["swap"].Inputs.Unpack(last.Data[4:])
	if err != nil {
		t.Fatalf("unpack swap: %v", err)
	}
	if got := values[3].(*big.Int); got.Int64() != 1990 {
		t.Fatalf("submitted min out %s, want 1990", got)
	}
}

func TestSwapEncryptedEstimatesAndResyncs(t *testing.T) {
	ledger := newFakeLedger()
	ledger.encAllowed = true
	ledger.harvestNeeded = 2
	session := &stubSession{ready: true}
	s := NewSwap(testDeps(ledger, session))

	result, err := s.Run(context.Background(), encUSD, encETH, big.NewInt(1000))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if !result.Quote.Estimated {
		t.Fatalf("encrypted quote not flagged as estimate")
	}
	// Direction, amount and min output all travel encrypted.
	if session.encrypts != 2 || session.encryptsB != 1 {
		t.Fatalf("encrypted %d+%d values, want 2 uints and 1 bool", session.encrypts, session.encryptsB)
	}
	if !result.ReservesSynced {
		t.Fatalf("reserves did not resync")
	}
	if ledger.harvests != 2 {
		t.Fatalf("polled %d harvests, want early stop at 2", ledger.harvests)
	}
}

func TestResyncExhaustionIsSoft(t *testing.T) {
	ledger := newFakeLedger() // reserves never change
	deps := testDeps(ledger, &stubSession{ready: true})
	deps.Config.ResyncAttempts = 4
	r := NewReserveResync(deps)

	_, dialect, err := deps.Resolver.Resolve(encUSD, encETH)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	changed, err := r.Run(context.Background(), dialect, common.HexToHash("0xaa"), big.NewInt(1_000_000), big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if changed {
		t.Fatalf("resync reported a change that never happened")
	}
	if ledger.harvests != 4 {
		t.Fatalf("harvested %d times, want the full budget of 4", ledger.harvests)
	}
}

func TestAddLiquidityInsertsWrap(t *testing.T) {
	ledger := newFakeLedger()
	ledger.encAllowed = true
	ledger.allowance = big.NewInt(1 << 40)
	ledger.harvestNeeded = 1
	// No ciphertext balance for the encrypted leg, ample plaintext in the
	// paired token.
	ledger.balances[plainUSD.Address] = big.NewInt(1 << 40)
	session := &stubSession{ready: true}
	a := NewAddLiquidity(testDeps(ledger, session))

	// Mixed pool: plaintext WETH with encrypted eUSD.
	_, err := a.Run(context.Background(), plainETH, encUSD, big.NewInt(100), big.NewInt(200))
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}

	// Wrap first, then the liquidity call, then the reserve harvest.
	selectors := ledger.submissionSelectors()
	if len(selectors) != 3 || string(selectors[0]) != string(wrapSelector) {
		t.Fatalf("first submission is not wrap (got %d submissions)", len(selectors))
	}
	parsed, _ := dex.MixedAMMABI()
	if string(selectors[1]) != string(parsed.Methods["addLiquidity"].ID) {
		t.Fatalf("second submission is not addLiquidity")
	}
}

func TestAddLiquidityUnwrapsShortPlaintextLeg(t *testing.T) {
	ledger := newFakeLedger()
	ledger.encAllowed = true
	ledger.allowance = big.NewInt(1 << 40)
	ledger.harvestNeeded = 1
	// Encrypted leg is already funded; the plaintext leg holds 30 of 100
	// with the remainder sitting in the encrypted twin.
	ledger.encBalances[encUSD.Address] = common.BigToHash(big.NewInt(1))
	ledger.encBalances[encETH.Address] = common.BigToHash(big.NewInt(1))
	ledger.balances[wrappedETH.Address] = big.NewInt(30)
	a := NewAddLiquidity(testDeps(ledger, &stubSession{ready: true}))

	_, err := a.Run(context.Background(), wrappedETH, encUSD, big.NewInt(100), big.NewInt(200))
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}

	selectors := ledger.submissionSelectors()
	if len(selectors) != 3 || string(selectors[0]) != string(unwrapSelector) {
		t.Fatalf("first submission is not unwrap (got %d submissions)", len(selectors))
	}
	unwrap := ledger.submitted[0]
	if unwrap.To != encETH.Address {
		t.Fatalf("unwrap sent to %s, want the encrypted twin", unwrap.To)
	}
	if got := new(big.Int).SetBytes(unwrap.Data[4:]); got.Int64() != 70 {
		t.Fatalf("unwrapped %s, want the 70 shortfall", got)
	}
}

func TestAddLiquidityMapsAmountsToCanonicalSlots(t *testing.T) {
	ledger := newFakeLedger()
	ledger.encAllowed = true
	ledger.allowance = big.NewInt(1 << 40)
	ledger.harvestNeeded = 1
	ledger.encBalances[encUSD.Address] = common.BigToHash(big.NewInt(1))
	a := NewAddLiquidity(testDeps(ledger, &stubSession{ready: true}))

	// Caller names the encrypted token first; the pool orders the
	// plaintext token as slot zero.
	_, err := a.Run(context.Background(), encUSD, plainETH, big.NewInt(200), big.NewInt(100))
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}

	parsed, _ := dex.MixedAMMABI()
	method := parsed.Methods["addLiquidity"]
	var addCall *chain.Call
	for i, call := range ledger.submitted {
		if string(call.Data[:4]) == string(method.ID) {
			addCall = &ledger.submitted[i]
		}
	}
	if addCall == nil {
		t.Fatalf("no addLiquidity submission")
	}
	values, err := method.Inputs.Unpack(addCall.Data[4:])
	if err != nil {
		t.Fatalf("unpack addLiquidity: %v", err)
	}
	if plain := values[1].(*big.Int); plain.Int64() != 100 {
		t.Fatalf("plaintext slot got %s, want the WETH amount 100", plain)
	}
}

func TestAddLiquidityInsufficientPairedBalance(t *testing.T) {
	ledger := newFakeLedger()
	ledger.encAllowed = true
	// Neither ciphertext balance nor plaintext cover.
	a := NewAddLiquidity(testDeps(ledger, &stubSession{ready: true}))

	_, err := a.Run(context.Background(), plainETH, encUSD, big.NewInt(100), big.NewInt(200))
	var txErr *model.TxError
	if !errors.As(err, &txErr) || txErr.Kind != model.KindInsufficientBalance {
		t.Fatalf("expected insufficient-balance, got %v", err)
	}
}

func TestRemoveLiquidityEncryptsShares(t *testing.T) {
	ledger := newFakeLedger()
	ledger.harvestNeeded = 1
	session := &stubSession{ready: true}
	r := NewRemoveLiquidity(testDeps(ledger, session))

	result, err := r.Run(context.Background(), encUSD, encETH, nil)
	if err != nil {
		t.Fatalf("remove liquidity: %v", err)
	}
	if session.encrypts != 1 {
		t.Fatalf("encrypted %d values, want the shares sentinel", session.encrypts)
	}
	if !result.ReservesSynced {
		t.Fatalf("reserves did not resync")
	}
}

func TestRevealCachesValue(t *testing.T) {
	ledger := newFakeLedger()
	ledger.encBalances[encUSD.Address] = common.BigToHash(big.NewInt(424242))
	session := &stubSession{ready: true}
	deps := testDeps(ledger, session)
	b := NewBalanceReveal(deps, 31337, time.Minute, nil)

	account := fakeWallet{}.Address()
	value, err := b.Reveal(context.Background(), account, encUSD)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if value.Int64() != 424242 {
		t.Fatalf("revealed %s, want 424242", value)
	}

	// Second read hits the cache.
	if _, err := b.Reveal(context.Background(), account, encUSD); err != nil {
		t.Fatalf("cached reveal: %v", err)
	}
	if session.decrypts != 1 {
		t.Fatalf("decrypted %d times, want 1", session.decrypts)
	}

	b.Invalidate()
	if _, err := b.Reveal(context.Background(), account, encUSD); err != nil {
		t.Fatalf("reveal after invalidate: %v", err)
	}
	if session.decrypts != 2 {
		t.Fatalf("decrypted %d times after invalidate, want 2", session.decrypts)
	}
}

func TestRevealFailureIsNotZero(t *testing.T) {
	ledger := newFakeLedger()
	ledger.encBalances[encUSD.Address] = common.BigToHash(big.NewInt(5))
	session := &stubSession{ready: true, decryptErr: fmt.Errorf("backend unavailable")}
	b := NewBalanceReveal(testDeps(ledger, session), 31337, time.Minute, nil)

	value, err := b.Reveal(context.Background(), fakeWallet{}.Address(), encUSD)
	if err == nil {
		t.Fatalf("expected error from failed decrypt")
	}
	if value != nil {
		t.Fatalf("failed decrypt returned %s, want nil", value)
	}
}

func TestRevealMissingHandleIsZero(t *testing.T) {
	ledger := newFakeLedger()
	session := &stubSession{ready: true}
	b := NewBalanceReveal(testDeps(ledger, session), 31337, time.Minute, nil)

	value, err := b.Reveal(context.Background(), fakeWallet{}.Address(), encUSD)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if value.Sign() != 0 {
		t.Fatalf("no ciphertext should mean zero balance, got %s", value)
	}
	if session.decrypts != 0 {
		t.Fatalf("decrypted a non-existent handle")
	}
}

func TestMachineRejectsIllegalTransition(t *testing.T) {
	m := newMachine("test", nil)
	if err := m.to(StepChecking); err != nil {
		t.Fatalf("idle -> checking: %v", err)
	}
	if err := m.to(StepEncrypting); err != nil {
		t.Fatalf("checking -> encrypting: %v", err)
	}
	if err := m.to(StepApproving); err == nil {
		t.Fatalf("encrypting -> approving must be illegal")
	}
	m.Reset()
	if m.Step() != StepIdle {
		t.Fatalf("reset did not return to idle")
	}
}

func TestClassifyTaxonomy(t *testing.T) {
	cases := []struct {
		err  error
		want model.ErrorKind
	}{
		{fmt.Errorf("user rejected transaction"), model.KindUserCancelled},
		{fmt.Errorf("insufficient funds for gas * price + value"), model.KindInsufficientFunds},
		{fmt.Errorf("execution reverted: transfer amount exceeds balance"), model.KindInsufficientBalance},
		{fmt.Errorf("execution reverted: deadline passed"), model.KindDeadlineExpired},
		{fmt.Errorf("execution reverted: too little received"), model.KindPriceMoved},
		{fmt.Errorf("execution reverted: invalid tick"), model.KindInvalidTick},
		{fmt.Errorf("something entirely new"), model.KindUnknown},
	}
	for _, tc := range cases {
		got := classify(tc.err)
		if got.Kind != tc.want {
			t.Fatalf("classify(%q) = %s, want %s", tc.err, got.Kind, tc.want)
		}
	}

	// Unrecognized failures keep their raw message.
	raw := classify(fmt.Errorf("something entirely new"))
	if raw.Message != "something entirely new" {
		t.Fatalf("raw message lost: %q", raw.Message)
	}
}
