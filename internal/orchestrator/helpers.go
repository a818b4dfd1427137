package orchestrator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cipherdex/internal/chain"
	"cipherdex/internal/dex"
	"cipherdex/internal/model"
	"cipherdex/internal/tickmath"
)

func tickFromPoolReserves(pool model.PoolDescriptor, r0, r1 *big.Int) int32 {
	return tickmath.TickFromReserves(r0, r1, pool.Token0.Decimals, pool.Token1.Decimals, pool.TickSpacing)
}

// requireSession fails fast when the dialect needs ciphertext inputs but the
// encryption session is not ready. Readiness is knowable locally, so this
// runs in StepChecking before any transaction is broadcast.
func requireSession(d Deps, dialect dex.Dialect) error {
	if dialect.RequiresEncryption() && !d.Session.Ready() {
		return model.NewTxError(model.KindSessionNotReady, "encryption session is not ready", nil)
	}
	return nil
}

// ensureAllowance makes the entry point spendable for the given token. For
// plaintext tokens the allowance magnitude is compared against amount; for
// encrypted tokens magnitude is not observable, so a single max approval is
// issued once and its existence is the whole check afterwards.
func ensureAllowance(ctx context.Context, d Deps, token model.Token, spender, owner common.Address, amount *big.Int) error {
	if token.Kind == model.TokenEncrypted {
		exists, err := d.Ledger.HasEncryptedAllowance(ctx, token.Address, owner, spender)
		if err != nil {
			return fmt.Errorf("read encrypted allowance: %w", err)
		}
		if exists {
			return nil
		}
		return submitApproval(ctx, d, token, spender, chain.MaxApproval)
	}

	allowance, err := d.Ledger.Allowance(ctx, token.Address, owner, spender)
	if err != nil {
		return fmt.Errorf("read allowance: %w", err)
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}
	return submitApproval(ctx, d, token, spender, amount)
}

func submitApproval(ctx context.Context, d Deps, token model.Token, spender common.Address, amount *big.Int) error {
	call, err := chain.ApproveCall(token.Address, spender, amount)
	if err != nil {
		return err
	}
	txHash, err := d.Ledger.Submit(ctx, d.Wallet, call)
	if err != nil {
		return fmt.Errorf("submit approval: %w", err)
	}
	if _, err := d.Ledger.WaitMined(ctx, txHash, d.Config.WaitAttempts, d.Config.WaitInterval); err != nil {
		return fmt.Errorf("approval confirmation: %w", err)
	}
	d.Logger.Info("approval confirmed",
		zap.String("token", token.Symbol),
		zap.String("tx", txHash.Hex()))
	return nil
}

// submitAndWait broadcasts a prepared call and waits for its receipt.
func submitAndWait(ctx context.Context, d Deps, call chain.Call) (common.Hash, error) {
	txHash, err := d.Ledger.Submit(ctx, d.Wallet, call)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := d.Ledger.WaitMined(ctx, txHash, d.Config.WaitAttempts, d.Config.WaitInterval); err != nil {
		return txHash, err
	}
	return txHash, nil
}
