package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cipherdex/internal/chain"
	"cipherdex/internal/model"
	"cipherdex/internal/orchestrator"
)

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	tokenIn, err := a.lookupToken(ctx, args[0])
	if err != nil {
		return err
	}
	tokenOut, err := a.lookupToken(ctx, args[1])
	if err != nil {
		return err
	}
	amount, err := parseAmount(args[2])
	if err != nil {
		return err
	}

	quote, err := orchestrator.NewSwap(a.deps).GetQuote(ctx, tokenIn, tokenOut, amount)
	if err != nil {
		return err
	}

	label := "firm"
	if quote.Estimated {
		label = "estimated"
	}
	fmt.Printf("%s %s -> %s %s (%s)\n",
		quote.AmountIn, tokenIn.Symbol, quote.AmountOut, tokenOut.Symbol, label)
	fmt.Printf("min output at %d bps slippage: %s\n",
		a.cfg.SlippageBps, quote.MinOutput(a.cfg.SlippageBps))
	return nil
}

func runSwap(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	tokenIn, err := a.lookupToken(ctx, args[0])
	if err != nil {
		return err
	}
	tokenOut, err := a.lookupToken(ctx, args[1])
	if err != nil {
		return err
	}
	amount, err := parseAmount(args[2])
	if err != nil {
		return err
	}

	result, err := orchestrator.NewSwap(a.deps).Run(ctx, tokenIn, tokenOut, amount)
	if err != nil {
		return err
	}

	fmt.Printf("swap confirmed: %s\n", result.TxHash.Hex())
	fmt.Printf("quoted %s, min accepted %s\n", result.Quote.AmountOut, result.MinOut)
	if !result.ReservesSynced {
		fmt.Println("note: displayed reserves may lag until the next harvest")
	}
	return nil
}

func runPlaceOrder(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	tokenA, err := a.lookupToken(ctx, args[0])
	if err != nil {
		return err
	}
	tokenB, err := a.lookupToken(ctx, args[1])
	if err != nil {
		return err
	}
	tick, err := parseTick(args[2])
	if err != nil {
		return err
	}
	amount, err := parseAmount(args[3])
	if err != nil {
		return err
	}
	sideRaw, _ := cmd.Flags().GetString("side")
	side, err := parseSide(sideRaw)
	if err != nil {
		return err
	}

	result, err := orchestrator.NewPlaceOrder(a.deps).Run(ctx, tokenA, tokenB, tick, amount, side == model.SideBuy)
	if err != nil {
		return err
	}

	fmt.Printf("order confirmed: %s\n", result.TxHash.Hex())
	fmt.Printf("classified as %s, deposited %s into bucket (tick %d, %s)\n",
		result.Classification.OrderType, result.DepositToken.Symbol,
		result.Bucket.Tick, result.Bucket.Side)
	return nil
}

func runWithdraw(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	tokenA, err := a.lookupToken(ctx, args[0])
	if err != nil {
		return err
	}
	tokenB, err := a.lookupToken(ctx, args[1])
	if err != nil {
		return err
	}
	tick, err := parseTick(args[2])
	if err != nil {
		return err
	}
	sideRaw, _ := cmd.Flags().GetString("side")
	side, err := parseSide(sideRaw)
	if err != nil {
		return err
	}

	var amount *big.Int
	if raw, _ := cmd.Flags().GetString("amount"); raw != "" {
		if amount, err = parseAmount(raw); err != nil {
			return err
		}
	}

	txHash, err := orchestrator.NewWithdraw(a.deps).Run(ctx, tokenA, tokenB, tick, side, amount)
	if err != nil {
		return err
	}
	fmt.Printf("withdraw confirmed: %s\n", txHash.Hex())
	return nil
}

func runClaim(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	tokenA, err := a.lookupToken(ctx, args[0])
	if err != nil {
		return err
	}
	tokenB, err := a.lookupToken(ctx, args[1])
	if err != nil {
		return err
	}
	tick, err := parseTick(args[2])
	if err != nil {
		return err
	}
	sideRaw, _ := cmd.Flags().GetString("side")
	side, err := parseSide(sideRaw)
	if err != nil {
		return err
	}

	txHash, err := orchestrator.NewClaim(a.deps).Run(ctx, tokenA, tokenB, tick, side)
	if err != nil {
		return err
	}
	fmt.Printf("claim confirmed: %s\n", txHash.Hex())
	return nil
}

func runAddLiquidity(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	tokenA, err := a.lookupToken(ctx, args[0])
	if err != nil {
		return err
	}
	tokenB, err := a.lookupToken(ctx, args[1])
	if err != nil {
		return err
	}
	amountA, err := parseAmount(args[2])
	if err != nil {
		return err
	}
	amountB, err := parseAmount(args[3])
	if err != nil {
		return err
	}

	result, err := orchestrator.NewAddLiquidity(a.deps).Run(ctx, tokenA, tokenB, amountA, amountB)
	if err != nil {
		return err
	}
	fmt.Printf("liquidity added: %s\n", result.TxHash.Hex())
	if !result.ReservesSynced {
		fmt.Println("note: displayed reserves may lag until the next harvest")
	}
	return nil
}

func runRemoveLiquidity(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	tokenA, err := a.lookupToken(ctx, args[0])
	if err != nil {
		return err
	}
	tokenB, err := a.lookupToken(ctx, args[1])
	if err != nil {
		return err
	}

	var shares *big.Int
	if raw, _ := cmd.Flags().GetString("shares"); raw != "" {
		if shares, err = parseAmount(raw); err != nil {
			return err
		}
	}

	result, err := orchestrator.NewRemoveLiquidity(a.deps).Run(ctx, tokenA, tokenB, shares)
	if err != nil {
		return err
	}
	fmt.Printf("liquidity removed: %s\n", result.TxHash.Hex())
	if !result.ReservesSynced {
		fmt.Println("note: displayed reserves may lag until the next harvest")
	}
	return nil
}

func runWrap(cmd *cobra.Command, args []string) error {
	return runWrapUnwrap(cmd, args, true)
}

func runUnwrap(cmd *cobra.Command, args []string) error {
	return runWrapUnwrap(cmd, args, false)
}

func runWrapUnwrap(cmd *cobra.Command, args []string, wrap bool) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	token, err := a.lookupToken(ctx, args[0])
	if err != nil {
		return err
	}
	if token.Kind != model.TokenEncrypted {
		return fmt.Errorf("%s is not an encrypted token", token.Symbol)
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	builder, verb := chain.WrapCall, "wrap"
	if !wrap {
		builder, verb = chain.UnwrapCall, "unwrap"
	}
	call, err := builder(token.Address, amount)
	if err != nil {
		return err
	}
	txHash, err := a.client.Submit(ctx, a.wallet, call)
	if err != nil {
		return err
	}
	if _, err := a.client.WaitMined(ctx, txHash, a.cfg.WaitAttempts, a.cfg.WaitInterval); err != nil {
		return err
	}
	fmt.Printf("%s confirmed: %s\n", verb, txHash.Hex())
	return nil
}

func runReveal(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext()
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	token, err := a.lookupToken(ctx, args[0])
	if err != nil {
		return err
	}

	reveal := orchestrator.NewBalanceReveal(a.deps, a.chainID, a.cfg.RevealTTL, a.store)
	reveal.Warm(ctx)

	value, err := reveal.Reveal(ctx, a.wallet.Address(), token)
	if err != nil {
		return err
	}
	fmt.Printf("%s balance of %s: %s\n", token.Symbol, a.wallet.Address().Hex(), value)
	return nil
}
