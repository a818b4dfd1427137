package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "dexctl",
		Short:        "Confidential DEX order lifecycle client",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("rpc", "", "chain RPC URL")
	pf.Uint64("chain-id", 0, "chain id, 0 means query the RPC")
	pf.String("private-key", "", "hex signing key")
	pf.String("native-entry", "", "native AMM entry point address")
	pf.String("encrypted-entry", "", "encrypted AMM entry point address")
	pf.String("mixed-entry", "", "mixed AMM entry point address")
	pf.Uint32("fee", 3000, "pool fee in hundredths of a bip")
	pf.Int32("tick-spacing", 60, "pool tick spacing")
	pf.Uint32("slippage-bps", 50, "slippage tolerance in basis points")
	pf.Duration("deadline-offset", 20*time.Minute, "transaction deadline offset")
	pf.Int32("taker-tick-drift", 120, "max tick drift for taker orders")
	pf.Int("wait-attempts", 30, "receipt poll attempts")
	pf.Duration("wait-interval", 2*time.Second, "receipt poll interval")
	pf.Int("decrypt-attempts", 5, "decrypt retry attempts")
	pf.Int("resync-attempts", 10, "reserve resync attempts")
	pf.Duration("resync-interval", 3*time.Second, "reserve resync interval")
	pf.Duration("reveal-ttl", time.Minute, "decrypted balance cache TTL")
	pf.String("snapshot-path", "./data/reveals.jsonl", "reveal snapshot JSONL path")
	pf.String("pg-dsn", "", "Postgres DSN for reveal snapshots (overrides snapshot-path)")
	pf.Bool("mock-session", false, "use the built-in mock encryption provider")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	quoteCmd := &cobra.Command{
		Use:   "quote <token-in> <token-out> <amount>",
		Short: "Read the expected output for a swap",
		Args:  cobra.ExactArgs(3),
		RunE:  runQuote,
	}
	root.AddCommand(quoteCmd)

	swapCmd := &cobra.Command{
		Use:   "swap <token-in> <token-out> <amount>",
		Short: "Swap amount of token-in for token-out",
		Args:  cobra.ExactArgs(3),
		RunE:  runSwap,
	}
	root.AddCommand(swapCmd)

	placeCmd := &cobra.Command{
		Use:   "place-order <token-a> <token-b> <trigger-tick> <amount>",
		Short: "Place a bucketed limit or trigger order",
		Args:  cobra.ExactArgs(4),
		RunE:  runPlaceOrder,
	}
	placeCmd.Flags().String("side", "buy", "order side (buy or sell)")
	root.AddCommand(placeCmd)

	withdrawCmd := &cobra.Command{
		Use:   "withdraw <token-a> <token-b> <tick>",
		Short: "Withdraw the unfilled remainder from a bucket",
		Args:  cobra.ExactArgs(3),
		RunE:  runWithdraw,
	}
	withdrawCmd.Flags().String("side", "buy", "bucket side (buy or sell)")
	withdrawCmd.Flags().String("amount", "", "amount in base units, empty means everything")
	root.AddCommand(withdrawCmd)

	claimCmd := &cobra.Command{
		Use:   "claim <token-a> <token-b> <tick>",
		Short: "Claim filled proceeds from a bucket",
		Args:  cobra.ExactArgs(3),
		RunE:  runClaim,
	}
	claimCmd.Flags().String("side", "buy", "bucket side (buy or sell)")
	root.AddCommand(claimCmd)

	addLiqCmd := &cobra.Command{
		Use:   "add-liquidity <token-a> <token-b> <amount-a> <amount-b>",
		Short: "Provision both legs of a pool, amounts in the token order given",
		Args:  cobra.ExactArgs(4),
		RunE:  runAddLiquidity,
	}
	root.AddCommand(addLiqCmd)

	removeLiqCmd := &cobra.Command{
		Use:   "remove-liquidity <token-a> <token-b>",
		Short: "Burn pool shares",
		Args:  cobra.ExactArgs(2),
		RunE:  runRemoveLiquidity,
	}
	removeLiqCmd.Flags().String("shares", "", "shares in base units, empty means everything")
	root.AddCommand(removeLiqCmd)

	wrapCmd := &cobra.Command{
		Use:   "wrap <token> <amount>",
		Short: "Lock plaintext balance into the encrypted token",
		Args:  cobra.ExactArgs(2),
		RunE:  runWrap,
	}
	root.AddCommand(wrapCmd)

	unwrapCmd := &cobra.Command{
		Use:   "unwrap <token> <amount>",
		Short: "Burn encrypted balance back to the plaintext token",
		Args:  cobra.ExactArgs(2),
		RunE:  runUnwrap,
	}
	root.AddCommand(unwrapCmd)

	revealCmd := &cobra.Command{
		Use:   "reveal <token>",
		Short: "Decrypt and show the wallet's encrypted token balance",
		Args:  cobra.ExactArgs(1),
		RunE:  runReveal,
	}
	root.AddCommand(revealCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
