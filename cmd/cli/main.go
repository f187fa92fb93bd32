package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/fxledger/internal/domain"
)

var (
	stateFile  string
	reference  string
	tolerance  string
	jsonOutput bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fxledger",
		Short:         "FX ledger CLI tool",
		Long:          `A command line interface for inspecting and closing an FX ledger bundle file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultFile := os.Getenv("FXLEDGER_FILE")
	if defaultFile == "" {
		defaultFile = "fxledger.json"
	}

	rootCmd.PersistentFlags().StringVarP(&stateFile, "file", "f", defaultFile, "Ledger bundle file")
	rootCmd.PersistentFlags().StringVar(&reference, "reference", domain.DefaultReferenceCurrency, "Reference currency for capital closings")
	rootCmd.PersistentFlags().StringVar(&tolerance, "tolerance", domain.DefaultAllocationTolerance.String(), "Allowed split allocation discrepancy")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(
		balancesCmd(),
		txCmd(),
		groupCmd(),
		capitalCmd(),
		profitCmd(),
		reconcileCmd(),
		tokenCmd(),
	)
	return rootCmd
}

// withLedger opens the bundle file, runs fn and, when mutates is set, saves it back.
func withLedger(cmd *cobra.Command, mutates bool, fn func(ctx context.Context, l *ledger) error) error {
	tol, err := decimal.NewFromString(tolerance)
	if err != nil {
		return fmt.Errorf("invalid --tolerance: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	l, err := openLedger(ctx, ledgerOptions{
		path:      stateFile,
		reference: reference,
		tolerance: tol,
		logOut:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	if err := fn(ctx, l); err != nil {
		return err
	}
	if mutates {
		return l.save(ctx)
	}
	return nil
}
