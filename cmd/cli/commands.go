package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/auth"
	"github.com/iho/fxledger/internal/infrastructure/format"
	"github.com/iho/fxledger/internal/usecase"
)

func balancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show the balance of every asset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, false, func(ctx context.Context, l *ledger) error {
				assets, err := l.ledger.GetBalances(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), assets)
				}

				tw := newTable(cmd.OutOrStdout(), "ID", "NAME", "KIND", "BALANCE")
				for _, a := range assets {
					tw.row(a.ID, truncate(a.Name, 32), string(a.Kind), format.Amount(a.Balance, a.Currency))
				}
				return tw.flush()
			})
		},
	}
}

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Transaction log",
	}

	var (
		kind, currency, assetID, groupID string
		from, to, deleted                string
		limit, offset                    int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := parseWindow(from, to)
			if err != nil {
				return err
			}
			filter := domain.TransactionFilter{
				Range:    window,
				Currency: domain.NormalizeCurrency(currency),
				Kind:     domain.OperationKind(kind),
				GroupID:  groupID,
				AssetID:  assetID,
				Order:    domain.OrderDescending,
			}
			switch deleted {
			case "false", "":
				filter.Deleted = domain.ActiveOnly()
			case "true":
				filter.Deleted = domain.DeletedOnly()
			case "all":
			default:
				return fmt.Errorf("invalid --deleted %q: want true, false or all", deleted)
			}

			return withLedger(cmd, false, func(ctx context.Context, l *ledger) error {
				txs, err := l.ledger.ListTransactions(ctx, usecase.ListTransactionsInput{Filter: filter, Limit: limit, Offset: offset})
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), txs)
				}
				return printTransactions(cmd, txs)
			})
		},
	}
	listCmd.Flags().StringVar(&kind, "kind", "", "Operation kind")
	listCmd.Flags().StringVar(&currency, "currency", "", "Currency code")
	listCmd.Flags().StringVar(&assetID, "asset", "", "Asset ID")
	listCmd.Flags().StringVar(&groupID, "group", "", "Group ID")
	listCmd.Flags().StringVar(&from, "from", "", "Start of window (YYYY-MM-DD or RFC3339)")
	listCmd.Flags().StringVar(&to, "to", "", "End of window, inclusive (YYYY-MM-DD or RFC3339)")
	listCmd.Flags().StringVar(&deleted, "deleted", "false", "Deleted filter: true, false or all")
	listCmd.Flags().IntVar(&limit, "limit", domain.DefaultPageSize, "Maximum number of transactions")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Transactions to skip")

	cmd.AddCommand(listCmd)
	return cmd
}

func printTransactions(cmd *cobra.Command, txs []*domain.Transaction) error {
	tw := newTable(cmd.OutOrStdout(), "DATE", "KIND", "ASSET", "AMOUNT", "GROUP", "DESCRIPTION", "STATE")
	for _, t := range txs {
		state := "active"
		if t.Deleted {
			state = "deleted"
		}
		tw.row(
			t.CreatedAt.Format(time.DateTime),
			string(t.Kind()),
			t.AssetID,
			format.Amount(t.Amount, t.Currency),
			t.GroupID,
			truncate(t.Description, 40),
			state,
		)
	}
	return tw.flush()
}

func groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Inspect, delete or restore transaction groups",
	}

	run := func(mutates bool, op func(context.Context, *ledger, string) (*usecase.GroupView, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, mutates, func(ctx context.Context, l *ledger) error {
				view, err := op(ctx, l, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), view)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Group %s (%s, %s)\n", view.ID, view.Kind, view.State)
				return printTransactions(cmd, view.Members)
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <group-id>",
			Short: "Show a group and its members",
			Args:  cobra.ExactArgs(1),
			RunE: run(false, func(ctx context.Context, l *ledger, id string) (*usecase.GroupView, error) {
				return l.groups.GetGroup(ctx, id)
			}),
		},
		&cobra.Command{
			Use:   "delete <group-id>",
			Short: "Reverse every member of a group",
			Args:  cobra.ExactArgs(1),
			RunE: run(true, func(ctx context.Context, l *ledger, id string) (*usecase.GroupView, error) {
				return l.groups.DeleteGroup(ctx, id)
			}),
		},
		&cobra.Command{
			Use:   "restore <group-id>",
			Short: "Re-apply every member of a deleted group",
			Args:  cobra.ExactArgs(1),
			RunE: run(true, func(ctx context.Context, l *ledger, id string) (*usecase.GroupView, error) {
				return l.groups.RestoreGroup(ctx, id)
			}),
		},
	)
	return cmd
}

func capitalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capital",
		Short: "Capital totals, closings and evolution",
	}

	currentCmd := &cobra.Command{
		Use:   "current",
		Short: "Show live capital per currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, false, func(ctx context.Context, l *ledger) error {
				totals, err := l.capital.CurrentCapital(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), totals)
				}

				tw := newTable(cmd.OutOrStdout(), "CURRENCY", "ITEM", "VALUE")
				for _, cur := range sortedKeys(totals.Totals) {
					for _, item := range totals.Breakdown[cur] {
						tw.row(cur, item.Label, format.Amount(item.Contribution(), cur))
					}
					tw.row(cur, "TOTAL", format.Amount(totals.Totals[cur], cur))
				}
				return tw.flush()
			})
		},
	}

	var (
		rates []string
		parts []string
		note  string
	)
	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "Close capital into the reference currency",
		Long: `Close capital into the reference currency. Every non-reference currency with a
non-zero total needs a rate, either --rate USD=10.5 or one or more --part USD=100@10.5.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := parseRates(rates, parts)
			if err != nil {
				return err
			}
			return withLedger(cmd, true, func(ctx context.Context, l *ledger) error {
				entry, err := l.capital.CloseCapital(ctx, usecase.CloseCapitalInput{Rates: input, Note: note})
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), entry)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Closed %s at %s: %s\n",
					entry.ID, entry.Timestamp.Format(time.DateTime), format.Amount(entry.Total, entry.ReferenceCurrency))
				return nil
			})
		},
	}
	closeCmd.Flags().StringArrayVar(&rates, "rate", nil, "Single rate, CUR=RATE")
	closeCmd.Flags().StringArrayVar(&parts, "part", nil, "Split allocation part, CUR=AMOUNT@RATE")
	closeCmd.Flags().StringVar(&note, "note", "", "Note stored with the closing")

	var from, to string
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List capital closings, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := parseWindow(from, to)
			if err != nil {
				return err
			}
			return withLedger(cmd, false, func(ctx context.Context, l *ledger) error {
				entries, err := l.capital.History(ctx, window)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), entries)
				}

				tw := newTable(cmd.OutOrStdout(), "ID", "DATE", "TOTAL", "NOTE")
				for _, e := range entries {
					tw.row(e.ID, e.Timestamp.Format(time.DateTime), format.Amount(e.Total, e.ReferenceCurrency), truncate(e.Note, 40))
				}
				return tw.flush()
			})
		},
	}
	historyCmd.Flags().StringVar(&from, "from", "", "Start of window")
	historyCmd.Flags().StringVar(&to, "to", "", "End of window, inclusive")

	var evFrom, evTo string
	evolutionCmd := &cobra.Command{
		Use:   "evolution",
		Short: "Compare the closings bounding a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := parseWindow(evFrom, evTo)
			if err != nil {
				return err
			}
			return withLedger(cmd, false, func(ctx context.Context, l *ledger) error {
				ev, err := l.capital.Evolution(ctx, window)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), ev)
				}

				cur := ev.End.ReferenceCurrency
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Start:  %s\n", format.Amount(ev.StartTotal, cur))
				fmt.Fprintf(out, "End:    %s\n", format.Amount(ev.EndTotal, cur))
				fmt.Fprintf(out, "Change: %s (%s)\n", format.Amount(ev.Change, cur), format.Percent(ev.Percentage))
				return nil
			})
		},
	}
	evolutionCmd.Flags().StringVar(&evFrom, "from", "", "Start of window")
	evolutionCmd.Flags().StringVar(&evTo, "to", "", "End of window, inclusive")

	cmd.AddCommand(currentCmd, closeCmd, historyCmd, evolutionCmd)
	return cmd
}

func profitCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "profit",
		Short: "Profit and cost analysis of a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := parseWindow(from, to)
			if err != nil {
				return err
			}
			return withLedger(cmd, false, func(ctx context.Context, l *ledger) error {
				report, err := l.profit.Analyze(ctx, window)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), report)
				}

				tw := newTable(cmd.OutOrStdout(), "SECTION", "LINE", "AMOUNT")
				for _, line := range report.ProfitBreakdown {
					tw.row("profit", line.Label, format.Amount(line.Amount, reference))
				}
				for _, line := range report.CostBreakdown {
					tw.row("cost", line.Label, format.Amount(line.Amount, reference))
				}
				tw.row("total", "Profit", format.Amount(report.TotalProfit, reference))
				tw.row("total", "Costs", format.Amount(report.TotalCosts, reference))
				tw.row("total", "Net", format.Amount(report.NetProfit, reference))
				return tw.flush()
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Start of window")
	cmd.Flags().StringVar(&to, "to", "", "End of window, inclusive")
	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Check every balance against the transaction log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, false, func(ctx context.Context, l *ledger) error {
				report, err := l.recon.GenerateReconciliationReport(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), report)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Reconciled %d of %d assets\n", report.ReconciledAssets, report.TotalAssets)
				if !report.LedgerConsistent {
					fmt.Fprintln(out, "Ledger INCONSISTENT: transactions reference missing assets")
				}
				if len(report.Discrepancies) == 0 {
					return nil
				}

				tw := newTable(out, "ASSET", "RECORDED", "CALCULATED", "DIFFERENCE")
				for _, d := range report.Discrepancies {
					tw.row(d.AssetID,
						format.Amount(d.RecordedBalance, d.Currency),
						format.Amount(d.CalculatedBalance, d.Currency),
						format.Amount(d.Difference, d.Currency))
				}
				if err := tw.flush(); err != nil {
					return err
				}
				return fmt.Errorf("%d discrepancies found", len(report.Discrepancies))
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		secret, userID, name, role string
		ttl                        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}
			token, err := auth.NewJWTManager(secret, ttl).Generate(&domain.User{
				ID:   userID,
				Name: name,
				Role: domain.Role(role),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret (defaults to JWT_SECRET)")
	cmd.Flags().StringVar(&userID, "user", "cli", "User ID")
	cmd.Flags().StringVar(&name, "name", "", "Display name recorded as the actor")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleOperator), "Role: admin, operator or viewer")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

// parseRates builds closing rates from CUR=RATE and CUR=AMOUNT@RATE flags.
func parseRates(rates, parts []string) (map[string]domain.RateInput, error) {
	out := make(map[string]domain.RateInput, len(rates)+len(parts))

	for _, raw := range rates {
		cur, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --rate %q: want CUR=RATE", raw)
		}
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid --rate %q: %w", raw, err)
		}
		cur = domain.NormalizeCurrency(cur)
		if _, dup := out[cur]; dup {
			return nil, fmt.Errorf("duplicate rate for %s", cur)
		}
		out[cur] = domain.SingleRate(rate)
	}

	for _, raw := range parts {
		cur, value, ok := strings.Cut(raw, "=")
		amountStr, rateStr, ok2 := strings.Cut(value, "@")
		if !ok || !ok2 {
			return nil, fmt.Errorf("invalid --part %q: want CUR=AMOUNT@RATE", raw)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --part %q: %w", raw, err)
		}
		rate, err := decimal.NewFromString(rateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --part %q: %w", raw, err)
		}
		cur = domain.NormalizeCurrency(cur)
		existing := out[cur]
		if existing.Rate.Valid {
			return nil, fmt.Errorf("%s has both --rate and --part", cur)
		}
		existing.Parts = append(existing.Parts, domain.AllocationPart{Amount: amount, Rate: rate})
		out[cur] = existing
	}

	return out, nil
}

// parseWindow parses inclusive bounds. A date-only upper bound covers the whole day.
func parseWindow(from, to string) (domain.DateRange, error) {
	var window domain.DateRange
	var err error
	if window.From, err = parseDate(from, false); err != nil {
		return window, fmt.Errorf("invalid --from: %w", err)
	}
	if window.To, err = parseDate(to, true); err != nil {
		return window, fmt.Errorf("invalid --to: %w", err)
	}
	return window, nil
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither YYYY-MM-DD nor RFC3339", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
