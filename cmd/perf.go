package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	portfolio "github.com/shai0noy/portfolios"
)

// perfCmd holds the flags for the 'perf' subcommand.
type perfCmd struct {
	portfolioFile string
	pricesDir     string
	currency      string
	window        string
	jsonOut       bool
}

func (*perfCmd) Name() string     { return "perf" }
func (*perfCmd) Synopsis() string { return "daily performance series and period returns" }
func (*perfCmd) Usage() string {
	return `pfd perf -l <portfolio.json> -prices <dir> [-c <currency>] [-w <window>] [-json]

  Replays the portfolio transactions against the stored price histories and
  prints the latest valuation with per-window returns and gains.
`
}

func (c *perfCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolioFile, "l", "portfolio.json", "Portfolio snapshot file (JSON)")
	f.StringVar(&c.pricesDir, "prices", ".prices", "Folder of per-instrument price history files")
	f.StringVar(&c.currency, "c", "", "Display currency, overriding the snapshot's")
	f.StringVar(&c.window, "w", "", "Report a single window (1w, 1m, 3m, ytd, 1y, 5y, all)")
	f.BoolVar(&c.jsonOut, "json", false, "Emit the full series and returns as JSON")
}

func (c *perfCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	pf, err := DecodePortfolioFile(c.portfolioFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading portfolio %q: %v\n", c.portfolioFile, err)
		return subcommands.ExitFailure
	}
	currency := pf.DisplayCurrency
	if c.currency != "" {
		currency = c.currency
	}

	windows := portfolio.Windows()
	if c.window != "" {
		w, err := portfolio.ParseWindow(c.window)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing window: %v\n", err)
			return subcommands.ExitUsageError
		}
		windows = []portfolio.Window{w}
	}

	result := portfolio.ComputePerformance(ctx, pf.Holdings, pf.Transactions, currency, pf.Rates, pf.Policies, DirFetcher(c.pricesDir))
	if len(result.Points) == 0 {
		fmt.Fprintln(os.Stderr, "No performance data: no transactions or no usable price history.")
		return subcommands.ExitFailure
	}
	returns := portfolio.ExtractPeriodReturns(result.Points)

	if c.jsonOut {
		out := struct {
			Currency string                            `json:"currency"`
			Points   []portfolio.PerformancePoint      `json:"points"`
			Returns  map[string]portfolio.PeriodReturn `json:"returns"`
		}{currency, result.Points, returnsByName(returns, windows)}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	latest := result.Points[len(result.Points)-1]
	fmt.Printf("As of %s: holdings %.2f %s, cost basis %.2f, gains %.2f, TWR index %.4f\n",
		latest.Day, latest.HoldingsValue, currency, latest.CostBasis, latest.GainsValue, latest.TWR)
	for _, w := range windows {
		r := returns[w]
		fmt.Printf("  %-4s %+8.2f%%  %+14.2f %s\n", w, r.Perf*100, r.Gain, currency)
	}
	return subcommands.ExitSuccess
}

// returnsByName keys the selected windows' returns by their display name.
// The -w selection applies to the JSON output the same way it does to the
// text table.
func returnsByName(returns map[portfolio.Window]portfolio.PeriodReturn, windows []portfolio.Window) map[string]portfolio.PeriodReturn {
	byName := make(map[string]portfolio.PeriodReturn, len(windows))
	for _, w := range windows {
		byName[w.String()] = returns[w]
	}
	return byName
}
