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

// analyzeCmd holds the flags for the 'analyze' subcommand.
type analyzeCmd struct {
	subjectFile   string
	benchmarkFile string
	riskFreeFile  string
	datePath      string
	valuePath     string
	jsonOut       bool
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "alpha, beta and risk metrics against a benchmark" }
func (*analyzeCmd) Usage() string {
	return `pfd analyze -a <subject.json> -b <benchmark.json> [-rf <riskfree.json>] [-date-path <path>] [-value-path <path>] [-json]

  Synchronizes two value series by calendar day and regresses the subject's
  daily returns against the benchmark's.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.subjectFile, "a", "", "Subject series file (JSON)")
	f.StringVar(&c.benchmarkFile, "b", "", "Benchmark series file (JSON)")
	f.StringVar(&c.riskFreeFile, "rf", "", "Risk-free rate series file (JSON), optional")
	f.StringVar(&c.datePath, "date-path", "$[*].date", "jsonpath selecting the timestamps")
	f.StringVar(&c.valuePath, "value-path", "$[*].close", "jsonpath selecting the values")
	f.BoolVar(&c.jsonOut, "json", false, "Emit the metrics as JSON")
}

func (c *analyzeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.subjectFile == "" || c.benchmarkFile == "" {
		fmt.Fprintln(os.Stderr, "-a and -b are both required")
		return subcommands.ExitUsageError
	}
	subject, err := LoadSeries(c.subjectFile, c.datePath, c.valuePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading subject series: %v\n", err)
		return subcommands.ExitFailure
	}
	benchmark, err := LoadSeries(c.benchmarkFile, c.datePath, c.valuePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading benchmark series: %v\n", err)
		return subcommands.ExitFailure
	}

	var pairs []portfolio.ReturnPair
	var riskFree []float64
	if c.riskFreeFile != "" {
		rf, err := LoadSeries(c.riskFreeFile, c.datePath, c.valuePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading risk-free series: %v\n", err)
			return subcommands.ExitFailure
		}
		pairs, riskFree = portfolio.TripleReturns(portfolio.Synchronize3(subject, benchmark, rf))
	} else {
		pairs = portfolio.PairReturns(portfolio.Synchronize(subject, benchmark))
	}

	m := portfolio.ComputeMetrics(pairs, riskFree)
	if m == nil {
		fmt.Fprintln(os.Stderr, "Not enough overlapping observations to compute metrics.")
		return subcommands.ExitFailure
	}

	if c.jsonOut {
		out := struct {
			*portfolio.AnalysisMetrics
			Observations    int     `json:"observations"`
			CumulativeAlpha float64 `json:"cumulativeAlpha"`
		}{m, len(pairs), portfolio.CumulativeAlpha(m.Alpha, len(pairs))}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	fmt.Printf("Observations:     %d paired days\n", len(pairs))
	fmt.Printf("Alpha (daily):    %+.6f\n", m.Alpha)
	fmt.Printf("Alpha (cum.):     %+.4f\n", portfolio.CumulativeAlpha(m.Alpha, len(pairs)))
	fmt.Printf("Beta:             %+.4f\n", m.Beta)
	fmt.Printf("Downside beta:    %+.4f\n", m.DownsideBeta)
	fmt.Printf("Downside alpha:   %+.6f\n", m.DownsideAlpha)
	fmt.Printf("Sharpe ratio:     %+.4f\n", m.SharpeRatio)
	fmt.Printf("Correlation:      %+.4f\n", m.Correlation)
	fmt.Printf("R-squared:        %.4f\n", m.RSquared)
	return subcommands.ExitSuccess
}
