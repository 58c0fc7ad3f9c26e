// Package portfolio is the performance and benchmark-analysis engine of a
// personal investment dashboard. It is a pure computation library: callers
// supply already-normalized transactions, price histories and exchange
// rates, and the package turns them into daily performance series and
// comparison metrics.
//
// The core functionalities include:
//   - Valuation and Time-Weighted Return: a cash-flow-aware walk over a
//     transaction stream and per-instrument price histories, producing one
//     PerformancePoint per active calendar day with a compounded TWR index.
//   - Period Returns: deriving 1w/1m/3m/ytd/1y/5y/all-time returns and
//     gains from a performance series.
//   - Series Synchronization: aligning independently-sampled price series
//     by UTC calendar day.
//   - Regression Analysis: alpha, beta, downside beta, correlation, R² and
//     Sharpe ratio over synchronized return pairs, with defined fallbacks
//     for degenerate inputs.
//
// The package degrades to zero or empty values instead of failing on bad
// data: it feeds a dashboard where a stale or partial number beats a crash.
// It serves as the foundational logic for the `pfd` command-line tool.
package portfolio
