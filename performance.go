package portfolio

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// qtyTolerance is the share count below which a position counts as liquidated.
const qtyTolerance = 1e-9

// flowTolerance is the smallest monetary denominator the TWR step divides by.
const flowTolerance = 1e-6

// PerformancePoint is one day of the portfolio performance series.
//
// TWR is a cumulative multiplicative index starting at 1.0. GainsValue
// accumulates unrealized gains (current value minus cost basis) plus all
// realized, dividend and fee cash effects since inception.
type PerformancePoint struct {
	Day           Date    `json:"date"`
	HoldingsValue float64 `json:"holdingsValue"`
	CostBasis     float64 `json:"costBasis"`
	GainsValue    float64 `json:"gainsValue"`
	TWR           float64 `json:"twr"`
}

// PerformanceResult is the output of ComputePerformance: the daily series
// and the price histories it was computed from, keyed by "exchange:ticker".
// A failed fetch leaves a nil entry in History.
type PerformanceResult struct {
	Points  []PerformancePoint
	History map[string]*SecurityHistory
}

// HistoryFetcher retrieves the price history of one instrument. It is
// supplied by the caller; the data-fetching subsystem is an external
// collaborator.
type HistoryFetcher func(ctx context.Context, ticker, exchange string) (*SecurityHistory, error)

// positionState is the engine-internal mutable state of one position,
// keyed by "portfolio:exchange:ticker". Share quantities use decimals so
// that full liquidations land on an exact zero.
type positionState struct {
	qty           decimal.Decimal
	costBasis     float64 // in stockCurrency
	stockCurrency string
	securityKey   string // "exchange:ticker", for price lookups
}

// dayFlows collects the cash effects of one valuation day.
type dayFlows struct {
	netFlow   float64 // external inflows minus outflows, display currency
	dividends float64 // dividend income, display currency
	fees      float64 // fees paid, display currency
}

// ComputePerformance turns a transaction stream and per-instrument price
// histories into a daily performance time series with a time-weighted
// return index.
//
// The walk is strictly sequential: for each day of the axis, pending
// transactions apply first, then active positions are valued with
// forward-only price pointers, then the day's return compounds into the
// TWR index. The only parallelism is the initial fan-out fetch of price
// histories, with per-instrument failures isolated to nil entries.
//
// Data problems degrade to an empty or partial series rather than an
// error: this feeds a dashboard where a stale number beats a crash.
func ComputePerformance(
	ctx context.Context,
	holdings []Holding,
	txs []Transaction,
	displayCurrency string,
	rates Rates,
	policies map[string]DivPolicy,
	fetch HistoryFetcher,
) *PerformanceResult {
	result := &PerformanceResult{
		Points:  []PerformancePoint{},
		History: map[string]*SecurityHistory{},
	}

	txs = NormalizeTransactions(txs, RelevantPortfolios(holdings, txs))
	if len(txs) == 0 {
		return result
	}

	if err := ValidateCurrency(displayCurrency); err != nil {
		log.WithError(err).Warnf("invalid display currency, falling back to %s", DefaultCurrency)
		displayCurrency = DefaultCurrency
	}

	result.History = fetchHistories(ctx, txs, fetch)

	// Each provider payload is folded into a sorted, deduplicated price
	// History; the date axis and the per-instrument cursors both walk it.
	prices := make(map[string]*History, len(result.History))
	cursors := make(map[string]*priceCursor, len(result.History))
	for key, hist := range result.History {
		if hist != nil {
			ph := hist.EffectiveHistory()
			prices[key] = ph
			cursors[key] = newPriceCursor(ph)
		}
	}

	// The driving time axis: every price day on or after the first
	// transaction's effective day, deduplicated across instruments.
	firstDay := txs[0].EffectiveDay()
	axis := dateAxis(prices, firstDay)
	if len(axis) == 0 {
		return result
	}

	holdingCurrencies := make(map[string]string, len(holdings))
	for _, h := range holdings {
		holdingCurrencies[h.positionKey()] = h.StockCurrency
	}

	positions := make(map[string]*positionState)
	txIdx := 0
	otherGains := 0.0
	prevHoldingsValue := 0.0
	twrIndex := 1.0

	for _, ts := range axis {
		var flows dayFlows

		// 1. Apply every not-yet-applied transaction effective on or
		// before this day. The cursor over the sorted list never rewinds.
		for txIdx < len(txs) && !txs[txIdx].EffectiveDay().After(ts) {
			applyTransaction(txs[txIdx], positions, holdingCurrencies, policies,
				displayCurrency, rates, &flows, &otherGains)
			txIdx++
		}

		// 2. Value every active position, in sorted key order for
		// reproducibility.
		keys := make([]string, 0, len(positions))
		for key := range positions {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		totalHoldingsValue := 0.0
		totalCostBasis := 0.0
		for _, key := range keys {
			pos := positions[key]
			cursor := cursors[pos.securityKey]
			if cursor == nil {
				continue // no usable history for this instrument
			}
			price, ok := cursor.priceAt(ts)
			if !ok || price <= 0 {
				continue // no price yet for this day, skip, not zero
			}
			qty := pos.qty.InexactFloat64()
			totalHoldingsValue += Convert(qty*price, pos.stockCurrency, displayCurrency, rates)
			totalCostBasis += Convert(pos.costBasis, pos.stockCurrency, displayCurrency, rates)
		}

		// 3. TWR step. The denominator is the holdings value at the end of
		// the previous active day; on inception (or a restart from zero)
		// the day's inflow stands in, assuming it participated in that
		// day's market move.
		marketGain := (totalHoldingsValue - flows.netFlow) - prevHoldingsValue
		dayReturn := 0.0
		if prevHoldingsValue > flowTolerance {
			dayReturn = (marketGain + flows.dividends - flows.fees) / prevHoldingsValue
		} else if flows.netFlow > flowTolerance {
			dayReturn = (marketGain + flows.dividends - flows.fees) / flows.netFlow
		}
		twrIndex *= 1 + dayReturn
		prevHoldingsValue = totalHoldingsValue

		result.Points = append(result.Points, PerformancePoint{
			Day:           ts,
			HoldingsValue: totalHoldingsValue,
			CostBasis:     totalCostBasis,
			GainsValue:    (totalHoldingsValue - totalCostBasis) + otherGains,
			TWR:           twrIndex,
		})
	}

	return result
}

// applyTransaction mutates the position map and the day's accumulators for
// a single transaction.
func applyTransaction(
	tx Transaction,
	positions map[string]*positionState,
	holdingCurrencies map[string]string,
	policies map[string]DivPolicy,
	displayCurrency string,
	rates Rates,
	flows *dayFlows,
	otherGains *float64,
) {
	key := tx.positionKey()
	pos := positions[key]

	qty := tx.Quantity
	if tx.Type == TxDividend && policies[tx.Portfolio] == DivCashTaxed {
		// Cash-taxed portfolios never reinvest: the dividend's quantity is
		// forced to zero before any of the logic below runs.
		qty = 0
	}

	stockCurrency := resolveStockCurrency(pos, holdingCurrencies[key], tx.Currency)

	// Transaction value: prefer the explicit gross value; a quantity-less
	// dividend or fee carries its value in the price field.
	value := tx.GrossValue
	if value == 0 {
		if (tx.Type == TxDividend || tx.Type == TxFee) && math.Abs(qty) < qtyTolerance {
			value = tx.Price
		} else {
			value = qty * tx.Price
		}
	}

	costToAdd := Convert(value, tx.Currency, stockCurrency, rates)
	flowValDisplay := Convert(value, tx.Currency, displayCurrency, rates)

	switch tx.Type {
	case TxBuy:
		if pos == nil {
			pos = &positionState{stockCurrency: stockCurrency, securityKey: tx.SecurityKey()}
			positions[key] = pos
		}
		pos.qty = pos.qty.Add(decimal.NewFromFloat(qty))
		pos.costBasis += costToAdd
		flows.netFlow += flowValDisplay

	case TxSell:
		if pos != nil {
			held := pos.qty.InexactFloat64()
			avgCost := 0.0
			if held > qtyTolerance {
				avgCost = pos.costBasis / held
			}
			pos.qty = pos.qty.Sub(decimal.NewFromFloat(qty))
			pos.costBasis -= avgCost * qty
			costSold := Convert(avgCost*qty, stockCurrency, displayCurrency, rates)
			*otherGains += flowValDisplay - costSold
		} else {
			// Selling with no tracked position: the full proceeds count as
			// realized gain.
			log.WithField("position", key).Warn("sell transaction without a tracked position")
			*otherGains += flowValDisplay
		}
		flows.netFlow -= flowValDisplay

	case TxDividend:
		*otherGains += flowValDisplay
		flows.dividends += flowValDisplay
		if qty > 0 {
			// DRIP: the dividend adds shares and cost basis like a buy, but
			// its cash is income, not an external flow.
			if pos == nil {
				pos = &positionState{stockCurrency: stockCurrency, securityKey: tx.SecurityKey()}
				positions[key] = pos
			}
			pos.qty = pos.qty.Add(decimal.NewFromFloat(qty))
			pos.costBasis += costToAdd
		}

	case TxFee:
		*otherGains -= flowValDisplay
		flows.fees += flowValDisplay

	default:
		log.WithFields(log.Fields{"type": tx.Type, "position": key}).
			Warn("unknown transaction type ignored")
		return
	}

	if pos != nil && pos.qty.InexactFloat64() <= qtyTolerance {
		delete(positions, key)
	}
}

// resolveStockCurrency applies the ordered fallback chain for the currency a
// position's cost basis is tracked in: existing position state, holding
// metadata, the transaction's own currency, USD.
func resolveStockCurrency(pos *positionState, holdingCurrency, txCurrency string) string {
	if pos != nil && pos.stockCurrency != "" {
		return pos.stockCurrency
	}
	if holdingCurrency != "" {
		return holdingCurrency
	}
	if txCurrency != "" {
		return txCurrency
	}
	return DefaultCurrency
}

// fetchHistories retrieves the price history of every instrument referenced
// by any transaction, concurrently, one goroutine per distinct
// "exchange:ticker". A fetch failure maps that instrument to nil instead of
// failing the batch.
func fetchHistories(ctx context.Context, txs []Transaction, fetch HistoryFetcher) map[string]*SecurityHistory {
	type instrument struct{ ticker, exchange string }
	instruments := make(map[string]instrument)
	for _, tx := range txs {
		instruments[tx.SecurityKey()] = instrument{tx.Ticker, tx.Exchange}
	}

	histories := make(map[string]*SecurityHistory, len(instruments))
	if fetch == nil {
		log.Warn("no history fetcher supplied")
		for key := range instruments {
			histories[key] = nil
		}
		return histories
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for key, inst := range instruments {
		wg.Add(1)
		go func(key string, inst instrument) {
			defer wg.Done()
			hist, err := fetch(ctx, inst.ticker, inst.exchange)
			if err != nil {
				log.WithError(err).WithField("security", key).Warn("price history fetch failed")
				hist = nil
			}
			mu.Lock()
			histories[key] = hist
			mu.Unlock()
		}(key, inst)
	}
	wg.Wait()
	return histories
}

// dateAxis builds the sorted union of all price days on or after firstDay.
func dateAxis(prices map[string]*History, firstDay Date) []Date {
	seen := make(map[Date]bool)
	for _, h := range prices {
		for _, day := range h.days {
			if !day.Before(firstDay) {
				seen[day] = true
			}
		}
	}
	axis := make([]Date, 0, len(seen))
	for day := range seen {
		axis = append(axis, day)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	return axis
}
