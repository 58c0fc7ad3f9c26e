package portfolio

import (
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// TxType identifies the kind of a portfolio transaction.
type TxType string

// Transaction types recorded in a portfolio's history.
const (
	TxBuy      TxType = "BUY"
	TxSell     TxType = "SELL"
	TxDividend TxType = "DIVIDEND"
	TxFee      TxType = "FEE"
)

// ParseTxType parses a string into a TxType.
func ParseTxType(s string) (TxType, error) {
	switch TxType(strings.ToUpper(strings.TrimSpace(s))) {
	case TxBuy:
		return TxBuy, nil
	case TxSell:
		return TxSell, nil
	case TxDividend:
		return TxDividend, nil
	case TxFee:
		return TxFee, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// DivPolicy selects how a portfolio's dividends affect share positions.
type DivPolicy string

const (
	// DivCashTaxed means dividends are paid out as (taxed) cash and never
	// become shares, whatever quantity the dividend record carries.
	DivCashTaxed DivPolicy = "cash_taxed"
	// DivReinvested means dividend records with a positive quantity add
	// shares and cost basis like a buy (DRIP).
	DivReinvested DivPolicy = "reinvested"
)

// Transaction is a single immutable portfolio record.
//
// GrossValue, when non-zero, overrides Quantity×Price as the transaction's
// monetary value. VestDay, when set, replaces Day as the effective date:
// unvested grants are invisible until vesting.
type Transaction struct {
	Day        Date    `json:"date"`
	Portfolio  string  `json:"portfolioId"`
	Ticker     string  `json:"ticker"`
	Exchange   string  `json:"exchange"`
	Type       TxType  `json:"type"`
	Quantity   float64 `json:"qty"`
	Price      float64 `json:"price"`
	GrossValue float64 `json:"grossValue,omitempty"`
	Currency   string  `json:"currency"`
	VestDay    Date    `json:"vestDate,omitzero"`
}

// EffectiveDay returns the vesting day when present, the record day otherwise.
func (t Transaction) EffectiveDay() Date {
	if !t.VestDay.IsZero() {
		return t.VestDay
	}
	return t.Day
}

// SecurityKey identifies the instrument the transaction trades.
func (t Transaction) SecurityKey() string {
	return t.Exchange + ":" + t.Ticker
}

// positionKey identifies the position the transaction mutates.
func (t Transaction) positionKey() string {
	return t.Portfolio + ":" + t.Exchange + ":" + t.Ticker
}

// Holding is static per-position metadata. It only resolves the currency a
// position's cost basis is tracked in.
type Holding struct {
	Portfolio     string `json:"portfolioId"`
	Ticker        string `json:"ticker"`
	Exchange      string `json:"exchange"`
	StockCurrency string `json:"stockCurrency"`
}

func (h Holding) positionKey() string {
	return h.Portfolio + ":" + h.Exchange + ":" + h.Ticker
}

// NormalizeTransactions prepares a raw transaction stream for the valuation
// engine: records are filtered to the relevant portfolios and stably sorted
// ascending by effective date. Future-dated records are kept; whether they
// ever matter is decided by the valuation date axis, not here.
//
// A nil or empty input degrades to an empty slice.
func NormalizeTransactions(txs []Transaction, relevantPortfolios map[string]bool) []Transaction {
	if len(txs) == 0 {
		log.Warn("no transactions to normalize, returning empty set")
		return []Transaction{}
	}

	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if len(relevantPortfolios) > 0 && !relevantPortfolios[tx.Portfolio] {
			continue
		}
		out = append(out, tx)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveDay().Before(out[j].EffectiveDay())
	})
	return out
}

// RelevantPortfolios collects the set of portfolio IDs referenced by any
// holding or transaction.
func RelevantPortfolios(holdings []Holding, txs []Transaction) map[string]bool {
	ids := make(map[string]bool)
	for _, h := range holdings {
		ids[h.Portfolio] = true
	}
	for _, tx := range txs {
		ids[tx.Portfolio] = true
	}
	return ids
}
