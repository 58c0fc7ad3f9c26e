package portfolio

import (
	"slices"
	"sort"
)

// PricePoint is one day of an instrument's price history.
//
// AdjClose carries the split/dividend-adjusted close when the data source
// provides one; zero means absent. Valuation prefers it over the raw price.
type PricePoint struct {
	Day      Date    `json:"date"`
	Price    float64 `json:"price"`
	AdjClose float64 `json:"adjClose,omitempty"`
}

// EffectivePrice returns the price used for valuation: the adjusted close
// when positive, the raw price otherwise.
func (p PricePoint) EffectivePrice() float64 {
	if p.AdjClose > 0 {
		return p.AdjClose
	}
	return p.Price
}

// DividendPoint is a per-share cash distribution on a given day.
type DividendPoint struct {
	Day    Date    `json:"date"`
	Amount float64 `json:"amount"`
}

// Split is a share split event.
type Split struct {
	Day         Date  `json:"date"`
	Numerator   int64 `json:"numerator"`
	Denominator int64 `json:"denominator"`
}

// SecurityHistory is the full data set a price source returns for one
// instrument. Only Prices drives the valuation engine; dividends and splits
// are carried through for callers that display them.
type SecurityHistory struct {
	Prices    []PricePoint    `json:"historical"`
	Dividends []DividendPoint `json:"dividends,omitempty"`
	Splits    []Split         `json:"splits,omitempty"`
}

// EffectiveHistory folds the price points into a sorted History of effective
// prices. Provider exports are not trusted to be sorted or duplicate-free;
// Append keeps the last value seen for a day.
func (s *SecurityHistory) EffectiveHistory() *History {
	h := new(History)
	for _, p := range s.Prices {
		h.Append(p.Day, p.EffectivePrice())
	}
	return h
}

// History stores a chronological series of float values, each associated
// with a specific day. It ensures that days are unique and the series is
// always sorted.
type History struct {
	days   []Date
	values []float64
}

// Len returns the number of items in the history.
func (h *History) Len() int { return len(h.days) }

// Latest returns the latest day and value in the history, or zero values
// when the history is empty.
func (h *History) Latest() (day Date, value float64) {
	last := len(h.days) - 1
	if last < 0 {
		return Date{}, 0
	}
	return h.days[last], h.values[last]
}

// Append adds a point to the history. An existing value at that day is
// overwritten.
func (h *History) Append(on Date, v float64) *History {
	if i := slices.Index(h.days, on); i >= 0 {
		// Replace, giving priority to the last data seen.
		h.values[i] = v
		return h
	}
	h.days, h.values = append(h.days, on), append(h.values, v)
	sort.Sort(chronological{h})
	return h
}

// Get returns the value at 'day' and true, or zero and false.
func (h *History) Get(day Date) (float64, bool) {
	if i := slices.Index(h.days, day); i >= 0 {
		return h.values[i], true
	}
	return 0, false
}

// ValueAsOf returns the value on a given day, or the most recent value
// before it. It returns the value and true if found, otherwise zero and
// false.
func (h *History) ValueAsOf(day Date) (float64, bool) {
	i, found := slices.BinarySearchFunc(h.days, day, Date.Compare)
	if found {
		return h.values[i], true
	}
	// `i` is the insertion index; the last entry before the target is at i-1.
	if i == 0 {
		return 0, false
	}
	return h.values[i-1], true
}

// chronological is a private implementation to keep a history sorted.
type chronological struct{ *History }

func (s chronological) Less(i, j int) bool { return s.days[i].Before(s.days[j]) }
func (s chronological) Swap(i, j int) {
	s.days[i], s.days[j] = s.days[j], s.days[i]
	s.values[i], s.values[j] = s.values[j], s.values[i]
}

// priceCursor walks a price History forward, one valuation day at a time.
// It is never rewound: each priceAt call advances past every day at or
// before the requested one and stays there for the next call.
type priceCursor struct {
	hist *History
	idx  int
}

func newPriceCursor(hist *History) *priceCursor {
	return &priceCursor{hist: hist, idx: -1}
}

// priceAt advances the cursor to the last history day at or before day and
// returns its price. It returns 0 and false while the history has not
// started yet (or is empty).
func (c *priceCursor) priceAt(day Date) (float64, bool) {
	for c.idx+1 < c.hist.Len() && !c.hist.days[c.idx+1].After(day) {
		c.idx++
	}
	if c.idx < 0 {
		return 0, false
	}
	return c.hist.values[c.idx], true
}
