package portfolio

import (
	"testing"
	"time"
)

func day(d int) Date { return NewDate(2023, time.June, d) }

func TestHistoryValueAsOf(t *testing.T) {
	h := new(History)
	h.Append(day(10), 100).Append(day(1), 90).Append(day(20), 110)

	testCases := []struct {
		name  string
		on    Date
		want  float64
		found bool
	}{
		{"Exact match", day(10), 100, true},
		{"Between points uses last before", day(15), 100, true},
		{"After last point", day(25), 110, true},
		{"Before first point", NewDate(2023, time.May, 30), 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, found := h.ValueAsOf(tc.on)
			if found != tc.found || got != tc.want {
				t.Errorf("ValueAsOf(%s) = (%v, %v), want (%v, %v)", tc.on, got, found, tc.want, tc.found)
			}
		})
	}
}

func TestHistoryAppendOverwrites(t *testing.T) {
	h := new(History)
	h.Append(day(1), 90).Append(day(1), 95)

	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
	if v, _ := h.Get(day(1)); v != 95 {
		t.Errorf("Get() = %v, want 95 (last write wins)", v)
	}
}

func TestHistoryLatest(t *testing.T) {
	h := new(History)
	if d, v := h.Latest(); !d.IsZero() || v != 0 {
		t.Errorf("Latest() on empty history = (%s, %v), want zero values", d, v)
	}
	h.Append(day(2), 80).Append(day(5), 85)
	if d, v := h.Latest(); d != day(5) || v != 85 {
		t.Errorf("Latest() = (%s, %v), want (%s, 85)", d, v, day(5))
	}
}

func TestSecurityHistoryEffectiveHistory(t *testing.T) {
	hist := &SecurityHistory{Prices: []PricePoint{
		{Day: day(2), Price: 11},
		{Day: day(1), Price: 10, AdjClose: 9.5},
		{Day: day(2), Price: 12}, // corrected row later in the feed
	}}

	h := hist.EffectiveHistory()
	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (duplicate day collapsed)", h.Len())
	}
	if v, _ := h.Get(day(1)); v != 9.5 {
		t.Errorf("Get(day 1) = %v, want the adjusted close 9.5", v)
	}
	if v, _ := h.Get(day(2)); v != 12 {
		t.Errorf("Get(day 2) = %v, want 12 (last row wins)", v)
	}
	if d, v := h.Latest(); d != day(2) || v != 12 {
		t.Errorf("Latest() = (%s, %v), want sorted despite the feed order", d, v)
	}
}

func TestPriceCursorAdvancesForwardOnly(t *testing.T) {
	hist := &SecurityHistory{Prices: []PricePoint{
		{Day: day(3), Price: 12}, // feed out of order on purpose
		{Day: day(1), Price: 10},
		{Day: day(5), Price: 14},
	}}
	c := newPriceCursor(hist.EffectiveHistory())

	if _, ok := c.priceAt(NewDate(2023, time.May, 31)); ok {
		t.Errorf("priceAt before history start should report no price")
	}
	if p, ok := c.priceAt(day(2)); !ok || p != 10 {
		t.Errorf("priceAt(day 2) = (%v, %v), want (10, true)", p, ok)
	}
	if p, _ := c.priceAt(day(4)); p != 12 {
		t.Errorf("priceAt(day 4) = %v, want 12", p)
	}
	// The cursor never rewinds: asking for an earlier day keeps the last
	// position.
	if p, _ := c.priceAt(day(2)); p != 12 {
		t.Errorf("priceAt(day 2) after day 4 = %v, want 12 (no rewind)", p)
	}
	if p, _ := c.priceAt(day(9)); p != 14 {
		t.Errorf("priceAt(day 9) = %v, want 14", p)
	}
}

func TestPricePointEffectivePrice(t *testing.T) {
	if p := (PricePoint{Price: 10, AdjClose: 9.5}).EffectivePrice(); p != 9.5 {
		t.Errorf("EffectivePrice() = %v, want adjusted close 9.5", p)
	}
	if p := (PricePoint{Price: 10}).EffectivePrice(); p != 10 {
		t.Errorf("EffectivePrice() = %v, want raw price 10", p)
	}
}
