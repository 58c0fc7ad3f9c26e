package portfolio

import (
	"math"
	"testing"
)

func TestValidateCurrency(t *testing.T) {
	testCases := []struct {
		name      string
		code      string
		expectErr bool
	}{
		{"Valid USD", "USD", false},
		{"Valid EUR", "EUR", false},
		{"Valid ILS", "ILS", false},
		{"Invalid Length (Short)", "US", true},
		{"Invalid Length (Long)", "USDE", true},
		{"Invalid Character (number)", "US1", true},
		{"Invalid Case (lowercase)", "usd", true},
		{"Unknown code", "ZZZ", true},
		{"Empty String", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCurrency(tc.code)
			if (err != nil) != tc.expectErr {
				t.Errorf("ValidateCurrency(%q) returned error: %v, want error: %v", tc.code, err, tc.expectErr)
			}
		})
	}
}

func TestConvert(t *testing.T) {
	rates := Rates{
		"USDILS": 3.5,
		"EURUSD": 1.1,
	}

	testCases := []struct {
		name     string
		amount   float64
		from, to string
		want     float64
	}{
		{"Identity", 100, "USD", "USD", 100},
		{"Direct pair", 100, "USD", "ILS", 350},
		{"Inverse pair", 350, "ILS", "USD", 100},
		{"Cross through USD", 100, "EUR", "ILS", 100 * 1.1 * 3.5},
		{"Missing rate degrades to unconverted", 42, "GBP", "JPY", 42},
		{"Empty source currency", 42, "", "USD", 42},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Convert(tc.amount, tc.from, tc.to, rates)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Convert(%v, %s, %s) = %v, want %v", tc.amount, tc.from, tc.to, got, tc.want)
			}
		})
	}
}
