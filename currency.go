package portfolio

import (
	"fmt"
	"regexp"

	"github.com/Rhymond/go-money"
	log "github.com/sirupsen/logrus"
)

// DefaultCurrency is the terminal fallback of every currency resolution chain.
const DefaultCurrency = "USD"

var currencyRE = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateCurrency checks that a code is a plausible ISO-4217 currency code:
// three uppercase letters, known to the currency table.
func ValidateCurrency(code string) error {
	if !currencyRE.MatchString(code) {
		return fmt.Errorf("invalid currency code %q: want 3 uppercase letters", code)
	}
	if money.GetCurrency(code) == nil {
		return fmt.Errorf("unknown currency code %q", code)
	}
	return nil
}

// Rates is a snapshot of exchange rates keyed by concatenated currency pair,
// e.g. "USDEUR" holding the price of 1 USD in EUR. It is treated as
// read-only for the duration of a computation.
type Rates map[string]float64

// Convert converts an amount between currencies using the supplied rate
// snapshot. Resolution order: identity, direct pair, inverse pair, then a
// cross rate through USD. A missing rate degrades to the unconverted amount
// with a warning; this feeds a dashboard where a stale number beats a crash.
func Convert(amount float64, from, to string, rates Rates) float64 {
	if from == to || from == "" || to == "" {
		return amount
	}
	if rate, ok := rates[from+to]; ok && rate > 0 {
		return amount * rate
	}
	if inverse, ok := rates[to+from]; ok && inverse > 0 {
		return amount / inverse
	}
	// Cross through USD: from -> USD -> to.
	if leg1, ok := crossRate(from, DefaultCurrency, rates); ok {
		if leg2, ok := crossRate(DefaultCurrency, to, rates); ok {
			return amount * leg1 * leg2
		}
	}
	log.WithFields(log.Fields{"from": from, "to": to}).
		Warn("no exchange rate found, amount left unconverted")
	return amount
}

// crossRate resolves a single conversion leg from direct or inverse pairs.
func crossRate(from, to string, rates Rates) (float64, bool) {
	if from == to {
		return 1, true
	}
	if rate, ok := rates[from+to]; ok && rate > 0 {
		return rate, true
	}
	if inverse, ok := rates[to+from]; ok && inverse > 0 {
		return 1 / inverse, true
	}
	return 0, false
}
