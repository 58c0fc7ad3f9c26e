package portfolio

import (
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// tradingDaysPerYear annualizes daily return statistics.
const tradingDaysPerYear = 252

// SeriesPoint is one sample of an externally-supplied price series. The
// timestamp may be intraday; all matching happens at UTC day granularity.
type SeriesPoint struct {
	Time  time.Time `json:"timestamp"`
	Value float64   `json:"value"`
}

// SyncedPair is a pair of values from two series observed on the same
// calendar day. A is the driving (subject) series, B the secondary
// (benchmark) one.
type SyncedPair struct {
	Day  Date
	A, B float64
}

// SyncedTriple extends SyncedPair with a third (risk-free) series value.
type SyncedTriple struct {
	Day     Date
	A, B, C float64
}

// Synchronize aligns two independently-sampled series by calendar day.
// The first series drives iteration order; only days present in both
// series survive. Matching is exact-day, no interpolation.
func Synchronize(a, b []SeriesPoint) []SyncedPair {
	index := indexByDay(b)
	pairs := make([]SyncedPair, 0, len(a))
	for _, p := range a {
		day := DateOf(p.Time)
		if v, ok := index[day]; ok {
			pairs = append(pairs, SyncedPair{Day: day, A: p.Value, B: v})
		}
	}
	return pairs
}

// Synchronize3 aligns three series by calendar day, keeping only days
// present in all of them. The first series drives iteration order.
func Synchronize3(a, b, c []SeriesPoint) []SyncedTriple {
	indexB := indexByDay(b)
	indexC := indexByDay(c)
	triples := make([]SyncedTriple, 0, len(a))
	for _, p := range a {
		day := DateOf(p.Time)
		vb, okB := indexB[day]
		vc, okC := indexC[day]
		if okB && okC {
			triples = append(triples, SyncedTriple{Day: day, A: p.Value, B: vb, C: vc})
		}
	}
	return triples
}

// indexByDay builds the day lookup of a series. Duplicate days keep the
// last sample seen.
func indexByDay(series []SeriesPoint) map[Date]float64 {
	index := make(map[Date]float64, len(series))
	for _, p := range series {
		index[DateOf(p.Time)] = p.Value
	}
	return index
}

// Returns computes sequential returns (curr-prev)/prev over a price slice,
// skipping steps whose base price is exactly zero.
func Returns(prices []float64) []float64 {
	returns := make([]float64, 0, len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	return returns
}

// ReturnPair is one synchronized return observation: X the benchmark
// return, Y the subject return.
type ReturnPair struct {
	X, Y float64
}

// PairReturns converts synchronized prices into return pairs, mapping the
// driving series (A) to the subject leg and the secondary series (B) to the
// benchmark leg. Steps where either base price is exactly zero are skipped
// on both legs, keeping the pairs aligned.
func PairReturns(pairs []SyncedPair) []ReturnPair {
	returns := make([]ReturnPair, 0, len(pairs))
	for i := 1; i < len(pairs); i++ {
		prev := pairs[i-1]
		if prev.A == 0 || prev.B == 0 {
			continue
		}
		returns = append(returns, ReturnPair{
			X: (pairs[i].B - prev.B) / prev.B,
			Y: (pairs[i].A - prev.A) / prev.A,
		})
	}
	return returns
}

// TripleReturns is PairReturns plus the risk-free leg of synchronized
// triples, returned as a parallel slice for ComputeMetrics.
func TripleReturns(triples []SyncedTriple) ([]ReturnPair, []float64) {
	pairs := make([]ReturnPair, 0, len(triples))
	riskFree := make([]float64, 0, len(triples))
	for i := 1; i < len(triples); i++ {
		prev := triples[i-1]
		if prev.A == 0 || prev.B == 0 {
			continue
		}
		pairs = append(pairs, ReturnPair{
			X: (triples[i].B - prev.B) / prev.B,
			Y: (triples[i].A - prev.A) / prev.A,
		})
		rf := 0.0
		if prev.C != 0 {
			rf = (triples[i].C - prev.C) / prev.C
		}
		riskFree = append(riskFree, rf)
	}
	return pairs, riskFree
}

// NormalizeToStart rebases a series so its first sample is 1.0, preserving
// all sequential returns. A series starting at zero is returned unchanged.
func NormalizeToStart(series []SeriesPoint) []SeriesPoint {
	if len(series) == 0 || series[0].Value == 0 {
		return series
	}
	base := series[0].Value
	out := make([]SeriesPoint, len(series))
	for i, p := range series {
		out[i] = SeriesPoint{Time: p.Time, Value: p.Value / base}
	}
	return out
}

// AnalysisMetrics is the result of regressing a subject's returns against a
// benchmark's. Alpha is a per-period (daily) rate; callers scale it to a
// display window with CumulativeAlpha.
type AnalysisMetrics struct {
	Alpha         float64 `json:"alpha"`
	Beta          float64 `json:"beta"`
	DownsideBeta  float64 `json:"downsideBeta"`
	DownsideAlpha float64 `json:"downsideAlpha"`
	SharpeRatio   float64 `json:"sharpeRatio"`
	RSquared      float64 `json:"rSquared"`
	Correlation   float64 `json:"correlation"`
}

// ComputeMetrics derives regression metrics from synchronized return pairs,
// optionally against a parallel risk-free return series.
//
// It returns nil when fewer than two observations exist: callers must treat
// nil as "insufficient data", not a fault. A risk-free series of mismatched
// length is discarded with a warning. Degenerate inputs (zero variance,
// zero OLS denominator) resolve to zero metrics, never NaN or infinity.
func ComputeMetrics(pairs []ReturnPair, riskFree []float64) *AnalysisMetrics {
	n := len(pairs)
	if n < 2 {
		return nil
	}
	if riskFree != nil && len(riskFree) != n {
		log.WithFields(log.Fields{"pairs": n, "riskFree": len(riskFree)}).
			Warn("risk-free series length mismatch, ignoring it")
		riskFree = nil
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	exX := make([]float64, n)
	exY := make([]float64, n)
	for i, p := range pairs {
		rf := 0.0
		if riskFree != nil {
			rf = riskFree[i]
		}
		xs[i], ys[i] = p.X, p.Y
		exX[i], exY[i] = p.X-rf, p.Y-rf
	}

	// The reported beta regresses raw returns; the excess-return slope only
	// serves Jensen's alpha.
	beta := olsSlope(xs, ys)
	excessBeta := olsSlope(exX, exY)
	meanExX := stat.Mean(exX, nil)
	meanExY := stat.Mean(exY, nil)
	alpha := meanExY - excessBeta*meanExX

	correlation := stat.Correlation(xs, ys, nil)
	if math.IsNaN(correlation) {
		correlation = 0 // zero variance on either leg
	}

	// Downside beta: sensitivity over benchmark declines only. Too few
	// declining observations fall back to the overall beta.
	var downX, downY []float64
	for i := range xs {
		if xs[i] < 0 {
			downX = append(downX, xs[i])
			downY = append(downY, ys[i])
		}
	}
	downsideBeta := beta
	if len(downX) >= 2 {
		downsideBeta = olsSlope(downX, downY)
	}
	downsideAlpha := meanExY - downsideBeta*meanExX

	sharpe := 0.0
	if sd := stat.StdDev(exY, nil); sd > 0 && !math.IsNaN(sd) {
		sharpe = meanExY / sd * math.Sqrt(tradingDaysPerYear)
	}

	return &AnalysisMetrics{
		Alpha:         alpha,
		Beta:          beta,
		DownsideBeta:  downsideBeta,
		DownsideAlpha: downsideAlpha,
		SharpeRatio:   sharpe,
		RSquared:      correlation * correlation,
		Correlation:   correlation,
	}
}

// CumulativeAlpha scales a per-period alpha to a display window of n return
// observations.
func CumulativeAlpha(alpha float64, n int) float64 {
	return alpha * float64(n)
}

// olsSlope computes the ordinary-least-squares slope of y on x, with a zero
// fallback when the denominator vanishes.
func olsSlope(xs, ys []float64) float64 {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / den
}
