package portfolio

import (
	"fmt"
	"strings"
)

// Window is a trailing display window ending at the latest point of a
// performance series.
type Window int

const (
	Week1 Window = iota
	Month1
	Month3
	YearToDate
	Year1
	Year5
	AllTime
)

// Windows lists every supported window, in display order.
func Windows() []Window {
	return []Window{Week1, Month1, Month3, YearToDate, Year1, Year5, AllTime}
}

func (w Window) String() string {
	switch w {
	case Week1:
		return "1w"
	case Month1:
		return "1m"
	case Month3:
		return "3m"
	case YearToDate:
		return "ytd"
	case Year1:
		return "1y"
	case Year5:
		return "5y"
	case AllTime:
		return "all"
	default:
		return "unknown"
	}
}

// ParseWindow parses a string into a Window.
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1w":
		return Week1, nil
	case "1m":
		return Month1, nil
	case "3m":
		return Month3, nil
	case "ytd":
		return YearToDate, nil
	case "1y":
		return Year1, nil
	case "5y":
		return Year5, nil
	case "all":
		return AllTime, nil
	default:
		return 0, fmt.Errorf("unknown window %q", s)
	}
}

// start returns the window's start date, counting back from the latest day.
func (w Window) start(latest Date) Date {
	switch w {
	case Week1:
		return latest.Add(-7)
	case Month1:
		return latest.AddMonth(-1)
	case Month3:
		return latest.AddMonth(-3)
	case YearToDate:
		return latest.PrevYearEnd()
	case Year1:
		return latest.AddYear(-1)
	case Year5:
		return latest.AddYear(-5)
	default:
		return Epoch
	}
}

// PeriodReturn is the performance of one display window: the TWR-based
// return ratio and the absolute gain over the window.
type PeriodReturn struct {
	Perf float64 `json:"perf"`
	Gain float64 `json:"gain"`
}

// ExtractPeriodReturns derives the return and gain of every display window
// from a daily performance series. An empty series yields all-zero metrics.
//
// The window baseline is the last series point dated at or before the
// window's start; when the window starts before the series does, a virtual
// baseline of TWR 1.0 and zero gains stands in, so a mid-year inception
// still produces a meaningful year-to-date figure.
func ExtractPeriodReturns(points []PerformancePoint) map[Window]PeriodReturn {
	returns := make(map[Window]PeriodReturn, len(Windows()))
	for _, w := range Windows() {
		returns[w] = PeriodReturn{}
	}
	if len(points) == 0 {
		return returns
	}

	latest := points[len(points)-1]
	for _, w := range Windows() {
		start := w.start(latest.Day)
		if start.After(latest.Day) {
			continue // window starts after the series ends, keep zeros
		}

		// Virtual baseline, replaced by the last point at or before start.
		startTWR, startGain := 1.0, 0.0
		for _, p := range points {
			if p.Day.After(start) {
				break
			}
			startTWR, startGain = p.TWR, p.GainsValue
		}

		perf := 0.0
		if startTWR != 0 {
			perf = latest.TWR/startTWR - 1
		}
		returns[w] = PeriodReturn{
			Perf: perf,
			Gain: latest.GainsValue - startGain,
		}
	}
	return returns
}
