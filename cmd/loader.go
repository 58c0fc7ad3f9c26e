package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/PaesslerAG/jsonpath"
	portfolio "github.com/shai0noy/portfolios"
)

// PortfolioFile is the on-disk snapshot the dashboard exports: everything
// the performance engine needs in a single JSON document.
type PortfolioFile struct {
	DisplayCurrency string                          `json:"displayCurrency"`
	Holdings        []portfolio.Holding            `json:"holdings"`
	Policies        map[string]portfolio.DivPolicy `json:"dividendPolicies"`
	Rates           portfolio.Rates                `json:"rates"`
	Transactions    []portfolio.Transaction        `json:"transactions"`
}

// DecodePortfolioFile reads a portfolio snapshot from disk.
func DecodePortfolioFile(path string) (*PortfolioFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading portfolio file: %w", err)
	}
	var pf PortfolioFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing portfolio file %q: %w", path, err)
	}
	if pf.DisplayCurrency == "" {
		pf.DisplayCurrency = portfolio.DefaultCurrency
	}
	return &pf, nil
}

// DirFetcher returns a HistoryFetcher that reads price histories from
// <dir>/<EXCHANGE>_<TICKER>.json files in the provider export format.
func DirFetcher(dir string) portfolio.HistoryFetcher {
	return func(_ context.Context, ticker, exchange string) (*portfolio.SecurityHistory, error) {
		name := fmt.Sprintf("%s_%s.json", exchange, ticker)
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading price history: %w", err)
		}
		var hist portfolio.SecurityHistory
		if err := json.Unmarshal(data, &hist); err != nil {
			return nil, fmt.Errorf("parsing price history %q: %w", name, err)
		}
		return &hist, nil
	}
}

// LoadSeries extracts a value series from an arbitrary provider JSON
// document. Two jsonpath expressions select the timestamps and the values,
// so any provider shape works without a dedicated decoder per source.
func LoadSeries(path, datePath, valuePath string) ([]portfolio.SeriesPoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading series file: %w", err)
	}
	var jobj interface{}
	if err := json.Unmarshal(data, &jobj); err != nil {
		return nil, fmt.Errorf("parsing series file %q: %w", path, err)
	}

	jdates, err := jsonpath.Get(datePath, jobj)
	if err != nil {
		return nil, fmt.Errorf("extracting timestamps with %q: %w", datePath, err)
	}
	jvalues, err := jsonpath.Get(valuePath, jobj)
	if err != nil {
		return nil, fmt.Errorf("extracting values with %q: %w", valuePath, err)
	}
	dates, ok := jdates.([]interface{})
	if !ok {
		return nil, fmt.Errorf("timestamp path %q did not select a list", datePath)
	}
	values, ok := jvalues.([]interface{})
	if !ok {
		return nil, fmt.Errorf("value path %q did not select a list", valuePath)
	}
	if len(dates) != len(values) {
		return nil, fmt.Errorf("timestamp and value counts differ (%d vs %d)", len(dates), len(values))
	}

	points := make([]portfolio.SeriesPoint, 0, len(dates))
	for i := range dates {
		ts, err := parseSeriesTime(dates[i])
		if err != nil {
			return nil, fmt.Errorf("series point %d: %w", i, err)
		}
		value, err := toFloat(values[i])
		if err != nil {
			return nil, fmt.Errorf("series point %d: %w", i, err)
		}
		points = append(points, portfolio.SeriesPoint{Time: ts, Value: value})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}

// parseSeriesTime accepts the timestamp shapes providers actually emit:
// plain dates, RFC 3339 strings, and unix epochs in seconds or millis.
func parseSeriesTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case string:
		if day, err := portfolio.ParseDate(t); err == nil {
			return day.Time(), nil
		}
		return time.Parse(time.RFC3339, t)
	case float64:
		if t > 1e12 {
			return time.UnixMilli(int64(t)).UTC(), nil
		}
		return time.Unix(int64(t), 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %v (%T)", v, v)
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	}
	return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
}
