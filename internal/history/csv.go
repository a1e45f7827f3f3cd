package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/husnusametd/spectra/internal/walkforward"
)

const (
	timestampColumn = "timestamp"
	returnColumn    = "signal_return"
)

// ReadCSV parses a return series. The header must name a timestamp column
// and a signal_return column; every other column is read as a numeric
// feature. Empty feature cells are skipped.
//
// Timestamps may be RFC 3339, a plain date, or Unix seconds/milliseconds.
func ReadCSV(r io.Reader) ([]walkforward.Point, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	tsIdx, retIdx := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(h)
		header[i] = h
		switch strings.ToLower(h) {
		case timestampColumn:
			tsIdx = i
		case returnColumn:
			retIdx = i
		}
	}
	if tsIdx < 0 || retIdx < 0 {
		return nil, fmt.Errorf("csv header must contain %q and %q", timestampColumn, returnColumn)
	}

	var out []walkforward.Point
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		ts, err := parseTimestamp(rec[tsIdx])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		ret, err := strconv.ParseFloat(strings.TrimSpace(rec[retIdx]), 64)
		if err != nil || math.IsNaN(ret) {
			return nil, fmt.Errorf("csv line %d: invalid %s %q", line, returnColumn, rec[retIdx])
		}
		p := walkforward.Point{Time: ts, Return: ret}
		for i, cell := range rec {
			if i == tsIdx || i == retIdx || strings.TrimSpace(cell) == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: column %s: %w", line, header[i], err)
			}
			if p.Features == nil {
				p.Features = make(map[string]float64, len(rec)-2)
			}
			p.Features[header[i]] = v
		}
		out = append(out, p)
	}
	return out, nil
}

// ImportCSV reads r with ReadCSV and stores the result.
func (s *Store) ImportCSV(ctx context.Context, symbol, timeframe string, r io.Reader) (int, error) {
	points, err := ReadCSV(r)
	if err != nil {
		return 0, err
	}
	return s.Insert(ctx, symbol, timeframe, points)
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
	}
	// Anything past year 2286 in seconds is taken as milliseconds.
	if n > 9_999_999_999 {
		return time.UnixMilli(n).UTC(), nil
	}
	return time.Unix(n, 0).UTC(), nil
}
