// Package calendar loads the trading-date universe used to gap-fill account
// series.
package calendar

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ctpnav/reconciler/internal/domain"
)

// Range bounds a calendar; zero bounds are open.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d is inside the range.
func (r Range) Contains(d time.Time) bool {
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End) {
		return false
	}
	return true
}

// LoadFile reads a calendar CSV from path.
func LoadFile(path string, r Range) ([]time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open calendar: %w", err)
	}
	defer f.Close()
	return Load(f, r)
}

// Load reads trading dates. Two shapes are accepted: a tushare trade_cal
// export (cal_date and is_open columns, closed days dropped), or a single
// column of dates with or without a header.
func Load(rd io.Reader, r Range) ([]time.Time, error) {
	reader := csv.NewReader(rd)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	dateCol, openCol := 0, -1
	body := records
	if _, err := domain.ParseDate(firstCell(records[0])); err != nil {
		body = records[1:]
		for i, name := range records[0] {
			switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
			case "cal_date", "trade_date", "date":
				dateCol = i
			case "is_open":
				openCol = i
			}
		}
	}

	var dates []time.Time
	for i, row := range body {
		if dateCol >= len(row) {
			return nil, fmt.Errorf("line %d: missing date column", i+2)
		}
		if openCol >= 0 && openCol < len(row) && strings.TrimSpace(row[openCol]) != "1" {
			continue
		}
		d, err := domain.ParseDate(row[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		if r.Contains(d) {
			dates = append(dates, d)
		}
	}
	return Normalize(dates), nil
}

// FromStatements builds the calendar as the union of statement dates, used
// when no calendar file is configured.
func FromStatements(days []*domain.SettlementDay, r Range) []time.Time {
	var dates []time.Time
	for _, d := range days {
		if r.Contains(d.Date) {
			dates = append(dates, d.Date)
		}
	}
	return Normalize(dates)
}

// Normalize sorts dates ascending and drops duplicates.
func Normalize(dates []time.Time) []time.Time {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	out := dates[:0]
	for i, d := range dates {
		if i > 0 && d.Equal(dates[i-1]) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func firstCell(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return row[0]
}
