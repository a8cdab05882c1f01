// Package rebate resolves the per-exchange commission rebate fractions in
// force on a date.
package rebate

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ctpnav/reconciler/internal/domain"
)

// Entry is one row of the schedule. Start and End are inclusive.
type Entry struct {
	Start     time.Time              `json:"start"`
	End       time.Time              `json:"end"`
	Fractions domain.ExchangeAmounts `json:"fractions"`
}

// Contains reports whether d falls within the entry.
func (e Entry) Contains(d time.Time) bool {
	return !d.Before(e.Start) && !d.After(e.End)
}

// Schedule is a piecewise-constant set of entries.
type Schedule struct {
	Entries []Entry
}

var endOfTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Zero is a schedule granting no rebate on any date.
func Zero() *Schedule {
	return &Schedule{Entries: []Entry{{End: endOfTime}}}
}

// Resolve returns the fractions in force on d. Exactly one entry must match.
func (s *Schedule) Resolve(d time.Time) (domain.ExchangeAmounts, error) {
	var (
		found   domain.ExchangeAmounts
		matches int
	)
	for _, e := range s.Entries {
		if e.Contains(d) {
			found = e.Fractions
			matches++
		}
	}
	if matches != 1 {
		return domain.ExchangeAmounts{}, &domain.ScheduleCoverageError{Date: d, Matches: matches}
	}
	return found, nil
}

// LoadFile reads a schedule CSV from path.
func LoadFile(path string) (*Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rebate schedule: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV reads a schedule.
//
// Expected header (column order is free, exchange columns accept DCE_IND or DCE-IND):
//
//	start_date,end_date,CFFEX,INE,SHFE,CZCE,DCE_IND,DCE_AGR
func LoadCSV(r io.Reader) (*Schedule, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	startCol, endCol := -1, -1
	exCols := map[domain.Exchange]int{}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch strings.ToLower(name) {
		case "start_date":
			startCol = i
			continue
		case "end_date":
			endCol = i
			continue
		}
		if ex, err := domain.ParseExchange(name); err == nil {
			exCols[ex] = i
		}
	}
	if startCol < 0 || endCol < 0 {
		return nil, fmt.Errorf("header must contain start_date and end_date")
	}
	for _, ex := range domain.Exchanges {
		if _, ok := exCols[ex]; !ok {
			return nil, fmt.Errorf("header is missing exchange column %s", ex)
		}
	}

	s := &Schedule{}
	lineNum := 1
	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		var e Entry
		if e.Start, err = domain.ParseDate(row[startCol]); err != nil {
			return nil, fmt.Errorf("line %d start: %w", lineNum, err)
		}
		if e.End, err = domain.ParseDate(row[endCol]); err != nil {
			return nil, fmt.Errorf("line %d end: %w", lineNum, err)
		}
		if e.End.Before(e.Start) {
			return nil, fmt.Errorf("line %d: end %s before start %s", lineNum,
				e.End.Format(domain.DateLayout), e.Start.Format(domain.DateLayout))
		}
		for ex, col := range exCols {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d %s: %w", lineNum, ex, err)
			}
			if v < 0 || v > 1 {
				return nil, fmt.Errorf("line %d %s: fraction %v outside [0,1]", lineNum, ex, v)
			}
			e.Fractions[ex] = v
		}
		s.Entries = append(s.Entries, e)
	}
	if len(s.Entries) == 0 {
		return nil, domain.ErrEmptySchedule
	}
	return s, nil
}
