package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctpnav/reconciler/internal/domain"
	"github.com/ctpnav/reconciler/internal/report"
)

// AccountResult is one account's share of a run.
type AccountResult struct {
	AccountID     string
	AccountName   string
	Broker        string
	Company       string
	Days          []*domain.SettlementDay
	Rows          []domain.Row
	Transfers     []domain.CashFlowEvent
	Discrepancies []domain.Discrepancy
	Outputs       []string
	Err           error
}

// Result is the outcome of a batch run.
type Result struct {
	Run                   domain.Run
	Accounts              []AccountResult
	Consolidated          []domain.Row
	ConsolidatedTransfers []domain.CashFlowEvent
	Failures              map[string]error
	Discrepancies         []domain.Discrepancy
	Outputs               []string
}

// Account returns the result for one account.
func (r *Result) Account(id string) (*AccountResult, bool) {
	for i := range r.Accounts {
		if r.Accounts[i].AccountID == id {
			return &r.Accounts[i], true
		}
	}
	return nil, false
}

// Summary condenses the run for the markdown report.
func (r *Result) Summary() report.Summary {
	s := report.Summary{
		RunID:         r.Run.ID,
		Start:         r.Run.Start,
		End:           r.Run.End,
		Files:         r.Run.Files,
		FailedFiles:   map[string]string{},
		Discrepancies: r.Discrepancies,
	}
	for path, err := range r.Failures {
		s.FailedFiles[path] = err.Error()
	}
	for _, a := range r.Accounts {
		line := report.AccountLine{AccountID: a.AccountID, Broker: a.Broker}
		if a.Err != nil {
			line.Err = a.Err.Error()
		} else if n := len(a.Rows); n > 0 {
			line.Total = a.Rows[n-1]
		}
		s.Accounts = append(s.Accounts, line)
	}
	if len(r.Consolidated) > 0 && len(r.Accounts) > 1 {
		s.Accounts = append(s.Accounts, report.AccountLine{
			AccountID: report.ConsolidatedAccount,
			Total:     r.Consolidated[len(r.Consolidated)-1],
		})
	}
	return s
}

// writeReports writes <out>/<company>/<account>_<start>_<end>.xlsx per
// account (plus a PDF when enabled) and a consolidated workbook.
func (p *Pipeline) writeReports(result *Result) error {
	for i := range result.Accounts {
		a := &result.Accounts[i]
		if a.Err != nil || len(a.Rows) == 0 {
			continue
		}
		base := filepath.Join(p.opts.OutputDir, a.Company, fmt.Sprintf("%s_%s", a.AccountID, span(a.Rows)))
		path := base + ".xlsx"
		if err := writeFile(path, func(f *os.File) error {
			return report.WriteWorkbook(f, a.Rows, a.Transfers)
		}); err != nil {
			return err
		}
		a.Outputs = append(a.Outputs, path)

		if p.opts.PDF {
			path := base + ".pdf"
			if err := writeFile(path, func(f *os.File) error {
				return report.WritePDF(f, a.AccountID, a.Rows, p.now())
			}); err != nil {
				return err
			}
			a.Outputs = append(a.Outputs, path)
		}
		result.Outputs = append(result.Outputs, a.Outputs...)
	}

	if len(result.Consolidated) > 0 {
		path := filepath.Join(p.opts.OutputDir, fmt.Sprintf("consolidated_%s.xlsx", span(result.Consolidated)))
		if err := writeFile(path, func(f *os.File) error {
			return report.WriteWorkbook(f, result.Consolidated, result.ConsolidatedTransfers)
		}); err != nil {
			return err
		}
		result.Outputs = append(result.Outputs, path)
	}
	for _, path := range result.Outputs {
		p.logger.Printf("[pipeline] Wrote %s", path)
	}
	return nil
}

// span renders the first and last dates of a series.
func span(rows []domain.Row) string {
	first, last := rows[0].Date, rows[0].Date
	for _, r := range rows {
		if r.Total {
			continue
		}
		if r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return first.Format(domain.DateLayout) + "_" + last.Format(domain.DateLayout)
}

func writeFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
