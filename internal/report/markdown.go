package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/ctpnav/reconciler/internal/amount"
	"github.com/ctpnav/reconciler/internal/domain"
)

// Summary is the operator-facing digest of a run.
type Summary struct {
	RunID         string
	Start, End    time.Time
	Files         int
	FailedFiles   map[string]string
	Accounts      []AccountLine
	Discrepancies []domain.Discrepancy
}

// AccountLine is one account's closing position, taken from its total row.
type AccountLine struct {
	AccountID string
	Broker    string
	Total     domain.Row
	Err       string
}

// Markdown renders the summary as a markdown document.
func (s Summary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s\n\n", s.RunID)
	fmt.Fprintf(&b, "Range: %s to %s. Files: %d, failed: %d.\n\n",
		dateOrOpen(s.Start), dateOrOpen(s.End), s.Files, len(s.FailedFiles))

	b.WriteString("## Accounts\n\n")
	b.WriteString("| Account | Broker | Closing balance | Bank transfers | Real NAV | Instant NAV |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|\n")
	for _, a := range s.Accounts {
		if a.Err != "" {
			fmt.Fprintf(&b, "| %s | %s | failed: %s | | | |\n", a.AccountID, a.Broker, a.Err)
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %.4f | %.4f |\n",
			a.AccountID, a.Broker, amount.Display(a.Total.BalanceCF), amount.Display(a.Total.BankTransfer),
			a.Total.Real.NAV, a.Total.Instant.NAV)
	}

	if len(s.FailedFiles) > 0 {
		b.WriteString("\n## Failed files\n\n")
		names := make([]string, 0, len(s.FailedFiles))
		for name := range s.FailedFiles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "- `%s`: %s\n", name, s.FailedFiles[name])
		}
	}

	if len(s.Discrepancies) > 0 {
		b.WriteString("\n## Discrepancies\n\n")
		b.WriteString("| Severity | Type | Account | Date | Difference |\n")
		b.WriteString("|---|---|---|---|---:|\n")
		for _, d := range s.Discrepancies {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				d.Severity, d.Type, d.AccountID, d.Date.Format(domain.DateLayout), amount.Display(d.Difference))
		}
	}
	return b.String()
}

// Render formats markdown for a terminal.
func Render(markdown string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	return r.Render(markdown)
}

func dateOrOpen(d time.Time) string {
	if d.IsZero() {
		return "open"
	}
	return d.Format(domain.DateLayout)
}
