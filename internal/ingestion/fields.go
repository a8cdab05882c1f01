package ingestion

import (
	"strings"
	"unicode/utf8"

	"github.com/ctpnav/reconciler/internal/amount"
)

// afterLabel returns the text following label's colon (ASCII or full-width)
// on line. ASCII letters match case-insensitively, since brokers print
// "Balance B/F" and "Balance b/F" alike. Text between the label and its colon
// (e.g. the English half of "上日结存 Balance Brought Forward：") is skipped as
// long as it holds no digits; a label without a colon yields the text right
// after the label.
func afterLabel(line, label string) (string, bool) {
	idx := strings.Index(foldASCII(line), foldASCII(label))
	if idx < 0 {
		return "", false
	}
	rest := line[idx+len(label):]
	if ci := strings.IndexAny(rest, ":："); ci >= 0 && !strings.ContainsAny(rest[:ci], "0123456789") {
		_, size := utf8.DecodeRuneInString(rest[ci:])
		rest = rest[ci+size:]
	}
	return strings.TrimLeft(rest, " \t　"), true
}

// foldASCII lower-cases ASCII letters only, keeping byte offsets intact.
func foldASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}, s)
}

// labeledToken finds the first alias present in lines and returns the first
// whitespace-delimited token after it.
func labeledToken(lines []string, aliases []string) (string, bool) {
	for _, alias := range aliases {
		for _, line := range lines {
			rest, ok := afterLabel(line, alias)
			if !ok {
				continue
			}
			fields := strings.Fields(rest)
			if len(fields) == 0 {
				return "", true
			}
			return fields[0], true
		}
	}
	return "", false
}

// labeledAmount is like labeledToken but returns the first token after the
// label that parses as an amount. When none does, the first token is
// returned so that the caller reports it.
func labeledAmount(lines []string, aliases []string) (string, bool) {
	for _, alias := range aliases {
		for _, line := range lines {
			rest, ok := afterLabel(line, alias)
			if !ok {
				continue
			}
			fields := strings.Fields(rest)
			if len(fields) == 0 {
				return "", true
			}
			scan := rest
			if ci := strings.IndexAny(scan, ":："); ci >= 0 {
				scan = scan[:ci]
			}
			for _, f := range strings.Fields(scan) {
				if _, err := amount.Parse(f); err == nil {
					return f, true
				}
			}
			return fields[0], true
		}
	}
	return "", false
}

// labeledText is like labeledToken but keeps single spaces, stopping at a run
// of two spaces, a tab or the end of the line.
func labeledText(lines []string, aliases []string) (string, bool) {
	for _, alias := range aliases {
		for _, line := range lines {
			rest, ok := afterLabel(line, alias)
			if !ok {
				continue
			}
			if i := strings.Index(rest, "  "); i >= 0 {
				rest = rest[:i]
			}
			if i := strings.IndexByte(rest, '\t'); i >= 0 {
				rest = rest[:i]
			}
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

func isDelimiter(line string) bool {
	t := strings.TrimSpace(line)
	return t != "" && strings.Trim(t, "-") == ""
}

func isPipeRow(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "|")
}

func splitCells(line string) []string {
	t := strings.TrimSpace(line)
	t = strings.TrimPrefix(t, "|")
	t = strings.TrimSuffix(t, "|")
	cells := strings.Split(t, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

// ledger is a delimiter-bounded pipe table. Rows above the second delimiter
// form the header; rows below it are data rows, except the total row.
type ledger struct {
	header [][]string
	rows   []ledgerRow
	total  []string
}

type ledgerRow struct {
	line  int // index within the block
	cells []string
}

func parseLedger(lines []string, totalMarkers []string) (ledger, bool) {
	var (
		t          ledger
		delimiters int
	)
	for i, line := range lines {
		if isDelimiter(line) {
			delimiters++
			continue
		}
		if !isPipeRow(line) || delimiters == 0 {
			continue
		}
		cells := splitCells(line)
		switch {
		case delimiters == 1:
			t.header = append(t.header, cells)
		case isTotalRow(cells, totalMarkers):
			if t.total == nil {
				t.total = cells
			}
		default:
			t.rows = append(t.rows, ledgerRow{line: i, cells: cells})
		}
	}
	return t, delimiters >= 2
}

func isTotalRow(cells []string, markers []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, m := range markers {
		if strings.HasPrefix(cells[0], m) {
			return true
		}
	}
	return false
}

// column returns the index of the first header cell equal to one of aliases,
// or fallback when no header row names the column.
func (t ledger) column(aliases []string, fallback int) int {
	for _, alias := range aliases {
		for _, row := range t.header {
			for i, cell := range row {
				if cell == alias {
					return i
				}
			}
		}
	}
	return fallback
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}
