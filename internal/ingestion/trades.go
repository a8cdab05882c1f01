package ingestion

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ctpnav/reconciler/internal/amount"
	"github.com/ctpnav/reconciler/internal/domain"
)

type trades struct {
	byExchange [len(domain.Exchanges)]decimal.Decimal
	unmapped   map[string]decimal.Decimal
}

// unmappedPrefixes returns the unmatched instrument prefixes in sorted order.
func (t trades) unmappedPrefixes() []string {
	out := make([]string, 0, len(t.unmapped))
	for p := range t.unmapped {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func extractTrades(lines []string, l Layout, prefixes prefixTable) (trades, error) {
	tr := trades{unmapped: map[string]decimal.Decimal{}}
	t, ok := parseLedger(lines, l.TotalRowMarkers)
	if !ok {
		return tr, &domain.MissingFieldError{Section: l.TradesMarker, Field: "delimiter"}
	}
	instCol := t.column(l.TradeColumns.Instrument, 3)
	feeCol := t.column(l.TradeColumns.Fee, 10)
	for _, r := range t.rows {
		instrument := cell(r.cells, instCol)
		if instrument == "" {
			continue
		}
		fee, err := amount.ParseOrZero(cell(r.cells, feeCol))
		if err != nil {
			return tr, fmt.Errorf("trade row %d: fee: %w", r.line, err)
		}
		ex, prefix, ok := prefixes.lookup(instrument)
		if !ok {
			tr.unmapped[prefix] = tr.unmapped[prefix].Add(fee)
			continue
		}
		tr.byExchange[ex] = tr.byExchange[ex].Add(fee)
	}
	return tr, nil
}
