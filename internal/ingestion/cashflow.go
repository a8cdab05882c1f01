package ingestion

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ctpnav/reconciler/internal/amount"
	"github.com/ctpnav/reconciler/internal/domain"
)

type cashFlows struct {
	events                []domain.CashFlowEvent
	deposits, withdrawals decimal.Decimal
	reportedDeposits      decimal.Decimal
	reportedWithdrawals   decimal.Decimal
	hasTotal              bool
}

func (c cashFlows) net() decimal.Decimal { return c.deposits.Sub(c.withdrawals) }

// extractCashFlows reads the deposit/withdrawal ledger. Blank dates inherit the
// statement date.
func extractCashFlows(lines []string, l Layout, cls *Classifier, broker string, date time.Time) (cashFlows, error) {
	var cf cashFlows
	t, ok := parseLedger(lines, l.TotalRowMarkers)
	if !ok {
		return cf, &domain.MissingFieldError{Section: l.CashFlowMarker, Field: "delimiter"}
	}
	cols := l.CashFlowColumns
	dateCol := t.column(cols.Date, 0)
	typeCol := t.column(cols.Type, 1)
	depCol := t.column(cols.Deposit, 2)
	wdCol := t.column(cols.Withdrawal, 3)
	noteCol := t.column(cols.Comment, 4)

	for _, r := range t.rows {
		dep, err := amount.ParseOrZero(cell(r.cells, depCol))
		if err != nil {
			return cf, fmt.Errorf("cash flow row %d: deposit: %w", r.line, err)
		}
		wd, err := amount.ParseOrZero(cell(r.cells, wdCol))
		if err != nil {
			return cf, fmt.Errorf("cash flow row %d: withdrawal: %w", r.line, err)
		}
		eventDate := date
		if raw := cell(r.cells, dateCol); raw != "" {
			if eventDate, err = domain.ParseDate(raw); err != nil {
				return cf, fmt.Errorf("cash flow row %d: %w", r.line, err)
			}
		}
		comment, label := cell(r.cells, noteCol), cell(r.cells, typeCol)
		cf.events = append(cf.events, domain.CashFlowEvent{
			Date:       eventDate,
			Category:   cls.Classify(comment, label, broker),
			TypeLabel:  label,
			Deposit:    amount.Float(dep),
			Withdrawal: amount.Float(wd),
			Comment:    comment,
		})
		cf.deposits = cf.deposits.Add(dep)
		cf.withdrawals = cf.withdrawals.Add(wd)
	}

	if t.total != nil {
		dep, err := amount.ParseOrZero(cell(t.total, depCol))
		if err != nil {
			return cf, fmt.Errorf("cash flow total: deposit: %w", err)
		}
		wd, err := amount.ParseOrZero(cell(t.total, wdCol))
		if err != nil {
			return cf, fmt.Errorf("cash flow total: withdrawal: %w", err)
		}
		cf.reportedDeposits, cf.reportedWithdrawals, cf.hasTotal = dep, wd, true
	}
	return cf, nil
}
