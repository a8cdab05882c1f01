// Package report builds the tabular outputs of a run: per-account and
// consolidated workbooks, a PDF NAV summary and a markdown run summary.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/ctpnav/reconciler/internal/accounting"
	"github.com/ctpnav/reconciler/internal/domain"
)

// ConsolidatedAccount is the account label of consolidated rows.
const ConsolidatedAccount = "ALL"

// Consolidate sums account series date by date. Every additive, balance and
// unit column is summed, an account without a row on a date contributes zero,
// and both NAVs are recomputed from the summed balance and units. Total rows
// in the input are ignored; a fresh total row closes the output.
func Consolidate(series map[string][]domain.Row) []domain.Row {
	byDate := map[time.Time]*domain.Row{}
	for _, rows := range series {
		for _, r := range rows {
			if r.Total {
				continue
			}
			c, ok := byDate[r.Date]
			if !ok {
				c = &domain.Row{AccountID: ConsolidatedAccount, Date: r.Date, Placeholder: true}
				byDate[r.Date] = c
			}
			addRow(c, r)
		}
	}

	out := make([]domain.Row, 0, len(byDate)+1)
	for _, c := range byDate {
		c.Real.NAV = navOf(c.Real)
		c.Instant.NAV = navOf(c.Instant)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if len(out) == 0 {
		return nil
	}
	return append(out, accounting.TotalRow(out))
}

func addRow(c *domain.Row, r domain.Row) {
	c.BalanceBF += r.BalanceBF
	c.BankTransfer += r.BankTransfer
	c.FeeRebate += r.FeeRebate
	c.InterestRebate += r.InterestRebate
	c.DeclarationFee += r.DeclarationFee
	c.DepositWithdrawal += r.DepositWithdrawal
	c.RealizedPL += r.RealizedPL
	c.MTMPL += r.MTMPL
	c.Commission += r.Commission
	c.Exchange = c.Exchange.Add(r.Exchange)
	c.BalanceCF += r.BalanceCF
	c.RealPL += r.RealPL
	c.InstantFeeRebate += r.InstantFeeRebate
	c.InstantPL += r.InstantPL
	c.Real.Units += r.Real.Units
	c.Real.Balance += r.Real.Balance
	c.Instant.Units += r.Instant.Units
	c.Instant.Balance += r.Instant.Balance
	// A consolidated date is a placeholder only if every account's row is.
	c.Placeholder = c.Placeholder && r.Placeholder
}

func navOf(t domain.Track) float64 {
	if math.Abs(t.Units) <= domain.DefaultTolerance {
		return 0
	}
	return t.Balance / t.Units
}

// BankTransfers returns the BankTransfer events of days in date order.
func BankTransfers(days []*domain.SettlementDay) []domain.CashFlowEvent {
	var out []domain.CashFlowEvent
	for _, d := range days {
		for _, e := range d.CashFlows {
			if e.Category == domain.CategoryBankTransfer {
				out = append(out, e)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ConsolidateTransfers sums deposits and withdrawals per date.
func ConsolidateTransfers(events map[string][]domain.CashFlowEvent) []domain.CashFlowEvent {
	byDate := map[time.Time]*domain.CashFlowEvent{}
	for _, list := range events {
		for _, e := range list {
			c, ok := byDate[e.Date]
			if !ok {
				c = &domain.CashFlowEvent{Date: e.Date, Category: domain.CategoryBankTransfer}
				byDate[e.Date] = c
			}
			c.Deposit += e.Deposit
			c.Withdrawal += e.Withdrawal
		}
	}
	out := make([]domain.CashFlowEvent, 0, len(byDate))
	for _, c := range byDate {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
