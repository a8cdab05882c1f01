package accounting

import (
	"math"
	"time"

	"github.com/ctpnav/reconciler/internal/domain"
)

// GapFill inserts a placeholder row for every calendar date without a
// statement row. Placeholders carry the previous row's balances and both
// tracks forward with zero flows; before the first statement there is nothing
// to carry, so they are zero. Rows whose dates are not in the calendar are
// kept. rows must be sorted by date.
func GapFill(rows []domain.Row, calendar []time.Time) []domain.Row {
	if len(rows) == 0 {
		return nil
	}
	account := rows[0].AccountID
	out := make([]domain.Row, 0, len(rows)+len(calendar))
	last := func() *domain.Row {
		if len(out) == 0 {
			return nil
		}
		return &out[len(out)-1]
	}
	i := 0
	for _, d := range calendar {
		for i < len(rows) && rows[i].Date.Before(d) {
			out = append(out, rows[i])
			i++
		}
		if i < len(rows) && rows[i].Date.Equal(d) {
			continue
		}
		out = append(out, placeholder(account, d, last()))
	}
	return append(out, rows[i:]...)
}

func placeholder(account string, d time.Time, prev *domain.Row) domain.Row {
	row := domain.Row{AccountID: account, Date: d, Placeholder: true}
	if prev == nil {
		return row
	}
	row.BalanceBF = prev.BalanceCF
	row.BalanceCF = prev.BalanceCF
	row.Real = prev.Real
	row.Instant = prev.Instant
	return row
}

// TotalRow aggregates an account's rows: flows are summed, the opening
// balance comes from the first statement, balances and units from the last
// row, and both NAVs are recomputed from them.
func TotalRow(rows []domain.Row) domain.Row {
	if len(rows) == 0 {
		return domain.Row{Total: true}
	}
	last := rows[len(rows)-1]
	total := domain.Row{
		AccountID: last.AccountID,
		Date:      last.Date,
		BalanceBF: rows[0].BalanceBF,
		BalanceCF: last.BalanceCF,
		Total:     true,
	}
	for _, r := range rows {
		if !r.Placeholder {
			total.BalanceBF = r.BalanceBF
			break
		}
	}
	for _, r := range rows {
		total.BankTransfer += r.BankTransfer
		total.FeeRebate += r.FeeRebate
		total.InterestRebate += r.InterestRebate
		total.DeclarationFee += r.DeclarationFee
		total.DepositWithdrawal += r.DepositWithdrawal
		total.RealizedPL += r.RealizedPL
		total.MTMPL += r.MTMPL
		total.Commission += r.Commission
		total.Exchange = total.Exchange.Add(r.Exchange)
		total.RealPL += r.RealPL
		total.InstantFeeRebate += r.InstantFeeRebate
		total.InstantPL += r.InstantPL
	}
	total.Real = closingTrack(last.Real)
	total.Instant = closingTrack(last.Instant)
	return total
}

func closingTrack(t domain.Track) domain.Track {
	out := domain.Track{Units: t.Units, Balance: t.Balance}
	if math.Abs(t.Units) > domain.DefaultTolerance {
		out.NAV = t.Balance / t.Units
	}
	return out
}
