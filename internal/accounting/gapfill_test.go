package accounting

import (
	"testing"
	"time"

	"github.com/ctpnav/reconciler/internal/domain"
	"github.com/ctpnav/reconciler/internal/rebate"
)

func TestGapFill(t *testing.T) {
	days := []*domain.SettlementDay{
		statement(t, "20190103", 0, 1000, 0, 1000),
		statement(t, "20190107", 1000, 0, 100, 1100),
	}
	rows, err := NewEngine(rebate.Zero(), eps, nil).Run(days)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var cal []time.Time
	for _, s := range []string{"20190102", "20190103", "20190104", "20190107", "20190108"} {
		cal = append(cal, mustDate(t, s))
	}

	filled := GapFill(rows, cal)
	if len(filled) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(filled))
	}
	wantPlaceholder := []bool{true, false, true, false, true}
	for i, r := range filled {
		if r.Placeholder != wantPlaceholder[i] {
			t.Errorf("row %d (%s): expected placeholder=%v", i, r.DateLabel(), wantPlaceholder[i])
		}
		if !r.Date.Equal(cal[i]) {
			t.Errorf("row %d: expected date %s, got %s", i, cal[i].Format(domain.DateLayout), r.DateLabel())
		}
		if r.AccountID != "X" {
			t.Errorf("row %d: expected account X, got %q", i, r.AccountID)
		}
	}

	pre := filled[0]
	if pre.BalanceCF != 0 || pre.Real != (domain.Track{}) || pre.Instant != (domain.Track{}) {
		t.Errorf("expected zero-seeded pre-inception placeholder, got %+v", pre)
	}
	gap := filled[2]
	if gap.BalanceBF != 1000 || gap.BalanceCF != 1000 || gap.Real != filled[1].Real || gap.Instant != filled[1].Instant {
		t.Errorf("expected carried-forward placeholder, got %+v", gap)
	}
	if gap.RealPL != 0 || gap.BankTransfer != 0 || gap.Commission != 0 {
		t.Errorf("expected zero flows on placeholder, got %+v", gap)
	}
	if tail := filled[4]; tail.Real != filled[3].Real {
		t.Errorf("expected trailing placeholder to carry last state, got %+v", tail.Real)
	}
}

func TestGapFillKeepsOffCalendarRows(t *testing.T) {
	rows := []domain.Row{{AccountID: "X", Date: mustDate(t, "20190105")}}
	filled := GapFill(rows, []time.Time{mustDate(t, "20190104")})
	if len(filled) != 2 || !filled[0].Placeholder || filled[1].Placeholder {
		t.Fatalf("unexpected rows %+v", filled)
	}
}

func TestTotalRow(t *testing.T) {
	days := []*domain.SettlementDay{
		statement(t, "20190103", 0, 1000, 0, 1000),
		statement(t, "20190104", 1000, 500, 100, 1600),
	}
	days[1].Commission = -7
	days[1].ExchangeCommission[domain.ExchangeCZCE] = -7
	days[1].RealizedPL = 107

	series, err := NewEngine(rebate.Zero(), eps, nil).Series(days, []time.Time{mustDate(t, "20190102")})
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(series) != 4 {
		t.Fatalf("expected placeholder, 2 statements and total, got %d rows", len(series))
	}
	total := series[3]
	if !total.Total || total.DateLabel() != domain.TotalLabel {
		t.Fatalf("expected total row last, got %+v", total)
	}
	if total.BalanceBF != 0 || total.BalanceCF != 1600 {
		t.Errorf("unexpected balances bf=%v cf=%v", total.BalanceBF, total.BalanceCF)
	}
	if total.BankTransfer != 1500 || total.Commission != -7 || total.Exchange[domain.ExchangeCZCE] != -7 {
		t.Errorf("unexpected sums %+v", total)
	}
	last := series[2]
	if total.Real.Units != last.Real.Units || !near(total.Real.NAV, last.Real.Balance/last.Real.Units) {
		t.Errorf("expected NAV recomputed from last balance/units, got %+v", total.Real)
	}
}

func TestTotalRowZeroUnits(t *testing.T) {
	total := TotalRow([]domain.Row{{AccountID: "X", Placeholder: true}})
	if total.Real.NAV != 0 || total.Instant.NAV != 0 {
		t.Errorf("expected zero NAV without units, got %+v", total)
	}
}
