package accounting

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ctpnav/reconciler/internal/domain"
	"github.com/ctpnav/reconciler/internal/rebate"
)

const eps = domain.DefaultTolerance

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func near(a, b float64) bool { return math.Abs(a-b) <= 1e-9 }

// statement builds a consistent day whose only flow is a bank transfer.
func statement(t *testing.T, date string, bf, transfer, pl, cf float64) *domain.SettlementDay {
	t.Helper()
	d := &domain.SettlementDay{
		AccountID:         "X",
		Date:              mustDate(t, date),
		BalanceBF:         bf,
		DepositWithdrawal: transfer,
		RealizedPL:        pl,
		BalanceCF:         cf,
		BankTransfer:      transfer,
	}
	if transfer != 0 {
		e := domain.CashFlowEvent{Date: d.Date, Category: domain.CategoryBankTransfer, Deposit: math.Max(transfer, 0), Withdrawal: math.Max(-transfer, 0)}
		d.CashFlows = append(d.CashFlows, e)
	}
	return d
}

func TestAdvance(t *testing.T) {
	testCases := []struct {
		name    string
		prev    domain.Track
		balance float64
		flow    float64
		want    domain.Track
	}{
		{"no flow revalues", domain.Track{Units: 100, NAV: 1, Balance: 100}, 110, 0, domain.Track{Units: 100, NAV: 1.1, Balance: 110}},
		{"flow within tolerance", domain.Track{Units: 100, NAV: 1, Balance: 100}, 120, 0.0005, domain.Track{Units: 100, NAV: 1.2, Balance: 120}},
		{"no units keeps nav", domain.Track{Units: 0, NAV: 0.7, Balance: 0}, 0, 0, domain.Track{Units: 0, NAV: 0.7, Balance: 0}},
		{"inflow buys at previous nav", domain.Track{Units: 100, NAV: 2, Balance: 200}, 300, 100, domain.Track{Units: 150, NAV: 2, Balance: 300}},
		{"rebase after collapse", domain.Track{Units: 0, NAV: 0, Balance: 0}, 5000, 5000, domain.Track{Units: 5000, NAV: 1, Balance: 5000}},
		{"rebase after negative nav", domain.Track{Units: 10, NAV: -0.5, Balance: -5}, 995, 1000, domain.Track{Units: 1000, NAV: 1, Balance: 995}},
		{"full redemption wipes out", domain.Track{Units: 100, NAV: 1.5, Balance: 150}, 0, -150, domain.Track{Units: 0, NAV: 0, Balance: 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Advance(tc.prev, tc.balance, tc.flow, eps)
			if !near(got.Units, tc.want.Units) || !near(got.NAV, tc.want.NAV) || got.Balance != tc.want.Balance {
				t.Errorf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestEngineScenario(t *testing.T) {
	day1 := &domain.SettlementDay{
		AccountID: "X", Date: mustDate(t, "20190102"),
		BalanceBF: 100000, RealizedPL: 4000, MTMPL: 900, Commission: -100, BalanceCF: 105000,
	}
	day2 := statement(t, "20190103", 105000, 5000, 500, 110500)

	rows, err := NewEngine(rebate.Zero(), eps, nil).Run([]*domain.SettlementDay{day2, day1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	r1, r2 := rows[0], rows[1]
	if r1.Real.NAV != 1 || r1.Real.Units != 105000 || r1.Instant != r1.Real {
		t.Errorf("unexpected seed %+v / %+v", r1.Real, r1.Instant)
	}
	wantUnits := r1.Real.Units + 5000/r1.Real.NAV
	if !near(r2.Real.Units, wantUnits) || !near(r2.Real.NAV, 110500/wantUnits) {
		t.Errorf("expected units %v nav %v, got %+v", wantUnits, 110500/wantUnits, r2.Real)
	}
	if r2.RealPL != 500 {
		t.Errorf("expected real P&L 500, got %v", r2.RealPL)
	}
	if !near(r2.Instant.Units, r2.Real.Units) || !near(r2.Instant.Balance, 110500) {
		t.Errorf("expected instant track to follow real track without rebates, got %+v", r2.Instant)
	}
}

func TestEngineInstantTrack(t *testing.T) {
	day1 := statement(t, "20190102", 0, 1000, 0, 1000)
	day2 := statement(t, "20190103", 1000, 0, 0, 910)
	day2.Commission = -100
	day2.ExchangeCommission[domain.ExchangeSHFE] = -100
	day2.DepositWithdrawal = 10
	day2.FeeRebate = 10
	day2.CashFlows = append(day2.CashFlows, domain.CashFlowEvent{Category: domain.CategoryFeeRebate, Deposit: 10})

	var fractions domain.ExchangeAmounts
	fractions[domain.ExchangeSHFE] = 0.3
	sched := &rebate.Schedule{Entries: []rebate.Entry{{Start: day1.Date, End: day2.Date, Fractions: fractions}}}

	rows, err := NewEngine(sched, eps, nil).Run([]*domain.SettlementDay{day1, day2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	r := rows[1]
	// real P&L = 910 - 1000 - 0; instant = real - 10 rebate deposit + 100*0.3
	if r.RealPL != -90 || !near(r.InstantFeeRebate, 30) || !near(r.InstantPL, -70) {
		t.Errorf("unexpected P&L real=%v rebate=%v instant=%v", r.RealPL, r.InstantFeeRebate, r.InstantPL)
	}
	if !near(r.Instant.Balance, 930) || !near(r.Instant.NAV, 0.93) || !near(r.Real.NAV, 0.91) {
		t.Errorf("unexpected tracks real=%+v instant=%+v", r.Real, r.Instant)
	}
}

func TestEngineNoFlowInvariance(t *testing.T) {
	days := []*domain.SettlementDay{
		statement(t, "20190102", 0, 500, 0, 500),
		statement(t, "20190103", 500, 0, 20, 520),
		statement(t, "20190104", 520, 0, -70, 450),
		statement(t, "20190107", 450, 0, 5, 455),
	}
	rows, err := NewEngine(rebate.Zero(), eps, nil).Run(days)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, r := range rows {
		if r.Real.Units != 500 || r.Instant.Units != 500 {
			t.Errorf("%s: expected constant units, got %v / %v", r.DateLabel(), r.Real.Units, r.Instant.Units)
		}
	}
	if !near(rows[3].Real.NAV, 0.91) {
		t.Errorf("expected nav 0.91, got %v", rows[3].Real.NAV)
	}
}

func TestEngineRebase(t *testing.T) {
	days := []*domain.SettlementDay{
		statement(t, "20190102", 0, 1000, 0, 1000),
		statement(t, "20190103", 1000, -1000, 0, 0),
		statement(t, "20190104", 0, 500, 0, 500),
	}
	rows, err := NewEngine(rebate.Zero(), eps, nil).Run(days)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rows[1].Real.NAV != 0 {
		t.Fatalf("expected wipeout nav 0, got %+v", rows[1].Real)
	}
	for _, tr := range []domain.Track{rows[2].Real, rows[2].Instant} {
		if tr.NAV != 1 || tr.Units != 500 {
			t.Errorf("expected rebase to nav 1 and units 500, got %+v", tr)
		}
	}
}

func TestEngineScheduleCoverage(t *testing.T) {
	day1 := statement(t, "20190102", 0, 1000, 0, 1000)
	sched := &rebate.Schedule{Entries: []rebate.Entry{{Start: mustDate(t, "20200101"), End: mustDate(t, "20201231")}}}
	_, err := NewEngine(sched, eps, nil).Run([]*domain.SettlementDay{day1})
	var cov *domain.ScheduleCoverageError
	if !errors.As(err, &cov) {
		t.Fatalf("expected ScheduleCoverageError, got %v", err)
	}
}

func TestEngineNoStatements(t *testing.T) {
	if _, err := NewEngine(rebate.Zero(), eps, nil).Run(nil); !errors.Is(err, domain.ErrNoStatements) {
		t.Fatalf("expected ErrNoStatements, got %v", err)
	}
}
