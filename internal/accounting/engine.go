// Package accounting turns an account's statements into fund-style unit and
// NAV series on two tracks: real, following the broker's closing balance, and
// instant, following a rebate-adjusted synthetic balance.
package accounting

import (
	"fmt"
	"io"
	"log"
	"math"
	"sort"
	"time"

	"github.com/ctpnav/reconciler/internal/domain"
)

// Advance moves one track forward by a day. Cash flowing in buys units at the
// previous NAV; a track whose NAV has collapsed restarts at 1.0 on the next
// flow, and a track redeemed down to no units ends at NAV 0.
func Advance(prev domain.Track, balance, flow, eps float64) domain.Track {
	next := domain.Track{Balance: balance}
	switch {
	case math.Abs(flow) <= eps:
		next.Units = prev.Units
		if math.Abs(next.Units) <= eps {
			next.NAV = prev.NAV
		} else {
			next.NAV = balance / next.Units
		}
	case prev.NAV < eps:
		next.NAV = 1
		next.Units = flow
	default:
		next.Units = prev.Units + flow/prev.NAV
		if next.Units < eps {
			next.NAV = 0
		} else {
			next.NAV = balance / next.Units
		}
	}
	return next
}

// Seed is the state of both tracks on an account's first statement.
func Seed(balance float64) domain.Track {
	return domain.Track{Units: balance, NAV: 1, Balance: balance}
}

// RebateSource yields the per-exchange rebate fractions for a date.
type RebateSource interface {
	Resolve(date time.Time) (domain.ExchangeAmounts, error)
}

// Engine runs the dual-track recurrence over one account.
type Engine struct {
	rebates   RebateSource
	tolerance float64
	logger    *log.Logger
}

// NewEngine builds an engine; a nil logger discards log output.
func NewEngine(rebates RebateSource, tolerance float64, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{rebates: rebates, tolerance: tolerance, logger: logger}
}

// Run produces one row per statement, in date order. A date the rebate
// schedule does not cover fails the whole account.
func (e *Engine) Run(days []*domain.SettlementDay) ([]domain.Row, error) {
	if len(days) == 0 {
		return nil, domain.ErrNoStatements
	}
	sorted := make([]*domain.SettlementDay, len(days))
	copy(sorted, days)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	rows := make([]domain.Row, 0, len(sorted))
	var real, instant domain.Track
	for i, d := range sorted {
		fractions, err := e.rebates.Resolve(d.Date)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", d.AccountID, err)
		}
		row := statementRow(d)
		dw := d.BankTransfer
		row.RealPL = d.BalanceCF - d.BalanceBF - dw
		for _, ex := range domain.Exchanges {
			row.InstantFeeRebate += -d.ExchangeCommission[ex] * fractions[ex]
		}
		row.InstantPL = row.RealPL - d.FeeRebateDeposits() + row.InstantFeeRebate

		if i == 0 {
			real, instant = Seed(d.BalanceCF), Seed(d.BalanceCF)
		} else {
			if math.Abs(dw) > e.tolerance && (real.NAV < e.tolerance || instant.NAV < e.tolerance) {
				e.logger.Printf("[accounting] Account %s %s: flow %.2f restarts a collapsed track",
					d.AccountID, d.Date.Format(domain.DateLayout), dw)
			}
			real = Advance(real, d.BalanceCF, dw, e.tolerance)
			instant = Advance(instant, instant.Balance+row.InstantPL+dw, dw, e.tolerance)
		}
		row.Real, row.Instant = real, instant
		rows = append(rows, row)
	}
	return rows, nil
}

// Series runs the engine, fills calendar gaps and appends the total row.
func (e *Engine) Series(days []*domain.SettlementDay, calendar []time.Time) ([]domain.Row, error) {
	rows, err := e.Run(days)
	if err != nil {
		return nil, err
	}
	rows = GapFill(rows, calendar)
	return append(rows, TotalRow(rows)), nil
}

func statementRow(d *domain.SettlementDay) domain.Row {
	return domain.Row{
		AccountID:         d.AccountID,
		Date:              d.Date,
		BalanceBF:         d.BalanceBF,
		BankTransfer:      d.BankTransfer,
		FeeRebate:         d.FeeRebate,
		InterestRebate:    d.InterestRebate,
		DeclarationFee:    d.DeclarationFee,
		DepositWithdrawal: d.DepositWithdrawal,
		RealizedPL:        d.RealizedPL,
		MTMPL:             d.MTMPL,
		Commission:        d.Commission,
		Exchange:          d.ExchangeCommission,
		BalanceCF:         d.BalanceCF,
	}
}
