package ingestion

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ctpnav/reconciler/internal/amount"
	"github.com/ctpnav/reconciler/internal/domain"
)

type summary struct {
	balanceBF, depositWithdrawal, realizedPL, mtmPL decimal.Decimal
	commission, deliveryFee, balanceCF              decimal.Decimal
	hasDeliveryFee                                  bool
}

func (s summary) flow() decimal.Decimal {
	return s.depositWithdrawal.Add(s.realizedPL).Add(s.mtmPL).Add(s.commission).Add(s.deliveryFee)
}

func extractSummary(lines []string, l Layout) (summary, error) {
	var s summary
	required := []struct {
		field  string
		labels []string
		dst    *decimal.Decimal
	}{
		{"balance_bf", l.BalanceBFLabels, &s.balanceBF},
		{"deposit_withdrawal", l.DepositWithdrawalLabels, &s.depositWithdrawal},
		{"realized_pl", l.RealizedPLLabels, &s.realizedPL},
		{"mtm_pl", l.MTMPLLabels, &s.mtmPL},
		{"commission", l.CommissionLabels, &s.commission},
		{"balance_cf", l.BalanceCFLabels, &s.balanceCF},
	}
	for _, f := range required {
		raw, ok := labeledAmount(lines, f.labels)
		if !ok {
			return s, &domain.MissingFieldError{Section: l.SummaryMarker, Field: f.field}
		}
		v, err := amount.Parse(raw)
		if err != nil {
			return s, fmt.Errorf("%s: %w", f.field, err)
		}
		*f.dst = v
	}
	if raw, ok := labeledAmount(lines, l.DeliveryFeeLabels); ok {
		v, err := amount.ParseOrZero(raw)
		if err != nil {
			return s, fmt.Errorf("delivery_fee: %w", err)
		}
		s.deliveryFee = v
		s.hasDeliveryFee = true
	}
	// Costs are reported as positive figures.
	s.commission = s.commission.Neg()
	s.deliveryFee = s.deliveryFee.Neg()
	return s, nil
}
