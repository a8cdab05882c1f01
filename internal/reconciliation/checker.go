package reconciliation

import (
	"fmt"
	"io"
	"log"
	"math"
	"sort"
	"time"

	"github.com/ctpnav/reconciler/internal/amount"
	"github.com/ctpnav/reconciler/internal/domain"
)

// CheckTypes are the discrepancy types produced by the Checker.
var CheckTypes = []domain.DiscrepancyType{
	domain.DiscrepancyBalanceIdentity,
	domain.DiscrepancyContinuity,
	domain.DiscrepancyBankTransfer,
	domain.DiscrepancyFlowComposition,
}

// Checker verifies the per-day and cross-day invariants of one account's
// statements. Findings are advisory and never stop processing.
type Checker struct {
	tolerance float64
	logger    *log.Logger
	now       func() time.Time
}

// NewChecker builds a checker; a nil logger discards log output.
func NewChecker(tolerance float64, logger *log.Logger) *Checker {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Checker{tolerance: tolerance, logger: logger, now: time.Now}
}

// CheckAccount runs every check over one account's statements.
func (c *Checker) CheckAccount(days []*domain.SettlementDay) []domain.Discrepancy {
	sorted := make([]*domain.SettlementDay, len(days))
	copy(sorted, days)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var discs []domain.Discrepancy
	discs = append(discs, c.DetectIdentityBreaks(sorted)...)
	discs = append(discs, c.DetectContinuityBreaks(sorted)...)
	discs = append(discs, c.DetectBankTransferMismatches(sorted)...)
	discs = append(discs, c.DetectCompositionMismatches(sorted)...)

	for _, d := range discs {
		c.logger.Printf("[reconciliation] WARNING: %s %s %s: %s (expected=%.2f actual=%.2f)",
			d.Type, d.AccountID, d.Date.Format(domain.DateLayout), d.Description, d.Expected, d.Actual)
	}
	if len(sorted) > 0 {
		c.logger.Printf("[reconciliation] Account %s: %d statements, %d discrepancies",
			sorted[0].AccountID, len(sorted), len(discs))
	}
	return discs
}

// DetectIdentityBreaks re-verifies balance_bf + flows = balance_cf per day.
func (c *Checker) DetectIdentityBreaks(days []*domain.SettlementDay) []domain.Discrepancy {
	var discs []domain.Discrepancy
	for _, d := range days {
		actual := d.BalanceBF + d.TotalFlow()
		if c.within(actual, d.BalanceCF) {
			continue
		}
		discs = append(discs, c.discrepancy(domain.DiscrepancyBalanceIdentity, d, "", d.BalanceCF, actual,
			fmt.Sprintf("opening %.2f plus flows %.2f does not reach closing %.2f", d.BalanceBF, d.TotalFlow(), d.BalanceCF)))
	}
	return discs
}

// DetectContinuityBreaks compares each closing balance with the next
// statement's opening balance. Days without a statement carry no balance
// change, so adjacency is by statement, not by calendar.
func (c *Checker) DetectContinuityBreaks(days []*domain.SettlementDay) []domain.Discrepancy {
	var discs []domain.Discrepancy
	for i := 1; i < len(days); i++ {
		prev, cur := days[i-1], days[i]
		if c.within(cur.BalanceBF, prev.BalanceCF) {
			continue
		}
		discs = append(discs, c.discrepancy(domain.DiscrepancyContinuity, cur, prev.Date.Format(domain.DateLayout),
			prev.BalanceCF, cur.BalanceBF,
			fmt.Sprintf("opening balance differs from closing balance of %s", prev.Date.Format(domain.DateLayout))))
	}
	return discs
}

// DetectBankTransferMismatches recomputes the bank-transfer net from the
// cash-flow events and compares it with the stored field.
func (c *Checker) DetectBankTransferMismatches(days []*domain.SettlementDay) []domain.Discrepancy {
	var discs []domain.Discrepancy
	for _, d := range days {
		recomputed := d.NetByCategory(domain.CategoryBankTransfer)
		if c.within(recomputed, d.BankTransfer) {
			continue
		}
		discs = append(discs, c.discrepancy(domain.DiscrepancyBankTransfer, d, "", d.BankTransfer, recomputed,
			"bank transfer events do not add up to the bank transfer net"))
	}
	return discs
}

// DetectCompositionMismatches checks that the per-category nets add up to the
// reported total deposit/withdrawal.
func (c *Checker) DetectCompositionMismatches(days []*domain.SettlementDay) []domain.Discrepancy {
	var discs []domain.Discrepancy
	for _, d := range days {
		sum := d.BankTransfer + d.FeeRebate + d.InterestRebate + d.DeclarationFee + d.OtherFlow
		if c.within(sum, d.DepositWithdrawal) {
			continue
		}
		discs = append(discs, c.discrepancy(domain.DiscrepancyFlowComposition, d, "", d.DepositWithdrawal, sum,
			"categorized cash flows do not add up to deposit/withdrawal"))
	}
	return discs
}

func (c *Checker) within(a, b float64) bool {
	return amount.Within(a, b, c.tolerance)
}

func (c *Checker) discrepancy(t domain.DiscrepancyType, d *domain.SettlementDay, extra string, expected, actual float64, desc string) domain.Discrepancy {
	diff := actual - expected
	return domain.Discrepancy{
		ID:          domain.DiscrepancyID(t, d.AccountID, d.Date, extra),
		Type:        t,
		AccountID:   d.AccountID,
		Date:        d.Date,
		File:        d.SourceFile,
		Expected:    expected,
		Actual:      actual,
		Difference:  diff,
		Severity:    domain.SeverityByDifference(math.Abs(diff)),
		Description: desc,
		DetectedAt:  c.now(),
	}
}
