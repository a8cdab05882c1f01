package domain

import "time"

type DiscrepancyType string

const (
	DiscrepancyBalanceIdentity    DiscrepancyType = "BALANCE_IDENTITY"
	DiscrepancyCashFlowTotal      DiscrepancyType = "CASHFLOW_TOTAL"
	DiscrepancyCashFlowSummary    DiscrepancyType = "CASHFLOW_SUMMARY"
	DiscrepancyContinuity         DiscrepancyType = "CONTINUITY"
	DiscrepancyBankTransfer       DiscrepancyType = "BANK_TRANSFER"
	DiscrepancyFlowComposition    DiscrepancyType = "FLOW_COMPOSITION"
	DiscrepancyDuplicateStatement DiscrepancyType = "DUPLICATE_STATEMENT"
	DiscrepancyUnmappedInstrument DiscrepancyType = "UNMAPPED_INSTRUMENT"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Discrepancy is a non-fatal finding surfaced for operator review.
type Discrepancy struct {
	ID          string          `json:"id"`
	Type        DiscrepancyType `json:"type"`
	AccountID   string          `json:"account_id,omitempty"`
	Date        time.Time       `json:"date"`
	File        string          `json:"file,omitempty"`
	Expected    float64         `json:"expected"`
	Actual      float64         `json:"actual"`
	Difference  float64         `json:"difference"`
	Severity    Severity        `json:"severity"`
	Description string          `json:"description"`
	DetectedAt  time.Time       `json:"detected_at"`
}

var discrepancyCodes = map[DiscrepancyType]string{
	DiscrepancyBalanceIdentity:    "BI",
	DiscrepancyCashFlowTotal:      "CT",
	DiscrepancyCashFlowSummary:    "CS",
	DiscrepancyContinuity:         "CN",
	DiscrepancyBankTransfer:       "BT",
	DiscrepancyFlowComposition:    "FC",
	DiscrepancyDuplicateStatement: "DS",
	DiscrepancyUnmappedInstrument: "UI",
}

// DiscrepancyID builds a deterministic ID so that re-running a check over the
// same statements yields the same records.
func DiscrepancyID(t DiscrepancyType, accountID string, date time.Time, extra string) string {
	code, ok := discrepancyCodes[t]
	if !ok {
		code = string(t)
	}
	id := "DISC-" + code + "-" + accountID + "-" + date.Format(DateLayout)
	if extra != "" {
		id += "-" + extra
	}
	return id
}

// SeverityByDifference grades a reconciliation gap by its absolute size.
func SeverityByDifference(absDiff float64) Severity {
	switch {
	case absDiff > 10000:
		return SeverityCritical
	case absDiff > 100:
		return SeverityHigh
	case absDiff > 1:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// UniqueDiscrepancies drops repeated IDs, keeping the first occurrence. The
// parser and the checker both test the balance identity and report it under
// the same ID.
func UniqueDiscrepancies(discs []Discrepancy) []Discrepancy {
	seen := make(map[string]bool, len(discs))
	out := discs[:0:0]
	for _, d := range discs {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}
