package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the compact date format used by CTP statements.
const DateLayout = "20060102"

// DefaultTolerance is the currency-unit tolerance used by every reconciliation check.
const DefaultTolerance = 0.001

// Exchange is one of the fixed commission categories.
type Exchange int

const (
	ExchangeCFFEX Exchange = iota
	ExchangeINE
	ExchangeSHFE
	ExchangeCZCE
	ExchangeDCEIndustrial
	ExchangeDCEAgricultural

	exchangeCount
)

// Exchanges lists every exchange category in column order.
var Exchanges = [exchangeCount]Exchange{
	ExchangeCFFEX, ExchangeINE, ExchangeSHFE, ExchangeCZCE, ExchangeDCEIndustrial, ExchangeDCEAgricultural,
}

var exchangeNames = [exchangeCount]string{"CFFEX", "INE", "SHFE", "CZCE", "DCE-IND", "DCE-AGR"}

func (e Exchange) String() string {
	if e < 0 || e >= exchangeCount {
		return fmt.Sprintf("Exchange(%d)", int(e))
	}
	return exchangeNames[e]
}

// ParseExchange accepts both the dashed and underscored spellings (DCE-IND, DCE_IND).
func ParseExchange(s string) (Exchange, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", "-"))
	for i, name := range exchangeNames {
		if name == norm {
			return Exchange(i), nil
		}
	}
	return 0, fmt.Errorf("unknown exchange category %q", s)
}

// ExchangeAmounts holds one value per exchange category.
type ExchangeAmounts [exchangeCount]float64

// Sum returns the total over all categories.
func (a ExchangeAmounts) Sum() float64 {
	var total float64
	for _, v := range a {
		total += v
	}
	return total
}

// Add returns the element-wise sum.
func (a ExchangeAmounts) Add(b ExchangeAmounts) ExchangeAmounts {
	for i := range a {
		a[i] += b[i]
	}
	return a
}

// CashFlowCategory is the semantic category of a cash-flow ledger line.
type CashFlowCategory string

const (
	CategoryBankTransfer           CashFlowCategory = "BankTransfer"
	CategoryFeeRebate              CashFlowCategory = "FeeRebate"
	CategoryInterestRebate         CashFlowCategory = "InterestRebate"
	CategoryExchangeDeclarationFee CashFlowCategory = "ExchangeDeclarationFee"
	CategoryOther                  CashFlowCategory = "Other"
)

// ParseCashFlowCategory maps a configured category name to its constant.
func ParseCashFlowCategory(s string) (CashFlowCategory, error) {
	switch c := CashFlowCategory(strings.TrimSpace(s)); c {
	case CategoryBankTransfer, CategoryFeeRebate, CategoryInterestRebate,
		CategoryExchangeDeclarationFee, CategoryOther:
		return c, nil
	}
	return "", fmt.Errorf("unknown cash flow category %q", s)
}

// CashFlowEvent is one row of a statement's deposit/withdrawal ledger.
type CashFlowEvent struct {
	Date       time.Time        `json:"date"`
	Category   CashFlowCategory `json:"category"`
	TypeLabel  string           `json:"type_label"`
	Deposit    float64          `json:"deposit"`
	Withdrawal float64          `json:"withdrawal"`
	Comment    string           `json:"comment,omitempty"`
}

// Net is deposit minus withdrawal.
func (e CashFlowEvent) Net() float64 { return e.Deposit - e.Withdrawal }

// SettlementDay is one account's statement for one trading date. Costs
// (Commission, DeliveryFee, ExchangeCommission) are stored negated so that
// every field is a signed flow into the account.
type SettlementDay struct {
	AccountID   string    `json:"account_id"`
	AccountName string    `json:"account_name"`
	Broker      string    `json:"broker,omitempty"`
	Date        time.Time `json:"date"`

	BalanceBF         float64 `json:"balance_bf"`
	BalanceCF         float64 `json:"balance_cf"`
	DepositWithdrawal float64 `json:"deposit_withdrawal"`
	RealizedPL        float64 `json:"realized_pl"`
	MTMPL             float64 `json:"mtm_pl"`
	Commission        float64 `json:"commission"`
	DeliveryFee       float64 `json:"delivery_fee"`
	HasDeliveryFee    bool    `json:"has_delivery_fee"`

	ExchangeCommission ExchangeAmounts `json:"exchange_commission"`

	BankTransfer   float64 `json:"bank_transfer"`
	FeeRebate      float64 `json:"fee_rebate"`
	InterestRebate float64 `json:"interest_rebate"`
	DeclarationFee float64 `json:"declaration_fee"`
	OtherFlow      float64 `json:"other_flow"`

	CashFlows  []CashFlowEvent `json:"cash_flows"`
	SourceFile string          `json:"source_file,omitempty"`
}

// TotalFlow is the sum of every flow that moves the opening balance to the closing one.
func (d *SettlementDay) TotalFlow() float64 {
	return d.DepositWithdrawal + d.RealizedPL + d.MTMPL + d.Commission + d.DeliveryFee
}

// IdentityGap is BalanceBF + TotalFlow - BalanceCF; zero for a consistent statement.
func (d *SettlementDay) IdentityGap() float64 {
	return d.BalanceBF + d.TotalFlow() - d.BalanceCF
}

// FeeRebateDeposits sums deposits of FeeRebate events.
func (d *SettlementDay) FeeRebateDeposits() float64 {
	var total float64
	for _, e := range d.CashFlows {
		if e.Category == CategoryFeeRebate {
			total += e.Deposit
		}
	}
	return total
}

// NetByCategory returns the net cash flow of the given category.
func (d *SettlementDay) NetByCategory(c CashFlowCategory) float64 {
	var total float64
	for _, e := range d.CashFlows {
		if e.Category == c {
			total += e.Net()
		}
	}
	return total
}

// Key identifies a statement by account and date.
func (d *SettlementDay) Key() StatementKey {
	return StatementKey{AccountID: d.AccountID, Date: d.Date.Format(DateLayout)}
}

// StatementKey is the (account, date) uniqueness key for statements.
type StatementKey struct {
	AccountID string
	Date      string
}

// ParseDate accepts YYYYMMDD and YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
		}
	}
	return t, nil
}
