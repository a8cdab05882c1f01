package domain

import "time"

// Track is one accounting track's state at the end of a day.
type Track struct {
	Units   float64 `json:"units"`
	NAV     float64 `json:"nav"`
	Balance float64 `json:"balance"`
}

// Row is one output line: the day's statement figures joined with both
// accounting tracks. Placeholder rows are synthesized for trading days
// without a statement; the Total row closes an account's series.
type Row struct {
	AccountID string    `json:"account_id"`
	Date      time.Time `json:"date"`

	BalanceBF         float64         `json:"balance_bf"`
	BankTransfer      float64         `json:"bank_transfer"`
	FeeRebate         float64         `json:"fee_rebate"`
	InterestRebate    float64         `json:"interest_rebate"`
	DeclarationFee    float64         `json:"declaration_fee"`
	DepositWithdrawal float64         `json:"deposit_withdrawal"`
	RealizedPL        float64         `json:"realized_pl"`
	MTMPL             float64         `json:"mtm_pl"`
	Commission        float64         `json:"commission"`
	Exchange          ExchangeAmounts `json:"exchange_commission"`
	BalanceCF         float64         `json:"balance_cf"`

	RealPL float64 `json:"real_pl"`
	Real   Track   `json:"real"`

	InstantFeeRebate float64 `json:"instant_fee_rebate"`
	InstantPL        float64 `json:"instant_pl"`
	Instant          Track   `json:"instant"`

	Placeholder bool `json:"placeholder,omitempty"`
	Total       bool `json:"total,omitempty"`
}

// Columns is the stable column order of the tabular output contract.
var Columns = []string{
	"账户", "日期", "期初结存", "银期出入金", "手续费返还", "利息返还", "中金所申报费", "出入金合计",
	"平仓盈亏", "盯市盈亏", "手续费",
	"中金所手续费", "上期原油手续费", "上期所手续费", "郑商所手续费", "大商所工业品手续费", "大商所农产品手续费",
	"期末结存", "实际盈亏", "实际份额", "实际净值",
	"即时手续费返还", "即时期末结存", "即时盈亏", "即时份额", "即时净值",
}

// TotalLabel marks the aggregate row in the date column.
const TotalLabel = "合计"

// Values returns the row's numeric cells in Columns order, excluding the account and date columns.
func (r Row) Values() []float64 {
	v := []float64{
		r.BalanceBF, r.BankTransfer, r.FeeRebate, r.InterestRebate, r.DeclarationFee, r.DepositWithdrawal,
		r.RealizedPL, r.MTMPL, r.Commission,
	}
	for _, x := range r.Exchange {
		v = append(v, x)
	}
	return append(v,
		r.BalanceCF, r.RealPL, r.Real.Units, r.Real.NAV,
		r.InstantFeeRebate, r.Instant.Balance, r.InstantPL, r.Instant.Units, r.Instant.NAV,
	)
}

// DateLabel renders the date column.
func (r Row) DateLabel() string {
	if r.Total {
		return TotalLabel
	}
	return r.Date.Format(DateLayout)
}
