package ingestion

import (
	"errors"
	"fmt"

	"github.com/ctpnav/reconciler/internal/domain"
)

// Layout describes where fields live on a statement. Every lookup is by label
// substring, so one layout covers the layout drift between clearing-system
// versions and brokers; each field lists its aliases in priority order.
type Layout struct {
	SummaryMarker  string   `yaml:"summary_marker"`
	TradesMarker   string   `yaml:"trades_marker"`
	CashFlowMarker string   `yaml:"cash_flow_marker"`
	OtherMarkers   []string `yaml:"other_markers"`

	ClientIDLabels   []string `yaml:"client_id_labels"`
	ClientNameLabels []string `yaml:"client_name_labels"`
	DateLabels       []string `yaml:"date_labels"`
	Brokers          []string `yaml:"brokers"`

	BalanceBFLabels         []string `yaml:"balance_bf_labels"`
	DepositWithdrawalLabels []string `yaml:"deposit_withdrawal_labels"`
	RealizedPLLabels        []string `yaml:"realized_pl_labels"`
	MTMPLLabels             []string `yaml:"mtm_pl_labels"`
	CommissionLabels        []string `yaml:"commission_labels"`
	DeliveryFeeLabels       []string `yaml:"delivery_fee_labels"`
	BalanceCFLabels         []string `yaml:"balance_cf_labels"`

	CashFlowColumns CashFlowColumns `yaml:"cash_flow_columns"`
	TradeColumns    TradeColumns    `yaml:"trade_columns"`
	TotalRowMarkers []string        `yaml:"total_row_markers"`

	TypeLabels         map[string]domain.CashFlowCategory `yaml:"type_labels"`
	Rules              []ClassificationRule               `yaml:"rules"`
	InstrumentPrefixes map[string]string                  `yaml:"instrument_prefixes"`

	Tolerance float64 `yaml:"tolerance"`
}

// CashFlowColumns names the header cells of the deposit/withdrawal ledger.
type CashFlowColumns struct {
	Date       []string `yaml:"date"`
	Type       []string `yaml:"type"`
	Deposit    []string `yaml:"deposit"`
	Withdrawal []string `yaml:"withdrawal"`
	Comment    []string `yaml:"comment"`
}

// TradeColumns names the header cells of the transaction ledger.
type TradeColumns struct {
	Instrument []string `yaml:"instrument"`
	Fee        []string `yaml:"fee"`
}

// DefaultLayout matches CTP statements (交易结算单) with bilingual labels.
func DefaultLayout() Layout {
	return Layout{
		SummaryMarker:  "资金状况",
		TradesMarker:   "成交记录",
		CashFlowMarker: "出入金明细",
		OtherMarkers:   []string{"平仓明细", "持仓明细", "持仓汇总"},

		ClientIDLabels:   []string{"客户号 Client ID", "Client ID", "客户号", "资金账号"},
		ClientNameLabels: []string{"客户名称 Client Name", "Client Name", "客户名称"},
		DateLabels:       []string{"日期 Date", "结算日期", "交易日期"},
		Brokers:          []string{"中信期货", "国泰君安期货", "永安期货"},

		BalanceBFLabels:         []string{"Balance B/F", "期初结存", "上日结存"},
		DepositWithdrawalLabels: []string{"Deposit/Withdrawal", "出 入 金", "出入金"},
		RealizedPLLabels:        []string{"Realized P/L", "平仓盈亏"},
		MTMPLLabels:             []string{"MTM P/L", "持仓盯市盈亏", "盯市盈亏"},
		CommissionLabels:        []string{"Commission", "手 续 费"},
		DeliveryFeeLabels:       []string{"Delivery Fee", "交割手续费"},
		BalanceCFLabels:         []string{"Balance C/F", "期末结存", "当日结存"},

		CashFlowColumns: CashFlowColumns{
			Date:       []string{"发生日期", "Date"},
			Type:       []string{"出入金类型", "Type"},
			Deposit:    []string{"入金", "Deposit"},
			Withdrawal: []string{"出金", "Withdrawal"},
			Comment:    []string{"说明", "Note", "Remark"},
		},
		TradeColumns: TradeColumns{
			Instrument: []string{"合约", "Instrument"},
			Fee:        []string{"手续费", "Fee"},
		},
		TotalRowMarkers: []string{"共", "合计", "Total"},

		TypeLabels: map[string]domain.CashFlowCategory{
			"银期转账": domain.CategoryBankTransfer,
		},
		Rules:     DefaultRules(),
		Tolerance: domain.DefaultTolerance,
	}
}

// Markers returns the ordered section markers used by the segmenter.
func (l Layout) Markers() []string {
	markers := []string{l.SummaryMarker, l.TradesMarker, l.CashFlowMarker}
	return append(markers, l.OtherMarkers...)
}

// Validate checks that every required label list is populated.
func (l Layout) Validate() error {
	var errs []error
	required := map[string][]string{
		"client_id_labels":          l.ClientIDLabels,
		"date_labels":               l.DateLabels,
		"balance_bf_labels":         l.BalanceBFLabels,
		"deposit_withdrawal_labels": l.DepositWithdrawalLabels,
		"realized_pl_labels":        l.RealizedPLLabels,
		"mtm_pl_labels":             l.MTMPLLabels,
		"commission_labels":         l.CommissionLabels,
		"balance_cf_labels":         l.BalanceCFLabels,
	}
	for name, labels := range required {
		if len(labels) == 0 {
			errs = append(errs, fmt.Errorf("layout: %s is empty", name))
		}
	}
	if l.SummaryMarker == "" || l.TradesMarker == "" || l.CashFlowMarker == "" {
		errs = append(errs, errors.New("layout: section markers are required"))
	}
	if l.Tolerance < 0 {
		errs = append(errs, errors.New("layout: tolerance must not be negative"))
	}
	for i, r := range l.Rules {
		if err := r.validate(); err != nil {
			errs = append(errs, fmt.Errorf("layout: rule %d: %w", i, err))
		}
	}
	for prefix, name := range l.InstrumentPrefixes {
		if _, err := domain.ParseExchange(name); err != nil {
			errs = append(errs, fmt.Errorf("layout: instrument prefix %s: %w", prefix, err))
		}
	}
	return errors.Join(errs...)
}
