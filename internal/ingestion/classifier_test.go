package ingestion

import (
	"testing"

	"github.com/ctpnav/reconciler/internal/domain"
)

func TestClassify(t *testing.T) {
	l := DefaultLayout()
	c := NewClassifier(l.Rules, l.TypeLabels)
	testCases := []struct {
		name    string
		comment string
		label   string
		broker  string
		want    domain.CashFlowCategory
	}{
		{"declaration fee", "中金所申报费", "其他", "中信期货", domain.CategoryExchangeDeclarationFee},
		{"fee reduction", "手续费减收", "其他", "", domain.CategoryFeeRebate},
		{"interest any broker", "利息返还", "银期转账", "永安期货", domain.CategoryInterestRebate},
		{"interest unknown broker", "结息 利息", "", "", domain.CategoryInterestRebate},
		{"citic empty comment", "", "其他", "中信期货", domain.CategoryBankTransfer},
		{"empty comment other broker", "", "其他", "永安期货", domain.CategoryOther},
		{"gtja bank branch", "工商银行", "其他", "国泰君安期货", domain.CategoryBankTransfer},
		{"bank branch wrong broker", "工商银行", "其他", "中信期货", domain.CategoryOther},
		{"yongan fee offset", "手续费冲抵", "其他", "永安期货", domain.CategoryFeeRebate},
		{"type label fallback", "转账", "银期转账", "永安期货", domain.CategoryBankTransfer},
		{"unknown", "杂项", "其他", "永安期货", domain.CategoryOther},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify(tc.comment, tc.label, tc.broker); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestInstrumentPrefix(t *testing.T) {
	table, err := newPrefixTable(nil)
	if err != nil {
		t.Fatal(err)
	}
	testCases := []struct {
		instrument string
		prefix     string
		exchange   domain.Exchange
		ok         bool
	}{
		{"cu1903", "CU", domain.ExchangeSHFE, true},
		{"IF1901", "IF", domain.ExchangeCFFEX, true},
		{"T1903", "T", domain.ExchangeCFFEX, true},
		{"TA905", "TA", domain.ExchangeCZCE, true},
		{"sc1906", "SC", domain.ExchangeINE, true},
		{"jm1905", "JM", domain.ExchangeDCEIndustrial, true},
		{"m1905", "M", domain.ExchangeDCEAgricultural, true},
		{"xx1", "XX", 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.instrument, func(t *testing.T) {
			ex, prefix, ok := table.lookup(tc.instrument)
			if prefix != tc.prefix || ok != tc.ok || (ok && ex != tc.exchange) {
				t.Errorf("expected %s/%v/%v, got %s/%v/%v", tc.prefix, tc.exchange, tc.ok, prefix, ex, ok)
			}
		})
	}
}
