package ingestion

import (
	"errors"
	"strings"

	"github.com/ctpnav/reconciler/internal/domain"
)

// ClassificationRule tags a cash-flow line. All set conditions must hold.
type ClassificationRule struct {
	Name         string                  `yaml:"name"`
	Contains     string                  `yaml:"contains"`
	EmptyComment bool                    `yaml:"empty_comment"`
	Broker       string                  `yaml:"broker"`
	Category     domain.CashFlowCategory `yaml:"category"`
}

func (r ClassificationRule) validate() error {
	if r.Contains == "" && !r.EmptyComment {
		return errors.New("rule needs contains or empty_comment")
	}
	if _, err := domain.ParseCashFlowCategory(string(r.Category)); err != nil {
		return err
	}
	return nil
}

// Matches reports whether the rule applies to a ledger comment from broker.
func (r ClassificationRule) Matches(comment, broker string) bool {
	comment = strings.TrimSpace(comment)
	if r.EmptyComment && comment != "" {
		return false
	}
	if r.Contains != "" && !strings.Contains(comment, r.Contains) {
		return false
	}
	if r.Broker != "" && r.Broker != broker {
		return false
	}
	return true
}

// DefaultRules is the rule table accumulated across brokers' statement formats.
func DefaultRules() []ClassificationRule {
	return []ClassificationRule{
		{Name: "exchange-declaration-fee", Contains: "申报费", Category: domain.CategoryExchangeDeclarationFee},
		{Name: "fee-reduction", Contains: "手续费减收", Category: domain.CategoryFeeRebate},
		{Name: "interest", Contains: "利息", Category: domain.CategoryInterestRebate},
		{Name: "citic-blank-comment", EmptyComment: true, Broker: "中信期货", Category: domain.CategoryBankTransfer},
		{Name: "gtja-bank-branch", Contains: "银行", Broker: "国泰君安期货", Category: domain.CategoryBankTransfer},
		{Name: "yongan-fee-offset", Contains: "手续费冲抵", Broker: "永安期货", Category: domain.CategoryFeeRebate},
	}
}

// Classifier evaluates rules first-match-wins, then falls back to the raw
// type label of the row.
type Classifier struct {
	rules      []ClassificationRule
	typeLabels map[string]domain.CashFlowCategory
}

func NewClassifier(rules []ClassificationRule, typeLabels map[string]domain.CashFlowCategory) *Classifier {
	return &Classifier{rules: rules, typeLabels: typeLabels}
}

// Classify returns the category of a ledger line.
func (c *Classifier) Classify(comment, typeLabel, broker string) domain.CashFlowCategory {
	for _, r := range c.rules {
		if r.Matches(comment, broker) {
			return r.Category
		}
	}
	if cat, ok := c.typeLabels[strings.TrimSpace(typeLabel)]; ok {
		return cat
	}
	return domain.CategoryOther
}
