package ingestion

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ctpnav/reconciler/internal/amount"
	"github.com/ctpnav/reconciler/internal/domain"
)

// Parser turns one settlement statement into a SettlementDay.
type Parser struct {
	layout     Layout
	classifier *Classifier
	prefixes   prefixTable
	now        func() time.Time
}

// NewParser validates layout and builds a parser around it.
func NewParser(layout Layout) (*Parser, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	prefixes, err := newPrefixTable(layout.InstrumentPrefixes)
	if err != nil {
		return nil, err
	}
	return &Parser{
		layout:     layout,
		classifier: NewClassifier(layout.Rules, layout.TypeLabels),
		prefixes:   prefixes,
		now:        time.Now,
	}, nil
}

var defaultParser, _ = NewParser(DefaultLayout())

// ParseStatement parses data with the default layout.
func ParseStatement(data []byte, name string) (*domain.SettlementDay, []domain.Discrepancy, error) {
	return defaultParser.Parse(data, name)
}

// Parse returns the statement record and any non-fatal discrepancies found
// while assembling it. A statement missing a required section or label fails
// with a *domain.StructuralParseError.
func (p *Parser) Parse(data []byte, name string) (*domain.SettlementDay, []domain.Discrepancy, error) {
	day, discs, err := p.parse(data, name)
	if err != nil {
		return nil, nil, &domain.StructuralParseError{File: name, Err: err}
	}
	return day, discs, nil
}

func (p *Parser) parse(data []byte, name string) (*domain.SettlementDay, []domain.Discrepancy, error) {
	l := p.layout
	blocks := Segment(splitLines(data), l.Markers())

	head, _ := blocks.Find(HeaderMarker)
	h, err := extractHeader(head.Lines, l)
	if err != nil {
		return nil, nil, err
	}

	sumBlock, ok := blocks.Find(l.SummaryMarker)
	if !ok {
		return nil, nil, &domain.MissingFieldError{Section: l.SummaryMarker, Field: "section"}
	}
	s, err := extractSummary(sumBlock.Lines, l)
	if err != nil {
		return nil, nil, err
	}

	var cf cashFlows
	if b, ok := blocks.Find(l.CashFlowMarker); ok {
		if cf, err = extractCashFlows(b.Lines, l, p.classifier, h.broker, h.date); err != nil {
			return nil, nil, err
		}
	}

	tr := trades{}
	if b, ok := blocks.Find(l.TradesMarker); ok {
		if tr, err = extractTrades(b.Lines, l, p.prefixes); err != nil {
			return nil, nil, err
		}
	}

	day := &domain.SettlementDay{
		AccountID:         h.accountID,
		AccountName:       h.accountName,
		Broker:            h.broker,
		Date:              h.date,
		BalanceBF:         amount.Float(s.balanceBF),
		BalanceCF:         amount.Float(s.balanceCF),
		DepositWithdrawal: amount.Float(s.depositWithdrawal),
		RealizedPL:        amount.Float(s.realizedPL),
		MTMPL:             amount.Float(s.mtmPL),
		Commission:        amount.Float(s.commission),
		DeliveryFee:       amount.Float(s.deliveryFee),
		HasDeliveryFee:    s.hasDeliveryFee,
		CashFlows:         cf.events,
		SourceFile:        name,
	}
	for _, ex := range domain.Exchanges {
		day.ExchangeCommission[ex] = amount.Float(tr.byExchange[ex].Neg())
	}
	day.BankTransfer = day.NetByCategory(domain.CategoryBankTransfer)
	day.FeeRebate = day.NetByCategory(domain.CategoryFeeRebate)
	day.InterestRebate = day.NetByCategory(domain.CategoryInterestRebate)
	day.DeclarationFee = day.NetByCategory(domain.CategoryExchangeDeclarationFee)
	day.OtherFlow = day.NetByCategory(domain.CategoryOther)

	return day, p.check(day, s, cf, tr), nil
}

// check runs the single-statement cross-checks.
func (p *Parser) check(day *domain.SettlementDay, s summary, cf cashFlows, tr trades) []domain.Discrepancy {
	var out []domain.Discrepancy
	eps := decimal.NewFromFloat(p.layout.Tolerance)
	flag := func(t domain.DiscrepancyType, extra string, expected, actual decimal.Decimal, desc string) {
		diff := actual.Sub(expected)
		if t != domain.DiscrepancyUnmappedInstrument && diff.Abs().LessThanOrEqual(eps) {
			return
		}
		sev := domain.SeverityByDifference(amount.Float(diff.Abs()))
		if t == domain.DiscrepancyUnmappedInstrument {
			sev = domain.SeverityLow
		}
		out = append(out, domain.Discrepancy{
			ID:          domain.DiscrepancyID(t, day.AccountID, day.Date, extra),
			Type:        t,
			AccountID:   day.AccountID,
			Date:        day.Date,
			File:        day.SourceFile,
			Expected:    amount.Float(expected),
			Actual:      amount.Float(actual),
			Difference:  amount.Float(diff),
			Severity:    sev,
			Description: desc,
			DetectedAt:  p.now(),
		})
	}

	flag(domain.DiscrepancyBalanceIdentity, "", s.balanceCF, s.balanceBF.Add(s.flow()),
		"opening balance plus flows does not match closing balance")
	if cf.hasTotal {
		flag(domain.DiscrepancyCashFlowTotal, "deposit", cf.reportedDeposits, cf.deposits,
			"ledger deposits do not match reported total")
		flag(domain.DiscrepancyCashFlowTotal, "withdrawal", cf.reportedWithdrawals, cf.withdrawals,
			"ledger withdrawals do not match reported total")
	}
	flag(domain.DiscrepancyCashFlowSummary, "", s.depositWithdrawal, cf.net(),
		"ledger net does not match summary deposit/withdrawal")
	for _, prefix := range tr.unmappedPrefixes() {
		flag(domain.DiscrepancyUnmappedInstrument, prefix, decimal.Zero, tr.unmapped[prefix],
			fmt.Sprintf("instrument prefix %q has no exchange category; fees excluded", prefix))
	}
	return out
}
