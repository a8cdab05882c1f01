package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ctpnav/reconciler/internal/domain"
)

type account struct {
	company string
	id      string
	name    string
	broker  string
	opening int64 // cents
	// transferNote is the ledger comment this broker puts on bank transfers.
	transferNote string
}

type instrument struct {
	exchange, product, code string
	fee                     int64 // cents per lot
}

var instruments = []instrument{
	{"中金所", "沪深300", "IF1901", 2300},
	{"上期所", "铜", "cu1903", 1000},
	{"上期所", "螺纹钢", "rb1905", 400},
	{"能源中心", "原油", "sc1903", 2000},
	{"郑商所", "白糖", "SR905", 300},
	{"郑商所", "PTA", "TA905", 300},
	{"大商所", "铁矿石", "i1905", 600},
	{"大商所", "豆粕", "m1905", 150},
}

type cashFlow struct {
	typeLabel           string
	deposit, withdrawal decimal.Decimal
	note                string
}

type trade struct {
	instrument instrument
	lots       int64
	fee        decimal.Decimal
	pl         decimal.Decimal
}

type expected struct {
	AccountID  string  `json:"account_id"`
	Statements int     `json:"statements"`
	BalanceCF  float64 `json:"balance_cf"`
	NetFlow    float64 `json:"bank_transfer_net"`
}

func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := filepath.Join(findTestdataDir(), "sample")

	startDate := time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2019, 1, 31, 0, 0, 0, 0, time.UTC)

	accounts := []account{
		{"citic", "8001234", "张三", "中信期货有限公司", 100000000, ""},
		{"citic", "8005678", "李四", "中信期货有限公司", 30000000, ""},
		{"gtja", "9002001", "王五", "国泰君安期货有限公司", 50000000, "中国银行上海分行"},
	}

	var tradingDays []time.Time
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			tradingDays = append(tradingDays, d)
		}
	}

	var summary []expected
	for _, a := range accounts {
		balance := decimal.New(a.opening, -2)
		exp := expected{AccountID: a.id}
		for _, d := range tradingDays {
			// Accounts skip the odd day to exercise gap filling.
			if rng.Intn(10) == 0 {
				continue
			}
			flows := randomCashFlows(rng, a)
			trades := randomTrades(rng)
			text, cf := renderStatement(a, d, balance, flows, trades, rng)
			path := filepath.Join(baseDir, "raw", a.company, a.id, d.Format(domain.DateLayout)+".txt")
			writeFile(path, text)
			for _, f := range flows {
				if f.typeLabel == "银期转账" {
					exp.NetFlow += f.deposit.Sub(f.withdrawal).InexactFloat64()
				}
			}
			balance = cf
			exp.Statements++
		}
		exp.BalanceCF = balance.InexactFloat64()
		summary = append(summary, exp)
		fmt.Printf("Generated %d statements for %s -> raw/%s/%s\n", exp.Statements, a.id, a.company, a.id)
	}

	writeCalendar(filepath.Join(baseDir, "calendar.csv"), startDate, endDate)
	writeRebates(filepath.Join(baseDir, "rebates.csv"))
	writeJSONFile(filepath.Join(baseDir, "expected.json"), summary)

	fmt.Println("Test data generation complete.")
}

func randomCashFlows(rng *rand.Rand, a account) []cashFlow {
	var flows []cashFlow
	if rng.Intn(5) == 0 {
		amt := decimal.NewFromInt(int64(rng.Intn(200)+1) * 1000)
		f := cashFlow{typeLabel: "银期转账", note: a.transferNote}
		if rng.Intn(3) == 0 {
			f.withdrawal = amt
		} else {
			f.deposit = amt
		}
		flows = append(flows, f)
	}
	if a.transferNote == "" && rng.Intn(6) == 0 {
		flows = append(flows, cashFlow{
			typeLabel: "手续费返还",
			deposit:   decimal.New(int64(rng.Intn(5000)+100), -2),
			note:      "手续费减收",
		})
	}
	if rng.Intn(15) == 0 {
		flows = append(flows, cashFlow{
			typeLabel:  "其他",
			withdrawal: decimal.New(int64(rng.Intn(300)+100), -2),
			note:       "中金所申报费",
		})
	}
	return flows
}

func randomTrades(rng *rand.Rand) []trade {
	n := rng.Intn(4)
	trades := make([]trade, 0, n)
	for i := 0; i < n; i++ {
		inst := instruments[rng.Intn(len(instruments))]
		lots := int64(rng.Intn(5) + 1)
		trades = append(trades, trade{
			instrument: inst,
			lots:       lots,
			fee:        decimal.New(inst.fee*lots, -2),
			pl:         decimal.New(int64(rng.Intn(400000)-200000), -2),
		})
	}
	return trades
}

// renderStatement lays out a CTP statement and returns it with the closing balance.
func renderStatement(a account, d time.Time, bf decimal.Decimal, flows []cashFlow, trades []trade, rng *rand.Rand) (string, decimal.Decimal) {
	var deposits, withdrawals, commission, realized decimal.Decimal
	for _, f := range flows {
		deposits = deposits.Add(f.deposit)
		withdrawals = withdrawals.Add(f.withdrawal)
	}
	for _, t := range trades {
		commission = commission.Add(t.fee)
		realized = realized.Add(t.pl)
	}
	dw := deposits.Sub(withdrawals)
	mtm := decimal.New(int64(rng.Intn(600000)-300000), -2)
	cf := bf.Add(dw).Add(realized).Add(mtm).Sub(commission)
	date := d.Format(domain.DateLayout)
	rule := strings.Repeat("-", 100)

	var b strings.Builder
	fmt.Fprintf(&b, "%40s%s\n", "", a.broker)
	fmt.Fprintf(&b, "%30s交易结算单(盯市) Settlement Statement(MTM)\n", "")
	fmt.Fprintf(&b, "客户号 Client ID：  %s        客户名称 Client Name：%s\n", a.id, a.name)
	fmt.Fprintf(&b, "日期 Date：%s\n\n", date)

	fmt.Fprintf(&b, "%19s资金状况  币种：人民币  Account Summary  Currency：CNY\n%s\n", "", rule)
	fmt.Fprintf(&b, "期初结存 Balance B/F：%20s  基础保证金 Initial Margin：%16s\n", amount(bf), amount(decimal.Zero))
	fmt.Fprintf(&b, "出 入 金 Deposit/Withdrawal：%13s  期末结存 Balance C/F：%20s\n", amount(dw), amount(cf))
	fmt.Fprintf(&b, "平仓盈亏 Realized P/L：%19s  质 押 金 Pledge Amount：%19s\n", amount(realized), amount(decimal.Zero))
	fmt.Fprintf(&b, "持仓盯市盈亏 MTM P/L：%20s  客户权益 Client Equity：%19s\n", amount(mtm), amount(cf))
	fmt.Fprintf(&b, "手 续 费 Commission：%21s  可用资金 Fund Avail.：%21s\n", amount(commission), amount(cf))
	fmt.Fprintf(&b, "交割手续费 Delivery Fee：%17s\n%s\n\n", amount(decimal.Zero), rule)

	if len(flows) > 0 {
		fmt.Fprintf(&b, "%34s出入金明细 Deposit/Withdrawal\n%s\n", "", rule)
		b.WriteString("|发生日期| 出入金类型 |      入金      |      出金      |          说明          |\n")
		b.WriteString("|  Date  |    Type    |    Deposit     |   Withdrawal   |          Note          |\n")
		b.WriteString(rule + "\n")
		for _, f := range flows {
			fmt.Fprintf(&b, "|%s|%12s|%16s|%16s|%24s|\n", date, f.typeLabel, f.deposit.StringFixed(2), f.withdrawal.StringFixed(2), f.note)
		}
		fmt.Fprintf(&b, "%s\n|共%4d条|%12s|%16s|%16s|%24s|\n%s\n\n", rule, len(flows), "",
			deposits.StringFixed(2), withdrawals.StringFixed(2), "", rule)
	}

	if len(trades) > 0 {
		fmt.Fprintf(&b, "%34s成交记录 Transaction Record\n%s\n", "", rule)
		b.WriteString("|成交日期| 交易所 |   品种   |  合约  |买/卖|投/保|  成交价  | 手数 |   成交额   |  开平  | 手续费 | 平仓盈亏 |\n")
		b.WriteString("|  Date  |Exchange| Product  |Instrument|B/S|S/H|   Price   | Lots |  Turnover  |  O/C   |  Fee   |Realized P/L|\n")
		b.WriteString(rule + "\n")
		var lots int64
		for _, t := range trades {
			lots += t.lots
			fmt.Fprintf(&b, "|%s|%s|%s|%s|买|投|1000.000|%d|%s|平|%s|%s|\n", date, t.instrument.exchange,
				t.instrument.product, t.instrument.code, t.lots, decimal.NewFromInt(10000*t.lots).StringFixed(2),
				t.fee.StringFixed(2), t.pl.StringFixed(2))
		}
		fmt.Fprintf(&b, "%s\n|共%4d条|        |          |        |     |     |          |%6d|            |        |%8s|          |\n%s\n\n",
			rule, len(trades), lots, commission.StringFixed(2), rule)
	}

	fmt.Fprintf(&b, "%34s持仓汇总 Positions\n%s\n", "", rule)
	return b.String(), cf
}

// amount renders a value with thousands separators, as the statements do.
func amount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	var out []byte
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, intPart[i])
	}
	return sign + string(out) + "." + frac
}

func writeCalendar(path string, start, end time.Time) {
	f := create(path)
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	_ = w.Write([]string{"exchange", "cal_date", "is_open"})
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		open := "1"
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			open = "0"
		}
		_ = w.Write([]string{"SSE", d.Format(domain.DateLayout), open})
	}
	fmt.Printf("Generated trading calendar -> %s\n", filepath.Base(path))
}

func writeRebates(path string) {
	f := create(path)
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	rows := [][]string{
		{"start_date", "end_date", "CFFEX", "INE", "SHFE", "CZCE", "DCE_IND", "DCE_AGR"},
		{"20190101", "20190115", "0.3", "0.2", "0.2", "0.25", "0.2", "0.2"},
		{"20190116", "20191231", "0.35", "0.25", "0.25", "0.3", "0.25", "0.25"},
	}
	for _, r := range rows {
		_ = w.Write(r)
	}
	fmt.Printf("Generated rebate schedule -> %s\n", filepath.Base(path))
}

func writeFile(path, text string) {
	f := create(path)
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		panic(err)
	}
}

func create(path string) *os.File {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		panic(err)
	}
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	return f
}

func writeJSONFile(path string, v any) {
	f := create(path)
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}

func findTestdataDir() string {
	// Look for the testdata directory relative to common locations.
	candidates := []string{
		"testdata",
		filepath.Join("..", "..", "testdata"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	// Fallback.
	return "testdata"
}
