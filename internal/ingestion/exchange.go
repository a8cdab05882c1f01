package ingestion

import (
	"strings"
	"unicode"

	"github.com/ctpnav/reconciler/internal/domain"
)

var defaultPrefixes = map[domain.Exchange][]string{
	domain.ExchangeCFFEX: {"IF", "IC", "IH", "IM", "T", "TF", "TS", "TL"},
	domain.ExchangeINE:   {"SC", "NR", "LU", "BC", "EC"},
	domain.ExchangeSHFE: {"CU", "AL", "ZN", "PB", "NI", "SN", "AU", "AG", "RB", "WR", "HC", "SS",
		"FU", "BU", "RU", "SP", "AO", "BR"},
	domain.ExchangeCZCE: {"SR", "CF", "CY", "TA", "MA", "FG", "RM", "OI", "ZC", "SF", "SM", "AP",
		"CJ", "UR", "SA", "PF", "PK", "WH", "PM", "RI", "LR", "JR", "RS", "SH", "PX"},
	domain.ExchangeDCEIndustrial:   {"I", "J", "JM", "L", "V", "PP", "EG", "EB", "PG"},
	domain.ExchangeDCEAgricultural: {"A", "B", "M", "Y", "P", "C", "CS", "JD", "RR", "LH", "FB", "BB"},
}

// prefixTable maps upper-cased product prefixes to exchange categories.
type prefixTable map[string]domain.Exchange

// newPrefixTable builds the default table plus extras ("PREFIX": "EXCHANGE").
func newPrefixTable(extra map[string]string) (prefixTable, error) {
	t := make(prefixTable)
	for ex, prefixes := range defaultPrefixes {
		for _, p := range prefixes {
			t[p] = ex
		}
	}
	for p, name := range extra {
		ex, err := domain.ParseExchange(name)
		if err != nil {
			return nil, err
		}
		t[strings.ToUpper(p)] = ex
	}
	return t, nil
}

// instrumentPrefix returns the leading letters of an instrument code,
// upper-cased: "cu1903" -> "CU", "IF1901" -> "IF".
func instrumentPrefix(instrument string) string {
	end := strings.IndexFunc(instrument, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		end = len(instrument)
	}
	return strings.ToUpper(instrument[:end])
}

func (t prefixTable) lookup(instrument string) (domain.Exchange, string, bool) {
	prefix := instrumentPrefix(strings.TrimSpace(instrument))
	ex, ok := t[prefix]
	return ex, prefix, ok
}
