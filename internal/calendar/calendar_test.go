package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ctpnav/reconciler/internal/domain"
)

func dates(t *testing.T, ss ...string) []time.Time {
	t.Helper()
	var out []time.Time
	for _, s := range ss {
		d, err := domain.ParseDate(s)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, d)
	}
	return out
}

func TestLoad(t *testing.T) {
	testCases := []struct {
		name string
		data string
		want []string
	}{
		{
			"tushare trade_cal",
			"exchange,cal_date,is_open,pretrade_date\nSHFE,20190104,1,20190103\nSHFE,20190102,1,20181228\nSHFE,20190105,0,20190104\nSHFE,20190103,1,20190102\n",
			[]string{"20190102", "20190103", "20190104"},
		},
		{
			"single column with header",
			"date\n2019-01-03\n2019-01-02\n2019-01-03\n",
			[]string{"20190102", "20190103"},
		},
		{
			"single column without header",
			"20190102\n20190103\n",
			[]string{"20190102", "20190103"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Load(strings.NewReader(tc.data), Range{})
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if diff := cmp.Diff(dates(t, tc.want...), got); diff != "" {
				t.Errorf("dates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadRange(t *testing.T) {
	r := Range{Start: dates(t, "20190103")[0], End: dates(t, "20190104")[0]}
	got, err := Load(strings.NewReader("20190102\n20190103\n20190104\n20190107\n"), r)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(dates(t, "20190103", "20190104"), got); diff != "" {
		t.Errorf("dates mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadBadDate(t *testing.T) {
	if _, err := Load(strings.NewReader("date\n2019/01/02\n"), Range{}); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestFromStatements(t *testing.T) {
	ds := dates(t, "20190103", "20190102", "20190103")
	var days []*domain.SettlementDay
	for _, d := range ds {
		days = append(days, &domain.SettlementDay{Date: d})
	}
	got := FromStatements(days, Range{})
	if diff := cmp.Diff(dates(t, "20190102", "20190103"), got); diff != "" {
		t.Errorf("dates mismatch (-want +got):\n%s", diff)
	}
}
