package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ctpnav/reconciler/internal/accounting"
	"github.com/ctpnav/reconciler/internal/calendar"
	"github.com/ctpnav/reconciler/internal/config"
	"github.com/ctpnav/reconciler/internal/rebate"
	"github.com/ctpnav/reconciler/internal/report"
)

const markdownWidth = 110

func loadConfig() (config.Config, error) {
	return config.Load(*configPath)
}

// loadRebates reads the configured schedule; none configured means no rebate.
func loadRebates(cfg config.Config) (accounting.RebateSource, error) {
	if cfg.RebateFile == "" {
		return rebate.Zero(), nil
	}
	s, err := rebate.LoadFile(cfg.RebateFile)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// loadCalendar reads the configured calendar; nil means statement dates.
func loadCalendar(cfg config.Config, r calendar.Range) ([]time.Time, error) {
	if cfg.CalendarFile == "" {
		return nil, nil
	}
	dates, err := calendar.LoadFile(cfg.CalendarFile, r)
	if err != nil {
		return nil, err
	}
	if dates == nil {
		dates = []time.Time{}
	}
	return dates, nil
}

func printMarkdown(md string) {
	out, err := report.Render(md, markdownWidth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: render markdown: %v\n", err)
		out = md
	}
	fmt.Print(out)
}
