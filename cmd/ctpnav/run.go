package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ctpnav/reconciler/internal/config"
	"github.com/ctpnav/reconciler/internal/ingestion"
	"github.com/ctpnav/reconciler/internal/metrics"
	"github.com/ctpnav/reconciler/internal/pipeline"
	"github.com/ctpnav/reconciler/internal/repository"
)

type runCmd struct {
	logger *log.Logger

	raw, out, start, end string
	calendar, rebates    string
	workers              int
	pdf, persist         bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "reconcile a directory of statements and write NAV workbooks" }
func (*runCmd) Usage() string {
	return `ctpnav run [-raw <dir>] [-out <dir>] [-start <date>] [-end <date>] [-calendar <csv>] [-rebates <csv>] [-pdf] [-persist]

  Parses every statement under <raw>/<company>/, reconciles each account,
  runs the NAV engine and writes one workbook per account plus a
  consolidated workbook. Flags override the configuration file.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.raw, "raw", "", "Directory of raw statements")
	f.StringVar(&c.out, "out", "", "Output directory for workbooks")
	f.StringVar(&c.start, "start", "", "First date to include (YYYYMMDD)")
	f.StringVar(&c.end, "end", "", "Last date to include (YYYYMMDD)")
	f.StringVar(&c.calendar, "calendar", "", "Trading calendar CSV")
	f.StringVar(&c.rebates, "rebates", "", "Rebate schedule CSV")
	f.IntVar(&c.workers, "workers", 0, "Parallel workers")
	f.BoolVar(&c.pdf, "pdf", false, "Also write a PDF summary per account")
	f.BoolVar(&c.persist, "persist", false, "Store statements, findings and rows in the database")
}

// apply overlays flags that were set on cfg.
func (c *runCmd) apply(cfg *config.Config) {
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.RawDir, c.raw)
	override(&cfg.OutputDir, c.out)
	override(&cfg.Start, c.start)
	override(&cfg.End, c.end)
	override(&cfg.CalendarFile, c.calendar)
	override(&cfg.RebateFile, c.rebates)
	if c.workers > 0 {
		cfg.Workers = c.workers
	}
	cfg.PDF = cfg.PDF || c.pdf
	cfg.Persist = cfg.Persist || c.persist
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	c.apply(&cfg)
	rng, err := cfg.Range()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	parser, err := ingestion.NewParser(cfg.Layout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	rebates, err := loadRebates(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	cal, err := loadCalendar(cfg, rng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var store *pipeline.Store
	if cfg.Persist {
		db, err := repository.InitDB(cfg.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: init db: %v\n", err)
			return subcommands.ExitFailure
		}
		defer db.Close()
		store = &pipeline.Store{
			Statements:    repository.NewStatementRepo(db),
			Discrepancies: repository.NewDiscrepancyRepo(db),
			Nav:           repository.NewNavRepo(db),
		}
	}

	p := pipeline.New(parser, pipeline.Options{
		RawDir:    cfg.RawDir,
		Extension: cfg.Extension,
		Workers:   cfg.Workers,
		Range:     rng,
		Tolerance: cfg.Tolerance(),
		Calendar:  cal,
		Rebates:   rebates,
		OutputDir: cfg.OutputDir,
		PDF:       cfg.PDF,
	}, store, metrics.New(prometheus.NewRegistry()), c.logger)

	result, err := p.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(result.Summary().Markdown())

	for _, a := range result.Accounts {
		if a.Err != nil {
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
