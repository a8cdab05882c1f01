package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ctpnav/reconciler/internal/accounting"
	"github.com/ctpnav/reconciler/internal/api"
	"github.com/ctpnav/reconciler/internal/ingestion"
	"github.com/ctpnav/reconciler/internal/metrics"
	"github.com/ctpnav/reconciler/internal/reconciliation"
	"github.com/ctpnav/reconciler/internal/repository"
)

type serveCmd struct {
	logger *log.Logger
	addr   string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the ingestion and NAV HTTP API" }
func (*serveCmd) Usage() string {
	return `ctpnav serve [-addr <host:port>]

  Starts the HTTP API backed by the configured SQLite database.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address (overrides configuration)")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.addr != "" {
		cfg.HTTPAddr = c.addr
	}
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

	c.logger.Printf("Initializing database at %s", cfg.DBPath)
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: init db: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	// Create repositories.
	stmtRepo := repository.NewStatementRepo(db)
	discRepo := repository.NewDiscrepancyRepo(db)
	navRepo := repository.NewNavRepo(db)

	// Create services.
	checker := reconciliation.NewChecker(cfg.Tolerance(), c.logger)
	reconSvc := reconciliation.NewService(stmtRepo, discRepo, checker, c.logger)
	ingestionSvc := ingestion.NewService(parser, stmtRepo, discRepo, reconSvc, c.logger)
	ingestionSvc.SetMetrics(metrics.New(prometheus.DefaultRegisterer))

	router := api.NewRouter(api.Deps{
		Statements:    stmtRepo,
		Discrepancies: discRepo,
		Nav:           navRepo,
		Ingestion:     ingestionSvc,
		Reconciler:    reconSvc,
		Engine:        accounting.NewEngine(rebates, cfg.Tolerance(), c.logger),
		Calendar:      cal,
		Metrics:       promhttp.Handler(),
		Logger:        c.logger,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			c.logger.Printf("[api] shutdown: %v", err)
		}
	}()

	c.logger.Printf("CTP settlement reconciler")
	c.logger.Printf("Listening on %s", cfg.HTTPAddr)
	c.logger.Printf("Endpoints:")
	c.logger.Printf("  POST   /api/v1/statements/ingest")
	c.logger.Printf("  POST   /api/v1/reconcile")
	c.logger.Printf("  GET    /api/v1/accounts")
	c.logger.Printf("  GET    /api/v1/accounts/{id}/statements")
	c.logger.Printf("  GET    /api/v1/accounts/{id}/nav")
	c.logger.Printf("  GET    /api/v1/accounts/{id}/workbook")
	c.logger.Printf("  GET    /api/v1/discrepancies")
	c.logger.Printf("  GET    /api/v1/discrepancies/summary")
	c.logger.Printf("  GET    /api/v1/runs/latest")
	c.logger.Printf("  GET    /api/v1/dashboard")
	c.logger.Printf("  GET    /metrics")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Error: server failed: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
