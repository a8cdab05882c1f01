package api

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ctpnav/reconciler/internal/accounting"
	"github.com/ctpnav/reconciler/internal/ingestion"
	"github.com/ctpnav/reconciler/internal/reconciliation"
	"github.com/ctpnav/reconciler/internal/repository"
)

// Deps are the collaborators served by the router. Calendar, when set,
// replaces the statement dates as the gap-fill universe; Metrics is mounted
// at /metrics when non-nil.
type Deps struct {
	Statements    *repository.StatementRepo
	Discrepancies *repository.DiscrepancyRepo
	Nav           *repository.NavRepo
	Ingestion     *ingestion.Service
	Reconciler    *reconciliation.Service
	Engine        *accounting.Engine
	Calendar      []time.Time
	Metrics       http.Handler
	Logger        *log.Logger
}

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = log.New(io.Discard, "", 0)
	}
	h := &Handlers{
		stmtRepo:     d.Statements,
		discRepo:     d.Discrepancies,
		navRepo:      d.Nav,
		ingestionSvc: d.Ingestion,
		reconSvc:     d.Reconciler,
		engine:       d.Engine,
		calendar:     d.Calendar,
		logger:       d.Logger,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		// Ingestion.
		r.Post("/statements/ingest", h.IngestStatement)
		r.Post("/reconcile", h.RunReconciliation)

		// Accounts.
		r.Get("/accounts", h.ListAccounts)
		r.Get("/accounts/{id}/statements", h.ListStatements)
		r.Get("/accounts/{id}/nav", h.GetNAV)
		r.Get("/accounts/{id}/workbook", h.GetWorkbook)

		// Discrepancies.
		r.Get("/discrepancies", h.ListDiscrepancies)
		r.Get("/discrepancies/summary", h.GetDiscrepancySummary)

		// Runs.
		r.Get("/runs/latest", h.GetLatestRun)
		r.Get("/runs/{runID}/accounts/{id}/rows", h.GetRunRows)

		// Dashboard.
		r.Get("/dashboard", h.GetDashboard)
	})

	return r
}
