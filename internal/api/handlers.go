package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ctpnav/reconciler/internal/accounting"
	"github.com/ctpnav/reconciler/internal/amount"
	"github.com/ctpnav/reconciler/internal/calendar"
	"github.com/ctpnav/reconciler/internal/domain"
	"github.com/ctpnav/reconciler/internal/ingestion"
	"github.com/ctpnav/reconciler/internal/reconciliation"
	"github.com/ctpnav/reconciler/internal/report"
	"github.com/ctpnav/reconciler/internal/repository"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	stmtRepo     *repository.StatementRepo
	discRepo     *repository.DiscrepancyRepo
	navRepo      *repository.NavRepo
	ingestionSvc *ingestion.Service
	reconSvc     *reconciliation.Service
	engine       *accounting.Engine
	calendar     []time.Time
	logger       *log.Logger
}

// --- helpers ---

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Printf("[api] encode error: %v", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return nil
	}
	return &t
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- IngestStatement ---

func (h *Handlers) IngestStatement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "file field is required: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "read file: "+err.Error())
		return
	}

	result, err := h.ingestionSvc.IngestStatement(r.Context(), data, header.Filename)
	if err != nil {
		var perr *domain.StructuralParseError
		if errors.As(err, &perr) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// --- ListAccounts ---

func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.stmtRepo.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if accounts == nil {
		accounts = []repository.AccountSummary{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"total":    len(accounts),
	})
}

// --- ListStatements ---

func (h *Handlers) accountDays(r *http.Request) ([]*domain.SettlementDay, repository.DayFilter, error) {
	q := r.URL.Query()
	filter := repository.DayFilter{
		AccountID: chi.URLParam(r, "id"),
		From:      parseDate(q.Get("from")),
		To:        parseDate(q.Get("to")),
	}
	days, err := h.stmtRepo.ListDays(r.Context(), filter)
	return days, filter, err
}

func (h *Handlers) ListStatements(w http.ResponseWriter, r *http.Request) {
	days, _, err := h.accountDays(r)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(days) == 0 {
		h.writeError(w, http.StatusNotFound, "no statements for account")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"statements": days,
		"total":      len(days),
	})
}

// --- GetNAV ---

// navRows recomputes an account's series from its stored statements.
func (h *Handlers) navRows(w http.ResponseWriter, r *http.Request) ([]*domain.SettlementDay, []domain.Row, bool) {
	days, filter, err := h.accountDays(r)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, nil, false
	}
	if len(days) == 0 {
		h.writeError(w, http.StatusNotFound, "no statements for account")
		return nil, nil, false
	}

	rng := calendar.Range{Start: days[0].Date, End: days[len(days)-1].Date}
	if filter.From != nil {
		rng.Start = *filter.From
	}
	if filter.To != nil {
		rng.End = *filter.To
	}
	var cal []time.Time
	for _, d := range h.calendar {
		if rng.Contains(d) {
			cal = append(cal, d)
		}
	}
	if h.calendar == nil {
		cal = calendar.FromStatements(days, rng)
	}

	rows, err := h.engine.Series(days, cal)
	if err != nil {
		var cov *domain.ScheduleCoverageError
		if errors.As(err, &cov) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return nil, nil, false
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, nil, false
	}
	return days, rows, true
}

func (h *Handlers) GetNAV(w http.ResponseWriter, r *http.Request) {
	_, rows, ok := h.navRows(w, r)
	if !ok {
		return
	}
	total := rows[len(rows)-1]
	h.writeJSON(w, http.StatusOK, map[string]any{
		"account_id": chi.URLParam(r, "id"),
		"rows":       rows,
		"closing": map[string]float64{
			"balance":     amount.Round2(total.BalanceCF),
			"real_nav":    total.Real.NAV,
			"instant_nav": total.Instant.NAV,
		},
	})
}

// --- GetWorkbook ---

func (h *Handlers) GetWorkbook(w http.ResponseWriter, r *http.Request) {
	days, rows, ok := h.navRows(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, rows, report.BankTransfers(days)); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".xlsx"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Printf("[api] write workbook: %v", err)
	}
}

// --- ListDiscrepancies ---

func (h *Handlers) ListDiscrepancies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.DiscrepancyFilter{
		Type:      q.Get("type"),
		Severity:  q.Get("severity"),
		AccountID: q.Get("account_id"),
		From:      parseDate(q.Get("from")),
		To:        parseDate(q.Get("to")),
		Page:      parseIntDefault(q.Get("page"), 1),
		Limit:     parseIntDefault(q.Get("limit"), 50),
	}

	discs, total, err := h.discRepo.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if discs == nil {
		discs = []domain.Discrepancy{}
	}

	// Calculate total impact for the result set.
	var totalImpact float64
	for _, d := range discs {
		totalImpact += math.Abs(d.Difference)
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"discrepancies": discs,
		"total":         total,
		"page":          filter.Page,
		"limit":         filter.Limit,
		"total_impact":  amount.Round2(totalImpact),
	})
}

// --- GetDiscrepancySummary ---

func (h *Handlers) GetDiscrepancySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.discRepo.GetSummary(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// --- RunReconciliation ---

func (h *Handlers) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconSvc.RunFullReconciliation(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// --- GetLatestRun ---

func (h *Handlers) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.navRepo.LatestRun(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		h.writeError(w, http.StatusNotFound, "no runs recorded")
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

// --- GetRunRows ---

func (h *Handlers) GetRunRows(w http.ResponseWriter, r *http.Request) {
	runID, accountID := chi.URLParam(r, "runID"), chi.URLParam(r, "id")
	rows, err := h.navRepo.ListRows(r.Context(), runID, accountID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(rows) == 0 {
		h.writeError(w, http.StatusNotFound, "no rows for run and account")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":     runID,
		"account_id": accountID,
		"rows":       rows,
	})
}

// --- GetDashboard ---

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.stmtRepo.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	discSummary, err := h.discRepo.GetSummary(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	run, err := h.navRepo.LatestRun(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type accountEntry struct {
		AccountID        string  `json:"account_id"`
		Broker           string  `json:"broker"`
		Statements       int     `json:"statements"`
		FirstDate        string  `json:"first_date"`
		LastDate         string  `json:"last_date"`
		DiscrepancyCount int     `json:"discrepancy_count"`
		Impact           float64 `json:"discrepancy_impact"`
	}
	byAccount := make([]accountEntry, 0, len(accounts))
	statements := 0
	for _, a := range accounts {
		statements += a.Statements
		byAccount = append(byAccount, accountEntry{
			AccountID:        a.AccountID,
			Broker:           a.Broker,
			Statements:       a.Statements,
			FirstDate:        a.FirstDate.Format(domain.DateLayout),
			LastDate:         a.LastDate.Format(domain.DateLayout),
			DiscrepancyCount: discSummary.ByAccount[a.AccountID],
			Impact:           amount.Round2(discSummary.ImpactByAccount[a.AccountID]),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"statements": statements,
		"accounts":   byAccount,
		"discrepancies": map[string]any{
			"total":        discSummary.TotalCount,
			"critical":     discSummary.BySeverity[string(domain.SeverityCritical)],
			"high":         discSummary.BySeverity[string(domain.SeverityHigh)],
			"medium":       discSummary.BySeverity[string(domain.SeverityMedium)],
			"low":          discSummary.BySeverity[string(domain.SeverityLow)],
			"total_impact": amount.Round2(discSummary.TotalImpact),
		},
		"latest_run": run,
	})
}
