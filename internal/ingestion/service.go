package ingestion

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ctpnav/reconciler/internal/domain"
	"github.com/ctpnav/reconciler/internal/metrics"
	"github.com/ctpnav/reconciler/internal/reconciliation"
	"github.com/ctpnav/reconciler/internal/repository"
)

// IngestResult is returned from a successful ingestion.
type IngestResult struct {
	FileID                string `json:"file_id"`
	AccountID             string `json:"account_id,omitempty"`
	Date                  string `json:"date,omitempty"`
	AlreadyIngested       bool   `json:"already_ingested,omitempty"`
	Duplicate             bool   `json:"duplicate,omitempty"`
	DiscrepanciesDetected int    `json:"discrepancies_detected"`
}

// Service ingests single statements uploaded over the API.
type Service struct {
	parser   *Parser
	stmtRepo *repository.StatementRepo
	discRepo *repository.DiscrepancyRepo
	reconSvc *reconciliation.Service
	metrics  *metrics.Metrics
	logger   *log.Logger
	now      func() time.Time
}

// NewService creates a new ingestion service.
func NewService(
	parser *Parser,
	stmtRepo *repository.StatementRepo,
	discRepo *repository.DiscrepancyRepo,
	reconSvc *reconciliation.Service,
	logger *log.Logger,
) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		parser:   parser,
		stmtRepo: stmtRepo,
		discRepo: discRepo,
		reconSvc: reconSvc,
		logger:   logger,
		now:      time.Now,
	}
}

// SetMetrics attaches ingestion counters; nil disables them.
func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// IngestStatement parses one statement, stores it and re-checks its account.
// Identical bytes are recognised by hash and reported as already ingested; a
// different file for a stored (account, date) is skipped with a
// DUPLICATE_STATEMENT finding, the stored statement wins.
func (s *Service) IngestStatement(ctx context.Context, data []byte, name string) (*IngestResult, error) {
	hash := fmt.Sprintf("%x", sha256.Sum256(data))
	exists, err := s.stmtRepo.FileExistsByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("check hash: %w", err)
	}
	if exists {
		return &IngestResult{FileID: "already-ingested", AlreadyIngested: true}, nil
	}

	day, discs, err := s.parser.Parse(data, name)
	if err != nil {
		s.metrics.ObserveStatement(metrics.ResultError)
		return nil, err
	}
	result := &IngestResult{
		FileID:    uuid.NewString(),
		AccountID: day.AccountID,
		Date:      day.Date.Format(domain.DateLayout),
	}

	dup, err := s.stmtRepo.Exists(ctx, day.Key())
	if err != nil {
		return nil, fmt.Errorf("check statement: %w", err)
	}
	if dup {
		result.Duplicate = true
		discs = []domain.Discrepancy{{
			ID:          domain.DiscrepancyID(domain.DiscrepancyDuplicateStatement, day.AccountID, day.Date, hash[:12]),
			Type:        domain.DiscrepancyDuplicateStatement,
			AccountID:   day.AccountID,
			Date:        day.Date,
			File:        name,
			Severity:    domain.SeverityMedium,
			Description: "a statement for this account and date is already stored; skipped",
			DetectedAt:  s.now(),
		}}
	}

	if err := s.stmtRepo.InsertFile(ctx, &domain.StatementFile{
		ID:         result.FileID,
		Name:       name,
		Hash:       hash,
		AccountID:  day.AccountID,
		Date:       day.Date,
		IngestedAt: s.now(),
	}); err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}
	if !dup {
		if _, err := s.stmtRepo.InsertDays(ctx, []*domain.SettlementDay{day}); err != nil {
			return nil, fmt.Errorf("insert statement: %w", err)
		}
	}
	if len(discs) > 0 {
		if _, err := s.discRepo.BulkInsert(ctx, discs); err != nil {
			return nil, fmt.Errorf("insert discrepancies: %w", err)
		}
	}
	result.DiscrepanciesDetected = len(discs)
	s.metrics.ObserveDiscrepancies(discs)
	if dup {
		s.metrics.ObserveStatement(metrics.ResultSkipped)
	} else {
		s.metrics.ObserveStatement(metrics.ResultSuccess)
	}

	s.logger.Printf("[ingestion] Ingested %s: account %s date %s (duplicate=%t, findings=%d)",
		name, result.AccountID, result.Date, dup, len(discs))

	if dup || s.reconSvc == nil {
		return result, nil
	}
	recon := &reconciliation.ReconciliationResult{ByType: map[string]int{}}
	if _, err := s.reconSvc.ReconcileAccount(ctx, day.AccountID, recon); err != nil && !errors.Is(err, domain.ErrNoStatements) {
		// Do not fail ingestion if reconciliation has issues.
		s.logger.Printf("[ingestion] WARNING: reconciliation failed: %v", err)
	}
	all := append(append([]domain.Discrepancy(nil), discs...), recon.Findings...)
	result.DiscrepanciesDetected = len(domain.UniqueDiscrepancies(all))
	return result, nil
}
