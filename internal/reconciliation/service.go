package reconciliation

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/ctpnav/reconciler/internal/domain"
	"github.com/ctpnav/reconciler/internal/repository"
)

// ReconciliationResult summarises a reconciliation pass over stored statements.
type ReconciliationResult struct {
	Accounts           int            `json:"accounts"`
	Statements         int            `json:"statements"`
	TotalDiscrepancies int            `json:"total_discrepancies"`
	ByType             map[string]int `json:"by_type"`

	Findings []domain.Discrepancy `json:"-"`
}

// Service runs the Checker against the statements held in the repository.
type Service struct {
	stmtRepo *repository.StatementRepo
	discRepo *repository.DiscrepancyRepo
	checker  *Checker
	logger   *log.Logger
}

// NewService creates a new reconciliation service.
func NewService(
	stmtRepo *repository.StatementRepo,
	discRepo *repository.DiscrepancyRepo,
	checker *Checker,
	logger *log.Logger,
) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		stmtRepo: stmtRepo,
		discRepo: discRepo,
		checker:  checker,
		logger:   logger,
	}
}

// RunFullReconciliation clears previous checker findings and re-checks every
// account from scratch. Parse-time findings are left in place.
func (s *Service) RunFullReconciliation(ctx context.Context) (*ReconciliationResult, error) {
	accounts, err := s.stmtRepo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	result := &ReconciliationResult{ByType: map[string]int{}}
	for _, a := range accounts {
		n, err := s.ReconcileAccount(ctx, a.AccountID, result)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", a.AccountID, err)
		}
		result.Statements += n
		result.Accounts++
	}

	s.logger.Printf("[reconciliation] Results: accounts=%d, statements=%d, discrepancies=%d",
		result.Accounts, result.Statements, result.TotalDiscrepancies)
	return result, nil
}

// ReconcileAccount re-checks one account and replaces its checker findings.
// It returns the number of statements checked; result, when non-nil, is
// updated with the findings.
func (s *Service) ReconcileAccount(ctx context.Context, accountID string, result *ReconciliationResult) (int, error) {
	days, err := s.stmtRepo.ListDays(ctx, repository.DayFilter{AccountID: accountID})
	if err != nil {
		return 0, fmt.Errorf("list statements: %w", err)
	}
	if len(days) == 0 {
		return 0, domain.ErrNoStatements
	}
	if err := s.discRepo.ClearTypes(ctx, accountID, CheckTypes...); err != nil {
		return 0, fmt.Errorf("clear discrepancies: %w", err)
	}
	discs := s.checker.CheckAccount(days)
	if len(discs) > 0 {
		if _, err := s.discRepo.BulkInsert(ctx, discs); err != nil {
			return 0, fmt.Errorf("insert discrepancies: %w", err)
		}
	}
	if result != nil {
		result.TotalDiscrepancies += len(discs)
		result.Findings = append(result.Findings, discs...)
		for _, d := range discs {
			result.ByType[string(d.Type)]++
		}
	}
	return len(days), nil
}
