// Package pipeline runs a batch over a directory of statements: parse,
// de-duplicate, reconcile, run the accounting engine and write reports.
package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ctpnav/reconciler/internal/accounting"
	"github.com/ctpnav/reconciler/internal/calendar"
	"github.com/ctpnav/reconciler/internal/domain"
	"github.com/ctpnav/reconciler/internal/ingestion"
	"github.com/ctpnav/reconciler/internal/metrics"
	"github.com/ctpnav/reconciler/internal/rebate"
	"github.com/ctpnav/reconciler/internal/reconciliation"
	"github.com/ctpnav/reconciler/internal/report"
	"github.com/ctpnav/reconciler/internal/repository"
)

// Options configures one batch run.
type Options struct {
	RawDir    string
	Extension string
	Workers   int
	Range     calendar.Range
	Tolerance float64

	// Calendar is the trading-date universe; nil means the union of
	// statement dates in range.
	Calendar []time.Time
	// Rebates defaults to a zero schedule.
	Rebates accounting.RebateSource

	// OutputDir receives workbooks; empty disables report files.
	OutputDir string
	PDF       bool
}

// Store persists a run. Any nil field disables that part.
type Store struct {
	Statements    *repository.StatementRepo
	Discrepancies *repository.DiscrepancyRepo
	Nav           *repository.NavRepo
}

// Pipeline runs batches with a fixed parser and collaborators.
type Pipeline struct {
	parser  *ingestion.Parser
	opts    Options
	store   *Store
	metrics *metrics.Metrics
	logger  *log.Logger
	now     func() time.Time
}

// New builds a pipeline. store, m and logger may be nil.
func New(parser *ingestion.Parser, opts Options, store *Store, m *metrics.Metrics, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.Extension == "" {
		opts.Extension = ".txt"
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Rebates == nil {
		opts.Rebates = rebate.Zero()
	}
	return &Pipeline{parser: parser, opts: opts, store: store, metrics: m, logger: logger, now: time.Now}
}

// statement is one parsed file.
type statement struct {
	path    string
	company string
	hash    string
	day     *domain.SettlementDay
	discs   []domain.Discrepancy
	err     error
}

// Run executes the batch. A file that fails to parse is recorded in
// Result.Failures and never stops the run; a rebate schedule that does not
// cover an account's dates fails only that account.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := p.now()
	result := &Result{
		Run:      domain.Run{ID: uuid.NewString(), Start: p.opts.Range.Start, End: p.opts.Range.End, StartedAt: started},
		Failures: map[string]error{},
	}

	paths, err := p.discover()
	if err != nil {
		return nil, err
	}
	result.Run.Files = len(paths)
	p.logger.Printf("[pipeline] Run %s: %d statement files under %s", result.Run.ID, len(paths), p.opts.RawDir)

	parsed, err := p.parseAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	var kept []*statement
	seen := map[domain.StatementKey]string{}
	for _, s := range parsed {
		if s.err != nil {
			p.logger.Printf("[pipeline] WARNING: %v", s.err)
			result.Failures[s.path] = s.err
			p.metrics.ObserveStatement(metrics.ResultError)
			continue
		}
		key := s.day.Key()
		if first, dup := seen[key]; dup {
			result.Discrepancies = append(result.Discrepancies, p.duplicate(s, first))
			p.metrics.ObserveStatement(metrics.ResultSkipped)
			continue
		}
		seen[key] = s.path
		p.metrics.ObserveStatement(metrics.ResultSuccess)
		if !p.opts.Range.Contains(s.day.Date) {
			continue
		}
		kept = append(kept, s)
		result.Discrepancies = append(result.Discrepancies, s.discs...)
	}
	result.Run.Failures = len(result.Failures)

	cal := p.opts.Calendar
	if cal == nil {
		days := make([]*domain.SettlementDay, len(kept))
		for i, s := range kept {
			days[i] = s.day
		}
		cal = calendar.FromStatements(days, p.opts.Range)
	}

	accounts, err := p.runAccounts(ctx, group(kept), cal)
	if err != nil {
		return nil, err
	}
	result.Accounts = accounts
	series := map[string][]domain.Row{}
	transfers := map[string][]domain.CashFlowEvent{}
	for _, a := range accounts {
		result.Discrepancies = append(result.Discrepancies, a.Discrepancies...)
		if a.Err != nil {
			continue
		}
		series[a.AccountID] = a.Rows
		transfers[a.AccountID] = a.Transfers
	}
	result.Consolidated = report.Consolidate(series)
	result.ConsolidatedTransfers = report.ConsolidateTransfers(transfers)
	result.Discrepancies = domain.UniqueDiscrepancies(result.Discrepancies)
	sortDiscrepancies(result.Discrepancies)
	result.Run.Accounts = len(accounts)
	result.Run.Discrepancies = len(result.Discrepancies)

	if p.opts.OutputDir != "" {
		if err := p.writeReports(result); err != nil {
			return nil, err
		}
	}

	result.Run.FinishedAt = p.now()
	if p.store != nil {
		if err := p.persist(ctx, kept, result); err != nil {
			return nil, err
		}
	}
	p.metrics.ObserveDiscrepancies(result.Discrepancies)
	p.metrics.ObserveRun(started, result.Run.FinishedAt)

	p.logger.Printf("[pipeline] Run %s done: files=%d, failures=%d, accounts=%d, discrepancies=%d",
		result.Run.ID, result.Run.Files, result.Run.Failures, result.Run.Accounts, result.Run.Discrepancies)
	return result, nil
}

// discover lists statement files under RawDir in path order.
func (p *Pipeline) discover() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(p.opts.RawDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), p.opts.Extension) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", p.opts.RawDir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// parseAll parses files concurrently; the output keeps the order of paths.
func (p *Pipeline) parseAll(ctx context.Context, paths []string) ([]*statement, error) {
	out := make([]*statement, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = p.parseFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) parseFile(path string) *statement {
	s := &statement{path: path, company: p.company(path)}
	data, err := os.ReadFile(path)
	if err != nil {
		s.err = fmt.Errorf("read %s: %w", path, err)
		return s
	}
	s.hash = fmt.Sprintf("%x", sha256.Sum256(data))
	s.day, s.discs, s.err = p.parser.Parse(data, path)
	return s
}

// company is the first directory under RawDir, naming the broker's folder.
func (p *Pipeline) company(path string) string {
	rel, err := filepath.Rel(p.opts.RawDir, path)
	if err != nil {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

func (p *Pipeline) duplicate(s *statement, first string) domain.Discrepancy {
	p.logger.Printf("[pipeline] WARNING: %s duplicates %s for account %s on %s; skipped",
		s.path, first, s.day.AccountID, s.day.Date.Format(domain.DateLayout))
	return domain.Discrepancy{
		ID:          domain.DiscrepancyID(domain.DiscrepancyDuplicateStatement, s.day.AccountID, s.day.Date, filepath.Base(s.path)),
		Type:        domain.DiscrepancyDuplicateStatement,
		AccountID:   s.day.AccountID,
		Date:        s.day.Date,
		File:        s.path,
		Severity:    domain.SeverityMedium,
		Description: fmt.Sprintf("duplicate of %s; skipped", first),
		DetectedAt:  p.now(),
	}
}

// group splits statements by account, ordered by account ID.
func group(kept []*statement) [][]*statement {
	byAccount := map[string][]*statement{}
	var ids []string
	for _, s := range kept {
		id := s.day.AccountID
		if _, ok := byAccount[id]; !ok {
			ids = append(ids, id)
		}
		byAccount[id] = append(byAccount[id], s)
	}
	sort.Strings(ids)
	out := make([][]*statement, len(ids))
	for i, id := range ids {
		out[i] = byAccount[id]
	}
	return out
}

// runAccounts reconciles and runs the engine per account, in parallel
// across accounts.
func (p *Pipeline) runAccounts(ctx context.Context, groups [][]*statement, cal []time.Time) ([]AccountResult, error) {
	out := make([]AccountResult, len(groups))
	checker := reconciliation.NewChecker(p.opts.Tolerance, p.logger)
	engine := accounting.NewEngine(p.opts.Rebates, p.opts.Tolerance, p.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, stmts := range groups {
		i, stmts := i, stmts
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			days := make([]*domain.SettlementDay, len(stmts))
			for j, s := range stmts {
				days[j] = s.day
			}
			a := AccountResult{
				AccountID:   days[0].AccountID,
				AccountName: days[0].AccountName,
				Broker:      days[0].Broker,
				Company:     stmts[0].company,
				Days:        days,
			}
			a.Discrepancies = checker.CheckAccount(days)
			a.Rows, a.Err = engine.Series(days, cal)
			if a.Err != nil {
				p.logger.Printf("[pipeline] WARNING: account %s failed: %v", a.AccountID, a.Err)
				p.metrics.ObserveAccount(metrics.ResultError)
			} else {
				a.Transfers = report.BankTransfers(days)
				p.metrics.ObserveAccount(metrics.ResultSuccess)
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// persist stores the run's statements, findings and output rows.
func (p *Pipeline) persist(ctx context.Context, kept []*statement, result *Result) error {
	if repo := p.store.Statements; repo != nil {
		days := make([]*domain.SettlementDay, 0, len(kept))
		for _, s := range kept {
			days = append(days, s.day)
			exists, err := repo.FileExistsByHash(ctx, s.hash)
			if err != nil {
				return fmt.Errorf("check hash: %w", err)
			}
			if exists {
				continue
			}
			f := &domain.StatementFile{
				ID: uuid.NewString(), Name: s.path, Hash: s.hash,
				AccountID: s.day.AccountID, Date: s.day.Date, IngestedAt: result.Run.FinishedAt,
			}
			if err := repo.InsertFile(ctx, f); err != nil {
				return fmt.Errorf("insert file %s: %w", s.path, err)
			}
		}
		n, err := repo.InsertDays(ctx, days)
		if err != nil {
			return fmt.Errorf("insert statements: %w", err)
		}
		p.logger.Printf("[pipeline] Stored %d statements (%d new)", len(days), n)
	}
	if repo := p.store.Discrepancies; repo != nil && len(result.Discrepancies) > 0 {
		if _, err := repo.BulkInsert(ctx, result.Discrepancies); err != nil {
			return fmt.Errorf("insert discrepancies: %w", err)
		}
	}
	if repo := p.store.Nav; repo != nil {
		if err := repo.InsertRun(ctx, &result.Run); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for _, a := range result.Accounts {
			if a.Err != nil {
				continue
			}
			if _, err := repo.InsertRows(ctx, result.Run.ID, a.Rows); err != nil {
				return fmt.Errorf("insert rows for %s: %w", a.AccountID, err)
			}
		}
		if len(result.Consolidated) > 0 {
			if _, err := repo.InsertRows(ctx, result.Run.ID, result.Consolidated); err != nil {
				return fmt.Errorf("insert consolidated rows: %w", err)
			}
		}
	}
	return nil
}

func sortDiscrepancies(discs []domain.Discrepancy) {
	sort.SliceStable(discs, func(i, j int) bool {
		a, b := discs[i], discs[j]
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
}
