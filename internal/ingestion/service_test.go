package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ctpnav/reconciler/internal/domain"
	"github.com/ctpnav/reconciler/internal/reconciliation"
	"github.com/ctpnav/reconciler/internal/repository"
)

func newTestService(t *testing.T) (*Service, *repository.DiscrepancyRepo) {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	stmts := repository.NewStatementRepo(db)
	discs := repository.NewDiscrepancyRepo(db)
	recon := reconciliation.NewService(stmts, discs, reconciliation.NewChecker(domain.DefaultTolerance, nil), nil)
	parser, err := NewParser(DefaultLayout())
	if err != nil {
		t.Fatalf("parser: %v", err)
	}
	return NewService(parser, stmts, discs, recon, nil), discs
}

func TestIngestStatement(t *testing.T) {
	ctx := context.Background()
	svc, discRepo := newTestService(t)
	first := readStatement(t, "citic/8001234/20190102.txt")

	res, err := svc.IngestStatement(ctx, first, "20190102.txt")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.AccountID != "8001234" || res.Date != "20190102" || res.DiscrepanciesDetected != 0 || res.FileID == "" {
		t.Errorf("unexpected result: %+v", res)
	}

	res, err = svc.IngestStatement(ctx, first, "copy.txt")
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if !res.AlreadyIngested {
		t.Errorf("expected identical bytes to be recognised, got %+v", res)
	}

	if _, err := svc.IngestStatement(ctx, readStatement(t, "citic/8001234/20190103.txt"), "20190103.txt"); err != nil {
		t.Fatalf("ingest second day: %v", err)
	}

	// Same account and date, different bytes.
	res, err = svc.IngestStatement(ctx, append(first, '\n'), "resent.txt")
	if err != nil {
		t.Fatalf("ingest duplicate: %v", err)
	}
	if !res.Duplicate || res.DiscrepanciesDetected != 1 {
		t.Errorf("expected duplicate finding, got %+v", res)
	}
	dups, _, err := discRepo.List(ctx, repository.DiscrepancyFilter{Type: string(domain.DiscrepancyDuplicateStatement)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dups) != 1 || dups[0].File != "resent.txt" {
		t.Errorf("expected one stored duplicate finding, got %+v", dups)
	}
}

func TestIngestStatementRunsChecks(t *testing.T) {
	ctx := context.Background()
	svc, discRepo := newTestService(t)
	for _, name := range []string{"20190102.txt", "20190103.txt"} {
		if _, err := svc.IngestStatement(ctx, readStatement(t, "citic/8001234/"+name), name); err != nil {
			t.Fatalf("ingest %s: %v", name, err)
		}
	}

	// Opening balance no longer chains from the previous close.
	data := string(readStatement(t, "citic/8001234/20190107.txt"))
	data = strings.Replace(data, "1,084,127.50", "1,084,000.00", 1)
	data = strings.Replace(data, "-1,127.50", "-1,000.00", 1)
	res, err := svc.IngestStatement(ctx, []byte(data), "20190107.txt")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.DiscrepanciesDetected != 1 {
		t.Fatalf("expected one continuity finding, got %+v", res)
	}
	found, _, err := discRepo.List(ctx, repository.DiscrepancyFilter{Type: string(domain.DiscrepancyContinuity)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(found) != 1 || found[0].Severity != domain.SeverityHigh {
		t.Errorf("expected one HIGH continuity finding, got %+v", found)
	}
}

func TestIngestStatementCountsIdentityOnce(t *testing.T) {
	ctx := context.Background()
	svc, discRepo := newTestService(t)
	data := strings.Replace(string(readStatement(t, "citic/8001234/20190102.txt")), "2,300.00", "2,400.00", 1)

	res, err := svc.IngestStatement(ctx, []byte(data), "20190102.txt")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.DiscrepanciesDetected != 1 {
		t.Fatalf("expected one identity finding, got %+v", res)
	}
	found, total, err := discRepo.List(ctx, repository.DiscrepancyFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(found) != 1 || found[0].Type != domain.DiscrepancyBalanceIdentity {
		t.Errorf("expected one stored identity finding, got %d: %+v", total, found)
	}
}

func TestIngestStatementParseError(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.IngestStatement(context.Background(), []byte("garbage"), "bad.txt")
	var perr *domain.StructuralParseError
	if !errors.As(err, &perr) || perr.File != "bad.txt" {
		t.Fatalf("expected structural parse error, got %v", err)
	}
}
