package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ctpnav/reconciler/internal/domain"
)

type DiscrepancyRepo struct {
	db *sql.DB
}

func NewDiscrepancyRepo(db *sql.DB) *DiscrepancyRepo {
	return &DiscrepancyRepo{db: db}
}

// BulkInsert stores discrepancies, skipping IDs already present. Discrepancy
// IDs are deterministic, so re-detecting the same finding is a no-op.
func (r *DiscrepancyRepo) BulkInsert(ctx context.Context, discs []domain.Discrepancy) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO discrepancies
		(id, type, account_id, date, file, expected, actual, difference, severity, description, detected_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range discs {
		d := &discs[i]
		res, err := stmt.ExecContext(ctx,
			d.ID, string(d.Type), d.AccountID, d.Date.Format(domain.DateLayout), d.File,
			d.Expected, d.Actual, d.Difference,
			string(d.Severity), d.Description, d.DetectedAt.Format(time.RFC3339),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

type DiscrepancyFilter struct {
	Type      string
	Severity  string
	AccountID string
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

func (r *DiscrepancyRepo) List(ctx context.Context, f DiscrepancyFilter) ([]domain.Discrepancy, int, error) {
	where, args := buildDiscrepancyWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM discrepancies"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	q := "SELECT * FROM discrepancies" + where + " ORDER BY date DESC, id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	discs, err := scanDiscrepancies(rows)
	return discs, total, err
}

type DiscrepancySummary struct {
	TotalCount      int                `json:"total_count"`
	TotalImpact     float64            `json:"total_impact"`
	ByType          map[string]int     `json:"by_type"`
	BySeverity      map[string]int     `json:"by_severity"`
	ByAccount       map[string]int     `json:"by_account"`
	ImpactByAccount map[string]float64 `json:"impact_by_account"`
}

func (r *DiscrepancyRepo) GetSummary(ctx context.Context) (*DiscrepancySummary, error) {
	s := &DiscrepancySummary{
		ByType:          make(map[string]int),
		BySeverity:      make(map[string]int),
		ByAccount:       make(map[string]int),
		ImpactByAccount: make(map[string]float64),
	}

	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(ABS(difference)),0) FROM discrepancies",
	).Scan(&s.TotalCount, &s.TotalImpact); err != nil {
		return nil, err
	}

	if err := r.scanGroupCount(ctx, "type", s.ByType); err != nil {
		return nil, err
	}
	if err := r.scanGroupCount(ctx, "severity", s.BySeverity); err != nil {
		return nil, err
	}
	if err := r.scanGroupCount(ctx, "account_id", s.ByAccount); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT account_id, COALESCE(SUM(ABS(difference)),0) FROM discrepancies GROUP BY account_id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a string
		var v float64
		if err := rows.Scan(&a, &v); err != nil {
			return nil, err
		}
		s.ImpactByAccount[a] = v
	}

	return s, rows.Err()
}

// ClearTypes removes discrepancies of the given types for one account, or for
// every account when accountID is empty.
func (r *DiscrepancyRepo) ClearTypes(ctx context.Context, accountID string, types ...domain.DiscrepancyType) error {
	if len(types) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
	args := make([]any, 0, len(types)+1)
	for _, t := range types {
		args = append(args, string(t))
	}
	q := "DELETE FROM discrepancies WHERE type IN (" + placeholders + ")"
	if accountID != "" {
		q += " AND account_id = ?"
		args = append(args, accountID)
	}
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// --- helpers ---

func buildDiscrepancyWhere(f DiscrepancyFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, f.Type)
	}
	if f.Severity != "" {
		clauses = append(clauses, "severity = ?")
		args = append(args, f.Severity)
	}
	if f.AccountID != "" {
		clauses = append(clauses, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.From != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.From.Format(domain.DateLayout))
	}
	if f.To != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.To.Format(domain.DateLayout))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *DiscrepancyRepo) scanGroupCount(ctx context.Context, col string, m map[string]int) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+col+", COUNT(*) FROM discrepancies GROUP BY "+col,
	)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var v int
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		m[k] = v
	}
	return rows.Err()
}

func scanDiscrepancies(rows *sql.Rows) ([]domain.Discrepancy, error) {
	var discs []domain.Discrepancy
	for rows.Next() {
		var d domain.Discrepancy
		var dtype, sev, date, detectedAt string

		err := rows.Scan(
			&d.ID, &dtype, &d.AccountID, &date, &d.File,
			&d.Expected, &d.Actual, &d.Difference,
			&sev, &d.Description, &detectedAt,
		)
		if err != nil {
			return nil, err
		}

		d.Type = domain.DiscrepancyType(dtype)
		d.Severity = domain.Severity(sev)
		d.Date, _ = time.Parse(domain.DateLayout, date)
		d.DetectedAt, _ = time.Parse(time.RFC3339, detectedAt)

		discs = append(discs, d)
	}
	return discs, rows.Err()
}
