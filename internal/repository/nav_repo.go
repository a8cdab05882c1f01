package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ctpnav/reconciler/internal/domain"
)

const rowColumns = `run_id, account_id, date, seq, placeholder, total,
	balance_bf, bank_transfer, fee_rebate, interest_rebate, declaration_fee, deposit_withdrawal,
	realized_pl, mtm_pl, commission,
	commission_cffex, commission_ine, commission_shfe, commission_czce, commission_dce_ind, commission_dce_agr,
	balance_cf, real_pl, real_units, real_nav,
	instant_fee_rebate, instant_balance, instant_pl, instant_units, instant_nav`

// NavRepo stores pipeline runs and the NAV rows they produced.
type NavRepo struct {
	db *sql.DB
}

func NewNavRepo(db *sql.DB) *NavRepo {
	return &NavRepo{db: db}
}

func (r *NavRepo) InsertRun(ctx context.Context, run *domain.Run) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, start_date, end_date, files, failures, accounts, discrepancies, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Start.Format(domain.DateLayout), run.End.Format(domain.DateLayout),
		run.Files, run.Failures, run.Accounts, run.Discrepancies,
		run.StartedAt.Format(time.RFC3339), run.FinishedAt.Format(time.RFC3339),
	)
	return err
}

// LatestRun returns the most recently finished run, or nil when none exists.
func (r *NavRepo) LatestRun(ctx context.Context) (*domain.Run, error) {
	var (
		run                       domain.Run
		start, end, began, finish string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, start_date, end_date, files, failures, accounts, discrepancies, started_at, finished_at
		FROM runs ORDER BY finished_at DESC, id LIMIT 1`,
	).Scan(&run.ID, &start, &end, &run.Files, &run.Failures, &run.Accounts, &run.Discrepancies, &began, &finish)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.Start, _ = time.Parse(domain.DateLayout, start)
	run.End, _ = time.Parse(domain.DateLayout, end)
	run.StartedAt, _ = time.Parse(time.RFC3339, began)
	run.FinishedAt, _ = time.Parse(time.RFC3339, finish)
	return &run, nil
}

// InsertRows stores one account's output rows for a run, in order.
func (r *NavRepo) InsertRows(ctx context.Context, runID string, rows []domain.Row) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO nav_rows (`+rowColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range rows {
		row := &rows[i]
		ex := row.Exchange
		res, err := stmt.ExecContext(ctx,
			runID, row.AccountID, row.Date.Format(domain.DateLayout), i, row.Placeholder, row.Total,
			row.BalanceBF, row.BankTransfer, row.FeeRebate, row.InterestRebate, row.DeclarationFee, row.DepositWithdrawal,
			row.RealizedPL, row.MTMPL, row.Commission,
			ex[0], ex[1], ex[2], ex[3], ex[4], ex[5],
			row.BalanceCF, row.RealPL, row.Real.Units, row.Real.NAV,
			row.InstantFeeRebate, row.Instant.Balance, row.InstantPL, row.Instant.Units, row.Instant.NAV,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// ListRows returns one account's rows for a run in output order.
func (r *NavRepo) ListRows(ctx context.Context, runID, accountID string) ([]domain.Row, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+rowColumns+" FROM nav_rows WHERE run_id = ? AND account_id = ? ORDER BY seq",
		runID, accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Row
	for rows.Next() {
		var (
			row       domain.Row
			run, date string
			seq       int
		)
		ex := &row.Exchange
		if err := rows.Scan(
			&run, &row.AccountID, &date, &seq, &row.Placeholder, &row.Total,
			&row.BalanceBF, &row.BankTransfer, &row.FeeRebate, &row.InterestRebate, &row.DeclarationFee, &row.DepositWithdrawal,
			&row.RealizedPL, &row.MTMPL, &row.Commission,
			&ex[0], &ex[1], &ex[2], &ex[3], &ex[4], &ex[5],
			&row.BalanceCF, &row.RealPL, &row.Real.Units, &row.Real.NAV,
			&row.InstantFeeRebate, &row.Instant.Balance, &row.InstantPL, &row.Instant.Units, &row.Instant.NAV,
		); err != nil {
			return nil, err
		}
		row.Date, _ = time.Parse(domain.DateLayout, date)
		row.Real.Balance = row.BalanceCF
		out = append(out, row)
	}
	return out, rows.Err()
}
