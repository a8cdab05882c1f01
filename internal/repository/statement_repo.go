package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ctpnav/reconciler/internal/domain"
)

const dayColumns = `account_id, date, account_name, broker, balance_bf, balance_cf,
	deposit_withdrawal, realized_pl, mtm_pl, commission, delivery_fee, has_delivery_fee,
	commission_cffex, commission_ine, commission_shfe, commission_czce, commission_dce_ind, commission_dce_agr,
	bank_transfer, fee_rebate, interest_rebate, declaration_fee, other_flow, source_file`

type StatementRepo struct {
	db *sql.DB
}

func NewStatementRepo(db *sql.DB) *StatementRepo {
	return &StatementRepo{db: db}
}

// FileExistsByHash checks whether a statement file with the given hash has
// already been ingested (idempotency check).
func (r *StatementRepo) FileExistsByHash(ctx context.Context, hash string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM statement_files WHERE file_hash = ?", hash,
	).Scan(&count)
	return count > 0, err
}

func (r *StatementRepo) InsertFile(ctx context.Context, f *domain.StatementFile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO statement_files (id, name, file_hash, account_id, date, ingested_at)
		VALUES (?,?,?,?,?,?)`,
		f.ID, f.Name, f.Hash, f.AccountID, f.Date.Format(domain.DateLayout), f.IngestedAt.Format(time.RFC3339),
	)
	return err
}

// Exists reports whether a statement for the (account, date) key is stored.
func (r *StatementRepo) Exists(ctx context.Context, key domain.StatementKey) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM settlement_days WHERE account_id = ? AND date = ?", key.AccountID, key.Date,
	).Scan(&count)
	return count > 0, err
}

// InsertDays stores statements with their cash-flow events. Statements whose
// (account, date) key already exists are skipped; the count of new rows is
// returned.
func (r *StatementRepo) InsertDays(ctx context.Context, days []*domain.SettlementDay) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	dayStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO settlement_days (`+dayColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare day: %w", err)
	}
	defer dayStmt.Close()

	eventStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cash_flow_events
		(account_id, date, seq, event_date, category, type_label, deposit, withdrawal, comment)
		VALUES (?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare event: %w", err)
	}
	defer eventStmt.Close()

	inserted := 0
	for i, d := range days {
		date := d.Date.Format(domain.DateLayout)
		ex := d.ExchangeCommission
		res, err := dayStmt.ExecContext(ctx,
			d.AccountID, date, d.AccountName, d.Broker, d.BalanceBF, d.BalanceCF,
			d.DepositWithdrawal, d.RealizedPL, d.MTMPL, d.Commission, d.DeliveryFee, d.HasDeliveryFee,
			ex[0], ex[1], ex[2], ex[3], ex[4], ex[5],
			d.BankTransfer, d.FeeRebate, d.InterestRebate, d.DeclarationFee, d.OtherFlow, d.SourceFile,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert day %d: %w", i, err)
		}
		if ra, _ := res.RowsAffected(); ra == 0 {
			continue
		}
		inserted++
		for seq, e := range d.CashFlows {
			if _, err := eventStmt.ExecContext(ctx,
				d.AccountID, date, seq, e.Date.Format(domain.DateLayout), string(e.Category),
				e.TypeLabel, e.Deposit, e.Withdrawal, e.Comment,
			); err != nil {
				return inserted, fmt.Errorf("insert event %s/%s/%d: %w", d.AccountID, date, seq, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// Get returns one stored statement or domain.ErrStatementNotFound.
func (r *StatementRepo) Get(ctx context.Context, accountID string, date time.Time) (*domain.SettlementDay, error) {
	days, err := r.ListDays(ctx, DayFilter{AccountID: accountID, From: &date, To: &date})
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, domain.ErrStatementNotFound
	}
	return days[0], nil
}

type DayFilter struct {
	AccountID string
	From      *time.Time
	To        *time.Time
}

// ListDays returns statements ordered by account and date, with their
// cash-flow events attached.
func (r *StatementRepo) ListDays(ctx context.Context, f DayFilter) ([]*domain.SettlementDay, error) {
	where, args := buildDayWhere(f)

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+dayColumns+" FROM settlement_days"+where+" ORDER BY account_id, date", args...)
	if err != nil {
		return nil, err
	}
	var days []*domain.SettlementDay
	index := map[domain.StatementKey]*domain.SettlementDay{}
	for rows.Next() {
		d, err := scanSettlementDay(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		days = append(days, d)
		index[d.Key()] = d
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, nil
	}

	events, err := r.db.QueryContext(ctx,
		`SELECT account_id, date, event_date, category, type_label, deposit, withdrawal, comment
		FROM cash_flow_events`+where+" ORDER BY account_id, date, seq", args...)
	if err != nil {
		return nil, err
	}
	defer events.Close()
	for events.Next() {
		var (
			key            domain.StatementKey
			eventDate, cat string
			e              domain.CashFlowEvent
		)
		if err := events.Scan(&key.AccountID, &key.Date, &eventDate, &cat,
			&e.TypeLabel, &e.Deposit, &e.Withdrawal, &e.Comment); err != nil {
			return nil, err
		}
		e.Date, _ = time.Parse(domain.DateLayout, eventDate)
		e.Category = domain.CashFlowCategory(cat)
		if d, ok := index[key]; ok {
			d.CashFlows = append(d.CashFlows, e)
		}
	}
	return days, events.Err()
}

// AccountSummary describes one account's stored statements.
type AccountSummary struct {
	AccountID   string    `json:"account_id"`
	AccountName string    `json:"account_name"`
	Broker      string    `json:"broker"`
	Statements  int       `json:"statements"`
	FirstDate   time.Time `json:"first_date"`
	LastDate    time.Time `json:"last_date"`
}

func (r *StatementRepo) ListAccounts(ctx context.Context) ([]AccountSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT account_id, MAX(account_name), MAX(broker), COUNT(*), MIN(date), MAX(date)
		FROM settlement_days GROUP BY account_id ORDER BY account_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AccountSummary
	for rows.Next() {
		var a AccountSummary
		var first, last string
		if err := rows.Scan(&a.AccountID, &a.AccountName, &a.Broker, &a.Statements, &first, &last); err != nil {
			return nil, err
		}
		a.FirstDate, _ = time.Parse(domain.DateLayout, first)
		a.LastDate, _ = time.Parse(domain.DateLayout, last)
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- helpers ---

func buildDayWhere(f DayFilter) (string, []any) {
	var clauses []string
	var args []any

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

func scanSettlementDay(rows *sql.Rows) (*domain.SettlementDay, error) {
	var d domain.SettlementDay
	var date string
	ex := &d.ExchangeCommission

	err := rows.Scan(
		&d.AccountID, &date, &d.AccountName, &d.Broker, &d.BalanceBF, &d.BalanceCF,
		&d.DepositWithdrawal, &d.RealizedPL, &d.MTMPL, &d.Commission, &d.DeliveryFee, &d.HasDeliveryFee,
		&ex[0], &ex[1], &ex[2], &ex[3], &ex[4], &ex[5],
		&d.BankTransfer, &d.FeeRebate, &d.InterestRebate, &d.DeclarationFee, &d.OtherFlow, &d.SourceFile,
	)
	if err != nil {
		return nil, err
	}
	if d.Date, err = time.Parse(domain.DateLayout, date); err != nil {
		return nil, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	return &d, nil
}
