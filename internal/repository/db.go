package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dsn == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS statement_files (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			file_hash TEXT UNIQUE NOT NULL,
			account_id TEXT NOT NULL,
			date TEXT NOT NULL,
			ingested_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_statement_files_account ON statement_files(account_id)`,

		`CREATE TABLE IF NOT EXISTS settlement_days (
			account_id TEXT NOT NULL,
			date TEXT NOT NULL,
			account_name TEXT NOT NULL,
			broker TEXT NOT NULL,
			balance_bf REAL NOT NULL,
			balance_cf REAL NOT NULL,
			deposit_withdrawal REAL NOT NULL,
			realized_pl REAL NOT NULL,
			mtm_pl REAL NOT NULL,
			commission REAL NOT NULL,
			delivery_fee REAL NOT NULL,
			has_delivery_fee INTEGER NOT NULL,
			commission_cffex REAL NOT NULL,
			commission_ine REAL NOT NULL,
			commission_shfe REAL NOT NULL,
			commission_czce REAL NOT NULL,
			commission_dce_ind REAL NOT NULL,
			commission_dce_agr REAL NOT NULL,
			bank_transfer REAL NOT NULL,
			fee_rebate REAL NOT NULL,
			interest_rebate REAL NOT NULL,
			declaration_fee REAL NOT NULL,
			other_flow REAL NOT NULL,
			source_file TEXT NOT NULL,
			PRIMARY KEY (account_id, date)
		)`,

		`CREATE TABLE IF NOT EXISTS cash_flow_events (
			account_id TEXT NOT NULL,
			date TEXT NOT NULL,
			seq INTEGER NOT NULL,
			event_date TEXT NOT NULL,
			category TEXT NOT NULL,
			type_label TEXT NOT NULL,
			deposit REAL NOT NULL,
			withdrawal REAL NOT NULL,
			comment TEXT NOT NULL,
			PRIMARY KEY (account_id, date, seq),
			FOREIGN KEY (account_id, date) REFERENCES settlement_days(account_id, date) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cash_flow_events_category ON cash_flow_events(category)`,

		`CREATE TABLE IF NOT EXISTS discrepancies (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			account_id TEXT NOT NULL,
			date TEXT NOT NULL,
			file TEXT NOT NULL,
			expected REAL NOT NULL,
			actual REAL NOT NULL,
			difference REAL NOT NULL,
			severity TEXT NOT NULL,
			description TEXT NOT NULL,
			detected_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_type ON discrepancies(type)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_severity ON discrepancies(severity)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_account ON discrepancies(account_id)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			files INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			accounts INTEGER NOT NULL,
			discrepancies INTEGER NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS nav_rows (
			run_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			date TEXT NOT NULL,
			seq INTEGER NOT NULL,
			placeholder INTEGER NOT NULL,
			total INTEGER NOT NULL,
			balance_bf REAL NOT NULL,
			bank_transfer REAL NOT NULL,
			fee_rebate REAL NOT NULL,
			interest_rebate REAL NOT NULL,
			declaration_fee REAL NOT NULL,
			deposit_withdrawal REAL NOT NULL,
			realized_pl REAL NOT NULL,
			mtm_pl REAL NOT NULL,
			commission REAL NOT NULL,
			commission_cffex REAL NOT NULL,
			commission_ine REAL NOT NULL,
			commission_shfe REAL NOT NULL,
			commission_czce REAL NOT NULL,
			commission_dce_ind REAL NOT NULL,
			commission_dce_agr REAL NOT NULL,
			balance_cf REAL NOT NULL,
			real_pl REAL NOT NULL,
			real_units REAL NOT NULL,
			real_nav REAL NOT NULL,
			instant_fee_rebate REAL NOT NULL,
			instant_balance REAL NOT NULL,
			instant_pl REAL NOT NULL,
			instant_units REAL NOT NULL,
			instant_nav REAL NOT NULL,
			PRIMARY KEY (run_id, account_id, seq),
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
