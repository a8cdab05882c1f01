package domain

import "time"

// StatementFile records one ingested statement file. Hash is the SHA-256 of
// the raw bytes and makes ingestion idempotent.
type StatementFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Hash       string    `json:"hash"`
	AccountID  string    `json:"account_id"`
	Date       time.Time `json:"date"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Run is one batch execution of the pipeline.
type Run struct {
	ID            string    `json:"id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Files         int       `json:"files"`
	Failures      int       `json:"failures"`
	Accounts      int       `json:"accounts"`
	Discrepancies int       `json:"discrepancies"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}
