package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoStatements is returned when an account has no statement in range.
	ErrNoStatements = errors.New("reconciler: no statements")
	// ErrStatementNotFound is returned when a stored statement is not found.
	ErrStatementNotFound = errors.New("reconciler: statement not found")
	// ErrEmptySchedule is returned when a rebate schedule has no entries.
	ErrEmptySchedule = errors.New("reconciler: empty rebate schedule")
)

// MissingFieldError reports a labeled field or section that could not be located.
type MissingFieldError struct {
	Section string
	Field   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q in section %q", e.Field, e.Section)
}

// StructuralParseError is fatal for one statement file.
type StructuralParseError struct {
	File string
	Err  error
}

func (e *StructuralParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *StructuralParseError) Unwrap() error { return e.Err }

// ScheduleCoverageError is returned when a date has zero or several matching
// rebate schedule entries.
type ScheduleCoverageError struct {
	Date    time.Time
	Matches int
}

func (e *ScheduleCoverageError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("rebate schedule does not cover %s", e.Date.Format(DateLayout))
	}
	return fmt.Sprintf("rebate schedule has %d overlapping entries for %s", e.Matches, e.Date.Format(DateLayout))
}
