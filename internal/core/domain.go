package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	Income  RecordKind = "income"
	Expense RecordKind = "expense"
)

type (
	// RecordKind tells whether a ledger record adds to or subtracts from a
	// vehicle's balance. The amount itself is always a non-negative magnitude.
	RecordKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// LedgerRecord is one dated financial event tied to a vehicle. Records are
	// immutable once written; every report recomputes from the current set.
	LedgerRecord struct {
		ID          string
		VehicleID   string
		Kind        RecordKind
		Category    string
		Amount      Money
		Date        Date
		Description string
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrMissingVehicle = errors.New("missing vehicle reference")
)

// DataError marks a ledger record that must not reach any aggregate: an
// unparseable date or a negative amount. It halts the computation instead of
// silently corrupting totals.
type DataError struct {
	RecordID string
	Field    string
	Reason   string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("ledger record %s: bad %s: %s", e.RecordID, e.Field, e.Reason)
}

func (k RecordKind) Valid() bool {
	return k == Income || k == Expense
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// MonthKey returns the calendar year-month bucket key, e.g. "2024-03".
// Zero-padded so lexicographic order equals chronological order.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate reports the first DataError in the record, if any. Kind, date and
// amount must all be well-formed before the record may be aggregated.
func (r LedgerRecord) Validate() error {
	if r.VehicleID == "" {
		return ErrMissingVehicle
	}
	if !r.Kind.Valid() {
		return &DataError{RecordID: r.ID, Field: "kind", Reason: "must be income or expense"}
	}
	if err := r.Date.Validate(); err != nil {
		return &DataError{RecordID: r.ID, Field: "date", Reason: err.Error()}
	}
	if r.Amount.Cents < 0 {
		return &DataError{RecordID: r.ID, Field: "amount", Reason: "must be non-negative"}
	}
	return nil
}
