package core

import (
	"errors"
	"testing"
)

func TestLedgerRecordValidate(t *testing.T) {
	valid := LedgerRecord{
		ID:        "r1",
		VehicleID: "v1",
		Kind:      Income,
		Category:  "Rent",
		Amount:    Money{Cents: 50000},
		Date:      NewDate(2024, 1, 10),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(r *LedgerRecord)
		field  string
	}{
		{"negative amount", func(r *LedgerRecord) { r.Amount.Cents = -50 }, "amount"},
		{"zero date", func(r *LedgerRecord) { r.Date = Date{} }, "date"},
		{"unknown kind", func(r *LedgerRecord) { r.Kind = "transfer" }, "kind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := valid
			tc.mutate(&r)
			err := r.Validate()
			var de *DataError
			if !errors.As(err, &de) {
				t.Fatalf("expected DataError, got %v", err)
			}
			if de.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, de.Field)
			}
			if de.RecordID != "r1" {
				t.Fatalf("expected record id r1, got %q", de.RecordID)
			}
		})
	}

	t.Run("missing vehicle", func(t *testing.T) {
		r := valid
		r.VehicleID = ""
		if err := r.Validate(); !errors.Is(err, ErrMissingVehicle) {
			t.Fatalf("expected ErrMissingVehicle, got %v", err)
		}
	})
}

func TestDateMonthKey(t *testing.T) {
	cases := []struct {
		year, month, day int
		key              string
	}{
		{2024, 3, 15, "2024-03"},
		{2024, 12, 1, "2024-12"},
		{1999, 1, 31, "1999-01"},
	}
	for _, tc := range cases {
		if got := NewDate(tc.year, tc.month, tc.day).MonthKey(); got != tc.key {
			t.Fatalf("expected %q, got %q", tc.key, got)
		}
	}
}
