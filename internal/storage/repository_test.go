package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fleetledger/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedFleet(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	ctx := context.Background()

	if err := repo.CreateInvestor(ctx, core.Investor{ID: "i1", Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("create investor: %v", err)
	}
	days := 240
	pct := 20.0
	if err := repo.CreateVehicle(ctx, Vehicle{
		ID:         "v1",
		InvestorID: "i1",
		Name:       "Sedan A",
		Config: core.VehicleFinancialConfig{
			PurchasePriceCents:    1_000_000,
			DailyRentalPriceCents: 10_000,
			ExpectedOccupancyDays: &days,
			ApplyManagementFee:    true,
			ManagementFeeType:     core.FeePercentage,
			ManagementFeePercent:  &pct,
		},
	}); err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	if err := repo.CreateVehicle(ctx, Vehicle{ID: "v2", InvestorID: "i1", Name: "Sedan B"}); err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
}

func TestCreateVehicleRejectsInvalidConfig(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	days := 400
	pct := 150.0
	tests := []struct {
		name   string
		config core.VehicleFinancialConfig
	}{
		{
			name:   "occupancy out of range",
			config: core.VehicleFinancialConfig{ExpectedOccupancyDays: &days},
		},
		{
			name:   "fee percent out of range",
			config: core.VehicleFinancialConfig{ManagementFeePercent: &pct},
		},
		{
			name: "unknown fee type with fee enabled",
			config: core.VehicleFinancialConfig{
				ApplyManagementFee: true,
				ManagementFeeType:  "commission",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.CreateVehicle(ctx, Vehicle{ID: "bad", Config: tt.config})
			if err == nil {
				t.Fatal("expected invalid config to be rejected")
			}
			if _, err := repo.GetVehicle(ctx, "bad"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("rejected vehicle must not be persisted, got %v", err)
			}
		})
	}
}

func TestLedgerEntryRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	seedFleet(t, repo)
	ctx := context.Background()

	rec := core.LedgerRecord{
		ID:          "r1",
		VehicleID:   "v1",
		Kind:        core.Income,
		Category:    "Rent",
		Amount:      core.Money{Cents: 50000},
		Date:        core.NewDate(2024, 1, 10),
		Description: "january rental",
	}
	if err := repo.CreateLedgerEntry(ctx, rec); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	got, err := repo.GetLedgerEntry(ctx, "r1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got != rec {
		t.Fatalf("round trip mismatch: expected %+v, got %+v", rec, got)
	}
}

func TestCreateLedgerEntryRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	seedFleet(t, repo)

	err := repo.CreateLedgerEntry(context.Background(), core.LedgerRecord{
		ID: "bad", VehicleID: "v1", Kind: core.Income,
		Amount: core.Money{Cents: -1}, Date: core.NewDate(2024, 1, 1),
	})
	var de *core.DataError
	if !errors.As(err, &de) {
		t.Fatalf("expected DataError, got %v", err)
	}
}

func TestListLedgerEntriesByVehicleAndInvestor(t *testing.T) {
	repo := newTestRepo(t)
	seedFleet(t, repo)
	ctx := context.Background()

	entries := []core.LedgerRecord{
		{ID: "r1", VehicleID: "v1", Kind: core.Income, Amount: core.Money{Cents: 50000}, Date: core.NewDate(2024, 1, 10)},
		{ID: "r2", VehicleID: "v1", Kind: core.Expense, Amount: core.Money{Cents: 10000}, Date: core.NewDate(2024, 1, 15)},
		{ID: "r3", VehicleID: "v2", Kind: core.Income, Amount: core.Money{Cents: 30000}, Date: core.NewDate(2024, 2, 1)},
	}
	for _, e := range entries {
		if err := repo.CreateLedgerEntry(ctx, e); err != nil {
			t.Fatalf("create entry %s: %v", e.ID, err)
		}
	}

	byVehicle, err := repo.ListLedgerEntriesByVehicle(ctx, "v1")
	if err != nil {
		t.Fatalf("list by vehicle: %v", err)
	}
	if len(byVehicle) != 2 {
		t.Fatalf("expected 2 entries for v1, got %d", len(byVehicle))
	}

	byInvestor, err := repo.ListLedgerEntriesByInvestor(ctx, "i1")
	if err != nil {
		t.Fatalf("list by investor: %v", err)
	}
	if len(byInvestor) != 3 {
		t.Fatalf("expected 3 entries for i1, got %d", len(byInvestor))
	}

	// Soft delete removes the entry from every listing.
	if err := repo.SoftDeleteLedgerEntry(ctx, "r2"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	byVehicle, err = repo.ListLedgerEntriesByVehicle(ctx, "v1")
	if err != nil {
		t.Fatalf("list by vehicle after delete: %v", err)
	}
	if len(byVehicle) != 1 {
		t.Fatalf("expected 1 entry for v1 after delete, got %d", len(byVehicle))
	}
	if _, err := repo.GetLedgerEntry(ctx, "r2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted entry, got %v", err)
	}
}

func TestSoftDeleteMissingEntry(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.SoftDeleteLedgerEntry(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVehicleConfigRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	seedFleet(t, repo)
	ctx := context.Background()

	v, err := repo.GetVehicle(ctx, "v1")
	if err != nil {
		t.Fatalf("get vehicle: %v", err)
	}
	if v.Config.VehicleID != "v1" || v.InvestorID != "i1" {
		t.Fatalf("identity not mapped: %+v", v)
	}
	if v.Config.ExpectedOccupancyDays == nil || *v.Config.ExpectedOccupancyDays != 240 {
		t.Fatalf("occupancy not round-tripped: %+v", v.Config)
	}
	if v.Config.ManagementFeePercent == nil || *v.Config.ManagementFeePercent != 20 {
		t.Fatalf("fee percent not round-tripped: %+v", v.Config)
	}
	if v.Config.ManagementFeeFixed != nil {
		t.Fatalf("fixed fee should stay unset: %+v", v.Config)
	}

	// Unconfigured columns come back as nil pointers, not zeroes.
	v2, err := repo.GetVehicle(ctx, "v2")
	if err != nil {
		t.Fatalf("get vehicle v2: %v", err)
	}
	if v2.Config.ExpectedOccupancyDays != nil || v2.Config.ManagementFeePercent != nil {
		t.Fatalf("absent config should be nil: %+v", v2.Config)
	}
}

func TestPendingExportLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	seedFleet(t, repo)
	ctx := context.Background()

	for _, id := range []string{"r1", "r2"} {
		if err := repo.CreateLedgerEntry(ctx, core.LedgerRecord{
			ID: id, VehicleID: "v1", Kind: core.Income,
			Amount: core.Money{Cents: 1000}, Date: core.NewDate(2024, 5, 1),
		}); err != nil {
			t.Fatalf("create entry: %v", err)
		}
	}

	pending, err := repo.GetPendingExportEntries(ctx, 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending entries, got %d", len(pending))
	}

	if err := repo.MarkExported(ctx, "r1"); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	pending, err = repo.GetPendingExportEntries(ctx, 10)
	if err != nil {
		t.Fatalf("get pending after mark: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "r2" {
		t.Fatalf("expected only r2 pending, got %+v", pending)
	}

	if err := repo.MarkExportError(ctx, "r2"); err != nil {
		t.Fatalf("mark export error: %v", err)
	}
}

func TestListVehicleIDsByInvestor(t *testing.T) {
	repo := newTestRepo(t)
	seedFleet(t, repo)

	ids, err := repo.ListVehicleIDsByInvestor(context.Background(), "i1")
	if err != nil {
		t.Fatalf("list vehicle ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "v1" || ids[1] != "v2" {
		t.Fatalf("expected [v1 v2], got %v", ids)
	}
}
