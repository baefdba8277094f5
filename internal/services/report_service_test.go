package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fleetledger/internal/core"
	"fleetledger/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// seedPortfolio creates two investors: i1 with vehicles v1 and v2, i2 with
// vehicle v3, plus ledger activity for v1 and v3.
func seedPortfolio(t *testing.T, repo *storage.SQLiteRepository) {
	t.Helper()
	ctx := context.Background()

	investors := []core.Investor{
		{ID: "i1", Name: "Ada", Email: "ada@example.com"},
		{ID: "i2", Name: "Grace", Email: "grace@example.com"},
	}
	for _, inv := range investors {
		if err := repo.CreateInvestor(ctx, inv); err != nil {
			t.Fatalf("create investor %s: %v", inv.ID, err)
		}
	}

	days := 200
	pct := 25.0
	vehicles := []storage.Vehicle{
		{ID: "v1", InvestorID: "i1", Name: "Sedan A", Config: core.VehicleFinancialConfig{
			PurchasePriceCents:    1_000_000,
			DailyRentalPriceCents: 10_000,
			ExpectedOccupancyDays: &days,
			ApplyManagementFee:    true,
			ManagementFeeType:     core.FeePercentage,
			ManagementFeePercent:  &pct,
		}},
		{ID: "v2", InvestorID: "i1", Name: "Sedan B"},
		{ID: "v3", InvestorID: "i2", Name: "Van C"},
	}
	for _, v := range vehicles {
		if err := repo.CreateVehicle(ctx, v); err != nil {
			t.Fatalf("create vehicle %s: %v", v.ID, err)
		}
	}

	entries := []core.LedgerRecord{
		{ID: "r1", VehicleID: "v1", Kind: core.Income, Amount: core.Money{Cents: 50000}, Date: core.NewDate(2024, 1, 10)},
		{ID: "r2", VehicleID: "v1", Kind: core.Income, Amount: core.Money{Cents: 30000}, Date: core.NewDate(2024, 2, 5)},
		{ID: "r3", VehicleID: "v1", Kind: core.Expense, Amount: core.Money{Cents: 10000}, Date: core.NewDate(2024, 1, 20)},
		{ID: "r4", VehicleID: "v3", Kind: core.Income, Amount: core.Money{Cents: 20000}, Date: core.NewDate(2024, 3, 1)},
	}
	for _, e := range entries {
		if err := repo.CreateLedgerEntry(ctx, e); err != nil {
			t.Fatalf("create entry %s: %v", e.ID, err)
		}
	}
}

func TestVehicleSummary(t *testing.T) {
	repo := newTestStorage(t)
	seedPortfolio(t, repo)
	service := NewReportService(repo)

	summary, err := service.VehicleSummary(context.Background(), "v1")
	if err != nil {
		t.Fatalf("VehicleSummary() error = %v", err)
	}

	if summary.TotalIncome.Cents != 80000 {
		t.Errorf("TotalIncome = %d, want 80000", summary.TotalIncome.Cents)
	}
	if summary.TotalExpenses.Cents != 10000 {
		t.Errorf("TotalExpenses = %d, want 10000", summary.TotalExpenses.Cents)
	}
	if summary.NetBalance.Cents != 70000 {
		t.Errorf("NetBalance = %d, want 70000", summary.NetBalance.Cents)
	}
	if summary.TransactionCount != 3 {
		t.Errorf("TransactionCount = %d, want 3", summary.TransactionCount)
	}
}

func TestVehicleSummaryUnknownVehicle(t *testing.T) {
	repo := newTestStorage(t)
	seedPortfolio(t, repo)
	service := NewReportService(repo)

	_, err := service.VehicleSummary(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVehicleMonthly(t *testing.T) {
	repo := newTestStorage(t)
	seedPortfolio(t, repo)
	service := NewReportService(repo)

	buckets, err := service.VehicleMonthly(context.Background(), "v1")
	if err != nil {
		t.Fatalf("VehicleMonthly() error = %v", err)
	}

	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	// Most recent month first.
	if buckets[0].MonthKey != "2024-02" || buckets[1].MonthKey != "2024-01" {
		t.Errorf("bucket order = [%s %s], want [2024-02 2024-01]", buckets[0].MonthKey, buckets[1].MonthKey)
	}
	if buckets[1].Income.Cents != 50000 || buckets[1].Expenses.Cents != 10000 || buckets[1].Net.Cents != 40000 {
		t.Errorf("2024-01 bucket = %+v", buckets[1])
	}
}

func TestVehicleProjection(t *testing.T) {
	repo := newTestStorage(t)
	seedPortfolio(t, repo)
	service := NewReportService(repo)

	proj, err := service.VehicleProjection(context.Background(), "v1")
	if err != nil {
		t.Fatalf("VehicleProjection() error = %v", err)
	}

	// 10000 cents/day * 200 days = 2_000_000 gross, 25% fee, net 1_500_000.
	if proj.GrossIncome.Cents != 2_000_000 {
		t.Errorf("GrossIncome = %d, want 2000000", proj.GrossIncome.Cents)
	}
	if proj.FeeAmount.Cents != 500_000 {
		t.Errorf("FeeAmount = %d, want 500000", proj.FeeAmount.Cents)
	}
	if proj.NetIncome.Cents != 1_500_000 {
		t.Errorf("NetIncome = %d, want 1500000", proj.NetIncome.Cents)
	}
	if proj.ROIPercent != 150.0 {
		t.Errorf("ROIPercent = %v, want 150", proj.ROIPercent)
	}
}

func TestVehicleProjectionUnconfiguredVehicle(t *testing.T) {
	repo := newTestStorage(t)
	seedPortfolio(t, repo)
	service := NewReportService(repo)

	// v2 has no pricing configured: zero gross and an ROI of 0, not an error.
	proj, err := service.VehicleProjection(context.Background(), "v2")
	if err != nil {
		t.Fatalf("VehicleProjection() error = %v", err)
	}
	if proj.GrossIncome.Cents != 0 || proj.ROIPercent != 0 {
		t.Errorf("expected zero projection, got %+v", proj)
	}
}

func TestProjectionRejectsOutOfRangeConfig(t *testing.T) {
	service := NewReportService(nil)

	days := 400
	pct := 150.0
	tests := []struct {
		name   string
		config core.VehicleFinancialConfig
	}{
		{
			name:   "occupancy over a year",
			config: core.VehicleFinancialConfig{ExpectedOccupancyDays: &days},
		},
		{
			name:   "fee percent over 100",
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

	// Both the vehicle endpoint and the investor projections go through
	// vehicleProjection, so one guard covers every read path.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.vehicleProjection(storage.Vehicle{ID: "v9", Config: tt.config})
			if err == nil {
				t.Fatal("expected out-of-range config to be rejected")
			}
		})
	}
}

func TestInvestorSummary(t *testing.T) {
	repo := newTestStorage(t)
	seedPortfolio(t, repo)
	service := NewReportService(repo)

	report, err := service.InvestorSummary(context.Background(), "i1", false)
	if err != nil {
		t.Fatalf("InvestorSummary() error = %v", err)
	}

	if report.InvestorID != "i1" || report.InvestorName != "Ada" {
		t.Errorf("investor identity = %s/%s", report.InvestorID, report.InvestorName)
	}
	if report.VehicleCount != 2 {
		t.Errorf("VehicleCount = %d, want 2", report.VehicleCount)
	}
	if report.TotalIncome.Cents != 80000 || report.TotalExpenses.Cents != 10000 || report.NetBalance.Cents != 70000 {
		t.Errorf("totals = %d/%d/%d", report.TotalIncome.Cents, report.TotalExpenses.Cents, report.NetBalance.Cents)
	}
	if len(report.Projections) != 0 {
		t.Errorf("projections should be absent, got %d", len(report.Projections))
	}
}

func TestInvestorSummaryWithProjections(t *testing.T) {
	repo := newTestStorage(t)
	seedPortfolio(t, repo)
	service := NewReportService(repo)

	report, err := service.InvestorSummary(context.Background(), "i1", true)
	if err != nil {
		t.Fatalf("InvestorSummary() error = %v", err)
	}

	if len(report.Projections) != 2 {
		t.Fatalf("expected 2 projections, got %d", len(report.Projections))
	}
	if report.Projections[0].NetIncome.Cents != 1_500_000 {
		t.Errorf("v1 projection net = %d, want 1500000", report.Projections[0].NetIncome.Cents)
	}
	if report.Projections[1].GrossIncome.Cents != 0 {
		t.Errorf("v2 projection gross = %d, want 0", report.Projections[1].GrossIncome.Cents)
	}
}

func TestInvestorSummaryUnknownInvestor(t *testing.T) {
	repo := newTestStorage(t)
	service := NewReportService(repo)

	_, err := service.InvestorSummary(context.Background(), "missing", false)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPortfolio(t *testing.T) {
	repo := newTestStorage(t)
	seedPortfolio(t, repo)
	service := NewReportService(repo)

	reports, err := service.Portfolio(context.Background())
	if err != nil {
		t.Fatalf("Portfolio() error = %v", err)
	}

	if len(reports) != 2 {
		t.Fatalf("expected 2 investor reports, got %d", len(reports))
	}

	byID := map[string]InvestorReport{}
	for _, r := range reports {
		byID[r.InvestorID] = r
	}
	if byID["i1"].NetBalance.Cents != 70000 {
		t.Errorf("i1 net = %d, want 70000", byID["i1"].NetBalance.Cents)
	}
	if byID["i2"].TotalIncome.Cents != 20000 {
		t.Errorf("i2 income = %d, want 20000", byID["i2"].TotalIncome.Cents)
	}
}

func TestPortfolioEmpty(t *testing.T) {
	repo := newTestStorage(t)
	service := NewReportService(repo)

	reports, err := service.Portfolio(context.Background())
	if err != nil {
		t.Fatalf("Portfolio() error = %v", err)
	}
	if len(reports) != 0 {
		t.Fatalf("expected no reports, got %d", len(reports))
	}
}
