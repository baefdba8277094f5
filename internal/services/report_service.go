package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fleetledger/internal/core"
	"fleetledger/internal/storage"
)

// portfolioConcurrency caps how many investor reports are built in parallel.
const portfolioConcurrency = 4

// InvestorReport is an investor summary with optional per-vehicle projections
type InvestorReport struct {
	core.InvestorFinancialSummary
	Projections []core.ROIProjection `json:"projections,omitempty"`
}

// ReportService builds financial reports on top of the ledger storage
type ReportService struct {
	storage *storage.SQLiteRepository
}

func NewReportService(storage *storage.SQLiteRepository) *ReportService {
	return &ReportService{storage: storage}
}

// VehicleSummary aggregates all ledger activity for one vehicle
func (s *ReportService) VehicleSummary(ctx context.Context, vehicleID string) (core.VehicleFinancialSummary, error) {
	if _, err := s.storage.GetVehicle(ctx, vehicleID); err != nil {
		return core.VehicleFinancialSummary{}, fmt.Errorf("load vehicle: %w", err)
	}

	records, err := s.storage.ListLedgerEntriesByVehicle(ctx, vehicleID)
	if err != nil {
		return core.VehicleFinancialSummary{}, fmt.Errorf("list ledger entries: %w", err)
	}

	summary, err := core.AggregateVehicle(vehicleID, records)
	if err != nil {
		return core.VehicleFinancialSummary{}, fmt.Errorf("aggregate vehicle %s: %w", vehicleID, err)
	}
	return summary, nil
}

// VehicleMonthly groups a vehicle's ledger activity into month buckets,
// most recent month first
func (s *ReportService) VehicleMonthly(ctx context.Context, vehicleID string) ([]core.MonthlyBucket, error) {
	if _, err := s.storage.GetVehicle(ctx, vehicleID); err != nil {
		return nil, fmt.Errorf("load vehicle: %w", err)
	}

	records, err := s.storage.ListLedgerEntriesByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	buckets, err := core.Bucketize(records)
	if err != nil {
		return nil, fmt.Errorf("bucketize vehicle %s: %w", vehicleID, err)
	}
	return buckets, nil
}

// VehicleProjection computes the annual ROI projection from the vehicle's
// financial configuration
func (s *ReportService) VehicleProjection(ctx context.Context, vehicleID string) (core.ROIProjection, error) {
	vehicle, err := s.storage.GetVehicle(ctx, vehicleID)
	if err != nil {
		return core.ROIProjection{}, fmt.Errorf("load vehicle: %w", err)
	}

	return s.vehicleProjection(vehicle)
}

// vehicleProjection validates the stored config before projecting so a bad
// row fails loudly on every read path, not just the vehicle endpoint.
func (s *ReportService) vehicleProjection(vehicle storage.Vehicle) (core.ROIProjection, error) {
	if err := vehicle.Config.Validate(); err != nil {
		return core.ROIProjection{}, fmt.Errorf("vehicle %s config: %w", vehicle.ID, err)
	}
	return core.ProjectROI(vehicle.Config), nil
}

// InvestorSummary rolls up all of an investor's vehicles, optionally
// attaching an ROI projection per vehicle
func (s *ReportService) InvestorSummary(ctx context.Context, investorID string, withProjections bool) (InvestorReport, error) {
	investor, err := s.storage.GetInvestor(ctx, investorID)
	if err != nil {
		return InvestorReport{}, fmt.Errorf("load investor: %w", err)
	}

	return s.buildInvestorReport(ctx, investor, withProjections)
}

// Portfolio builds a summary for every investor, fanning out one report per
// investor
func (s *ReportService) Portfolio(ctx context.Context) ([]InvestorReport, error) {
	investors, err := s.storage.ListInvestors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list investors: %w", err)
	}

	reports := make([]InvestorReport, len(investors))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(portfolioConcurrency)

	for i, investor := range investors {
		g.Go(func() error {
			report, err := s.buildInvestorReport(ctx, investor, false)
			if err != nil {
				return fmt.Errorf("investor %s: %w", investor.ID, err)
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *ReportService) buildInvestorReport(ctx context.Context, investor core.Investor, withProjections bool) (InvestorReport, error) {
	vehicleIDs, err := s.storage.ListVehicleIDsByInvestor(ctx, investor.ID)
	if err != nil {
		return InvestorReport{}, fmt.Errorf("list vehicles: %w", err)
	}

	records, err := s.storage.ListLedgerEntriesByInvestor(ctx, investor.ID)
	if err != nil {
		return InvestorReport{}, fmt.Errorf("list ledger entries: %w", err)
	}

	summary, err := core.BuildInvestorSummary(investor, vehicleIDs, records)
	if err != nil {
		return InvestorReport{}, fmt.Errorf("build summary: %w", err)
	}

	report := InvestorReport{InvestorFinancialSummary: summary}
	if withProjections {
		report.Projections = make([]core.ROIProjection, 0, len(vehicleIDs))
		for _, vehicleID := range vehicleIDs {
			vehicle, err := s.storage.GetVehicle(ctx, vehicleID)
			if err != nil {
				return InvestorReport{}, fmt.Errorf("load vehicle %s: %w", vehicleID, err)
			}
			proj, err := s.vehicleProjection(vehicle)
			if err != nil {
				return InvestorReport{}, err
			}
			report.Projections = append(report.Projections, proj)
		}
	}

	return report, nil
}
