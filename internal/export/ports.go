package export

import (
	"context"

	"fleetledger/internal/core"
)

// Ports for outbound report adapters.
type (
	// ReportWriter appends rendered reports to an external destination.
	ReportWriter interface {
		// WriteInvestorSummary appends one summary row and returns a
		// destination-specific reference to it.
		WriteInvestorSummary(ctx context.Context, summary core.InvestorFinancialSummary) (rowRef string, err error)

		// WriteMonthlyBuckets appends one row per month bucket for a vehicle.
		WriteMonthlyBuckets(ctx context.Context, vehicleID string, buckets []core.MonthlyBucket) (rowRef string, err error)
	}
)
