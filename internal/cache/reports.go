package cache

import (
	"time"

	"fleetledger/internal/core"
	"fleetledger/internal/services"
)

// ReportCache holds the read caches for every report shape the API serves,
// one typed store per shape. The invalidation rules live here too: a ledger
// write to a vehicle drops that vehicle's reports, its investor's summaries
// (both variants) and the portfolio view, and nothing else.
type ReportCache struct {
	summaries   *store[core.VehicleFinancialSummary]
	monthly     *store[[]core.MonthlyBucket]
	projections *store[core.ROIProjection]
	investors   *store[services.InvestorReport]
	portfolio   *store[[]services.InvestorReport]
}

// portfolioKey is the single key of the all-investors view.
const portfolioKey = "all"

func NewReportCache(ttl time.Duration) *ReportCache {
	return &ReportCache{
		summaries:   newStore[core.VehicleFinancialSummary](200, ttl),
		monthly:     newStore[[]core.MonthlyBucket](200, ttl),
		projections: newStore[core.ROIProjection](200, ttl),
		investors:   newStore[services.InvestorReport](100, ttl),
		portfolio:   newStore[[]services.InvestorReport](1, ttl),
	}
}

// investorKey separates the plain summary from the summary-with-projections:
// projections depend on config, not ledger history, so they are cached apart.
func investorKey(investorID string, withProjections bool) string {
	if withProjections {
		return investorID + "|projections"
	}
	return investorID
}

func (c *ReportCache) VehicleSummary(vehicleID string) (core.VehicleFinancialSummary, bool) {
	return c.summaries.get(vehicleID)
}

func (c *ReportCache) SetVehicleSummary(vehicleID string, s core.VehicleFinancialSummary) {
	c.summaries.set(vehicleID, s)
}

func (c *ReportCache) VehicleMonthly(vehicleID string) ([]core.MonthlyBucket, bool) {
	return c.monthly.get(vehicleID)
}

func (c *ReportCache) SetVehicleMonthly(vehicleID string, buckets []core.MonthlyBucket) {
	c.monthly.set(vehicleID, buckets)
}

func (c *ReportCache) VehicleProjection(vehicleID string) (core.ROIProjection, bool) {
	return c.projections.get(vehicleID)
}

func (c *ReportCache) SetVehicleProjection(vehicleID string, p core.ROIProjection) {
	c.projections.set(vehicleID, p)
}

func (c *ReportCache) InvestorSummary(investorID string, withProjections bool) (services.InvestorReport, bool) {
	return c.investors.get(investorKey(investorID, withProjections))
}

func (c *ReportCache) SetInvestorSummary(investorID string, withProjections bool, r services.InvestorReport) {
	c.investors.set(investorKey(investorID, withProjections), r)
}

func (c *ReportCache) Portfolio() ([]services.InvestorReport, bool) {
	return c.portfolio.get(portfolioKey)
}

func (c *ReportCache) SetPortfolio(reports []services.InvestorReport) {
	c.portfolio.set(portfolioKey, reports)
}

// InvalidateVehicle drops every cached report a ledger write to this vehicle
// could have changed. investorID may be empty for unassigned vehicles; the
// investor summaries are left alone in that case because none include the
// vehicle.
func (c *ReportCache) InvalidateVehicle(vehicleID, investorID string) {
	c.summaries.drop(vehicleID)
	c.monthly.drop(vehicleID)
	c.projections.drop(vehicleID)
	c.portfolio.drop(portfolioKey)

	if investorID != "" {
		c.investors.drop(investorKey(investorID, false))
		c.investors.drop(investorKey(investorID, true))
	}
}
