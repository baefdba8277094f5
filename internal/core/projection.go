package core

import (
	"fmt"
	"math"
)

const (
	FeePercentage FeeType = "percentage"
	FeeFixed      FeeType = "fixed"

	// DefaultOccupancyDays is assumed when a vehicle's expected occupancy is
	// not configured.
	DefaultOccupancyDays = 240

	// DefaultFeePercent is assumed for percentage fees with no configured rate.
	DefaultFeePercent = 20.0
)

// FeeType selects how the management fee is computed: a flat amount or a
// percentage of projected gross income.
type FeeType string

// VehicleFinancialConfig holds the pricing and fee inputs for an ROI
// projection. It is independent of ledger history: two projections from equal
// configs are identical no matter what the ledger says.
//
// Pointer fields distinguish "not configured" from a configured zero; absent
// values resolve to the documented defaults rather than failing.
type VehicleFinancialConfig struct {
	VehicleID             string
	PurchasePriceCents    int64
	DailyRentalPriceCents int64
	ExpectedOccupancyDays *int
	ApplyManagementFee    bool
	ManagementFeeType     FeeType
	ManagementFeePercent  *float64
	ManagementFeeFixed    *Money
}

// ROIProjection is the forward-looking annual view computed purely from a
// vehicle's pricing configuration.
type ROIProjection struct {
	GrossIncome Money   `json:"gross_income"`
	FeeAmount   Money   `json:"fee_amount"`
	NetIncome   Money   `json:"net_income"`
	ROIPercent  float64 `json:"roi_percent"`
}

// OccupancyDays resolves the expected rental days per year, defaulting to
// DefaultOccupancyDays when unset.
func (c VehicleFinancialConfig) OccupancyDays() int {
	if c.ExpectedOccupancyDays == nil {
		return DefaultOccupancyDays
	}
	return *c.ExpectedOccupancyDays
}

// FeePercent resolves the percentage rate, defaulting to DefaultFeePercent.
func (c VehicleFinancialConfig) FeePercent() float64 {
	if c.ManagementFeePercent == nil {
		return DefaultFeePercent
	}
	return *c.ManagementFeePercent
}

// FeeFixedAmount resolves the flat fee, defaulting to zero.
func (c VehicleFinancialConfig) FeeFixedAmount() Money {
	if c.ManagementFeeFixed == nil {
		return Money{}
	}
	return *c.ManagementFeeFixed
}

// Validate checks the configured values against their domains. Absent fields
// are fine; configured ones must be in range.
func (c VehicleFinancialConfig) Validate() error {
	if c.PurchasePriceCents < 0 {
		return fmt.Errorf("purchase price must be non-negative")
	}
	if c.DailyRentalPriceCents < 0 {
		return fmt.Errorf("daily rental price must be non-negative")
	}
	if d := c.OccupancyDays(); d < 0 || d > 365 {
		return fmt.Errorf("expected occupancy days %d out of range [0, 365]", d)
	}
	if p := c.FeePercent(); p < 0 || p > 100 {
		return fmt.Errorf("management fee percent %v out of range [0, 100]", p)
	}
	if c.FeeFixedAmount().Cents < 0 {
		return fmt.Errorf("management fee fixed amount must be non-negative")
	}
	if c.ApplyManagementFee && c.ManagementFeeType != FeePercentage && c.ManagementFeeType != FeeFixed {
		return fmt.Errorf("unknown management fee type %q", c.ManagementFeeType)
	}
	return nil
}

// ProjectROI computes the projected annual gross income, management fee
// deduction, net income and return on investment for one vehicle.
//
// A fixed fee is a constant independent of price and occupancy; a percentage
// fee scales linearly with gross income. With the fee toggle off the fee is
// zero regardless of the fee fields. An unknown or zero purchase price yields
// ROIPercent 0 instead of dividing; callers may render that as "N/A".
func ProjectROI(cfg VehicleFinancialConfig) ROIProjection {
	gross := Money{Cents: cfg.DailyRentalPriceCents * int64(cfg.OccupancyDays())}

	var fee Money
	if cfg.ApplyManagementFee {
		switch cfg.ManagementFeeType {
		case FeeFixed:
			fee = cfg.FeeFixedAmount()
		default:
			fee = Money{Cents: int64(math.Round(float64(gross.Cents) * cfg.FeePercent() / 100))}
		}
	}

	net := gross.Sub(fee)

	var roi float64
	if cfg.PurchasePriceCents > 0 {
		roi = float64(net.Cents) / float64(cfg.PurchasePriceCents) * 100
	}

	return ROIProjection{
		GrossIncome: gross,
		FeeAmount:   fee,
		NetIncome:   net,
		ROIPercent:  roi,
	}
}
