package core

// Investor identifies the owner of one or more vehicles.
type Investor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// InvestorFinancialSummary composes per-vehicle summaries into an
// investor-level view. Totals are sums of the per-vehicle fields, never
// re-derived from raw records, so they are consistent with the vehicle list
// by construction.
type InvestorFinancialSummary struct {
	InvestorID    string                    `json:"investor_id"`
	InvestorName  string                    `json:"investor_name"`
	InvestorEmail string                    `json:"investor_email"`
	Vehicles      []VehicleFinancialSummary `json:"vehicles"`
	VehicleCount  int                       `json:"vehicle_count"`
	TotalIncome   Money                     `json:"total_income"`
	TotalExpenses Money                     `json:"total_expenses"`
	NetBalance    Money                     `json:"net_balance"`
}

// BuildInvestorSummary aggregates each of the investor's vehicles against the
// record set and rolls the results up. Vehicles appear in the order the IDs
// were supplied; callers re-sort for display if they care.
//
// Zero vehicles is a valid terminal state: an empty list and all-zero totals,
// not an error. A DataError from any vehicle's records aborts the whole
// summary.
func BuildInvestorSummary(investor Investor, vehicleIDs []string, records []LedgerRecord) (InvestorFinancialSummary, error) {
	summary := InvestorFinancialSummary{
		InvestorID:    investor.ID,
		InvestorName:  investor.Name,
		InvestorEmail: investor.Email,
		Vehicles:      make([]VehicleFinancialSummary, 0, len(vehicleIDs)),
		VehicleCount:  len(vehicleIDs),
	}

	for _, vehicleID := range vehicleIDs {
		vs, err := AggregateVehicle(vehicleID, records)
		if err != nil {
			return InvestorFinancialSummary{}, err
		}
		summary.Vehicles = append(summary.Vehicles, vs)
		summary.TotalIncome = summary.TotalIncome.Add(vs.TotalIncome)
		summary.TotalExpenses = summary.TotalExpenses.Add(vs.TotalExpenses)
		summary.NetBalance = summary.NetBalance.Add(vs.NetBalance)
	}

	return summary, nil
}
