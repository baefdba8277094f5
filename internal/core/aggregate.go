package core

// VehicleFinancialSummary is the historical reduction of one vehicle's ledger:
// totals, net balance and how many records went into them. It is recomputed
// fresh on every request and never stored.
type VehicleFinancialSummary struct {
	VehicleID        string `json:"vehicle_id"`
	TotalIncome      Money  `json:"total_income"`
	TotalExpenses    Money  `json:"total_expenses"`
	NetBalance       Money  `json:"net_balance"`
	TransactionCount int    `json:"transaction_count"`
}

// AggregateVehicle reduces the records belonging to vehicleID into a summary.
// Records for other vehicles are ignored, so callers may pass a pre-filtered
// slice or the whole ledger. An empty selection is valid and yields an
// all-zero summary.
//
// Only records considered for the summary are validated; a negative amount or
// zero date among them returns a DataError and no summary.
func AggregateVehicle(vehicleID string, records []LedgerRecord) (VehicleFinancialSummary, error) {
	summary := VehicleFinancialSummary{VehicleID: vehicleID}
	for _, r := range records {
		if r.VehicleID != vehicleID {
			continue
		}
		if err := r.Validate(); err != nil {
			return VehicleFinancialSummary{}, err
		}
		switch r.Kind {
		case Income:
			summary.TotalIncome = summary.TotalIncome.Add(r.Amount)
		case Expense:
			summary.TotalExpenses = summary.TotalExpenses.Add(r.Amount)
		}
		summary.TransactionCount++
	}
	summary.NetBalance = summary.TotalIncome.Sub(summary.TotalExpenses)
	return summary, nil
}
