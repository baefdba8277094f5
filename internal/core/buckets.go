package core

import "sort"

// MonthlyBucket aggregates the records of one calendar month. Buckets exist
// only for months that have at least one record; gaps are not zero-filled.
type MonthlyBucket struct {
	MonthKey string `json:"month_key"`
	Income   Money  `json:"income"`
	Expenses Money  `json:"expenses"`
	Net      Money  `json:"net"`
}

// Bucketize groups ledger records into calendar-month buckets and sums
// income, expenses and net per bucket. The result is sorted by month key
// descending (most recent first); report renderers rely on that order.
//
// A record with a zero date or negative amount aborts the whole computation
// with a DataError. Validation runs before any accumulation, so a failed call
// never returns a partial result.
func Bucketize(records []LedgerRecord) ([]MonthlyBucket, error) {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	byMonth := make(map[string]*MonthlyBucket)
	for _, r := range records {
		key := r.Date.MonthKey()
		b, ok := byMonth[key]
		if !ok {
			b = &MonthlyBucket{MonthKey: key}
			byMonth[key] = b
		}
		switch r.Kind {
		case Income:
			b.Income = b.Income.Add(r.Amount)
		case Expense:
			b.Expenses = b.Expenses.Add(r.Amount)
		}
	}

	buckets := make([]MonthlyBucket, 0, len(byMonth))
	for _, b := range byMonth {
		b.Net = b.Income.Sub(b.Expenses)
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].MonthKey > buckets[j].MonthKey
	})
	return buckets, nil
}
