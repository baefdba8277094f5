package memory

import (
	"context"
	"fmt"
	"sync"

	"fleetledger/internal/core"
)

// Store is an in-memory ReportWriter for tests and local development.
type Store struct {
	mu        sync.Mutex
	summaries []core.InvestorFinancialSummary
	monthly   map[string][]core.MonthlyBucket
	failNext  error
}

func New() *Store {
	return &Store{monthly: map[string][]core.MonthlyBucket{}}
}

// WriteInvestorSummary stores the summary and returns a synthetic row reference.
func (s *Store) WriteInvestorSummary(_ context.Context, summary core.InvestorFinancialSummary) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		return "", err
	}
	s.summaries = append(s.summaries, summary)
	return fmt.Sprintf("mem:%d", len(s.summaries)), nil
}

// WriteMonthlyBuckets stores the buckets keyed by vehicle.
func (s *Store) WriteMonthlyBuckets(_ context.Context, vehicleID string, buckets []core.MonthlyBucket) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		return "", err
	}
	s.monthly[vehicleID] = append([]core.MonthlyBucket(nil), buckets...)
	return fmt.Sprintf("mem:%s", vehicleID), nil
}

// FailNext makes the next write return err, then resets.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Summaries returns a copy of the stored summaries.
func (s *Store) Summaries() []core.InvestorFinancialSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.InvestorFinancialSummary(nil), s.summaries...)
}

// MonthlyFor returns the stored buckets for a vehicle.
func (s *Store) MonthlyFor(vehicleID string) []core.MonthlyBucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.MonthlyBucket(nil), s.monthly[vehicleID]...)
}
