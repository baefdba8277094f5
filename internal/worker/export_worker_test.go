package worker

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"fleetledger/internal/amqp"
	"fleetledger/internal/core"
	"fleetledger/internal/export/memory"
	"fleetledger/internal/storage"
)

func newWorkerFixture(t *testing.T) (*ExportWorker, *storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	if err := repo.CreateInvestor(ctx, core.Investor{ID: "i1", Name: "Ada"}); err != nil {
		t.Fatalf("create investor: %v", err)
	}
	if err := repo.CreateVehicle(ctx, storage.Vehicle{ID: "v1", InvestorID: "i1", Name: "Sedan A"}); err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	if err := repo.CreateLedgerEntry(ctx, core.LedgerRecord{
		ID: "r1", VehicleID: "v1", Kind: core.Income,
		Amount: core.Money{Cents: 50000}, Date: core.NewDate(2024, 1, 10),
	}); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	store := memory.New()
	return NewExportWorker(repo, store, 10), repo, store
}

func TestHandleRecordedEvent(t *testing.T) {
	worker, repo, store := newWorkerFixture(t)
	ctx := context.Background()

	msg := &amqp.LedgerEventMessage{Event: amqp.EventRecorded, ID: "r1", VehicleID: "v1"}
	if err := worker.HandleLedgerEvent(ctx, msg); err != nil {
		t.Fatalf("HandleLedgerEvent() error = %v", err)
	}

	summaries := store.Summaries()
	if len(summaries) != 1 {
		t.Fatalf("expected 1 exported summary, got %d", len(summaries))
	}
	if summaries[0].InvestorID != "i1" || summaries[0].TotalIncome.Cents != 50000 {
		t.Errorf("exported summary = %+v", summaries[0])
	}

	buckets := store.MonthlyFor("v1")
	if len(buckets) != 1 || buckets[0].MonthKey != "2024-01" {
		t.Errorf("exported buckets = %+v", buckets)
	}

	// Entry is no longer pending.
	pending, err := repo.GetPendingExportEntries(ctx, 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending entries, got %+v", pending)
	}
}

func TestHandleRecordedEventExportFailure(t *testing.T) {
	worker, repo, store := newWorkerFixture(t)
	ctx := context.Background()

	store.FailNext(errors.New("sheets unavailable"))

	msg := &amqp.LedgerEventMessage{Event: amqp.EventRecorded, ID: "r1", VehicleID: "v1"}
	if err := worker.HandleLedgerEvent(ctx, msg); err == nil {
		t.Fatal("HandleLedgerEvent() should propagate export failure")
	}

	// Entry stays pending for the sweep to retry.
	pending, err := repo.GetPendingExportEntries(ctx, 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "r1" {
		t.Errorf("expected r1 still pending, got %+v", pending)
	}
}

func TestHandleRemovedEvent(t *testing.T) {
	worker, repo, store := newWorkerFixture(t)
	ctx := context.Background()

	if err := repo.SoftDeleteLedgerEntry(ctx, "r1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	msg := &amqp.LedgerEventMessage{Event: amqp.EventRemoved, ID: "r1", VehicleID: "v1"}
	if err := worker.HandleLedgerEvent(ctx, msg); err != nil {
		t.Fatalf("HandleLedgerEvent() error = %v", err)
	}

	summaries := store.Summaries()
	if len(summaries) != 1 {
		t.Fatalf("expected 1 exported summary, got %d", len(summaries))
	}
	// The removed entry no longer counts.
	if summaries[0].TotalIncome.Cents != 0 {
		t.Errorf("TotalIncome after removal = %d, want 0", summaries[0].TotalIncome.Cents)
	}
}

func TestHandleUnknownEvent(t *testing.T) {
	worker, _, _ := newWorkerFixture(t)

	msg := &amqp.LedgerEventMessage{Event: "renamed", ID: "r1", VehicleID: "v1"}
	err := worker.HandleLedgerEvent(context.Background(), msg)
	if err == nil || !strings.Contains(err.Error(), "unknown ledger event") {
		t.Fatalf("expected unknown event error, got %v", err)
	}
}

func TestProcessPendingEntries(t *testing.T) {
	worker, repo, store := newWorkerFixture(t)
	ctx := context.Background()

	// A second pending entry on the same vehicle: one export, two flags cleared.
	if err := repo.CreateLedgerEntry(ctx, core.LedgerRecord{
		ID: "r2", VehicleID: "v1", Kind: core.Expense,
		Amount: core.Money{Cents: 10000}, Date: core.NewDate(2024, 1, 15),
	}); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	if err := worker.ProcessPendingEntries(ctx); err != nil {
		t.Fatalf("ProcessPendingEntries() error = %v", err)
	}

	if len(store.Summaries()) != 1 {
		t.Errorf("expected 1 summary export for the vehicle, got %d", len(store.Summaries()))
	}

	pending, err := repo.GetPendingExportEntries(ctx, 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending entries, got %+v", pending)
	}
}

func TestStartupCheckEmpty(t *testing.T) {
	worker, repo, _ := newWorkerFixture(t)
	ctx := context.Background()

	if err := repo.MarkExported(ctx, "r1"); err != nil {
		t.Fatalf("mark exported: %v", err)
	}

	if err := worker.StartupCheck(ctx); err != nil {
		t.Fatalf("StartupCheck() error = %v", err)
	}
}
