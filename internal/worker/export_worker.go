package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fleetledger/internal/amqp"
	"fleetledger/internal/export"
	"fleetledger/internal/services"
	"fleetledger/internal/storage"
)

// ExportWorker pushes fresh financial reports to the configured report
// destination whenever ledger entries change
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	writer    export.ReportWriter
	reports   *services.ReportService
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, writer export.ReportWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		writer:    writer,
		reports:   services.NewReportService(storage),
		batchSize: batchSize,
	}
}

// HandleLedgerEvent processes a single ledger event message from AMQP.
// Both recorded and removed events rebuild the affected vehicle's reports;
// recorded events additionally resolve the entry's pending-export flag.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event", msg.Event,
		"id", msg.ID,
		"vehicle_id", msg.VehicleID)

	switch msg.Event {
	case amqp.EventRecorded:
		if err := w.exportVehicleReports(ctx, msg.VehicleID); err != nil {
			if markErr := w.storage.MarkExportError(ctx, msg.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "id", msg.ID, "error", markErr)
			}
			return fmt.Errorf("export reports for vehicle %s: %w", msg.VehicleID, err)
		}
		if err := w.storage.MarkExported(ctx, msg.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark as exported", "id", msg.ID, "error", err)
			// Don't return error here - the export actually worked
		}
		return nil
	case amqp.EventRemoved:
		// The entry is already gone locally; re-export so the destination
		// reflects the removal.
		if err := w.exportVehicleReports(ctx, msg.VehicleID); err != nil {
			return fmt.Errorf("export reports for vehicle %s: %w", msg.VehicleID, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown ledger event %q", msg.Event)
	}
}

// ProcessPendingEntries exports entries that still carry the pending-export
// flag. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingEntries(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize)
}

// StartupCheck drains pending entries at worker startup to recover from
// missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingExportEntries(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending entries for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending export entries found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending export entries on startup, processing...",
		"count", len(pending))

	exported, failed := w.exportPending(ctx, pending)

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)

	return nil
}

func (w *ExportWorker) processPending(ctx context.Context, limit int) error {
	pending, err := w.storage.GetPendingExportEntries(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending entries: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending export entries", "count", len(pending))
	w.exportPending(ctx, pending)
	return nil
}

// exportPending exports each affected vehicle once, then resolves the flags of
// every entry belonging to it.
func (w *ExportWorker) exportPending(ctx context.Context, pending []storage.PendingExportEntry) (exported, failed int) {
	byVehicle := make(map[string][]storage.PendingExportEntry)
	order := make([]string, 0)
	for _, entry := range pending {
		if _, seen := byVehicle[entry.VehicleID]; !seen {
			order = append(order, entry.VehicleID)
		}
		byVehicle[entry.VehicleID] = append(byVehicle[entry.VehicleID], entry)
	}

	for _, vehicleID := range order {
		entries := byVehicle[vehicleID]

		if err := w.exportVehicleReports(ctx, vehicleID); err != nil {
			slog.ErrorContext(ctx, "Failed to export vehicle reports",
				"vehicle_id", vehicleID, "error", err)
			for _, entry := range entries {
				if markErr := w.storage.MarkExportError(ctx, entry.ID); markErr != nil {
					slog.ErrorContext(ctx, "Failed to mark export error", "id", entry.ID, "error", markErr)
				}
			}
			failed += len(entries)
			continue
		}

		for _, entry := range entries {
			if err := w.storage.MarkExported(ctx, entry.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark as exported", "id", entry.ID, "error", err)
			}
		}
		exported += len(entries)
	}

	return exported, failed
}

// exportVehicleReports writes the owning investor's summary and the vehicle's
// monthly buckets to the report destination.
func (w *ExportWorker) exportVehicleReports(ctx context.Context, vehicleID string) error {
	vehicle, err := w.storage.GetVehicle(ctx, vehicleID)
	if err != nil {
		return fmt.Errorf("get vehicle: %w", err)
	}

	if vehicle.InvestorID == "" {
		slog.WarnContext(ctx, "Vehicle has no investor, skipping summary export",
			"vehicle_id", vehicleID)
	} else {
		report, err := w.reports.InvestorSummary(ctx, vehicle.InvestorID, false)
		if err != nil {
			return fmt.Errorf("build investor summary: %w", err)
		}
		ref, err := w.writer.WriteInvestorSummary(ctx, report.InvestorFinancialSummary)
		if err != nil {
			return fmt.Errorf("write investor summary: %w", err)
		}
		slog.InfoContext(ctx, "Exported investor summary",
			"investor_id", vehicle.InvestorID,
			"sheets_ref", ref)
	}

	buckets, err := w.reports.VehicleMonthly(ctx, vehicleID)
	if err != nil {
		return fmt.Errorf("build monthly buckets: %w", err)
	}
	ref, err := w.writer.WriteMonthlyBuckets(ctx, vehicleID, buckets)
	if err != nil {
		return fmt.Errorf("write monthly buckets: %w", err)
	}

	slog.InfoContext(ctx, "Exported vehicle reports",
		"vehicle_id", vehicleID,
		"months", len(buckets),
		"sheets_ref", ref)

	return nil
}
