package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"fleetledger/internal/amqp"
	"fleetledger/internal/core"
	"fleetledger/internal/storage"
)

// LedgerService orchestrates ledger entry operations across SQLite and AMQP
type LedgerService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// RecordEntry saves a ledger entry locally and publishes a recorded event.
// An empty ID is filled in with a generated one.
func (s *LedgerService) RecordEntry(ctx context.Context, rec core.LedgerRecord) (string, error) {
	if rec.ID == "" {
		id, err := generateEntryID()
		if err != nil {
			return "", err
		}
		rec.ID = id
	}

	// Save to SQLite first (fast, reliable)
	if err := s.storage.CreateLedgerEntry(ctx, rec); err != nil {
		return "", fmt.Errorf("save ledger entry: %w", err)
	}

	// Publish async event (non-blocking)
	if err := s.publishRecorded(ctx, rec.ID, rec.VehicleID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recorded event",
			"id", rec.ID, "error", err)
		// Don't fail the request - entry is saved locally
	}

	return rec.ID, nil
}

// RemoveEntry soft deletes a ledger entry locally and publishes a removed
// event. The removed record is returned so callers can invalidate derived
// state for its vehicle.
func (s *LedgerService) RemoveEntry(ctx context.Context, id string) (core.LedgerRecord, error) {
	// Load first so the removed event can carry the vehicle ID
	rec, err := s.storage.GetLedgerEntry(ctx, id)
	if err != nil {
		return core.LedgerRecord{}, fmt.Errorf("load ledger entry: %w", err)
	}

	if err := s.storage.SoftDeleteLedgerEntry(ctx, id); err != nil {
		return core.LedgerRecord{}, fmt.Errorf("remove ledger entry: %w", err)
	}

	if err := s.publishRemoved(ctx, rec.ID, rec.VehicleID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish removed event",
			"id", rec.ID, "error", err)
		// Don't fail the request - entry is removed locally
	}

	return rec, nil
}

func (s *LedgerService) publishRecorded(ctx context.Context, id, vehicleID string) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping recorded event")
		return nil
	}

	return s.amqpClient.PublishLedgerRecorded(ctx, id, vehicleID)
}

func (s *LedgerService) publishRemoved(ctx context.Context, id, vehicleID string) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping removed event")
		return nil
	}

	return s.amqpClient.PublishLedgerRemoved(ctx, id, vehicleID)
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}

func generateEntryID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate entry id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
