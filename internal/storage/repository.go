package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fleetledger/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested investor, vehicle or ledger entry
// does not exist.
var ErrNotFound = errors.New("not found")

const dateLayout = "2006-01-02"

// Vehicle joins the vehicle identity with its pricing configuration as stored.
type Vehicle struct {
	ID         string
	InvestorID string
	Name       string
	Config     core.VehicleFinancialConfig
}

// PendingExportEntry is the minimal data the export worker needs to pick up
// an entry that has not reached the spreadsheet yet.
type PendingExportEntry struct {
	ID        string
	VehicleID string
	CreatedAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping verifies the database connection is still usable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateInvestor inserts an investor row.
func (r *SQLiteRepository) CreateInvestor(ctx context.Context, inv core.Investor) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO investors (id, name, email) VALUES (?, ?, ?)`,
		inv.ID, inv.Name, inv.Email)
	if err != nil {
		return fmt.Errorf("create investor: %w", err)
	}
	return nil
}

// GetInvestor looks up one investor by ID.
func (r *SQLiteRepository) GetInvestor(ctx context.Context, id string) (core.Investor, error) {
	var inv core.Investor
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM investors WHERE id = ?`, id).
		Scan(&inv.ID, &inv.Name, &inv.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Investor{}, fmt.Errorf("investor %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Investor{}, fmt.Errorf("get investor: %w", err)
	}
	return inv, nil
}

// ListInvestors returns all investors ordered by name.
func (r *SQLiteRepository) ListInvestors(ctx context.Context) ([]core.Investor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email FROM investors ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list investors: %w", err)
	}
	defer rows.Close()

	var investors []core.Investor
	for rows.Next() {
		var inv core.Investor
		if err := rows.Scan(&inv.ID, &inv.Name, &inv.Email); err != nil {
			return nil, fmt.Errorf("scan investor: %w", err)
		}
		investors = append(investors, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate investors: %w", err)
	}
	return investors, nil
}

// CreateVehicle inserts a vehicle with its validated pricing configuration.
func (r *SQLiteRepository) CreateVehicle(ctx context.Context, v Vehicle) error {
	if err := v.Config.Validate(); err != nil {
		return fmt.Errorf("validate vehicle config: %w", err)
	}
	var investorID sql.NullString
	if v.InvestorID != "" {
		investorID = sql.NullString{String: v.InvestorID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vehicles (
			id, investor_id, name,
			purchase_price_cents, daily_rental_price_cents, expected_occupancy_days,
			apply_management_fee, management_fee_type, management_fee_percent, management_fee_fixed_cents
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, investorID, v.Name,
		v.Config.PurchasePriceCents, v.Config.DailyRentalPriceCents, intPtrToNull(v.Config.ExpectedOccupancyDays),
		v.Config.ApplyManagementFee, string(v.Config.ManagementFeeType),
		floatPtrToNull(v.Config.ManagementFeePercent), moneyPtrToNull(v.Config.ManagementFeeFixed))
	if err != nil {
		return fmt.Errorf("create vehicle: %w", err)
	}
	return nil
}

// GetVehicle returns one vehicle with its configuration.
func (r *SQLiteRepository) GetVehicle(ctx context.Context, id string) (Vehicle, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, COALESCE(investor_id, ''), name,
			purchase_price_cents, daily_rental_price_cents, expected_occupancy_days,
			apply_management_fee, management_fee_type, management_fee_percent, management_fee_fixed_cents
		FROM vehicles WHERE id = ?`, id)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Vehicle{}, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Vehicle{}, fmt.Errorf("get vehicle: %w", err)
	}
	return v, nil
}

// ListVehicleIDsByInvestor returns the IDs of all vehicles assigned to the
// investor, in stable insertion order.
func (r *SQLiteRepository) ListVehicleIDsByInvestor(ctx context.Context, investorID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM vehicles WHERE investor_id = ? ORDER BY created_at, id`, investorID)
	if err != nil {
		return nil, fmt.Errorf("list vehicles by investor: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan vehicle id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicle ids: %w", err)
	}
	return ids, nil
}

// CreateLedgerEntry appends one validated ledger record.
func (r *SQLiteRepository) CreateLedgerEntry(ctx context.Context, rec core.LedgerRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validate ledger record: %w", err)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, vehicle_id, kind, category, amount_cents, entry_date, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.VehicleID, string(rec.Kind), rec.Category, rec.Amount.Cents,
		rec.Date.Format(dateLayout), rec.Description)
	if err != nil {
		return fmt.Errorf("create ledger entry: %w", err)
	}

	slog.InfoContext(ctx, "Ledger entry saved",
		"id", rec.ID,
		"vehicle_id", rec.VehicleID,
		"kind", rec.Kind,
		"amount_cents", rec.Amount.Cents,
		"entry_date", rec.Date.Format(dateLayout))
	return nil
}

// GetLedgerEntry returns one entry; soft-deleted entries count as missing.
func (r *SQLiteRepository) GetLedgerEntry(ctx context.Context, id string) (core.LedgerRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, vehicle_id, kind, category, amount_cents, entry_date, description
		 FROM ledger_entries WHERE id = ? AND deleted_at IS NULL`, id)
	rec, err := scanLedgerRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerRecord{}, fmt.Errorf("ledger entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.LedgerRecord{}, fmt.Errorf("get ledger entry: %w", err)
	}
	return rec, nil
}

// SoftDeleteLedgerEntry marks an entry deleted; reports recompute without it.
func (r *SQLiteRepository) SoftDeleteLedgerEntry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ledger_entries SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete ledger entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("ledger entry %s: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Ledger entry soft deleted", "id", id)
	return nil
}

// ListLedgerEntriesByVehicle returns the live records for one vehicle.
func (r *SQLiteRepository) ListLedgerEntriesByVehicle(ctx context.Context, vehicleID string) ([]core.LedgerRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, vehicle_id, kind, category, amount_cents, entry_date, description
		 FROM ledger_entries WHERE vehicle_id = ? AND deleted_at IS NULL
		 ORDER BY entry_date, id`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries by vehicle: %w", err)
	}
	return collectLedgerRecords(rows)
}

// ListLedgerEntriesByInvestor returns the live records for every vehicle
// assigned to the investor.
func (r *SQLiteRepository) ListLedgerEntriesByInvestor(ctx context.Context, investorID string) ([]core.LedgerRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.vehicle_id, e.kind, e.category, e.amount_cents, e.entry_date, e.description
		 FROM ledger_entries e
		 JOIN vehicles v ON v.id = e.vehicle_id
		 WHERE v.investor_id = ? AND e.deleted_at IS NULL
		 ORDER BY e.entry_date, e.id`, investorID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries by investor: %w", err)
	}
	return collectLedgerRecords(rows)
}

// GetPendingExportEntries returns entries that have not been exported yet.
func (r *SQLiteRepository) GetPendingExportEntries(ctx context.Context, limit int) ([]PendingExportEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, vehicle_id, created_at FROM ledger_entries
		 WHERE pending_export = 1 AND deleted_at IS NULL
		 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending export entries: %w", err)
	}
	defer rows.Close()

	var pending []PendingExportEntry
	for rows.Next() {
		var p PendingExportEntry
		if err := rows.Scan(&p.ID, &p.VehicleID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending export entry: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending export entries: %w", err)
	}
	return pending, nil
}

// MarkExported marks an entry as successfully exported.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE ledger_entries SET pending_export = 0, export_error = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	slog.InfoContext(ctx, "Ledger entry marked as exported", "id", id)
	return nil
}

// MarkExportError marks an entry as having failed export; the sweep retries it.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE ledger_entries SET export_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "Ledger entry marked with export error", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanLedgerRecord maps a row into a core record. A malformed stored date is
// not coerced: the record comes back with a zero Date and the engine rejects
// it with a DataError instead of silently corrupting totals.
func scanLedgerRecord(row rowScanner) (core.LedgerRecord, error) {
	var rec core.LedgerRecord
	var kind, dateStr string
	if err := row.Scan(&rec.ID, &rec.VehicleID, &kind, &rec.Category, &rec.Amount.Cents, &dateStr, &rec.Description); err != nil {
		return core.LedgerRecord{}, err
	}
	rec.Kind = core.RecordKind(kind)
	if t, err := time.Parse(dateLayout, dateStr); err == nil {
		rec.Date = core.Date{Time: t}
	}
	return rec, nil
}

func collectLedgerRecords(rows *sql.Rows) ([]core.LedgerRecord, error) {
	defer rows.Close()
	var records []core.LedgerRecord
	for rows.Next() {
		rec, err := scanLedgerRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return records, nil
}

func scanVehicle(row rowScanner) (Vehicle, error) {
	var v Vehicle
	var feeType string
	var occupancy sql.NullInt64
	var feePercent sql.NullFloat64
	var feeFixed sql.NullInt64
	err := row.Scan(&v.ID, &v.InvestorID, &v.Name,
		&v.Config.PurchasePriceCents, &v.Config.DailyRentalPriceCents, &occupancy,
		&v.Config.ApplyManagementFee, &feeType, &feePercent, &feeFixed)
	if err != nil {
		return Vehicle{}, err
	}
	v.Config.VehicleID = v.ID
	v.Config.ManagementFeeType = core.FeeType(feeType)
	if occupancy.Valid {
		d := int(occupancy.Int64)
		v.Config.ExpectedOccupancyDays = &d
	}
	if feePercent.Valid {
		p := feePercent.Float64
		v.Config.ManagementFeePercent = &p
	}
	if feeFixed.Valid {
		v.Config.ManagementFeeFixed = &core.Money{Cents: feeFixed.Int64}
	}
	return v, nil
}

func intPtrToNull(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func floatPtrToNull(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func moneyPtrToNull(v *core.Money) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v.Cents, Valid: true}
}
