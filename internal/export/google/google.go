package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"fleetledger/internal/core"
	ports "fleetledger/internal/export"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportsSheet  string
	monthlySheet  string
}

// Ensure interface conformance
var _ ports.ReportWriter = (*Client)(nil)

// New creates a Sheets client for the given spreadsheet. Credentials come
// from the environment, see newSheetsService.
func New(ctx context.Context, spreadsheetID, reportsSheet, monthlySheet string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if reportsSheet = strings.TrimSpace(reportsSheet); reportsSheet == "" {
		reportsSheet = "Reports"
	}
	if monthlySheet = strings.TrimSpace(monthlySheet); monthlySheet == "" {
		monthlySheet = "Monthly"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportsSheet:  reportsSheet,
		monthlySheet:  monthlySheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created",
		"scope", gsheet.SpreadsheetsScope)
	return service, nil
}

func (c *Client) WriteInvestorSummary(ctx context.Context, summary core.InvestorFinancialSummary) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row := []any{
		time.Now().Format(time.RFC3339),
		summary.InvestorID,
		summary.InvestorName,
		summary.VehicleCount,
		summary.TotalIncome.Amount(),
		summary.TotalExpenses.Amount(),
		summary.NetBalance.Amount(),
	}

	return c.appendRows(ctx, c.reportsSheet, "A:G", [][]any{row})
}

func (c *Client) WriteMonthlyBuckets(ctx context.Context, vehicleID string, buckets []core.MonthlyBucket) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(buckets) == 0 {
		return "", nil
	}

	rows := make([][]any, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, []any{
			vehicleID,
			b.MonthKey,
			b.Income.Amount(),
			b.Expenses.Amount(),
			b.Net.Amount(),
		})
	}

	return c.appendRows(ctx, c.monthlySheet, "A:E", rows)
}

func (c *Client) appendRows(ctx context.Context, sheet, cols string, rows [][]any) (string, error) {
	rng := fmt.Sprintf("%s!%s", sheet, cols)
	vr := &gsheet.ValueRange{Values: rows}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}
