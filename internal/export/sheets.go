// Package export publishes monthly spending reports to Google Sheets.
//
// The exporter appends one row per month to a report sheet so that a
// spreadsheet can track spending history without pulling from the
// SQLite database directly.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/victoroki/MPESAAnalyzer/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetsExporter writes monthly report rows to a Google Sheets
// spreadsheet using a Service Account.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportSheet   string
}

// NewSheetsExporterFromEnv creates a SheetsExporter from environment
// variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_REPORT_SHEET_NAME (default "Reports"),
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS for auth.
func NewSheetsExporterFromEnv(ctx context.Context) (*SheetsExporter, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	reportSheet := strings.TrimSpace(os.Getenv("GOOGLE_REPORT_SHEET_NAME"))
	if reportSheet == "" {
		reportSheet = "Reports"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportSheet:   reportSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
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

	return service, nil
}

// ExportMonth appends one summary row for the given month to the report
// sheet. Re-exporting the same month appends a fresh row rather than
// editing history in place.
func (e *SheetsExporter) ExportMonth(ctx context.Context, stats core.MonthlyStats) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:G", e.reportSheet)
	vr := &gsheet.ValueRange{Values: [][]any{reportRow(stats)}}

	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append report row to %s: %w", e.reportSheet, err)
	}

	slog.InfoContext(ctx, "Exported monthly report",
		"year", stats.Year,
		"month", int(stats.Month),
		"transactions", stats.Count)
	return nil
}

// reportRow flattens monthly stats into a single spreadsheet row:
// year, month, spent, received, net flow, transaction count, top category.
func reportRow(stats core.MonthlyStats) []any {
	topCategory := ""
	if shares := core.TopCategories(stats, 1); len(shares) > 0 {
		topCategory = shares[0].Category
	}

	return []any{
		stats.Year,
		int(stats.Month),
		stats.TotalSpent.Shillings(),
		stats.TotalReceived.Shillings(),
		stats.NetFlow.Shillings(),
		stats.Count,
		topCategory,
	}
}
