package googlesheets

import (
	"context"
	"fmt"
	"log/slog"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetcal/internal/core"
	"budgetcal/internal/services"
)

// Exporter writes an owner's month report into a Google spreadsheet: one
// tab per owner and month, daily balances plus the month's entries. The
// report worker rebuilds the tab whenever a month-changed event arrives.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Config selects the spreadsheet and one of the two credential sources.
// CredentialsJSON wins when both are set; with neither, application default
// credentials apply.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
}

func New(ctx context.Context, cfg Config) (*Exporter, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("missing spreadsheet id")
	}

	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, goption.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Exporter{svc: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

// ExportMonth replaces the month's tab content with the current view.
func (e *Exporter) ExportMonth(ctx context.Context, ownerID string, ym core.YearMonth, view *services.MonthView) error {
	sheetName := fmt.Sprintf("%s %s", ownerID, ym)
	if err := e.ensureSheet(ctx, sheetName); err != nil {
		return err
	}

	rows := buildRows(view)

	clearRange := fmt.Sprintf("%s!A:D", sheetName)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", sheetName, err)
	}

	writeRange := fmt.Sprintf("%s!A1:D%d", sheetName, len(rows))
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update sheet %s: %w", sheetName, err)
	}

	slog.InfoContext(ctx, "Exported month report",
		"owner_id", ownerID,
		"month", ym.String(),
		"sheet", sheetName,
		"rows", len(rows))
	return nil
}

func (e *Exporter) ensureSheet(ctx context.Context, sheetName string) error {
	spreadsheet, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == sheetName {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: sheetName},
			},
		}},
	}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheetName, err)
	}
	return nil
}

func buildRows(view *services.MonthView) [][]any {
	rows := [][]any{{"Date", "Type", "Name", "Amount"}}
	for _, occ := range view.Expenses {
		rows = append(rows, []any{occ.Date.String(), "expense", occ.Name, occ.Amount.StringFixed(2)})
	}
	for _, occ := range view.Income {
		rows = append(rows, []any{occ.Date.String(), "income", occ.Name, occ.Amount.StringFixed(2)})
	}

	rows = append(rows, []any{}, []any{"Date", "Balance"})
	for _, db := range view.DailyBalances {
		rows = append(rows, []any{db.Date.String(), db.Balance.StringFixed(2)})
	}
	return rows
}
