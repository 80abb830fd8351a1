// Package google mirrors a user's yearly ledger into a Google Sheets
// spreadsheet, one tab per month.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finanzas/internal/export"
)

// Options configures a mirror client. Exactly one of CredentialsJSON and
// CredentialsFile is normally set; GOOGLE_APPLICATION_CREDENTIALS is used
// when both are empty.
type Options struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	// Prefix is prepended to every tab name, e.g. "Casa " gives "Casa 03-2024".
	Prefix   string
	Location *time.Location
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	prefix        string
	loc           *time.Location
}

// New builds a client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentials(ctx, opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", opts.SpreadsheetID)
	return newWithService(svc, opts), nil
}

func newWithService(svc *gsheet.Service, opts Options) *Client {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Client{svc: svc, spreadsheetID: opts.SpreadsheetID, prefix: opts.Prefix, loc: loc}
}

// credentials resolves service account JSON from inline JSON, a file, or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func credentials(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account file", "path", file, "size", len(b))
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

// ReplaceMonthSheets makes the year's tabs match sheets: missing tabs are
// created, every tab of the year is cleared, and tabs with data rewritten.
// Tabs for months that no longer have data are left empty.
func (c *Client) ReplaceMonthSheets(ctx context.Context, year int, sheets []export.Sheet) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	existing := make([]string, 0, len(meta.Sheets))
	for _, sh := range meta.Sheets {
		if sh.Properties != nil {
			existing = append(existing, sh.Properties.Title)
		}
	}

	p := planMirror(existing, c.prefix, year, sheets, c.loc)

	if len(p.add) > 0 {
		reqs := make([]*gsheet.Request, 0, len(p.add))
		for _, title := range p.add {
			reqs = append(reqs, &gsheet.Request{
				AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
			})
		}
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("add sheets %v: %w", p.add, err)
		}
	}
	if len(p.clear) > 0 {
		_, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, &gsheet.BatchClearValuesRequest{Ranges: p.clear}).
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("clear sheets: %w", err)
		}
	}
	if len(p.data) > 0 {
		_, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
			ValueInputOption: "RAW",
			Data:             p.data,
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write sheets: %w", err)
		}
	}

	slog.InfoContext(ctx, "Mirrored ledger year to Google Sheets",
		"year", year,
		"sheets_written", len(p.data),
		"sheets_added", len(p.add),
		"sheets_cleared", len(p.clear))
	return nil
}
