//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/export"
	"finanzas/internal/ledger"
)

// Run with: go test -tags=integration ./internal/sheets/google
func TestIntegration_ReplaceMonthSheets(t *testing.T) {
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	ctx := context.Background()
	client, err := New(ctx, Options{
		SpreadsheetID:   spreadsheetID,
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		Prefix:          "it ",
		Location:        time.UTC,
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	st := ledger.Load([]core.Transaction{
		{ID: "it-1", UserID: "it", Kind: core.Income, Amount: core.Money{Cents: 12345}, Description: "integration", Date: time.Date(1999, 1, 2, 0, 0, 0, 0, time.UTC)},
	}, time.UTC)
	if err := client.ReplaceMonthSheets(ctx, 1999, export.GroupByMonth(st, 1999)); err != nil {
		t.Fatalf("ReplaceMonthSheets: %v", err)
	}
}
