package export

import (
	"bytes"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

func tx(id string, kind core.Kind, cents int64, date time.Time) core.Transaction {
	return core.Transaction{ID: id, UserID: "u1", Kind: kind, Amount: core.Money{Cents: cents}, Description: "d-" + id, Date: date}
}

func sampleState() ledger.State {
	return ledger.Load([]core.Transaction{
		tx("a", core.Income, 10000, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)),
		tx("b", core.Expense, 4000, time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)),
		tx("c", core.Income, 1000, time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)),
		tx("d", core.Expense, 1, time.Date(2023, 11, 1, 12, 0, 0, 0, time.UTC)),
	}, time.UTC)
}

func TestGroupByMonth(t *testing.T) {
	sheets := GroupByMonth(sampleState(), 2024)
	if len(sheets) != 2 {
		t.Fatalf("sheets = %d, want 2", len(sheets))
	}
	if sheets[0].Name() != "03-2024" || sheets[1].Name() != "11-2024" {
		t.Errorf("names = %s, %s", sheets[0].Name(), sheets[1].Name())
	}
	if ids := []string{sheets[0].Rows[0].ID, sheets[0].Rows[1].ID}; !reflect.DeepEqual(ids, []string{"b", "a"}) {
		t.Errorf("march rows = %v, want most recent first", ids)
	}
	if sheets[0].Balance.String() != "60.00" {
		t.Errorf("march balance = %s", sheets[0].Balance)
	}
	if got := GroupByMonth(sampleState(), 2022); len(got) != 0 {
		t.Errorf("empty year sheets = %d", len(got))
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		prefix string
		year   int
		want   string
	}{
		{"", 2024, "Finanzas_2024.xlsx"},
		{"Casa", 2023, "Casa_2023.xlsx"},
		{"  ", 2025, "Finanzas_2025.xlsx"},
	}
	for _, tt := range tests {
		if got := FileName(tt.prefix, tt.year); got != tt.want {
			t.Errorf("FileName(%q, %d) = %q, want %q", tt.prefix, tt.year, got, tt.want)
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, 2024, GroupByMonth(sampleState(), 2024), time.UTC); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{"03-2024", "11-2024"}) {
		t.Fatalf("sheets = %v", got)
	}
	rows, err := f.GetRows("03-2024")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rows[0], Header) {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "b" || rows[1][2] != "expense" || rows[1][4] != "d-b" || rows[1][5] != "2024-03-20" {
		t.Errorf("first data row = %v", rows[1])
	}

	raw, err := f.GetCellValue("03-2024", "D3", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatal(err)
	}
	if v, err := strconv.ParseFloat(raw, 64); err != nil || v != 100 {
		t.Errorf("amount cell = %q", raw)
	}
	balance, _ := f.GetCellValue("03-2024", "D5", excelize.Options{RawCellValue: true})
	if v, err := strconv.ParseFloat(balance, 64); err != nil || v != 60 {
		t.Errorf("balance cell = %q", balance)
	}
}

func TestWriteXLSX_EmptyYear(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, 2022, nil, time.UTC); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{"2022"}) {
		t.Fatalf("sheets = %v", got)
	}
}

func TestSheetValuesUsesZone(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	st := ledger.Load([]core.Transaction{tx("x", core.Income, 5, time.Date(2024, 4, 1, 2, 0, 0, 0, time.UTC))}, loc)
	sheets := GroupByMonth(st, 2024)
	if len(sheets) != 1 || sheets[0].Name() != "03-2024" {
		t.Fatalf("sheets = %+v", sheets)
	}
	if got := sheets[0].Values(loc)[1][5]; got != "2024-03-31" {
		t.Errorf("date cell = %v", got)
	}
}
