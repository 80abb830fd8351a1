// Package export turns a ledger into per-month sheets and writes them as an
// xlsx workbook. The same sheets feed the Google Sheets mirror.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

const DefaultPrefix = "Finanzas"

// Header is the first row of every sheet.
var Header = []string{"id", "user_id", "type", "amount", "description", "date"}

// Sheet is one month of a year's ledger.
type Sheet struct {
	Period  core.Period
	Rows    []core.Transaction // most recent first
	Balance core.Money
}

func (s Sheet) Name() string {
	return s.Period.SheetName()
}

// Values renders the sheet as a grid: the header, one line per transaction,
// a blank line and the month balance. Amounts are unsigned; the type column
// carries the direction.
func (s Sheet) Values(loc *time.Location) [][]any {
	if loc == nil {
		loc = time.Local
	}
	out := make([][]any, 0, len(s.Rows)+3)
	head := make([]any, len(Header))
	for i, h := range Header {
		head[i] = h
	}
	out = append(out, head)
	for _, tx := range s.Rows {
		out = append(out, []any{
			tx.ID,
			tx.UserID,
			tx.Kind.String(),
			tx.Amount.Float(),
			tx.Description,
			tx.Date.In(loc).Format("2006-01-02"),
		})
	}
	out = append(out, []any{}, []any{"", "", "balance", s.Balance.Float()})
	return out
}

// GroupByMonth splits the year's transactions into one sheet per month with
// data, in ascending month order.
func GroupByMonth(st ledger.State, year int) []Sheet {
	months := st.MonthsWithData(year)
	out := make([]Sheet, 0, len(months))
	for _, m := range months {
		p, err := core.MonthPeriod(year, m)
		if err != nil {
			continue
		}
		out = append(out, Sheet{
			Period:  p,
			Rows:    st.Transactions(p),
			Balance: st.Balance(p),
		})
	}
	return out
}

// FileName is the download name of a year's workbook.
func FileName(prefix string, year int) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s_%d.xlsx", prefix, year)
}

// WriteXLSX writes sheets as a workbook. With no sheets the workbook holds a
// single empty sheet named after the year.
func WriteXLSX(w io.Writer, year int, sheets []Sheet, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	const defaultSheet = "Sheet1"
	if len(sheets) == 0 {
		if err := f.SetSheetName(defaultSheet, core.YearPeriod(year).SheetName()); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
		return writeTo(f, w)
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("create amount style: %w", err)
	}
	headStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, sh := range sheets {
		name := sh.Name()
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}

		values := sh.Values(loc)
		for r, row := range values {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return fmt.Errorf("write %s row %d: %w", name, r+1, err)
			}
		}
		last := len(values)
		if err := f.SetCellStyle(name, "D2", fmt.Sprintf("D%d", last), amountStyle); err != nil {
			return fmt.Errorf("style %s: %w", name, err)
		}
		if err := f.SetCellStyle(name, "A1", "F1", headStyle); err != nil {
			return fmt.Errorf("style %s: %w", name, err)
		}
		if err := f.SetColWidth(name, "A", "B", 38); err != nil {
			return fmt.Errorf("size %s: %w", name, err)
		}
		if err := f.SetColWidth(name, "E", "E", 40); err != nil {
			return fmt.Errorf("size %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return writeTo(f, w)
}

func writeTo(f *excelize.File, w io.Writer) error {
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
