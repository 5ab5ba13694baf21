// Package report exports decoded ledgers as spreadsheets.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/oikeuttaelaimille/pankkilinkki/pkg/ledger"
)

// Sheet names
const (
	SheetRows   = "Rows"
	SheetTotals = "Totals"
)

const dateLayout = "2006-01-02"

// numFmtAmount is the built-in "0.00" number format
const numFmtAmount = 2

var rowColumns = []string{
	"Account", "Booking date", "Payment date", "Archive ID", "Reference",
	"Name", "Currency", "Name source", "Amount", "Correction", "Delivery", "Status",
}

var totalColumns = []string{"Category", "Footer count", "Footer sum", "Row count", "Row sum"}

// WriteLedgerXLSX writes the rows of f to one sheet and the footer totals,
// next to the totals computed from the rows, to another
func WriteLedgerXLSX(w io.Writer, f *ledger.File) error {
	x := excelize.NewFile()
	defer x.Close()

	if err := x.SetSheetName(x.GetSheetName(0), SheetRows); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := x.NewSheet(SheetTotals); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	bold, err := x.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	amount, err := x.NewStyle(&excelize.Style{NumFmt: numFmtAmount})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	if err := writeHeader(x, SheetRows, rowColumns, bold); err != nil {
		return err
	}
	for i, r := range f.Rows {
		values := []any{
			r.AccountNumber,
			r.BookingDate.Format(dateLayout),
			r.PaymentDate.Format(dateLayout),
			r.ArchiveID,
			r.ReferenceNumber,
			r.Name,
			r.Currency.String(),
			r.NameSource,
			r.Amount.InexactFloat64(),
			r.CorrectionFlag,
			r.DeliveryMethod,
			r.Status.String(),
		}
		if err := writeRow(x, SheetRows, i+2, values); err != nil {
			return err
		}
	}
	if len(f.Rows) > 0 {
		from, _ := excelize.CoordinatesToCellName(9, 2)
		to, _ := excelize.CoordinatesToCellName(9, len(f.Rows)+1)
		if err := x.SetCellStyle(SheetRows, from, to, amount); err != nil {
			return fmt.Errorf("styling amounts: %w", err)
		}
	}

	if err := writeHeader(x, SheetTotals, totalColumns, bold); err != nil {
		return err
	}
	summary := f.Summary()
	categories := []struct {
		name         string
		footer, rows ledger.Total
	}{
		{"Referenced payments", f.Totals.ReferencedPayments, summary.ReferencedPayments},
		{"Referenced corrections", f.Totals.ReferencedCorrections, summary.ReferencedCorrections},
		{"Failed payments", f.Totals.FailedPayments, summary.FailedPayments},
	}
	for i, c := range categories {
		values := []any{
			c.name,
			c.footer.Count,
			c.footer.Sum.InexactFloat64(),
			c.rows.Count,
			c.rows.Sum.InexactFloat64(),
		}
		if err := writeRow(x, SheetTotals, i+2, values); err != nil {
			return err
		}
	}
	for _, col := range []string{"C", "E"} {
		if err := x.SetCellStyle(SheetTotals, col+"2", fmt.Sprintf("%s%d", col, len(categories)+1), amount); err != nil {
			return fmt.Errorf("styling totals: %w", err)
		}
	}

	if err := x.Write(w); err != nil {
		return fmt.Errorf("writing spreadsheet: %w", err)
	}
	return nil
}

func writeHeader(x *excelize.File, sheet string, columns []string, style int) error {
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	if err := writeRow(x, sheet, 1, values); err != nil {
		return err
	}

	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := x.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, c := range columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(len(c) + 4)
		if width < 12 {
			width = 12
		}
		if err := x.SetColWidth(sheet, name, name, width); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}
	return nil
}

func writeRow(x *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := x.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}
