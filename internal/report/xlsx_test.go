package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/oikeuttaelaimille/pankkilinkki/pkg/ledger"
)

func sampleLedger() *ledger.File {
	day := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	return &ledger.File{
		Rows: []ledger.Row{
			{
				AccountNumber:   "12345600000785",
				BookingDate:     day.AddDate(0, 0, 1),
				PaymentDate:     day,
				ArchiveID:       "1501142ABC123456",
				ReferenceNumber: "123",
				Name:            "VIRTANEN",
				Currency:        ledger.CurrencyEuro,
				NameSource:      "A",
				Amount:          decimal.RequireFromString("123.45"),
				DeliveryMethod:  "A",
				Status:          ledger.StatusSuccess,
			},
			{
				AccountNumber:   "12345600000785",
				BookingDate:     day.AddDate(0, 0, 1),
				PaymentDate:     day,
				ArchiveID:       "1501142ABC123457",
				ReferenceNumber: "4567",
				Name:            "MÄKINEN",
				Currency:        ledger.CurrencyEuro,
				NameSource:      "A",
				Amount:          decimal.RequireFromString("10"),
				DeliveryMethod:  "A",
				Status:          ledger.StatusInsufficientFunds,
			},
		},
		Totals: ledger.FooterTotals{
			ReferencedPayments: ledger.Total{Count: 1, Sum: decimal.RequireFromString("123.45")},
			FailedPayments:     ledger.Total{Count: 1, Sum: decimal.RequireFromString("10")},
		},
	}
}

func open(t *testing.T, f *ledger.File) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteLedgerXLSX(&buf, f))

	x, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { x.Close() })
	return x
}

func TestWriteLedgerXLSX(t *testing.T) {
	x := open(t, sampleLedger())

	assert.Equal(t, []string{SheetRows, SheetTotals}, x.GetSheetList())

	rows, err := x.GetRows(SheetRows)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, rowColumns, rows[0])
	assert.Equal(t, "12345600000785", rows[1][0])
	assert.Equal(t, "2024-01-15", rows[1][1])
	assert.Equal(t, "2024-01-14", rows[1][2])
	assert.Equal(t, "123", rows[1][4])
	assert.Equal(t, "EURO", rows[1][6])
	assert.Equal(t, "SUCCESS", rows[1][11])
	assert.Equal(t, "MÄKINEN", rows[2][5])
	assert.Equal(t, "INSUFFICIENT_FUNDS", rows[2][11])

	raw := excelize.Options{RawCellValue: true}
	v, err := x.GetCellValue(SheetRows, "I2", raw)
	require.NoError(t, err)
	assert.Equal(t, "123.45", v)
}

func TestWriteLedgerXLSX_Totals(t *testing.T) {
	x := open(t, sampleLedger())

	rows, err := x.GetRows(SheetTotals)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, totalColumns, rows[0])
	assert.Equal(t, "Referenced payments", rows[1][0])
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, "1", rows[1][3])
	assert.Equal(t, "Failed payments", rows[3][0])

	raw := excelize.Options{RawCellValue: true}
	footer, err := x.GetCellValue(SheetTotals, "C4", raw)
	require.NoError(t, err)
	computed, err := x.GetCellValue(SheetTotals, "E4", raw)
	require.NoError(t, err)
	assert.Equal(t, "10", footer)
	assert.Equal(t, footer, computed)
}

func TestWriteLedgerXLSX_Empty(t *testing.T) {
	x := open(t, &ledger.File{})

	rows, err := x.GetRows(SheetRows)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
