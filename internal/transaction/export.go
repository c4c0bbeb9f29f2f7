package transaction

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/frahmantamala/finance-dashboard/internal/core/common/validation"
)

const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"

	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	exportSheet = "Transactions"
)

var ExportHeader = []string{"id", "date", "amount", "description", "category"}

func exportRecord(t *Transaction) []string {
	return []string{
		strconv.FormatInt(t.ID, 10),
		t.Date.Format(validation.DateLayout),
		t.Amount.StringFixed(2),
		t.Description,
		t.Category,
	}
}

// WriteCSV writes the header row followed by one record per transaction.
func WriteCSV(w io.Writer, txs []*Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, t := range txs {
		if err := cw.Write(exportRecord(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook with the CSV columns. Amounts are
// numeric cells formatted with two decimals.
func WriteXLSX(w io.Writer, txs []*Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", exportSheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	amountFormat := "0.00"
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &amountFormat})
	if err != nil {
		return err
	}

	f.SetColWidth(exportSheet, "A", "A", 8)
	f.SetColWidth(exportSheet, "B", "B", 12)
	f.SetColWidth(exportSheet, "C", "C", 12)
	f.SetColWidth(exportSheet, "D", "D", 40)
	f.SetColWidth(exportSheet, "E", "E", 20)

	for i, header := range ExportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, header)
	}
	f.SetCellStyle(exportSheet, "A1", "E1", headerStyle)

	for i, t := range txs {
		row := i + 2
		f.SetCellValue(exportSheet, fmt.Sprintf("A%d", row), t.ID)
		f.SetCellValue(exportSheet, fmt.Sprintf("B%d", row), t.Date.Format(validation.DateLayout))
		f.SetCellValue(exportSheet, fmt.Sprintf("C%d", row), t.Amount.InexactFloat64())
		f.SetCellValue(exportSheet, fmt.Sprintf("D%d", row), t.Description)
		f.SetCellValue(exportSheet, fmt.Sprintf("E%d", row), t.Category)
	}
	if len(txs) > 0 {
		f.SetCellStyle(exportSheet, "C2", fmt.Sprintf("C%d", len(txs)+1), amountStyle)
	}

	return f.Write(w)
}
