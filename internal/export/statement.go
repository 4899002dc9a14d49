// Package export renders settlement statements as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"freight/internal/service"
)

const (
	summarySheet = "Summary"
	linesSheet   = "Lines"
	dateLayout   = "2006-01-02"
)

var lineHeaders = []string{"Kind", "Type", "Description", "Amount", "Date"}

// WriteStatement writes st as an XLSX workbook with a summary sheet and a
// line-item sheet.
func WriteStatement(w io.Writer, st *service.Statement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	s := st.Settlement
	summary := [][]interface{}{
		{"Settlement", s.SettlementNumber},
		{"Driver", s.DriverID},
		{"Period", fmt.Sprintf("%s to %s", s.PeriodStart.Format(dateLayout), s.PeriodEnd.Format(dateLayout))},
		{"Status", string(s.Status)},
		{},
		{"Gross pay", money(st.Totals.GrossPay)},
		{"Additions", money(st.Totals.Additions)},
		{"Deductions", money(st.Totals.Deductions)},
		{"Advances", money(st.Totals.Advances)},
		{"Net pay", money(st.Totals.NetPay)},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), bold); err != nil {
		return err
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 14)
	_ = f.SetColWidth(summarySheet, "B", "B", 28)

	if _, err := f.NewSheet(linesSheet); err != nil {
		return err
	}
	for i, header := range lineHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(linesSheet, cell, header)
	}
	if err := f.SetCellStyle(linesSheet, "A1", "E1", bold); err != nil {
		return err
	}

	rowIndex := 2
	for _, e := range st.Additions {
		f.SetCellValue(linesSheet, fmt.Sprintf("A%d", rowIndex), "Addition")
		f.SetCellValue(linesSheet, fmt.Sprintf("B%d", rowIndex), string(e.DeductionType))
		f.SetCellValue(linesSheet, fmt.Sprintf("C%d", rowIndex), e.Description)
		f.SetCellValue(linesSheet, fmt.Sprintf("D%d", rowIndex), money(e.Amount))
		f.SetCellValue(linesSheet, fmt.Sprintf("E%d", rowIndex), e.CreatedAt.Format(dateLayout))
		rowIndex++
	}
	for _, e := range st.Deductions {
		f.SetCellValue(linesSheet, fmt.Sprintf("A%d", rowIndex), "Deduction")
		f.SetCellValue(linesSheet, fmt.Sprintf("B%d", rowIndex), string(e.DeductionType))
		f.SetCellValue(linesSheet, fmt.Sprintf("C%d", rowIndex), e.Description)
		f.SetCellValue(linesSheet, fmt.Sprintf("D%d", rowIndex), money(e.Amount.Neg()))
		f.SetCellValue(linesSheet, fmt.Sprintf("E%d", rowIndex), e.CreatedAt.Format(dateLayout))
		rowIndex++
	}
	for _, a := range st.Advances {
		f.SetCellValue(linesSheet, fmt.Sprintf("A%d", rowIndex), "Advance")
		f.SetCellValue(linesSheet, fmt.Sprintf("B%d", rowIndex), "")
		f.SetCellValue(linesSheet, fmt.Sprintf("C%d", rowIndex), a.Notes)
		f.SetCellValue(linesSheet, fmt.Sprintf("D%d", rowIndex), money(a.Amount.Neg()))
		f.SetCellValue(linesSheet, fmt.Sprintf("E%d", rowIndex), a.CreatedAt.Format(dateLayout))
		rowIndex++
	}
	_ = f.SetColWidth(linesSheet, "C", "C", 36)

	f.SetActiveSheet(0)
	return f.Write(w)
}

// money converts an amount to a float for the spreadsheet cell.
func money(d decimal.Decimal) float64 {
	v, _ := d.Round(2).Float64()
	return v
}
