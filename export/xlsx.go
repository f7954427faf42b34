// Package export renders calculation results as spreadsheets for payroll.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/tip-engine/tips"
)

const (
	ResultsSheet    = "Results"
	ExceptionsSheet = "Exceptions"
)

var resultHeader = []interface{}{"Employee", "Tips", "Cash Tips", "Total", "Archived", "Version", "Updated By"}

// Workbook is everything rendered into one export.
type Workbook struct {
	Store       tips.Store
	Calculation tips.TipCalculation
	Results     []tips.TipCalculationResult
	Exceptions  []tips.Exception
	Places      int32
}

// WriteXLSX writes the results sheet, with a totals row, and the open
// exceptions sheet to w.
func WriteXLSX(w io.Writer, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return err
	}
	if err := writeResults(f, wb); err != nil {
		return fmt.Errorf("results sheet: %w", err)
	}
	if _, err := f.NewSheet(ExceptionsSheet); err != nil {
		return err
	}
	if err := writeExceptions(f, wb.Exceptions); err != nil {
		return fmt.Errorf("exceptions sheet: %w", err)
	}
	return f.Write(w)
}

func writeResults(f *excelize.File, wb Workbook) error {
	places := int(wb.Places)
	if places == 0 {
		places = int(tips.DefaultCurrencyPlaces)
	}

	title := fmt.Sprintf("%s (%s) tips %s, %s", wb.Store.Name, wb.Store.Abbreviation, wb.Calculation.Period, wb.Calculation.Status)
	if err := f.SetCellValue(ResultsSheet, "A1", title); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(ResultsSheet, "A1", "A1", bold); err != nil {
		return err
	}
	if err := f.SetSheetRow(ResultsSheet, "A3", &resultHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(ResultsSheet, "A3", "G3", bold); err != nil {
		return err
	}

	row := 4
	tipsTotal, cashTotal := decimal.Zero, decimal.Zero
	for _, r := range wb.Results {
		if err := f.SetCellValue(ResultsSheet, cell(1, row), r.Employee); err != nil {
			return err
		}
		for col, v := range []decimal.Decimal{r.Tips, r.CashTips, r.Total()} {
			if err := f.SetCellFloat(ResultsSheet, cell(col+2, row), v.InexactFloat64(), places, 64); err != nil {
				return err
			}
		}
		if err := f.SetCellValue(ResultsSheet, cell(5, row), r.Archived); err != nil {
			return err
		}
		if err := f.SetCellValue(ResultsSheet, cell(6, row), r.Version); err != nil {
			return err
		}
		if err := f.SetCellValue(ResultsSheet, cell(7, row), r.UpdatedBy); err != nil {
			return err
		}
		if !r.Archived {
			tipsTotal = tipsTotal.Add(r.Tips)
			cashTotal = cashTotal.Add(r.CashTips)
		}
		row++
	}

	if err := f.SetCellValue(ResultsSheet, cell(1, row), "Total"); err != nil {
		return err
	}
	for col, v := range []decimal.Decimal{tipsTotal, cashTotal, tipsTotal.Add(cashTotal)} {
		if err := f.SetCellFloat(ResultsSheet, cell(col+2, row), v.InexactFloat64(), places, 64); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(ResultsSheet, cell(1, row), cell(4, row), bold); err != nil {
		return err
	}
	return f.SetColWidth(ResultsSheet, "A", "A", 24)
}

func writeExceptions(f *excelize.File, items []tips.Exception) error {
	header := []interface{}{"Kind", "Record", "Date", "Time", "Pattern", "Message"}
	if err := f.SetSheetRow(ExceptionsSheet, "A1", &header); err != nil {
		return err
	}
	for i, e := range items {
		at := ""
		if e.At != nil {
			at = e.At.String()
		}
		date := ""
		if !e.Date.IsZero() {
			date = tips.FormatDate(e.Date)
		}
		pattern := ""
		if !e.Pattern.IsEmpty() {
			pattern = e.Pattern.String()
		}
		values := []interface{}{string(e.Kind), e.RecordID, date, at, pattern, e.Message}
		if err := f.SetSheetRow(ExceptionsSheet, cell(1, i+2), &values); err != nil {
			return err
		}
	}
	return f.SetColWidth(ExceptionsSheet, "F", "F", 60)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
