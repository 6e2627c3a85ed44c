package report

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/kaartgroup/mrmetrics/internal/metrics"
)

const (
	sheetName   = "Metrics"
	minColWidth = 6
	dateFormat  = "Jan 2"
)

// ExcelExporter writes the table as a single-sheet workbook with the
// header row and username column frozen.
type ExcelExporter struct{}

func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

var _ TableExporter = (*ExcelExporter)(nil)

func (e *ExcelExporter) Export(table *metrics.Table, destination string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	dates := table.Dates()
	users := table.Users()

	for col, date := range dates {
		cell := cellName(col+2, 1)
		f.SetCellValue(sheetName, cell, date.Format(dateFormat))
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, user := range users {
		row := i + 2
		f.SetCellValue(sheetName, cellName(1, row), user)
		for col, date := range dates {
			f.SetCellValue(sheetName, cellName(col+2, row), table.Count(user, date))
		}
	}

	// Size every column to its widest rendered value.
	width := minColWidth
	for _, user := range users {
		width = max(width, len(user))
	}
	f.SetColWidth(sheetName, "A", "A", float64(width))

	for col, date := range dates {
		width = max(minColWidth, len(date.Format(dateFormat)))
		for _, user := range users {
			width = max(width, len(strconv.Itoa(table.Count(user, date))))
		}
		letter := columnLetter(col + 2)
		f.SetColWidth(sheetName, letter, letter, float64(width))
	}

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	})

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	if err := f.SaveAs(destination); err != nil {
		return fmt.Errorf("failed to save excel file: %w", err)
	}

	return nil
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", columnLetter(col), row)
}

func columnLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
