package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/kaartgroup/mrmetrics/internal/metrics"
)

// CSVExporter writes the table in the same row/column layout as the
// spreadsheet, for piping into other tools.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

var _ TableExporter = (*CSVExporter)(nil)

func (e *CSVExporter) Export(table *metrics.Table, destination string) error {
	file, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	dates := table.Dates()

	header := []string{""}
	for _, date := range dates {
		header = append(header, date.Format(dateFormat))
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, user := range table.Users() {
		row := []string{user}
		for _, count := range table.Row(user) {
			row = append(row, strconv.Itoa(count))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}
