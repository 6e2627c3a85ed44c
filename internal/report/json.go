package report

import (
	"encoding/json"
	"os"

	"github.com/kaartgroup/mrmetrics/internal/metrics"
)

// JSONExporter writes the table as a list of per-user objects keyed by
// ISO date.
type JSONExporter struct{}

func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

var _ TableExporter = (*JSONExporter)(nil)

type jsonRow struct {
	User   string         `json:"user"`
	Counts map[string]int `json:"counts"`
}

func (e *JSONExporter) Export(table *metrics.Table, destination string) error {
	rows := make([]jsonRow, 0, len(table.Users()))
	for _, user := range table.Users() {
		counts := make(map[string]int, len(table.Dates()))
		for _, date := range table.Dates() {
			counts[date.Format("2006-01-02")] = table.Count(user, date)
		}
		rows = append(rows, jsonRow{User: user, Counts: counts})
	}

	data, err := json.MarshalIndent(rows, "", "\t")
	if err != nil {
		return err
	}

	return os.WriteFile(destination, data, 0644)
}
