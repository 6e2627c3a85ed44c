package report

import (
	"path/filepath"
	"strings"

	"github.com/kaartgroup/mrmetrics/internal/metrics"
)

// TableExporter writes a finished metrics table to a destination path.
type TableExporter interface {
	Export(table *metrics.Table, destination string) error
}

// FixPath forces a .xlsx extension, repairing mistyped or missing ones.
// Already-correct paths pass through unchanged.
func FixPath(raw string) string {
	if ext := filepath.Ext(raw); ext != "" {
		raw = strings.TrimSuffix(raw, ext)
	}
	return raw + ".xlsx"
}
