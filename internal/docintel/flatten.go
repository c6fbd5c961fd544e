package docintel

import (
	"fmt"
	"strings"
)

// Flatten converts an analyze result into the single text blob fed to
// the extraction prompt: the free-text content summary first, then one
// clause per table cell in row-major order, tables in document order.
// Pure and deterministic for identical input.
func Flatten(result *AnalyzeResult) string {
	var b strings.Builder
	b.WriteString(result.Content)

	for _, table := range result.Tables {
		b.WriteString("Found new table structure. Data included: ")
		for _, cell := range table.Cells {
			if cell.Kind == "columnHeader" {
				fmt.Fprintf(&b, " Header at row %d column %d is: %s.",
					cell.RowIndex, cell.ColumnIndex, cell.Content)
			} else {
				fmt.Fprintf(&b, " value at row %d column %d is: %s.",
					cell.RowIndex, cell.ColumnIndex, cell.Content)
			}
		}
	}

	return b.String()
}
