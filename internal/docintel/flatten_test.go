package docintel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenSingleTable(t *testing.T) {
	result := &AnalyzeResult{
		Content: "Invoice from Acme Corp. ",
		Tables: []Table{
			{
				RowCount:    2,
				ColumnCount: 2,
				Cells: []Cell{
					{Kind: "columnHeader", RowIndex: 0, ColumnIndex: 0, Content: "Invoice No."},
					{Kind: "columnHeader", RowIndex: 0, ColumnIndex: 1, Content: "Amount"},
					{Kind: "content", RowIndex: 1, ColumnIndex: 0, Content: "12345"},
					{Kind: "content", RowIndex: 1, ColumnIndex: 1, Content: "99.50"},
				},
			},
		},
	}

	text := Flatten(result)

	// Each clause ends with its own period, after the cell content
	assert.Equal(t, "Invoice from Acme Corp. "+
		"Found new table structure. Data included: "+
		" Header at row 0 column 0 is: Invoice No.."+
		" Header at row 0 column 1 is: Amount."+
		" value at row 1 column 0 is: 12345."+
		" value at row 1 column 1 is: 99.50.", text)
}

func TestFlattenTablesInEncounterOrder(t *testing.T) {
	result := &AnalyzeResult{
		Tables: []Table{
			{Cells: []Cell{{Kind: "content", RowIndex: 0, ColumnIndex: 0, Content: "first"}}},
			{Cells: []Cell{{Kind: "content", RowIndex: 0, ColumnIndex: 0, Content: "second"}}},
		},
	}

	text := Flatten(result)

	assert.Equal(t, "Found new table structure. Data included: "+
		" value at row 0 column 0 is: first."+
		"Found new table structure. Data included: "+
		" value at row 0 column 0 is: second.", text)
}

func TestFlattenIsDeterministic(t *testing.T) {
	result := &AnalyzeResult{
		Content: "summary",
		Tables: []Table{
			{Cells: []Cell{
				{Kind: "columnHeader", RowIndex: 0, ColumnIndex: 0, Content: "Qty"},
				{Kind: "content", RowIndex: 1, ColumnIndex: 0, Content: "3"},
			}},
		},
	}

	assert.Equal(t, Flatten(result), Flatten(result))
}

func TestFlattenNoTables(t *testing.T) {
	assert.Equal(t, "just text", Flatten(&AnalyzeResult{Content: "just text"}))
	assert.Equal(t, "", Flatten(&AnalyzeResult{}))
}
