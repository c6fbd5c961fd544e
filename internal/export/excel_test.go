package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bergsoft/invoiceflow/internal/models"
)

func TestBuildWorkbook(t *testing.T) {
	invoices := []models.Invoice{
		{
			Header: models.InvoiceHeader{
				ID: 1, InvoiceNumber: "INV-1", VendorName: "Acme",
				InvoiceDate: "2024-03-15", TotalAmount: 120.5, Status: "new",
			},
			Lines: []models.InvoiceLine{
				{HeaderID: 1, LineNo: 1, Description: "Widget", Qty: 2, Price: 60.25, LineAmount: 120.5},
			},
		},
		{
			Header: models.InvoiceHeader{
				ID: 2, InvoiceNumber: "INV-2", VendorName: "Globex",
				InvoiceDate: "2024-04-01", TotalAmount: 40, Status: "ready",
			},
			Lines: []models.InvoiceLine{
				{HeaderID: 2, LineNo: 1, Description: "Shipping", Qty: 1, Price: 40, LineAmount: 40},
				{HeaderID: 2, LineNo: 2, Description: "Handling", Qty: 1, Price: 0, LineAmount: 0},
			},
		},
	}

	f, err := NewExporter(zap.NewNop()).Build(invoices)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Invoices", "Lines"}, f.GetSheetList())

	title, err := f.GetCellValue("Invoices", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Invoice No.", title)

	number, err := f.GetCellValue("Invoices", "B2")
	require.NoError(t, err)
	assert.Equal(t, "INV-1", number)

	vendor, err := f.GetCellValue("Invoices", "C3")
	require.NoError(t, err)
	assert.Equal(t, "Globex", vendor)

	// Lines from both invoices land on consecutive rows
	first, err := f.GetCellValue("Lines", "D2")
	require.NoError(t, err)
	assert.Equal(t, "Widget", first)

	last, err := f.GetCellValue("Lines", "D4")
	require.NoError(t, err)
	assert.Equal(t, "Handling", last)

	headerID, err := f.GetCellValue("Lines", "A3")
	require.NoError(t, err)
	assert.Equal(t, "2", headerID)
}

func TestBuildEmptyWorkbook(t *testing.T) {
	f, err := NewExporter(zap.NewNop()).Build(nil)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Invoices", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", title)
}
