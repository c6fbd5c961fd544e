package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/bergsoft/invoiceflow/internal/models"
)

const (
	headerSheet = "Invoices"
	lineSheet   = "Lines"
)

// Exporter builds an Excel workbook from invoice records: one sheet
// for headers, one for lines keyed by header id.
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates a new exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Build creates a workbook for the given invoices. The caller owns the
// returned file and must Close it.
func (e *Exporter) Build(invoices []models.Invoice) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", headerSheet); err != nil {
		return nil, fmt.Errorf("failed to rename header sheet: %w", err)
	}
	if _, err := f.NewSheet(lineSheet); err != nil {
		return nil, fmt.Errorf("failed to create line sheet: %w", err)
	}

	if err := f.SetSheetRow(headerSheet, "A1", &[]interface{}{
		"ID", "Invoice No.", "Vendor Name", "Vendor No.", "Registration No.",
		"VAT No.", "Invoice Date", "Total Amount", "Status",
	}); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}
	if err := f.SetSheetRow(lineSheet, "A1", &[]interface{}{
		"Header ID", "Line No.", "No.", "Description", "Qty", "Price",
		"Discount", "UOM", "VAT %", "VAT Amount", "Line Amount",
		"Mapped No.", "Mapped Description",
	}); err != nil {
		return nil, fmt.Errorf("failed to write line header row: %w", err)
	}

	lineRow := 2
	for i, inv := range invoices {
		h := inv.Header
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(headerSheet, cell, &[]interface{}{
			h.ID, h.InvoiceNumber, h.VendorName, h.VendorNo,
			h.RegistrationNo, h.VATNo, h.InvoiceDate, h.TotalAmount,
			h.Status,
		}); err != nil {
			return nil, fmt.Errorf("failed to write invoice %d: %w", h.ID, err)
		}

		for _, l := range inv.Lines {
			cell := fmt.Sprintf("A%d", lineRow)
			if err := f.SetSheetRow(lineSheet, cell, &[]interface{}{
				l.HeaderID, l.LineNo, l.No, l.Description, l.Qty, l.Price,
				l.Discount, l.UOM, l.VATPercent, l.VATAmount, l.LineAmount,
				l.NoMapped, l.DescMapped,
			}); err != nil {
				return nil, fmt.Errorf("failed to write line %d/%d: %w", l.HeaderID, l.LineNo, err)
			}
			lineRow++
		}
	}

	e.logger.Info("Export workbook built", zap.Int("invoices", len(invoices)))
	return f, nil
}
