package pipeline

import (
	"github.com/bergsoft/invoiceflow/internal/models"
	"github.com/bergsoft/invoiceflow/internal/status"
)

// MapExtraction turns the loosely-typed extraction result into store
// records. Missing fields get empty-string/zero defaults per field,
// no cross-field validation and no recomputation of line totals.
// Status is always "new". A missing lineno is assigned from the line's
// position, skipping numbers the model returned explicitly elsewhere,
// so the (header_id, lineno) key stays unique.
func MapExtraction(result *models.ExtractionResult) (*models.InvoiceHeader, []models.InvoiceLine) {
	header := &models.InvoiceHeader{
		InvoiceNumber:  strOrEmpty(result.Header.InvoiceNumber),
		VendorName:     strOrEmpty(result.Header.VendorName),
		VendorNo:       strOrEmpty(result.Header.VendorNo),
		RegistrationNo: strOrEmpty(result.Header.RegistrationNo),
		VATNo:          strOrEmpty(result.Header.VATNo),
		InvoiceDate:    strOrEmpty(result.Header.InvoiceDate),
		TotalAmount:    result.Header.TotalAmount.Float64(),
		Status:         status.StatusNew.String(),
	}

	used := make(map[int64]bool, len(result.Lines))
	for _, l := range result.Lines {
		if n := int64(l.LineNo.Float64()); n != 0 {
			used[n] = true
		}
	}

	lines := make([]models.InvoiceLine, 0, len(result.Lines))
	for i, l := range result.Lines {
		lineNo := int64(l.LineNo.Float64())
		if lineNo == 0 {
			lineNo = int64(i + 1)
			for used[lineNo] {
				lineNo++
			}
			used[lineNo] = true
		}
		lines = append(lines, models.InvoiceLine{
			LineNo:      lineNo,
			No:          strOrEmpty(l.No),
			Description: strOrEmpty(l.Description),
			Qty:         l.Qty.Float64(),
			Price:       l.Price.Float64(),
			Discount:    l.Discount.Float64(),
			UOM:         strOrEmpty(l.UOM),
			VATPercent:  l.VATPercent.Float64(),
			VATAmount:   l.VATAmount.Float64(),
			LineAmount:  l.LineAmount.Float64(),
		})
	}

	return header, lines
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
