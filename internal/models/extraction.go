package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ExtractionResult is the parsed LLM output for one document. It is
// transient: consumed once by the persistence mapper and discarded.
// Fields are pointers because the model returns null for anything it
// could not read from the scan.
type ExtractionResult struct {
	Header ExtractedHeader `json:"header"`
	Lines  []ExtractedLine `json:"lines"`
}

// ExtractedHeader holds the loosely-typed header fields from the LLM.
type ExtractedHeader struct {
	InvoiceNumber  *string `json:"invoicenumber"`
	VendorName     *string `json:"vendorname"`
	VendorNo       *string `json:"vendorno"`
	RegistrationNo *string `json:"registrationno"`
	VATNo          *string `json:"vatno"`
	InvoiceDate    *string `json:"invoicedate"`
	TotalAmount    *Number `json:"totalamount"`
}

// ExtractedLine holds the loosely-typed line fields from the LLM.
type ExtractedLine struct {
	LineNo      *Number `json:"lineno"`
	No          *string `json:"no"`
	Description *string `json:"description"`
	Qty         *Number `json:"qty"`
	UOM         *string `json:"uom"`
	Price       *Number `json:"price"`
	Discount    *Number `json:"discount"`
	VATPercent  *Number `json:"vatpercent"`
	VATAmount   *Number `json:"vatamount"`
	LineAmount  *Number `json:"lineamount"`
}

// Number is a float64 that tolerates the LLM quoting numeric values.
// Unparseable strings decode to zero rather than failing the whole
// extraction; missing fields stay nil at the pointer level.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// Float64 returns the underlying value, zero for nil.
func (n *Number) Float64() float64 {
	if n == nil {
		return 0
	}
	return float64(*n)
}
