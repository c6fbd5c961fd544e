package models

// InvoiceHeader is the invoice-level record, one per uploaded document.
// Field names mirror the invoice_header columns so API payloads and
// store rows stay aligned.
type InvoiceHeader struct {
	ID             int64   `json:"id"`
	InvoiceNumber  string  `json:"invoicenumber"`
	VendorName     string  `json:"vendorname"`
	VendorNo       string  `json:"vendorno"`
	RegistrationNo string  `json:"registrationno"`
	VATNo          string  `json:"vatno"`
	InvoiceDate    string  `json:"invoicedate"`
	TotalAmount    float64 `json:"totalamount"`
	Status         string  `json:"status"`
}

// InvoiceLine is a single line item owned by exactly one header.
// LineNo is unique within a header, not globally. LineAmount is
// trusted as extracted or edited and never recomputed here.
type InvoiceLine struct {
	HeaderID    int64   `json:"header_id"`
	LineNo      int64   `json:"lineno"`
	No          string  `json:"no"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	Price       float64 `json:"price"`
	Discount    float64 `json:"discount"`
	UOM         string  `json:"uom"`
	VATPercent  float64 `json:"vatpercent"`
	VATAmount   float64 `json:"vatamount"`
	LineAmount  float64 `json:"lineamount"`
	NoMapped    string  `json:"no_mapped"`
	DescMapped  string  `json:"desc_mapped"`
}

// Invoice bundles a header with its lines for detail responses.
type Invoice struct {
	Header InvoiceHeader `json:"header"`
	Lines  []InvoiceLine `json:"lines"`
}
