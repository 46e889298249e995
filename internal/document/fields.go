package document

// FieldSpec describes one invoice field the reviewer can correct.
type FieldSpec struct {
	Key      string
	Label    string
	Required bool
}

// Fields is the fixed set of invoice fields, in display order.
var Fields = []FieldSpec{
	{Key: "invoiceNumber", Label: "Invoice Number", Required: true},
	{Key: "invoiceDate", Label: "Invoice Date", Required: true},
	{Key: "dueDate", Label: "Due Date"},
	{Key: "vendorName", Label: "Vendor Name"},
	{Key: "vendorTaxId", Label: "Vendor Tax ID"},
	{Key: "customerName", Label: "Customer Name"},
	{Key: "customerTaxId", Label: "Customer Tax ID"},
	{Key: "amount", Label: "Net Amount"},
	{Key: "taxAmount", Label: "Tax Amount"},
	{Key: "totalAmount", Label: "Total Amount", Required: true},
	{Key: "currency", Label: "Currency"},
	{Key: "iban", Label: "IBAN"},
}

// LookupField returns the spec for a field key.
func LookupField(key string) (FieldSpec, bool) {
	for _, f := range Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldLabel returns the human label for a key, or the key itself.
func FieldLabel(key string) string {
	if f, ok := LookupField(key); ok {
		return f.Label
	}
	return key
}
