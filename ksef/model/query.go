package model

// SubjectType rola podatnika w zapytaniu o metadane.
type SubjectType string

const (
	// SubjectSeller faktury wystawione (sprzedaż).
	SubjectSeller SubjectType = "Subject1"
	// SubjectBuyer faktury otrzymane (zakup).
	SubjectBuyer SubjectType = "Subject2"
)

type DateRange struct {
	DateType string `json:"dateType"`
	From     string `json:"from"`
	To       string `json:"to"`
}

type InvoiceQueryRequest struct {
	SubjectType SubjectType `json:"subjectType"`
	DateRange   DateRange   `json:"dateRange"`
}

// InvoiceMetadata pojedynczy wpis z zapytania o metadane. Pola poza numerem
// KSeF są opcjonalne; schemat odpowiedzi bywa rozszerzany.
type InvoiceMetadata struct {
	KsefNumber           string     `json:"ksefNumber"`
	InvoiceNumber        string     `json:"invoiceNumber,omitempty"`
	InvoicingDate        string     `json:"invoicingDate,omitempty"`
	AcquisitionTimestamp string     `json:"acquisitionTimestamp,omitempty"`
	Seller               *PartyInfo `json:"seller,omitempty"`
	Buyer                *PartyInfo `json:"buyer,omitempty"`
	GrossAmount          float64    `json:"grossAmount,omitempty"`
	Currency             string     `json:"currency,omitempty"`
}

type PartyInfo struct {
	Nip  string `json:"nip,omitempty"`
	Name string `json:"name,omitempty"`
}

type InvoiceQueryResponse struct {
	Invoices []InvoiceMetadata `json:"invoices"`
	HasMore  bool              `json:"hasMore"`
}
