package model

import "time"

// FormCode identyfikator schematu faktury, którym zakresowana jest sesja.
type FormCode struct {
	SystemCode      string `json:"systemCode"`
	SchemaVersion   string `json:"schemaVersion"`
	TargetNamespace string `json:"targetNamespace,omitempty"`
	Value           string `json:"value"`
}

// FormCodeFA3 bieżący schemat FA(3).
func FormCodeFA3() FormCode {
	return FormCode{
		SystemCode:      "FA (3)",
		SchemaVersion:   "1-0E",
		TargetNamespace: "http://crd.gov.pl/wzor/2025/06/25/13775/",
		Value:           "FA",
	}
}

// SessionEncryption zaszyfrowany klucz symetryczny sesji oraz IV, oba Base64.
type SessionEncryption struct {
	EncryptedSymmetricKey string `json:"encryptedSymmetricKey"`
	InitializationVector  string `json:"initializationVector"`
}

type OpenSessionRequest struct {
	ContextIdentifier ContextIdentifier `json:"contextIdentifier"`
	FormCode          FormCode          `json:"formCode"`
	Encryption        SessionEncryption `json:"encryption"`
}

type OpenSessionResponse struct {
	ReferenceNumber string    `json:"referenceNumber"`
	ValidUntil      time.Time `json:"validUntil,omitempty"`
}

// SendInvoiceRequest płaska struktura wysyłki z KSeF 2.0: skróty i rozmiary
// liczone są z dokładnie tych bajtów, które trafiają na łącze.
type SendInvoiceRequest struct {
	InvoiceHash             string `json:"invoiceHash"`
	InvoiceSize             int64  `json:"invoiceSize"`
	EncryptedInvoiceHash    string `json:"encryptedInvoiceHash"`
	EncryptedInvoiceSize    int64  `json:"encryptedInvoiceSize"`
	EncryptedInvoiceContent string `json:"encryptedInvoiceContent"`
}

// SendInvoiceResponse odpowiedź 202; referenceNumber identyfikuje element
// w sesji. Starsze odpowiedzi używały pola elementReferenceNumber.
type SendInvoiceResponse struct {
	ReferenceNumber        string    `json:"referenceNumber"`
	ElementReferenceNumber string    `json:"elementReferenceNumber,omitempty"`
	Timestamp              time.Time `json:"timestamp,omitempty"`
}

// ElementRef zwraca identyfikator elementu niezależnie od wariantu pola.
func (r *SendInvoiceResponse) ElementRef() string {
	if r.ReferenceNumber != "" {
		return r.ReferenceNumber
	}
	return r.ElementReferenceNumber
}

// InvoiceStatusResponse status pojedynczej faktury w sesji
// (GET /sessions/{sessionRef}/invoices/{elementRef}).
type InvoiceStatusResponse struct {
	KsefNumber     string     `json:"ksefNumber,omitempty"`
	InvoicingDate  string     `json:"invoicingDate,omitempty"`
	UpoDownloadUrl string     `json:"upoDownloadUrl,omitempty"`
	Status         StatusInfo `json:"status"`
}

// CommonStatusResponse status operacji po numerze referencyjnym
// (GET /common/Status/{referenceNumber}); zawiera link do UPO.
type CommonStatusResponse struct {
	ProcessingCode        int    `json:"processingCode"`
	ProcessingDescription string `json:"processingDescription"`
	ReferenceNumber       string `json:"referenceNumber"`
	UpoUrl                string `json:"upoUrl,omitempty"`
	Timestamp             string `json:"timestamp,omitempty"`
}

// PublicKeyCertificate wpis z GET /security/public-key-certificates.
type PublicKeyCertificate struct {
	Certificate string    `json:"certificate"`
	Usage       []string  `json:"usage"`
	ValidFrom   time.Time `json:"validFrom,omitempty"`
	ValidTo     time.Time `json:"validTo,omitempty"`
}

const (
	UsageSymmetricKeyEncryption = "SymmetricKeyEncryption"
	UsageKsefTokenEncryption    = "KsefTokenEncryption"
)

// PublicKeyCertificatesResponse lista bywa opakowana w obiekt albo zwracana
// wprost jako tablica, zależnie od wersji API.
type PublicKeyCertificatesResponse struct {
	PublicKeyCertificateList []PublicKeyCertificate `json:"publicKeyCertificateList"`
}
