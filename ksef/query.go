package ksef

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fakturnik/ksef-client/ksef/api"
	"github.com/fakturnik/ksef-client/ksef/model"
)

const (
	queryPageSize = 100
	// queryMaxPages twardy sufit stron: chroni przed serwerem, który
	// w nieskończoność zwraca hasMore=true.
	queryMaxPages = 10
)

// MetadataQueryChannel zapytania o metadane faktur i pobieranie ich treści.
// Wymaga aktywnego tokenu sesyjnego.
type MetadataQueryChannel struct {
	client       *api.Client
	sessionToken string

	pageSize int
	maxPages int
}

func NewMetadataQueryChannel(client *api.Client, sessionToken string) *MetadataQueryChannel {
	return &MetadataQueryChannel{
		client:       client,
		sessionToken: sessionToken,
		pageSize:     queryPageSize,
		maxPages:     queryMaxPages,
	}
}

// ListInvoices zwraca metadane faktur z zakresu dat, stronicując po
// pageSize aż do hasMore=false albo sufitu stron. Kolejność wpisów
// odpowiada kolejności stron zwracanych przez serwer.
func (m *MetadataQueryChannel) ListInvoices(ctx context.Context, subject model.SubjectType, from, to time.Time) ([]model.InvoiceMetadata, error) {
	if m.sessionToken == "" {
		return nil, ErrNoSessionToken
	}

	req := model.InvoiceQueryRequest{
		SubjectType: subject,
		DateRange: model.DateRange{
			DateType: "invoicing",
			From:     from.Format(time.RFC3339),
			To:       to.Format(time.RFC3339),
		},
	}

	var all []model.InvoiceMetadata
	for page := 0; page < m.maxPages; page++ {
		endpoint := fmt.Sprintf("/invoices/query/metadata?pageOffset=%d&pageSize=%d", page, m.pageSize)

		var result model.InvoiceQueryResponse
		resp, err := m.client.PostJSON(ctx, endpoint, m.sessionToken, req, &result)
		if err != nil {
			return nil, err
		}
		if resp.Status != http.StatusOK {
			return nil, &FetchError{Operation: "query metadata", Status: resp.Status, Body: Truncate(string(resp.Body))}
		}

		all = append(all, result.Invoices...)
		if !result.HasMore {
			return all, nil
		}
	}

	logger.WithField("invoices", len(all)).Warn("metadata query stopped at page ceiling")
	return all, nil
}

// FetchInvoiceXML pobiera pełną treść faktury po numerze KSeF.
func (m *MetadataQueryChannel) FetchInvoiceXML(ctx context.Context, ksefNumber string) ([]byte, error) {
	if m.sessionToken == "" {
		return nil, ErrNoSessionToken
	}

	resp, err := m.client.GetBytes(ctx, "/invoices/ksef/"+ksefNumber, m.sessionToken)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, &FetchError{Operation: "fetch invoice", Status: resp.Status, Body: Truncate(string(resp.Body))}
	}
	return resp.Body, nil
}
