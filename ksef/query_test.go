package ksef

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturnik/ksef-client/ksef/model"
)

func TestListInvoicesPaginates(t *testing.T) {
	pages := [][]model.InvoiceMetadata{
		{{KsefNumber: "ksef-1"}, {KsefNumber: "ksef-2"}},
		{{KsefNumber: "ksef-3"}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /invoices/query/metadata", func(w http.ResponseWriter, r *http.Request) {
		var req model.InvoiceQueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, model.SubjectSeller, req.SubjectType)
		assert.Equal(t, "invoicing", req.DateRange.DateType)

		offset, err := strconv.Atoi(r.URL.Query().Get("pageOffset"))
		require.NoError(t, err)
		assert.Equal(t, "2", r.URL.Query().Get("pageSize"))
		require.Less(t, offset, len(pages), "no pages may be requested past hasMore=false")

		writeJSON(t, w, http.StatusOK, model.InvoiceQueryResponse{
			Invoices: pages[offset],
			HasMore:  offset < len(pages)-1,
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	channel := NewMetadataQueryChannel(newTestClient(srv.URL), "tok")
	channel.pageSize = 2

	invoices, err := channel.ListInvoices(context.Background(), model.SubjectSeller,
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, invoices, 3)
	// kolejność stron zachowana
	assert.Equal(t, "ksef-1", invoices[0].KsefNumber)
	assert.Equal(t, "ksef-2", invoices[1].KsefNumber)
	assert.Equal(t, "ksef-3", invoices[2].KsefNumber)
}

func TestListInvoicesStopsAtPageCeiling(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /invoices/query/metadata", func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("pageOffset")
		writeJSON(t, w, http.StatusOK, model.InvoiceQueryResponse{
			Invoices: []model.InvoiceMetadata{{KsefNumber: "ksef-" + offset}},
			HasMore:  true, // serwer nigdy nie kończy
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	channel := NewMetadataQueryChannel(newTestClient(srv.URL), "tok")
	channel.pageSize = 1
	channel.maxPages = 3

	invoices, err := channel.ListInvoices(context.Background(), model.SubjectBuyer,
		time.Now().Add(-24*time.Hour), time.Now())
	require.NoError(t, err)
	assert.Len(t, invoices, 3)
}

func TestListInvoicesPropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"zly zakres dat"}`)
	}))
	defer srv.Close()

	channel := NewMetadataQueryChannel(newTestClient(srv.URL), "tok")
	_, err := channel.ListInvoices(context.Background(), model.SubjectSeller, time.Now(), time.Now())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusBadRequest, fetchErr.Status)
}

func TestListInvoicesRequiresSessionToken(t *testing.T) {
	channel := NewMetadataQueryChannel(newTestClient("http://unused"), "")
	_, err := channel.ListInvoices(context.Background(), model.SubjectSeller, time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrNoSessionToken)
}

func TestFetchInvoiceXML(t *testing.T) {
	content := []byte(`<?xml version="1.0"?><Faktura>pelna tresc</Faktura>`)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /invoices/ksef/1111111111-20260829-ABCDEF123456-AB", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write(content)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	channel := NewMetadataQueryChannel(newTestClient(srv.URL), "tok")
	got, err := channel.FetchInvoiceXML(context.Background(), "1111111111-20260829-ABCDEF123456-AB")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFetchInvoiceXMLNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	channel := NewMetadataQueryChannel(newTestClient(srv.URL), "tok")
	_, err := channel.FetchInvoiceXML(context.Background(), "missing")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.Status)
}
