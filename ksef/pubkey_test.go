package ksef

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturnik/ksef-client/ksef/model"
)

func TestRefreshAcceptsWrappedCertificateList(t *testing.T) {
	mfKey := newTestRSAKey(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, model.PublicKeyCertificatesResponse{
			PublicKeyCertificateList: []model.PublicKeyCertificate{{
				Certificate: base64.StdEncoding.EncodeToString(selfSignedCertDER(t, mfKey, "MF wrapped")),
				Usage:       []string{model.UsageSymmetricKeyEncryption},
			}},
		})
	}))
	defer srv.Close()

	cache := NewPublicKeyCache(newTestClient(srv.URL))
	require.NoError(t, cache.Refresh(context.Background()))

	pem, ok := cache.Current()
	assert.True(t, ok)
	assert.NotEmpty(t, pem)
}

func TestRefreshFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cache := NewPublicKeyCache(newTestClient(srv.URL))
	err := cache.Refresh(context.Background())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)

	_, ok := cache.Current()
	assert.False(t, ok)
}

func TestEnsureFreshWithoutAnySource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cache := NewPublicKeyCache(newTestClient(srv.URL))
	_, err := cache.EnsureFresh(context.Background())
	assert.Error(t, err)
}
