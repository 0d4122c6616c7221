package ksef

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fakturnik/ksef-client/ksef/api"
	"github.com/fakturnik/ksef-client/ksef/model"
)

// wspólne zaplecze testów: klucz MF, certyfikat podpisujący i serwer.

func newTestRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func selfSignedCertDER(t *testing.T, key *rsa.PrivateKey, cn string) []byte {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return der
}

func signingMaterialPEM(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()
	key := newTestRSAKey(t)
	der := selfSignedCertDER(t, key, "Jan Testowy")
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})
	return certPEM, keyPEM
}

// serveCertificates odpowiada tak jak GET /security/public-key-certificates.
func serveCertificates(t *testing.T, w http.ResponseWriter, mfKey *rsa.PrivateKey) {
	t.Helper()
	certs := []model.PublicKeyCertificate{
		{
			Certificate: base64.StdEncoding.EncodeToString(selfSignedCertDER(t, mfKey, "MF encryption")),
			Usage:       []string{model.UsageSymmetricKeyEncryption},
		},
	}
	writeJSON(t, w, http.StatusOK, certs)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func newTestClient(baseURL string) *api.Client {
	return api.New(baseURL, nil, api.NopExchangeLogger{})
}

func tokenCredentials() Credentials {
	return Credentials{
		Nip:         "1111111111",
		Mode:        AuthModeToken,
		Environment: Test,
		Token:       "ksef-token-123",
	}
}
