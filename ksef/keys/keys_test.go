package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"
)

func TestLoadSignerPKCS8RSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	signer, err := LoadSigner(pemBytes, nil)
	require.NoError(t, err)
	assert.IsType(t, &rsa.PrivateKey{}, signer)
}

func TestLoadSignerPKCS1(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	signer, err := LoadSigner(pemBytes, nil)
	require.NoError(t, err)
	assert.IsType(t, &rsa.PrivateKey{}, signer)
}

func TestLoadSignerEC(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

	signer, err := LoadSigner(pemBytes, nil)
	require.NoError(t, err)
	assert.IsType(t, &ecdsa.PrivateKey{}, signer)
}

func TestLoadSignerEncryptedPKCS8(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	password := []byte("tajne haslo")
	der, err := pkcs8.MarshalPrivateKey(key, password, pkcs8.DefaultOpts)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der})

	signer, err := LoadSigner(pemBytes, password)
	require.NoError(t, err)
	assert.IsType(t, &rsa.PrivateKey{}, signer)

	_, err = LoadSigner(pemBytes, nil)
	assert.Error(t, err, "encrypted key without password must fail")

	_, err = LoadSigner(pemBytes, []byte("zle haslo"))
	assert.Error(t, err)
}

func TestLoadCertificate(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "podpis testowy"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	cert, err := LoadCertificate(pemBytes)
	require.NoError(t, err)
	assert.Equal(t, "podpis testowy", cert.Subject.CommonName)
}

func TestLoadCertificateNoBlock(t *testing.T) {
	_, err := LoadCertificate([]byte("garbage"))
	assert.Error(t, err)
}

func TestLoadSignerFromFile(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600))

	signer, err := LoadSignerFromFile(path, nil)
	require.NoError(t, err)
	assert.NotNil(t, signer)

	_, err = LoadSignerFromFile(filepath.Join(t.TempDir(), "missing.pem"), nil)
	assert.Error(t, err)
}
