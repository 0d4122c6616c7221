package cipher

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignRSAPSS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	payload := []byte("dokument do podpisu")
	signature, err := Sign(payload, key)
	require.NoError(t, err)

	digest := sha256.Sum256(payload)
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, digest[:], signature, &rsa.PSSOptions{
		SaltLength: 32,
		Hash:       crypto.SHA256,
	})
	assert.NoError(t, err)
}

func TestSignECDSAP1363(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	payload := []byte("dokument do podpisu")
	signature, err := Sign(payload, key)
	require.NoError(t, err)

	// P-256 daje stałą szerokość 2 x 32 bajty
	require.Len(t, signature, 64)

	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	digest := sha256.Sum256(payload)
	assert.True(t, ecdsa.Verify(&key.PublicKey, digest[:], r, s))
}
