package cipher

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"math/big"

	"github.com/go-faster/errors"
)

// Sign podpisuje payload kluczem z certyfikatu klienta. Algorytm wybierany
// jest po rodzinie klucza: RSA-PSS (SHA-256, sól 32 bajty) albo
// ECDSA-SHA-256 z podpisem w formacie P1363 (r i s o stałej szerokości),
// bo KSeF odrzuca podpisy EC w DER kodem 9105.
func Sign(payload []byte, signer crypto.Signer) ([]byte, error) {
	digest := sha256.Sum256(payload)

	switch key := signer.(type) {
	case *rsa.PrivateKey:
		opts := &rsa.PSSOptions{
			SaltLength: 32,
			Hash:       crypto.SHA256,
		}
		sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], opts)
		if err != nil {
			return nil, errors.Wrap(err, "RSA-PSS sign")
		}
		return sig, nil

	case *ecdsa.PrivateKey:
		r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
		if err != nil {
			return nil, errors.Wrap(err, "ECDSA sign")
		}
		return encodeP1363(r, s, key.Curve.Params().BitSize), nil

	default:
		return nil, errors.Errorf("unsupported private key type %T (expected RSA or ECDSA)", signer)
	}
}

// encodeP1363 składa r i s w stałej długości big-endian.
func encodeP1363(r, s *big.Int, curveBits int) []byte {
	size := (curveBits + 7) / 8
	out := make([]byte, 2*size)
	r.FillBytes(out[:size])
	s.FillBytes(out[size:])
	return out
}
