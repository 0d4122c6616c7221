package cipher

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/fakturnik/ksef-client/ksef/model"
)

// ParsePublicKey akceptuje PEM z blokiem PUBLIC KEY albo CERTIFICATE.
// MF publikuje klucz jako certyfikat, ale starsze konfiguracje trzymają
// goły klucz publiczny.
func ParsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	if len(pemBytes) == 0 {
		return nil, errors.New("empty public key material")
	}

	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found in public key material")
	}

	switch block.Type {
	case "PUBLIC KEY":
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "parse PKIX public key")
		}
		rsaPub, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, errors.Errorf("public key is not RSA (got %T)", parsed)
		}
		return rsaPub, nil
	case "CERTIFICATE":
		xc, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "parse x509 certificate")
		}
		rsaPub, ok := xc.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, errors.Errorf("certificate does not carry an RSA key (got %T)", xc.PublicKey)
		}
		return rsaPub, nil
	default:
		return nil, errors.Errorf("unexpected PEM block type %q", block.Type)
	}
}

// EncryptOAEP szyfruje krótki sekret RSA-OAEP z SHA-256 (wymóg KSeF).
func EncryptOAEP(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	out, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "RSA-OAEP encrypt")
	}
	return out, nil
}

// EncryptShortSecret szyfruje sekret kluczem publicznym z PEM i zwraca Base64.
func EncryptShortSecret(secret string, publicKeyPEM []byte) (string, error) {
	pub, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return "", err
	}
	encrypted, err := EncryptOAEP(pub, []byte(secret))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// EncryptToken buduje ładunek token|timestampMs i szyfruje go kluczem MF.
func EncryptToken(token string, timestampMs int64, publicKeyPEM []byte) (string, error) {
	payload := fmt.Sprintf("%s|%d", token, timestampMs)
	return EncryptShortSecret(payload, publicKeyPEM)
}

// SelectEncryptionCertificate wybiera z listy certyfikat do szyfrowania
// klucza symetrycznego i zwraca go jako PEM. Preferowane jest przeznaczenie
// SymmetricKeyEncryption; starsze środowiska publikowały tylko
// KsefTokenEncryption.
func SelectEncryptionCertificate(certs []model.PublicKeyCertificate) ([]byte, error) {
	if pemBytes := findByUsage(certs, model.UsageSymmetricKeyEncryption); pemBytes != nil {
		return pemBytes, nil
	}
	if pemBytes := findByUsage(certs, model.UsageKsefTokenEncryption); pemBytes != nil {
		return pemBytes, nil
	}
	return nil, errors.New("no certificate with a usable encryption usage in response")
}

func findByUsage(certs []model.PublicKeyCertificate, usage string) []byte {
	for _, c := range certs {
		for _, u := range c.Usage {
			if u == usage {
				return certToPEM(c.Certificate)
			}
		}
	}
	return nil
}

func certToPEM(b64 string) []byte {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}
