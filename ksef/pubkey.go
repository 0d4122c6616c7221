package ksef

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/fakturnik/ksef-client/ksef/api"
	"github.com/fakturnik/ksef-client/ksef/cipher"
	"github.com/fakturnik/ksef-client/ksef/model"
)

// PublicKeyCache przechowuje certyfikat MF używany do szyfrowania tokenu
// i klucza symetrycznego sesji. Odświeżenie jest jawne; przy otwieraniu
// sesji wykonywane best-effort, bo nieaktualny klucz kończy się odrzuceniem
// sesji po stronie serwera.
type PublicKeyCache struct {
	client *api.Client

	mu  sync.RWMutex
	pem []byte
}

func NewPublicKeyCache(client *api.Client) *PublicKeyCache {
	return &PublicKeyCache{client: client}
}

// Preload ustawia klucz z zewnętrznego źródła (baza, plik) bez sieci.
func (k *PublicKeyCache) Preload(pem []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pem = pem
}

// Current zwraca zbuforowany PEM, jeśli jakikolwiek jest dostępny.
func (k *PublicKeyCache) Current() ([]byte, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if len(k.pem) == 0 {
		return nil, false
	}
	return k.pem, true
}

// Refresh pobiera listę certyfikatów publicznych i wybiera właściwy.
func (k *PublicKeyCache) Refresh(ctx context.Context) error {
	resp, err := k.client.GetJSON(ctx, "/security/public-key-certificates", "", nil)
	if err != nil {
		return err
	}
	if resp.Status != http.StatusOK {
		return &FetchError{Operation: "fetch public key", Status: resp.Status, Body: Truncate(string(resp.Body))}
	}

	certs, err := decodeCertificates(resp.Body)
	if err != nil {
		return &FetchError{Operation: "fetch public key", Status: resp.Status, Body: Truncate(err.Error())}
	}

	pem, err := cipher.SelectEncryptionCertificate(certs)
	if err != nil {
		return &CryptoError{Op: "select encryption certificate", Err: err}
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.pem = pem
	logger.WithField("env_url", k.client.BaseURL()).Debug("public key certificate refreshed")
	return nil
}

// EnsureFresh próbuje odświeżyć klucz; porażka jest akceptowalna, o ile
// w buforze jest poprzedni klucz.
func (k *PublicKeyCache) EnsureFresh(ctx context.Context) ([]byte, error) {
	if err := k.Refresh(ctx); err != nil {
		if pem, ok := k.Current(); ok {
			logger.WithError(err).Warn("could not refresh public key, using cached")
			return pem, nil
		}
		return nil, err
	}
	pem, _ := k.Current()
	return pem, nil
}

// decodeCertificates obsługuje oba warianty odpowiedzi: gołą tablicę
// i obiekt z polem publicKeyCertificateList.
func decodeCertificates(body []byte) ([]model.PublicKeyCertificate, error) {
	var list []model.PublicKeyCertificate
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped model.PublicKeyCertificatesResponse
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.PublicKeyCertificateList, nil
}
