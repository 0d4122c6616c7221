package ksef

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/fakturnik/ksef-client/ksef/api"
	"github.com/fakturnik/ksef-client/ksef/cipher"
	"github.com/fakturnik/ksef-client/ksef/model"
)

// SubmissionRecord utrwalany ślad jednej wysyłki. Skróty i rozmiary
// odpowiadają dokładnie bajtom, które poszły na łącze.
type SubmissionRecord struct {
	SessionReference string
	ElementReference string

	PayloadHash   string
	PayloadSize   int64
	EncryptedHash string
	EncryptedSize int64

	SubmittedAt time.Time

	// Simulated oznacza wysyłkę w trybie offline: referencja jest
	// syntetyczna, a faktura nie dotarła do KSeF.
	Simulated bool
}

// OfflineSubmitter przejmuje wysyłkę, gdy brak aktywnej sesji KSeF.
// Wstrzykiwany, żeby aplikacja mogła podstawić własną kolejkę odkładającą
// faktury do późniejszej wysyłki.
type OfflineSubmitter interface {
	Submit(ctx context.Context, payload []byte) (*SubmissionRecord, error)
}

// SimulatedSubmitter generuje syntetyczną referencję w układzie
// {nip}-{yyyymmdd}-{losowe6}-2B i oznacza rekord jako symulowany.
type SimulatedSubmitter struct {
	Nip Nip

	// now podmieniane w testach.
	now func() time.Time
}

func NewSimulatedSubmitter(nip Nip) *SimulatedSubmitter {
	return &SimulatedSubmitter{Nip: nip, now: time.Now}
}

func (s *SimulatedSubmitter) Submit(ctx context.Context, payload []byte) (*SubmissionRecord, error) {
	now := time.Now()
	if s.now != nil {
		now = s.now()
	}
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return nil, &CryptoError{Op: "generate simulated reference", Err: err}
	}
	ref := fmt.Sprintf("%s-%s-%06d-2B", s.Nip.Normalize(), now.Format("20060102"), n.Int64()+100000)

	meta := cipher.GetMetadata(payload)
	logger.WithField("reference", ref).Warn("invoice submitted in simulated offline mode")
	return &SubmissionRecord{
		ElementReference: ref,
		PayloadHash:      meta.HashBase64(),
		PayloadSize:      meta.Size,
		SubmittedAt:      now,
		Simulated:        true,
	}, nil
}

// SubmissionChannel interaktywna sesja wysyłkowa: jedno otwarcie sesji,
// wiele wysyłek, lokalne zamknięcie. Nie jest bezpieczny dla wielu goroutine.
type SubmissionChannel struct {
	client *api.Client
	keys   *PublicKeyCache

	nip          Nip
	sessionToken string
	form         model.FormCode
	offline      OfflineSubmitter

	sessionRef  string
	sessionKeys *cipher.SessionKeys
	closed      bool
}

// SubmissionOption konfiguruje kanał wysyłkowy.
type SubmissionOption func(*SubmissionChannel)

// WithFormCode nadpisuje schemat faktury, którym zakresowana jest sesja.
func WithFormCode(form model.FormCode) SubmissionOption {
	return func(s *SubmissionChannel) { s.form = form }
}

// WithOfflineSubmitter podstawia strategię wysyłki bez sesji KSeF.
func WithOfflineSubmitter(sub OfflineSubmitter) SubmissionOption {
	return func(s *SubmissionChannel) { s.offline = sub }
}

// NewSubmissionChannel tworzy kanał dla podatnika z tokenem sesyjnym
// uzyskanym z AuthSession. Pusty token włącza tryb offline.
func NewSubmissionChannel(client *api.Client, keyCache *PublicKeyCache, nip Nip, sessionToken string, opts ...SubmissionOption) *SubmissionChannel {
	s := &SubmissionChannel{
		client:       client,
		keys:         keyCache,
		nip:          nip,
		sessionToken: sessionToken,
		form:         model.FormCodeFA3(),
		offline:      NewSimulatedSubmitter(nip),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionReference zwraca numer referencyjny otwartej sesji.
func (s *SubmissionChannel) SessionReference() string { return s.sessionRef }

// Open otwiera sesję interaktywną. Klucz publiczny MF jest odświeżany
// best-effort; brak jakiegokolwiek klucza jest fatalny, bo bez niego
// nie da się zaszyfrować klucza symetrycznego.
func (s *SubmissionChannel) Open(ctx context.Context) (string, error) {
	if s.closed {
		return "", ErrSessionClosed
	}
	if s.sessionToken == "" {
		return "", ErrNoSessionToken
	}
	if s.sessionRef != "" {
		return s.sessionRef, nil
	}

	pem, err := s.keys.EnsureFresh(ctx)
	if err != nil {
		return "", err
	}

	sessionKeys, err := cipher.NewSessionKeys()
	if err != nil {
		return "", &CryptoError{Op: "generate session keys", Err: err}
	}

	pub, err := cipher.ParsePublicKey(pem)
	if err != nil {
		return "", &CryptoError{Op: "parse encryption key", Err: err}
	}
	encryptedKey, err := cipher.EncryptOAEP(pub, sessionKeys.Key)
	if err != nil {
		return "", &CryptoError{Op: "encrypt session key", Err: err}
	}

	req := model.OpenSessionRequest{
		ContextIdentifier: model.NipContext(string(s.nip.Normalize())),
		FormCode:          s.form,
		Encryption: model.SessionEncryption{
			EncryptedSymmetricKey: base64.StdEncoding.EncodeToString(encryptedKey),
			InitializationVector:  sessionKeys.IVBase64(),
		},
	}

	var opened model.OpenSessionResponse
	resp, err := s.client.PostJSON(ctx, "/sessions/online", s.sessionToken, req, &opened)
	if err != nil {
		return "", err
	}
	if resp.Status != http.StatusCreated {
		return "", &SessionError{Status: resp.Status, Body: Truncate(string(resp.Body))}
	}

	s.sessionRef = opened.ReferenceNumber
	s.sessionKeys = sessionKeys
	logger.WithField("session", s.sessionRef).Info("interactive session opened")
	return s.sessionRef, nil
}

// Submit szyfruje fakturę kluczem sesji i wysyła ją do otwartej sesji.
// Bez tokenu sesyjnego wysyłka trafia do strategii offline.
func (s *SubmissionChannel) Submit(ctx context.Context, payload []byte) (*SubmissionRecord, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.sessionToken == "" {
		return s.offline.Submit(ctx, payload)
	}
	if s.sessionRef == "" {
		if _, err := s.Open(ctx); err != nil {
			return nil, err
		}
	}

	plainMeta := cipher.GetMetadata(payload)
	encrypted, err := s.sessionKeys.Encrypt(payload)
	if err != nil {
		return nil, &CryptoError{Op: "encrypt invoice", Err: err}
	}
	encMeta := cipher.GetMetadata(encrypted)

	req := model.SendInvoiceRequest{
		InvoiceHash:             plainMeta.HashBase64(),
		InvoiceSize:             plainMeta.Size,
		EncryptedInvoiceHash:    encMeta.HashBase64(),
		EncryptedInvoiceSize:    encMeta.Size,
		EncryptedInvoiceContent: base64.StdEncoding.EncodeToString(encrypted),
	}

	var sent model.SendInvoiceResponse
	endpoint := "/sessions/online/" + s.sessionRef + "/invoices"
	resp, err := s.client.PostJSON(ctx, endpoint, s.sessionToken, req, &sent)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusAccepted {
		return nil, &SubmissionError{Status: resp.Status, Body: Truncate(string(resp.Body))}
	}
	if sent.ElementRef() == "" {
		return nil, &SubmissionError{Status: resp.Status, Body: "no element reference in response"}
	}

	submittedAt := sent.Timestamp
	if submittedAt.IsZero() {
		submittedAt = time.Now()
	}
	logger.WithField("element", sent.ElementRef()).Info("invoice submitted")
	return &SubmissionRecord{
		SessionReference: s.sessionRef,
		ElementReference: sent.ElementRef(),
		PayloadHash:      plainMeta.HashBase64(),
		PayloadSize:      plainMeta.Size,
		EncryptedHash:    encMeta.HashBase64(),
		EncryptedSize:    encMeta.Size,
		SubmittedAt:      submittedAt,
	}, nil
}

// Close zamyka kanał lokalnie i niszczy klucz symetryczny. API nie wymaga
// jawnego zamknięcia sesji interaktywnej; wygasa sama po stronie serwera.
func (s *SubmissionChannel) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.sessionKeys != nil {
		s.sessionKeys.Wipe()
		s.sessionKeys = nil
	}
	logger.WithField("session", s.sessionRef).Debug("submission channel closed")
}
