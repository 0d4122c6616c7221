package ksef

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fakturnik/ksef-client/ksef/api"
	"github.com/fakturnik/ksef-client/ksef/cipher"
	"github.com/fakturnik/ksef-client/ksef/keys"
	"github.com/fakturnik/ksef-client/ksef/model"
	"github.com/fakturnik/ksef-client/ksef/xades"
)

// SessionState cykl życia sesji uwierzytelniającej. Przejścia są
// jednokierunkowe; po Expired lub Failed trzeba utworzyć nową AuthSession.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateChallengeObtained
	StateTokenSubmitted
	StatePollingActivation
	StateSessionActive
	StateExpired
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateChallengeObtained:
		return "CHALLENGE_OBTAINED"
	case StateTokenSubmitted:
		return "TOKEN_SUBMITTED"
	case StatePollingActivation:
		return "POLLING_ACTIVATION"
	case StateSessionActive:
		return "SESSION_ACTIVE"
	case StateExpired:
		return "EXPIRED"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

const (
	activationInterval    = 2 * time.Second
	activationMaxAttempts = 30
)

// AuthSession prowadzi pełny przepływ uwierzytelnienia: challenge,
// inicjacja (token KSeF albo podpis XAdES), odpytywanie o aktywację
// i wykup tokenu sesyjnego. Nie jest bezpieczna dla wielu goroutine.
type AuthSession struct {
	creds  Credentials
	client *api.Client
	keys   *PublicKeyCache

	state        SessionState
	sessionToken string

	interval    time.Duration
	maxAttempts int
}

// AuthOption konfiguruje AuthSession.
type AuthOption func(*AuthSession)

// WithActivationPolling nadpisuje interwał i budżet prób odpytywania
// o aktywację, przydatne w testach.
func WithActivationPolling(interval time.Duration, maxAttempts int) AuthOption {
	return func(a *AuthSession) {
		a.interval = interval
		a.maxAttempts = maxAttempts
	}
}

func NewAuthSession(creds Credentials, client *api.Client, keyCache *PublicKeyCache, opts ...AuthOption) (*AuthSession, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	a := &AuthSession{
		creds:       creds,
		client:      client,
		keys:        keyCache,
		state:       StateUnauthenticated,
		interval:    activationInterval,
		maxAttempts: activationMaxAttempts,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// State zwraca bieżący stan sesji.
func (a *AuthSession) State() SessionState { return a.state }

// SessionToken zwraca token sesyjny; pusty przed SessionActive.
func (a *AuthSession) SessionToken() string { return a.sessionToken }

// Authenticate przeprowadza cały przepływ do uzyskania tokenu sesyjnego.
// Challenge jest jednorazowy, więc każda porażka po jego pobraniu wymaga
// ponowienia całej sekwencji w nowej sesji.
func (a *AuthSession) Authenticate(ctx context.Context) error {
	if a.state != StateUnauthenticated {
		return &ConfigurationError{Field: "state", Message: "auth session already used, state " + a.state.String()}
	}

	challenge, err := a.fetchChallenge(ctx)
	if err != nil {
		a.state = StateFailed
		return err
	}
	a.state = StateChallengeObtained

	var init *model.AuthenticationInitResponse
	switch a.creds.Mode {
	case AuthModeToken:
		init, err = a.initWithToken(ctx, challenge)
	case AuthModeCertificate:
		init, err = a.initWithSignature(ctx, challenge)
	default:
		err = &ConfigurationError{Field: "mode", Message: "unknown auth mode: " + string(a.creds.Mode)}
	}
	if err != nil {
		a.state = StateFailed
		return err
	}
	a.state = StateTokenSubmitted

	logger.WithField("reference", init.ReferenceNumber).Info("authentication submitted, awaiting activation")
	a.state = StatePollingActivation

	token, err := a.awaitActivation(ctx, init.ReferenceNumber, init.AuthenticationToken.Token)
	if err != nil {
		if _, ok := err.(*TimeoutError); ok {
			a.state = StateExpired
		} else {
			a.state = StateFailed
		}
		return err
	}

	a.sessionToken = token
	a.state = StateSessionActive
	logger.WithField("nip", string(a.creds.Nip.Normalize())).Info("session active")
	return nil
}

func (a *AuthSession) fetchChallenge(ctx context.Context) (*model.ChallengeResponse, error) {
	req := model.ChallengeRequest{
		ContextIdentifier: model.NipContext(string(a.creds.Nip.Normalize())),
	}
	var challenge model.ChallengeResponse
	resp, err := a.client.PostJSON(ctx, "/auth/challenge", "", req, &challenge)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, &ProtocolError{Operation: "auth challenge", Status: resp.Status, Body: Truncate(string(resp.Body))}
	}
	if challenge.Challenge == "" {
		return nil, &ProtocolError{Operation: "auth challenge", Status: resp.Status, Body: "empty challenge in response"}
	}
	return &challenge, nil
}

// initWithToken szyfruje "token|timestampMs" kluczem publicznym MF
// i wysyła na /auth/ksef-token.
func (a *AuthSession) initWithToken(ctx context.Context, challenge *model.ChallengeResponse) (*model.AuthenticationInitResponse, error) {
	pem, err := a.keys.EnsureFresh(ctx)
	if err != nil {
		return nil, err
	}

	encrypted, err := cipher.EncryptToken(a.creds.Token, challenge.ChallengeTimeMs(), pem)
	if err != nil {
		return nil, &CryptoError{Op: "encrypt ksef token", Err: err}
	}

	req := model.InitTokenAuthRequest{
		Challenge:         challenge.Challenge,
		ContextIdentifier: model.NipContext(string(a.creds.Nip.Normalize())),
		EncryptedToken:    encrypted,
	}
	var init model.AuthenticationInitResponse
	resp, err := a.client.PostJSON(ctx, "/auth/ksef-token", "", req, &init)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusAccepted {
		return nil, &ProtocolError{Operation: "token auth init", Status: resp.Status, Body: Truncate(string(resp.Body))}
	}
	return &init, nil
}

// initWithSignature podpisuje dokument AuthTokenRequest podpisem XAdES-BES
// i wysyła na /auth/xades-signature. Poza produkcją wyłączana jest
// weryfikacja łańcucha certyfikatu, bo środowiska testowe akceptują
// certyfikaty self-signed.
func (a *AuthSession) initWithSignature(ctx context.Context, challenge *model.ChallengeResponse) (*model.AuthenticationInitResponse, error) {
	cert, err := keys.LoadCertificate(a.creds.Certificate)
	if err != nil {
		return nil, &ConfigurationError{Field: "certificate", Message: "cannot parse signing certificate", Err: err}
	}
	signer, err := keys.LoadSigner(a.creds.PrivateKey, a.creds.KeyPassphrase)
	if err != nil {
		return nil, &ConfigurationError{Field: "privateKey", Message: "cannot parse private key", Err: err}
	}

	signed, err := xades.SignedAuthRequest(challenge.Challenge, string(a.creds.Nip.Normalize()), cert, signer)
	if err != nil {
		return nil, &CryptoError{Op: "xades signature", Err: err}
	}

	endpoint := "/auth/xades-signature"
	if !a.creds.Environment.IsProd() {
		endpoint += "?verifyCertificateChain=false"
	}

	var init model.AuthenticationInitResponse
	resp, err := a.client.PostXML(ctx, endpoint, signed, &init)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusAccepted {
		return nil, &ProtocolError{Operation: "xades auth init", Status: resp.Status, Body: Truncate(string(resp.Body))}
	}
	return &init, nil
}

// awaitActivation odpytuje GET /auth/{referenceNumber} aż do aktywacji,
// błędu lub wyczerpania budżetu. Kod wewnętrzny 200 oznacza gotowość,
// >= 400 porażkę, pozostałe trwające przetwarzanie.
func (a *AuthSession) awaitActivation(ctx context.Context, referenceNumber, authToken string) (string, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(a.interval):
		}

		var status model.ActivationStatusResponse
		resp, err := a.client.GetJSON(ctx, "/auth/"+referenceNumber, authToken, &status)
		if err != nil {
			return "", err
		}
		if resp.Status != http.StatusOK {
			// przejściowe błędy serwera nie przerywają odpytywania
			logger.WithField("status", resp.Status).Warn("activation status check failed, retrying")
			continue
		}

		logger.WithField("code", status.Status.Code).Debug("activation status")
		switch {
		case status.Status.Code == 200:
			if status.SessionToken != nil && status.SessionToken.Token != "" {
				return status.SessionToken.Token, nil
			}
			return a.redeemToken(ctx, authToken)
		case status.Status.Code >= 400:
			return "", &AuthenticationError{Code: status.Status.Code, Description: status.Status.Description}
		}
	}
	return "", &TimeoutError{Operation: "authentication activation", Attempts: a.maxAttempts}
}

// redeemToken wymienia token tymczasowy na token dostępowy sesji.
func (a *AuthSession) redeemToken(ctx context.Context, authToken string) (string, error) {
	var redeemed model.RedeemTokensResponse
	resp, err := a.client.PostJSON(ctx, "/auth/token/redeem", authToken, nil, &redeemed)
	if err != nil {
		return "", err
	}
	if resp.Status != http.StatusOK {
		return "", &ProtocolError{Operation: "token redeem", Status: resp.Status, Body: Truncate(string(resp.Body))}
	}
	if redeemed.AccessToken.Token == "" {
		return "", &ProtocolError{Operation: "token redeem", Status: resp.Status, Body: "empty access token in response"}
	}
	return redeemed.AccessToken.Token, nil
}
