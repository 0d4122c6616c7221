package model

import "time"

// ContextIdentifier kontekst uwierzytelnienia. KSeF 2.0 oczekuje
// {type: "Nip", value: "..."}.
type ContextIdentifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

const ContextTypeNip = "Nip"

func NipContext(nip string) ContextIdentifier {
	return ContextIdentifier{Type: ContextTypeNip, Value: nip}
}

type ChallengeRequest struct {
	ContextIdentifier ContextIdentifier `json:"contextIdentifier"`
}

// ChallengeResponse odpowiedź na POST /auth/challenge. Challenge jest
// jednorazowy; do szyfrowania tokenu potrzebny jest czas serwera w ms.
type ChallengeResponse struct {
	Challenge   string    `json:"challenge"`
	Timestamp   time.Time `json:"timestamp"`
	TimestampMs int64     `json:"timestampMs,omitempty"`
}

// ChallengeTimeMs preferuje timestampMs, gdy serwer go zwrócił; starsze
// wersje API podają tylko znacznik ISO.
func (c *ChallengeResponse) ChallengeTimeMs() int64 {
	if c.TimestampMs != 0 {
		return c.TimestampMs
	}
	return c.Timestamp.UnixMilli()
}

type InitTokenAuthRequest struct {
	Challenge         string            `json:"challenge"`
	ContextIdentifier ContextIdentifier `json:"contextIdentifier"`
	EncryptedToken    string            `json:"encryptedToken"`
}

type AuthenticationToken struct {
	Token string `json:"token"`
}

// AuthenticationInitResponse wspólna odpowiedź 202 dla /auth/ksef-token
// i /auth/xades-signature.
type AuthenticationInitResponse struct {
	ReferenceNumber     string              `json:"referenceNumber"`
	AuthenticationToken AuthenticationToken `json:"authenticationToken"`
}

// ActivationStatusResponse status operacji uwierzytelnienia
// (GET /auth/{referenceNumber}). SessionToken bywa obecny od razu;
// w przeciwnym razie token sesyjny trzeba wykupić na /auth/token/redeem.
type ActivationStatusResponse struct {
	Status       StatusInfo           `json:"status"`
	SessionToken *AuthenticationToken `json:"sessionToken,omitempty"`
}

type TokenInfo struct {
	Token      string    `json:"token"`
	ValidUntil time.Time `json:"validUntil,omitempty"`
}

// RedeemTokensResponse odpowiedź POST /auth/token/redeem.
type RedeemTokensResponse struct {
	AccessToken  TokenInfo `json:"accessToken"`
	RefreshToken TokenInfo `json:"refreshToken,omitempty"`
}
