package ksef

import (
	"errors"
	"fmt"
)

// maxBodyInError ogranicza wielkość treści odpowiedzi przechowywanej w błędzie.
const maxBodyInError = 2048

var (
	ErrNoSessionToken = errors.New("ksef: no active session token")
	ErrSessionClosed  = errors.New("ksef: exchange session is closed")
)

// ConfigurationError brak lub niepoprawny materiał kryptograficzny / konfiguracja.
// Nie podlega ponawianiu.
type ConfigurationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("ksef configuration: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("ksef configuration: %s", e.Message)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// CryptoError błąd podpisu lub szyfrowania, zawsze fatalny.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("ksef crypto: %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// ProtocolError nieoczekiwany status HTTP na kroku nieidempotentnym.
type ProtocolError struct {
	Operation string
	Status    int
	Body      string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("ksef %s: unexpected status %d: %s", e.Operation, e.Status, e.Body)
}

// AuthenticationError kod >= 400 podczas aktywacji sesji uwierzytelniającej.
type AuthenticationError struct {
	Code        int
	Description string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("ksef authentication failed with code %d: %s", e.Code, e.Description)
}

// TimeoutError wyczerpany budżet odpytywania; wymaga nowej sesji uwierzytelniającej.
type TimeoutError struct {
	Operation string
	Attempts  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("ksef %s: polling budget exhausted after %d attempts", e.Operation, e.Attempts)
}

// SessionError nie udało się otworzyć sesji interaktywnej.
type SessionError struct {
	Status int
	Body   string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("ksef open session: status %d: %s", e.Status, e.Body)
}

// SubmissionError odpowiedź inna niż 202 na wysyłkę faktury.
type SubmissionError struct {
	Status int
	Body   string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("ksef send invoice: status %d: %s", e.Status, e.Body)
}

// FetchError odpowiedź inna niż 200 na pobranie metadanych lub treści faktury.
type FetchError struct {
	Operation string
	Status    int
	Body      string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("ksef %s: status %d: %s", e.Operation, e.Status, e.Body)
}

// Truncate przycina treść odpowiedzi do rozmiaru diagnostycznego.
func Truncate(body string) string {
	if len(body) > maxBodyInError {
		return body[:maxBodyInError] + "..."
	}
	return body
}
