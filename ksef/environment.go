package ksef

import (
	"fmt"
	"strings"
)

// Environment wybiera instancję KSeF (adres bazowy API).
type Environment int

const (
	Test Environment = iota
	Demo
	Prod
)

func (e Environment) BaseURL() string {
	switch e {
	case Prod:
		return "https://api.ksef.mf.gov.pl/v2"
	case Test:
		return "https://api-test.ksef.mf.gov.pl/v2"
	case Demo:
		return "https://api-demo.ksef.mf.gov.pl/v2"
	}
	panic("invalid environment")
}

func (e Environment) Name() string {
	switch e {
	case Prod:
		return "prod"
	case Test:
		return "test"
	case Demo:
		return "demo"
	}
	panic("invalid environment")
}

// IsProd pozwala rozróżnić środowisko produkcyjne, np. przy weryfikacji
// łańcucha certyfikatów podczas logowania podpisem.
func (e Environment) IsProd() bool {
	return e == Prod
}

func (e *Environment) UnmarshalText(text []byte) error {
	val := strings.ToLower(strings.TrimSpace(string(text)))

	switch val {
	case "prod", "production":
		*e = Prod
	case "demo":
		*e = Demo
	case "test":
		*e = Test
	default:
		return fmt.Errorf("invalid KSeF environment: %q (allowed: prod, demo, test)", val)
	}
	return nil
}

// Nip identyfikator podatnika będący kontekstem uwierzytelnienia.
type Nip string

// Normalize usuwa separatory spotykane w danych wprowadzanych ręcznie.
func (n Nip) Normalize() Nip {
	s := strings.TrimSpace(string(n))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return Nip(s)
}
