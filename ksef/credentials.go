package ksef

// AuthMode wybiera sposób uwierzytelnienia w KSeF.
type AuthMode string

const (
	AuthModeToken       AuthMode = "TOKEN"
	AuthModeCertificate AuthMode = "CERTIFICATE"
)

// Credentials materiał uwierzytelniający jednego podatnika. Niemutowalne
// w czasie życia AuthSession; nie wolno współdzielić jednej AuthSession
// między różnymi NIP-ami.
type Credentials struct {
	Nip         Nip
	Mode        AuthMode
	Environment Environment

	// Token KSeF, wymagany dla AuthModeToken.
	Token string

	// Certyfikat i klucz prywatny w PEM, wymagane dla AuthModeCertificate.
	// KeyPassphrase jest opcjonalne (klucze ENCRYPTED PRIVATE KEY).
	Certificate   []byte
	PrivateKey    []byte
	KeyPassphrase []byte
}

// Validate sprawdza kompletność materiału dla wybranego trybu.
func (c *Credentials) Validate() error {
	if c.Nip.Normalize() == "" {
		return &ConfigurationError{Field: "nip", Message: "taxpayer identifier is required"}
	}

	switch c.Mode {
	case AuthModeToken:
		if c.Token == "" {
			return &ConfigurationError{Field: "token", Message: "KSeF token is required in TOKEN mode"}
		}
	case AuthModeCertificate:
		if len(c.Certificate) == 0 {
			return &ConfigurationError{Field: "certificate", Message: "signing certificate is required in CERTIFICATE mode"}
		}
		if len(c.PrivateKey) == 0 {
			return &ConfigurationError{Field: "privateKey", Message: "private key is required in CERTIFICATE mode"}
		}
	default:
		return &ConfigurationError{Field: "mode", Message: "unknown auth mode: " + string(c.Mode)}
	}
	return nil
}
