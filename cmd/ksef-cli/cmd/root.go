package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fakturnik/ksef-client/ksef"
	"github.com/fakturnik/ksef-client/ksef/api"
	"github.com/fakturnik/ksef-client/ksef/util"
)

var (
	version = "0.9.0"

	configFile string
	verbose    bool
)

// Config plik konfiguracyjny narzędzia (YAML).
type Config struct {
	Environment string `yaml:"environment"`
	Nip         string `yaml:"nip"`

	Auth struct {
		Mode            string `yaml:"mode"`
		Token           string `yaml:"token"`
		CertificateFile string `yaml:"certificate_file"`
		KeyFile         string `yaml:"key_file"`
		KeyPassphrase   string `yaml:"key_passphrase"`
	} `yaml:"auth"`
}

var rootCmd = &cobra.Command{
	Use:   "ksef-cli",
	Short: "Wysyłka i odczyt faktur w KSeF 2.0",
	Long: `ksef-cli obsługuje pełny cykl pracy z KSeF: logowanie (token KSeF
albo podpis certyfikatem), wysyłkę zaszyfrowanych faktur w sesji
interaktywnej, odpytywanie o status przetwarzania oraz zapytania
o metadane i pobieranie treści faktur.

Przykłady:
  ksef-cli login
  ksef-cli send faktura.xml
  ksef-cli send --offline faktura.xml
  ksef-cli list --from 2026-08-01 --to 2026-08-31
  ksef-cli fetch 1111111111-20260829-ABCDEF123456-AB`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "ksef.yaml", "Plik konfiguracyjny")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Logowanie na poziomie debug")

	cobra.OnInitialize(func() {
		if debugLogging() {
			logrus.SetLevel(logrus.DebugLevel)
		}
	})
}

// debugLogging łączy flagę --verbose z przełącznikiem środowiskowym KSEF_DEBUG.
func debugLogging() bool {
	return verbose || util.DebugEnabled()
}

func loadConfig() (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}
	if cfg.Auth.Token == "" {
		cfg.Auth.Token = os.Getenv("KSEF_TOKEN")
	}
	return &cfg, nil
}

// buildCredentials tłumaczy konfigurację na materiał uwierzytelniający,
// dociągając pliki certyfikatu i klucza.
func buildCredentials(cfg *Config) (ksef.Credentials, error) {
	creds := ksef.Credentials{
		Nip: ksef.Nip(cfg.Nip),
	}
	if err := creds.Environment.UnmarshalText([]byte(cfg.Environment)); err != nil {
		return creds, err
	}

	switch strings.ToLower(cfg.Auth.Mode) {
	case "token", "":
		creds.Mode = ksef.AuthModeToken
		creds.Token = cfg.Auth.Token
	case "certificate", "cert":
		creds.Mode = ksef.AuthModeCertificate
		cert, err := os.ReadFile(cfg.Auth.CertificateFile)
		if err != nil {
			return creds, fmt.Errorf("cannot read certificate file: %w", err)
		}
		key, err := os.ReadFile(cfg.Auth.KeyFile)
		if err != nil {
			return creds, fmt.Errorf("cannot read key file: %w", err)
		}
		creds.Certificate = cert
		creds.PrivateKey = key
		if cfg.Auth.KeyPassphrase != "" {
			creds.KeyPassphrase = []byte(cfg.Auth.KeyPassphrase)
		}
	default:
		return creds, fmt.Errorf("unknown auth mode %q (allowed: token, certificate)", cfg.Auth.Mode)
	}
	return creds, nil
}

func buildClient(creds ksef.Credentials) *api.Client {
	var log api.ExchangeLogger = api.NopExchangeLogger{}
	if debugLogging() {
		log = api.NewLogrusExchangeLogger()
	}
	return api.New(creds.Environment.BaseURL(), nil, log)
}

// authenticate przeprowadza pełne logowanie i zwraca token sesyjny.
func authenticate(ctx context.Context, creds ksef.Credentials, client *api.Client) (string, error) {
	keyCache := ksef.NewPublicKeyCache(client)
	session, err := ksef.NewAuthSession(creds, client, keyCache)
	if err != nil {
		return "", err
	}
	if err := session.Authenticate(ctx); err != nil {
		return "", err
	}
	return session.SessionToken(), nil
}
