package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturnik/ksef-client/ksef"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ksef.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	old := configFile
	configFile = path
	t.Cleanup(func() { configFile = old })
}

func TestDebugLoggingSources(t *testing.T) {
	old := verbose
	t.Cleanup(func() { verbose = old })

	verbose = false
	t.Setenv("KSEF_DEBUG", "")
	assert.False(t, debugLogging())

	verbose = true
	assert.True(t, debugLogging())

	verbose = false
	t.Setenv("KSEF_DEBUG", "true")
	assert.True(t, debugLogging())
}

func TestLoadConfigTokenMode(t *testing.T) {
	writeConfig(t, `
environment: test
nip: "1111111111"
auth:
  mode: token
  token: sekretny-token
`)

	cfg, err := loadConfig()
	require.NoError(t, err)

	creds, err := buildCredentials(cfg)
	require.NoError(t, err)
	assert.Equal(t, ksef.AuthModeToken, creds.Mode)
	assert.Equal(t, ksef.Test, creds.Environment)
	assert.Equal(t, "sekretny-token", creds.Token)
	assert.Equal(t, ksef.Nip("1111111111"), creds.Nip)
}

func TestLoadConfigCertificateMode(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, []byte("cert pem"), 0o600))
	require.NoError(t, os.WriteFile(keyPath, []byte("key pem"), 0o600))

	writeConfig(t, `
environment: prod
nip: "1111111111"
auth:
  mode: certificate
  certificate_file: `+certPath+`
  key_file: `+keyPath+`
  key_passphrase: haslo
`)

	cfg, err := loadConfig()
	require.NoError(t, err)

	creds, err := buildCredentials(cfg)
	require.NoError(t, err)
	assert.Equal(t, ksef.AuthModeCertificate, creds.Mode)
	assert.Equal(t, ksef.Prod, creds.Environment)
	assert.Equal(t, []byte("cert pem"), creds.Certificate)
	assert.Equal(t, []byte("key pem"), creds.PrivateKey)
	assert.Equal(t, []byte("haslo"), creds.KeyPassphrase)
}

func TestLoadConfigTokenFromEnv(t *testing.T) {
	t.Setenv("KSEF_TOKEN", "token-z-env")
	writeConfig(t, `
environment: demo
nip: "1111111111"
auth:
  mode: token
`)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "token-z-env", cfg.Auth.Token)
}

func TestBuildCredentialsRejectsUnknownMode(t *testing.T) {
	writeConfig(t, `
environment: test
nip: "1111111111"
auth:
  mode: biometria
`)

	cfg, err := loadConfig()
	require.NoError(t, err)

	_, err = buildCredentials(cfg)
	assert.Error(t, err)
}

func TestBuildCredentialsRejectsUnknownEnvironment(t *testing.T) {
	writeConfig(t, `
environment: staging
nip: "1111111111"
`)

	cfg, err := loadConfig()
	require.NoError(t, err)

	_, err = buildCredentials(cfg)
	assert.Error(t, err)
}
