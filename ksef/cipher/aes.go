// Package cipher realizuje kryptografię wymaganą przez protokół KSeF:
// AES-256-CBC z PKCS#7 dla treści faktur, RSA-OAEP (SHA-256) dla krótkich
// sekretów oraz podpisy RSA-PSS / ECDSA dla dokumentu uwierzytelniającego.
package cipher

import (
	"bytes"
	aes2 "crypto/aes"
	ccipher "crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// SessionKeys klucz symetryczny i IV jednej sesji interaktywnej. Generowane
// dokładnie raz na sesję; nie wolno ich logować ani zapisywać jawnie.
type SessionKeys struct {
	Key []byte
	IV  []byte
}

// NewSessionKeys generuje świeży 256-bitowy klucz AES i 16-bajtowy IV.
func NewSessionKeys() (*SessionKeys, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	iv := make([]byte, 16)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate session IV: %w", err)
	}
	return &SessionKeys{Key: key, IV: iv}, nil
}

// IVBase64 zwraca wektor inicjalizacji w Base64, do otwarcia sesji.
func (s *SessionKeys) IVBase64() string {
	return base64.StdEncoding.EncodeToString(s.IV)
}

// Encrypt szyfruje content algorytmem AES-256-CBC z dopełnieniem PKCS#7.
func (s *SessionKeys) Encrypt(content []byte) ([]byte, error) {
	if len(s.Key) != 32 {
		return nil, fmt.Errorf("invalid key length: %d, expected 32 bytes (AES-256)", len(s.Key))
	}
	if len(s.IV) != aes2.BlockSize {
		return nil, fmt.Errorf("invalid IV length: %d, expected %d", len(s.IV), aes2.BlockSize)
	}

	block, err := aes2.NewCipher(s.Key)
	if err != nil {
		return nil, fmt.Errorf("NewCipher: %w", err)
	}

	padded := pkcs7Pad(content, aes2.BlockSize)
	out := make([]byte, len(padded))

	mode := ccipher.NewCBCEncrypter(block, s.IV)
	mode.CryptBlocks(out, padded)
	return out, nil
}

// Decrypt odszyfrowuje bufor AES-256-CBC i zdejmuje dopełnienie PKCS#7.
func (s *SessionKeys) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(s.Key) != 32 {
		return nil, fmt.Errorf("invalid key length: %d, expected 32 bytes (AES-256)", len(s.Key))
	}
	if len(s.IV) != aes2.BlockSize {
		return nil, fmt.Errorf("invalid IV length: %d, expected %d", len(s.IV), aes2.BlockSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes2.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext is not a multiple of the block size")
	}

	block, err := aes2.NewCipher(s.Key)
	if err != nil {
		return nil, fmt.Errorf("NewCipher: %w", err)
	}
	mode := ccipher.NewCBCDecrypter(block, s.IV)

	plain := make([]byte, len(ciphertext))
	mode.CryptBlocks(plain, ciphertext)

	pad := int(plain[len(plain)-1])
	if pad <= 0 || pad > aes2.BlockSize || pad > len(plain) {
		return nil, fmt.Errorf("invalid padding")
	}
	for i := 0; i < pad; i++ {
		if plain[len(plain)-1-i] != byte(pad) {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return plain[:len(plain)-pad], nil
}

// Wipe zeruje materiał klucza po zamknięciu sesji.
func (s *SessionKeys) Wipe() {
	for i := range s.Key {
		s.Key[i] = 0
	}
	for i := range s.IV {
		s.IV[i] = 0
	}
}

func pkcs7Pad(src []byte, blockSize int) []byte {
	padLen := blockSize - (len(src) % blockSize)
	if padLen == 0 {
		padLen = blockSize
	}
	return append(src, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

// PayloadMetadata skrót SHA-256 i rozmiar dokładnie tych bajtów, które
// zostały zmierzone, zarówno dla jawnej treści, jak i szyfrogramu.
type PayloadMetadata struct {
	Size    int64
	HashSHA []byte
}

func GetMetadata(payload []byte) PayloadMetadata {
	sum := sha256.Sum256(payload)
	return PayloadMetadata{
		Size:    int64(len(payload)),
		HashSHA: sum[:],
	}
}

// HashBase64 zwraca skrót w Base64, tak jak oczekuje tego API.
func (m PayloadMetadata) HashBase64() string {
	return base64.StdEncoding.EncodeToString(m.HashSHA)
}
