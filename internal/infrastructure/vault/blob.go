// Package vault encrypts provider profiles at rest with a passphrase-derived
// key. The envelope layout is magic || version || salt || nonce || ciphertext,
// and decryption fails closed with one opaque error kind so callers cannot
// distinguish a wrong passphrase from a tampered envelope.
package vault

import (
	"crypto/rand"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/doc2md/doc2md/internal/core/domain"
)

const (
	envelopeVersion = 1

	saltLen  = 16
	nonceLen = chacha20poly1305.NonceSize
	keyLen   = chacha20poly1305.KeySize
	tagLen   = 16

	// Argon2id work factors tuned for interactive use.
	argonMemoryKiB = 19 * 1024
	argonTime      = 2
	argonLanes     = 1
)

var envelopeMagic = []byte("D2MD")

var errDecrypt = domain.WrapError(domain.ErrDecryptFailed, "decrypt blob", errors.New("envelope cannot be opened"))

func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "derive key", errors.New("passphrase must not be empty"))
	}
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemoryKiB, argonLanes, keyLen), nil
}

// EncryptBlob seals plain under a key derived from passphrase and a fresh
// random salt. A fresh nonce is drawn per call; the key never leaves this
// function.
func EncryptBlob(plain []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltLen)
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(envelopeMagic)+1+saltLen+nonceLen+len(plain)+tagLen)
	out = append(out, envelopeMagic...)
	out = append(out, envelopeVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plain, nil), nil
}

// DecryptBlob opens an envelope produced by EncryptBlob. Any defect — short
// blob, unknown magic or version, authentication failure — yields the same
// ErrDecryptFailed kind.
func DecryptBlob(blob []byte, passphrase string) ([]byte, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decrypt blob", errors.New("passphrase must not be empty"))
	}

	minLen := len(envelopeMagic) + 1 + saltLen + nonceLen + tagLen
	if len(blob) < minLen {
		return nil, errDecrypt
	}

	rest := blob
	magic := rest[:len(envelopeMagic)]
	rest = rest[len(envelopeMagic):]
	if string(magic) != string(envelopeMagic) {
		return nil, errDecrypt
	}

	version := rest[0]
	rest = rest[1:]
	if version != envelopeVersion {
		return nil, errDecrypt
	}

	salt := rest[:saltLen]
	rest = rest[saltLen:]
	nonce := rest[:nonceLen]
	ciphertext := rest[nonceLen:]

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errDecrypt
	}

	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errDecrypt
	}
	return plain, nil
}
