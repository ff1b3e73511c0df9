// Package cryptox holds the vault's cryptographic primitives: passphrase key
// derivation (scrypt) and an AES-256-GCM AEAD whose ciphertext carries its
// own nonce.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Scrypt cost parameters and derived key size.
const (
	ScryptN = 16384
	ScryptR = 8
	ScryptP = 1
	KeySize = 32

	// SaltSize is the length of a freshly generated vault salt.
	SaltSize = 32
)

// ErrCiphertextTooShort is returned by Decrypt when the input cannot even
// hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// AEAD encrypts and authenticates byte strings. The associated data ad is
// authenticated but not stored; Decrypt fails unless it gets the same ad
// that Encrypt was given.
type AEAD interface {
	Encrypt(plaintext, ad []byte) ([]byte, error)
	Decrypt(ciphertext, ad []byte) ([]byte, error)
}

// DeriveKey stretches a passphrase into a KeySize-byte key with
// scrypt(N=16384, r=8, p=1).
func DeriveKey(passphrase, salt []byte) ([]byte, error) {
	key, err := scrypt.Key(passphrase, salt, ScryptN, ScryptR, ScryptP, KeySize)
	if err != nil {
		return nil, fmt.Errorf("scrypt: %w", err)
	}
	return key, nil
}

// GenerateSalt returns SaltSize bytes from crypto/rand.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Equal reports whether a and b hold the same bytes, in constant time with
// respect to their contents.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

type aesGCM struct {
	gcm cipher.AEAD
}

// NewAESGCM builds an AEAD from a raw AES key (16, 24 or 32 bytes).
//
// Encrypt output layout is nonce || sealed, with a fresh random 12-byte
// nonce per call, so the ciphertext alone is enough to decrypt:
//
//	key, _ := cryptox.DeriveKey(pw, salt)
//	a, _ := cryptox.NewAESGCM(key)
//	ct, _ := a.Encrypt([]byte("refresh-token"), []byte("refreshToken"))
//	pt, err := a.Decrypt(ct, []byte("refreshToken")) // err != nil on tampering, wrong key or wrong ad
func NewAESGCM(key []byte) (AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &aesGCM{gcm: gcm}, nil
}

func (a *aesGCM) Encrypt(plaintext, ad []byte) ([]byte, error) {
	nonce := make([]byte, a.gcm.NonceSize(), a.gcm.NonceSize()+len(plaintext)+a.gcm.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return a.gcm.Seal(nonce, nonce, plaintext, ad), nil
}

func (a *aesGCM) Decrypt(ciphertext, ad []byte) ([]byte, error) {
	ns := a.gcm.NonceSize()
	if len(ciphertext) < ns+a.gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	return a.gcm.Open(nil, ciphertext[:ns], ciphertext[ns:], ad)
}
