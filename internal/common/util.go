package common

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
)

// GenerateRandByteArray returns size bytes from the system CSPRNG.
// crypto/rand.Read never returns an error on supported platforms; a failure
// there means the process cannot produce secrets at all, so it panics.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic("common: crypto/rand failed: " + err.Error())
	}
	return b
}

// MakeRandHexString generates a random hexadecimal string of the given size.
// The resulting string is twice as long as size.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// It is used for passphrases and decrypted tokens once they are no longer needed.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}

// DefaultSessionFile returns the session file path shared by the background
// service and the control client. It falls back to the working directory when
// no user config dir is available.
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.FromSlash(DefaultSessionFileName)
	}
	return filepath.Join(dir, filepath.FromSlash(DefaultSessionFileName))
}
