// Package models defines the data shared by the store, the vault, the token
// manager and the message bus.
package models

import (
	"fmt"

	"github.com/Individual-1/notifier/internal/common"
)

// Known config keys.
const (
	KeySalt              = "salt"
	KeySaltCrypt         = "saltCrypt"
	KeyOAuthClientID     = "oauthClientId"
	KeyOAuthClientSecret = "oauthClientSecret"
	KeyAuthorizeURL      = "authorizeURL"
	KeyAccessToken       = "accessToken"
	KeyRefreshToken      = "refreshToken"
)

// KeySpec is the static shape of a config key.
type KeySpec struct {
	IsArray bool
	IsEnc   bool
}

var schema = map[string]KeySpec{
	KeySalt:              {IsArray: true, IsEnc: false},
	KeySaltCrypt:         {IsArray: true, IsEnc: true},
	KeyOAuthClientID:     {IsArray: false, IsEnc: false},
	KeyOAuthClientSecret: {IsArray: true, IsEnc: true},
	KeyAuthorizeURL:      {IsArray: false, IsEnc: false},
	KeyAccessToken:       {IsArray: true, IsEnc: true},
	KeyRefreshToken:      {IsArray: true, IsEnc: true},
}

// EncryptedKeys are purged whenever the vault key changes.
var EncryptedKeys = []string{
	KeySaltCrypt,
	KeyOAuthClientSecret,
	KeyAccessToken,
	KeyRefreshToken,
}

// PurposeForeground is the associated data of ciphertext produced or opened
// on behalf of the foreground client.
const PurposeForeground = "foreground"

// Purpose returns the associated data an encrypted key is sealed under.
// Rows owned by the background are bound to their own key name, so their
// ciphertext never opens under PurposeForeground.
func Purpose(key string) string {
	switch key {
	case KeySaltCrypt, KeyAccessToken, KeyRefreshToken:
		return key
	default:
		return PurposeForeground
	}
}

// Spec returns the schema for key.
func Spec(key string) (KeySpec, bool) {
	s, ok := schema[key]
	return s, ok
}

// ConfigEntry is one typed row of the config store. Bytes holds the value
// when IsArray is set, Text otherwise.
type ConfigEntry struct {
	Key     string `json:"key"`
	IsEnc   bool   `json:"isEnc"`
	IsArray bool   `json:"isArray"`
	Bytes   []byte `json:"-"`
	Text    string `json:"-"`
}

// NewBytesEntry builds an array-valued entry using the schema's IsEnc flag.
func NewBytesEntry(key string, value []byte) *ConfigEntry {
	s := schema[key]
	return &ConfigEntry{Key: key, IsEnc: s.IsEnc, IsArray: true, Bytes: value}
}

// NewTextEntry builds a string-valued entry using the schema's IsEnc flag.
func NewTextEntry(key string, value string) *ConfigEntry {
	s := schema[key]
	return &ConfigEntry{Key: key, IsEnc: s.IsEnc, IsArray: false, Text: value}
}

// Value returns the stored representation of the entry's value.
func (e *ConfigEntry) Value() []byte {
	if e.IsArray {
		return e.Bytes
	}
	return []byte(e.Text)
}

// CheckValid reports whether entry may be stored or trusted under key.
// It fails with common.ErrUnknownKey for keys outside the schema and with
// common.ErrSchemaMismatch for any shape disagreement.
func CheckValid(key string, entry *ConfigEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: nil entry for %q", common.ErrSchemaMismatch, key)
	}
	s, ok := schema[key]
	if !ok {
		return fmt.Errorf("%w: %q", common.ErrUnknownKey, key)
	}
	if entry.Key != key {
		return fmt.Errorf("%w: entry key %q stored under %q", common.ErrSchemaMismatch, entry.Key, key)
	}
	if entry.IsArray != s.IsArray || entry.IsEnc != s.IsEnc {
		return fmt.Errorf("%w: %q has isArray=%t isEnc=%t", common.ErrSchemaMismatch, key, entry.IsArray, entry.IsEnc)
	}
	if !entry.IsArray && entry.Bytes != nil {
		return fmt.Errorf("%w: %q is a string key", common.ErrSchemaMismatch, key)
	}
	return nil
}
