// Package vault holds the passphrase-derived AEAD key that gates every
// secret in the store.
//
// The key lives only in memory. A candidate passphrase is checked against
// the stored salt and its ciphertext (saltCrypt): the first successful unlock
// writes saltCrypt (trust on first use), later unlocks must decrypt it back to
// the salt.
package vault

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/cryptox"
	"github.com/Individual-1/notifier/internal/logging"
	"github.com/Individual-1/notifier/internal/models"
	"golang.org/x/sync/singleflight"
)

// ConfigStore is the part of the store the vault depends on.
type ConfigStore interface {
	Get(ctx context.Context, key string) (*models.ConfigEntry, error)
	Put(ctx context.Context, entry *models.ConfigEntry) (string, error)
	RotateSalt(ctx context.Context, salt []byte) error
	ResetVault(ctx context.Context) error
}

type Vault struct {
	store ConfigStore
	log   logging.Logger

	mu   sync.RWMutex
	aead cryptox.AEAD

	// installMu serializes salt handling, validation and key install.
	installMu sync.Mutex
	unlocks   singleflight.Group

	newSalt func() ([]byte, error)
}

func New(store ConfigStore, log logging.Logger) *Vault {
	if log == nil {
		log = logging.Discard()
	}
	return &Vault{
		store:   store,
		log:     log.With("module", "vault"),
		newSalt: cryptox.GenerateSalt,
	}
}

// IsUnlocked reports whether a key is installed.
func (v *Vault) IsUnlocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.aead != nil
}

// Unlock derives a key from passphrase and installs it if it validates.
// A wrong passphrase yields (false, nil); only store failures are errors.
// Concurrent calls with the same passphrase share one derivation.
func (v *Vault) Unlock(ctx context.Context, passphrase []byte) (bool, error) {
	if v.IsUnlocked() {
		return true, nil
	}

	sum := sha256.Sum256(passphrase)
	flightKey := hex.EncodeToString(sum[:])

	res, err, shared := v.unlocks.Do(flightKey, func() (any, error) {
		return v.unlock(context.WithoutCancel(ctx), passphrase)
	})
	if shared {
		v.log.Debug(ctx, "unlock shared with a concurrent caller")
	}
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

func (v *Vault) unlock(ctx context.Context, passphrase []byte) (bool, error) {
	v.installMu.Lock()
	defer v.installMu.Unlock()

	if v.IsUnlocked() {
		return true, nil
	}

	salt, err := v.loadOrCreateSalt(ctx)
	if err != nil {
		return false, err
	}

	key, err := cryptox.DeriveKey(passphrase, salt)
	if err != nil {
		return false, err
	}
	aead, err := cryptox.NewAESGCM(key)
	common.WipeByteArray(key)
	if err != nil {
		return false, fmt.Errorf("failed to build cipher: %w", err)
	}

	ok, err := v.validate(ctx, aead, salt)
	if err != nil || !ok {
		if err == nil {
			v.log.Info(ctx, "unlock rejected: wrong passphrase")
		}
		return false, err
	}

	v.mu.Lock()
	v.aead = aead
	v.mu.Unlock()

	v.log.Info(ctx, "vault unlocked")
	return true, nil
}

// loadOrCreateSalt returns the stored salt, creating one if missing.
// Creating a salt purges every encrypted entry in the same transaction.
func (v *Vault) loadOrCreateSalt(ctx context.Context) ([]byte, error) {
	e, err := v.store.Get(ctx, models.KeySalt)
	if err != nil {
		return nil, fmt.Errorf("failed to load salt: %w", err)
	}
	if e != nil && len(e.Bytes) > 0 {
		return e.Bytes, nil
	}

	salt, err := v.newSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if err := v.store.RotateSalt(ctx, salt); err != nil {
		return nil, fmt.Errorf("failed to store salt: %w", err)
	}
	v.log.Info(ctx, "new salt created, encrypted entries purged")
	return salt, nil
}

// validate runs the saltCrypt check for a candidate cipher.
func (v *Vault) validate(ctx context.Context, aead cryptox.AEAD, salt []byte) (bool, error) {
	e, err := v.store.Get(ctx, models.KeySaltCrypt)
	if err != nil {
		return false, fmt.Errorf("failed to load saltCrypt: %w", err)
	}

	if e == nil {
		ct, err := aead.Encrypt(salt, []byte(models.Purpose(models.KeySaltCrypt)))
		if err != nil {
			return false, fmt.Errorf("failed to encrypt salt: %w", err)
		}
		if _, err := v.store.Put(ctx, models.NewBytesEntry(models.KeySaltCrypt, ct)); err != nil {
			return false, fmt.Errorf("failed to store saltCrypt: %w", err)
		}
		return true, nil
	}

	pt, err := aead.Decrypt(e.Bytes, []byte(models.Purpose(models.KeySaltCrypt)))
	if err != nil {
		return false, nil
	}
	return cryptox.Equal(pt, salt), nil
}

// Lock drops the in-memory key.
func (v *Vault) Lock() {
	v.mu.Lock()
	v.aead = nil
	v.mu.Unlock()
}

// IsInitialized reports whether a passphrase has been set.
func (v *Vault) IsInitialized(ctx context.Context) (bool, error) {
	e, err := v.store.Get(ctx, models.KeySaltCrypt)
	if err != nil {
		return false, err
	}
	return e != nil, nil
}

// Reset forgets the passphrase: the salt and every encrypted entry are
// deleted atomically and the vault is locked.
func (v *Vault) Reset(ctx context.Context) error {
	v.installMu.Lock()
	defer v.installMu.Unlock()

	if err := v.store.ResetVault(ctx); err != nil {
		return fmt.Errorf("failed to reset vault: %w", err)
	}
	v.Lock()
	v.log.Info(ctx, "vault reset")
	return nil
}

// Encrypt seals data under the installed key, bound to purpose. The result
// opens only through Decrypt with the same purpose.
func (v *Vault) Encrypt(data []byte, purpose string) ([]byte, error) {
	v.mu.RLock()
	aead := v.aead
	v.mu.RUnlock()
	if aead == nil {
		return nil, common.ErrLocked
	}
	return aead.Encrypt(data, []byte(purpose))
}

// Decrypt opens data sealed under the installed key for purpose.
func (v *Vault) Decrypt(data []byte, purpose string) ([]byte, error) {
	v.mu.RLock()
	aead := v.aead
	v.mu.RUnlock()
	if aead == nil {
		return nil, common.ErrLocked
	}
	return aead.Decrypt(data, []byte(purpose))
}
