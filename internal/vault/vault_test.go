package vault

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/logging"
	"github.com/Individual-1/notifier/internal/models"
	"github.com/Individual-1/notifier/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newVault(t *testing.T) (*Vault, ConfigStore) {
	t.Helper()
	s := storetest.New(t)
	return New(s, logging.Discard()), s
}

func TestLockedVault_EncryptDecryptFail(t *testing.T) {
	v, _ := newVault(t)

	assert.False(t, v.IsUnlocked())

	ct, err := v.Encrypt([]byte("m"), models.PurposeForeground)
	require.ErrorIs(t, err, common.ErrLocked)
	assert.Nil(t, ct)

	pt, err := v.Decrypt([]byte("m"), models.PurposeForeground)
	require.ErrorIs(t, err, common.ErrLocked)
	assert.Nil(t, pt)
}

func TestFirstUnlock_TrustsAndWritesSaltCrypt(t *testing.T) {
	v, s := newVault(t)
	ctx := context.Background()

	ok, err := v.Unlock(ctx, []byte("correct horse"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, v.IsUnlocked())

	sc, err := s.Get(ctx, models.KeySaltCrypt)
	require.NoError(t, err)
	require.NotNil(t, sc)

	initialized, err := v.IsInitialized(ctx)
	require.NoError(t, err)
	assert.True(t, initialized)

	// already unlocked: any passphrase is a no-op true
	ok, err = v.Unlock(ctx, []byte("anything"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnlock_FreshProcess(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	first := New(s, nil)
	ok, err := first.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	require.True(t, ok)
	ct, err := first.Encrypt([]byte("secret"), models.PurposeForeground)
	require.NoError(t, err)

	second := New(s, nil)
	ok, err = second.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	require.True(t, ok)

	pt, err := second.Decrypt(ct, models.PurposeForeground)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), pt)

	third := New(s, nil)
	ok, err = third.Unlock(ctx, []byte("other"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, third.IsUnlocked())
}

func TestUnlock_NewSaltPurgesEncrypted(t *testing.T) {
	v, s := newVault(t)
	ctx := context.Background()

	// orphan ciphertext from a previous salt
	_, err := s.Put(ctx, models.NewBytesEntry(models.KeyAccessToken, []byte{1, 2, 3}))
	require.NoError(t, err)

	ok, err := v.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	require.True(t, ok)

	e, err := s.Get(ctx, models.KeyAccessToken)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestUnlock_TamperedSaltCryptRejected(t *testing.T) {
	v, s := newVault(t)
	ctx := context.Background()

	ok, err := v.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	require.True(t, ok)

	// a valid ciphertext of something other than the salt
	other, err := v.Encrypt([]byte("not the salt"), models.Purpose(models.KeySaltCrypt))
	require.NoError(t, err)
	_, err = s.Put(ctx, models.NewBytesEntry(models.KeySaltCrypt, other))
	require.NoError(t, err)

	fresh := New(s, nil)
	ok, err = fresh.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecrypt_PurposeIsBound(t *testing.T) {
	v, s := newVault(t)
	ctx := context.Background()

	ok, err := v.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	require.True(t, ok)

	ct, err := v.Encrypt([]byte("refresh"), models.Purpose(models.KeyRefreshToken))
	require.NoError(t, err)

	pt, err := v.Decrypt(ct, models.Purpose(models.KeyRefreshToken))
	require.NoError(t, err)
	assert.Equal(t, []byte("refresh"), pt)

	_, err = v.Decrypt(ct, models.PurposeForeground)
	require.Error(t, err)
	_, err = v.Decrypt(ct, models.Purpose(models.KeyAccessToken))
	require.Error(t, err)

	// the stored saltCrypt is bound to its key as well
	sc, err := s.Get(ctx, models.KeySaltCrypt)
	require.NoError(t, err)
	_, err = v.Decrypt(sc.Bytes, models.PurposeForeground)
	require.Error(t, err)
}

func TestLockAndReset(t *testing.T) {
	v, s := newVault(t)
	ctx := context.Background()

	ok, err := v.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	require.True(t, ok)

	v.Lock()
	assert.False(t, v.IsUnlocked())

	require.NoError(t, v.Reset(ctx))
	initialized, err := v.IsInitialized(ctx)
	require.NoError(t, err)
	assert.False(t, initialized)

	salt, err := s.Get(ctx, models.KeySalt)
	require.NoError(t, err)
	assert.Nil(t, salt)

	// any passphrase is accepted after a reset
	ok, err = v.Unlock(ctx, []byte("new pw"))
	require.NoError(t, err)
	assert.True(t, ok)
}

type failingStore struct {
	ConfigStore
}

func (failingStore) Get(ctx context.Context, key string) (*models.ConfigEntry, error) {
	return nil, errors.New("disk gone")
}

func TestUnlock_StoreFailureIsError(t *testing.T) {
	v := New(failingStore{}, nil)

	ok, err := v.Unlock(context.Background(), []byte("pw"))
	require.Error(t, err)
	assert.False(t, ok)
	assert.False(t, v.IsUnlocked())
}

type countingStore struct {
	ConfigStore
	saltReads atomic.Int32
}

func (c *countingStore) Get(ctx context.Context, key string) (*models.ConfigEntry, error) {
	if key == models.KeySalt {
		c.saltReads.Add(1)
	}
	return c.ConfigStore.Get(ctx, key)
}

func TestUnlock_ConcurrentCallersAgree(t *testing.T) {
	cs := &countingStore{ConfigStore: storetest.New(t)}
	v := New(cs, nil)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	results := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := v.Unlock(ctx, []byte("same"))
			assert.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()

	for _, ok := range results {
		assert.True(t, ok)
	}
	// derivation ran at most once per flight and never after install
	assert.LessOrEqual(t, int(cs.saltReads.Load()), n)
	assert.True(t, v.IsUnlocked())
}

func TestVault_RoundTripProperty(t *testing.T) {
	v, _ := newVault(t)
	ok, err := v.Unlock(context.Background(), []byte("pw"))
	require.NoError(t, err)
	require.True(t, ok)

	rapid.Check(t, func(rt *rapid.T) {
		m := rapid.SliceOf(rapid.Byte()).Draw(rt, "m")

		ct, err := v.Encrypt(m, models.PurposeForeground)
		if err != nil {
			rt.Fatalf("encrypt: %v", err)
		}
		pt, err := v.Decrypt(ct, models.PurposeForeground)
		if err != nil {
			rt.Fatalf("decrypt: %v", err)
		}
		if string(pt) != string(m) {
			rt.Fatalf("round trip mismatch")
		}
	})
}

func TestUnlock_WrongPassphrasesNeverAccepted(t *testing.T) {
	if testing.Short() {
		t.Skip("scrypt-heavy")
	}
	s := storetest.New(t)
	ctx := context.Background()

	ok, err := New(s, nil).Unlock(ctx, []byte("the right one"))
	require.NoError(t, err)
	require.True(t, ok)

	rapid.Check(t, func(rt *rapid.T) {
		pw := rapid.SliceOfN(rapid.Byte(), 1, 32).
			Filter(func(b []byte) bool { return string(b) != "the right one" }).
			Draw(rt, "pw")

		v := New(s, nil)
		ok, err := v.Unlock(ctx, pw)
		if err != nil {
			rt.Fatalf("unlock: %v", err)
		}
		if ok || v.IsUnlocked() {
			rt.Fatalf("wrong passphrase %q accepted", pw)
		}
	})
}
