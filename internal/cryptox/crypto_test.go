package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func mustAEAD(t require.TestingT, key []byte) AEAD {
	a, err := NewAESGCM(key)
	require.NoError(t, err)
	return a
}

func TestDeriveKey_DeterministicAndSized(t *testing.T) {
	k1, err := DeriveKey([]byte("passphrase"), []byte("salt"))
	require.NoError(t, err)
	k2, err := DeriveKey([]byte("passphrase"), []byte("salt"))
	require.NoError(t, err)

	assert.Len(t, k1, KeySize)
	assert.Equal(t, k1, k2)
}

func TestDeriveKey_SaltMatters(t *testing.T) {
	k1, err := DeriveKey([]byte("passphrase"), []byte("salt-a"))
	require.NoError(t, err)
	k2, err := DeriveKey([]byte("passphrase"), []byte("salt-b"))
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}

func TestGenerateSalt_LengthAndEntropyHint(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	b, err := GenerateSalt()
	require.NoError(t, err)

	assert.Len(t, a, SaltSize)
	assert.Len(t, b, SaltSize)
	if bytes.Equal(a, b) {
		t.Logf("warning: two salts are identical; extremely unlikely")
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal([]byte{1, 2, 3}, []byte{1, 2, 3}))
	assert.False(t, Equal([]byte{1, 2, 3}, []byte{1, 2, 4}))
	assert.False(t, Equal([]byte{1, 2, 3}, []byte{1, 2}))
	assert.True(t, Equal(nil, []byte{}))
}

func TestNewAESGCM_RejectsBadKeySize(t *testing.T) {
	_, err := NewAESGCM([]byte("short"))
	require.Error(t, err)
}

func TestAESGCM_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(t, "key")
		msg := rapid.SliceOf(rapid.Byte()).Draw(t, "msg")
		ad := rapid.SliceOf(rapid.Byte()).Draw(t, "ad")

		a := mustAEAD(t, key)
		ct, err := a.Encrypt(msg, ad)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		pt, err := a.Decrypt(ct, ad)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if !bytes.Equal(msg, pt) {
			t.Fatalf("roundtrip mismatch: got %x want %x", pt, msg)
		}
	})
}

func TestAESGCM_WrongKeyFails(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		k1 := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(t, "k1")
		k2 := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Filter(func(b []byte) bool {
			return !bytes.Equal(b, k1)
		}).Draw(t, "k2")
		msg := rapid.SliceOf(rapid.Byte()).Draw(t, "msg")

		ct, err := mustAEAD(t, k1).Encrypt(msg, nil)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		if _, err := mustAEAD(t, k2).Decrypt(ct, nil); err == nil {
			t.Fatalf("decrypt with wrong key must fail")
		}
	})
}

func TestAESGCM_WrongAssociatedDataFails(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(t, "key")
		ad1 := rapid.SliceOf(rapid.Byte()).Draw(t, "ad1")
		ad2 := rapid.SliceOf(rapid.Byte()).Filter(func(b []byte) bool {
			return !bytes.Equal(b, ad1)
		}).Draw(t, "ad2")
		msg := rapid.SliceOf(rapid.Byte()).Draw(t, "msg")

		a := mustAEAD(t, key)
		ct, err := a.Encrypt(msg, ad1)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		if _, err := a.Decrypt(ct, ad2); err == nil {
			t.Fatalf("decrypt with other associated data must fail")
		}
	})
}

func TestAESGCM_NonceIsFreshPerCall(t *testing.T) {
	a := mustAEAD(t, bytes.Repeat([]byte{7}, KeySize))
	c1, err := a.Encrypt([]byte("same"), nil)
	require.NoError(t, err)
	c2, err := a.Encrypt([]byte("same"), nil)
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2)
}

func TestAESGCM_TamperDetected(t *testing.T) {
	a := mustAEAD(t, bytes.Repeat([]byte{9}, KeySize))
	ct, err := a.Encrypt([]byte("access-token"), []byte("accessToken"))
	require.NoError(t, err)

	ct[len(ct)-1] ^= 0xff
	_, err = a.Decrypt(ct, []byte("accessToken"))
	require.Error(t, err)
}

func TestAESGCM_ShortCiphertext(t *testing.T) {
	a := mustAEAD(t, bytes.Repeat([]byte{1}, KeySize))
	_, err := a.Decrypt([]byte{1, 2, 3}, nil)
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}
