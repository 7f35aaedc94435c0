package cipher

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *FieldCipher {
	t.Helper()
	c, err := New(StaticKey(bytes.Repeat([]byte{7}, 32)))
	require.NoError(t, err)
	return c
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := newTestCipher(t)
	for _, in := range []string{
		"0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
		"x",
		"кошелёк с пробелами",
		TokenPrefix + "not-really-a-token",
	} {
		tok, err := c.Encrypt(in)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(tok, TokenPrefix))
		assert.Equal(t, in, c.Decrypt(tok))
		assert.True(t, c.IsToken(tok))
	}
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	c := newTestCipher(t)
	a, err := c.Encrypt("same")
	require.NoError(t, err)
	b, err := c.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecrypt_FailsOpen(t *testing.T) {
	c := newTestCipher(t)
	other, err := New(StaticKey(bytes.Repeat([]byte{9}, 32)))
	require.NoError(t, err)
	foreign, err := other.Encrypt("secret")
	require.NoError(t, err)

	for _, in := range []string{
		"0xlegacy-plain-wallet",
		"",
		TokenPrefix,
		TokenPrefix + "!!!not base64!!!",
		TokenPrefix + "AAAA",
		foreign,
	} {
		assert.Equal(t, in, c.Decrypt(in), in)
		assert.False(t, c.IsToken(in), in)
	}
}

func TestEncrypt_EmptyStaysEmpty(t *testing.T) {
	c := newTestCipher(t)
	tok, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", tok)
}

func TestDisabledCipher_Passthrough(t *testing.T) {
	for _, c := range []*FieldCipher{Disabled(), nil} {
		assert.False(t, c.Enabled())
		tok, err := c.Encrypt("0xabc")
		require.NoError(t, err)
		assert.Equal(t, "0xabc", tok)
		assert.Equal(t, "0xabc", c.Decrypt("0xabc"))
	}
}

func TestSeedKeyProvider(t *testing.T) {
	_, err := SeedKeyProvider{}.Key()
	assert.ErrorIs(t, err, ErrEmptySeed)

	k1, err := SeedKeyProvider{Seed: "s3cret", Salt: "salt"}.Key()
	require.NoError(t, err)
	k2, err := SeedKeyProvider{Seed: "s3cret", Salt: "salt"}.Key()
	require.NoError(t, err)
	k3, err := SeedKeyProvider{Seed: "s3cret", Salt: "other"}.Key()
	require.NoError(t, err)
	assert.Len(t, k1, 32)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)

	c1, err := New(SeedKeyProvider{Seed: "s3cret", Salt: "salt"})
	require.NoError(t, err)
	c2, err := New(SeedKeyProvider{Seed: "s3cret", Salt: "salt"})
	require.NoError(t, err)
	tok, err := c1.Encrypt("wallet")
	require.NoError(t, err)
	assert.Equal(t, "wallet", c2.Decrypt(tok))
}

func TestStaticKey_WrongSize(t *testing.T) {
	_, err := New(StaticKey([]byte("short")))
	assert.Error(t, err)
}
