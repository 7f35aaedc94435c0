package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_CaseAndWhitespaceInsensitive(t *testing.T) {
	assert.Equal(t, Derive("a@b.com"), Derive(" A@B.com "))
	assert.Equal(t, Derive("a@b.com"), Derive("a@b.com"))
}

func TestDerive_FixedLengthHex(t *testing.T) {
	id := Derive("hunter@example.com")
	require.Len(t, id, Size*2)
	for _, r := range id {
		assert.Contains(t, "0123456789abcdef", string(r))
	}
}

func TestDerive_DistinctEmails(t *testing.T) {
	assert.NotEqual(t, Derive("one@example.com"), Derive("two@example.com"))
}

func TestDerive_KnownValue(t *testing.T) {
	// sha256("a@b.com"), первые 16 байт
	assert.Equal(t, "fb98d44ad7501a959f3f4f4a3f004fe2", Derive("a@b.com"))
}
