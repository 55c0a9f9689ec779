package privacy

import (
	"strings"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevandhara/bloodbank/pkg/logger"
)

func newKeyedCodec(t *testing.T) *Codec {
	t.Helper()
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	codec, err := NewCodec(&Config{
		PublicKey:  identity.Recipient().String(),
		PrivateKey: identity.String(),
	}, logger.Default())
	require.NoError(t, err)
	return codec
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	codec := newKeyedCodec(t)

	stored, err := codec.Encrypt("+91 98765 43210")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored, "age:"))
	assert.NotContains(t, stored, "98765")

	plain, err := codec.Decrypt(stored)
	require.NoError(t, err)
	assert.Equal(t, "+91 98765 43210", plain)
}

func TestEmptyValuePassthrough(t *testing.T) {
	codec := newKeyedCodec(t)

	stored, err := codec.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", stored)
}

func TestUnkeyedCodecPassthrough(t *testing.T) {
	codec, err := NewCodec(&Config{}, logger.Default())
	require.NoError(t, err)
	assert.False(t, codec.Enabled())

	stored, err := codec.Encrypt("12 MG Road")
	require.NoError(t, err)
	assert.Equal(t, "12 MG Road", stored)

	plain, err := codec.Decrypt(stored)
	require.NoError(t, err)
	assert.Equal(t, "12 MG Road", plain)
}

func TestDecryptLegacyPlaintext(t *testing.T) {
	// rows written before encryption was enabled carry no marker
	codec := newKeyedCodec(t)

	plain, err := codec.Decrypt("12 MG Road")
	require.NoError(t, err)
	assert.Equal(t, "12 MG Road", plain)
}

func TestDecryptWithoutPrivateKey(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	writer, err := NewCodec(&Config{PublicKey: identity.Recipient().String()}, logger.Default())
	require.NoError(t, err)

	stored, err := writer.Encrypt("secret")
	require.NoError(t, err)

	_, err = writer.Decrypt(stored)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestNewCodecInvalidKeys(t *testing.T) {
	_, err := NewCodec(&Config{PublicKey: "not-a-key"}, logger.Default())
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewCodec(&Config{PrivateKey: "not-a-key"}, logger.Default())
	assert.ErrorIs(t, err, ErrInvalidKey)
}
