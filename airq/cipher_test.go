package airq

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipher_RoundTrip(t *testing.T) {
	for _, password := range []string{"", "airqsetup", strings.Repeat("x", 40)} {
		t.Run(password, func(t *testing.T) {
			c, err := NewCipher(password)
			require.NoError(t, err)

			content, err := c.Encrypt([]byte(`{"id":"abc123"}`))
			require.NoError(t, err)

			plain, err := c.Decrypt(content)
			require.NoError(t, err)
			assert.Equal(t, `{"id":"abc123"}`, string(plain))
		})
	}
}

func TestCipher_LongPasswordTruncated(t *testing.T) {
	a, err := NewCipher(strings.Repeat("k", 32) + "ignored")
	require.NoError(t, err)
	b, err := NewCipher(strings.Repeat("k", 32))
	require.NoError(t, err)

	content, err := a.Encrypt([]byte("hello"))
	require.NoError(t, err)

	plain, err := b.Decrypt(content)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plain))
}

func TestCipher_Decrypt(t *testing.T) {
	c, err := NewCipher("secret")
	require.NoError(t, err)

	for _, tt := range []struct {
		name    string
		content string
	}{
		{name: "Not Base64", content: "%%%"},
		{name: "Too Short", content: "AAAA"},
		{name: "Not Block Aligned", content: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decrypt(tt.content)
			require.Error(t, err)
		})
	}
}
