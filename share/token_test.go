package share

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenCodec(t *testing.T) {
	tok := NewToken()
	require.True(t, strings.HasPrefix(tok, "pc"))

	bz, err := DecodeToken(tok)
	require.NoError(t, err)
	require.Len(t, bz, tokenBytes)

	// wrong prefix
	_, err = DecodeToken("qq" + tok[2:])
	require.ErrorContains(t, err, "wrong prefix")

	// corrupted checksum
	_, err = DecodeToken(tok[:len(tok)-2] + "11")
	require.Error(t, err)
}

func TestIsToken(t *testing.T) {
	require.True(t, IsToken(NewToken()))
	require.False(t, IsToken("0x4ec57ec57ec57ec57ec57ec57ec57ec57ec57ec57ec57ec57ec57ec57ec57ec5"))
	require.False(t, IsToken(""))
	require.False(t, IsToken("pc"))
}

func TestTokensAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 256; i++ {
		tok := NewToken()
		require.False(t, seen[tok])
		seen[tok] = true
	}
}
