package otpcode

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate_SixDigitsInRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 100000)
		require.LessOrEqual(t, n, 999999)
	}
}

func TestDigest_PlainSHA256WithoutKey(t *testing.T) {
	sum := sha256.Sum256([]byte("482913"))
	d := NewDigester(nil)
	require.Equal(t, hex.EncodeToString(sum[:]), d.Digest("482913"))
}

func TestDigest_KeyChangesDigest(t *testing.T) {
	plain := NewDigester(nil).Digest("482913")
	keyed := NewDigester([]byte("k1")).Digest("482913")
	other := NewDigester([]byte("k2")).Digest("482913")
	require.NotEqual(t, plain, keyed)
	require.NotEqual(t, keyed, other)
	require.Equal(t, keyed, NewDigester([]byte("k1")).Digest("482913"))
}

func TestMatch(t *testing.T) {
	d := NewDigester([]byte("secret"))
	stored := d.Digest("123456")
	require.True(t, d.Match(stored, "123456"))
	require.False(t, d.Match(stored, "123457"))
	require.False(t, d.Match(stored, "12345"))
	require.False(t, d.Match(stored, "abcdef"))
	require.False(t, d.Match("", "123456"))
}
