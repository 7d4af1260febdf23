package hasher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyRoundTrip(t *testing.T) {
	data := make([]byte, KeySize)
	for i := range data {
		data[i] = byte(i)
	}

	k, err := NewKey(data)
	require.NoError(t, err)

	parsed, err := KeyFromString(k.String())
	require.NoError(t, err)
	require.Equal(t, k, parsed)
}

func TestKeyBadSize(t *testing.T) {
	_, err := NewKey([]byte("too short"))
	require.Error(t, err)
	require.IsType(t, &BadKeySize{}, err)

	_, err = KeyFromString("abcdef")
	require.Error(t, err)
}

func TestHashersDeterministic(t *testing.T) {
	data := []byte("some chunk of data that is going to be hashed")

	for _, h := range []Hasher{NewBlake2b(), NewSHA256(), NewSimple()} {
		h := h
		t.Run(h.String(), func(t *testing.T) {
			k1 := h.Hash(data)
			k2 := h.Hash(data)
			require.Equal(t, k1, k2)
			require.NotEqual(t, Key{}, k1)

			other := h.Hash([]byte("different content"))
			require.NotEqual(t, k1, other)
		})
	}
}

func TestSimpleIsIdentityPrefix(t *testing.T) {
	data := []byte("identity prefix")
	k := NewSimple().Hash(data)
	require.Equal(t, data, k[:len(data)])
	require.True(t, k[len(data)] == 0)
}
