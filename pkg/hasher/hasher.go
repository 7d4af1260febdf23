// Package hasher defines the content-hash extension point of the dedup
// pipeline: a Hasher turns chunk bytes into a fixed-width Key under which
// the chunk is stored and deduplicated.
//
// One FileSystem installs exactly one Hasher; every key in its stores is
// produced by that hasher, so keys are comparable across files.
package hasher

import (
	"encoding/hex"
	"fmt"
)

const (
	// KeySize is the width of a chunk key, sized for a blake2b digest.
	// Hashers with narrower digests zero-pad to this width so that a
	// single key type works for the whole pipeline.
	KeySize = 64

	// KeySizeHex is the length of the hex representation of a key
	KeySizeHex = 2 * KeySize
)

// Key identifies a chunk by its content hash. It is a value type, usable
// as a map key, and totally ordered by its byte representation.
type Key [KeySize]byte

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// IsZero reports whether the key is the all-zero key.
func (k Key) IsZero() bool {
	return k == Key{}
}

// NewKey creates a key from exactly KeySize bytes of data
func NewKey(data []byte) (Key, error) {
	var k Key
	if copy(k[:], data) != KeySize || len(data) != KeySize {
		return Key{}, &BadKeySize{Key: data}
	}
	return k, nil
}

// MustNewKey creates a key from data but panics if the size is wrong
func MustNewKey(data []byte) Key {
	k, err := NewKey(data)
	if err != nil {
		panic(err.Error())
	}
	return k
}

// KeyFromString parses the hex representation of a key
func KeyFromString(s string) (Key, error) {
	if len(s) != KeySizeHex {
		return Key{}, fmt.Errorf("%q has invalid length %d, expected %d", s, len(s), KeySizeHex)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, err
	}
	return NewKey(b)
}

// BadKeySize is returned when a key is built from a buffer of the wrong width.
type BadKeySize struct {
	Key []byte
}

func (b *BadKeySize) Error() string {
	return fmt.Sprintf("%x has invalid size of %d, expected %d", b.Key, len(b.Key), KeySize)
}

// Hasher produces a Key from chunk bytes.
//
// Implementations must be pure and deterministic, and safe for concurrent
// calls: several file handles may hash chunks at the same time.
type Hasher interface {
	Hash(data []byte) Key
	String() string
}
