package hasher

import (
	"crypto/sha256"

	blake2b "github.com/minio/blake2b-simd"
)

// Blake2b is the default deduplication hasher.
//
// The blake2b implementation used here (https://github.com/minio/blake2b-simd)
// is 3 to 5 times faster than usual hashes such as MD5 or SHA's.
type Blake2b struct{}

func NewBlake2b() Blake2b { return Blake2b{} }

func (Blake2b) Hash(data []byte) Key {
	return Key(blake2b.Sum512(data))
}

func (Blake2b) String() string { return "blake2b" }

// SHA256 hashes chunks with SHA-256. The 32-byte digest occupies the
// first half of the key, the rest is zero.
type SHA256 struct{}

func NewSHA256() SHA256 { return SHA256{} }

func (SHA256) Hash(data []byte) Key {
	var k Key
	sum := sha256.Sum256(data)
	copy(k[:], sum[:])
	return k
}

func (SHA256) String() string { return "sha256" }

// Simple is the identity on the first KeySize bytes of the chunk.
//
// It is not collision free on real data and exists for tests and
// benchmarks where hashing time must be taken out of the picture.
type Simple struct{}

func NewSimple() Simple { return Simple{} }

func (Simple) Hash(data []byte) Key {
	var k Key
	copy(k[:], data)
	return k
}

func (Simple) String() string { return "simple" }
