package bench

import (
	"github.com/oneconcern/chunkfs/internal/rand"
)

// Generator produces a dataset buffer of a requested size. Generators
// are deterministic: the same generator always yields the same bytes, so
// runs are reproducible and comparable.
type Generator interface {
	Generate(n int) []byte
	String() string
}

// Const fills the dataset with a single byte value — the pathological
// best case for deduplication.
type Const struct {
	Value byte
}

func (c Const) String() string { return "const" }

func (c Const) Generate(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = c.Value
	}
	return data
}

// Seeded fills the dataset with seeded pseudo-random bytes — the worst
// case for deduplication.
type Seeded struct {
	Seed int64
}

func (s Seeded) String() string { return "random" }

func (s Seeded) Generate(n int) []byte {
	return rand.SeededBytes(s.Seed, n)
}

// Dedup builds a dataset where roughly Percentage percent of fixed-size
// blocks repeat a single template block, the rest being unique random
// data. This mirrors what fio produces with --dedupe_percentage.
type Dedup struct {
	Percentage int
	Seed       int64
	BlockSize  int
}

func (d Dedup) String() string { return "dedup" }

func (d Dedup) Generate(n int) []byte {
	block := d.BlockSize
	if block <= 0 {
		block = 4096
	}
	pct := d.Percentage
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	template := rand.SeededBytes(d.Seed, block)
	unique := rand.SeededBytes(d.Seed+1, n)

	data := make([]byte, n)
	blocks := (n + block - 1) / block
	for i := 0; i < blocks; i++ {
		lo := i * block
		hi := lo + block
		if hi > n {
			hi = n
		}
		// the first pct blocks of every run of 100 repeat the template
		if i%100 < pct {
			copy(data[lo:hi], template)
		} else {
			copy(data[lo:hi], unique[lo:hi])
		}
	}
	return data
}
