package cdcfs

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oneconcern/chunkfs/internal/rand"
	"github.com/oneconcern/chunkfs/pkg/chunker"
	"github.com/oneconcern/chunkfs/pkg/dlogger"
	"github.com/oneconcern/chunkfs/pkg/hasher"
	"github.com/oneconcern/chunkfs/pkg/scrub"
	"github.com/oneconcern/chunkfs/pkg/store/inmem"
)

func testFS(t testing.TB, opts ...Option) *FileSystem {
	t.Helper()
	fs, err := New(inmem.New(), hasher.NewBlake2b(),
		append([]Option{Logger(dlogger.MustGetLogger(dlogger.LogLevelNone))}, opts...)...)
	require.NoError(t, err)
	return fs
}

func testScrubFS(t testing.TB, scrubber scrub.Scrubber) *FileSystem {
	t.Helper()
	fs, err := NewWithScrubber(inmem.New(), inmem.New(), scrubber, hasher.NewBlake2b(),
		Logger(dlogger.MustGetLogger(dlogger.LogLevelNone)))
	require.NoError(t, err)
	return fs
}

func writeFile(t testing.TB, fs *FileSystem, name string, c chunker.Chunker, data []byte) Measurements {
	t.Helper()
	ctx := context.Background()

	h, err := fs.CreateFile(ctx, name, c, false)
	require.NoError(t, err)
	require.NoError(t, fs.WriteToFile(ctx, h, data))

	m, err := fs.CloseFile(ctx, h)
	require.NoError(t, err)
	return m
}

func readFile(t testing.TB, fs *FileSystem, name string) []byte {
	t.Helper()
	ctx := context.Background()

	h, err := fs.OpenFile(ctx, name)
	require.NoError(t, err)
	data, err := fs.ReadFromFile(ctx, h)
	require.NoError(t, err)
	_, err = fs.CloseFile(ctx, h)
	require.NoError(t, err)
	return data
}

func repeated(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func seeded(seed int64, n int) []byte {
	return rand.SeededBytes(seed, n)
}
