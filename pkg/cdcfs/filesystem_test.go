package cdcfs

import (
	"bytes"
	"context"
	"testing"

	"github.com/docker/go-units"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/chunkfs/pkg/chunker/fixed"
	"github.com/oneconcern/chunkfs/pkg/chunker/rolling"
	"github.com/oneconcern/chunkfs/pkg/hasher"
	"github.com/oneconcern/chunkfs/pkg/scrub"
	"github.com/oneconcern/chunkfs/pkg/store/inmem"
)

func TestRoundTripConstantData(t *testing.T) {
	fs := testFS(t)
	data := repeated(10, units.MiB)

	writeFile(t, fs, "file", fixed.New(4*units.KiB), data)

	got := readFile(t, fs, "file")
	require.Len(t, got, units.MiB)
	require.Equal(t, data, got)
}

func TestRoundTripRandomData(t *testing.T) {
	fs := testFS(t)
	data := seeded(1337, 100*units.KiB)

	writeFile(t, fs, "file", rolling.Default(), data)
	require.Equal(t, data, readFile(t, fs, "file"))
}

func TestRoundTripSegmentedWrites(t *testing.T) {
	fs := testFS(t)
	ctx := context.Background()
	data := seeded(7, 300*units.KiB)

	h, err := fs.CreateFile(ctx, "file", rolling.Default(), false)
	require.NoError(t, err)
	for offset := 0; offset < len(data); offset += 10000 {
		end := offset + 10000
		if end > len(data) {
			end = len(data)
		}
		require.NoError(t, fs.WriteToFile(ctx, h, data[offset:end]))
	}
	_, err = fs.CloseFile(ctx, h)
	require.NoError(t, err)

	require.Equal(t, data, readFile(t, fs, "file"))
}

func TestDeterministicKeys(t *testing.T) {
	data := seeded(99, 200*units.KiB)

	collect := func() map[hasher.Key]int {
		fs := testFS(t)
		writeFile(t, fs, "file", rolling.Default(), data)
		h, err := fs.OpenFile(context.Background(), "file")
		require.NoError(t, err)
		return fs.ChunkCountDistribution(h)
	}

	require.Equal(t, collect(), collect())
}

func TestDedupRatioTwoIdenticalFiles(t *testing.T) {
	fs := testFS(t)
	data := repeated(10, 10*units.MiB)

	m1 := writeFile(t, fs, "one", fixed.New(4*units.KiB), data)
	m2 := writeFile(t, fs, "two", fixed.New(4*units.KiB), data)

	require.EqualValues(t, 10*units.MiB, m1.Write.BytesWritten)
	require.EqualValues(t, 10*units.MiB, m2.Write.BytesWritten)
	// all chunks of the second file are duplicates
	require.EqualValues(t, m2.Write.ChunksProduced, m2.Write.DedupHits)

	require.GreaterOrEqual(t, fs.CDCDedupRatio(), 1.9)
	require.Equal(t, data, readFile(t, fs, "one"))
	require.Equal(t, data, readFile(t, fs, "two"))
}

func TestDedupAccountingMatchesStore(t *testing.T) {
	base := inmem.New()
	fs, err := New(base, hasher.NewBlake2b())
	require.NoError(t, err)

	data := repeated(10, units.MiB)
	writeFile(t, fs, "one", fixed.New(4*units.KiB), data)
	writeFile(t, fs, "two", fixed.New(4*units.KiB), data)

	// constant data in fixed 4K chunks collapses to a single stored chunk
	keys, err := base.Keys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Equal(t, 4*units.KiB, fs.AverageChunkSize())
}

func TestCreateExclusivityAndOpenMissing(t *testing.T) {
	fs := testFS(t)
	ctx := context.Background()

	h, err := fs.CreateFile(ctx, "x", fixed.New(4096), false)
	require.NoError(t, err)
	_, err = fs.CloseFile(ctx, h)
	require.NoError(t, err)

	_, err = fs.CreateFile(ctx, "x", fixed.New(4096), true)
	require.ErrorIs(t, err, ErrAlreadyExists)

	_, err = fs.OpenFile(ctx, "y")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestModeSafety(t *testing.T) {
	fs := testFS(t)
	ctx := context.Background()

	w, err := fs.CreateFile(ctx, "file", fixed.New(4096), false)
	require.NoError(t, err)
	require.NoError(t, fs.WriteToFile(ctx, w, []byte("content")))

	_, err = fs.ReadFromFile(ctx, w)
	require.ErrorIs(t, err, ErrInvalidHandle)

	_, err = fs.CloseFile(ctx, w)
	require.NoError(t, err)

	r, err := fs.OpenFile(ctx, "file")
	require.NoError(t, err)
	require.ErrorIs(t, fs.WriteToFile(ctx, r, []byte("nope")), ErrInvalidHandle)
}

func TestSingleWriterPerFile(t *testing.T) {
	fs := testFS(t)
	ctx := context.Background()

	w, err := fs.CreateFile(ctx, "file", fixed.New(4096), false)
	require.NoError(t, err)

	_, err = fs.CreateFile(ctx, "file", fixed.New(4096), false)
	require.ErrorIs(t, err, ErrFileLocked)

	_, err = fs.CloseFile(ctx, w)
	require.NoError(t, err)

	// the writer slot frees up on close
	w2, err := fs.CreateFile(ctx, "file", fixed.New(4096), false)
	require.NoError(t, err)
	_, err = fs.CloseFile(ctx, w2)
	require.NoError(t, err)
}

func TestFixedChunkCountAndKeyOrder(t *testing.T) {
	base := inmem.New()
	fs, err := New(base, hasher.NewSimple())
	require.NoError(t, err)

	const size = 100*units.KiB + 123 // not a multiple of 4096: tail chunk expected
	data := seeded(5, size)
	writeFile(t, fs, "file", fixed.New(4*units.KiB), data)

	ctx := context.Background()
	h, err := fs.OpenFile(ctx, "file")
	require.NoError(t, err)

	wantChunks := (size + 4095) / 4096
	require.Len(t, h.keys, wantChunks)

	// the simple hasher is the identity on the chunk prefix: keys come
	// back in file order
	for i, key := range h.keys {
		require.Equal(t, data[i*4096], key[0])
	}
}

func TestUsingClosedHandleFails(t *testing.T) {
	fs := testFS(t)
	ctx := context.Background()

	h, err := fs.CreateFile(ctx, "file", fixed.New(4096), false)
	require.NoError(t, err)
	_, err = fs.CloseFile(ctx, h)
	require.NoError(t, err)

	require.ErrorIs(t, fs.WriteToFile(ctx, h, []byte("late")), ErrHandleClosed)
	_, err = fs.CloseFile(ctx, h)
	require.ErrorIs(t, err, ErrHandleClosed)
}

func TestRemoveRenameList(t *testing.T) {
	fs := testFS(t)

	writeFile(t, fs, "a", fixed.New(4096), []byte("aaa"))
	writeFile(t, fs, "b", fixed.New(4096), []byte("bbb"))
	require.ElementsMatch(t, []string{"a", "b"}, fs.ListFiles())

	require.NoError(t, fs.RenameFile("a", "c"))
	require.False(t, fs.FileExists("a"))
	require.Equal(t, []byte("aaa"), readFile(t, fs, "c"))

	require.NoError(t, fs.RemoveFile("b"))
	require.ErrorIs(t, fs.RemoveFile("b"), ErrNotFound)
	require.ElementsMatch(t, []string{"c"}, fs.ListFiles())
}

func TestScrubOnCDCOnlyFileSystem(t *testing.T) {
	fs := testFS(t)
	_, err := fs.Scrub(context.Background())
	require.ErrorIs(t, err, ErrNoScrubber)
}

func TestEmptyFileRoundTrip(t *testing.T) {
	fs := testFS(t)
	ctx := context.Background()

	h, err := fs.CreateFile(ctx, "empty", fixed.New(4096), false)
	require.NoError(t, err)
	_, err = fs.CloseFile(ctx, h)
	require.NoError(t, err)

	require.Empty(t, readFile(t, fs, "empty"))
}

func TestKeyedFileSystemSeedsEmptyFiles(t *testing.T) {
	var seed hasher.Key
	seed[0] = 0xfe

	base := inmem.New()
	fs, err := NewKeyed(base, hasher.NewBlake2b(), seed)
	require.NoError(t, err)

	ctx := context.Background()
	h, err := fs.CreateFile(ctx, "empty", fixed.New(4096), false)
	require.NoError(t, err)
	_, err = fs.CloseFile(ctx, h)
	require.NoError(t, err)

	ok, err := base.Contains(ctx, seed)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, readFile(t, fs, "empty"))
}

func TestWriteMeasurementsAggregate(t *testing.T) {
	fs := testFS(t)
	ctx := context.Background()

	h, err := fs.CreateFile(ctx, "file", fixed.New(1024), false)
	require.NoError(t, err)
	require.NoError(t, fs.WriteToFile(ctx, h, repeated(1, 4096)))
	require.NoError(t, fs.WriteToFile(ctx, h, repeated(2, 4096)))

	m, err := fs.CloseFile(ctx, h)
	require.NoError(t, err)

	require.EqualValues(t, 8192, m.Write.BytesWritten)
	require.EqualValues(t, 8, m.Write.ChunksProduced)
	// two distinct chunk contents, six duplicates
	require.EqualValues(t, 6, m.Write.DedupHits)
	require.Equal(t, 1024, m.Write.AverageChunkSize())
}

func TestWriteFromStream(t *testing.T) {
	fs := testFS(t)
	ctx := context.Background()
	data := seeded(11, 2*units.MiB+12345)

	h, err := fs.CreateFile(ctx, "stream", rolling.Default(), false)
	require.NoError(t, err)
	require.NoError(t, fs.WriteFromStream(ctx, h, bytes.NewReader(data)))
	_, err = fs.CloseFile(ctx, h)
	require.NoError(t, err)

	require.Equal(t, data, readFile(t, fs, "stream"))
}

func TestScrubWithCopyScrubber(t *testing.T) {
	fs := testScrubFS(t, scrub.NewCopy())
	data := repeated(10, 10*units.MiB)
	writeFile(t, fs, "file", fixed.New(4*units.KiB), data)

	m, err := fs.Scrub(context.Background())
	require.NoError(t, err)
	require.NotZero(t, m.BytesExamined)

	require.Equal(t, data, readFile(t, fs, "file"))
}
