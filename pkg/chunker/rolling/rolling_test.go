package rolling

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oneconcern/chunkfs/pkg/chunker"
)

func randomData(t testing.TB, seed int64, n int) []byte {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	data := make([]byte, n)
	_, err := r.Read(data)
	require.NoError(t, err)
	return data
}

func collect(t testing.TB, c *Chunker, data []byte, segment int) []chunker.Chunk {
	t.Helper()
	var chunks []chunker.Chunk
	var out []chunker.Chunk
	var err error
	for offset := 0; offset < len(data); offset += segment {
		end := offset + segment
		if end > len(data) {
			end = len(data)
		}
		out, err = c.ChunkData(data[offset:end], out)
		require.NoError(t, err)
		chunks = append(chunks, out...)
	}
	if last := c.Finish(); !last.IsEmpty() {
		chunks = append(chunks, last)
	}
	return chunks
}

func TestRollingRoundTrip(t *testing.T) {
	data := randomData(t, 42, 256*1024)
	chunks := collect(t, Default(), data, len(data))

	var rebuilt []byte
	for _, c := range chunks {
		rebuilt = append(rebuilt, c.Data...)
	}
	require.Equal(t, data, rebuilt)
}

func TestRollingBounds(t *testing.T) {
	c := New(2048, 8192, 16384)
	data := randomData(t, 7, 512*1024)
	chunks := collect(t, c, data, len(data))
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		require.LessOrEqual(t, chunk.Len(), 16384)
		if i < len(chunks)-1 { // all but the tail respect the minimum
			require.GreaterOrEqual(t, chunk.Len(), 2048)
		}
	}
}

// boundaries must not depend on how the stream is segmented across calls
func TestRollingSegmentationInsensitive(t *testing.T) {
	data := randomData(t, 1234, 128*1024)

	whole := collect(t, Default(), data, len(data))
	pieces := collect(t, Default(), data, 999)

	require.Equal(t, len(whole), len(pieces))
	for i := range whole {
		require.Equal(t, whole[i].Data, pieces[i].Data)
	}
}

func TestRollingDeterministic(t *testing.T) {
	data := randomData(t, 99, 64*1024)
	first := collect(t, Default(), data, len(data))
	second := collect(t, Default(), data, len(data))
	require.Equal(t, first, second)
}
