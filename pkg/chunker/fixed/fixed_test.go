package fixed

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oneconcern/chunkfs/pkg/chunker"
)

func TestFixedBoundaries(t *testing.T) {
	c := New(4)
	data := []byte("abcdefghij") // 2 full chunks + 2 bytes of tail

	chunks, err := c.ChunkData(data, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, []byte("abcd"), chunks[0].Data)
	require.Equal(t, []byte("efgh"), chunks[1].Data)

	last := c.Finish()
	require.Equal(t, []byte("ij"), last.Data)
}

func TestFixedTailCarriesOver(t *testing.T) {
	c := New(4)

	chunks, err := c.ChunkData([]byte("abc"), nil)
	require.NoError(t, err)
	require.Empty(t, chunks)

	chunks, err = c.ChunkData([]byte("defg"), chunks)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, []byte("abcd"), chunks[0].Data)

	last := c.Finish()
	require.Equal(t, []byte("efg"), last.Data)
}

func TestFixedFinishOnBoundaryIsEmpty(t *testing.T) {
	c := New(4)
	chunks, err := c.ChunkData([]byte("abcdefgh"), nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.True(t, c.Finish().IsEmpty())
}

func TestFixedEstimateIsUpperBound(t *testing.T) {
	c := New(4096)
	buf := make([]byte, 1<<20)
	chunks, err := c.ChunkData(buf, make([]chunker.Chunk, 0, c.EstimateChunkCount(buf)))
	require.NoError(t, err)
	require.LessOrEqual(t, len(chunks), c.EstimateChunkCount(buf))
}

func TestFixedRoundTrip(t *testing.T) {
	c := New(1024)
	data := bytes.Repeat([]byte{10}, 10000)

	chunks, err := c.ChunkData(data, nil)
	require.NoError(t, err)
	chunks = append(chunks, c.Finish())

	var rebuilt []byte
	for _, chunk := range chunks {
		rebuilt = append(rebuilt, chunk.Data...)
	}
	require.Equal(t, data, rebuilt)
}
