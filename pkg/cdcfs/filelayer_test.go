package cdcfs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oneconcern/chunkfs/pkg/hasher"
)

func testLayer() *fileLayer {
	return newFileLayer(zap.NewNop())
}

func keyOf(b byte) hasher.Key {
	var k hasher.Key
	k[0] = b
	return k
}

func TestFileLayerCreateOpen(t *testing.T) {
	fl := testLayer()

	require.NoError(t, fl.create("hello", false))
	fl.releaseWriter("hello")

	keys, size, err := fl.open("hello")
	require.NoError(t, err)
	require.Empty(t, keys)
	require.Zero(t, size)

	_, _, err = fl.open("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileLayerCreateNewOnExisting(t *testing.T) {
	fl := testLayer()

	require.NoError(t, fl.create("hello", false))
	fl.releaseWriter("hello")

	require.ErrorIs(t, fl.create("hello", true), ErrAlreadyExists)

	// without createNew the file is truncated
	require.NoError(t, fl.publish("hello", []hasher.Key{keyOf(1)}, 10))
	require.NoError(t, fl.create("hello", false))
	fl.releaseWriter("hello")

	keys, _, err := fl.open("hello")
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestFileLayerWriterExclusion(t *testing.T) {
	fl := testLayer()

	require.NoError(t, fl.create("f", false))
	require.ErrorIs(t, fl.create("f", false), ErrFileLocked)

	fl.releaseWriter("f")
	require.NoError(t, fl.create("f", false))
}

func TestFileLayerPublishSnapshotIsolation(t *testing.T) {
	fl := testLayer()

	require.NoError(t, fl.create("f", false))
	require.NoError(t, fl.publish("f", []hasher.Key{keyOf(1)}, 4))
	fl.releaseWriter("f")

	before, _, err := fl.open("f")
	require.NoError(t, err)

	require.NoError(t, fl.create("f", false))
	require.NoError(t, fl.publish("f", []hasher.Key{keyOf(2), keyOf(3)}, 8))
	fl.releaseWriter("f")

	// the reader's snapshot is unaffected by the publish
	require.Equal(t, []hasher.Key{keyOf(1)}, before)

	after, _, err := fl.open("f")
	require.NoError(t, err)
	require.Equal(t, []hasher.Key{keyOf(2), keyOf(3)}, after)
}

func TestFileLayerRename(t *testing.T) {
	fl := testLayer()

	require.NoError(t, fl.create("a", false))
	fl.releaseWriter("a")
	require.NoError(t, fl.create("b", false))
	fl.releaseWriter("b")

	require.ErrorIs(t, fl.rename("a", "b"), ErrAlreadyExists)
	require.ErrorIs(t, fl.rename("zzz", "c"), ErrNotFound)

	require.NoError(t, fl.rename("a", "c"))
	require.False(t, fl.exists("a"))
	require.True(t, fl.exists("c"))
}

func TestFileLayerRemoveAndList(t *testing.T) {
	fl := testLayer()

	require.NoError(t, fl.create("a", false))
	fl.releaseWriter("a")

	require.ElementsMatch(t, []string{"a"}, fl.list())
	require.NoError(t, fl.remove("a"))
	require.ErrorIs(t, fl.remove("a"), ErrNotFound)
	require.Empty(t, fl.list())
}
