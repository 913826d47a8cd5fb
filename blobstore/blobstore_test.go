package blobstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kamaros/blobstore"
	"kamaros/storage"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.New(storage.NewMemoryAdapter())

	ref, err := bs.Put(ctx, []byte("hello world"))
	require.NoError(t, err)
	assert.Len(t, ref.HexDigest(), 64)

	data, err := bs.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), data)
}

func TestPutDeduplicates(t *testing.T) {
	ctx := context.Background()
	adapter := storage.NewMemoryAdapter()
	bs := blobstore.New(adapter)

	ref1, err := bs.Put(ctx, []byte("X"))
	require.NoError(t, err)
	ref2, err := bs.Put(ctx, []byte("X"))
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2)

	keys, err := adapter.List(ctx, ".store/blobs")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.New(storage.NewMemoryAdapter())

	ref := blobstore.Hash([]byte("never written"))
	_, err := bs.Get(ctx, ref)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestHas(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.New(storage.NewMemoryAdapter())

	ref := blobstore.Hash([]byte("payload"))
	has, err := bs.Has(ctx, ref)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = bs.Put(ctx, []byte("payload"))
	require.NoError(t, err)

	has, err = bs.Has(ctx, ref)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestVerifyDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	adapter := storage.NewMemoryAdapter()
	bs := blobstore.New(adapter)

	ref, err := bs.Put(ctx, []byte("good content"))
	require.NoError(t, err)

	ok, err := bs.Verify(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	// Corrupt the stored bytes directly through the adapter, bypassing the
	// store's own write path.
	require.NoError(t, adapter.Write(ctx, ".store/"+ref.String(), []byte("tampered")))

	ok, err = bs.Verify(ctx, ref)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseRefRoundTrip(t *testing.T) {
	ref := blobstore.Hash([]byte("abc"))
	parsed, err := blobstore.ParseRef(ref.String())
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)

	_, err = blobstore.ParseRef("not-a-ref")
	assert.ErrorIs(t, err, blobstore.ErrMalformedRef)
}

func TestListReturnsAllStoredBlobs(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.New(storage.NewMemoryAdapter())

	refA, err := bs.Put(ctx, []byte("A"))
	require.NoError(t, err)
	refB, err := bs.Put(ctx, []byte("B"))
	require.NoError(t, err)

	refs, err := bs.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []blobstore.Ref{refA, refB}, refs)
}
