package blobstore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetSmallFileRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	data := []byte("small attachment content")
	res, err := store.Put("cred-1", "att-1", "notes.txt", data, DefaultChunkSize, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunkCount)

	got, err := store.Get(res.StoragePath, nil, nil)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestPutGetEncryptedRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	data := []byte("sensitive attachment bytes")
	res, err := store.Put("cred-1", "att-2", "secret.bin", data, DefaultChunkSize, &key)
	require.NoError(t, err)
	assert.True(t, res.IsEncrypted)

	got, err := store.Get(res.StoragePath, nil, &key)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestPutChunksLargeFile(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	chunkSize := 10
	data := bytes.Repeat([]byte("x"), ChunkThreshold+100)
	res, err := store.Put("cred-1", "att-3", "big.bin", data, chunkSize, nil)
	require.NoError(t, err)
	assert.True(t, res.ChunkCount > 1)

	got, err := store.Get(res.StoragePath, res.Chunks, nil)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestGetDetectsChunkTamper(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	data := bytes.Repeat([]byte("y"), ChunkThreshold+50)
	res, err := store.Put("cred-1", "att-4", "big2.bin", data, 10, nil)
	require.NoError(t, err)

	res.Chunks[0].ContentHash = "deadbeef"
	_, err = store.Get(res.StoragePath, res.Chunks, nil)
	assert.Error(t, err)
}

func TestDeleteRemovesStoredData(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	res, err := store.Put("cred-1", "att-5", "f.txt", []byte("data"), DefaultChunkSize, nil)
	require.NoError(t, err)
	require.NoError(t, store.Delete(res.StoragePath))

	_, err = store.Get(res.StoragePath, nil, nil)
	assert.Error(t, err)
}
