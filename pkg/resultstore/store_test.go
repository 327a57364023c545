package resultstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Save(ctx, "doc-1", "hello"))

	text, found, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", text)
}

func TestMemoryStoreUnknownID(t *testing.T) {
	store := NewMemoryStore()

	text, found, err := store.Get(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "", text)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Save(ctx, "doc-1", "old"))
	require.NoError(t, store.Save(ctx, "doc-1", "new"))

	text, found, _ := store.Get(ctx, "doc-1")
	assert.True(t, found)
	assert.Equal(t, "new", text)
}

func TestMemoryStoreIdempotentRedelivery(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Save(ctx, "doc-1", "same text"))
	require.NoError(t, store.Save(ctx, "doc-1", "same text"))

	text, found, _ := store.Get(ctx, "doc-1")
	assert.True(t, found)
	assert.Equal(t, "same text", text)
}
