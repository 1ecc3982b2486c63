package resultstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/flowcore/internal/engine"
)

func TestFilesystemStore_PutThenGetRoundTrips(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	err = store.Put(ctx, "key-1", engine.Result{Value: map[string]any{"n": float64(42)}}, nil)
	require.NoError(t, err)

	got, ok, err := store.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"n": float64(42)}, got.Value)
}

func TestFilesystemStore_MissingKeyIsNotAnError(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := store.Get(context.Background(), "never-written")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFilesystemStore_ExpiredEntryIsTreatedAsMiss(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	past := time.Now().Add(-time.Minute)
	require.NoError(t, store.Put(ctx, "expired", engine.Result{Value: "stale"}, &past))

	_, ok, err := store.Get(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFilesystemStore_FutureExpiryIsStillAHit(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	future := time.Now().Add(time.Hour)
	require.NoError(t, store.Put(ctx, "fresh", engine.Result{Value: "ok"}, &future))

	got, ok, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ok", got.Value)
}
