package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeJSON(t *testing.T) {
	t.Run("overlays_top_level_fields", func(t *testing.T) {
		existing := []byte(`{"portfolio":[{"ticker":"2330"}],"updatedAt":"old"}`)
		incoming := []byte(`{"updatedAt":"new"}`)

		merged := mergeJSON(existing, incoming)

		assert.JSONEq(t, `{"portfolio":[{"ticker":"2330"}],"updatedAt":"new"}`, string(merged))
	})

	t.Run("corrupt_existing_replaced", func(t *testing.T) {
		merged := mergeJSON([]byte(`<html>`), []byte(`{"a":1}`))
		assert.JSONEq(t, `{"a":1}`, string(merged))
	})

	t.Run("non_object_incoming_wins", func(t *testing.T) {
		merged := mergeJSON([]byte(`{"a":1}`), []byte(`[1,2]`))
		assert.Equal(t, `[1,2]`, string(merged))
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("get_absent", func(t *testing.T) {
		_, ok, err := store.Get(ctx, UserDocKey("u1"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set_then_get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, UserDocKey("u1"), []byte(`{"portfolio":[]}`), false))
		val, ok, err := store.Get(ctx, UserDocKey("u1"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"portfolio":[]}`, string(val))
	})

	t.Run("merge_set", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, UserDocKey("u1"), []byte(`{"updatedAt":"x"}`), true))
		val, _, err := store.Get(ctx, UserDocKey("u1"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"portfolio":[],"updatedAt":"x"}`, string(val))
	})

	t.Run("invalid_key", func(t *testing.T) {
		err := store.Set(ctx, "", nil, false)
		assert.Error(t, err)
	})

	t.Run("fail_writes", func(t *testing.T) {
		store := NewMemoryStore()
		store.FailWrites = ErrPermissionDenied
		err := store.Set(ctx, UserDocKey("u1"), []byte(`{}`), false)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestMemoryStoreSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewMemoryStore()

	events, err := store.Subscribe(ctx, AnalysisCollection("u1"))
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, AnalysisDocKey("u1", "2330"), []byte(`{"ticker":"2330"}`), false))

	select {
	case event := <-events:
		assert.Equal(t, "2330", event.ID)
		assert.JSONEq(t, `{"ticker":"2330"}`, string(event.Value))
	case <-time.After(time.Second):
		t.Fatal("no change event delivered")
	}

	// A write outside the collection must not be delivered.
	require.NoError(t, store.Set(ctx, UserDocKey("u2"), []byte(`{}`), false))
	select {
	case event := <-events:
		t.Fatalf("unexpected event %q", event.ID)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case _, open := <-events:
		assert.False(t, open, "channel should close on cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "users/u1", UserDocKey("u1"))
	assert.Equal(t, "users/u1/portfolioAnalysis", AnalysisCollection("u1"))
	assert.Equal(t, "users/u1/portfolioAnalysis/2330", AnalysisDocKey("u1", "2330"))
	assert.Equal(t, "users/u1/portfolioAnalysis", collectionOf(AnalysisDocKey("u1", "2330")))
	assert.Equal(t, "2330", docID(AnalysisDocKey("u1", "2330")))
}
