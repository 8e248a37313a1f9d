package buffer

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "buffer.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_OrdersByPriorityThenTime(t *testing.T) {
	store := openStore(t)
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.Enqueue(Item{ID: "late", Entity: EntityAssignment, Timestamp: base.Add(time.Minute)}))
	require.NoError(t, store.Enqueue(Item{ID: "early", Entity: EntityAssignment, Timestamp: base}))
	require.NoError(t, store.Enqueue(Item{ID: "urgent", Entity: EntityAssignment, Priority: PriorityAssignment, Timestamp: base.Add(time.Hour)}))

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"urgent", "early", "late"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, defaultPriority, items[1].Priority)

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, size)
}

func TestStore_RemoveAndRequeue(t *testing.T) {
	store := openStore(t)
	payload := json.RawMessage(`[{"session_id":"S1","therapist_id":"T1"}]`)
	require.NoError(t, store.Enqueue(Item{ID: "a", RunID: "run-1", Entity: EntityAssignment, Data: payload}))
	require.NoError(t, store.Enqueue(Item{ID: "b", Entity: EntityAssignment}))

	items, err := store.GetBatch(1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	first := items[0]
	assert.Equal(t, "run-1", first.RunID)
	assert.JSONEq(t, string(payload), string(first.Data))

	first.Retries++
	require.NoError(t, store.Requeue(first))

	items, err = store.GetBatch(0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
	assert.Equal(t, 1, items[1].Retries)

	require.NoError(t, store.Remove(items[0]))
	require.NoError(t, store.Remove(Item{ID: "a"}))
	size, err := store.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestStore_Cleanup(t *testing.T) {
	store := openStore(t)
	now := time.Now()
	require.NoError(t, store.Enqueue(Item{ID: "old", Timestamp: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.Enqueue(Item{ID: "fresh", Timestamp: now}))

	removed, err := store.Cleanup(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	items, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].ID)
}

func TestStore_Closed(t *testing.T) {
	var store *Store
	assert.Error(t, store.Enqueue(Item{}))
	_, err := store.GetBatch(1)
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}
