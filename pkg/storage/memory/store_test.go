package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

var testTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func docs(ids ...string) []domain.PreparedDocument {
	out := make([]domain.PreparedDocument, len(ids))
	for i, id := range ids {
		out[i] = domain.PreparedDocument{
			ID:        id,
			Data:      domain.Record{"id": id, "n": float64(i)},
			CreatedAt: testTime,
		}
	}
	return out
}

func statuses(result domain.BulkWriteResult) []domain.ItemStatus {
	out := make([]domain.ItemStatus, len(result.Outcomes))
	for i, o := range result.Outcomes {
		out[i] = o.Status
	}
	return out
}

func TestStore_BulkInsert(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	result, err := store.BulkInsert(ctx, "tenant_logs", docs("a", "b", "c"))
	require.NoError(t, err)
	assert.Empty(t, result.Failures())
	assert.Equal(t, 3, store.Count("tenant_logs"))

	doc, err := store.GetById("tenant_logs", "b")
	require.NoError(t, err)
	assert.Equal(t, "b", doc.Data["id"])
	assert.Equal(t, testTime, doc.CreatedAt)
}

func TestStore_BulkInsert_DuplicatesAreConflicts(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.BulkInsert(ctx, "tenant_logs", docs("a"))
	require.NoError(t, err)

	result, err := store.BulkInsert(ctx, "tenant_logs", docs("x", "a", "y", "x"))
	require.NoError(t, err)

	assert.Equal(t, []domain.ItemStatus{domain.ItemInserted, domain.ItemFailed, domain.ItemInserted, domain.ItemFailed}, statuses(result))
	for _, failure := range result.Failures() {
		assert.True(t, IsConflict(failure.Cause))
		assert.Contains(t, failure.Cause.Message, "E11000")
	}
	assert.Equal(t, 3, store.Count("tenant_logs"))

	// the first "x" wins
	doc, err := store.GetById("tenant_logs", "x")
	require.NoError(t, err)
	assert.Equal(t, float64(0), doc.Data["n"])

	stats := store.Stats()
	assert.Equal(t, int64(3), stats.DocumentsInserted)
	assert.Equal(t, int64(2), stats.ConflictsRejected)
}

func TestStore_BulkInsert_CollectionsAreIndependent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.BulkInsert(ctx, "one", docs("a"))
	require.NoError(t, err)
	result, err := store.BulkInsert(ctx, "two", docs("a"))
	require.NoError(t, err)

	assert.Empty(t, result.Failures())
	assert.Equal(t, []string{"one", "two"}, store.CollectionNames())
}

func TestStore_BulkInsert_OversizedDocumentFails(t *testing.T) {
	store := NewStore(WithMaxDocumentBytes(256))
	batch := docs("small", "big", "other")
	batch[1].Data["payload"] = strings.Repeat("x", 1024)

	result, err := store.BulkInsert(context.Background(), "c", batch)
	require.NoError(t, err)

	failures := result.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, 1, failures[0].Index)
	assert.Equal(t, CodeDocumentTooLarge, failures[0].Cause.Code)
	assert.False(t, IsConflict(failures[0].Cause))

	// unordered: the documents after the failure were written
	assert.Equal(t, 2, store.Count("c"))
}

func TestStore_BulkInsert_CanceledContext(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.BulkInsert(ctx, "c", docs("a"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Count("c"))
}

func TestStore_BulkInsert_EmptyCollectionName(t *testing.T) {
	_, err := NewStore().BulkInsert(context.Background(), "", docs("a"))
	assert.Error(t, err)
}

func TestStore_BulkInsert_Concurrent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	inserted := make([]int, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ids := make([]string, 50)
			for i := range ids {
				ids[i] = fmt.Sprintf("doc-%d", i)
			}
			result, err := store.BulkInsert(ctx, "shared", docs(ids...))
			if err == nil {
				inserted[w] = len(ids) - len(result.Failures())
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, n := range inserted {
		total += n
	}
	assert.Equal(t, 50, total, "each id is inserted exactly once across writers")
	assert.Equal(t, 50, store.Count("shared"))
}

func TestStore_GetById_Missing(t *testing.T) {
	store := NewStore()
	_, err := store.GetById("none", "a")
	assert.Error(t, err)

	_, err = store.BulkInsert(context.Background(), "c", docs("a"))
	require.NoError(t, err)
	_, err = store.GetById("c", "b")
	assert.Error(t, err)
}

func TestStore_PingAndClose(t *testing.T) {
	store, err := Open()
	require.NoError(t, err)

	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, store.Close(context.Background()))
	// closing twice is safe
	assert.NoError(t, store.Close(context.Background()))
}
