package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKeys(t *testing.T) {
	assert.Equal(t, "flowdesk:doc:project:abc", redisDocKey(domain.DocumentProject, "abc"))
	assert.Equal(t, "flowdesk:index:template", redisIndexKey(domain.DocumentTemplate))
}

func TestDecodeDocument_NormalizesNodes(t *testing.T) {
	d, err := decodeDocument([]byte(`{
		"kind": "project", "id": "p1", "name": "Legacy",
		"flowChart": [
			{"id": "ph", "type": "phase", "containerId": ""},
			{"id": "n", "type": "note", "children": []}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, d.Nodes, 2)
	assert.Equal(t, []string{}, d.Nodes[0].Children)
	assert.Nil(t, d.Nodes[0].ContainerID)
	assert.Nil(t, d.Nodes[1].Children)
	assert.True(t, d.Nodes[1].ShowForCustomer, "absent visibility defaults to shown")

	d, err = decodeDocument([]byte(`{"kind": "template", "id": "t1", "name": "Empty"}`))
	require.NoError(t, err)
	assert.NotNil(t, d.Nodes)

	_, err = decodeDocument([]byte(`{`))
	assert.Error(t, err)
}

func TestSortHeaders(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	docs := []*domain.Document{
		{Name: "b", UpdatedAt: base},
		{Name: "old", UpdatedAt: base.Add(-time.Hour)},
		{Name: "a", UpdatedAt: base},
		{Name: "new", UpdatedAt: base.Add(time.Hour)},
	}
	sortHeaders(docs)

	var names []string
	for _, d := range docs {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"new", "a", "b", "old"}, names)
}

func TestRetryOnTxFailed(t *testing.T) {
	ctx := context.Background()

	t.Run("retries until the write lands", func(t *testing.T) {
		calls := 0
		err := retryOnTxFailed(ctx, 5, func() error {
			calls++
			if calls < 3 {
				return redis.TxFailedErr
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		err := retryOnTxFailed(ctx, 5, func() error {
			calls++
			return domain.ErrNotFound
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after the attempt limit", func(t *testing.T) {
		calls := 0
		err := retryOnTxFailed(ctx, 4, func() error {
			calls++
			return redis.TxFailedErr
		})
		assert.ErrorIs(t, err, redis.TxFailedErr)
		assert.Equal(t, 4, calls)
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		err := retryOnTxFailed(cancelled, 4, func() error {
			calls++
			return redis.TxFailedErr
		})
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, 1, calls)
	})
}

func TestRedisDocumentRepo_ConcurrentReplacesAllSucceed(t *testing.T) {
	addr := os.Getenv("FLOWDESK_TEST_REDIS")
	if addr == "" {
		t.Skip("FLOWDESK_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()
	require.NoError(t, client.FlushDB(ctx).Err())

	repo := NewRedisDocumentRepo(client)
	doc := testutil.NewTestProject("Race")
	require.NoError(t, repo.Create(ctx, doc))

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			node := testutil.NewTestNode(domain.NodeNote, testutil.WithID(fmt.Sprintf("w%d", i)))
			errs <- repo.ReplaceNodes(ctx, domain.DocumentProject, doc.ID, []domain.Node{node})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	got, err := repo.GetByID(ctx, domain.DocumentProject, doc.ID)
	require.NoError(t, err)
	assert.Len(t, got.Nodes, 1, "one writer's chart wins whole")
}
