package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGraphQL struct {
	calls   atomic.Int32
	payload string
	err     error
	delay   time.Duration
}

func (f *fakeGraphQL) Do(_ context.Context, bearer, query string, variables map[string]any, out any) error {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.payload), out)
}

const tasksPayload = `{"tasks":[
  {"id":1,"title":"Join channel","description":"","reward":50,"url":"https://t.me/boost","created_at":"2024-01-02T03:04:05Z"},
  {"id":"b7c1","title":"Visit site","reward":10,"url":"https://example.com","created_at":"2024-01-01T00:00:00Z"}
]}`

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestListActive_NoCache(t *testing.T) {
	gql := &fakeGraphQL{payload: tasksPayload}

	tasks, err := NewTaskService(gql, nil).ListActive(context.Background(), "tok")
	require.NoError(t, err)

	require.Len(t, tasks, 2)
	assert.Equal(t, "1", tasks[0].ID)
	assert.Equal(t, "b7c1", tasks[1].ID)
	assert.Equal(t, int64(50), tasks[0].Reward)
}

func TestListActive_CachesPerSession(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	gql := &fakeGraphQL{payload: tasksPayload}
	svc := NewTaskService(gql, NewTaskCache(rdb, time.Minute))
	ctx := context.Background()

	first, err := svc.ListActive(ctx, "tok-a")
	require.NoError(t, err)
	second, err := svc.ListActive(ctx, "tok-a")
	require.NoError(t, err)

	assert.Equal(t, int32(1), gql.calls.Load())
	require.Len(t, second, len(first))
	assert.Equal(t, first[0].Title, second[0].Title)
	assert.True(t, first[0].CreatedAt.Equal(second[0].CreatedAt))

	_, err = svc.ListActive(ctx, "tok-b")
	require.NoError(t, err)
	assert.Equal(t, int32(2), gql.calls.Load())

	for _, k := range mr.Keys() {
		assert.NotContains(t, k, "tok-a")
	}

	mr.FastForward(2 * time.Minute)
	_, err = svc.ListActive(ctx, "tok-a")
	require.NoError(t, err)
	assert.Equal(t, int32(3), gql.calls.Load())
}

func TestListActive_ErrorNotCached(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	gql := &fakeGraphQL{err: errors.New("upstream down")}
	svc := NewTaskService(gql, NewTaskCache(rdb, time.Minute))

	_, err := svc.ListActive(context.Background(), "tok")
	require.Error(t, err)
	assert.Empty(t, mr.Keys())
}

func TestListActive_CollapsesConcurrentMisses(t *testing.T) {
	gql := &fakeGraphQL{payload: tasksPayload, delay: 50 * time.Millisecond}
	svc := NewTaskService(gql, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tasks, err := svc.ListActive(context.Background(), "tok")
			assert.NoError(t, err)
			assert.Len(t, tasks, 2)
		}()
	}
	wg.Wait()

	assert.Less(t, gql.calls.Load(), int32(8))
}
