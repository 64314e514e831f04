package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memList keeps Redis lists in memory. LPUSH adds on the left and BRPOP
// takes from the right, as Redis does.
type memList struct {
	mu     sync.Mutex
	lists  map[string][]string
	onPop  func()
	closed bool
}

func newMemList() *memList {
	return &memList{lists: map[string][]string{}}
}

func (m *memList) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		m.lists[key] = append([]string{toString(v)}, m.lists[key]...)
	}
	return redis.NewIntResult(int64(len(m.lists[key])), nil)
}

func (m *memList) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		m.lists[key] = append(m.lists[key], toString(v))
	}
	return redis.NewIntResult(int64(len(m.lists[key])), nil)
}

func (m *memList) BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	m.mu.Lock()
	for _, key := range keys {
		if n := len(m.lists[key]); n > 0 {
			v := m.lists[key][n-1]
			m.lists[key] = m.lists[key][:n-1]
			onPop := m.onPop
			m.mu.Unlock()
			if onPop != nil {
				onPop()
			}
			return redis.NewStringSliceResult([]string{key, v}, nil)
		}
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return redis.NewStringSliceResult(nil, ctx.Err())
	case <-time.After(5 * time.Millisecond):
		return redis.NewStringSliceResult(nil, redis.Nil)
	}
}

func (m *memList) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memList) items(key string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lists[key]...)
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case string:
		return x
	}
	return ""
}

func TestRedisDispatcher_SubmitDropsFileBytes(t *testing.T) {
	client := newMemList()
	local, err := NewPoolDispatcher(1, 1, func(ctx context.Context, task Task) error { return nil }, zap.NewNop())
	require.NoError(t, err)
	d := NewRedisDispatcher(client, "parse", local, zap.NewNop())

	task := newTask()
	require.NoError(t, d.Submit(context.Background(), task))

	items := client.items("parse")
	require.Len(t, items, 1)
	assert.NotContains(t, items[0], "a,b")
	decoded, err := decodeTask([]byte(items[0]))
	require.NoError(t, err)
	assert.Equal(t, task.RecordID, decoded.RecordID)
	assert.Empty(t, decoded.Data)
	assert.Equal(t, int64(1), d.Stats().Submitted)

	require.NoError(t, d.Shutdown(context.Background()))
	assert.True(t, client.closed)
}

func TestRedisDispatcher_RunHandsTasksToPoolAndDeadLetters(t *testing.T) {
	client := newMemList()
	handled := make(chan Task, 1)
	local, err := NewPoolDispatcher(1, 4, func(ctx context.Context, task Task) error {
		handled <- task
		return nil
	}, zap.NewNop())
	require.NoError(t, err)
	d := NewRedisDispatcher(client, "parse", local, zap.NewNop())

	task := newTask()
	require.NoError(t, d.Submit(context.Background(), task))
	client.LPush(context.Background(), "parse", "{not json")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case got := <-handled:
		assert.Equal(t, task.RecordID, got.RecordID)
		assert.Equal(t, task.FilePath, got.FilePath)
	case <-time.After(2 * time.Second):
		t.Fatal("task was not handled")
	}
	assert.Eventually(t, func() bool {
		return len(client.items("parse:dlq")) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"{not json"}, client.items("parse:dlq"))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, int64(1), d.Stats().Rejected)
	require.NoError(t, local.Shutdown(context.Background()))
}

func TestRedisDispatcher_RequeuesTaskOnCancel(t *testing.T) {
	client := newMemList()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	local, err := NewPoolDispatcher(1, 1, func(ctx context.Context, task Task) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}, zap.NewNop())
	require.NoError(t, err)

	// Fill the pool: one running, one held by the feeder, one in the backlog.
	require.NoError(t, local.Submit(context.Background(), newTask()))
	<-started
	require.NoError(t, local.Submit(context.Background(), newTask()))
	require.Eventually(t, func() bool { return len(local.tasks) == 0 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, local.Submit(context.Background(), newTask()))

	d := NewRedisDispatcher(client, "parse", local, zap.NewNop())
	pending := newTask()
	require.NoError(t, d.Submit(context.Background(), pending))
	payload := client.items("parse")[0]

	ctx, cancel := context.WithCancel(context.Background())
	client.onPop = cancel

	err = d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{payload}, client.items("parse"))
	assert.Empty(t, client.items("parse:dlq"))

	close(release)
	require.NoError(t, local.Shutdown(context.Background()))
}
