package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"trustbooks/pkg/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const popTimeout = 5 * time.Second

func NewRedisClient(cfg *config.QueueConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return rdb, nil
}

// ListClient is the part of *redis.Client the dispatcher uses.
type ListClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	Close() error
}

var _ ListClient = (*redis.Client)(nil)

// RedisDispatcher publishes tasks to a Redis list so any server or worker
// process can run them. Run consumes the list into a local pool.
type RedisDispatcher struct {
	client ListClient
	key    string
	local  *PoolDispatcher
	logger *zap.Logger

	enqueued   atomic.Int64
	deadLetter atomic.Int64

	stop    context.CancelFunc
	stopped chan struct{}
	once    sync.Once
}

func NewRedisDispatcher(client ListClient, key string, local *PoolDispatcher, logger *zap.Logger) *RedisDispatcher {
	return &RedisDispatcher{
		client:  client,
		key:     key,
		local:   local,
		logger:  logger,
		stopped: make(chan struct{}),
	}
}

func (d *RedisDispatcher) dlqKey() string { return d.key + ":dlq" }

// Submit pushes the task without its bytes; the consumer reads the file from
// storage.
func (d *RedisDispatcher) Submit(ctx context.Context, t Task) error {
	payload, err := encodeTask(t)
	if err != nil {
		return err
	}
	if err := d.client.LPush(ctx, d.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	d.enqueued.Add(1)
	return nil
}

// Start runs the consumer loop in the background until Shutdown.
func (d *RedisDispatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.stop = cancel
	go func() {
		defer close(d.stopped)
		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("Redis consumer stopped", zap.Error(err))
		}
	}()
}

// Run pops tasks until ctx is done. Payloads that cannot be decoded go to the
// dead-letter list.
func (d *RedisDispatcher) Run(ctx context.Context) error {
	d.logger.Info("Redis consumer started", zap.String("queue", d.key))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := d.client.BRPop(ctx, popTimeout, d.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Error("Failed to pop task", zap.String("queue", d.key), zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		message := result[1]
		t, err := decodeTask([]byte(message))
		if err != nil {
			d.toDeadLetter(ctx, message, err)
			continue
		}
		if err := d.local.SubmitWait(ctx, t); err != nil {
			if ctx.Err() == nil {
				d.toDeadLetter(ctx, message, err)
				continue
			}
			// Put it back for the next consumer.
			if pushErr := d.client.RPush(context.Background(), d.key, message).Err(); pushErr != nil {
				d.logger.Error("Failed to requeue task", zap.Error(pushErr))
			}
			return ctx.Err()
		}
	}
}

func (d *RedisDispatcher) toDeadLetter(ctx context.Context, message string, cause error) {
	d.deadLetter.Add(1)
	d.logger.Error("Moving task to dead-letter queue", zap.String("dlq", d.dlqKey()), zap.Error(cause))
	if err := d.client.LPush(ctx, d.dlqKey(), message).Err(); err != nil {
		d.logger.Error("Failed to move task to dead-letter queue", zap.String("dlq", d.dlqKey()), zap.Error(err))
	}
}

// Shutdown stops consuming, drains the local pool and closes the client.
func (d *RedisDispatcher) Shutdown(ctx context.Context) error {
	var err error
	d.once.Do(func() {
		if d.stop != nil {
			d.stop()
			select {
			case <-d.stopped:
			case <-ctx.Done():
			}
		}
		err = d.local.Shutdown(ctx)
		if cerr := d.client.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	})
	return err
}

func (d *RedisDispatcher) Stats() Stats {
	s := d.local.Stats()
	s.Submitted = d.enqueued.Load()
	s.Rejected += d.deadLetter.Load()
	return s
}
