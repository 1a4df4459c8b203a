package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/campus-backend/internal/platform/logger"
)

// NewRedisClient dials addr and verifies it with a ping.
func NewRedisClient(ctx context.Context, addr string) (*goredis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// RedisLists is the subset of go-redis the queue needs. *goredis.Client
// satisfies it.
type RedisLists interface {
	LPush(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	LRem(ctx context.Context, key string, count int64, value interface{}) *goredis.IntCmd
	LMove(ctx context.Context, source, destination, srcpos, destpos string) *goredis.StringCmd
	BLMove(ctx context.Context, source, destination, srcpos, destpos string, timeout time.Duration) *goredis.StringCmd
}

const defaultRedisQueue = "campus:deferred"

func queueName(queue string) string {
	if strings.TrimSpace(queue) == "" {
		return defaultRedisQueue
	}
	return queue
}

// RedisDispatcher pushes JSON tasks onto a Redis list.
type RedisDispatcher struct {
	rdb   RedisLists
	queue string
}

func NewRedisDispatcher(rdb RedisLists, queue string) *RedisDispatcher {
	return &RedisDispatcher{rdb: rdb, queue: queueName(queue)}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, task Task) error {
	if d == nil || d.rdb == nil {
		return fmt.Errorf("redis dispatcher not initialized")
	}
	b, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	return d.rdb.LPush(ctx, d.queue, b).Err()
}

// RedisSource moves tasks from the queue onto a processing list and keeps
// them there until the worker settles them. A task still on the processing
// list when the process dies is put back by Recover on the next start.
// Parked tasks (retries exhausted) wait on the failed list for an operator.
type RedisSource struct {
	rdb        RedisLists
	queue      string
	processing string
	failed     string
	log        *logger.Logger
	timeout    time.Duration

	mu       sync.Mutex
	inflight map[uuid.UUID]string
}

func NewRedisSource(rdb RedisLists, queue string, log *logger.Logger) *RedisSource {
	queue = queueName(queue)
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisSource{
		rdb:        rdb,
		queue:      queue,
		processing: queue + ":processing",
		failed:     queue + ":failed",
		log:        log.With("component", "RedisSource"),
		timeout:    2 * time.Second,
		inflight:   map[uuid.UUID]string{},
	}
}

// Recover returns every task left on the processing list to the queue. Call
// it before starting workers, and only when no other process consumes the
// same queue.
func (s *RedisSource) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := s.rdb.LMove(ctx, s.processing, s.queue, "LEFT", "RIGHT").Err()
		if errors.Is(err, goredis.Nil) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("requeue %s: %w", s.processing, err)
		}
		n++
	}
	if n > 0 {
		s.log.Warn("Requeued unfinished tasks", "queue", s.queue, "count", n)
	}
	return n, nil
}

func (s *RedisSource) Next(ctx context.Context) (Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Task{}, err
		}
		raw, err := s.rdb.BLMove(ctx, s.queue, s.processing, "RIGHT", "LEFT", s.timeout).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return Task{}, err
		}
		var t Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			s.log.Warn("Parking undecodable task", "queue", s.queue, "error", err)
			s.move(ctx, raw, s.failed)
			continue
		}
		s.mu.Lock()
		s.inflight[t.ID] = raw
		s.mu.Unlock()
		return t, nil
	}
}

// Ack drops a finished task from the processing list.
func (s *RedisSource) Ack(ctx context.Context, task Task) error {
	raw, ok := s.take(task.ID)
	if !ok {
		return nil
	}
	return s.rdb.LRem(ctx, s.processing, 1, raw).Err()
}

// Park moves a task whose retries ran out onto the failed list.
func (s *RedisSource) Park(ctx context.Context, task Task) error {
	raw, ok := s.take(task.ID)
	if !ok {
		return nil
	}
	return s.move(ctx, raw, s.failed)
}

func (s *RedisSource) take(id uuid.UUID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.inflight[id]
	delete(s.inflight, id)
	return raw, ok
}

// move pushes raw onto dst before removing it from processing, so a crash in
// between leaves a duplicate rather than a loss.
func (s *RedisSource) move(ctx context.Context, raw, dst string) error {
	if err := s.rdb.LPush(ctx, dst, raw).Err(); err != nil {
		s.log.Warn("Push failed", "list", dst, "error", err)
		return err
	}
	return s.rdb.LRem(ctx, s.processing, 1, raw).Err()
}
