package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a lock set could not be acquired before the wait elapsed.
var ErrLockTimeout = errors.New("lock wait timed out")

// Locker acquires a set of named locks. Keys must be passed in a globally
// consistent order; release frees everything that was acquired.
type Locker interface {
	Acquire(ctx context.Context, keys []string) (release func(), err error)
}

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX so locks hold across instances.
type RedisLocker struct {
	rdb   *redis.Client
	ttl   time.Duration
	wait  time.Duration
	retry time.Duration
}

// NewRedisLocker returns a Locker whose locks expire after ttl and whose
// acquisition gives up after wait.
func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl, wait: wait, retry: 20 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, keys []string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	token := uuid.NewString()
	held := make([]string, 0, len(keys))
	release := func() {
		// Release must run even if the request context is already done.
		rctx, rcancel := context.WithTimeout(context.Background(), time.Second)
		defer rcancel()
		for _, k := range held {
			releaseScript.Run(rctx, l.rdb, []string{k}, token)
		}
	}

	for _, k := range keys {
		if err := l.acquireOne(ctx, k, token); err != nil {
			release()
			return nil, err
		}
		held = append(held, k)
	}
	return release, nil
}

func (l *RedisLocker) acquireOne(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrLockTimeout
		case <-ticker.C:
		}
	}
}

// LocalLocker implements Locker in-process. It serializes only within one
// instance and is used when Redis is not configured.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	wait    time.Duration
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker returns an in-process Locker that gives up after wait.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{entries: make(map[string]*localEntry), wait: wait}
}

func (l *LocalLocker) ref(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *LocalLocker) unref(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *LocalLocker) Acquire(ctx context.Context, keys []string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	type held struct {
		key string
		e   *localEntry
	}
	acquired := make([]held, 0, len(keys))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			<-acquired[i].e.ch
			l.unref(acquired[i].key, acquired[i].e)
		}
	}

	for _, k := range keys {
		e := l.ref(k)
		select {
		case e.ch <- struct{}{}:
			acquired = append(acquired, held{key: k, e: e})
		case <-ctx.Done():
			l.unref(k, e)
			release()
			return nil, ErrLockTimeout
		}
	}
	return release, nil
}
