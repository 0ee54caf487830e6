package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/lock"
)

func newLocker(t *testing.T) (lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}, mr
}

func TestWithLockSerializesHolders(t *testing.T) {
	locker, _ := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var (
		mu      sync.Mutex
		seen    []string
		inside  int
		overlap bool
		wg      sync.WaitGroup
	)
	for _, name := range []string{"first", "second", "third"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			err := locker.WithLock(ctx, locker.Key("invoice", "o1"), time.Second, func(context.Context) error {
				mu.Lock()
				inside++
				if inside > 1 {
					overlap = true
				}
				seen = append(seen, name)
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("with lock: %v", err)
			}
		}(name)
	}
	wg.Wait()
	require.False(t, overlap)
	require.Len(t, seen, 3)
}

func TestWithLockReleasesOnlyOwnToken(t *testing.T) {
	locker, mr := newLocker(t)
	key := locker.Key("invoice", "o2")

	err := locker.WithLock(context.Background(), key, time.Second, func(context.Context) error {
		// simulate expiry and takeover by another worker
		mr.Del(key)
		require.NoError(t, mr.Set(key, "someone-else"))
		return nil
	})
	require.NoError(t, err)
	got, err := mr.Get(key)
	require.NoError(t, err)
	require.Equal(t, "someone-else", got)
}

func TestWithLockGivesUpWhenContextEnds(t *testing.T) {
	locker, mr := newLocker(t)
	key := locker.Key("invoice", "o3")
	require.NoError(t, mr.Set(key, "held"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := locker.WithLock(ctx, key, time.Second, func(context.Context) error {
		t.Fatal("must not run without the lock")
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKey(t *testing.T) {
	require.Equal(t, "lock:invoice:abc", lock.Locker{}.Key("invoice", "abc"))
	require.Equal(t, "resto:invoice", lock.Locker{Prefix: "resto"}.Key("invoice"))
}
