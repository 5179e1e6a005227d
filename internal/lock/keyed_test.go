// internal/lock/keyed_test.go
package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerage-ledger/internal/util"
)

func TestAcquireSerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := k.Acquire(context.Background(), "alice", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, k.Len())
}

func TestAcquireTimesOutWithContention(t *testing.T) {
	k := NewKeyedMutex()
	release, err := k.Acquire(context.Background(), "alice", time.Second)
	require.NoError(t, err)
	defer release()

	_, err = k.Acquire(context.Background(), "alice", 20*time.Millisecond)
	assert.True(t, util.IsError(err, util.ErrContention))
	assert.True(t, util.IsRetryable(err))
}

func TestAcquireDifferentKeysInParallel(t *testing.T) {
	k := NewKeyedMutex()
	releaseA, err := k.Acquire(context.Background(), "alice", time.Second)
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := k.Acquire(context.Background(), "bob", 10*time.Millisecond)
	require.NoError(t, err)
	releaseB()
}

func TestAcquireHonoursContext(t *testing.T) {
	k := NewKeyedMutex()
	release, err := k.Acquire(context.Background(), "alice", time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = k.Acquire(ctx, "alice", time.Second)
	assert.True(t, errors.Is(err, context.Canceled))

	release()
	release() // second call is a no-op
	assert.Equal(t, 0, k.Len())
}
