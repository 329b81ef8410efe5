package keymutex

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameKey(t *testing.T) {
	km := New()
	var inside atomic.Int32
	var maxSeen atomic.Int32
	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(context.Background(), "guild-1")
			require.NoError(t, err)
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Equal(t, 0, km.Len())
}

func TestLockDistinctKeysDoNotBlock(t *testing.T) {
	km := New()
	unlockA, err := km.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := km.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestLockHonorsContext(t *testing.T) {
	km := New()
	unlock, err := km.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = km.Lock(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Equal(t, 0, km.Len())
}
