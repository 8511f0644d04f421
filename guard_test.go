package filesem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardReleasesExactlyOnce(t *testing.T) {
	path := tempSem(t)
	a := NewAcquirer(NewStore(path, nil), 3, time.Millisecond, nil)

	g, err := a.Acquire(context.Background())
	require.NoError(t, err)

	observer := NewStore(path, nil)
	n, err := observer.Peek()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, g.Release())
	n, err = observer.Peek()
	require.NoError(t, err)
	require.Equal(t, 0, n)

	// Simulates the guard firing from both a signal path and a normal exit
	// path: the second invocation must not decrement again.
	require.NoError(t, g.Release())
	n, err = observer.Peek()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, g.Released())
}

func TestGuardConcurrentReleasePaths(t *testing.T) {
	path := tempSem(t)

	// Start from a known non-zero counter so a double decrement is visible.
	holder := NewStore(path, nil)
	res, err := holder.TryAcquire(2)
	require.NoError(t, err)
	require.Equal(t, Acquired, res)

	a := NewAcquirer(NewStore(path, nil), 2, time.Millisecond, nil)
	g, err := a.Acquire(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Release(); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	n, err := holder.Peek()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "racing release paths must decrement exactly once")
}

func TestNilGuardRelease(t *testing.T) {
	// A process interrupted before it ever acquired runs its guard with
	// nothing to undo.
	var g *Guard
	assert.NoError(t, g.Release())
	assert.True(t, g.Released())
}
