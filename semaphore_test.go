package filesem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSemaphore(t *testing.T, max int) *FileSemaphore {
	t.Helper()
	sem, err := New(Config{
		SemaphoreFile:     tempSem(t),
		MaxConcurrentJobs: max,
		RetryInterval:     5 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return sem
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestFileSemaphoreTryAcquire(t *testing.T) {
	sem := testSemaphore(t, 1)

	guard, ok, err := sem.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, guard)

	_, ok, err = sem.TryAcquire()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, guard.Release())

	_, ok, err = sem.TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileSemaphoreAcquireTimeout(t *testing.T) {
	sem := testSemaphore(t, 1)

	guard, err := sem.Acquire()
	require.NoError(t, err)

	// Saturated: the bounded wait must give up, not error.
	_, ok, err := sem.AcquireTimeout(30 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, guard.Release())

	g2, ok, err := sem.AcquireTimeout(time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NoError(t, g2.Release())
}

func TestFileSemaphoreSharedFile(t *testing.T) {
	path := tempSem(t)
	cfg := Config{
		SemaphoreFile:     path,
		MaxConcurrentJobs: 2,
		RetryInterval:     5 * time.Millisecond,
	}

	// Two semaphore instances over the same file see one shared counter.
	semA, err := New(cfg, nil)
	require.NoError(t, err)
	semB, err := New(cfg, nil)
	require.NoError(t, err)

	gA, ok, err := semA.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	gB, ok, err := semB.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = semA.TryAcquire()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, gA.Release())
	require.NoError(t, gB.Release())

	n, err := semA.Store().Peek()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
