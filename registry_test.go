package filesem

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempRegistry(t *testing.T) *Registry {
	t.Helper()
	return newRegistry(filepath.Join(t.TempDir(), "jobs.sem.holders"), MessagePackCodec{})
}

func TestRegistryAddRemove(t *testing.T) {
	r := tempRegistry(t)

	require.NoError(t, r.add(Holder{PID: 100, Host: hostname(), Label: "backup", AcquiredAt: time.Now()}))
	require.NoError(t, r.add(Holder{PID: 200, Host: hostname(), AcquiredAt: time.Now()}))

	holders := r.load()
	require.Len(t, holders, 2)
	assert.Equal(t, "backup", holders[0].Label)

	require.NoError(t, r.remove(100))
	holders = r.load()
	require.Len(t, holders, 1)
	assert.Equal(t, 200, holders[0].PID)
}

func TestRegistryRemoveLastDeletesFile(t *testing.T) {
	r := tempRegistry(t)

	require.NoError(t, r.add(Holder{PID: 100, Host: hostname()}))
	require.NoError(t, r.remove(100))

	assert.Empty(t, r.load())
	_, err := os.Stat(r.path)
	assert.True(t, os.IsNotExist(err))
}

func TestRegistryRemoveUnknownPID(t *testing.T) {
	r := tempRegistry(t)
	require.NoError(t, r.add(Holder{PID: 100, Host: hostname()}))

	require.NoError(t, r.remove(999))
	assert.Len(t, r.load(), 1)
}

func TestRegistryCorruptReadsAsEmpty(t *testing.T) {
	r := tempRegistry(t)
	require.NoError(t, os.WriteFile(r.path, []byte("this is not msgpack"), 0o644))

	assert.Empty(t, r.load())
}

func TestHolderStale(t *testing.T) {
	alive := Holder{PID: os.Getpid(), Host: hostname()}
	assert.False(t, alive.Stale())

	dead := Holder{PID: 1 << 30, Host: hostname()}
	assert.True(t, dead.Stale())

	foreign := Holder{PID: 1 << 30, Host: "some-other-machine"}
	assert.False(t, foreign.Stale(), "entries from other hosts cannot be probed")
}
