package filesem

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, 1, c.MaxConcurrentJobs)
	assert.Equal(t, 5*time.Second, c.RetryInterval)
	assert.Zero(t, c.AcquireTimeout)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvMaxConcurrentJobs, "4")
	t.Setenv(EnvRetryInterval, "2")
	t.Setenv(EnvSemaphoreFile, "/tmp/ci.sem")
	t.Setenv(EnvAcquireTimeout, "60")

	c := DefaultConfig()
	require.NoError(t, c.ApplyEnv())

	assert.Equal(t, 4, c.MaxConcurrentJobs)
	assert.Equal(t, 2*time.Second, c.RetryInterval)
	assert.Equal(t, "/tmp/ci.sem", c.SemaphoreFile)
	assert.Equal(t, time.Minute, c.AcquireTimeout)
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	t.Setenv(EnvMaxConcurrentJobs, "many")

	c := DefaultConfig()
	assert.Error(t, c.ApplyEnv())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filesem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"semaphore_file: /var/run/nightly.sem\nmax_concurrent_jobs: 3\nretry_interval: 10\n",
	), 0o644))

	c, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/run/nightly.sem", c.SemaphoreFile)
	assert.Equal(t, 3, c.MaxConcurrentJobs)
	assert.Equal(t, 10*time.Second, c.RetryInterval)
	// Keys absent from the file keep their defaults.
	assert.Zero(t, c.AcquireTimeout)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFromMap(t *testing.T) {
	c, err := FromMap(map[string]interface{}{
		"semaphore_file":      "/tmp/jobs.sem",
		"max_concurrent_jobs": 2,
		"retry_interval":      1,
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/jobs.sem", c.SemaphoreFile)
	assert.Equal(t, 2, c.MaxConcurrentJobs)
	assert.Equal(t, time.Second, c.RetryInterval)
}

func TestValidate(t *testing.T) {
	valid := Config{
		SemaphoreFile:     "/tmp/jobs.sem",
		MaxConcurrentJobs: 1,
		RetryInterval:     time.Second,
	}
	assert.NoError(t, valid.Validate())

	missingPath := valid
	missingPath.SemaphoreFile = ""
	assert.Error(t, missingPath.Validate())

	zeroMax := valid
	zeroMax.MaxConcurrentJobs = 0
	assert.Error(t, zeroMax.Validate())

	zeroInterval := valid
	zeroInterval.RetryInterval = 0
	assert.Error(t, zeroInterval.Validate())

	negativeTimeout := valid
	negativeTimeout.AcquireTimeout = -time.Second
	assert.Error(t, negativeTimeout.Validate())
}
