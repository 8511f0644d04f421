package filesem

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

// Defaults for the semaphore configuration.
const (
	DefaultMaxConcurrentJobs = 1
	DefaultRetryInterval     = 5 * time.Second
)

// Environment variables recognized by ApplyEnv. Interval variables are
// plain second counts.
const (
	EnvMaxConcurrentJobs = "MAX_CONCURRENT_JOBS"
	EnvRetryInterval     = "RETRY_INTERVAL"
	EnvSemaphoreFile     = "SEMAPHORE_FILE"
	EnvAcquireTimeout    = "ACQUIRE_TIMEOUT"
)

// Config holds the semaphore parameters shared by all participants.
// All processes coordinating through one semaphore file must agree on
// MaxConcurrentJobs; the remaining fields are process-local policy.
type Config struct {
	// SemaphoreFile is the path of the shared counter file. It is created
	// on first acquire and never deleted by the semaphore.
	SemaphoreFile string

	// MaxConcurrentJobs bounds how many processes may hold a slot at once.
	MaxConcurrentJobs int

	// RetryInterval is the fixed delay between failed acquire attempts.
	// There is no backoff.
	RetryInterval time.Duration

	// AcquireTimeout bounds the total wait for a slot. Zero waits forever,
	// matching the original unbounded polling behavior.
	AcquireTimeout time.Duration
}

// DefaultConfig returns a Config with the documented defaults and no
// semaphore file path set.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentJobs: DefaultMaxConcurrentJobs,
		RetryInterval:     DefaultRetryInterval,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.SemaphoreFile == "" {
		return fmt.Errorf("semaphore file path is required")
	}
	if c.MaxConcurrentJobs < 1 {
		return fmt.Errorf("max concurrent jobs must be at least 1, got %d", c.MaxConcurrentJobs)
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("retry interval must be positive, got %s", c.RetryInterval)
	}
	if c.AcquireTimeout < 0 {
		return fmt.Errorf("acquire timeout must not be negative, got %s", c.AcquireTimeout)
	}
	return nil
}

// fileConfig mirrors Config with intervals as plain second counts, the same
// unit the environment variables use. Pointer fields distinguish absent
// keys from explicit zeroes.
type fileConfig struct {
	SemaphoreFile     string `yaml:"semaphore_file" mapstructure:"semaphore_file"`
	MaxConcurrentJobs *int   `yaml:"max_concurrent_jobs" mapstructure:"max_concurrent_jobs"`
	RetryInterval     *int   `yaml:"retry_interval" mapstructure:"retry_interval"`
	AcquireTimeout    *int   `yaml:"acquire_timeout" mapstructure:"acquire_timeout"`
}

func (fc fileConfig) apply(c *Config) {
	if fc.SemaphoreFile != "" {
		c.SemaphoreFile = fc.SemaphoreFile
	}
	if fc.MaxConcurrentJobs != nil {
		c.MaxConcurrentJobs = *fc.MaxConcurrentJobs
	}
	if fc.RetryInterval != nil {
		c.RetryInterval = time.Duration(*fc.RetryInterval) * time.Second
	}
	if fc.AcquireTimeout != nil {
		c.AcquireTimeout = time.Duration(*fc.AcquireTimeout) * time.Second
	}
}

// LoadConfigFile reads a YAML config file and overlays it onto the defaults.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	c := DefaultConfig()
	fc.apply(&c)
	return c, nil
}

// FromMap overlays a generic configuration map onto the defaults, for
// embedding programs that already hold parsed configuration. Keys match the
// YAML field names; intervals are second counts.
func FromMap(m map[string]interface{}) (Config, error) {
	var fc fileConfig
	if err := mapstructure.Decode(m, &fc); err != nil {
		return Config{}, fmt.Errorf("decoding config map: %w", err)
	}
	c := DefaultConfig()
	fc.apply(&c)
	return c, nil
}

// ApplyEnv overlays recognized environment variables onto c.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvSemaphoreFile); v != "" {
		c.SemaphoreFile = v
	}
	if v := os.Getenv(EnvMaxConcurrentJobs); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMaxConcurrentJobs, err)
		}
		c.MaxConcurrentJobs = n
	}
	if v := os.Getenv(EnvRetryInterval); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvRetryInterval, err)
		}
		c.RetryInterval = time.Duration(secs) * time.Second
	}
	if v := os.Getenv(EnvAcquireTimeout); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvAcquireTimeout, err)
		}
		c.AcquireTimeout = time.Duration(secs) * time.Second
	}
	return nil
}
