// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < --config < env < flags
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/pipeline"
	"github.com/NuHepMC/ReferenceImplementation/pkg/report"
)

// Config holds all validator configuration.
type Config struct {
	Version int `yaml:"version"`

	Validation ValidationConfig `yaml:"validation"`
	Output     OutputConfig     `yaml:"output"`
	Log        LogConfig        `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	Source     SourceConfig     `yaml:"source"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ValidationConfig controls the validation driver.
type ValidationConfig struct {
	Mode    string `yaml:"mode"`    // fail-fast | collect-all
	Workers int    `yaml:"workers"` // 1 = check events on the reading goroutine
}

// OutputConfig controls how reports are printed.
type OutputConfig struct {
	Format   string `yaml:"format"` // text | json | yaml
	Color    bool   `yaml:"color"`
	Progress bool   `yaml:"progress"`
}

// LogConfig controls operational logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

// StoreConfig selects the report store.
type StoreConfig struct {
	Backend string      `yaml:"backend"` // none | local | redis | s3
	Dir     string      `yaml:"dir"`
	Redis   RedisConfig `yaml:"redis"`
	S3      S3Config    `yaml:"s3"`
}

// RedisConfig for the Redis report store.
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// S3Config for S3 access.
type S3Config struct {
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// SourceConfig controls where record files are read from.
type SourceConfig struct {
	S3 S3Config `yaml:"s3"`
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Endpoint      string  `yaml:"endpoint"`
	SamplingRatio float64 `yaml:"sampling_ratio"`
}

// MetricsConfig for the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty = disabled
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Version: 1,
		Validation: ValidationConfig{
			Mode:    pipeline.PolicyFailFast.String(),
			Workers: 1,
		},
		Output: OutputConfig{
			Format: string(report.FormatText),
			Color:  true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Store: StoreConfig{
			Backend: "none",
			Dir:     filepath.Join(homeDir, ".nuhepmc", "reports"),
			Redis: RedisConfig{
				Address: "localhost:6379",
				Prefix:  "nuhepmc:reports:",
				TTL:     7 * 24 * time.Hour,
			},
		},
		Source: SourceConfig{
			S3: S3Config{Region: "us-east-1"},
		},
		Telemetry: TelemetryConfig{
			Endpoint:      "localhost:4317",
			SamplingRatio: 1.0,
		},
	}
}

// Validate checks enumerations and numeric ranges.
func (c *Config) Validate() error {
	if _, err := pipeline.ParsePolicy(c.Validation.Mode); err != nil {
		return err
	}
	if c.Validation.Workers < 1 {
		return lferrors.InvalidConfig("validation.workers", c.Validation.Workers, "must be at least 1")
	}
	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return lferrors.InvalidConfig("log.level", c.Log.Level, "must be debug, info, warn or error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return lferrors.InvalidConfig("log.format", c.Log.Format, "must be console or json")
	}
	switch strings.ToLower(c.Store.Backend) {
	case "", "none", "local", "redis":
	case "s3":
		if c.Store.S3.Bucket == "" {
			return lferrors.InvalidConfig("store.s3.bucket", c.Store.S3.Bucket, "required for the s3 store")
		}
	default:
		return lferrors.InvalidConfig("store.backend", c.Store.Backend, "must be none, local, redis or s3")
	}
	if c.Store.Redis.TTL < 0 {
		return lferrors.InvalidConfig("store.redis.ttl", c.Store.Redis.TTL, "must not be negative")
	}
	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		return lferrors.InvalidConfig("telemetry.sampling_ratio", r, "must be between 0 and 1")
	}
	return nil
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	search []string
	paths  []string // Paths that were loaded
}

// NewManager creates a manager over the standard search paths.
func NewManager() *Manager {
	return &Manager{config: Default(), search: searchPaths()}
}

// NewManagerWithPaths creates a manager over the given search paths.
func NewManagerWithPaths(paths ...string) *Manager {
	return &Manager{config: Default(), search: paths}
}

// searchPaths returns config file paths in priority order.
func searchPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/nuhepmc/config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".nuhepmc", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".nuhepmc.yaml"))
	}
	return paths
}

// Load loads configuration from all sources in priority order. explicit,
// when set, is loaded after the search paths and must exist. The result
// is validated.
func (m *Manager) Load(explicit string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	for _, path := range m.search {
		err := m.loadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		m.paths = append(m.paths, path)
	}
	if explicit != "" {
		err := m.loadFile(explicit)
		if errors.Is(err, fs.ErrNotExist) {
			return lferrors.InvalidConfig("config", explicit, "file not found")
		}
		if err != nil {
			return err
		}
		m.paths = append(m.paths, explicit)
	}

	if err := m.loadEnv(); err != nil {
		return err
	}
	return m.config.Validate()
}

// loadFile decodes a config file over the current configuration. Keys
// absent from the file keep their value.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err != nil {
		return lferrors.Wrap(err, lferrors.CodeInvalidConfig, "cannot read config file").WithContext("path", path)
	}
	if err := yaml.Unmarshal(data, m.config); err != nil {
		return lferrors.Wrap(err, lferrors.CodeInvalidConfig, "invalid config file").WithContext("path", path)
	}
	return nil
}

// loadEnv applies NUHEPMC_* environment variables.
func (m *Manager) loadEnv() error {
	c := m.config
	str := map[string]*string{
		"NUHEPMC_MODE":            &c.Validation.Mode,
		"NUHEPMC_OUTPUT":          &c.Output.Format,
		"NUHEPMC_LOG_LEVEL":       &c.Log.Level,
		"NUHEPMC_LOG_FORMAT":      &c.Log.Format,
		"NUHEPMC_STORE":           &c.Store.Backend,
		"NUHEPMC_STORE_DIR":       &c.Store.Dir,
		"NUHEPMC_REDIS_ADDR":      &c.Store.Redis.Address,
		"NUHEPMC_REDIS_PASSWORD":  &c.Store.Redis.Password,
		"NUHEPMC_STORE_S3_BUCKET": &c.Store.S3.Bucket,
		"NUHEPMC_S3_REGION":       &c.Source.S3.Region,
		"NUHEPMC_S3_ENDPOINT":     &c.Source.S3.Endpoint,
		"NUHEPMC_OTLP_ENDPOINT":   &c.Telemetry.Endpoint,
		"NUHEPMC_METRICS_ADDR":    &c.Metrics.Addr,
	}
	for name, field := range str {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	if v := os.Getenv("NUHEPMC_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return lferrors.InvalidConfig("NUHEPMC_WORKERS", v, "not an integer")
		}
		c.Validation.Workers = n
	}
	if v := os.Getenv("NUHEPMC_TELEMETRY"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return lferrors.InvalidConfig("NUHEPMC_TELEMETRY", v, "not a boolean")
		}
		c.Telemetry.Enabled = on
	}
	if v := os.Getenv("NO_COLOR"); v != "" {
		c.Output.Color = false
	}
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}
