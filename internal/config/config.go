// Package config loads the YAML configuration file. String values that carry
// secrets or locations may reference environment variables as ${NAME}.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/venke07/conductor/internal/capability"
	"github.com/venke07/conductor/internal/router"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server       ServerConfig            `yaml:"server"`
	Log          LogConfig               `yaml:"log"`
	Providers    ProvidersConfig         `yaml:"providers"`
	Capabilities []capability.Capability `yaml:"capabilities"`
	Agents       []capability.Agent      `yaml:"agents"`
	Tools        ToolsConfig             `yaml:"tools"`
	State        StateConfig             `yaml:"state"`
	Archive      ArchiveConfig           `yaml:"archive"`
	Janitor      JanitorConfig           `yaml:"janitor"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProvidersConfig extends the built-in model routing table. Routes are keyed
// by model id, or by a prefix ending in "*".
type ProvidersConfig struct {
	Routes     map[string]router.Route `yaml:"routes"`
	Fallback   *router.Route           `yaml:"fallback"`
	Keys       map[string]string       `yaml:"keys"`
	RateLimits map[string]RateLimit    `yaml:"rate_limits"`
	MaxRetries int                     `yaml:"max_retries"`
	Timeout    time.Duration           `yaml:"timeout"`
}

// RateLimit caps calls to one provider. RPS <= 0 means unlimited.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ToolsConfig struct {
	Enabled        bool          `yaml:"enabled"`
	OutputDir      string        `yaml:"output_dir"`
	EnableCode     bool          `yaml:"enable_code"`
	CodeTimeout    time.Duration `yaml:"code_timeout"`
	CodeEnv        []string      `yaml:"code_env"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxResultBytes int           `yaml:"max_result_bytes"`
	Rules          []string      `yaml:"rules"`
}

type StateConfig struct {
	Backend  string        `yaml:"backend"`
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
	Redis    RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type ArchiveConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Driver    string        `yaml:"driver"`
	DataDir   string        `yaml:"data_dir"`
	DSN       string        `yaml:"dsn"`
	Retention time.Duration `yaml:"retention"`
}

// JanitorConfig schedules archive pruning. Schedule is a standard cron
// expression or descriptor such as "@daily".
type JanitorConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)}`)

func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func expandEnvInConfig(cfg *Config) {
	for name, r := range cfg.Providers.Routes {
		r.BaseURL = expandEnv(r.BaseURL)
		cfg.Providers.Routes[name] = r
	}
	if cfg.Providers.Fallback != nil {
		cfg.Providers.Fallback.BaseURL = expandEnv(cfg.Providers.Fallback.BaseURL)
	}
	for name, v := range cfg.Providers.Keys {
		cfg.Providers.Keys[name] = expandEnv(v)
	}
	cfg.Tools.OutputDir = expandEnv(cfg.Tools.OutputDir)
	cfg.State.Redis.Addr = expandEnv(cfg.State.Redis.Addr)
	cfg.State.Redis.Password = expandEnv(cfg.State.Redis.Password)
	cfg.Archive.DataDir = expandEnv(cfg.Archive.DataDir)
	cfg.Archive.DSN = expandEnv(cfg.Archive.DSN)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes data, expands environment references and applies defaults.
// It does not validate; call Validate for that.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	expandEnvInConfig(&cfg)
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// DefaultDataDir is ~/.conductor, or .conductor when the home directory is
// unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".conductor"
	}
	return filepath.Join(home, ".conductor")
}

func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.State.Backend == "" {
		c.State.Backend = BackendMemory
	}
	if c.State.Capacity == 0 {
		c.State.Capacity = 1024
	}
	if c.State.TTL == 0 {
		c.State.TTL = time.Hour
	}
	if c.State.Redis.Prefix == "" {
		c.State.Redis.Prefix = "conductor:session:"
	}
	if c.Archive.Driver == "" {
		c.Archive.Driver = DriverSQLite
	}
	if c.Archive.DataDir == "" {
		c.Archive.DataDir = DefaultDataDir()
	}
	if c.Archive.Retention == 0 {
		c.Archive.Retention = 30 * 24 * time.Hour
	}
	if c.Janitor.Schedule == "" {
		c.Janitor.Schedule = "@daily"
	}
	if c.Tools.OutputDir == "" {
		c.Tools.OutputDir = filepath.Join(c.Archive.DataDir, "output")
	}
}

// Validate reports every configuration error found, joined.
func (c *Config) Validate() error {
	var errs []error

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format: must be json or console, got %q", c.Log.Format))
	}

	for pattern, r := range c.Providers.Routes {
		if r.API != "" && r.API != router.APIOpenAI && r.API != router.APIAnthropic {
			errs = append(errs, fmt.Errorf("providers.routes[%s].api: unknown api %q", pattern, r.API))
		}
	}
	for name, rl := range c.Providers.RateLimits {
		if rl.RPS > 0 && rl.Burst < 0 {
			errs = append(errs, fmt.Errorf("providers.rate_limits[%s].burst: must not be negative", name))
		}
	}

	seen := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		switch {
		case a.ID == "":
			errs = append(errs, fmt.Errorf("agents[%d].id: required", i))
		case seen[a.ID]:
			errs = append(errs, fmt.Errorf("agents[%d].id: duplicate %q", i, a.ID))
		}
		seen[a.ID] = true
	}
	for i, cp := range c.Capabilities {
		if cp.ID == "" {
			errs = append(errs, fmt.Errorf("capabilities[%d].id: required", i))
		}
	}

	switch c.State.Backend {
	case BackendMemory:
		if c.State.Capacity < 0 {
			errs = append(errs, errors.New("state.capacity: must not be negative"))
		}
	case BackendRedis:
		if c.State.Redis.Addr == "" {
			errs = append(errs, errors.New("state.redis.addr: required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("state.backend: unknown backend %q", c.State.Backend))
	}

	if c.Archive.Enabled {
		switch c.Archive.Driver {
		case DriverSQLite:
		case DriverPostgres:
			if c.Archive.DSN == "" {
				errs = append(errs, errors.New("archive.dsn: required for the postgres driver"))
			}
		default:
			errs = append(errs, fmt.Errorf("archive.driver: unknown driver %q", c.Archive.Driver))
		}
	}
	if c.Janitor.Enabled {
		if !c.Archive.Enabled {
			errs = append(errs, errors.New("janitor: requires archive.enabled"))
		}
		if _, err := cron.ParseStandard(c.Janitor.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("janitor.schedule: %w", err))
		}
	}
	return errors.Join(errs...)
}

// KeyLookup resolves an API key variable name, preferring providers.keys
// over the process environment.
func (c *Config) KeyLookup() func(string) string {
	keys := c.Providers.Keys
	return func(name string) string {
		if v, ok := keys[name]; ok && v != "" && !envPattern.MatchString(v) {
			return v
		}
		return os.Getenv(name)
	}
}
