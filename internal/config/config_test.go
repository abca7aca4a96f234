package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/venke07/conductor/internal/capability"
	"github.com/venke07/conductor/internal/router"
)

const testYAML = `
server:
  addr: "127.0.0.1:9090"
  read_timeout: 15s

log:
  level: debug
  format: console

providers:
  routes:
    "gpt-*":
      provider: openai
      api: openai-completions
      api_key_env: OPENAI_API_KEY
      base_url: "${OPENAI_BASE_URL}"
    local-llama:
      provider: ollama
      base_url: "http://localhost:11434/v1/"
  keys:
    OPENAI_API_KEY: "${CONDUCTOR_OPENAI_KEY}"
  rate_limits:
    openai:
      rps: 2
      burst: 4
  max_retries: 2

capabilities:
  - id: legal
    name: Legal Review
    keywords: [contract, clause]

agents:
  - id: lawyer
    name: Contract Lawyer
    model: gpt-4o
    capabilities: [legal]
    dependencies: [researcher]
    max_tokens: 1500
    temperature: 0

tools:
  enabled: true
  output_dir: "${CONDUCTOR_OUT}"
  enable_code: true
  code_timeout: 2s
  rules:
    - Never delete files you did not create.

state:
  backend: redis
  ttl: 30m
  redis:
    addr: "${REDIS_ADDR}"
    db: 2

archive:
  enabled: true
  driver: postgres
  dsn: "${DATABASE_URL}"
  retention: 168h

janitor:
  enabled: true
  schedule: "0 3 * * *"
`

func TestParseConfig(t *testing.T) {
	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != "127.0.0.1:9090" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("server.read_timeout = %v, want 15s", cfg.Server.ReadTimeout)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if len(cfg.Providers.Routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(cfg.Providers.Routes))
	}
	if rl := cfg.Providers.RateLimits["openai"]; rl.RPS != 2 || rl.Burst != 4 {
		t.Errorf("rate limit = %+v", rl)
	}
	if cfg.Providers.MaxRetries != 2 {
		t.Errorf("max_retries = %d", cfg.Providers.MaxRetries)
	}
}

func TestParseAgentsAndCapabilities(t *testing.T) {
	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Capabilities) != 1 || cfg.Capabilities[0].ID != "legal" {
		t.Fatalf("capabilities = %+v", cfg.Capabilities)
	}
	if len(cfg.Capabilities[0].Keywords) != 2 {
		t.Errorf("keywords = %v", cfg.Capabilities[0].Keywords)
	}
	if len(cfg.Agents) != 1 {
		t.Fatalf("agents = %d, want 1", len(cfg.Agents))
	}
	a := cfg.Agents[0]
	if a.ID != "lawyer" || a.Model != "gpt-4o" || a.MaxTokens != 1500 {
		t.Errorf("agent = %+v", a)
	}
	if len(a.Dependencies) != 1 || a.Dependencies[0] != "researcher" {
		t.Errorf("dependencies = %v", a.Dependencies)
	}
	if a.Temperature == nil || *a.Temperature != 0 {
		t.Errorf("temperature = %v, want an explicit 0", a.Temperature)
	}
}

func TestParseToolsStateArchive(t *testing.T) {
	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Tools.Enabled || !cfg.Tools.EnableCode || cfg.Tools.CodeTimeout != 2*time.Second {
		t.Errorf("tools = %+v", cfg.Tools)
	}
	if len(cfg.Tools.Rules) != 1 {
		t.Errorf("tool rules = %v", cfg.Tools.Rules)
	}
	if cfg.State.Backend != BackendRedis || cfg.State.TTL != 30*time.Minute || cfg.State.Redis.DB != 2 {
		t.Errorf("state = %+v", cfg.State)
	}
	if cfg.Archive.Driver != DriverPostgres || cfg.Archive.Retention != 168*time.Hour {
		t.Errorf("archive = %+v", cfg.Archive)
	}
	if cfg.Janitor.Schedule != "0 3 * * *" {
		t.Errorf("janitor.schedule = %q", cfg.Janitor.Schedule)
	}
}

func TestEnvSubstitution(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "https://proxy.example.com/v1/")
	t.Setenv("CONDUCTOR_OPENAI_KEY", "sk-test-123")
	t.Setenv("CONDUCTOR_OUT", "/srv/out")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("DATABASE_URL", "postgres://conductor@db/conductor")

	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatal(err)
	}

	if got := cfg.Providers.Routes["gpt-*"].BaseURL; got != "https://proxy.example.com/v1/" {
		t.Errorf("base_url = %q", got)
	}
	if got := cfg.Providers.Keys["OPENAI_API_KEY"]; got != "sk-test-123" {
		t.Errorf("key = %q", got)
	}
	if cfg.Tools.OutputDir != "/srv/out" {
		t.Errorf("output_dir = %q", cfg.Tools.OutputDir)
	}
	if cfg.State.Redis.Addr != "redis:6379" {
		t.Errorf("redis addr = %q", cfg.State.Redis.Addr)
	}
	if cfg.Archive.DSN != "postgres://conductor@db/conductor" {
		t.Errorf("dsn = %q", cfg.Archive.DSN)
	}
}

func TestEnvSubstitutionPreservesUnsetVars(t *testing.T) {
	//nolint:errcheck // test cleanup of env var
	os.Unsetenv("REDIS_ADDR")
	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.State.Redis.Addr != "${REDIS_ADDR}" {
		t.Errorf("unset env var should be preserved, got %q", cfg.State.Redis.Addr)
	}
}

func TestEnvSubstitutionLiteralURLs(t *testing.T) {
	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Providers.Routes["local-llama"].BaseURL; got != "http://localhost:11434/v1/" {
		t.Errorf("literal URL should not be modified, got %q", got)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("{{invalid yaml"))
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "hello")

	tests := []struct {
		input string
		want  string
	}{
		{"${TEST_VAR}", "hello"},
		{"prefix-${TEST_VAR}-suffix", "prefix-hello-suffix"},
		{"${NONEXISTENT}", "${NONEXISTENT}"},
		{"no vars here", "no vars here"},
		{"", ""},
	}
	for _, tt := range tests {
		got := expandEnv(tt.input)
		if got != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatal(err)
	}
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".conductor")

	if cfg.Server.Addr != ":8080" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.State.Backend != BackendMemory || cfg.State.Capacity != 1024 || cfg.State.TTL != time.Hour {
		t.Errorf("state = %+v", cfg.State)
	}
	if cfg.Archive.Driver != DriverSQLite || cfg.Archive.DataDir != dataDir {
		t.Errorf("archive = %+v", cfg.Archive)
	}
	if cfg.Tools.OutputDir != filepath.Join(dataDir, "output") {
		t.Errorf("output_dir = %q", cfg.Tools.OutputDir)
	}
	if cfg.Janitor.Schedule != "@daily" {
		t.Errorf("janitor.schedule = %q", cfg.Janitor.Schedule)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	if err := os.WriteFile(path, []byte(testYAML), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Agents) != 1 {
		t.Errorf("expected 1 agent, got %d", len(cfg.Agents))
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad api", func(c *Config) {
			c.Providers.Routes = map[string]router.Route{"x": {API: "grpc"}}
		}, "unknown api"},
		{"agent without id", func(c *Config) { c.Agents = []capability.Agent{{Name: "n"}} }, "agents[0].id"},
		{"duplicate agent", func(c *Config) {
			c.Agents = []capability.Agent{{ID: "a"}, {ID: "a"}}
		}, "duplicate"},
		{"unknown backend", func(c *Config) { c.State.Backend = "etcd" }, "state.backend"},
		{"redis without addr", func(c *Config) { c.State.Backend = BackendRedis }, "state.redis.addr"},
		{"postgres without dsn", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Driver = DriverPostgres
		}, "archive.dsn"},
		{"janitor without archive", func(c *Config) { c.Janitor.Enabled = true }, "requires archive"},
		{"bad schedule", func(c *Config) {
			c.Archive.Enabled = true
			c.Janitor.Enabled = true
			c.Janitor.Schedule = "every tuesday"
		}, "janitor.schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestKeyLookup(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-env")
	cfg := Default()
	cfg.Providers.Keys = map[string]string{
		"OPENAI_API_KEY":    "from-config",
		"ANTHROPIC_API_KEY": "${UNSET_KEY_VAR}",
	}
	lookup := cfg.KeyLookup()

	if got := lookup("OPENAI_API_KEY"); got != "from-config" {
		t.Errorf("OPENAI_API_KEY = %q, want from-config", got)
	}
	if got := lookup("ANTHROPIC_API_KEY"); got != "anthropic-env" {
		t.Errorf("unexpanded config key should fall back to env, got %q", got)
	}
}
