package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the vecshard middleware configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Search    SearchConfig    `yaml:"search"`
	Meta      MetaConfig      `yaml:"meta"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig holds the API and metrics listener settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`         // SERVER_PORT
	MetricsPort     int `yaml:"metrics_port"` // METRICS_PORT
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ClusterConfig holds the downstream engine topology.
type ClusterConfig struct {
	// WOServer is the tcp address of the writable engine node (WOSERVER).
	WOServer string `yaml:"woserver"`
	// Discovery selects how read shards are found: static or file.
	Discovery string `yaml:"discovery"`
	// StaticHosts is the comma-separated read-shard list (SD_STATIC_HOSTS).
	StaticHosts string `yaml:"static_hosts"`
	// HostsFile is the watched hosts file for the file provider.
	HostsFile string `yaml:"hosts_file"`

	DialTimeoutSec      int  `yaml:"dial_timeout_sec"`
	RequestTimeoutSec   int  `yaml:"request_timeout_sec"`
	ReadinessTimeoutSec int  `yaml:"readiness_timeout_sec"`
	HealthIntervalSec   int  `yaml:"health_interval_sec"`
	UseTLS              bool `yaml:"use_tls"`
}

// SearchConfig bounds the scatter-gather search path.
type SearchConfig struct {
	MaxTopK   int `yaml:"max_topk"`
	DefaultEF int `yaml:"default_ef"`
	MaxEF     int `yaml:"max_ef"`
	// MaxFanout caps concurrent per-shard requests for one search.
	MaxFanout    int `yaml:"max_fanout"`
	MaxBatchSize int `yaml:"max_batch_size"`
}

// MetaConfig holds the placement store settings.
type MetaConfig struct {
	// PlacementDB is the sqlite placement database on the shared volume.
	// Empty disables placement routing; searches broadcast to all shards.
	PlacementDB string `yaml:"placement_db"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"`
}

// EmbeddingConfig holds the optional text-query vectorizer.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // empty disables text queries
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// TracingConfig binds the TRACING_* environment contract.
type TracingConfig struct {
	Type          string  `yaml:"type"` // jaeger, otlp, none (TRACING_TYPE)
	ReportingHost string  `yaml:"reporting_host"`
	ReportingPort int     `yaml:"reporting_port"`
	Protocol      string  `yaml:"protocol"` // grpc (default), http/protobuf
	SampleRate    float64 `yaml:"sample_rate"`
	Insecure      bool    `yaml:"insecure"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return t.Type != "" && t.Type != "none"
}

// Endpoint returns the collector address in host:port form.
func (t TracingConfig) Endpoint() string {
	return fmt.Sprintf("%s:%d", t.ReportingHost, t.ReportingPort)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes config bytes after ${VAR} substitution, applies defaults
// and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 19531
	}
	if c.HTTP.MetricsPort <= 0 {
		c.HTTP.MetricsPort = 19532
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Cluster.Discovery == "" {
		c.Cluster.Discovery = "static"
	}
	if c.Cluster.DialTimeoutSec <= 0 {
		c.Cluster.DialTimeoutSec = 5
	}
	if c.Cluster.RequestTimeoutSec <= 0 {
		c.Cluster.RequestTimeoutSec = 30
	}
	if c.Cluster.ReadinessTimeoutSec <= 0 {
		c.Cluster.ReadinessTimeoutSec = 60
	}
	if c.Cluster.HealthIntervalSec <= 0 {
		c.Cluster.HealthIntervalSec = 10
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 2048
	}
	if c.Search.MaxEF <= 0 {
		c.Search.MaxEF = 2048
	}
	if c.Search.MaxFanout <= 0 {
		c.Search.MaxFanout = 16
	}
	if c.Search.MaxBatchSize <= 0 {
		c.Search.MaxBatchSize = 1000
	}
	if c.Meta.CacheTTLSec <= 0 {
		c.Meta.CacheTTLSec = 30
	}
	if c.Tracing.Type == "" {
		c.Tracing.Type = "none"
	}
	if c.Tracing.Protocol == "" {
		c.Tracing.Protocol = "grpc"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if err := validPort("http.port", c.HTTP.Port); err != nil {
		return err
	}
	if err := validPort("http.metrics_port", c.HTTP.MetricsPort); err != nil {
		return err
	}
	if c.HTTP.Port == c.HTTP.MetricsPort {
		return fmt.Errorf("http.port and http.metrics_port collide on %d", c.HTTP.Port)
	}
	if c.Cluster.WOServer == "" {
		return fmt.Errorf("cluster.woserver is required")
	}
	switch c.Cluster.Discovery {
	case "static", "file":
	default:
		return fmt.Errorf("cluster.discovery must be \"static\" or \"file\", got %q", c.Cluster.Discovery)
	}
	if c.Cluster.Discovery == "file" && c.Cluster.HostsFile == "" {
		return fmt.Errorf("cluster.hosts_file is required for file discovery")
	}
	switch c.Tracing.Type {
	case "none", "jaeger", "otlp":
	default:
		return fmt.Errorf("tracing.type must be \"jaeger\", \"otlp\" or \"none\", got %q", c.Tracing.Type)
	}
	if c.Tracing.Enabled() {
		if c.Tracing.ReportingHost == "" {
			return fmt.Errorf("tracing.reporting_host is required when tracing is enabled")
		}
		if err := validPort("tracing.reporting_port", c.Tracing.ReportingPort); err != nil {
			return err
		}
	}
	if c.Embedding.Provider != "" && c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required when embedding.provider is set")
	}
	return nil
}

// StaticHostList splits the SD_STATIC_HOSTS value into trimmed addresses.
func (c *ClusterConfig) StaticHostList() []string {
	if c.StaticHosts == "" {
		return nil
	}
	parts := strings.Split(c.StaticHosts, ",")
	hosts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			hosts = append(hosts, p)
		}
	}
	return hosts
}

func validPort(field string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", field, port)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
