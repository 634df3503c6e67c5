// Package config loads layered service configuration with koanf.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks variables that override any config key, e.g.
// APP_SERVER_READ_TIMEOUT sets server.read_timeout.
const EnvPrefix = "APP_"

// Config is the whole service configuration. Keys nest as in the YAML files.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Auth      AuthConfig      `koanf:"auth"`
	Client    ClientConfig    `koanf:"client"    validate:"required"`
	Services  ServicesConfig  `koanf:"services"  validate:"required"`
	Database  DatabaseConfig  `koanf:"database"  validate:"required"`
	Cache     CacheConfig     `koanf:"cache"`
	CORS      CORSConfig      `koanf:"cors"`
	Backend   BackendConfig   `koanf:"backend"`
}

// AppConfig identifies the running service.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig tunes the HTTP listener.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig selects the log level and console format.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig adds a rotated JSON file next to the console output.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"       validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"   validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"    validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig controls OTLP export.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
	Insecure     bool    `koanf:"insecure"`
}

// AuthConfig controls the admin guard. Identity arrives in headers set by the
// gateway in front of the service; the service never sees raw tokens.
type AuthConfig struct {
	Enabled       bool   `koanf:"enabled"`
	RolesHeader   string `koanf:"roles_header"   validate:"required_if=Enabled true"`
	SubjectHeader string `koanf:"subject_header"`
}

// ClientConfig is shared by every outbound HTTP client.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
}

// RetryConfig shapes exponential backoff between attempts.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig trips a client after repeated upstream failures.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig sizes the idle connection pool.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"         validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"      validate:"required,min=1s"`
}

// ServicesConfig lists the upstreams.
type ServicesConfig struct {
	// Quote feeds the admin import endpoint.
	Quote ServiceEndpointConfig `koanf:"quote" validate:"required"`
}

// ServiceEndpointConfig locates one upstream.
type ServiceEndpointConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	Name    string `koanf:"name"     validate:"required"`
}

// DatabaseConfig configures the pgx pool. Migrate runs pending migrations at
// startup.
type DatabaseConfig struct {
	URL             string        `koanf:"url"                validate:"required"`
	MaxConns        int32         `koanf:"max_conns"          validate:"required,min=1,max=200"`
	MinConns        int32         `koanf:"min_conns"          validate:"min=0,ltefield=MaxConns"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"  validate:"required,min=1s"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time" validate:"required,min=1s"`
	MigrateOnStart  bool          `koanf:"migrate"`
}

// CacheConfig configures the Redis ranking cache.
type CacheConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr"     validate:"required_if=Enabled true"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"       validate:"min=0,max=15"`
	TTL      time.Duration `koanf:"ttl"      validate:"required_if=Enabled true"`
}

// CORSConfig controls the cross-origin policy applied to every route.
type CORSConfig struct {
	// Origins lists allowed origins. "*" or an empty list allows any origin.
	Origins          []string `koanf:"origins"`
	AllowCredentials bool     `koanf:"allow_credentials"`
}

// BackendConfig controls the diagnostic backend marker header.
type BackendConfig struct {
	// Header is the X-Backend value. Empty disables the header.
	Header string `koanf:"header"`
}

// defaultsYAML is the lowest configuration layer. APP_ variables can only set
// keys that exist here or in a loaded file.
//
//go:embed defaults.yaml
var defaultsYAML []byte

// rawYAML hands in-memory bytes to koanf's yaml parser.
type rawYAML []byte

func (r rawYAML) ReadBytes() ([]byte, error) { return r, nil }

func (rawYAML) Read() (map[string]any, error) {
	return nil, errors.New("config: raw bytes need a parser")
}

// legacyEnv maps the unprefixed variables used by existing deployments
// onto config keys. APP_ variables still take precedence.
var legacyEnv = map[string]string{
	"DATABASE_URL": "database.url",
	"REDIS_ADDR":   "cache.addr",
	"PORT":         "server.port",
	"CORS_ORIGIN":  "cors.origins",
}

// Load reads configs/base.yaml and configs/{profile}.yaml relative to the
// working directory. See LoadDir.
func Load(profile string) (*Config, error) {
	return LoadDir("configs", profile)
}

// LoadDir layers, lowest to highest precedence: built-in defaults, dir/base.yaml,
// dir/{profile}.yaml, legacy variables, then APP_ variables. Missing files are
// skipped.
func LoadDir(dir, profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawYAML(defaultsYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	files := []string{filepath.Join(dir, "base.yaml")}
	if profile != "" {
		// The profile names the environment unless a file or variable says otherwise.
		if err := k.Load(confmap.Provider(map[string]any{"app.environment": profile}, "."), nil); err != nil {
			return nil, fmt.Errorf("loading profile: %w", err)
		}

		files = append(files, filepath.Join(dir, profile+".yaml"))
	}

	for _, path := range files {
		if err := loadFileIfExists(k, path); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	if err := k.Load(envLayer(k, "", func(name string) string { return legacyEnv[name] }), nil); err != nil {
		return nil, fmt.Errorf("loading legacy env vars: %w", err)
	}

	known := make(map[string]string)
	for _, key := range k.Keys() {
		known[EnvPrefix+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = key
	}

	if err := k.Load(envLayer(k, EnvPrefix, func(name string) string { return known[name] }), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// envLayer maps variables under prefix onto config keys through resolve.
// Unknown names and empty values are ignored. List keys take a
// comma-separated value.
func envLayer(k *koanf.Koanf, prefix string, resolve func(name string) string) *env.Env {
	return env.ProviderWithValue(prefix, ".", func(name, value string) (string, any) {
		key := resolve(name)
		if key == "" || value == "" {
			return "", nil
		}

		switch k.Get(key).(type) {
		case []string, []any:
			return key, strings.Split(value, ",")
		default:
			return key, value
		}
	})
}

func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
