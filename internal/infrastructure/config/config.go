package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Roofwatch Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
	Identity  IdentityConfig  `yaml:"identity"`
	CSRF      CSRFConfig      `yaml:"csrf"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// RedisConfig contains the connection settings for the shared counting store.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	DialTimeout int    `yaml:"dial_timeout"` // seconds
	PoolSize    int    `yaml:"pool_size"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	TrustProxy bool             `yaml:"trust_proxy"`
	TLS        TLSConfig        `yaml:"tls"`
	Timeouts   APITimeoutConfig `yaml:"timeouts"`
	CORS       CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Identity provider kinds.
const (
	IdentityProviderJWT    = "jwt"
	IdentityProviderRemote = "remote"
)

// IdentityConfig selects and configures the external identity provider.
type IdentityConfig struct {
	// Provider is "jwt" (locally verified HS256 tokens) or "remote"
	// (GoTrue-compatible HTTP endpoint).
	Provider string               `yaml:"provider"`
	JWT      JWTConfig            `yaml:"jwt"`
	Remote   RemoteIdentityConfig `yaml:"remote"`
}

// JWTConfig contains JWT verification settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// RemoteIdentityConfig contains settings for a remote identity provider.
type RemoteIdentityConfig struct {
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
	Timeout int    `yaml:"timeout"` // seconds
}

// CSRFConfig contains double-submit token settings.
type CSRFConfig struct {
	CookieName   string `yaml:"cookie_name"`
	HeaderName   string `yaml:"header_name"`
	SecureCookie bool   `yaml:"secure_cookie"`
	MaxAge       int    `yaml:"max_age"` // seconds
}

// Rate limit backends.
const (
	RateLimitBackendRedis  = "redis"
	RateLimitBackendMemory = "memory"
)

// RateLimitConfig contains rate limiting settings.
type RateLimitConfig struct {
	Enabled   bool         `yaml:"enabled"`
	Backend   string       `yaml:"backend"`
	FailOpen  bool         `yaml:"fail_open"`
	KeyPrefix string       `yaml:"key_prefix"`
	Auth      PolicyConfig `yaml:"auth"`
	Mutation  PolicyConfig `yaml:"mutation"`
}

// PolicyConfig is a single fixed-window policy.
type PolicyConfig struct {
	Limit  int `yaml:"limit"`
	Window int `yaml:"window"` // seconds
}

// MQTTConfig contains settings for the broker that carries portal events
// to the notification fan-out.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"` // seconds
	MaxDelay     int `yaml:"max_delay"`     // seconds
}

// InfluxDBConfig contains settings for admission telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// WindowDuration returns the policy window as a Duration.
func (p PolicyConfig) WindowDuration() time.Duration {
	return time.Duration(p.Window) * time.Second
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ROOFWATCH_SECTION_KEY
// For example: ROOFWATCH_DATABASE_PATH, ROOFWATCH_REDIS_ADDR
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/roofwatch.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			DialTimeout: 5,
			PoolSize:    10,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Identity: IdentityConfig{
			Provider: IdentityProviderJWT,
			Remote: RemoteIdentityConfig{
				Timeout: 5,
			},
		},
		CSRF: CSRFConfig{
			CookieName:   "csrf_token",
			HeaderName:   "X-CSRF-Token",
			SecureCookie: true,
			MaxAge:       86400,
		},
		RateLimit: RateLimitConfig{
			Enabled:   true,
			Backend:   RateLimitBackendRedis,
			KeyPrefix: "rl:",
			Auth: PolicyConfig{
				Limit:  5,
				Window: 900,
			},
			Mutation: PolicyConfig{
				Limit:  100,
				Window: 60,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "roofwatch-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "roofwatch",
			Bucket:        "admission",
			BatchSize:     100,
			FlushInterval: 10,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROOFWATCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ROOFWATCH_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Redis
	if v := os.Getenv("ROOFWATCH_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("ROOFWATCH_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	// Identity provider secrets never belong in the YAML file in production.
	if v := os.Getenv("ROOFWATCH_JWT_SECRET"); v != "" {
		cfg.Identity.JWT.Secret = v
	}
	if v := os.Getenv("ROOFWATCH_IDENTITY_URL"); v != "" {
		cfg.Identity.Remote.URL = v
	}
	if v := os.Getenv("ROOFWATCH_IDENTITY_API_KEY"); v != "" {
		cfg.Identity.Remote.APIKey = v
	}

	if v := os.Getenv("ROOFWATCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("ROOFWATCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors and security issues.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	const minJWTSecretLength = 32
	switch c.Identity.Provider {
	case IdentityProviderJWT:
		if c.Identity.JWT.Secret == "" {
			errs = append(errs, "identity.jwt.secret is required (set ROOFWATCH_JWT_SECRET environment variable)")
		} else if len(c.Identity.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "identity.jwt.secret must be at least 32 characters")
		}
	case IdentityProviderRemote:
		if c.Identity.Remote.URL == "" {
			errs = append(errs, "identity.remote.url is required (set ROOFWATCH_IDENTITY_URL environment variable)")
		}
	default:
		errs = append(errs, fmt.Sprintf("identity.provider must be %q or %q", IdentityProviderJWT, IdentityProviderRemote))
	}

	if c.CSRF.CookieName == "" {
		errs = append(errs, "csrf.cookie_name is required")
	}
	if c.CSRF.HeaderName == "" {
		errs = append(errs, "csrf.header_name is required")
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case RateLimitBackendRedis:
			if c.Redis.Addr == "" {
				errs = append(errs, "redis.addr is required for the redis rate limit backend")
			}
		case RateLimitBackendMemory:
		default:
			errs = append(errs, fmt.Sprintf("rate_limit.backend must be %q or %q", RateLimitBackendRedis, RateLimitBackendMemory))
		}
		errs = append(errs, validatePolicy("rate_limit.auth", c.RateLimit.Auth)...)
		errs = append(errs, validatePolicy("rate_limit.mutation", c.RateLimit.Mutation)...)
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validatePolicy(name string, p PolicyConfig) []string {
	var errs []string
	if p.Limit < 1 {
		errs = append(errs, name+".limit must be at least 1")
	}
	if p.Window < 1 {
		errs = append(errs, name+".window must be at least 1 second")
	}
	return errs
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
