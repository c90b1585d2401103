package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmcleod/pinlock/crypto"
)

// Config holds all configuration for pinlock.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	KDF       KDFConfig       `mapstructure:"kdf"`
	Limiter   LimiterConfig   `mapstructure:"limiter"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Datastore DatastoreConfig `mapstructure:"datastore"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	TLS  struct {
		CertFile string `mapstructure:"cert_file"`
		KeyFile  string `mapstructure:"key_file"`
	} `mapstructure:"tls"`
}

// DefaultAddr listens on loopback only: once the PIN is unlocked, the state
// routes need nothing more than a CSRF token.
const DefaultAddr = "127.0.0.1:8443"

// Loopback reports whether Addr only accepts connections from this host.
func (s ServerConfig) Loopback() bool {
	host, _, err := net.SplitHostPort(s.Addr)
	if err != nil || host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// StoreConfig selects the local persistent store.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // bbolt, sqlite or memory
	Path   string `mapstructure:"path"`
}

// KDFConfig holds PIN key derivation settings.
type KDFConfig struct {
	Iterations int `mapstructure:"iterations"`
	// FixedSalt uses the application-wide salt instead of a per-install one.
	FixedSalt bool `mapstructure:"fixed_salt"`
}

// LimiterConfig holds PIN attempt throttling settings.
type LimiterConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	BaseLockout time.Duration `mapstructure:"base_lockout"`
	MaxLockout  time.Duration `mapstructure:"max_lockout"`
}

// IdentityConfig selects the remote identity provider.
type IdentityConfig struct {
	Driver string `mapstructure:"driver"` // gotrue or local
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
	// SeedEmail and SeedPassword create an account in the local driver at
	// startup.
	SeedEmail    string `mapstructure:"seed_email"`
	SeedPassword string `mapstructure:"seed_password"`
}

// DatastoreConfig holds the remote business-table store settings.
type DatastoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional file, PINLOCK_* environment
// variables and, when flags is non-nil, command-line flags whose names match
// config keys (e.g. "server.addr").
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("pinlock")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pinlock")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("PINLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "bbolt", "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	switch c.Identity.Driver {
	case "local":
	case "gotrue":
		if c.Identity.URL == "" {
			return errors.New("identity.url is required for the gotrue driver")
		}
	default:
		return fmt.Errorf("unsupported identity driver %q", c.Identity.Driver)
	}
	if c.KDF.Iterations < crypto.MinIterations {
		return fmt.Errorf("kdf.iterations must be at least %d", crypto.MinIterations)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("server.tls.cert_file", "")
	v.SetDefault("server.tls.key_file", "")

	v.SetDefault("store.driver", "bbolt")
	v.SetDefault("store.path", "./data/pinlock.db")

	v.SetDefault("kdf.iterations", 210_000)
	v.SetDefault("kdf.fixed_salt", false)

	v.SetDefault("limiter.max_failures", 5)
	v.SetDefault("limiter.base_lockout", "30s")
	v.SetDefault("limiter.max_lockout", "15m")

	v.SetDefault("identity.driver", "local")
	v.SetDefault("identity.url", "")
	v.SetDefault("identity.api_key", "")
	v.SetDefault("identity.seed_email", "")
	v.SetDefault("identity.seed_password", "")

	v.SetDefault("datastore.dsn", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
