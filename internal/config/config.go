// Package config loads courtsync configuration.
//
// Values are layered: .env and .env.local seed the process environment, the
// environment overrides an optional YAML file, and anything still unset falls
// back to the defaults below. Keys use dots for nesting and dashes within a
// name; the matching environment variable upper-cases the key and replaces
// both with underscores, so oauth.client-id is read from OAUTH_CLIENT_ID.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/courtsync/pkg/errors"
)

// DefaultFileName is the config file looked up in the working directory and
// $HOME/.config/courtsync when no explicit file is given.
const DefaultFileName = "courtsync"

// Lock backends.
const (
	LockMemory = "memory"
	LockRedis  = "redis"
)

// Config is the complete application configuration.
type Config struct {
	Register RegisterConfig `mapstructure:"register"`
	Prison   PrisonConfig   `mapstructure:"prison"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Sync     SyncConfig     `mapstructure:"sync"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	RefData  RefDataConfig  `mapstructure:"refdata"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Listener ListenerConfig `mapstructure:"listener"`
	Lock     LockConfig     `mapstructure:"lock"`
	Log      LogConfig      `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// RegisterConfig locates the court register.
type RegisterConfig struct {
	URL string `mapstructure:"url"`
}

// PrisonConfig locates the prison API.
type PrisonConfig struct {
	URL string `mapstructure:"url"`
}

// OAuthConfig holds the client-credentials used against both upstreams.
type OAuthConfig struct {
	URL          string `mapstructure:"url"`
	ClientID     string `mapstructure:"client-id"`
	ClientSecret string `mapstructure:"client-secret"`
}

// TokenURL is the client-credentials token endpoint.
func (c OAuthConfig) TokenURL() string {
	return strings.TrimRight(c.URL, "/") + "/oauth/token"
}

// SyncConfig controls a reconciliation pass.
type SyncConfig struct {
	ApplyChanges bool          `mapstructure:"apply-changes"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// HTTPConfig controls outbound requests.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// RefDataConfig controls the reference data cache.
type RefDataConfig struct {
	CacheTTL time.Duration `mapstructure:"cache-ttl"`
}

// ServerConfig controls the REST surface.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
}

// AuthConfig holds the inbound JWT verification keys. JWTPublicKey is PEM.
type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt-secret"`
	JWTPublicKey string `mapstructure:"jwt-public-key"`
	Issuer       string `mapstructure:"issuer"`
}

// ListenerConfig configures the event consumers.
type ListenerConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// KafkaConfig configures the Kafka consumer.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	Group   string   `mapstructure:"group"`
}

// LockConfig selects the per-court lock backend.
type LockConfig struct {
	Backend   string `mapstructure:"backend"`
	RedisAddr string `mapstructure:"redis-addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

var defaults = map[string]any{
	"register.url":           "",
	"prison.url":             "",
	"oauth.url":              "",
	"oauth.client-id":        "",
	"oauth.client-secret":    "",
	"sync.apply-changes":     false,
	"sync.timeout":           10 * time.Minute,
	"http.timeout":           30 * time.Second,
	"refdata.cache-ttl":      time.Hour,
	"server.host":            "0.0.0.0",
	"server.port":            8080,
	"server.read-timeout":    30 * time.Second,
	"server.write-timeout":   10 * time.Minute,
	"auth.jwt-secret":        "",
	"auth.jwt-public-key":    "",
	"auth.issuer":            "",
	"listener.kafka.brokers": []string{},
	"listener.kafka.topic":   "court-register-events",
	"listener.kafka.group":   "courtsync",
	"lock.backend":           LockMemory,
	"lock.redis-addr":        "localhost:6379",
	"log.level":              "info",
	"log.format":             "auto",
	"log.output":             "stderr",
}

// Load reads configuration. An empty file searches for courtsync.yaml and
// tolerates its absence; an explicit file must exist.
func Load(file string) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Every key needs a default for AutomaticEnv to reach Unmarshal.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/courtsync")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("file", "failed to read config", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError("file", "failed to decode config", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Listener.Kafka.Brokers = splitList(cfg.Listener.Kafka.Brokers)
	return &cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	for _, u := range []struct{ key, value string }{
		{"register.url", c.Register.URL},
		{"prison.url", c.Prison.URL},
		{"oauth.url", c.OAuth.URL},
	} {
		if err := validateURL(u.key, u.value); err != nil {
			return err
		}
	}
	if c.Sync.Timeout < 0 {
		return errors.NewConfigError("sync.timeout", "cannot be negative", nil)
	}
	if c.HTTP.Timeout <= 0 {
		return errors.NewConfigError("http.timeout", "must be positive", nil)
	}
	if !slices.Contains([]string{LockMemory, LockRedis}, c.Lock.Backend) {
		return errors.NewConfigError("lock.backend", fmt.Sprintf("unknown backend %q (want memory or redis)", c.Lock.Backend), nil)
	}
	if c.Lock.Backend == LockRedis && c.Lock.RedisAddr == "" {
		return errors.NewConfigError("lock.redis-addr", "required for the redis backend", nil)
	}
	return nil
}

// Addr is the server listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func validateURL(key, value string) error {
	if value == "" {
		return errors.NewConfigError(key, "cannot be empty", nil)
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.NewConfigError(key, fmt.Sprintf("invalid url %q", value), err)
	}
	return nil
}

// splitList flattens comma separated entries, which is how a list arrives
// from a single environment variable.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
