package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Data sources for list views.
const (
	SourceAPI    = "api"
	SourceMirror = "mirror"
)

// EnvConfigPath names the variable holding the optional YAML config path.
const EnvConfigPath = "DASHBOARD_CONFIG"

// Config holds the gateway configuration. Values come from defaults, then
// an optional YAML file, then environment variables.
type Config struct {
	Env      string `yaml:"env"`
	HTTPPort string `yaml:"http_port"`

	UpstreamURL     string        `yaml:"upstream_url"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	ServiceToken    string        `yaml:"service_token"`
	JWTSecret       string        `yaml:"jwt_secret"`

	Source      string `yaml:"source"`
	DatabaseURL string `yaml:"database_url"`

	MQ MQConfig `yaml:"mq"`

	Cache   CacheConfig   `yaml:"cache"`
	Refresh RefreshConfig `yaml:"refresh"`
}

// MQConfig configures RabbitMQ. An empty URL disables messaging.
type MQConfig struct {
	URL            string `yaml:"url"`
	TicketExchange string `yaml:"ticket_exchange"`
	ChangeExchange string `yaml:"change_exchange"`
	ChangeQueue    string `yaml:"change_queue"`
}

// CacheConfig bounds the response cache.
type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	MaxEntries    int           `yaml:"max_entries"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// RefreshConfig drives background refresh of views clients are watching.
type RefreshConfig struct {
	Interval         time.Duration `yaml:"interval"`
	VisibilityWindow time.Duration `yaml:"visibility_window"`
	Debounce         time.Duration `yaml:"debounce"`
}

// DevJWTSecret is the token secret of the development defaults. Any other
// environment must set its own.
const DevJWTSecret = "change-me"

// Default returns the configuration for local development.
func Default() Config {
	return Config{
		Env:             "dev",
		HTTPPort:        ":8080",
		UpstreamURL:     "http://localhost:3000/api",
		UpstreamTimeout: 30 * time.Second,
		JWTSecret:       DevJWTSecret,
		Source:          SourceAPI,
		DatabaseURL:     "postgres://itam:itam@db:5432/itam?sslmode=disable",
		MQ: MQConfig{
			TicketExchange: "itam.dashboard",
			ChangeExchange: "itam.changes",
			ChangeQueue:    "itam.dashboard.invalidate",
		},
		Cache: CacheConfig{
			TTL:           5 * time.Minute,
			MaxEntries:    200,
			SweepInterval: 5 * time.Minute,
		},
		Refresh: RefreshConfig{
			Interval:         30 * time.Second,
			VisibilityWindow: 2 * time.Minute,
			Debounce:         300 * time.Millisecond,
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// DASHBOARD_CONFIG is consulted; when both are empty no file is read.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	return errors.Wrapf(yaml.Unmarshal(data, c), "parse %s", path)
}

func (c *Config) applyEnv() {
	c.Env = getEnv("APP_ENV", c.Env)
	c.HTTPPort = getEnv("API_HTTP_PORT", c.HTTPPort)
	c.UpstreamURL = getEnv("ITAM_API_URL", c.UpstreamURL)
	c.UpstreamTimeout = getDuration("ITAM_API_TIMEOUT", c.UpstreamTimeout)
	c.ServiceToken = getEnv("ITAM_SERVICE_TOKEN", c.ServiceToken)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.Source = getEnv("DASHBOARD_SOURCE", c.Source)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.MQ.URL = getEnv("RABBITMQ_URL", c.MQ.URL)
	c.MQ.TicketExchange = getEnv("RABBITMQ_TICKET_EXCHANGE", c.MQ.TicketExchange)
	c.MQ.ChangeExchange = getEnv("RABBITMQ_CHANGE_EXCHANGE", c.MQ.ChangeExchange)
	c.MQ.ChangeQueue = getEnv("RABBITMQ_CHANGE_QUEUE", c.MQ.ChangeQueue)
	c.Cache.TTL = getDuration("CACHE_TTL", c.Cache.TTL)
	c.Cache.MaxEntries = MustGetInt("CACHE_MAX_ENTRIES", c.Cache.MaxEntries)
	c.Cache.SweepInterval = getDuration("CACHE_SWEEP_INTERVAL", c.Cache.SweepInterval)
	c.Refresh.Interval = getDuration("REFRESH_INTERVAL", c.Refresh.Interval)
	c.Refresh.VisibilityWindow = getDuration("REFRESH_VISIBILITY_WINDOW", c.Refresh.VisibilityWindow)
	c.Refresh.Debounce = getDuration("INVALIDATE_DEBOUNCE", c.Refresh.Debounce)
}

// Validate rejects configurations the gateway cannot start with.
func (c Config) Validate() error {
	switch c.Source {
	case SourceAPI:
	case SourceMirror:
		if c.DatabaseURL == "" {
			return errors.New("config: source mirror requires database_url")
		}
	default:
		return errors.Errorf("config: unknown source %q", c.Source)
	}
	if c.UpstreamURL == "" {
		return errors.New("config: upstream_url is required")
	}
	if c.JWTSecret == "" {
		return errors.New("config: jwt_secret is required")
	}
	if c.Env != "dev" && c.JWTSecret == DevJWTSecret {
		return errors.Errorf("config: jwt_secret must be set outside dev (env %q)", c.Env)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Str("value", v).Dur("default", fallback).Msg("invalid duration, using default")
		return fallback
	}
	return d
}

// MustGetInt reads an environment variable and converts it to int with default fallback.
func MustGetInt(key string, fallback int) int {
	val := getEnv(key, "")
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Str("value", val).Msg("invalid int, using default")
		return fallback
	}
	return i
}
