package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/appbaseio/world-search/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const logTag = "[config]"

// Backfill delivery modes.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Dispatchers usable in async mode.
const (
	DispatcherPool = "pool"
	DispatcherNATS = "nats"
)

// Backfill failure policies.
const (
	PolicyBestEffort = "best-effort"
	PolicyFailFast   = "fail-fast"
)

// Config holds the application configuration.
type Config struct {
	Elastic  ElasticConfig  `yaml:"elastic"`
	Index    IndexConfig    `yaml:"index"`
	Database DatabaseConfig `yaml:"database"`
	Backfill BackfillConfig `yaml:"backfill"`
	NATS     NATSConfig     `yaml:"nats"`
	Server   ServerConfig   `yaml:"server"`
}

// ElasticConfig describes how to reach the search engine.
type ElasticConfig struct {
	// URL takes precedence over Host/Port/Scheme when set.
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Scheme   string `yaml:"scheme"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Sniff    bool   `yaml:"sniff"`
	// MinVersion is the oldest engine version the typeless index API is used against.
	MinVersion string `yaml:"min_version"`
}

// IndexConfig names the concrete indices and their aliases.
type IndexConfig struct {
	Prefix string `yaml:"prefix"`
}

// WriteAlias is the alias documents are shipped through.
func (c IndexConfig) WriteAlias() string {
	return c.Prefix + "_write"
}

// ReadAlias is the alias queries are served from.
func (c IndexConfig) ReadAlias() string {
	return c.Prefix + "_read"
}

// DatabaseConfig is the relational source of truth.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// BackfillConfig controls how records are streamed and shipped.
type BackfillConfig struct {
	BatchSize    int           `yaml:"batch_size"`
	Mode         string        `yaml:"mode"`
	Dispatcher   string        `yaml:"dispatcher"`
	Workers      int           `yaml:"workers"`
	Policy       string        `yaml:"policy"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// NATSConfig is used by the nats dispatcher and the worker command.
type NATSConfig struct {
	URL    string `yaml:"url"`
	Stream string `yaml:"stream"`
}

// ServerConfig is the operator HTTP API.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	// RateLimit caps the operations triggered per client, as <limit>-<S|M|H>.
	RateLimit string `yaml:"rate_limit"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Elastic: ElasticConfig{
			Host:       "localhost",
			Port:       9200,
			Scheme:     "https",
			MinVersion: "7.0.0",
		},
		Index: IndexConfig{
			Prefix: "world",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "world.db",
		},
		Backfill: BackfillConfig{
			BatchSize:    100,
			Mode:         ModeSync,
			Dispatcher:   DispatcherPool,
			Workers:      8,
			Policy:       PolicyBestEffort,
			DrainTimeout: 10 * time.Minute,
		},
		NATS: NATSConfig{
			URL:    "nats://127.0.0.1:4222",
			Stream: "WORLD_SHIP",
		},
		Server: ServerConfig{
			Address:   "0.0.0.0",
			Port:      8000,
			RateLimit: "10-M",
		},
	}
}

// Load builds the configuration in order: defaults -> yaml file -> env overrides -> validate.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Infoln(logTag, ": config file", path, "not found, using defaults")
			return nil
		}
		return fmt.Errorf("error reading config file %q: %v", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error parsing config file %q: %v", path, err)
	}
	return nil
}

// ApplyEnvOverrides overrides the loaded values with the ones present in the environment.
func (c *Config) ApplyEnvOverrides() {
	setString(&c.Elastic.URL, "ES_CLUSTER_URL")
	setString(&c.Elastic.Host, "ELASTIC_HOST")
	setInt(&c.Elastic.Port, "ELASTIC_PORT")
	setString(&c.Elastic.Scheme, "ELASTIC_SCHEME")
	setString(&c.Elastic.Username, "ELASTIC_USERNAME")
	setString(&c.Elastic.Password, "ELASTIC_PASSWORD")
	setBool(&c.Elastic.Sniff, "SET_SNIFFING")

	setString(&c.Index.Prefix, "INDEX_PREFIX")

	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.DSN, "DB_DSN")

	setInt(&c.Backfill.BatchSize, "BATCH_SIZE")
	setString(&c.Backfill.Mode, "BACKFILL_MODE")
	setString(&c.Backfill.Dispatcher, "DISPATCHER")
	setInt(&c.Backfill.Workers, "WORKERS")
	setString(&c.Backfill.Policy, "FAILURE_POLICY")
	setDuration(&c.Backfill.DrainTimeout, "DRAIN_TIMEOUT")

	setString(&c.NATS.URL, "NATS_URL")
	setString(&c.NATS.Stream, "NATS_STREAM")

	setString(&c.Server.Address, "ADDRESS")
	setInt(&c.Server.Port, "PORT")
	setString(&c.Server.RateLimit, "RATE_LIMIT")
}

// Validate checks that the configuration can be used to run the commands.
func (c *Config) Validate() error {
	if c.Elastic.URL == "" && c.Elastic.Host == "" {
		return errors.NewEnvVarNotSetError("ES_CLUSTER_URL")
	}
	if c.Index.Prefix == "" {
		return errors.NewEnvVarNotSetError("INDEX_PREFIX")
	}
	if strings.ContainsAny(c.Index.Prefix, `*\/?"<>| ,#:`) || strings.ToLower(c.Index.Prefix) != c.Index.Prefix {
		return fmt.Errorf("invalid index prefix %q, must be lowercase without special characters", c.Index.Prefix)
	}
	if c.Backfill.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Backfill.BatchSize)
	}
	switch c.Backfill.Mode {
	case ModeSync, ModeAsync:
	default:
		return fmt.Errorf("unknown backfill mode %q, expected %q or %q", c.Backfill.Mode, ModeSync, ModeAsync)
	}
	switch c.Backfill.Dispatcher {
	case DispatcherPool, DispatcherNATS:
	default:
		return fmt.Errorf("unknown dispatcher %q, expected %q or %q", c.Backfill.Dispatcher, DispatcherPool, DispatcherNATS)
	}
	switch c.Backfill.Policy {
	case PolicyBestEffort, PolicyFailFast:
	default:
		return fmt.Errorf("unknown failure policy %q, expected %q or %q", c.Backfill.Policy, PolicyBestEffort, PolicyFailFast)
	}
	if c.Backfill.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Backfill.Workers)
	}
	return nil
}

// ElasticURL returns the url the engine is reached at.
func (c *Config) ElasticURL() string {
	if c.Elastic.URL != "" {
		return c.Elastic.URL
	}
	u := url.URL{
		Scheme: c.Elastic.Scheme,
		Host:   c.Elastic.Host,
	}
	if c.Elastic.Port != 0 {
		u.Host = fmt.Sprintf("%s:%d", c.Elastic.Host, c.Elastic.Port)
	}
	return u.String()
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnln(logTag, ": ignoring", key, "=", v, ", must be an integer")
		return
	}
	*dst = n
}

func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warnln(logTag, ": ignoring", key, "=", v, ", must be a boolean")
		return
	}
	*dst = b
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warnln(logTag, ": ignoring", key, "=", v, ", must be a duration")
		return
	}
	*dst = d
}
