// Package config loads the gateway's process configuration once at startup.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported store backends
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = "8000"
	DefaultRedirectURL      = "https://github.com/pashutk/json-updates"
	DefaultSQLitePath       = "./data/json-updates.db"
	DefaultWriteTimeout     = 30 * time.Second
	DefaultMaxBodyBytes     = 16 << 20
	DefaultMaxDocumentBytes = 16 << 20
)

// Config holds validated process configuration
type Config struct {
	AccessToken       string
	CollectionsPrefix string

	Backend string

	MongoURI    string
	MongoDBName string

	SQLitePath string

	MemorySnapshotFile       string
	MemoryJournalDir         string
	MemoryCheckpointInterval time.Duration
	MemoryMaxDocumentBytes   int
	MemoryJournalSync        bool

	KafkaBrokers []string
	KafkaTopic   string

	Host         string
	Port         string
	RedirectURL  string
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// KafkaEnabled reports whether the change feed is configured
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

// Load reads envFile (if present) into the environment and builds a Config from it.
// An empty envFile means ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any environment lookup function
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		AccessToken:        get("ACCESS_TOKEN", ""),
		CollectionsPrefix:  get("MONGO_COLLECTIONS_PREFIX", ""),
		Backend:            strings.ToLower(get("STORE_BACKEND", BackendMongo)),
		MongoURI:           get("MONGO_URI", ""),
		MongoDBName:        get("MONGO_DB_NAME", ""),
		SQLitePath:         get("SQLITE_PATH", DefaultSQLitePath),
		MemorySnapshotFile: get("MEMORY_SNAPSHOT_FILE", ""),
		MemoryJournalDir:   get("MEMORY_JOURNAL_DIR", ""),
		KafkaTopic:         get("KAFKA_TOPIC", ""),
		Host:               get("HOST", DefaultHost),
		Port:               get("PORT", DefaultPort),
		RedirectURL:        get("REDIRECT_URL", DefaultRedirectURL),
	}

	if brokers := get("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.WriteTimeout, err = parseDuration("WRITE_TIMEOUT", get("WRITE_TIMEOUT", ""), DefaultWriteTimeout); err != nil {
		return nil, err
	}
	if cfg.MemoryCheckpointInterval, err = parseDuration("MEMORY_CHECKPOINT_INTERVAL", get("MEMORY_CHECKPOINT_INTERVAL", ""), 0); err != nil {
		return nil, err
	}
	maxBody, err := parseInt("MAX_BODY_BYTES", get("MAX_BODY_BYTES", ""), DefaultMaxBodyBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxBodyBytes = int64(maxBody)
	if cfg.MemoryJournalSync, err = parseBool("MEMORY_JOURNAL_SYNC", get("MEMORY_JOURNAL_SYNC", "")); err != nil {
		return nil, err
	}
	if cfg.MemoryMaxDocumentBytes, err = parseInt("MEMORY_MAX_DOCUMENT_BYTES", get("MEMORY_MAX_DOCUMENT_BYTES", ""), DefaultMaxDocumentBytes); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every required value is present and consistent
func (c *Config) Validate() error {
	var errs []error

	if c.AccessToken == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN is required"))
	}
	if c.CollectionsPrefix == "" {
		errs = append(errs, errors.New("MONGO_COLLECTIONS_PREFIX is required"))
	}

	switch c.Backend {
	case BackendMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required"))
		}
		if c.MongoDBName == "" {
			errs = append(errs, errors.New("MONGO_DB_NAME is required"))
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q (supported: mongo, sqlite, memory)", c.Backend))
	}

	if (len(c.KafkaBrokers) > 0) != (c.KafkaTopic != "") {
		errs = append(errs, errors.New("KAFKA_BROKERS and KAFKA_TOPIC must be set together"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT cannot be empty"))
	}
	if c.WriteTimeout < 0 {
		errs = append(errs, errors.New("WRITE_TIMEOUT cannot be negative"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	if c.MemoryMaxDocumentBytes <= 0 {
		errs = append(errs, errors.New("MEMORY_MAX_DOCUMENT_BYTES must be positive"))
	}

	return errors.Join(errs...)
}

func parseDuration(key, raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func parseInt(key, raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func parseBool(key, raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return b, nil
}
