// Package config handles configuration loading for the bank file processor.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax). This allows secrets such as the
// registry API key and Slack webhooks to be injected at runtime.
//
// # Configuration Sections
//
//   - stage: deployment name shown in notifications (dev, prod)
//   - registry: downstream registry endpoint and credentials
//   - slack: incoming webhooks for error logs and bank info messages
//   - storage: where bank files are read from (filesystem or MongoDB GridFS)
//   - ledger: time zone of dates in transaction ledgers
//   - server: HTTP server settings
//   - watch: background polling of the file store
//   - logging: log level and format
//
// # Example Configuration
//
//	stage: prod
//
//	registry:
//	  endpoint: https://api.example.com
//	  apiKeyB64: ${API_KEY_B64}
//
//	slack:
//	  logsWebhook: ${SLACK_WEBHOOK_LOGS}
//	  infoWebhook: ${SLACK_WEBHOOK_INFO}
//
//	storage:
//	  type: mongodb
//	  mongodb:
//	    uri: ${MONGODB_URI}
//	    database: pankkilinkki
//
// See [Load] for loading configuration from a file.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage types
const (
	StorageFilesystem = "filesystem"
	StorageMongoDB    = "mongodb"
)

// Config is the root configuration structure
type Config struct {
	Stage    string         `yaml:"stage"`
	Registry RegistryConfig `yaml:"registry"`
	Slack    SlackConfig    `yaml:"slack"`
	Storage  StorageConfig  `yaml:"storage"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Server   ServerConfig   `yaml:"server"`
	Watch    WatchConfig    `yaml:"watch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RegistryConfig holds the registry API settings
type RegistryConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
	// APIKeyB64 is used when APIKey is empty
	APIKeyB64     string        `yaml:"apiKeyB64"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"maxRetries"`
	RetryInterval time.Duration `yaml:"retryInterval"`
}

// SlackConfig holds Slack incoming webhook settings
type SlackConfig struct {
	LogsWebhook string `yaml:"logsWebhook"`
	InfoWebhook string `yaml:"infoWebhook"`
	// RequestsPerSecond limits webhook calls
	RequestsPerSecond float64 `yaml:"rps"`
}

// StorageConfig holds bank file storage settings
type StorageConfig struct {
	Type string `yaml:"type"`
	// Dir is the root directory of the filesystem store
	Dir     string        `yaml:"dir"`
	MongoDB MongoDBConfig `yaml:"mongodb"`
	// DuplicateWindow is how long processed content is remembered
	DuplicateWindow time.Duration `yaml:"duplicateWindow"`
}

// MongoDBConfig holds MongoDB connection settings
type MongoDBConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	GridFS     struct {
		BucketName string `yaml:"bucketName"`
	} `yaml:"gridfs"`
}

// LedgerConfig holds ledger decoding settings
type LedgerConfig struct {
	Timezone string `yaml:"timezone"`
}

// Location returns the configured ledger time zone
func (c LedgerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPath string `yaml:"metricsPath"`
	// MaxUploadBytes limits request bodies
	MaxUploadBytes int64 `yaml:"maxUploadBytes"`
	// APIKey protects file and result endpoints when set
	APIKey string `yaml:"apiKey"`
}

// WatchConfig holds background polling settings
type WatchConfig struct {
	// Interval of polls; zero disables watching in the server
	Interval    time.Duration `yaml:"interval"`
	Prefix      string        `yaml:"prefix"`
	BatchSize   int           `yaml:"batchSize"`
	MaxAttempts int           `yaml:"maxAttempts"`
	// SkipExisting ignores files present at startup
	SkipExisting bool `yaml:"skipExisting"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse reads configuration from YAML data
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return finish(&cfg)
}

// FromEnv builds configuration from the environment variables used by the
// serverless deployment: STAGE, ENDPOINT, API_KEY or API_KEY_B64,
// SLACK_WEBHOOK_LOGS and SLACK_WEBHOOK_INFO.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Stage: os.Getenv("STAGE"),
		Registry: RegistryConfig{
			Endpoint:  os.Getenv("ENDPOINT"),
			APIKey:    os.Getenv("API_KEY"),
			APIKeyB64: os.Getenv("API_KEY_B64"),
		},
		Slack: SlackConfig{
			LogsWebhook: os.Getenv("SLACK_WEBHOOK_LOGS"),
			InfoWebhook: os.Getenv("SLACK_WEBHOOK_INFO"),
		},
		Storage: StorageConfig{
			Dir: os.Getenv("BANK_FILE_DIR"),
		},
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyDefaults()

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Stage == "" {
		c.Stage = "dev"
	}
	if c.Registry.Timeout == 0 {
		c.Registry.Timeout = 30 * time.Second
	}
	if c.Registry.MaxRetries == 0 {
		c.Registry.MaxRetries = 3
	}
	if c.Registry.RetryInterval == 0 {
		c.Registry.RetryInterval = 2 * time.Second
	}
	if c.Slack.RequestsPerSecond == 0 {
		c.Slack.RequestsPerSecond = 1
	}
	if c.Storage.Type == "" {
		c.Storage.Type = StorageFilesystem
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "."
	}
	if c.Storage.DuplicateWindow == 0 {
		c.Storage.DuplicateWindow = 24 * time.Hour
	}
	if c.Storage.MongoDB.Database == "" {
		c.Storage.MongoDB.Database = "pankkilinkki"
	}
	if c.Storage.MongoDB.Collection == "" {
		c.Storage.MongoDB.Collection = "processed_files"
	}
	if c.Storage.MongoDB.GridFS.BucketName == "" {
		c.Storage.MongoDB.GridFS.BucketName = "bankfiles"
	}
	if c.Ledger.Timezone == "" {
		c.Ledger.Timezone = "UTC"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = "/metrics"
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 32 << 20
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) resolveSecrets() error {
	if c.Registry.APIKey != "" || c.Registry.APIKeyB64 == "" {
		return nil
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.Registry.APIKeyB64))
	if err != nil {
		return fmt.Errorf("registry.apiKeyB64: %w", err)
	}
	c.Registry.APIKey = string(key)
	return nil
}

func (c *Config) validate() error {
	if c.Registry.Endpoint == "" {
		return fmt.Errorf("registry.endpoint is required")
	}
	if c.Registry.APIKey == "" {
		return fmt.Errorf("registry.apiKey or registry.apiKeyB64 is required")
	}
	if c.Registry.MaxRetries < 0 {
		return fmt.Errorf("registry.maxRetries must not be negative")
	}
	if c.Watch.Interval < 0 {
		return fmt.Errorf("watch.interval must not be negative")
	}

	switch c.Storage.Type {
	case StorageFilesystem:
	case StorageMongoDB:
		if c.Storage.MongoDB.URI == "" {
			return fmt.Errorf("storage.mongodb.uri is required when type is 'mongodb'")
		}
	default:
		return fmt.Errorf("storage.type must be 'filesystem' or 'mongodb', got '%s'", c.Storage.Type)
	}

	if _, err := c.Ledger.Location(); err != nil {
		return fmt.Errorf("ledger.timezone: %w", err)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got '%s'", c.Logging.Format)
	}

	return nil
}
