package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabasesConfig     `mapstructure:"database"`
	Staging       StagingConfig       `mapstructure:"staging"`
	DocumentStore DocumentStoreConfig `mapstructure:"document_store"`
	Redaction     RedactionConfig     `mapstructure:"redaction"`
	Review        ReviewConfig        `mapstructure:"review"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Hostname        string        `mapstructure:"hostname"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds the cross-origin policy of the review API
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// DatabasesConfig holds all database configurations
type DatabasesConfig struct {
	Review DatabaseConfig `mapstructure:"review"`
}

// DatabaseConfig holds individual database configuration
type DatabaseConfig struct {
	Type            string        `mapstructure:"type"`
	Hostname        string        `mapstructure:"hostname"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StagingConfig holds configuration of the draft review state area
type StagingConfig struct {
	Backend   string        `mapstructure:"backend"`
	RedisURL  string        `mapstructure:"redis_url"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// DocumentStoreConfig holds S3 compatible document store configuration
type DocumentStoreConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Endpoint     string        `mapstructure:"endpoint"`
	Region       string        `mapstructure:"region"`
	Bucket       string        `mapstructure:"bucket"`
	AccessKey    string        `mapstructure:"access_key"`
	SecretKey    string        `mapstructure:"secret_key"`
	UsePathStyle bool          `mapstructure:"use_path_style"`
	RootPath     string        `mapstructure:"root_path"`
	CallTimeout  time.Duration `mapstructure:"call_timeout"`
}

// RedactionConfig holds PII detection service configuration
type RedactionConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	Endpoint            string        `mapstructure:"endpoint"`
	APIKey              string        `mapstructure:"api_key"`
	APIVersion          string        `mapstructure:"api_version"`
	Language            string        `mapstructure:"language"`
	Categories          []string      `mapstructure:"categories"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	ChunkSize           int           `mapstructure:"chunk_size"`
	BatchSize           int           `mapstructure:"batch_size"`
	MaxBatches          int           `mapstructure:"max_batches"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// ReviewConfig holds review workflow configuration
type ReviewConfig struct {
	SessionHeader     string `mapstructure:"session_header"`
	SessionCookie     string `mapstructure:"session_cookie"`
	AttachmentsFolder string `mapstructure:"attachments_folder"`
	StagingFolder     string `mapstructure:"staging_folder"`
	MaxUploadSize     int64  `mapstructure:"max_upload_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

var globalConfig *Config

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default configuration lookup order:
		// 1. ./repository/conf/deployment.yaml (production - relative to binary)
		// 2. ./cmd/server/repository/conf/deployment.yaml (development)
		v.SetConfigName("deployment")
		v.SetConfigType("yaml")
		v.AddConfigPath("./repository/conf")
		v.AddConfigPath("./cmd/server/repository/conf")
		v.AddConfigPath("../repository/conf")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("REP_REVIEW")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	globalConfig = &config
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.hostname", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.idleTimeout", 60*time.Second)
	v.SetDefault("server.shutdownTimeout", 30*time.Second)
	v.SetDefault("server.cors.allow_credentials", true)

	v.SetDefault("database.review.type", "mysql")
	v.SetDefault("database.review.max_open_conns", 25)
	v.SetDefault("database.review.max_idle_conns", 5)
	v.SetDefault("database.review.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("staging.backend", "redis")
	v.SetDefault("staging.key_prefix", "review:")
	v.SetDefault("staging.ttl", 24*time.Hour)

	v.SetDefault("document_store.region", "uk-south")
	v.SetDefault("document_store.call_timeout", 30*time.Second)

	v.SetDefault("redaction.api_version", "2023-04-01")
	v.SetDefault("redaction.language", "en")
	v.SetDefault("redaction.confidence_threshold", 0.8)
	v.SetDefault("redaction.chunk_size", 5000)
	v.SetDefault("redaction.batch_size", 5)
	v.SetDefault("redaction.max_batches", 3)
	v.SetDefault("redaction.timeout", 10*time.Second)

	v.SetDefault("review.session_header", "X-Review-Session")
	v.SetDefault("review.session_cookie", "review_session")
	v.SetDefault("review.attachments_folder", "Published/Attachments")
	v.SetDefault("review.staging_folder", "System/Redaction-Staging")
	v.SetDefault("review.max_upload_size", 20<<20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Database.Review.Type {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database type: %s", config.Database.Review.Type)
	}

	if config.Database.Review.Hostname == "" {
		return fmt.Errorf("database hostname is required")
	}

	if config.Database.Review.Database == "" {
		return fmt.Errorf("database name is required")
	}

	switch config.Staging.Backend {
	case "redis":
		if config.Staging.RedisURL == "" {
			return fmt.Errorf("staging redis URL is required when the redis backend is selected")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported staging backend: %s", config.Staging.Backend)
	}

	if config.DocumentStore.Enabled && config.DocumentStore.Bucket == "" {
		return fmt.Errorf("document store bucket is required when the document store is enabled")
	}

	if config.Redaction.Enabled {
		if config.Redaction.Endpoint == "" {
			return fmt.Errorf("redaction endpoint is required when redaction suggestions are enabled")
		}
		if _, err := url.ParseRequestURI(config.Redaction.Endpoint); err != nil {
			return fmt.Errorf("invalid redaction endpoint: %w", err)
		}
	}

	if config.Redaction.ConfidenceThreshold < 0 || config.Redaction.ConfidenceThreshold > 1 {
		return fmt.Errorf("redaction confidence threshold must be between 0 and 1")
	}

	if config.Redaction.ChunkSize <= 0 || config.Redaction.BatchSize <= 0 || config.Redaction.MaxBatches <= 0 {
		return fmt.Errorf("redaction chunk size, batch size and max batches must be positive")
	}

	return nil
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// SetGlobal sets the global configuration (for testing purposes)
func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

// GetDriverName returns the database/sql driver name for the configured type
func (d *DatabaseConfig) GetDriverName() string {
	if d.Type == "postgres" {
		return "pgx"
	}
	return "mysql"
}

// GetDSN returns the database connection string
func (d *DatabaseConfig) GetDSN() string {
	if d.Type == "postgres" {
		sslMode := d.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			url.QueryEscape(d.User),
			url.QueryEscape(d.Password),
			d.Hostname,
			d.Port,
			d.Database,
			sslMode,
		)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		d.User,
		d.Password,
		d.Hostname,
		d.Port,
		d.Database,
	)
}

// GetServerAddress returns the server address in host:port format
func (s *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}

// GetAnalyzeURL returns the full URL of the text analysis endpoint
func (r *RedactionConfig) GetAnalyzeURL() string {
	return fmt.Sprintf("%s/language/:analyze-text?api-version=%s", r.Endpoint, r.APIVersion)
}
