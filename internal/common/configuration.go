// Package common provides configuration management and shared HTTP
// utilities for the BasicDB service. It includes support for YAML
// configuration files, environment variable overrides, CORS setup and
// health endpoints.
package common

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

// PrintSplash displays the BasicDB ASCII art logo to the console.
// This function is typically called during application startup to provide
// visual branding and confirm the service is starting.
func PrintSplash() {
	log.Printf(`
	██████╗  █████╗ ███████╗██╗ ██████╗
	██╔══██╗██╔══██╗██╔════╝██║██╔════╝
	██████╔╝███████║███████╗██║██║
	██╔══██╗██╔══██║╚════██║██║██║
	██████╔╝██║  ██║███████║██║╚██████╗
	╚═════╝ ╚═╝  ╚═╝╚══════╝╚═╝ ╚═════╝

	██████╗ ██████╗
	██╔══██╗██╔══██╗
	██║  ██║██████╔╝
	██║  ██║██╔══██╗
	██████╔╝██████╔╝
	╚═════╝ ╚═════╝
	`)
}

// Config represents the complete configuration structure for the
// BasicDB service. It combines server settings, the default owner,
// the storage backend selection with per-backend connection
// parameters, and the CORS policy.
type Config struct {
	Server     ServerConfig     `yaml:"server"`     // HTTP server configuration
	Auth       AuthConfig       `yaml:"auth"`       // Owner resolution settings
	Backend    BackendConfig    `yaml:"backend"`    // Storage backend selection
	Filesystem FilesystemConfig `yaml:"filesystem"` // Filesystem backend settings
	Postgres   PostgresConfig   `yaml:"postgres"`   // PostgreSQL backend settings
	Mongo      MongoConfig      `yaml:"mongo"`      // MongoDB backend settings
	S3         S3Config         `yaml:"s3"`         // S3 backend settings
	CorsConfig CorsConfig       `yaml:"cors"`       // CORS policy configuration
}

// ServerConfig contains HTTP server configuration parameters.
type ServerConfig struct {
	Host        string `yaml:"host"`        // Listen address (default: 0.0.0.0)
	Port        int    `yaml:"port"`        // HTTP server port (default: 8080)
	ContextPath string `yaml:"contextPath"` // Base path for all endpoints
}

// AuthConfig contains owner resolution settings. Requests that carry
// neither the owner header nor an AWSAccessKeyId parameter are
// attributed to the default owner.
type AuthConfig struct {
	DefaultOwner string `yaml:"defaultOwner"` // Fallback owner for anonymous requests
}

// BackendConfig selects the storage backend implementation.
type BackendConfig struct {
	Driver string `yaml:"driver"` // One of: memory, filesystem, postgres, mongo, s3
}

// FilesystemConfig contains filesystem backend parameters.
type FilesystemConfig struct {
	BaseDir string `yaml:"baseDir"` // Root directory for stored data
}

// PostgresConfig contains PostgreSQL database connection parameters.
// It includes connection pooling settings for optimal performance.
type PostgresConfig struct {
	Host                   string `yaml:"host"`                   // Database host address
	Port                   int    `yaml:"port"`                   // Database port (default: 5432)
	User                   string `yaml:"user"`                   // Database username
	Password               string `yaml:"password"`               // Database password
	DBName                 string `yaml:"dbname"`                 // Database name
	MaxOpenConnections     int    `yaml:"maxOpenConnections"`     // Maximum open connections
	MaxIdleConnections     int    `yaml:"maxIdleConnections"`     // Maximum idle connections
	ConnMaxLifetimeMinutes int    `yaml:"connMaxLifetimeMinutes"` // Connection lifetime in minutes
}

// MongoConfig contains MongoDB connection parameters.
type MongoConfig struct {
	URI      string `yaml:"uri"`      // Connection URI
	Database string `yaml:"database"` // Database name
}

// S3Config contains S3 (or S3-compatible object store) parameters.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`        // Custom endpoint for MinIO and friends; empty for AWS
	Region          string `yaml:"region"`          // Bucket region
	Bucket          string `yaml:"bucket"`          // Master bucket holding owner records
	AccessKeyID     string `yaml:"accessKeyId"`     // Static credential; empty uses the default chain
	SecretAccessKey string `yaml:"secretAccessKey"` // Static credential; empty uses the default chain
	UsePathStyle    bool   `yaml:"usePathStyle"`    // Path-style addressing for MinIO
}

// CorsConfig contains Cross-Origin Resource Sharing (CORS) policy settings.
type CorsConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`   // Allowed origin domains
	AllowedMethods   []string `yaml:"allowedMethods"`   // Allowed HTTP methods
	AllowedHeaders   []string `yaml:"allowedHeaders"`   // Allowed request headers
	AllowCredentials bool     `yaml:"allowCredentials"` // Allow credentials in requests
}

// LoadConfig loads the configuration from YAML files and environment variables.
//
// The function supports multiple configuration sources with the following precedence:
// 1. Environment variables (highest priority)
// 2. Configuration file (if provided)
// 3. Default values (lowest priority)
//
// Environment variables should use underscore notation (e.g., SERVER_PORT for
// server.port, BACKEND_DRIVER for backend.driver).
//
// Parameters:
//   - configPath: Path to the YAML configuration file. If empty, only environment
//     variables and defaults will be used.
//
// Returns:
//   - *Config: Loaded configuration structure
//   - error: Error if configuration loading fails
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	if configPath != "" {
		log.Printf("📁 Loading config from file: %s", configPath)
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		log.Println("📁 No config file provided — loading from environment variables only")
	}

	// Override config with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	log.Println("✅ Configuration loaded successfully")
	PrintConfiguration(cfg)
	return cfg, nil
}

// setDefaults configures sensible default values for all configuration options.
//
// The defaults let the service run in development environments without any
// configuration at all: the in-memory backend needs no external services.
// Production deployments should override these values through configuration
// files or environment variables.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.contextPath", "")

	// Owner defaults
	v.SetDefault("auth.defaultOwner", "basicdb")

	// Backend defaults
	v.SetDefault("backend.driver", "memory")

	// Filesystem defaults
	v.SetDefault("filesystem.baseDir", "/var/lib/basicdb")

	// PostgreSQL defaults
	v.SetDefault("postgres.host", "db")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "admin")
	v.SetDefault("postgres.password", "admin123")
	v.SetDefault("postgres.dbname", "basicdb")
	v.SetDefault("postgres.maxOpenConnections", 50)
	v.SetDefault("postgres.maxIdleConnections", 50)
	v.SetDefault("postgres.connMaxLifetimeMinutes", 5)

	// MongoDB defaults
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "basicdb")

	// S3 defaults
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "basicdb-master")
	v.SetDefault("s3.accessKeyId", "")
	v.SetDefault("s3.secretAccessKey", "")
	v.SetDefault("s3.usePathStyle", false)

	// CORS defaults
	v.SetDefault("cors.allowedOrigins", []string{"*"})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"*"})
	v.SetDefault("cors.allowCredentials", true)
}

// PrintConfiguration prints the current configuration to the console with
// sensitive data redacted.
//
// This function is useful for debugging and verifying configuration during
// startup. Database credentials and object store secrets are masked to
// prevent accidental exposure in logs.
func PrintConfiguration(cfg *Config) {
	// Create a copy of the config to avoid modifying the original
	cfgCopy := *cfg

	// Redact sensitive information if present
	if cfg.Postgres.Host != "" {
		cfgCopy.Postgres.Host = "****"
		cfgCopy.Postgres.User = "****"
		cfgCopy.Postgres.Password = "****"
	}
	if cfg.Mongo.URI != "" {
		cfgCopy.Mongo.URI = "****"
	}
	if cfg.S3.SecretAccessKey != "" {
		cfgCopy.S3.AccessKeyID = "****"
		cfgCopy.S3.SecretAccessKey = "****"
	}

	// Convert to JSON for pretty printing
	configJSON, err := json.MarshalIndent(cfgCopy, "", "  ")
	if err != nil {
		log.Printf("Unable to marshal configuration to JSON: %v", err)
		return
	}

	log.Printf("📜 Loaded configuration:\n%s", string(configJSON))
}

// AddCors configures Cross-Origin Resource Sharing (CORS) middleware for the
// router according to the loaded policy.
func AddCors(r *chi.Mux, config *Config) {
	c := cors.New(cors.Options{
		AllowedOrigins:   config.CorsConfig.AllowedOrigins,
		AllowedMethods:   config.CorsConfig.AllowedMethods,
		AllowedHeaders:   config.CorsConfig.AllowedHeaders,
		AllowCredentials: config.CorsConfig.AllowCredentials,
	})
	r.Use(c.Handler)
}
