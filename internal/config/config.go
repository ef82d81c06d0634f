// Package config loads application configuration from defaults, an optional
// YAML file named by CONFIG_FILE, and environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageDynamoDB = "dynamodb"
	StorageMemory   = "memory"
)

// API surfaces. Each Lambda can serve a single route group.
const (
	SurfaceAll                 = "all"
	SurfaceSprints             = "sprints"
	SurfaceCertificationGroups = "certification-groups"
	SurfaceStore               = "store"
	SurfaceUsers               = "users"
)

// Tables names the DynamoDB table of each aggregate.
type Tables struct {
	Sprints             string `yaml:"sprints"`
	CertificationGroups string `yaml:"certificationGroups"`
	StoreItems          string `yaml:"storeItems"`
	StoreOrders         string `yaml:"storeOrders"`
	Users               string `yaml:"users"`
}

// Config holds all application configuration
type Config struct {
	// Server configuration
	Environment   string `yaml:"environment"`
	ServerAddress string `yaml:"serverAddress"`
	APISurface    string `yaml:"apiSurface"`
	LogLevel      string `yaml:"logLevel"`

	// AWS configuration
	AWSRegion      string `yaml:"awsRegion"`
	StorageBackend string `yaml:"storageBackend"`
	Tables         Tables `yaml:"tables"`
	EventBusName   string `yaml:"eventBusName"`

	// Email
	SESFromEmail        string `yaml:"sesFromEmail"`
	SESConfigurationSet string `yaml:"sesConfigurationSet"`

	// Store image uploads
	StoreAssetsBucket   string `yaml:"storeAssetsBucket"`
	UploadURLTTLSeconds int    `yaml:"uploadUrlTtlSeconds"`

	// HTTP
	AllowedOrigins []string `yaml:"allowedOrigins"`
	DebugErrors    bool     `yaml:"debugErrors"`

	// SprintStatusWriteBack persists derived sprint statuses on read.
	SprintStatusWriteBack bool `yaml:"sprintStatusWriteBack"`

	// Observability. An empty namespace keeps metrics in Prometheus only.
	CloudWatchNamespace string `yaml:"cloudWatchNamespace"`
	TracingEnabled      bool   `yaml:"tracingEnabled"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Environment:    "development",
		ServerAddress:  ":8080",
		APISurface:     SurfaceAll,
		LogLevel:       "info",
		AWSRegion:      "us-east-1",
		StorageBackend: StorageDynamoDB,
		Tables: Tables{
			Sprints:             "awsug-sprints",
			CertificationGroups: "awsug-certification-groups",
			StoreItems:          "awsug-store-items",
			StoreOrders:         "awsug-store-orders",
			Users:               "awsug-users",
		},
		UploadURLTTLSeconds: 900,
		AllowedOrigins:      []string{"*"},
	}
}

// LoadConfig loads and validates the configuration.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides every key whose environment variable is set.
func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.APISurface = getEnv("API_SURFACE", c.APISurface)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.Tables.Sprints = getEnv("SPRINTS_TABLE", c.Tables.Sprints)
	c.Tables.CertificationGroups = getEnv("CERTIFICATION_GROUPS_TABLE", c.Tables.CertificationGroups)
	c.Tables.StoreItems = getEnv("STORE_ITEMS_TABLE", c.Tables.StoreItems)
	c.Tables.StoreOrders = getEnv("STORE_ORDERS_TABLE", c.Tables.StoreOrders)
	c.Tables.Users = getEnv("USERS_TABLE", c.Tables.Users)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)

	c.SESFromEmail = getEnv("SES_FROM_EMAIL", c.SESFromEmail)
	c.SESConfigurationSet = getEnv("SES_CONFIGURATION_SET", c.SESConfigurationSet)

	c.StoreAssetsBucket = getEnv("STORE_ASSETS_BUCKET", c.StoreAssetsBucket)
	c.UploadURLTTLSeconds = getEnvInt("UPLOAD_URL_TTL_SECONDS", c.UploadURLTTLSeconds)

	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
	c.DebugErrors = getEnvBool("DEBUG_ERRORS", c.DebugErrors)
	c.SprintStatusWriteBack = getEnvBool("SPRINT_STATUS_WRITEBACK", c.SprintStatusWriteBack)

	c.CloudWatchNamespace = getEnv("CLOUDWATCH_NAMESPACE", c.CloudWatchNamespace)
	c.TracingEnabled = getEnvBool("TRACING_ENABLED", c.TracingEnabled)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageDynamoDB, StorageMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageDynamoDB, StorageMemory, c.StorageBackend)
	}

	switch c.APISurface {
	case SurfaceAll, SurfaceSprints, SurfaceCertificationGroups, SurfaceStore, SurfaceUsers:
	default:
		return fmt.Errorf("unknown API_SURFACE %q", c.APISurface)
	}

	if c.UploadURLTTLSeconds <= 0 {
		return fmt.Errorf("UPLOAD_URL_TTL_SECONDS must be positive")
	}

	if c.IsProduction() {
		if c.StorageBackend == StorageMemory {
			return fmt.Errorf("the memory storage backend cannot be used in production")
		}
		tables := map[string]string{
			"SPRINTS_TABLE":              c.Tables.Sprints,
			"CERTIFICATION_GROUPS_TABLE": c.Tables.CertificationGroups,
			"STORE_ITEMS_TABLE":          c.Tables.StoreItems,
			"STORE_ORDERS_TABLE":         c.Tables.StoreOrders,
			"USERS_TABLE":                c.Tables.Users,
		}
		for key, table := range tables {
			if table == "" {
				return fmt.Errorf("%s is required in production", key)
			}
		}
		if c.SESFromEmail == "" {
			return fmt.Errorf("SES_FROM_EMAIL is required in production")
		}
	}
	return nil
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UploadURLTTL is how long presigned upload URLs stay valid.
func (c *Config) UploadURLTTL() time.Duration {
	return time.Duration(c.UploadURLTTLSeconds) * time.Second
}

// Serves reports whether this process serves the given route group.
func (c *Config) Serves(surface string) bool {
	return c.APISurface == SurfaceAll || c.APISurface == surface
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
