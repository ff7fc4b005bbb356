package config

import (
	"fmt"
	"os"
	"strconv"

	domainconfig "optigroup/domain/config"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion       string
	MembershipTable string
	HorizonIndex    string // GSI for effective-range overlap queries
	JobTable        string
	LockTable       string
	EventBusName    string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Grouping configuration
	MaxGroupSize       int
	DefaultHorizonDays int
	StrictConnectivity bool
	DefaultJobName     string
	DefaultPolicyID    string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool
	PreviewTTL    int // seconds, 0 disables preview caching
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		AWSRegion:       getEnv("AWS_REGION", "us-west-2"),
		MembershipTable: getEnv("MEMBERSHIP_TABLE", getEnv("TABLE_NAME", "optigroup-memberships")),
		HorizonIndex:    getEnv("HORIZON_INDEX_NAME", "EffectiveRangeIndex"),
		JobTable:        getEnv("JOB_TABLE_NAME", "optigroup-jobs"),
		LockTable:       getEnv("LOCK_TABLE_NAME", "optigroup-locks"),
		EventBusName:    getEnv("EVENT_BUS_NAME", "optigroup-events"),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		// Grouping configuration
		MaxGroupSize:       getEnvInt("MAX_GROUP_SIZE", domainconfig.DefaultDomainConfig().MaxGroupSize),
		DefaultHorizonDays: getEnvInt("HORIZON_DAYS", domainconfig.DefaultDomainConfig().DefaultHorizonDays),
		StrictConnectivity: getEnvBool("STRICT_CONNECTIVITY", false),
		DefaultJobName:     getEnv("DEFAULT_JOB_NAME", domainconfig.DefaultDomainConfig().DefaultJobName),
		DefaultPolicyID:    getEnv("DEFAULT_POLICY_ID", ""),

		// Authentication
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "optigroup"),

		// Logging and features
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", false),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		PreviewTTL:    getEnvInt("PREVIEW_CACHE_TTL", 60),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.MaxGroupSize < 1 {
		return fmt.Errorf("MAX_GROUP_SIZE must be at least 1")
	}
	if c.DefaultHorizonDays < 1 {
		return fmt.Errorf("HORIZON_DAYS must be at least 1")
	}
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.MembershipTable == "" {
			return fmt.Errorf("MEMBERSHIP_TABLE is required")
		}
		if c.JobTable == "" {
			return fmt.Errorf("JOB_TABLE_NAME is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}

	return nil
}

// DomainConfig derives the domain-level settings from the environment
func (c *Config) DomainConfig() *domainconfig.DomainConfig {
	dc := domainconfig.DefaultDomainConfig()
	dc.MaxGroupSize = c.MaxGroupSize
	dc.DefaultHorizonDays = c.DefaultHorizonDays
	dc.StrictConnectivity = c.StrictConnectivity
	dc.DefaultJobName = c.DefaultJobName
	dc.DefaultPolicyID = c.DefaultPolicyID
	dc.EnablePreviewCache = c.PreviewTTL > 0
	return dc
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
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
