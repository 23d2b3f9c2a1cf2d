package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Gateway modes
const (
	GatewayToolbox  = "toolbox"
	GatewayMCP      = "mcp"
	GatewayPostgres = "postgres"
)

// LLM providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Logging    LoggingConfig
	LLM        LLMConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	Gateway    GatewayConfig
	Pipeline   PipelineConfig
	Tracing    TracingConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, preferred when set
	Host               string
	Port               int `validate:"gte=0,lte=65535"`
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int `validate:"gte=1"`
	MaxIdleConnections int `validate:"gte=0"`
	RunLog             bool // record completed runs to search_logs
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int    `validate:"gte=1,lte=65535"`
	Host           string `validate:"required"`
	GinMode        string `validate:"oneof=debug release test"`
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json text"`
}

// LLMConfig selects the completion provider
type LLMConfig struct {
	Provider string `validate:"oneof=openai gemini"`
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey          string
	APIBase         string `validate:"required,url"`
	ChatModel       string `validate:"required"`
	ChatTemperature float64
	ChatTopP        float64
	ChatMaxTokens   int
	ChatExtraBody   string // JSON string for extra_body
	Timeout         int    `validate:"gte=1"`
	Enabled         bool
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
}

// GatewayConfig holds tool gateway configuration
type GatewayConfig struct {
	Mode    string        `validate:"oneof=toolbox mcp postgres"`
	URL     string        // toolbox base URL or MCP endpoint
	Toolset string        // optional named toolset
	Timeout time.Duration `validate:"gt=0"`
}

// PipelineConfig holds the retrieval and enrichment defaults
type PipelineConfig struct {
	DefaultDistrict     string  `validate:"required"`
	DefaultUnitType     string  `validate:"required"`
	DefaultPriceCeiling int     `validate:"gte=0"`
	DefaultRadius       int     `validate:"gt=0"`
	EnrichConcurrency   int     `validate:"gte=1"`
	EnrichRPS           float64 `validate:"gte=0"` // 0 disables limiting
	DistrictsFile       string  // optional YAML override for the district table
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Stdout bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "hdb"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
			RunLog:             getEnvAsBool("PG_RUN_LOG", false),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8000),
			Host:           getEnv("SERVER_HOST", "127.0.0.1"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		LLM: LLMConfig{
			Provider: strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		},
		OpenAI: OpenAIConfig{
			APIKey:          getEnv("OPENAI_API_KEY", getEnv("OPENROUTER_API_KEY", "")),
			APIBase:         strings.TrimRight(getEnv("OPENAI_API_BASE", "https://openrouter.ai/api/v1"), "/"),
			ChatModel:       getEnv("OPENAI_CHAT_MODEL", "amazon/nova-2-lite-v1:free"),
			ChatTemperature: getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0),
			ChatTopP:        getEnvAsFloat("OPENAI_CHAT_TOP_P", 0),
			ChatMaxTokens:   getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 0),
			ChatExtraBody:   getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			Timeout:         getEnvAsInt("OPENAI_TIMEOUT", 60),
		},
		Gemini: GeminiConfig{
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			Model:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Temperature: getEnvAsFloat("GEMINI_TEMPERATURE", 0),
		},
		Gateway: GatewayConfig{
			Mode:    strings.ToLower(getEnv("GATEWAY_MODE", GatewayToolbox)),
			URL:     strings.TrimRight(getEnv("TOOLBOX_URL", "http://127.0.0.1:5000"), "/"),
			Toolset: getEnv("TOOLBOX_TOOLSET", ""),
			Timeout: getEnvAsDuration("TOOL_TIMEOUT", 15*time.Second),
		},
		Pipeline: PipelineConfig{
			DefaultDistrict:     strings.ToUpper(getEnv("DEFAULT_DISTRICT", "TOA PAYOH")),
			DefaultUnitType:     strings.ToUpper(getEnv("DEFAULT_UNIT_TYPE", "4 ROOM")),
			DefaultPriceCeiling: getEnvAsInt("DEFAULT_PRICE_CEILING", 600000),
			DefaultRadius:       getEnvAsInt("DEFAULT_RADIUS_M", 800),
			EnrichConcurrency:   getEnvAsInt("ENRICH_CONCURRENCY", 4),
			EnrichRPS:           getEnvAsFloat("ENRICH_RPS", 0),
			DistrictsFile:       getEnv("DISTRICTS_FILE", ""),
		},
		Tracing: TracingConfig{
			Stdout: getEnvAsBool("TRACE_STDOUT", false),
		},
	}
	cfg.OpenAI.Enabled = cfg.OpenAI.APIKey != ""

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct-tag constraints on the whole configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// UsesPostgres reports whether any component needs a database connection
func (c *Config) UsesPostgres() bool {
	return c.Gateway.Mode == GatewayPostgres || c.PostgreSQL.RunLog
}

// NewLogger builds the process logger from the logging section
func (c LoggingConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("Invalid integer value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		slog.Warn("Invalid float value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		slog.Warn("Invalid boolean value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("15s") or bare seconds ("15")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		slog.Warn("Invalid duration value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}
