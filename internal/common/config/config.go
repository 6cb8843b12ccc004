// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	APIs      APIsConfig      `mapstructure:"apis"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	ListenAddr  string `mapstructure:"listen_addr"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	EventIndex string   `mapstructure:"event_index"`
	Enabled    bool     `mapstructure:"enabled"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- External API Config ---

type APIsConfig struct {
	GenAI      GenAIConfig      `mapstructure:"genai"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Vision     VisionConfig     `mapstructure:"vision"`
}

type GenAIConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries"`
	Temperature float64 `mapstructure:"temperature"`
}

// IsConfigured reports whether the model integration can be used at all.
func (g GenAIConfig) IsConfigured() bool {
	return g.BaseURL != "" && g.APIKey != ""
}

// ModerationConfig holds the text classifier endpoint plus the per-category
// reject thresholds. Thresholds are classifier-specific and deliberately
// configurable rather than baked into the gate.
type ModerationConfig struct {
	BaseURL          string             `mapstructure:"base_url"`
	APIKey           string             `mapstructure:"api_key"`
	Timeout          int                `mapstructure:"timeout"` // milliseconds
	RejectThresholds map[string]float64 `mapstructure:"reject_thresholds"`
}

type VisionConfig struct {
	BaseURL          string         `mapstructure:"base_url"`
	APIKey           string         `mapstructure:"api_key"`
	Timeout          int            `mapstructure:"timeout"` // milliseconds
	RejectLikelihood map[string]int `mapstructure:"reject_likelihood"`
}

// --- Assistant Core Config ---

type AssistantConfig struct {
	// Timezone for all date-window math (today/this_weekend/next_week).
	Timezone string `mapstructure:"timezone"`
	// Maximum items summarized per result set in composed responses.
	MaxSummaryItems int `mapstructure:"max_summary_items"`
	// Secondary context bounds for business agents.
	PlatformEventDays     int `mapstructure:"platform_event_days"`
	PlatformEventLimit    int `mapstructure:"platform_event_limit"`
	PlatformBusinessLimit int `mapstructure:"platform_business_limit"`
	PlatformPopularLimit  int `mapstructure:"platform_popular_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
