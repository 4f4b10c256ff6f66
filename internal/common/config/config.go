// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct. It is built once at
// startup and passed by reference; components never read configuration ad
// hoc at call time.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Directory     DirectoryConfig    `mapstructure:"directory"`
	Renderer      RendererConfig     `mapstructure:"renderer"`
	Pricing       PricingConfig      `mapstructure:"pricing"`
	Jobs          JobsConfig         `mapstructure:"jobs"`
	StoreFields   StoreFieldsConfig  `mapstructure:"store_fields"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int `mapstructure:"write_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
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

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- External Collaborators ---

// DirectoryConfig holds settings for the external identity directory.
type DirectoryConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds

	Auth struct {
		TokenURL     string `mapstructure:"token_url"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"auth"`
}

// RendererConfig holds settings for the external document renderer.
type RendererConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// PricingConfig locates the read-only fee reference matrix.
type PricingConfig struct {
	MatrixPath string `mapstructure:"matrix_path"`
}

// JobsConfig tunes the validation job runner.
type JobsConfig struct {
	PacingDelay     int `mapstructure:"pacing_delay"`     // milliseconds between members
	DownloadTTL     int `mapstructure:"download_ttl"`     // minutes a download token stays live
	MemberCacheTTL  int `mapstructure:"member_cache_ttl"` // minutes candidate lookups stay cached
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

// StoreFieldsConfig names the persistent-store fields the pipeline writes.
// Collected here so field names are validated once instead of scattered.
type StoreFieldsConfig struct {
	ValidationSelect  string `mapstructure:"validation_select"`
	ValidationDate    string `mapstructure:"validation_date"`
	DiscountExpiry    string `mapstructure:"discount_expiry"`
	EffectiveCategory string `mapstructure:"effective_category"`
}

// NotificationConfig holds settings for the completion e-mail.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	DownloadBaseURL string `mapstructure:"download_base_url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
