package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/devsecdash/notification-engine/pkg/utils"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Router    RouterConfig    `mapstructure:"router"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Channels  ChannelsConfig  `mapstructure:"channels"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// RouterConfig contains notification routing configuration
type RouterConfig struct {
	Workers         int           `mapstructure:"workers"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
}

// RateLimitConfig contains rate limiter configuration
type RateLimitConfig struct {
	Capacity int           `mapstructure:"capacity"`
	Window   time.Duration `mapstructure:"window"`
}

// ChannelsConfig contains per-channel transport configuration
type ChannelsConfig struct {
	Email   EmailChannelConfig   `mapstructure:"email"`
	Slack   WebhookChannelConfig `mapstructure:"slack"`
	Teams   WebhookChannelConfig `mapstructure:"teams"`
	InApp   InAppChannelConfig   `mapstructure:"in_app"`
	Webhook GenericWebhookConfig `mapstructure:"webhook"`
}

// EmailChannelConfig contains SMTP settings
type EmailChannelConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	SMTPHost  string        `mapstructure:"smtp_host"`
	SMTPPort  int           `mapstructure:"smtp_port"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	FromEmail string        `mapstructure:"from_email"`
	FromName  string        `mapstructure:"from_name"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// WebhookChannelConfig contains settings for webhook-backed chat channels
type WebhookChannelConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// InAppChannelConfig contains in-app inbox settings
type InAppChannelConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxPerUser int  `mapstructure:"max_per_user"`
}

// GenericWebhookConfig contains generic webhook settings
type GenericWebhookConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig contains persistence configuration
type StorageConfig struct {
	Type             string        `mapstructure:"type"` // memory, sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
	MaxDeliveries    int           `mapstructure:"max_deliveries"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./internal/config")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("NOTIFY_ENGINE")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.name", "notification-engine")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	viper.SetDefault("router.workers", 64)
	viper.SetDefault("router.delivery_timeout", "30s")

	viper.SetDefault("rate_limit.capacity", 60)
	viper.SetDefault("rate_limit.window", "60s")

	viper.SetDefault("channels.email.enabled", true)
	viper.SetDefault("channels.email.smtp_host", "localhost")
	viper.SetDefault("channels.email.smtp_port", 587)
	viper.SetDefault("channels.email.from_email", "noreply@notification-engine.local")
	viper.SetDefault("channels.email.from_name", "Notification Engine")
	viper.SetDefault("channels.email.timeout", "30s")
	viper.SetDefault("channels.slack.enabled", false)
	viper.SetDefault("channels.slack.timeout", "15s")
	viper.SetDefault("channels.teams.enabled", false)
	viper.SetDefault("channels.teams.timeout", "15s")
	viper.SetDefault("channels.in_app.enabled", true)
	viper.SetDefault("channels.in_app.max_per_user", 100)
	viper.SetDefault("channels.webhook.enabled", true)
	viper.SetDefault("channels.webhook.timeout", "30s")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.max_connections", 10)
	viper.SetDefault("storage.max_idle_time", "15m")
	viper.SetDefault("storage.max_deliveries", 1000)

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.enable_metrics", true)
	viper.SetDefault("server.enable_health", true)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Router.Workers <= 0 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Router workers must be positive")
	}
	if c.RateLimit.Capacity <= 0 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Rate limit capacity must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Rate limit window must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Invalid server port",
			fmt.Sprintf("%d", c.Server.Port))
	}
	if c.Channels.Slack.Enabled && c.Channels.Slack.WebhookURL == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Slack webhook URL is required when enabled")
	}
	if c.Channels.Teams.Enabled && c.Channels.Teams.WebhookURL == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Teams webhook URL is required when enabled")
	}
	return nil
}
