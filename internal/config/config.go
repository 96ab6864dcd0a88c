package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Columns  ColumnsConfig  `mapstructure:"columns"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SheetsConfig holds the spreadsheet CSV export endpoints and fetch behavior
type SheetsConfig struct {
	RatingsURL     string        `mapstructure:"ratings_url"`
	NamesURL       string        `mapstructure:"names_url"` // optional; display falls back to raw snack IDs
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// CategoryColumn binds one rating category to its source column header.
// Order in the config file defines both the averaging axes and the
// iteration order used for display.
type CategoryColumn struct {
	Name   string `mapstructure:"name"`
	Column string `mapstructure:"column"`
}

// ColumnsConfig maps the logical roles of the ratings sheet (person, snack
// ID, each rating category) to concrete column headers, resolved once at
// the boundary before rows enter the engines.
type ColumnsConfig struct {
	Person     string           `mapstructure:"person"`
	Snack      string           `mapstructure:"snack"`
	Categories []CategoryColumn `mapstructure:"categories"`
	NameID     string           `mapstructure:"name_id"`    // snack ID column in the names sheet
	NameLabel  string           `mapstructure:"name_label"` // display name column in the names sheet
}

// CategoryNames returns the ordered category names.
func (c ColumnsConfig) CategoryNames() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}

// ServerConfig holds the HTTP API configuration
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Enabled    bool   `mapstructure:"enabled"`
}

// StorageConfig holds snapshot persistence configuration
type StorageConfig struct {
	DBPath       string `mapstructure:"db_path"`
	MaxSnapshots int    `mapstructure:"max_snapshots"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	Enabled        bool          `mapstructure:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("SNACKBOARD")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
// Column defaults match the Google Forms question labels of the snack
// rating survey; deployments with different sheets override them.
func setDefaults(v *viper.Viper) {
	// Sheets defaults
	v.SetDefault("sheets.poll_interval", "1m")
	v.SetDefault("sheets.timeout", "30s")
	v.SetDefault("sheets.max_retries", 3)
	v.SetDefault("sheets.retry_delay_base", "1s")

	// Column defaults
	v.SetDefault("columns.person", "What is your name? (Please use the same name for all ratings)")
	v.SetDefault("columns.snack", "Which snack are you rating? (Insert snack ID)")
	v.SetDefault("columns.categories", []map[string]any{
		{"name": "Flavour", "column": "How would you rate the FLAVOUR of this snack?"},
		{"name": "Texture", "column": "How would you rate the TEXTURE of this snack?"},
		{"name": "Snackability", "column": "How would you rate the SNACKABILITY of this snack?"},
		{"name": "Originality", "column": "How would you rate the ORIGINALITY of this snack?"},
	})
	v.SetDefault("columns.name_id", "Snack ID:")
	v.SetDefault("columns.name_label", "What is your snack called?")

	// Server defaults
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.enabled", true)

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/snackboard.db")
	v.SetDefault("storage.max_snapshots", 100)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Sheets config
	if c.Sheets.RatingsURL == "" {
		return fmt.Errorf("sheets.ratings_url is required")
	}
	if c.Sheets.PollInterval < 30*time.Second {
		return fmt.Errorf("sheets.poll_interval must be at least 30 seconds")
	}
	if c.Sheets.Timeout <= 0 {
		return fmt.Errorf("sheets.timeout must be positive")
	}
	if c.Sheets.MaxRetries < 1 {
		return fmt.Errorf("sheets.max_retries must be at least 1")
	}

	// Validate Columns config
	if c.Columns.Person == "" {
		return fmt.Errorf("columns.person is required")
	}
	if c.Columns.Snack == "" {
		return fmt.Errorf("columns.snack is required")
	}
	if len(c.Columns.Categories) == 0 {
		return fmt.Errorf("columns.categories must contain at least one category")
	}
	seen := make(map[string]bool)
	for _, cat := range c.Columns.Categories {
		if cat.Name == "" || cat.Column == "" {
			return fmt.Errorf("columns.categories entries require both name and column")
		}
		if seen[cat.Name] {
			return fmt.Errorf("duplicate category name %q", cat.Name)
		}
		seen[cat.Name] = true
	}
	if c.Sheets.NamesURL != "" {
		if c.Columns.NameID == "" || c.Columns.NameLabel == "" {
			return fmt.Errorf("columns.name_id and columns.name_label are required when sheets.names_url is set")
		}
	}

	// Validate Server config
	if c.Server.Enabled && c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required when server is enabled")
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxSnapshots < 1 {
		return fmt.Errorf("storage.max_snapshots must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
