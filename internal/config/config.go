// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Database DatabaseConfig `mapstructure:"database"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Game     GameConfig     `mapstructure:"game"`
	Referral ReferralConfig `mapstructure:"referral"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig identifies the human who approves deposits and withdrawals.
// Approval notifications are sent to ChatID (defaults to the admin's own chat).
type AdminConfig struct {
	ID     int64 `mapstructure:"id"`
	ChatID int64 `mapstructure:"chat_id"`
}

// GameConfig holds the reward-game business rules.
type GameConfig struct {
	MinDeposit     int64         `mapstructure:"min_deposit"`
	MinWithdrawal  int64         `mapstructure:"min_withdrawal"`
	TradeCooldown  time.Duration `mapstructure:"trade_cooldown"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	ProfitBps      int64         `mapstructure:"profit_bps"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	DepositAddress string        `mapstructure:"deposit_address"`
}

// ReferralConfig holds referral bonus configuration.
type ReferralConfig struct {
	Bonus         int64         `mapstructure:"bonus"`
	BoostDuration time.Duration `mapstructure:"boost_duration"`
}

// HTTPConfig holds the health server configuration.
type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// e.g., BOT_TOKEN, DATABASE_HOST, ADMIN_ID, GAME_MIN_DEPOSIT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Admin.ChatID == 0 {
		cfg.Admin.ChatID = cfg.Admin.ID
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bitcoinfun")
	v.SetDefault("database.name", "bitcoinfun")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Game rule defaults
	v.SetDefault("game.min_deposit", 35)
	v.SetDefault("game.min_withdrawal", 30)
	v.SetDefault("game.trade_cooldown", "12h")
	v.SetDefault("game.settle_delay", "20s")
	v.SetDefault("game.profit_bps", 250)
	v.SetDefault("game.ping_interval", "6h")
	v.SetDefault("game.deposit_address", "bc1qexampledepositaddress")

	// Referral defaults
	v.SetDefault("referral.bonus", 5)
	v.SetDefault("referral.boost_duration", "24h")

	// Health server default (hosting platforms probe this port)
	v.SetDefault("http.port", 3000)
}

// IsAdmin checks if a user ID is the configured admin.
func (c *Config) IsAdmin(userID int64) bool {
	return c.Admin.ID != 0 && c.Admin.ID == userID
}

// Validate checks that the configuration is usable at startup.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if c.Admin.ID == 0 {
		return fmt.Errorf("admin id is required")
	}
	if c.Game.MinDeposit <= 0 || c.Game.MinWithdrawal <= 0 {
		return fmt.Errorf("minimum deposit and withdrawal must be positive")
	}
	if c.Game.ProfitBps <= 0 {
		return fmt.Errorf("profit_bps must be positive")
	}
	return nil
}
