// Package config provides configuration management for the trade journal.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Client   ClientConfig   `mapstructure:"client"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Production      bool          `mapstructure:"production"`
	StaticDir       string        `mapstructure:"static_dir"`
	BodyLimitMB     int           `mapstructure:"body_limit_mb"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig selects the persistence backend. A non-empty URL selects
// PostgreSQL; otherwise the SQLite file at SQLitePath is used.
type DatabaseConfig struct {
	URL        string `mapstructure:"url"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// AuthConfig holds token and password hashing settings.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	ReadOnlyMode     bool   `mapstructure:"read_only_mode"`
	AuditEnabled     bool   `mapstructure:"audit_enabled"`
	AuditDir         string `mapstructure:"audit_dir"`
	StrictValidation bool   `mapstructure:"strict_validation"`
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// ClientConfig holds settings for the CLI's API client.
type ClientConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trade-journal"
	}
	return filepath.Join(home, ".config", "trade-journal")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is not an error; defaults and the environment apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	if err := loadDotEnv(".env", filepath.Join(configDir, ".env")); err != nil {
		return nil, jerrors.Wrap(err, "loading .env")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)
	bindEnv(v)

	cfg := &Config{Dir: configDir}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, jerrors.Wrap(err, "loading config.toml")
		}
	} else {
		cfg.File = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, jerrors.Wrap(err, "decoding config")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, jerrors.Wrap(err, "validating config")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.production", false)
	v.SetDefault("server.static_dir", "dist")
	v.SetDefault("server.body_limit_mb", 50)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlite_path", filepath.Join(configDir, "journal.db"))

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "720h")
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("security.read_only_mode", false)
	v.SetDefault("security.audit_enabled", false)
	v.SetDefault("security.audit_dir", filepath.Join(configDir, "audit"))
	v.SetDefault("security.strict_validation", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "journal.log"))
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age", 30)

	v.SetDefault("client.server_url", "http://localhost:5001")
	v.SetDefault("client.timeout", "30s")
}

// bindEnv maps JOURNAL_<SECTION>_<KEY> onto every key, plus the bare names
// the deployment environment already uses.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("JOURNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("database.url", "JOURNAL_DATABASE_URL", "DATABASE_URL")
	v.BindEnv("auth.jwt_secret", "JOURNAL_AUTH_JWT_SECRET", "JWT_SECRET")
	v.BindEnv("server.port", "JOURNAL_SERVER_PORT", "PORT")
}

func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, key := range []string{"JOURNAL_ENV", "NODE_ENV"} {
		if strings.EqualFold(os.Getenv(key), "production") {
			cfg.Server.Production = true
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be between 1 and 65535, got %d", jerrors.ErrConfigInvalid, c.Server.Port)
	}
	if c.Server.BodyLimitMB < 1 {
		return fmt.Errorf("%w: server.body_limit_mb must be at least 1", jerrors.ErrConfigInvalid)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: server.shutdown_timeout must be non-negative", jerrors.ErrConfigInvalid)
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("%w: auth.token_ttl must be non-negative", jerrors.ErrConfigInvalid)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("%w: auth.bcrypt_cost must be between %d and %d",
			jerrors.ErrConfigInvalid, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Database.URL == "" && c.Database.SQLitePath == "" {
		return fmt.Errorf("%w: database.sqlite_path is required when database.url is empty", jerrors.ErrConfigInvalid)
	}
	if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
		return fmt.Errorf("%w: unknown logging.level %q", jerrors.ErrConfigInvalid, c.Logging.Level)
	}
	if c.Client.Timeout < 0 {
		return fmt.Errorf("%w: client.timeout must be non-negative", jerrors.ErrConfigInvalid)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// BodyLimit returns the request body limit in bytes.
func (c *Config) BodyLimit() int64 {
	return int64(c.Server.BodyLimitMB) << 20
}

// UsesPostgres reports whether the PostgreSQL backend is configured.
func (c *Config) UsesPostgres() bool {
	return strings.TrimSpace(c.Database.URL) != ""
}

// LogConfig converts the logging section for the logging package.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}
