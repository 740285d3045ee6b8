// Package config loads MANGO settings from TOML, a .env file and the
// environment, in that order of precedence (environment wins).
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-sql-driver/mysql"
	"github.com/icco/mango/lib/validation"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// ErrInvalidConfig wraps every validation failure returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Session  SessionConfig  `toml:"session"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port" validate:"gte=1,lte=65535"`
	RateLimit       int           `toml:"rate_limit" validate:"gte=0"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" validate:"gte=0"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver" validate:"oneof=sqlite postgres mysql"`
	Path         string `toml:"path" validate:"required_if=Driver sqlite"`
	Host         string `toml:"host"`
	Port         int    `toml:"port" validate:"gte=0,lte=65535"`
	Name         string `toml:"name"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"sslmode"`
	MaxOpenConns int    `toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `toml:"max_idle_conns" validate:"gte=0"`
	AutoMigrate  bool   `toml:"auto_migrate"`
}

// DSN returns the driver-specific data source name. Credentials are escaped,
// so empty values or values with spaces and quotes survive intact.
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   d.addr(),
			Path:   "/" + d.Name,
		}
		if d.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
		}
		return u.String()
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = d.addr()
		mc.DBName = d.Name
		mc.ParseTime = true
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN()
	default:
		return d.Path
	}
}

// addr joins host and port. A zero port means the driver's standard port.
func (d DatabaseConfig) addr() string {
	port := d.Port
	if port == 0 {
		switch d.Driver {
		case "mysql":
			port = 3306
		default:
			port = 5432
		}
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(port))
}

// SessionConfig contains cookie session settings.
type SessionConfig struct {
	CookieName string        `toml:"cookie_name" validate:"required"`
	HashKey    string        `toml:"hash_key" validate:"omitempty,hexadecimal"`
	BlockKey   string        `toml:"block_key" validate:"omitempty,hexadecimal"`
	Secure     bool          `toml:"secure"`
	MaxAge     time.Duration `toml:"max_age" validate:"gte=0"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns a Config with defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// LoadConfig reads a TOML file on top of the defaults. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// Load resolves the full configuration: the file at path when it exists
// (defaults otherwise), then .env, then environment overrides.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if config, err = LoadConfig(path); err != nil {
				return nil, err
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"MANGO_DB_DRIVER":         &c.Database.Driver,
		"MANGO_DB_PATH":           &c.Database.Path,
		"MANGO_DB_HOST":           &c.Database.Host,
		"MANGO_DB_NAME":           &c.Database.Name,
		"MANGO_DB_USER":           &c.Database.User,
		"MANGO_DB_PASS":           &c.Database.Password,
		"MANGO_LOG_LEVEL":         &c.Log.Level,
		"MANGO_SESSION_HASH_KEY":  &c.Session.HashKey,
		"MANGO_SESSION_BLOCK_KEY": &c.Session.BlockKey,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PORT":          &c.Server.Port,
		"MANGO_DB_PORT": &c.Database.Port,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, v)
		}
		*dst = n
	}

	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// CreateConfigFile writes the embedded example config to path. It refuses to
// overwrite an existing file.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
