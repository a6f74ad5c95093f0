package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/rpggio/council/internal/identity"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. COUNCIL_SERVER_PORT.
const EnvPrefix = "council"

// Config defines server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	DB         DBConfig         `yaml:"db"`
	Log        LogConfig        `yaml:"log"`
	Transport  TransportConfig  `yaml:"transport"`
	Auth       AuthConfig       `yaml:"auth"`
	Governance GovernanceConfig `yaml:"governance"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Path, when set, sends logs to a size-bounded file.
	Path string `yaml:"path"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

type GovernanceConfig struct {
	Authority string `yaml:"authority"`
	// StdioIdentity is the caller for stdio sessions and for HTTP with
	// auth disabled. Defaults to the authority.
	StdioIdentity string `yaml:"stdioIdentity" split_words:"true"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 5 * time.Second,
		},
		DB: DBConfig{
			Path: "council.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads defaults, then the YAML file at path (or COUNCIL_CONFIG_PATH
// when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("COUNCIL_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Authority(); err != nil {
		errs = append(errs, fmt.Errorf("governance.authority: %w", err))
	}
	if c.Governance.StdioIdentity != "" {
		if _, err := identity.Parse(c.Governance.StdioIdentity); err != nil {
			errs = append(errs, fmt.Errorf("governance.stdioIdentity: %w", err))
		}
	}
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		errs = append(errs, fmt.Errorf("transport.mode: %q must be stdio or http", c.Transport.Mode))
	}
	if c.Transport.Mode == "http" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: %q must be text or json", c.Log.Format))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path: required"))
	}
	return errors.Join(errs...)
}

// Authority parses the configured authority identity.
func (c Config) Authority() (common.Address, error) {
	if c.Governance.Authority == "" {
		return common.Address{}, fmt.Errorf("%w: not set", identity.ErrInvalidIdentity)
	}
	return identity.Parse(c.Governance.Authority)
}

// FixedIdentity is the caller used when requests carry no credentials.
func (c Config) FixedIdentity() (common.Address, error) {
	if c.Governance.StdioIdentity == "" {
		return c.Authority()
	}
	return identity.Parse(c.Governance.StdioIdentity)
}
