package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	envToken    = "LBX_TOKEN"
	envUsername = "LBX_USERNAME"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	ListenBrainz ListenBrainzConfig `toml:"listenbrainz"`
	Database     DatabaseConfig     `toml:"database"`
	Server       ServerConfig       `toml:"server"`
	Export       ExportConfig       `toml:"export"`
}

// ListenBrainzConfig contains the API location and the user's credentials.
type ListenBrainzConfig struct {
	APIURL            string  `toml:"api_url"`
	SiteURL           string  `toml:"site_url"`
	Username          string  `toml:"username"`
	Token             string  `toml:"token"`
	PageSize          int     `toml:"page_size"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Timeout returns the configured HTTP timeout, defaulting to 30 seconds.
func (c ListenBrainzConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr joins host and port into a listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ExportConfig contains defaults for feed and cover art exports.
type ExportConfig struct {
	OutputDir string `toml:"output_dir"`
	Workers   int    `toml:"workers"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults, and LBX_TOKEN / LBX_USERNAME override the credentials.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	config.applyEnv()
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// Validate reports whether the credentials needed for authenticated feed calls are present.
func (c *Config) Validate() error {
	if c.ListenBrainz.APIURL == "" {
		return fmt.Errorf("%w: listenbrainz.api_url is empty", ErrInvalidConfig)
	}
	if c.ListenBrainz.Username == "" || c.ListenBrainz.Token == "" {
		return fmt.Errorf("%w: set listenbrainz.username and listenbrainz.token (or %s / %s)", ErrMissingCredentials, envUsername, envToken)
	}
	if c.ListenBrainz.PageSize < 0 {
		return fmt.Errorf("%w: listenbrainz.page_size must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyEnv() {
	if tok := os.Getenv(envToken); tok != "" {
		c.ListenBrainz.Token = tok
	}
	if user := os.Getenv(envUsername); user != "" {
		c.ListenBrainz.Username = user
	}
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
