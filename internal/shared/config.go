package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific OAuth credentials.
type CredentialsConfig struct {
	Google    GoogleConfig    `toml:"google"`
	Wikimedia WikimediaConfig `toml:"wikimedia"`
}

// GoogleConfig contains Google OAuth 2.0 client credentials.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// WikimediaConfig contains Wikimedia OAuth 2.0 consumer credentials.
type WikimediaConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	UserAgent    string `toml:"user_agent"`
}

// DatabaseConfig contains session database connection settings.
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

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// After parsing, secrets present in the process environment override file values,
// so deployments can keep client secrets out of the config file entirely.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()
	return &config, nil
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

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotenv loads environment variables from a .env file if one exists.
//
// Missing files are not an error; credentials may come from the real environment.
func LoadDotenv() {
	_ = godotenv.Load()
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"GOOGLE_CLIENT_ID":     &c.Credentials.Google.ClientID,
		"GOOGLE_CLIENT_SECRET": &c.Credentials.Google.ClientSecret,
		"GOOGLE_REDIRECT_URI":  &c.Credentials.Google.RedirectURI,
		"WIKI_CLIENT_ID":       &c.Credentials.Wikimedia.ClientID,
		"WIKI_CLIENT_SECRET":   &c.Credentials.Wikimedia.ClientSecret,
		"WIKI_REDIRECT_URI":    &c.Credentials.Wikimedia.RedirectURI,
	}

	for key, target := range overrides {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
}

// Addr returns the host:port pair the HTTP server should listen on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
