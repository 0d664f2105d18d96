package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// Config is the top-level vitrina configuration, loaded from a TOML file.
type Config struct {
	StorageDir    string                `toml:"storage_dir"`
	FetchInterval Duration              `toml:"fetch_interval"`
	Server        ServerConfig          `toml:"server"`
	Auth          AuthConfig            `toml:"auth"`
	Sources       map[string]SourceInfo `toml:"sources"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// AuthConfig configures token issuance. JWTSecret may be overridden with the
// VITRINA_JWT_SECRET environment variable so the secret can stay out of the
// config file.
type AuthConfig struct {
	JWTSecret string   `toml:"jwt_secret"`
	TokenTTL  Duration `toml:"token_ttl"`
}

// Duration wraps time.Duration so it round-trips through TOML as a string
// like "30m" or "1h".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// SourceInfo describes one configured scraping source instance.
type SourceInfo struct {
	Type string `toml:"type"`
	// Owner is the id of the user whose collection this source feeds.
	Owner string `toml:"owner"`
	// Interval specifies how often this source should be scraped.
	// If not specified, the global fetch_interval applies.
	Interval *Duration   `toml:"interval,omitempty"`
	Config   interface{} `toml:"config"`
}

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	return &Config{
		StorageDir:    storageDir,
		FetchInterval: Duration{6 * time.Hour},
		Server:        ServerConfig{Host: "localhost", Port: 8080},
		Auth:          AuthConfig{TokenTTL: Duration{24 * time.Hour}},
		Sources:       make(map[string]SourceInfo),
	}, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}

	if config.FetchInterval.Duration == 0 {
		config.FetchInterval = Duration{6 * time.Hour}
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Auth.TokenTTL.Duration == 0 {
		config.Auth.TokenTTL = Duration{24 * time.Hour}
	}
	if secret := os.Getenv("VITRINA_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}

	if config.Sources == nil {
		config.Sources = make(map[string]SourceInfo)
	}

	return &config, nil
}

// DatabasePath returns the path of the catalog database inside StorageDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.StorageDir, "vitrina.db")
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0600)
}

// SaveTemplateConfig writes the commented sample configuration, pointing
// storage_dir at the user's data directory.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return fmt.Errorf("getting default storage directory: %w", err)
		}
	}

	template := strings.Replace(configTemplate, "/home/user/.local/share/vitrina", storageDir, 1)
	return os.WriteFile(configPath, []byte(template), 0600)
}

func (c *Config) AddSource(name, sourceType, owner string, srcConfig interface{}, interval *Duration) {
	c.Sources[name] = SourceInfo{
		Type:     sourceType,
		Owner:    owner,
		Interval: interval,
		Config:   srcConfig,
	}
}

func (c *Config) GetSourceConfig(name string) (SourceInfo, error) {
	info, exists := c.Sources[name]
	if !exists {
		return SourceInfo{}, fmt.Errorf("source %s not found", name)
	}
	return info, nil
}

func (c *Config) GetSourceInterval(name string) time.Duration {
	info, exists := c.Sources[name]
	if !exists || info.Interval == nil {
		return c.FetchInterval.Duration
	}
	return info.Interval.Duration
}

func (c *Config) ListSources() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	return names
}

func (c *Config) RemoveSource(name string) {
	delete(c.Sources, name)
}

// GetDefaultStorageDir returns the default directory for the catalog
// database, honoring XDG_DATA_HOME.
func GetDefaultStorageDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	vitrinaDir := filepath.Join(dataDir, "vitrina")
	if err := os.MkdirAll(vitrinaDir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", vitrinaDir, err)
	}

	return vitrinaDir, nil
}

// GetConfigDir returns the configuration directory, honoring XDG_CONFIG_HOME.
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	vitrinaConfigDir := filepath.Join(configDir, "vitrina")
	if err := os.MkdirAll(vitrinaConfigDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", vitrinaConfigDir, err)
	}

	return vitrinaConfigDir, nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
