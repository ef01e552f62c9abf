package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Ning0612/mercury/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. MERCURY_SERVER_BASE_URL
const EnvPrefix = "MERCURY"

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "mercury"))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".mercury"))
	}

	return paths
}

// DefaultDataDir is where the history database lives unless configured
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "mercury")
	}
	return filepath.Join(os.TempDir(), "mercury")
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.base_url", "")
	v.SetDefault("server.api_path", "/api")
	v.SetDefault("server.webdav_path", "/api/webdav")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("auth.bearer_token", "")
	v.SetDefault("auth.token_url", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("views.page_size", 100)
	v.SetDefault("views.request_timeout", 60*time.Second)
	v.SetDefault("views.count_timeout", 60*time.Second)
	v.SetDefault("state.data_dir", DefaultDataDir())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads and parses a configuration file.
// If path is empty, searches default locations for config.yaml
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

// LoadFromEnv builds a configuration from defaults and MERCURY_* variables
// only, for use without a config file.
func LoadFromEnv() (*Config, error) {
	return decode(newViper())
}

// LoadFromString parses configuration from a YAML string
func LoadFromString(yamlContent string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	for i := range cfg.Storages {
		if cfg.Storages[i].Type == "" {
			cfg.Storages[i].Type = domain.StorageWebDAV
		}
		if cfg.Storages[i].Type == domain.StorageLocal {
			cfg.Storages[i].Root = ExpandPath(cfg.Storages[i].Root)
		}
		cfg.Storages[i].Credentials = ExpandPath(cfg.Storages[i].Credentials)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
