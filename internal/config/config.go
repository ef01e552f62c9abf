package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/Ning0612/mercury/internal/domain"
)

// DefaultStorageName is the storage used when none is selected
const DefaultStorageName = "default"

// Config represents the complete configuration for mercury
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Auth     AuthConfig      `mapstructure:"auth"`
	Logging  LoggingConfig   `mapstructure:"logging"`
	Views    ViewsConfig     `mapstructure:"views"`
	State    StateConfig     `mapstructure:"state"`
	Storages []StorageConfig `mapstructure:"storages"`
}

// ServerConfig locates the platform services
type ServerConfig struct {
	// BaseURL is the platform root, e.g. https://fairspace.example.org
	BaseURL string `mapstructure:"base_url"`

	// APIPath is the prefix of the JSON APIs (vocabulary, metadata, views, users)
	APIPath string `mapstructure:"api_path"`

	// WebDAVPath is the prefix of the file API
	WebDAVPath string `mapstructure:"webdav_path"`

	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds credentials for the platform APIs. Either a static
// bearer token or OAuth2 client credentials may be given.
type AuthConfig struct {
	BearerToken  string   `mapstructure:"bearer_token"`
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

// UsesClientCredentials reports whether an OAuth2 token source should be built
func (a AuthConfig) UsesClientCredentials() bool {
	return a.TokenURL != "" && a.ClientID != ""
}

// LoggingConfig configures internal/logger
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ViewsConfig configures the metadata view fetcher
type ViewsConfig struct {
	PageSize       int           `mapstructure:"page_size"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CountTimeout   time.Duration `mapstructure:"count_timeout"`
}

// StateConfig locates local state
type StateConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// StorageConfig defines a file tree mercury can browse
type StorageConfig struct {
	Name string             `mapstructure:"name"`
	Type domain.StorageType `mapstructure:"type"`

	// Label is shown instead of the name when set
	Label string `mapstructure:"label"`

	// URL of a WebDAV storage; defaults to the platform's own file API
	URL string `mapstructure:"url"`

	// Root is a directory for local storages and a folder path for gdrive
	Root string `mapstructure:"root"`

	// Credentials path for auth (gdrive)
	Credentials string `mapstructure:"credentials"`
}

// DisplayName returns the label or the name
func (s StorageConfig) DisplayName() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: server.base_url must be an absolute http(s) URL: %q", domain.ErrConfigInvalid, c.Server.BaseURL)
		}
	} else if len(c.Storages) == 0 {
		return fmt.Errorf("%w: server.base_url is required when no storages are configured", domain.ErrConfigInvalid)
	}

	if c.Server.Timeout < 0 {
		return fmt.Errorf("%w: server.timeout cannot be negative", domain.ErrConfigInvalid)
	}
	if c.Views.PageSize <= 0 {
		return fmt.Errorf("%w: views.page_size must be positive", domain.ErrConfigInvalid)
	}
	if c.Auth.ClientID != "" && c.Auth.TokenURL == "" {
		return fmt.Errorf("%w: auth.token_url is required with auth.client_id", domain.ErrConfigInvalid)
	}

	names := make(map[string]bool)
	for _, s := range c.Storages {
		if s.Name == "" {
			return fmt.Errorf("%w: storage name cannot be empty", domain.ErrConfigInvalid)
		}
		if names[s.Name] {
			return fmt.Errorf("%w: duplicate storage name: %s", domain.ErrConfigInvalid, s.Name)
		}
		if !s.Type.IsValid() {
			return fmt.Errorf("%w: invalid storage type: %s", domain.ErrConfigInvalid, s.Type)
		}
		switch s.Type {
		case domain.StorageLocal:
			if s.Root == "" {
				return fmt.Errorf("%w: storage %s has no root path", domain.ErrConfigInvalid, s.Name)
			}
		case domain.StorageGDrive:
			if s.Credentials == "" {
				return fmt.Errorf("%w: storage %s has no credentials", domain.ErrConfigInvalid, s.Name)
			}
		case domain.StorageWebDAV:
			if s.URL == "" && c.Server.BaseURL == "" {
				return fmt.Errorf("%w: storage %s has no url and server.base_url is empty", domain.ErrConfigInvalid, s.Name)
			}
		}
		names[s.Name] = true
	}

	return nil
}

// GetStorage returns a storage by name. An empty name selects the first
// configured storage, or the platform's own WebDAV tree when there is none.
func (c *Config) GetStorage(name string) (*StorageConfig, error) {
	if name == "" {
		if len(c.Storages) > 0 {
			return &c.Storages[0], nil
		}
		name = DefaultStorageName
	}
	for i := range c.Storages {
		if c.Storages[i].Name == name {
			return &c.Storages[i], nil
		}
	}
	if name == DefaultStorageName && c.Server.BaseURL != "" {
		return &StorageConfig{Name: DefaultStorageName, Type: domain.StorageWebDAV}, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrStorageNotFound, name)
}

// WebDAVURL returns the file API root for a WebDAV storage
func (c *Config) WebDAVURL(s *StorageConfig) string {
	if s != nil && s.URL != "" {
		return s.URL
	}
	return joinURL(c.Server.BaseURL, c.Server.WebDAVPath)
}

// APIURL returns the root of the JSON APIs
func (c *Config) APIURL() string {
	return joinURL(c.Server.BaseURL, c.Server.APIPath)
}

// HistoryDir returns the directory holding the operation history database
func (c *Config) HistoryDir() string {
	return ExpandPath(c.State.DataDir)
}

func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + path
	}
	return u.JoinPath(path).String()
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
