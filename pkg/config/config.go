package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const defaultConfigFileName = "modelrelay.toml"

type TLSConfig struct {
	Enabled  bool   `toml:"enabled"`
	Domain   string `toml:"domain"`
	Email    string `toml:"email"`
	CacheDir string `toml:"cache_dir"`
}

type ServerConfig struct {
	ListenAddr     string    `toml:"listen_addr"`
	UpstreamURL    string    `toml:"upstream_url"`
	ModelMapPath   string    `toml:"model_map_path"`
	TimeoutSeconds int       `toml:"timeout_seconds,omitempty"`
	LogLevel       string    `toml:"loglevel,omitempty"`
	TLS            TLSConfig `toml:"tls"`
}

func DefaultServerConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultConfigFileName
	}
	return filepath.Join(home, ".config", "modelrelay", defaultConfigFileName)
}

func DefaultModelMapPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "models.json"
	}
	return filepath.Join(home, ".config", "modelrelay", "models.json")
}

func DefaultTLSCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "autocert"
	}
	return filepath.Join(home, ".cache", "modelrelay", "autocert")
}

func NewDefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ListenAddr:     "127.0.0.1:8000",
		UpstreamURL:    "https://api.openai.com/v1/chat/completions",
		ModelMapPath:   DefaultModelMapPath(),
		TimeoutSeconds: 300,
		LogLevel:       "info",
		TLS: TLSConfig{
			CacheDir: DefaultTLSCacheDir(),
		},
	}
}

func LoadServerConfig(path string) (*ServerConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewDefaultServerConfig()
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefaultServerConfig falls back to the built-in defaults when no
// config file exists. Any other read or parse failure is still an error.
func LoadOrDefaultServerConfig(path string) (*ServerConfig, error) {
	cfg, err := LoadServerConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = NewDefaultServerConfig()
			cfg.Normalize()
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *ServerConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write config temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

func (c *ServerConfig) Normalize() {
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	if c.ListenAddr == "" {
		c.ListenAddr = "127.0.0.1:8000"
	}
	c.UpstreamURL = strings.TrimSpace(c.UpstreamURL)
	c.ModelMapPath = strings.TrimSpace(c.ModelMapPath)
	if c.ModelMapPath == "" {
		c.ModelMapPath = DefaultModelMapPath()
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 300
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.TLS.Domain = strings.TrimSpace(c.TLS.Domain)
	c.TLS.Email = strings.TrimSpace(c.TLS.Email)
	c.TLS.CacheDir = strings.TrimSpace(c.TLS.CacheDir)
	if c.TLS.CacheDir == "" {
		c.TLS.CacheDir = DefaultTLSCacheDir()
	}
}

func (c *ServerConfig) Validate() error {
	if c.UpstreamURL == "" {
		return fmt.Errorf("upstream_url is required")
	}
	u, err := url.Parse(c.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream_url %q is not a valid absolute URL", c.UpstreamURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream_url scheme %q must be http or https", u.Scheme)
	}
	if c.TLS.Enabled && c.TLS.Domain == "" {
		return fmt.Errorf("tls.domain is required when tls.enabled is set")
	}
	return nil
}
