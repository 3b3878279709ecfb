package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Renderer selects how exports are produced.
type Renderer string

const (
	// RendererLocal renders the printable document with a headless
	// Chromium instance on this host. PDF only.
	RendererLocal Renderer = "local"
	// RendererRemote submits the populated grid to a remote
	// document-generation service. PDF and Word.
	RendererRemote Renderer = "remote"
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API server.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for "today" and month
	// navigation defaults (e.g. "Australia/Sydney").
	Timezone string `yaml:"timezone" json:"timezone"`

	// RootURL is the base URL of the remote WordPress REST API that
	// serves activities, custom events and member notes. If empty,
	// upstream-dependent features are disabled with a warning.
	RootURL string `yaml:"root_url" json:"root_url"`

	// RestNonce authorizes write requests (notes, background upload)
	// against the remote store. If empty, writes are disabled.
	RestNonce string `yaml:"rest_nonce" json:"rest_nonce"`

	// Renderer selects the export realization: "local" or "remote".
	Renderer Renderer `yaml:"renderer" json:"renderer"`

	// RenderURL is the remote document-generation endpoint, required
	// when Renderer is "remote".
	RenderURL string `yaml:"render_url" json:"render_url"`

	// RefreshCron is a cron schedule for refreshing the upstream data
	// cache (e.g. "*/15 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// DataDir holds the upstream response cache and the preferences
	// database.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// DefaultFontSize is the event label font size (px) used when a
	// member has not chosen one.
	DefaultFontSize int `yaml:"default_font_size" json:"default_font_size"`

	// PageWidth / PageHeight are the logical dimensions of the
	// printable page.
	PageWidth  int `yaml:"page_width" json:"page_width"`
	PageHeight int `yaml:"page_height" json:"page_height"`

	// LogoURL is rendered in the header band of exported documents.
	LogoURL string `yaml:"logo_url" json:"logo_url"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		Timezone:        "Australia/Sydney",
		Renderer:        RendererLocal,
		RefreshCron:     "*/15 * * * *",
		DataDir:         "./var",
		DefaultFontSize: 14,
		PageWidth:       1080,
		PageHeight:      794,
	}
}

// Normalize fills in missing/zero values so partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Australia/Sydney"
	}
	switch c.Renderer {
	case RendererLocal, RendererRemote:
	default:
		c.Renderer = RendererLocal
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.DataDir == "" {
		c.DataDir = "./var"
	}
	if c.DefaultFontSize <= 0 {
		c.DefaultFontSize = 14
	}
	if c.PageWidth <= 0 {
		c.PageWidth = 1080
	}
	if c.PageHeight <= 0 {
		c.PageHeight = 794
	}
}

// Validate reports configuration combinations that cannot work at all.
// A missing RootURL is not an error here; affected features degrade at
// runtime instead.
func (c *Config) Validate() error {
	if c.Renderer == RendererRemote && c.RenderURL == "" {
		return errors.New("renderer \"remote\" requires render_url")
	}
	return nil
}

// HasUpstream reports whether the remote event source is configured.
func (c *Config) HasUpstream() bool { return c.RootURL != "" }

// CanWrite reports whether authenticated writes (notes, uploads) are
// possible.
func (c *Config) CanWrite() bool { return c.RootURL != "" && c.RestNonce != "" }

// Load loads configuration from the given YAML path. If the file does
// not exist a default config is written there (0600) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename, 0600).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventscal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
