package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/cliossg/pagekit/pkg/cl/validation"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file read from the working directory.
const DefaultFile = "pagekit.yaml"

type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Manifest ManifestConfig `yaml:"manifest"`
}

type SiteConfig struct {
	Name         string `yaml:"name"`
	URL          string `yaml:"url"`        // base for absolute URLs, e.g. https://example.com
	Path         string `yaml:"path"`       // site root holding pages/, templates/, static/
	BuildPath    string `yaml:"build_path"` // output root
	PrettifyURLs bool   `yaml:"prettify_urls"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ManifestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file or environment overrides apply.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			Name:         "My Site",
			Path:         ".",
			BuildPath:    ".build",
			PrettifyURLs: true,
		},
		Server:   ServerConfig{Addr: ":8000"},
		Log:      LogConfig{Level: "info"},
		Manifest: ManifestConfig{Enabled: true, Path: ".pagekit/manifest.db"},
	}
}

// Load reads path (if present) over the defaults and applies environment overrides.
// A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	// .env never overrides variables already present in the environment.
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// Environment overrides (highest priority)
func applyEnv(cfg *Config) {
	if v := os.Getenv("PAGEKIT_SITE_NAME"); v != "" {
		cfg.Site.Name = v
	}
	if v := os.Getenv("PAGEKIT_SITE_URL"); v != "" {
		cfg.Site.URL = v
	}
	if v := os.Getenv("PAGEKIT_SITE_PATH"); v != "" {
		cfg.Site.Path = v
	}
	if v := os.Getenv("PAGEKIT_BUILD_PATH"); v != "" {
		cfg.Site.BuildPath = v
	}
	if v := os.Getenv("PAGEKIT_PRETTIFY_URLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Site.PrettifyURLs = b
		}
	}
	if v := os.Getenv("PAGEKIT_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PAGEKIT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PAGEKIT_MANIFEST_PATH"); v != "" {
		cfg.Manifest.Path = v
	}
	if v := os.Getenv("PAGEKIT_MANIFEST_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Manifest.Enabled = b
		}
	}
}

// Validate reports every problem at once rather than stopping at the first.
func (c *Config) Validate() error {
	var errs validation.ValidationErrors
	errs.AddError(validation.RequiredString("site.path", c.Site.Path))
	errs.AddError(validation.RequiredString("site.build_path", c.Site.BuildPath))
	errs.AddError(validation.OptionalAbsoluteURL("site.url", c.Site.URL))
	if c.Manifest.Enabled {
		errs.AddError(validation.RequiredString("manifest.path", c.Manifest.Path))
	}
	return errs.AsError()
}
