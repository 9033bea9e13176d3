// Package config loads solarlabel settings from a TOML file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Paths contains file and directory locations
type Paths struct {
	LabelLog    string `toml:"label_log"`
	DownloadDir string `toml:"download_dir"`
}

// Archive contains settings for the remote observation archive
type Archive struct {
	BaseURL        string `toml:"base_url"`
	Instrument     string `toml:"instrument"`
	Wavelength     string `toml:"wavelength"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Server contains settings for the labeling API
type Server struct {
	Bind string `toml:"bind"`
}

// Logging contains settings for diagnostic output
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Summary contains settings for LLM label summaries
type Summary struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
}

// Config is the full solarlabel configuration
type Config struct {
	Paths   Paths   `toml:"paths"`
	Archive Archive `toml:"archive"`
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
	Summary Summary `toml:"summary"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Paths: Paths{
			LabelLog:    "labels.txt",
			DownloadDir: "~/sunpy/data",
		},
		Archive: Archive{
			BaseURL:        "https://api.helioviewer.org",
			Instrument:     "aia",
			Wavelength:     "171",
			TimeoutSeconds: 30,
		},
		Server: Server{
			Bind: "127.0.0.1:8888",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Summary: Summary{
			Provider: "ollama",
		},
	}
}

// Load reads the config file at path, or the first default location that
// exists, then applies environment overrides. It reports the resolved path and
// whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file not found: %s", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := ExpandPath("~/.config/solarlabel/config.toml")
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("solarlabel.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"SOLARLABEL_LABEL_LOG", &c.Paths.LabelLog},
		{"SOLARLABEL_DOWNLOAD_DIR", &c.Paths.DownloadDir},
		{"HELIOVIEWER_URL", &c.Archive.BaseURL},
		{"SOLARLABEL_BIND", &c.Server.Bind},
		{"SOLARLABEL_LOG_LEVEL", &c.Logging.Level},
		{"SUMMARY_PROVIDER", &c.Summary.Provider},
		{"SUMMARY_MODEL", &c.Summary.Model},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.LabelLog, err = ExpandPath(c.Paths.LabelLog); err != nil {
		return err
	}
	if c.Paths.DownloadDir, err = ExpandPath(c.Paths.DownloadDir); err != nil {
		return err
	}
	c.Archive.Instrument = strings.ToLower(strings.TrimSpace(c.Archive.Instrument))
	c.Archive.Wavelength = strings.TrimSpace(c.Archive.Wavelength)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if c.Paths.LabelLog == "" {
		return errors.New("paths.label_log must be set")
	}
	if c.Archive.TimeoutSeconds <= 0 {
		return fmt.Errorf("archive.timeout_seconds must be positive, got %d", c.Archive.TimeoutSeconds)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// ArchiveTimeout returns the archive request timeout
func (c *Config) ArchiveTimeout() time.Duration {
	return time.Duration(c.Archive.TimeoutSeconds) * time.Second
}

// ExpandPath resolves a leading ~ and makes the path absolute
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
