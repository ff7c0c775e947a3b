// Package config loads the label engine configuration from YAML
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/raster"
	"github.com/thereceipt/label-engine/internal/renderer"
	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration
type Config struct {
	Server  ServerConfig     `yaml:"server"`
	Render  renderer.Options `yaml:"render"`
	Images  ImagesConfig     `yaml:"images"`
	Printer PrinterConfig    `yaml:"printer"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	BindAddress string `yaml:"bind_address"`
	Port        string `yaml:"port"`
}

// ImagesConfig controls how image elements are fetched
type ImagesConfig struct {
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
	MaxBytes            int64  `yaml:"max_bytes"`
	BaseDir             string `yaml:"base_dir"`
	PrefetchWorkers     int    `yaml:"prefetch_workers"`
}

// PrinterConfig names the default delivery target. Target may be empty and
// may name a registered printer. An empty RegistryPath keeps named printers
// in memory only.
type PrinterConfig struct {
	Target             string `yaml:"target"`
	DialTimeoutSeconds int    `yaml:"dial_timeout_seconds"`
	RegistryPath       string `yaml:"registry_path"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddress: "",
			Port:        "12212",
		},
		Render: renderer.Options{
			DPI: 203,
		},
		Images: ImagesConfig{
			FetchTimeoutSeconds: 10,
			MaxBytes:            10 << 20,
			PrefetchWorkers:     raster.DefaultWorkers,
		},
		Printer: PrinterConfig{
			DialTimeoutSeconds: 5,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			cfg.resolvePaths(filepath.Dir(path))
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides values from SERVER_PORT, LABEL_PRINTER and LABEL_DPI
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if port, ok := lookup("SERVER_PORT"); ok && port != "" {
		c.Server.Port = port
	}

	if target, ok := lookup("LABEL_PRINTER"); ok {
		c.Printer.Target = target
	}

	if dpi, ok := lookup("LABEL_DPI"); ok && dpi != "" {
		n, err := strconv.Atoi(dpi)
		if err != nil {
			return fmt.Errorf("LABEL_DPI: %w", err)
		}
		c.Render.DPI = n
	}

	return nil
}

// Validate checks the values that would otherwise fail at request time
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("server.port: invalid port %q", c.Server.Port)
	}

	if err := c.Render.Validate(); errors.Is(err, renderer.ErrInvalidDPI) {
		return fmt.Errorf("render: %w", err)
	}

	if c.Images.FetchTimeoutSeconds < 0 {
		return errors.New("images.fetch_timeout_seconds cannot be negative")
	}
	if c.Images.MaxBytes < 0 {
		return errors.New("images.max_bytes cannot be negative")
	}
	if c.Images.PrefetchWorkers < 0 {
		return errors.New("images.prefetch_workers cannot be negative")
	}

	if c.Printer.DialTimeoutSeconds < 0 {
		return errors.New("printer.dial_timeout_seconds cannot be negative")
	}

	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.BindAddress, c.Server.Port)
}

// FetchTimeout returns the image fetch timeout, zero meaning none
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Images.FetchTimeoutSeconds) * time.Second
}

// DialTimeout returns the printer connection timeout
func (c *Config) DialTimeout() time.Duration {
	if c.Printer.DialTimeoutSeconds == 0 {
		return printer.DefaultDialTimeout
	}
	return time.Duration(c.Printer.DialTimeoutSeconds) * time.Second
}

// resolvePaths makes relative paths relative to the config file
func (c *Config) resolvePaths(configDir string) {
	if c.Images.BaseDir != "" && !filepath.IsAbs(c.Images.BaseDir) {
		c.Images.BaseDir = filepath.Join(configDir, c.Images.BaseDir)
	}
	if c.Printer.RegistryPath != "" && !filepath.IsAbs(c.Printer.RegistryPath) {
		c.Printer.RegistryPath = filepath.Join(configDir, c.Printer.RegistryPath)
	}
}
