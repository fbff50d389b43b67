// Package config handles designview configuration loading and saving.
package config

import "time"

// Config holds all designview settings.
type Config struct {
	Viewer  ViewerConfig  `yaml:"viewer"`
	Decoder DecoderConfig `yaml:"decoder"`
	Catalog CatalogConfig `yaml:"catalog"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// ViewerConfig holds rendering and loading settings.
type ViewerConfig struct {
	FPS         int           `yaml:"fps"`
	LoadTimeout time.Duration `yaml:"load_timeout"`
	FOV         float64       `yaml:"fov"`        // vertical, degrees
	Background  string        `yaml:"background"` // #rrggbb
	MaxBytes    int64         `yaml:"max_bytes"`  // largest design file fetched
	Damping     float64       `yaml:"damping"`

	// Snapshot size in pixels.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DecoderConfig holds mesh decoder backends.
type DecoderConfig struct {
	STEP STEPConfig `yaml:"step"`
}

// STEPConfig names the external mesher used for STEP files. Args may use
// the {input} and {output} placeholders.
type STEPConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// CatalogConfig holds catalog file locations.
type CatalogConfig struct {
	Path       string `yaml:"path"`        // catalog YAML
	StorageDir string `yaml:"storage_dir"` // uploaded design files
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// PublicURL prefixes design file URLs in lookup responses. Empty uses
	// the request's host.
	PublicURL string `yaml:"public_url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the stock settings.
func Default() *Config {
	return &Config{
		Viewer: ViewerConfig{
			FPS:         30,
			LoadTimeout: 15 * time.Second,
			FOV:         45,
			Background:  "#1a1a2e",
			MaxBytes:    256 << 20,
			Damping:     0.05,
			Width:       800,
			Height:      600,
		},
		Decoder: DecoderConfig{
			STEP: STEPConfig{
				Enabled: true,
				Command: "gmsh",
			},
		},
		Catalog: CatalogConfig{
			Path:       "catalog.yaml",
			StorageDir: "designs",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
