package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Flags are the command line overrides shared by every command. Only flags
// the user actually set override the file.
type Flags struct {
	ConfigPath  string
	Debug       bool
	LogFile     string
	FPS         int
	LoadTimeout time.Duration
	CatalogPath string
	StorageDir  string
	Mesher      string

	fs *pflag.FlagSet
}

// Register adds the flags to fs, typically a cobra command's persistent
// flags.
func (f *Flags) Register(fs *pflag.FlagSet) {
	f.fs = fs
	fs.StringVar(&f.ConfigPath, "config", "", "path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "also write logs to this file")
	fs.IntVar(&f.FPS, "fps", 0, "target frames per second")
	fs.DurationVar(&f.LoadTimeout, "load-timeout", 0, "give up on a design load after this long")
	fs.StringVar(&f.CatalogPath, "catalog", "", "catalog YAML file")
	fs.StringVar(&f.StorageDir, "storage", "", "directory holding design files")
	fs.StringVar(&f.Mesher, "mesher", "", "external STEP mesher command")
}

func (f *Flags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.changed("log-file") {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.changed("fps") && f.FPS > 0 {
		cfg.Viewer.FPS = f.FPS
	}
	if f.changed("load-timeout") && f.LoadTimeout > 0 {
		cfg.Viewer.LoadTimeout = f.LoadTimeout
	}
	if f.changed("catalog") {
		cfg.Catalog.Path = f.CatalogPath
	}
	if f.changed("storage") {
		cfg.Catalog.StorageDir = f.StorageDir
	}
	if f.changed("mesher") {
		cfg.Decoder.STEP.Command = f.Mesher
		cfg.Decoder.STEP.Enabled = f.Mesher != ""
	}
}
