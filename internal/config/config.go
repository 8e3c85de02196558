// Package config resolves padgate's runtime settings: the per-OS mailbox
// and lock directories, the control-pad listen address, the metrics
// address, the tick interval, and the log level. All of it can be
// overridden by an optional YAML file named by the PADGATE_CONFIG
// environment variable -- the gateway's own CLI surface takes no flags.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	log "github.com/rqnio/padgate/pkg/minilog"
)

// Config holds every tunable of the gateway.
type Config struct {
	IPCDir       string `yaml:"ipc_dir"`
	LockDir      string `yaml:"lock_dir"`
	ListenAddr   string `yaml:"listen_addr"`
	MetricsAddr  string `yaml:"metrics_addr"`
	TickInterval string `yaml:"tick_interval"`
	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
}

// EnvVar names the environment variable that points at an optional YAML
// overlay file. There is deliberately no command-line flag for this: the
// gateway binary itself takes none.
const EnvVar = "PADGATE_CONFIG"

// ListenPort is the compiled-in control-pad WebSocket port.
const ListenPort = 50079

// Default returns the compiled-in defaults for the running OS.
func Default() Config {
	c := Config{
		ListenAddr:   fmt.Sprintf("0.0.0.0:%d", ListenPort),
		MetricsAddr:  "127.0.0.1:9540",
		TickInterval: "1500us",
		LogLevel:     "warn",
	}

	switch runtime.GOOS {
	case "darwin":
		c.IPCDir = "/var/tmp/"
		c.LockDir = "/var/tmp"
	case "windows":
		c.IPCDir = `C:\Users\gamenite\`
		c.LockDir = `C:\Users\gamenite`
	default: // linux and other POSIX
		c.IPCDir = "/dev/shm/rqnio/"
		c.LockDir = "/dev/shm"
	}

	return c
}

// Load returns Default(), overlaid with the YAML file named by EnvVar if
// it is set and exists. A missing env var, or a missing file, is not an
// error -- only a malformed file is.
func Load() (Config, error) {
	cfg := Default()

	path := os.Getenv(EnvVar)
	if path == "" {
		return cfg, nil
	}

	if err := overlay(&cfg, path); err != nil {
		return cfg, err
	}

	log.Info("config: loaded overrides from %v", path)
	return cfg, nil
}

func overlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Warn("config: %v points at %v which does not exist, using defaults", EnvVar, path)
		return nil
	} else if err != nil {
		return fmt.Errorf("read config %v: %w", path, err)
	}

	var overrides Config
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse config %v: %w", path, err)
	}

	merge(cfg, overrides)
	return nil
}

// merge copies every non-empty field of src into dst.
func merge(dst *Config, src Config) {
	if src.IPCDir != "" {
		dst.IPCDir = src.IPCDir
	}
	if src.LockDir != "" {
		dst.LockDir = src.LockDir
	}
	if src.ListenAddr != "" {
		dst.ListenAddr = src.ListenAddr
	}
	if src.MetricsAddr != "" {
		dst.MetricsAddr = src.MetricsAddr
	}
	if src.TickInterval != "" {
		dst.TickInterval = src.TickInterval
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.LogFile != "" {
		dst.LogFile = src.LogFile
	}
}
