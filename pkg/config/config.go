// Package config handles configuration for jyn sessions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/devicelab-dev/jyn/pkg/core"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied on top of the config file.
const (
	EnvConfig  = "JYN_CONFIG"
	EnvDevice  = "JYN_DEVICE"
	EnvTimeout = "JYN_TIMEOUT"
	EnvLog     = "JYN_LOG"
)

// Config represents the workspace configuration (jyn.yaml).
type Config struct {
	Device  string `yaml:"device"`  // adb serial; empty = first connected device
	Timeout int    `yaml:"timeout"` // ms, wait used by CLI commands
	Poll    int    `yaml:"poll"`    // ms between top-level window checks
	Log     string `yaml:"log"`     // log file path; empty = no log

	Server ServerConfig `yaml:"server"`
}

// ServerConfig configures the UIAutomator2 server on the device.
type ServerConfig struct {
	DevicePort         int    `yaml:"devicePort"`
	SocketPath         string `yaml:"socketPath"` // Linux/Mac only
	LocalPort          int    `yaml:"localPort"`  // Windows only
	StartupTimeout     int    `yaml:"startupTimeout"`
	WaitForIdleTimeout *int   `yaml:"waitForIdleTimeout"` // nil = server default
	APKDir             string `yaml:"apkDir"`
	AutoInstall        *bool  `yaml:"autoInstall"`
}

// Defaults
const (
	DefaultTimeoutMs        = 5000
	DefaultPollMs           = 500
	DefaultDevicePort       = 6790
	DefaultStartupTimeoutMs = 30000
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeoutMs
	}
	if c.Poll == 0 {
		c.Poll = DefaultPollMs
	}
	if c.Server.DevicePort == 0 {
		c.Server.DevicePort = DefaultDevicePort
	}
	if c.Server.StartupTimeout == 0 {
		c.Server.StartupTimeout = DefaultStartupTimeoutMs
	}
	if c.Server.AutoInstall == nil {
		v := true
		c.Server.AutoInstall = &v
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromDir looks for jyn.yaml or jyn.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"jyn.yaml", "jyn.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	return Default(), nil
}

// FromEnv resolves the configuration a test process should use: the file
// named by $JYN_CONFIG, else jyn.yaml in the working directory, with
// $JYN_DEVICE, $JYN_TIMEOUT and $JYN_LOG layered on top.
func FromEnv() (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path := os.Getenv(EnvConfig); path != "" {
		cfg, err = Load(path)
	} else {
		cfg, err = LoadFromDir(".")
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDevice); v != "" {
		c.Device = v
	}
	if v := os.Getenv(EnvLog); v != "" {
		c.Log = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("%s must be milliseconds", EnvTimeout)).WithCause(err)
		}
		c.Timeout = ms
	}
	return c.Validate()
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Timeout < 0:
		return core.ErrInvalidConfig.WithMessage("timeout must not be negative")
	case c.Poll < 0:
		return core.ErrInvalidConfig.WithMessage("poll must not be negative")
	case c.Server.DevicePort < 0 || c.Server.DevicePort > 65535:
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("invalid device port %d", c.Server.DevicePort))
	case c.Server.LocalPort < 0 || c.Server.LocalPort > 65535:
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("invalid local port %d", c.Server.LocalPort))
	case c.Server.StartupTimeout < 0:
		return core.ErrInvalidConfig.WithMessage("server.startupTimeout must not be negative")
	}
	return nil
}

// TimeoutDuration returns Timeout as a duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// PollInterval returns Poll as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll) * time.Millisecond
}

// StartupTimeoutDuration returns the server startup timeout as a duration.
func (s ServerConfig) StartupTimeoutDuration() time.Duration {
	return time.Duration(s.StartupTimeout) * time.Millisecond
}

// APKDirectory returns where the UIAutomator2 APKs are looked up.
func (s ServerConfig) APKDirectory() string {
	if s.APKDir != "" {
		return s.APKDir
	}
	return GetDriversDir("android")
}
