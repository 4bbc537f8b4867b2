package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devicelab-dev/jyn/pkg/core"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "jyn.yaml", `
device: emulator-5554
timeout: 8000
poll: 250
log: /tmp/jyn.log
server:
  devicePort: 6791
  socketPath: /tmp/custom.sock
  startupTimeout: 60000
  waitForIdleTimeout: 0
  apkDir: /opt/apks
  autoInstall: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Device != "emulator-5554" {
		t.Errorf("expected device emulator-5554, got %s", cfg.Device)
	}
	if cfg.TimeoutDuration() != 8*time.Second {
		t.Errorf("expected 8s timeout, got %v", cfg.TimeoutDuration())
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Errorf("expected 250ms poll, got %v", cfg.PollInterval())
	}
	if cfg.Log != "/tmp/jyn.log" {
		t.Errorf("expected log /tmp/jyn.log, got %s", cfg.Log)
	}
	if cfg.Server.DevicePort != 6791 {
		t.Errorf("expected devicePort 6791, got %d", cfg.Server.DevicePort)
	}
	if cfg.Server.SocketPath != "/tmp/custom.sock" {
		t.Errorf("expected socketPath /tmp/custom.sock, got %s", cfg.Server.SocketPath)
	}
	if cfg.Server.StartupTimeoutDuration() != time.Minute {
		t.Errorf("expected 1m startup, got %v", cfg.Server.StartupTimeoutDuration())
	}
	if cfg.Server.WaitForIdleTimeout == nil || *cfg.Server.WaitForIdleTimeout != 0 {
		t.Errorf("expected explicit 0 waitForIdleTimeout to be kept, got %v", cfg.Server.WaitForIdleTimeout)
	}
	if cfg.Server.APKDirectory() != "/opt/apks" {
		t.Errorf("expected apkDir /opt/apks, got %s", cfg.Server.APKDirectory())
	}
	if *cfg.Server.AutoInstall {
		t.Error("expected autoInstall false")
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "jyn.yaml", "device: abc\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Timeout != DefaultTimeoutMs {
		t.Errorf("expected default timeout %d, got %d", DefaultTimeoutMs, cfg.Timeout)
	}
	if cfg.Poll != DefaultPollMs {
		t.Errorf("expected default poll %d, got %d", DefaultPollMs, cfg.Poll)
	}
	if cfg.Server.DevicePort != DefaultDevicePort {
		t.Errorf("expected default port %d, got %d", DefaultDevicePort, cfg.Server.DevicePort)
	}
	if cfg.Server.WaitForIdleTimeout != nil {
		t.Errorf("expected waitForIdleTimeout unset so the server default applies, got %d", *cfg.Server.WaitForIdleTimeout)
	}
	if !*cfg.Server.AutoInstall {
		t.Error("expected autoInstall default true")
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	if _, err := Load("/nonexistent/jyn.yaml"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "jyn.yaml", `server: [invalid yaml`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative timeout", "timeout: -1\n"},
		{"negative poll", "poll: -5\n"},
		{"port out of range", "server:\n  devicePort: 70000\n"},
		{"negative startup", "server:\n  startupTimeout: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "jyn.yaml", tt.content)
			_, err := Load(path)
			if !errors.Is(err, core.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadFromDir_YAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "jyn.yaml", "device: from-yaml\n")

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device != "from-yaml" {
		t.Errorf("expected from-yaml, got %s", cfg.Device)
	}
}

func TestLoadFromDir_YML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "jyn.yml", "device: from-yml\n")

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device != "from-yml" {
		t.Errorf("expected from-yml, got %s", cfg.Device)
	}
}

func TestLoadFromDir_PrefersYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "jyn.yaml", "device: yaml\n")
	writeConfig(t, dir, "jyn.yml", "device: yml\n")

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device != "yaml" {
		t.Errorf("expected jyn.yaml to win, got %s", cfg.Device)
	}
}

func TestLoadFromDir_NoConfig(t *testing.T) {
	cfg, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device != "" {
		t.Errorf("expected empty device, got %s", cfg.Device)
	}
	if cfg.Timeout != DefaultTimeoutMs {
		t.Errorf("expected defaults applied, got timeout %d", cfg.Timeout)
	}
}

func TestFromEnv(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "custom.yaml", "device: file-device\ntimeout: 3000\n")
	t.Setenv(EnvConfig, path)
	t.Setenv(EnvDevice, "env-device")
	t.Setenv(EnvTimeout, "")
	t.Setenv(EnvLog, "/tmp/env.log")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device != "env-device" {
		t.Errorf("expected env override, got %s", cfg.Device)
	}
	if cfg.Timeout != 3000 {
		t.Errorf("expected file timeout 3000, got %d", cfg.Timeout)
	}
	if cfg.Log != "/tmp/env.log" {
		t.Errorf("expected env log, got %s", cfg.Log)
	}
}

func TestFromEnv_InvalidTimeout(t *testing.T) {
	t.Setenv(EnvConfig, writeConfig(t, t.TempDir(), "jyn.yaml", "device: x\n"))
	t.Setenv(EnvTimeout, "soon")

	_, err := FromEnv()
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
