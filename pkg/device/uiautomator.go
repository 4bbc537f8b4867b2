package device

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/devicelab-dev/jyn/pkg/config"
	"github.com/devicelab-dev/jyn/pkg/logger"
	"github.com/devicelab-dev/jyn/pkg/uiautomator2"
)

// UIAutomator2 package names
const (
	UIAutomator2Server = "io.appium.uiautomator2.server"
	UIAutomator2Test   = "io.appium.uiautomator2.server.test"
)

// Port range for TCP forwarding (Windows)
const (
	portRangeStart = 6001
	portRangeEnd   = 7001
)

const healthCheckTimeout = 2 * time.Second

// UIAutomator2Config holds configuration for the UIAutomator2 server.
type UIAutomator2Config struct {
	SocketPath string        // default: DefaultSocketPath()
	LocalPort  int           // default: first free port in 6001-7001
	DevicePort int           // default: 6790
	Timeout    time.Duration // default: 30s
}

// UIAutomator2ConfigFrom maps the server section of jyn.yaml.
func UIAutomator2ConfigFrom(s config.ServerConfig) UIAutomator2Config {
	cfg := UIAutomator2Config{
		SocketPath: s.SocketPath,
		LocalPort:  s.LocalPort,
		DevicePort: s.DevicePort,
		Timeout:    s.StartupTimeoutDuration(),
	}
	if cfg.DevicePort == 0 {
		cfg.DevicePort = config.DefaultDevicePort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = config.DefaultStartupTimeoutMs * time.Millisecond
	}
	return cfg
}

// StartUIAutomator2 starts the UIAutomator2 server and forwards it locally.
func (d *AndroidDevice) StartUIAutomator2(cfg UIAutomator2Config) error {
	if !d.IsInstalled(UIAutomator2Server) {
		return fmt.Errorf("UIAutomator2 server not installed: %s", UIAutomator2Server)
	}
	if !d.IsInstalled(UIAutomator2Test) {
		return fmt.Errorf("UIAutomator2 test APK not installed: %s", UIAutomator2Test)
	}

	d.StopUIAutomator2()

	if runtime.GOOS == "windows" {
		if err := d.setupTCPForward(cfg); err != nil {
			return err
		}
	} else {
		if err := d.setupSocketForward(cfg); err != nil {
			return err
		}
	}

	// nohup + redirect so the shell returns while instrumentation keeps running
	instrumentCmd := fmt.Sprintf(
		"nohup am instrument -w -e disableAnalytics true "+
			"%s/androidx.test.runner.AndroidJUnitRunner "+
			"> /dev/null 2>&1 &",
		UIAutomator2Test,
	)
	if _, err := d.Shell(instrumentCmd); err != nil {
		return fmt.Errorf("failed to start instrumentation: %w", err)
	}

	logger.Info("Waiting for UIAutomator2 on %s (timeout %v)", d.serial, cfg.Timeout)
	if err := d.waitForUIAutomator2Ready(cfg.Timeout); err != nil {
		d.StopUIAutomator2()
		return err
	}

	return nil
}

func (d *AndroidDevice) setupSocketForward(cfg UIAutomator2Config) error {
	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = d.DefaultSocketPath()
	}

	os.Remove(socketPath)

	if err := d.ForwardSocket(socketPath, cfg.DevicePort); err != nil {
		return fmt.Errorf("socket forward failed: %w", err)
	}
	d.socketPath = socketPath
	return nil
}

func (d *AndroidDevice) setupTCPForward(cfg UIAutomator2Config) error {
	localPort := cfg.LocalPort
	if localPort == 0 {
		port, err := findFreePort(portRangeStart, portRangeEnd)
		if err != nil {
			return err
		}
		localPort = port
	}

	if err := d.Forward(localPort, cfg.DevicePort); err != nil {
		return fmt.Errorf("port forward failed: %w", err)
	}
	d.localPort = localPort
	return nil
}

func findFreePort(start, end int) (int, error) {
	for port := start; port <= end; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			ln.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port found in range %d-%d", start, end)
}

// StopUIAutomator2 stops the server and removes its forwards.
func (d *AndroidDevice) StopUIAutomator2() {
	d.Shell("am force-stop " + UIAutomator2Server)
	d.Shell("am force-stop " + UIAutomator2Test)

	time.Sleep(300 * time.Millisecond)

	if d.socketPath != "" {
		d.RemoveSocketForward(d.socketPath)
		os.Remove(d.socketPath)
		d.socketPath = ""
	}
	// stale socket from an earlier run
	defaultSocket := d.DefaultSocketPath()
	d.RemoveSocketForward(defaultSocket)
	os.Remove(defaultSocket)

	if d.localPort != 0 {
		d.RemoveForward(d.localPort)
		d.localPort = 0
	}
}

func (d *AndroidDevice) waitForUIAutomator2Ready(timeout time.Duration) error {
	return waitUntilHealthy(d.checkHealth, timeout)
}

var errNotReady = errors.New("server not ready")

// waitUntilHealthy polls check with exponential backoff, capped at 1s
// between attempts, until it passes or timeout elapses.
func waitUntilHealthy(check func() bool, timeout time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = timeout

	err := backoff.Retry(func() error {
		if check() {
			return nil
		}
		return errNotReady
	}, b)
	if err != nil {
		return fmt.Errorf("UIAutomator2 server not ready after %v", timeout)
	}
	return nil
}

// statusClient talks to whichever forward is active, or returns nil when
// the server has not been forwarded.
func (d *AndroidDevice) statusClient() *uiautomator2.Client {
	switch {
	case d.socketPath != "":
		return uiautomator2.NewClient(d.socketPath).WithTimeout(healthCheckTimeout)
	case d.localPort != 0:
		return uiautomator2.NewClientTCP(d.localPort).WithTimeout(healthCheckTimeout)
	}
	return nil
}

func (d *AndroidDevice) checkHealth() bool {
	client := d.statusClient()
	if client == nil {
		return false
	}
	ready, err := client.Status()
	return err == nil && ready
}

// InstallUIAutomator2 installs whichever server APKs are missing from apksDir.
func (d *AndroidDevice) InstallUIAutomator2(apksDir string) error {
	apks := []struct {
		pkg     string
		pattern string
	}{
		{UIAutomator2Server, "appium-uiautomator2-server-v*.apk"},
		{UIAutomator2Test, "appium-uiautomator2-server-debug-androidTest.apk"},
	}

	for _, apk := range apks {
		if d.IsInstalled(apk.pkg) {
			continue
		}
		apkPath, err := findAPK(apksDir, apk.pattern)
		if err != nil {
			return fmt.Errorf("failed to find APK for %s: %w", apk.pkg, err)
		}
		if err := d.Install(apkPath); err != nil {
			return fmt.Errorf("failed to install %s: %w", apk.pkg, err)
		}
	}

	return nil
}

func findAPK(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no APK found matching %s in %s", pattern, dir)
	}
	return matches[len(matches)-1], nil
}
