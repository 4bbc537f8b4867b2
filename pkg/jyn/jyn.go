// Package jyn is a fluent API for driving an Android device from Go tests.
//
//	func TestSettings(t *testing.T) {
//		jyn.OnDevice(t).
//			OnHomeScreenWithTimeout(3 * time.Second).
//			LaunchAppWithTimeout("com.android.settings", 8*time.Second).
//			CheckForegroundAppIs("com.android.settings")
//	}
//
// Every chainable call performs one action through the UIAutomator2 server
// or adb and returns the same handle. The session is created on first use
// from jyn.yaml and the JYN_* environment; call Close from TestMain to stop
// the server.
package jyn

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/jyn/pkg/config"
	"github.com/devicelab-dev/jyn/pkg/core"
	"github.com/devicelab-dev/jyn/pkg/device"
	"github.com/devicelab-dev/jyn/pkg/logger"
	"github.com/devicelab-dev/jyn/pkg/uiautomator2"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout is the wait used by the operations without an explicit
// timeout.
const DefaultTimeout = 5 * time.Second

// T is the subset of *testing.T the assertions need.
type T interface {
	Errorf(format string, args ...interface{})
	FailNow()
}

type tHelper interface {
	Helper()
}

// Session is a live automation session: an adb device plus the
// UIAutomator2 server session running on it.
type Session struct {
	driver Driver
	device Device
	poll   time.Duration
	stop   func()
}

// NewSession binds an already connected driver and device.
func NewSession(driver Driver, dev Device, cfg *config.Config) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	poll := cfg.PollInterval()
	if poll <= 0 {
		poll = config.DefaultPollMs * time.Millisecond
	}
	return &Session{
		driver: driver,
		device: dev,
		poll:   poll,
	}
}

// Connect opens a session on the device named by cfg, installing and
// starting the UIAutomator2 server as needed.
func Connect(cfg *config.Config) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	if cfg.Device != "" {
		logger.Info("Connecting to Android device: %s", cfg.Device)
	} else {
		logger.Info("Auto-detecting Android device...")
	}
	dev, err := device.New(cfg.Device)
	if err != nil {
		return nil, core.ErrSessionUnavailable.WithCause(err)
	}

	info, err := dev.Info()
	if err != nil {
		return nil, core.ErrSessionUnavailable.WithMessage("failed to read device info").WithCause(err)
	}
	logger.Info("Device info: %s %s, SDK %s, Serial %s, Emulator: %v",
		info.Brand, info.Model, info.SDK, info.Serial, info.IsEmulator)

	if !dev.IsInstalled(device.UIAutomator2Server) || !dev.IsInstalled(device.UIAutomator2Test) {
		if cfg.Server.AutoInstall != nil && !*cfg.Server.AutoInstall {
			return nil, core.ErrSessionUnavailable.WithMessage("UIAutomator2 server is not installed and autoInstall is off")
		}
		apkDir := cfg.Server.APKDirectory()
		logger.Info("Installing UIAutomator2 APKs from %s", apkDir)
		if err := dev.InstallUIAutomator2(apkDir); err != nil {
			return nil, core.ErrSessionUnavailable.WithMessage("failed to install UIAutomator2").WithCause(err)
		}
	}

	logger.Info("Starting UIAutomator2 server on device %s", dev.Serial())
	if err := dev.StartUIAutomator2(device.UIAutomator2ConfigFrom(cfg.Server)); err != nil {
		return nil, core.ErrSessionUnavailable.WithMessage("failed to start UIAutomator2").WithCause(err)
	}

	var client *uiautomator2.Client
	if dev.SocketPath() != "" {
		client = uiautomator2.NewClient(dev.SocketPath())
	} else {
		client = uiautomator2.NewClientTCP(dev.LocalPort())
	}

	caps := uiautomator2.Capabilities{
		PlatformName: "Android",
		DeviceName:   info.Model,
	}
	if err := client.CreateSession(caps); err != nil {
		dev.StopUIAutomator2()
		return nil, core.ErrSessionUnavailable.WithMessage("failed to create session").WithCause(err)
	}
	logger.Info("Session created: %s", client.SessionID())
	logServerDevice(client)

	if cfg.Server.WaitForIdleTimeout != nil {
		if err := client.UpdateSettings(map[string]interface{}{
			uiautomator2.SettingWaitForIdleTimeout: *cfg.Server.WaitForIdleTimeout,
		}); err != nil {
			logger.Warn("failed to set waitForIdleTimeout: %v", err)
		}
	}

	s := NewSession(client, dev, cfg)
	s.stop = dev.StopUIAutomator2
	return s, nil
}

// logServerDevice records the device as the server sees it. Failure is only
// logged, the session is usable either way.
func logServerDevice(client *uiautomator2.Client) {
	info, err := client.GetDeviceInfo()
	if err != nil {
		logger.Warn("failed to read device info from server: %v", err)
		return
	}
	logger.Info("Server device: %s %s, Android %s (API %s), display %s",
		info.Manufacturer, info.Model, info.PlatformVersion, info.APIVersion, info.RealDisplaySize)
}

// OnDevice returns an interaction handle bound to this session.
func (s *Session) OnDevice(t T) *DeviceInteraction {
	return &DeviceInteraction{t: t, session: s}
}

// Serial returns the serial of the session's device.
func (s *Session) Serial() string {
	return s.device.Serial()
}

// Close ends the server session and stops the server if this session
// started it.
func (s *Session) Close() error {
	err := s.driver.Close()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	return err
}

var (
	mu         sync.Mutex
	current    *Session
	currentErr error
	attempted  bool
)

// Current returns the process-wide session, connecting on first use with
// config.FromEnv. A failed connection is not retried.
func Current() (*Session, error) {
	mu.Lock()
	defer mu.Unlock()

	if current != nil {
		return current, nil
	}
	if attempted {
		return nil, currentErr
	}
	attempted = true

	cfg, err := config.FromEnv()
	if err != nil {
		currentErr = err
		return nil, err
	}
	if cfg.Log != "" {
		if err := logger.Init(cfg.Log); err != nil {
			currentErr = fmt.Errorf("init log: %w", err)
			return nil, currentErr
		}
	}

	current, currentErr = Connect(cfg)
	return current, currentErr
}

// SetCurrent replaces the process-wide session. Passing nil forgets it so
// the next Current call connects again.
func SetCurrent(s *Session) {
	mu.Lock()
	defer mu.Unlock()

	current = s
	currentErr = nil
	attempted = s != nil
}

// Close closes the process-wide session, if any.
func Close() error {
	mu.Lock()
	s := current
	current = nil
	currentErr = nil
	attempted = false
	mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Close()
}

// OnDevice returns an interaction handle on the current session. The test
// fails immediately when no session can be established.
func OnDevice(t T) *DeviceInteraction {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	s, err := Current()
	if err != nil {
		var noDevices *device.NoDevicesError
		if errors.As(err, &noDevices) {
			require.FailNow(t, "no Android device available", noDevices.Error())
			return nil
		}
		require.NoError(t, err, "automation session unavailable")
		return nil
	}
	return s.OnDevice(t)
}
