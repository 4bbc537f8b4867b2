// Package device controls Android devices through adb.
package device

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/devicelab-dev/jyn/pkg/logger"
)

// AndroidDevice is an adb connection to one device.
type AndroidDevice struct {
	serial     string
	adbPath    string
	socketPath string // UIAutomator2 unix socket (Linux/Mac)
	localPort  int    // UIAutomator2 TCP port (Windows)
}

// DeviceInfo contains basic device information.
type DeviceInfo struct {
	Serial     string
	Model      string
	SDK        string
	Brand      string
	IsEmulator bool
}

// ListedDevice is one line of `adb devices`.
type ListedDevice struct {
	Serial string
	State  string // device, offline, unauthorized, ...
}

// NoDevicesError is returned when no usable device is attached.
type NoDevicesError struct {
	Message     string
	Suggestions []string
}

func (e *NoDevicesError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if len(e.Suggestions) > 0 {
		sb.WriteString("\n\nOptions:\n")
		for _, s := range e.Suggestions {
			sb.WriteString("  - ")
			sb.WriteString(s)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func buildNoDevicesError(devices []ListedDevice) *NoDevicesError {
	err := &NoDevicesError{
		Message: "No Android devices or emulators found",
		Suggestions: []string{
			"Connect a physical device via USB and enable USB debugging",
			"Start an emulator: emulator -avd <name>",
			"Select a device explicitly: jyn --device <serial> ...",
		},
	}
	for _, d := range devices {
		if d.State == "unauthorized" {
			err.Suggestions = append(err.Suggestions,
				fmt.Sprintf("Accept the USB debugging prompt on %s", d.Serial))
		}
	}
	return err
}

// New creates an AndroidDevice for the given serial.
// If serial is empty, the first connected device is used.
func New(serial string) (*AndroidDevice, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}

	if serial == "" {
		serial, err = detectDeviceSerial(adbPath)
		if err != nil {
			return nil, err
		}
	}

	d := &AndroidDevice{
		serial:  serial,
		adbPath: adbPath,
	}

	if err := d.waitForDevice(5 * time.Second); err != nil {
		return nil, fmt.Errorf("device not found: %w", err)
	}

	return d, nil
}

// ListDevices returns every device adb knows about, whatever its state.
func ListDevices() ([]ListedDevice, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}
	out, err := exec.Command(adbPath, "devices").Output()
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w", err)
	}
	return parseDeviceList(string(out)), nil
}

func detectDeviceSerial(adbPath string) (string, error) {
	out, err := exec.Command(adbPath, "devices").Output()
	if err != nil {
		return "", fmt.Errorf("adb devices: %w", err)
	}

	devices := parseDeviceList(string(out))
	for _, d := range devices {
		if d.State == "device" {
			return d.Serial, nil
		}
	}
	return "", buildNoDevicesError(devices)
}

func parseDeviceList(out string) []ListedDevice {
	var devices []ListedDevice
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") || strings.HasPrefix(line, "*") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		devices = append(devices, ListedDevice{Serial: parts[0], State: parts[1]})
	}
	return devices
}

// Serial returns the device serial number.
func (d *AndroidDevice) Serial() string {
	return d.serial
}

// Shell executes a shell command on the device.
func (d *AndroidDevice) Shell(cmd string) (string, error) {
	logger.Debug("adb shell %s", cmd)
	return d.adb("shell", cmd)
}

// Install installs an APK, granting its runtime permissions.
func (d *AndroidDevice) Install(apkPath string) error {
	logger.Info("Installing %s on %s", apkPath, d.serial)
	_, err := d.adb("install", "-r", "-g", apkPath)
	return err
}

// Uninstall removes a package from the device.
func (d *AndroidDevice) Uninstall(pkg string) error {
	_, err := d.adb("uninstall", pkg)
	return err
}

// IsInstalled checks if a package is installed.
func (d *AndroidDevice) IsInstalled(pkg string) bool {
	out, err := d.Shell("pm list packages " + pkg)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "package:"+pkg {
			return true
		}
	}
	return false
}

// Forward creates a port forward from local to device.
func (d *AndroidDevice) Forward(localPort, remotePort int) error {
	_, err := d.adb("forward", fmt.Sprintf("tcp:%d", localPort), fmt.Sprintf("tcp:%d", remotePort))
	return err
}

// RemoveForward removes a port forward.
func (d *AndroidDevice) RemoveForward(localPort int) error {
	_, err := d.adb("forward", "--remove", fmt.Sprintf("tcp:%d", localPort))
	return err
}

// ForwardSocket forwards a Unix socket to a device TCP port.
func (d *AndroidDevice) ForwardSocket(socketPath string, remotePort int) error {
	_, err := d.adb("forward", fmt.Sprintf("localfilesystem:%s", socketPath), fmt.Sprintf("tcp:%d", remotePort))
	return err
}

// RemoveSocketForward removes a Unix socket forward.
func (d *AndroidDevice) RemoveSocketForward(socketPath string) error {
	_, err := d.adb("forward", "--remove", fmt.Sprintf("localfilesystem:%s", socketPath))
	return err
}

// DefaultSocketPath returns the default Unix socket path for this device.
func (d *AndroidDevice) DefaultSocketPath() string {
	return fmt.Sprintf("/tmp/jyn-uia2-%s.sock", d.serial)
}

// SocketPath returns the current UIAutomator2 socket path (empty if not started or on Windows).
func (d *AndroidDevice) SocketPath() string {
	return d.socketPath
}

// LocalPort returns the current UIAutomator2 TCP port (0 if not started or on Linux/Mac).
func (d *AndroidDevice) LocalPort() int {
	return d.localPort
}

// Info returns device information read from system properties.
func (d *AndroidDevice) Info() (DeviceInfo, error) {
	info := DeviceInfo{Serial: d.serial}

	model, err := d.getprop("ro.product.model")
	if err != nil {
		return info, err
	}
	info.Model = model
	info.SDK, _ = d.getprop("ro.build.version.sdk")
	info.Brand, _ = d.getprop("ro.product.brand")

	qemu, _ := d.getprop("ro.kernel.qemu")
	info.IsEmulator = qemu == "1"

	return info, nil
}

func (d *AndroidDevice) getprop(name string) (string, error) {
	out, err := d.Shell("getprop " + name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (d *AndroidDevice) adb(args ...string) (string, error) {
	cmdArgs := make([]string, 0, len(args)+2)
	if d.serial != "" {
		cmdArgs = append(cmdArgs, "-s", d.serial)
	}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.Command(d.adbPath, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := stderr.String()
		if errMsg == "" {
			errMsg = stdout.String()
		}
		return "", fmt.Errorf("adb %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(errMsg))
	}

	return stdout.String(), nil
}

func (d *AndroidDevice) waitForDevice(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if d.isConnected() {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for device %s", d.serial)
}

func (d *AndroidDevice) isConnected() bool {
	out, err := d.adb("get-state")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "device"
}

// findADB locates the adb binary on PATH or under $ANDROID_HOME.
func findADB() (string, error) {
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}
	for _, env := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		if root := os.Getenv(env); root != "" {
			candidate := filepath.Join(root, "platform-tools", "adb")
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("adb not found in PATH or $ANDROID_HOME/platform-tools")
}
