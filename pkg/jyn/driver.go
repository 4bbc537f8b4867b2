package jyn

import (
	"github.com/devicelab-dev/jyn/pkg/device"
	"github.com/devicelab-dev/jyn/pkg/uiautomator2"
)

// Driver is the on-device automation server. *uiautomator2.Client
// implements it.
type Driver interface {
	Back() error
	PressKeyCode(keyCode int) error
	OpenNotifications() error
	Click(x, y int) error
	Drag(startX, startY, endX, endY, steps int) error
	Swipe(startX, startY, endX, endY, steps int) error
	SetCompressedLayoutHierarchy(compressed bool) error
	HasTopLevelWindow(pkg string) (bool, error)
	Close() error
}

// Device is the adb side of a session. *device.AndroidDevice implements it.
type Device interface {
	Serial() string
	Shell(cmd string) (string, error)
	LauncherPackage() (string, error)
	LaunchIntentForPackage(pkg string) (*device.Intent, error)
	StartActivity(intent *device.Intent) error
	IsScreenOn() (bool, error)
	OpenQuickSettings() error
}

var (
	_ Driver = (*uiautomator2.Client)(nil)
	_ Device = (*device.AndroidDevice)(nil)
)
