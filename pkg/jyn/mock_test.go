package jyn

import (
	"errors"
	"fmt"
	"testing"

	"github.com/devicelab-dev/jyn/pkg/config"
	"github.com/devicelab-dev/jyn/pkg/device"
	"github.com/stretchr/testify/mock"
)

type mockDriver struct{ mock.Mock }

func (m *mockDriver) Back() error { return m.Called().Error(0) }
func (m *mockDriver) PressKeyCode(keyCode int) error { return m.Called(keyCode).Error(0) }
func (m *mockDriver) OpenNotifications() error { return m.Called().Error(0) }
func (m *mockDriver) Click(x, y int) error { return m.Called(x, y).Error(0) }
func (m *mockDriver) Close() error { return m.Called().Error(0) }

func (m *mockDriver) Drag(startX, startY, endX, endY, steps int) error {
	return m.Called(startX, startY, endX, endY, steps).Error(0)
}

func (m *mockDriver) Swipe(startX, startY, endX, endY, steps int) error {
	return m.Called(startX, startY, endX, endY, steps).Error(0)
}

func (m *mockDriver) SetCompressedLayoutHierarchy(compressed bool) error {
	return m.Called(compressed).Error(0)
}

func (m *mockDriver) HasTopLevelWindow(pkg string) (bool, error) {
	args := m.Called(pkg)
	return args.Bool(0), args.Error(1)
}

type mockDevice struct{ mock.Mock }

func (m *mockDevice) Serial() string { return "emulator-5554" }
func (m *mockDevice) OpenQuickSettings() error { return m.Called().Error(0) }

func (m *mockDevice) Shell(cmd string) (string, error) {
	args := m.Called(cmd)
	return args.String(0), args.Error(1)
}

func (m *mockDevice) LauncherPackage() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *mockDevice) LaunchIntentForPackage(pkg string) (*device.Intent, error) {
	args := m.Called(pkg)
	intent, _ := args.Get(0).(*device.Intent)
	return intent, args.Error(1)
}

func (m *mockDevice) StartActivity(intent *device.Intent) error {
	return m.Called(intent).Error(0)
}

func (m *mockDevice) IsScreenOn() (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

// newMockSession returns a session over mocks that polls every 10ms.
func newMockSession(t *testing.T) (*Session, *mockDriver, *mockDevice) {
	t.Helper()
	drv := &mockDriver{}
	dev := &mockDevice{}
	t.Cleanup(func() {
		drv.AssertExpectations(t)
		dev.AssertExpectations(t)
	})

	cfg := config.Default()
	cfg.Poll = 10
	return NewSession(drv, dev, cfg), drv, dev
}

var errFailNow = errors.New("FailNow called")

// recordingT records assertion failures. FailNow panics with errFailNow,
// which run recovers, so a failed assertion stops the chain like it does
// under go test.
type recordingT struct {
	errors []string
	failed bool
}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recordingT) FailNow() {
	r.failed = true
	panic(errFailNow)
}

func (r *recordingT) run(f func()) {
	defer func() {
		if rec := recover(); rec != nil && rec != errFailNow {
			panic(rec)
		}
	}()
	f()
}

// recoverPanic runs f and returns the value it panicked with, if any.
func recoverPanic(f func()) (v interface{}) {
	defer func() { v = recover() }()
	f()
	return nil
}
