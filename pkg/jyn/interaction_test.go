package jyn

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devicelab-dev/jyn/pkg/core"
	"github.com/devicelab-dev/jyn/pkg/device"
	"github.com/devicelab-dev/jyn/pkg/logger"
	"github.com/devicelab-dev/jyn/pkg/uiautomator2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	launcher = "com.google.android.apps.nexuslauncher"
	settings = "com.android.settings"
)

func TestChainPreservesIdentity(t *testing.T) {
	s, drv, dev := newMockSession(t)
	drv.On("Back").Return(nil)
	drv.On("PressKeyCode", mock.Anything).Return(nil)
	drv.On("OpenNotifications").Return(nil)
	dev.On("OpenQuickSettings").Return(nil)

	d := s.OnDevice(t)
	got := d.PressBack().
		PressMenu().
		PressRecentApps().
		PressSearch().
		PressEnter().
		PressHome().
		OpenNotification().
		OpenQuickSettings()

	assert.Same(t, d, got)
	drv.AssertCalled(t, "PressKeyCode", uiautomator2.KeyCodeMenu)
	drv.AssertCalled(t, "PressKeyCode", uiautomator2.KeyCodeAppSwitch)
	drv.AssertCalled(t, "PressKeyCode", uiautomator2.KeyCodeSearch)
	drv.AssertCalled(t, "PressKeyCode", uiautomator2.KeyCodeEnter)
	drv.AssertCalled(t, "PressKeyCode", uiautomator2.KeyCodeHome)
}

func TestPlainPresses_FailuresKeepChaining(t *testing.T) {
	s, drv, dev := newMockSession(t)
	boom := errors.New("socket closed")
	drv.On("Back").Return(boom)
	drv.On("PressKeyCode", mock.Anything).Return(boom)
	drv.On("OpenNotifications").Return(boom)
	dev.On("OpenQuickSettings").Return(boom)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.Close()

	d := s.OnDevice(t)
	assert.NotPanics(t, func() {
		assert.Same(t, d, d.PressBack().PressMenu().PressSearch().PressEnter().PressHome().OpenNotification().OpenQuickSettings())
	})
	assert.Contains(t, buf.String(), "[WARN] press back: socket closed")
	assert.Contains(t, buf.String(), "[WARN] open quick settings: socket closed")
}

func TestOnHomeScreenWithTimeout(t *testing.T) {
	s, drv, dev := newMockSession(t)
	drv.On("PressKeyCode", uiautomator2.KeyCodeHome).Return(nil).Once()
	dev.On("LauncherPackage").Return(launcher, nil).Once()
	drv.On("HasTopLevelWindow", launcher).Return(false, nil).Twice()
	drv.On("HasTopLevelWindow", launcher).Return(true, nil).Once()

	rt := &recordingT{}
	d := s.OnDevice(rt)
	rt.run(func() {
		assert.Same(t, d, d.OnHomeScreenWithTimeout(3*time.Second))
	})

	assert.False(t, rt.failed, rt.errors)
}

func TestOnHomeScreen_WaitOutcomeNotAsserted(t *testing.T) {
	s, drv, dev := newMockSession(t)
	drv.On("PressKeyCode", uiautomator2.KeyCodeHome).Return(nil)
	dev.On("LauncherPackage").Return(launcher, nil)
	drv.On("HasTopLevelWindow", launcher).Return(false, nil)

	rt := &recordingT{}
	start := time.Now()
	rt.run(func() {
		s.OnDevice(rt).OnHomeScreenWithTimeout(50 * time.Millisecond)
	})

	assert.False(t, rt.failed)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestOnHomeScreen_MissingLauncherFails(t *testing.T) {
	s, drv, dev := newMockSession(t)
	drv.On("PressKeyCode", uiautomator2.KeyCodeHome).Return(nil)
	dev.On("LauncherPackage").Return("", nil)

	rt := &recordingT{}
	rt.run(func() {
		s.OnDevice(rt).OnHomeScreen()
	})

	require.True(t, rt.failed)
	require.NotEmpty(t, rt.errors)
	assert.Contains(t, rt.errors[0], core.ErrLauncherNotFound.Message)
	drv.AssertNotCalled(t, "HasTopLevelWindow", mock.Anything)
}

func TestOnHomeScreen_LauncherErrorFails(t *testing.T) {
	s, drv, dev := newMockSession(t)
	drv.On("PressKeyCode", uiautomator2.KeyCodeHome).Return(nil)
	dev.On("LauncherPackage").Return("", errors.New("adb: device offline"))

	rt := &recordingT{}
	rt.run(func() {
		s.OnDevice(rt).OnHomeScreen()
	})

	require.True(t, rt.failed)
	assert.Contains(t, rt.errors[0], "device offline")
}

func TestCheckForegroundAppIs(t *testing.T) {
	s, drv, _ := newMockSession(t)
	drv.On("HasTopLevelWindow", settings).Return(true, nil)

	rt := &recordingT{}
	d := s.OnDevice(rt)
	rt.run(func() {
		assert.Same(t, d, d.CheckForegroundAppIs(settings))
	})

	assert.False(t, rt.failed)
}

func TestCheckForegroundAppIs_Mismatch(t *testing.T) {
	s, drv, _ := newMockSession(t)
	drv.On("HasTopLevelWindow", settings).Return(false, nil)

	rt := &recordingT{}
	rt.run(func() {
		s.OnDevice(rt).CheckForegroundAppIsWithTimeout(settings, 30*time.Millisecond)
	})

	require.True(t, rt.failed)
	assert.Contains(t, rt.errors[0], settings)
	assert.Contains(t, rt.errors[0], core.ErrForegroundMismatch.Message)
}

func TestCheckForegroundAppIs_QueryErrorIsMismatch(t *testing.T) {
	s, drv, _ := newMockSession(t)
	drv.On("HasTopLevelWindow", settings).Return(false, errors.New("no active session"))

	rt := &recordingT{}
	rt.run(func() {
		s.OnDevice(rt).CheckForegroundAppIsWithTimeout(settings, 20*time.Millisecond)
	})

	assert.True(t, rt.failed)
}

func TestHomeThenForegroundIsLauncher(t *testing.T) {
	s, drv, dev := newMockSession(t)
	drv.On("PressKeyCode", uiautomator2.KeyCodeHome).Return(nil)
	dev.On("LauncherPackage").Return(launcher, nil)
	drv.On("HasTopLevelWindow", launcher).Return(true, nil)

	rt := &recordingT{}
	rt.run(func() {
		s.OnDevice(rt).
			OnHomeScreenWithTimeout(3 * time.Second).
			CheckForegroundAppIsWithTimeout(launcher, 3*time.Second)
	})

	assert.False(t, rt.failed, rt.errors)
}

func TestLaunchAppWithTimeout(t *testing.T) {
	s, drv, dev := newMockSession(t)
	intent := &device.Intent{
		Action:     device.ActionMain,
		Categories: []string{device.CategoryLauncher},
		Component:  settings + "/.Settings",
		Package:    settings,
	}
	dev.On("LaunchIntentForPackage", settings).Return(intent, nil)
	dev.On("StartActivity", mock.MatchedBy(func(i *device.Intent) bool {
		return i.Flags == device.FlagActivityNewTask|device.FlagActivityClearTask
	})).Return(nil)
	drv.On("HasTopLevelWindow", settings).Return(false, nil).Once()
	drv.On("HasTopLevelWindow", settings).Return(true, nil)

	rt := &recordingT{}
	d := s.OnDevice(rt)
	rt.run(func() {
		assert.Same(t, d, d.LaunchAppWithTimeout(settings, 8*time.Second).CheckForegroundAppIs(settings))
	})

	assert.False(t, rt.failed, rt.errors)
	assert.Equal(t, 0x10008000, intent.Flags)
}

func TestLaunchApp_NoLaunchIntentPanics(t *testing.T) {
	s, _, dev := newMockSession(t)
	dev.On("LaunchIntentForPackage", "com.example.missing").
		Return(nil, core.ErrLaunchIntentNotFound.WithMessage("no launch intent for package com.example.missing"))

	v := recoverPanic(func() { s.OnDevice(t).LaunchApp("com.example.missing") })

	err, ok := v.(error)
	require.True(t, ok, "expected an error panic, got %v", v)
	assert.ErrorIs(t, err, core.ErrLaunchIntentNotFound)
}

func TestLaunchIntent_WaitsForIntentPackage(t *testing.T) {
	s, drv, dev := newMockSession(t)
	intent := &device.Intent{Action: "android.settings.SETTINGS", Package: settings}
	dev.On("StartActivity", intent).Return(nil)
	drv.On("HasTopLevelWindow", settings).Return(false, nil)

	start := time.Now()
	s.OnDevice(t).LaunchIntentWithTimeout(intent, 40*time.Millisecond)

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, device.FlagActivityNewTask|device.FlagActivityClearTask, intent.Flags)
}

func TestLaunchIntent_NoPackageSkipsWait(t *testing.T) {
	s, drv, dev := newMockSession(t)
	intent := &device.Intent{Action: device.ActionView, Data: "https://example.com"}
	dev.On("StartActivity", intent).Return(nil)

	s.OnDevice(t).LaunchIntent(intent)

	drv.AssertNotCalled(t, "HasTopLevelWindow", mock.Anything)
}

func TestLaunchIntent_StartFailurePanics(t *testing.T) {
	s, _, dev := newMockSession(t)
	cause := errors.New("adb: closed")
	dev.On("StartActivity", mock.Anything).Return(cause)

	v := recoverPanic(func() {
		s.OnDevice(t).LaunchIntent(&device.Intent{Package: settings})
	})

	err, ok := v.(error)
	require.True(t, ok, "expected an error panic, got %v", v)
	assert.ErrorIs(t, err, core.ErrRemoteCall)
	assert.ErrorIs(t, err, cause)
}

func TestLaunchIntent_NilPanics(t *testing.T) {
	s, _, _ := newMockSession(t)

	v := recoverPanic(func() { s.OnDevice(t).LaunchIntent(nil) })

	err, ok := v.(error)
	require.True(t, ok)
	assert.ErrorIs(t, err, core.ErrLaunchIntentNotFound)
}

func TestPressRecentApps_PanicsWithCause(t *testing.T) {
	s, drv, _ := newMockSession(t)
	cause := errors.New("connection refused")
	drv.On("PressKeyCode", uiautomator2.KeyCodeAppSwitch).Return(cause)

	v := recoverPanic(func() { s.OnDevice(t).PressRecentApps() })

	var execErr *core.ExecutionError
	err, ok := v.(error)
	require.True(t, ok)
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "remote_call_failed", execErr.Code)
	assert.Equal(t, core.ErrCategoryConnection, execErr.Category)
	assert.Same(t, cause, execErr.Cause)
}

func TestIsScreenOn(t *testing.T) {
	s, _, dev := newMockSession(t)
	dev.On("IsScreenOn").Return(true, nil).Once()
	dev.On("IsScreenOn").Return(false, nil).Once()

	d := s.OnDevice(t)
	assert.True(t, d.IsScreenOn())
	assert.False(t, d.IsScreenOn())
}

func TestIsScreenOn_PanicsWithCause(t *testing.T) {
	s, _, dev := newMockSession(t)
	cause := errors.New("dumpsys: not found")
	dev.On("IsScreenOn").Return(false, cause)

	v := recoverPanic(func() { s.OnDevice(t).IsScreenOn() })

	err, ok := v.(error)
	require.True(t, ok)
	assert.ErrorIs(t, err, core.ErrRemoteCall)
	assert.ErrorIs(t, err, cause)
}

func TestBooleanOperations(t *testing.T) {
	s, drv, _ := newMockSession(t)
	drv.On("PressKeyCode", uiautomator2.KeyCodeCamera).Return(nil)
	drv.On("PressKeyCode", 9999).Return(errors.New("unknown key"))
	drv.On("Click", 300, 200).Return(nil)
	drv.On("Click", 5000, 5000).Return(errors.New("out of screen"))
	drv.On("Drag", 200, 200, 500, 500, 30).Return(nil)
	drv.On("Drag", 0, 0, 1, 1, 0).Return(errors.New("steps"))
	drv.On("Swipe", 200, 200, 500, 500, 30).Return(nil)
	drv.On("Swipe", 200, 200, 500, 500, 1).Return(errors.New("rejected"))

	d := s.OnDevice(t)
	assert.True(t, d.PressKeyCode(uiautomator2.KeyCodeCamera))
	assert.False(t, d.PressKeyCode(9999))
	assert.True(t, d.Click(300, 200))
	assert.False(t, d.Click(5000, 5000))
	assert.True(t, d.Drag(200, 200, 500, 500, 30))
	assert.False(t, d.Drag(0, 0, 1, 1, 0))
	assert.True(t, d.Swipe(200, 200, 500, 500, 30))
	assert.False(t, d.Swipe(200, 200, 500, 500, 1))
}

func TestBooleanOperations_OutOfRangeAgainstServer(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"value": null}`))
	}))
	defer server.Close()

	s := NewSession(uiautomator2.NewTestClient(server.URL, "sess-1"), &mockDevice{}, nil)
	d := s.OnDevice(t)

	assert.False(t, d.Click(-1, 10))
	assert.False(t, d.Drag(-5, 0, 100, 100, 10))
	assert.False(t, d.Swipe(0, 0, 100, -100, 10))
	assert.Zero(t, atomic.LoadInt32(&calls), "invalid coordinates must not reach the server")

	assert.True(t, d.Click(10, 10))
	assert.True(t, d.Swipe(200, 200, 500, 500, 30))
}

func TestExecuteShellCommand_Silent(t *testing.T) {
	s, _, dev := newMockSession(t)
	dev.On("Shell", "pm list packages").Return("package:com.android.settings\n", nil)
	dev.On("Shell", "not-a-command").Return("", errors.New("exit status 127"))

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.Close()

	d := s.OnDevice(t)
	assert.NotPanics(t, func() {
		d.ExecuteShellCommand("pm list packages")
		d.ExecuteShellCommand("not-a-command")
	})
	assert.Contains(t, buf.String(), `[ERROR] shell "not-a-command": exit status 127`)
}

func TestSetCompressedLayoutHierarchy(t *testing.T) {
	s, drv, _ := newMockSession(t)
	drv.On("SetCompressedLayoutHierarchy", false).Return(nil)
	drv.On("SetCompressedLayoutHierarchy", true).Return(errors.New("no active session"))

	d := s.OnDevice(t)
	assert.NotPanics(t, func() {
		d.SetCompressedLayoutHierarchy(false)
		d.SetCompressedLayoutHierarchy(true)
	})
}

func TestDeviceInteraction_String(t *testing.T) {
	s, _, _ := newMockSession(t)
	assert.Equal(t, "DeviceInteraction(emulator-5554)", s.OnDevice(t).String())
}
