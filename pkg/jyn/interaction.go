package jyn

import (
	"errors"
	"fmt"
	"time"

	"github.com/devicelab-dev/jyn/pkg/core"
	"github.com/devicelab-dev/jyn/pkg/device"
	"github.com/devicelab-dev/jyn/pkg/logger"
	"github.com/devicelab-dev/jyn/pkg/uiautomator2"
	"github.com/stretchr/testify/require"
)

// DeviceInteraction performs device actions on one session. Chainable
// methods return the receiver.
//
// Failures are handled per operation:
//   - OnHomeScreen and CheckForegroundAppIs fail the test through T.
//   - PressRecentApps, IsScreenOn and the launch methods panic with a
//     *core.ExecutionError carrying the underlying error.
//   - PressKeyCode, Click, Drag and Swipe report failure as false.
//   - ExecuteShellCommand only logs failures.
//   - The remaining presses and shades log a warning and keep chaining.
type DeviceInteraction struct {
	t       T
	session *Session
}

func (d *DeviceInteraction) helper() {
	if h, ok := d.t.(tHelper); ok {
		h.Helper()
	}
}

// OnHomeScreen presses HOME and waits up to DefaultTimeout for the launcher.
func (d *DeviceInteraction) OnHomeScreen() *DeviceInteraction {
	d.helper()
	return d.OnHomeScreenWithTimeout(DefaultTimeout)
}

// OnHomeScreenWithTimeout presses HOME, asserts a launcher package resolves
// and waits up to timeout for its window. The wait itself is not asserted.
func (d *DeviceInteraction) OnHomeScreenWithTimeout(timeout time.Duration) *DeviceInteraction {
	d.helper()

	d.press("home", uiautomator2.KeyCodeHome)

	launcher, err := d.session.device.LauncherPackage()
	if err != nil {
		require.NoError(d.t, core.ErrLauncherNotFound.WithCause(err))
		return d
	}
	require.NotEmpty(d.t, launcher, core.ErrLauncherNotFound.Message)

	d.waitForWindow(launcher, timeout)
	return d
}

// CheckForegroundAppIs asserts pkg is in the foreground, waiting up to
// DefaultTimeout for it.
func (d *DeviceInteraction) CheckForegroundAppIs(pkg string) *DeviceInteraction {
	d.helper()
	return d.CheckForegroundAppIsWithTimeout(pkg, DefaultTimeout)
}

// CheckForegroundAppIsWithTimeout waits up to timeout for a top-level
// window of pkg, then asserts one is present.
func (d *DeviceInteraction) CheckForegroundAppIsWithTimeout(pkg string, timeout time.Duration) *DeviceInteraction {
	d.helper()

	d.waitForWindow(pkg, timeout)

	present, err := d.session.driver.HasTopLevelWindow(pkg)
	if err != nil {
		logger.Warn("foreground check for %s: %v", pkg, err)
	}
	require.Truef(d.t, present, "%s: %s", core.ErrForegroundMismatch.Message, pkg)
	return d
}

// LaunchApp starts pkg's launcher activity and waits up to DefaultTimeout
// for it.
func (d *DeviceInteraction) LaunchApp(pkg string) *DeviceInteraction {
	return d.LaunchAppWithTimeout(pkg, DefaultTimeout)
}

// LaunchAppWithTimeout resolves pkg's launch intent and forwards to
// LaunchIntentWithTimeout.
func (d *DeviceInteraction) LaunchAppWithTimeout(pkg string, timeout time.Duration) *DeviceInteraction {
	intent, err := d.session.device.LaunchIntentForPackage(pkg)
	if err != nil {
		panic(unchecked(err))
	}
	return d.LaunchIntentWithTimeout(intent, timeout)
}

// LaunchIntent starts intent in a fresh task and waits up to DefaultTimeout
// for it.
func (d *DeviceInteraction) LaunchIntent(intent *device.Intent) *DeviceInteraction {
	return d.LaunchIntentWithTimeout(intent, DefaultTimeout)
}

// LaunchIntentWithTimeout adds NEW_TASK and CLEAR_TASK to intent, starts it
// and waits up to timeout for a window of its package. The wait is not
// asserted.
func (d *DeviceInteraction) LaunchIntentWithTimeout(intent *device.Intent, timeout time.Duration) *DeviceInteraction {
	if intent == nil {
		panic(core.ErrLaunchIntentNotFound.WithMessage("launch intent is nil"))
	}

	intent.AddFlags(device.FlagActivityNewTask | device.FlagActivityClearTask)
	logger.Info("Starting %s", intent)
	if err := d.session.device.StartActivity(intent); err != nil {
		panic(unchecked(err))
	}

	if pkg := intent.TargetPackage(); pkg != "" {
		d.waitForWindow(pkg, timeout)
	}
	return d
}

// PressHome presses HOME without waiting for the launcher.
func (d *DeviceInteraction) PressHome() *DeviceInteraction {
	d.press("home", uiautomator2.KeyCodeHome)
	return d
}

// PressBack presses BACK.
func (d *DeviceInteraction) PressBack() *DeviceInteraction {
	if err := d.session.driver.Back(); err != nil {
		logger.Warn("press back: %v", err)
	}
	return d
}

// PressMenu presses MENU.
func (d *DeviceInteraction) PressMenu() *DeviceInteraction {
	d.press("menu", uiautomator2.KeyCodeMenu)
	return d
}

// PressRecentApps opens the recent apps screen. A failed call panics.
func (d *DeviceInteraction) PressRecentApps() *DeviceInteraction {
	if err := d.session.driver.PressKeyCode(uiautomator2.KeyCodeAppSwitch); err != nil {
		panic(core.ErrRemoteCall.WithMessage("press recent apps failed").WithCause(err))
	}
	return d
}

// PressSearch presses SEARCH.
func (d *DeviceInteraction) PressSearch() *DeviceInteraction {
	d.press("search", uiautomator2.KeyCodeSearch)
	return d
}

// PressEnter presses ENTER.
func (d *DeviceInteraction) PressEnter() *DeviceInteraction {
	d.press("enter", uiautomator2.KeyCodeEnter)
	return d
}

// OpenNotification opens the notification shade.
func (d *DeviceInteraction) OpenNotification() *DeviceInteraction {
	if err := d.session.driver.OpenNotifications(); err != nil {
		logger.Warn("open notification: %v", err)
	}
	return d
}

// OpenQuickSettings opens the quick settings shade.
func (d *DeviceInteraction) OpenQuickSettings() *DeviceInteraction {
	if err := d.session.device.OpenQuickSettings(); err != nil {
		logger.Warn("open quick settings: %v", err)
	}
	return d
}

// PressKeyCode presses an arbitrary key code and reports success.
func (d *DeviceInteraction) PressKeyCode(keyCode int) bool {
	if err := d.session.driver.PressKeyCode(keyCode); err != nil {
		logger.Debug("press key code %d: %v", keyCode, err)
		return false
	}
	return true
}

// Click taps at (x, y) and reports success.
func (d *DeviceInteraction) Click(x, y int) bool {
	if err := d.session.driver.Click(x, y); err != nil {
		logger.Debug("click (%d,%d): %v", x, y, err)
		return false
	}
	return true
}

// Drag drags from one point to another in steps of about 5ms each. It
// returns false if the operation fails or the coordinates are invalid.
func (d *DeviceInteraction) Drag(startX, startY, endX, endY, steps int) bool {
	if err := d.session.driver.Drag(startX, startY, endX, endY, steps); err != nil {
		logger.Debug("drag: %v", err)
		return false
	}
	return true
}

// Swipe swipes from one point to another in steps of about 5ms each. It
// returns false if the operation fails or the coordinates are invalid.
func (d *DeviceInteraction) Swipe(startX, startY, endX, endY, steps int) bool {
	if err := d.session.driver.Swipe(startX, startY, endX, endY, steps); err != nil {
		logger.Debug("swipe: %v", err)
		return false
	}
	return true
}

// ExecuteShellCommand runs cmd as the shell user. Failures are logged and
// never reach the caller.
func (d *DeviceInteraction) ExecuteShellCommand(cmd string) {
	out, err := d.session.device.Shell(cmd)
	if err != nil {
		logger.Error("shell %q: %v", cmd, err)
		return
	}
	logger.Debug("shell %q: %d bytes", cmd, len(out))
}

// SetCompressedLayoutHierarchy makes the reported hierarchy skip nodes that
// are not important for accessibility.
func (d *DeviceInteraction) SetCompressedLayoutHierarchy(compressed bool) {
	if err := d.session.driver.SetCompressedLayoutHierarchy(compressed); err != nil {
		logger.Warn("set compressed layout hierarchy: %v", err)
	}
}

// IsScreenOn reports whether the screen is on. A failed call panics.
func (d *DeviceInteraction) IsScreenOn() bool {
	on, err := d.session.device.IsScreenOn()
	if err != nil {
		panic(core.ErrRemoteCall.WithMessage("screen state query failed").WithCause(err))
	}
	return on
}

func (d *DeviceInteraction) press(name string, keyCode int) {
	if err := d.session.driver.PressKeyCode(keyCode); err != nil {
		logger.Warn("press %s: %v", name, err)
	}
}

// unchecked converts err into the value the panicking operations raise.
func unchecked(err error) *core.ExecutionError {
	var execErr *core.ExecutionError
	if errors.As(err, &execErr) {
		return execErr
	}
	return core.ErrRemoteCall.WithCause(err)
}

// String identifies the handle in logs.
func (d *DeviceInteraction) String() string {
	return fmt.Sprintf("DeviceInteraction(%s)", d.session.Serial())
}
