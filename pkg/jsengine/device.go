package jsengine

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/mitchellh/mapstructure"

	"github.com/devicelab-dev/jyn/pkg/device"
	"github.com/devicelab-dev/jyn/pkg/jyn"
	"github.com/devicelab-dev/jyn/pkg/uiautomator2"
)

// BindSession exposes s to scripts as the global `device`. Chainable
// methods return `device`; an optional trailing argument is the timeout in
// milliseconds. A failed assertion or device call throws, and RunScript
// returns the underlying error.
func (e *Engine) BindSession(s *jyn.Session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	obj := e.runtime.NewObject()

	chain := func(name string, op func(call goja.FunctionCall, d *jyn.DeviceInteraction)) {
		obj.Set(name, func(call goja.FunctionCall) goja.Value {
			e.do(s, func(d *jyn.DeviceInteraction) { op(call, d) })
			return obj
		})
	}
	terminal := func(name string, op func(call goja.FunctionCall, d *jyn.DeviceInteraction) interface{}) {
		obj.Set(name, func(call goja.FunctionCall) goja.Value {
			var result interface{}
			e.do(s, func(d *jyn.DeviceInteraction) { result = op(call, d) })
			if result == nil {
				return goja.Undefined()
			}
			return e.runtime.ToValue(result)
		})
	}

	chain("onHomeScreen", func(call goja.FunctionCall, d *jyn.DeviceInteraction) {
		d.OnHomeScreenWithTimeout(timeoutArg(call, 0))
	})
	chain("checkForegroundAppIs", func(call goja.FunctionCall, d *jyn.DeviceInteraction) {
		d.CheckForegroundAppIsWithTimeout(e.stringArg(call, 0, "package"), timeoutArg(call, 1))
	})
	chain("launchApp", func(call goja.FunctionCall, d *jyn.DeviceInteraction) {
		d.LaunchAppWithTimeout(e.stringArg(call, 0, "package"), timeoutArg(call, 1))
	})
	chain("launchIntent", func(call goja.FunctionCall, d *jyn.DeviceInteraction) {
		d.LaunchIntentWithTimeout(e.intentArg(call, 0), timeoutArg(call, 1))
	})
	chain("pressHome", func(_ goja.FunctionCall, d *jyn.DeviceInteraction) { d.PressHome() })
	chain("pressBack", func(_ goja.FunctionCall, d *jyn.DeviceInteraction) { d.PressBack() })
	chain("pressMenu", func(_ goja.FunctionCall, d *jyn.DeviceInteraction) { d.PressMenu() })
	chain("pressRecentApps", func(_ goja.FunctionCall, d *jyn.DeviceInteraction) { d.PressRecentApps() })
	chain("pressSearch", func(_ goja.FunctionCall, d *jyn.DeviceInteraction) { d.PressSearch() })
	chain("pressEnter", func(_ goja.FunctionCall, d *jyn.DeviceInteraction) { d.PressEnter() })
	chain("openNotification", func(_ goja.FunctionCall, d *jyn.DeviceInteraction) { d.OpenNotification() })
	chain("openQuickSettings", func(_ goja.FunctionCall, d *jyn.DeviceInteraction) { d.OpenQuickSettings() })

	terminal("pressKeyCode", func(call goja.FunctionCall, d *jyn.DeviceInteraction) interface{} {
		return d.PressKeyCode(e.intArg(call, 0, "keyCode"))
	})
	terminal("click", func(call goja.FunctionCall, d *jyn.DeviceInteraction) interface{} {
		return d.Click(e.intArg(call, 0, "x"), e.intArg(call, 1, "y"))
	})
	terminal("drag", func(call goja.FunctionCall, d *jyn.DeviceInteraction) interface{} {
		return d.Drag(e.intArg(call, 0, "startX"), e.intArg(call, 1, "startY"),
			e.intArg(call, 2, "endX"), e.intArg(call, 3, "endY"), e.intArg(call, 4, "steps"))
	})
	terminal("swipe", func(call goja.FunctionCall, d *jyn.DeviceInteraction) interface{} {
		return d.Swipe(e.intArg(call, 0, "startX"), e.intArg(call, 1, "startY"),
			e.intArg(call, 2, "endX"), e.intArg(call, 3, "endY"), e.intArg(call, 4, "steps"))
	})
	terminal("executeShellCommand", func(call goja.FunctionCall, d *jyn.DeviceInteraction) interface{} {
		d.ExecuteShellCommand(e.stringArg(call, 0, "cmd"))
		return nil
	})
	terminal("setCompressedLayoutHierarchy", func(call goja.FunctionCall, d *jyn.DeviceInteraction) interface{} {
		d.SetCompressedLayoutHierarchy(call.Argument(0).ToBoolean())
		return nil
	})
	terminal("isScreenOn", func(_ goja.FunctionCall, d *jyn.DeviceInteraction) interface{} {
		return d.IsScreenOn()
	})

	obj.DefineAccessorProperty("serial", e.runtime.ToValue(s.Serial), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	e.runtime.Set("device", obj)
}

// do runs op on a fresh handle and turns a failure into a JS exception.
func (e *Engine) do(s *jyn.Session, op func(d *jyn.DeviceInteraction)) {
	err := jyn.Capture(func(t jyn.T) {
		op(s.OnDevice(t))
	})
	if err != nil {
		e.failure = err
		panic(e.runtime.NewGoError(err))
	}
}

func timeoutArg(call goja.FunctionCall, idx int) time.Duration {
	arg := call.Argument(idx)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		return jyn.DefaultTimeout
	}
	return time.Duration(arg.ToInteger()) * time.Millisecond
}

func (e *Engine) stringArg(call goja.FunctionCall, idx int, name string) string {
	arg := call.Argument(idx)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		panic(e.runtime.NewTypeError(fmt.Sprintf("%s is required", name)))
	}
	return arg.String()
}

func (e *Engine) intArg(call goja.FunctionCall, idx int, name string) int {
	arg := call.Argument(idx)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		panic(e.runtime.NewTypeError(fmt.Sprintf("%s is required", name)))
	}
	return int(arg.ToInteger())
}

// intentArg decodes {action, package, component, categories, data, extras,
// flags}. Extra values are converted to strings.
func (e *Engine) intentArg(call goja.FunctionCall, idx int) *device.Intent {
	arg := call.Argument(idx)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		panic(e.runtime.NewTypeError("intent is required"))
	}

	fields, ok := arg.Export().(map[string]interface{})
	if !ok {
		panic(e.runtime.NewTypeError("intent must be an object"))
	}

	intent := &device.Intent{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           intent,
	})
	if err == nil {
		err = decoder.Decode(fields)
	}
	if err != nil {
		panic(e.runtime.NewTypeError(fmt.Sprintf("invalid intent: %v", err)))
	}
	return intent
}

// keycodeObject exposes the common key codes, e.g. keycode.CAMERA.
func (e *Engine) keycodeObject() *goja.Object {
	obj := e.runtime.NewObject()
	for name, code := range map[string]int{
		"HOME":        uiautomator2.KeyCodeHome,
		"BACK":        uiautomator2.KeyCodeBack,
		"DPAD_UP":     uiautomator2.KeyCodeDpadUp,
		"DPAD_DOWN":   uiautomator2.KeyCodeDpadDown,
		"DPAD_LEFT":   uiautomator2.KeyCodeDpadLeft,
		"DPAD_RIGHT":  uiautomator2.KeyCodeDpadRight,
		"DPAD_CENTER": uiautomator2.KeyCodeDpadCenter,
		"VOLUME_UP":   uiautomator2.KeyCodeVolumeUp,
		"VOLUME_DOWN": uiautomator2.KeyCodeVolumeDown,
		"POWER":       uiautomator2.KeyCodePower,
		"CAMERA":      uiautomator2.KeyCodeCamera,
		"TAB":         uiautomator2.KeyCodeTab,
		"SPACE":       uiautomator2.KeyCodeSpace,
		"ENTER":       uiautomator2.KeyCodeEnter,
		"DEL":         uiautomator2.KeyCodeDelete,
		"MENU":        uiautomator2.KeyCodeMenu,
		"SEARCH":      uiautomator2.KeyCodeSearch,
		"APP_SWITCH":  uiautomator2.KeyCodeAppSwitch,
	} {
		obj.Set(name, code)
	}
	return obj
}
