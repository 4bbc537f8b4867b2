// Package uiautomator2 provides HTTP client for UIAutomator2 server.
package uiautomator2

// Response is the standard UIAutomator2 response format.
type Response struct {
	SessionID string      `json:"sessionId"`
	Value     interface{} `json:"value"`
}

// Capabilities for session creation.
type Capabilities struct {
	PlatformName string `json:"platformName,omitempty"`
	DeviceName   string `json:"deviceName,omitempty"`
}

// SessionRequest for creating a session.
type SessionRequest struct {
	Capabilities Capabilities `json:"capabilities"`
}

// KeyCodeRequest for pressing keys.
type KeyCodeRequest struct {
	KeyCode  int `json:"keycode"`
	MetaKeys int `json:"metastate,omitempty"`
}

// PointModel represents coordinates.
type PointModel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ClickRequest for tap gestures.
type ClickRequest struct {
	Offset *PointModel `json:"offset,omitempty"`
}

// TouchRequest is the body of the step-based drag and swipe endpoints.
// The server injects one move event per step, throttled to ~5ms each.
type TouchRequest struct {
	StartX int `json:"startX"`
	StartY int `json:"startY"`
	EndX   int `json:"endX"`
	EndY   int `json:"endY"`
	Steps  int `json:"steps"`
}

// SettingsRequest for updating settings.
type SettingsRequest struct {
	Settings map[string]interface{} `json:"settings"`
}

// DeviceInfo from device info endpoint.
type DeviceInfo struct {
	AndroidID       string `json:"androidId"`
	Manufacturer    string `json:"manufacturer"`
	Model           string `json:"model"`
	Brand           string `json:"brand"`
	APIVersion      string `json:"apiVersion"`
	PlatformVersion string `json:"platformVersion"`
	RealDisplaySize string `json:"realDisplaySize"`
	DisplayDensity  int    `json:"displayDensity"`
}

// Common Android key codes.
const (
	KeyCodeHome       = 3
	KeyCodeBack       = 4
	KeyCodeDpadUp     = 19
	KeyCodeDpadDown   = 20
	KeyCodeDpadLeft   = 21
	KeyCodeDpadRight  = 22
	KeyCodeDpadCenter = 23
	KeyCodeVolumeUp   = 24
	KeyCodeVolumeDown = 25
	KeyCodePower      = 26
	KeyCodeCamera     = 27
	KeyCodeTab        = 61
	KeyCodeSpace      = 62
	KeyCodeEnter      = 66
	KeyCodeDelete     = 67
	KeyCodeMenu       = 82
	KeyCodeSearch     = 84
	KeyCodeAppSwitch  = 187
)

// Server settings toggled through /appium/settings.
const (
	SettingIgnoreUnimportantViews = "ignoreUnimportantViews"
	SettingWaitForIdleTimeout     = "waitForIdleTimeout"
)
