package uiautomator2

import (
	"encoding/json"
	"fmt"
)

// Back presses the BACK button.
func (c *Client) Back() error {
	if err := c.requireSession(); err != nil {
		return err
	}
	_, err := c.request("POST", c.sessionPath("/back"), nil)
	return err
}

// PressKeyCode injects a single key press.
func (c *Client) PressKeyCode(keyCode int) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	_, err := c.request("POST", c.sessionPath("/appium/device/press_keycode"), KeyCodeRequest{KeyCode: keyCode})
	return err
}

// OpenNotifications pulls down the notification shade.
func (c *Client) OpenNotifications() error {
	if err := c.requireSession(); err != nil {
		return err
	}
	_, err := c.request("POST", c.sessionPath("/appium/device/open_notifications"), nil)
	return err
}

// Source returns the current window hierarchy as XML.
func (c *Client) Source() (string, error) {
	if err := c.requireSession(); err != nil {
		return "", err
	}
	data, err := c.request("GET", c.sessionPath("/source"), nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parse source response: %w", err)
	}
	return resp.Value, nil
}

// GetDeviceInfo returns device information reported by the server.
func (c *Client) GetDeviceInfo() (*DeviceInfo, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	data, err := c.request("GET", c.sessionPath("/appium/device/info"), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Value DeviceInfo `json:"value"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse device info: %w", err)
	}
	return &resp.Value, nil
}

// UpdateSettings merges the given settings into the server settings.
func (c *Client) UpdateSettings(settings map[string]interface{}) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	_, err := c.request("POST", c.sessionPath("/appium/settings"), SettingsRequest{Settings: settings})
	return err
}

// SetCompressedLayoutHierarchy makes the server drop nodes that are not
// important for accessibility from the hierarchy it reports.
func (c *Client) SetCompressedLayoutHierarchy(compressed bool) error {
	return c.UpdateSettings(map[string]interface{}{
		SettingIgnoreUnimportantViews: compressed,
	})
}
