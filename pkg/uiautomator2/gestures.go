package uiautomator2

import (
	"encoding/json"
	"fmt"
)

// Click taps at the given screen coordinates.
func (c *Client) Click(x, y int) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	if err := validatePoint(x, y); err != nil {
		return err
	}
	req := ClickRequest{Offset: &PointModel{X: x, Y: y}}
	_, err := c.request("POST", c.sessionPath("/appium/gestures/click"), req)
	return err
}

// Drag performs a press-move-release from start to end in the given
// number of steps.
func (c *Client) Drag(startX, startY, endX, endY, steps int) error {
	return c.touch("/touch/drag", "drag", startX, startY, endX, endY, steps)
}

// Swipe performs a swipe from start to end in the given number of steps.
func (c *Client) Swipe(startX, startY, endX, endY, steps int) error {
	return c.touch("/touch/perform", "swipe", startX, startY, endX, endY, steps)
}

func (c *Client) touch(path, name string, startX, startY, endX, endY, steps int) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	if err := validatePoint(startX, startY); err != nil {
		return fmt.Errorf("%s start: %w", name, err)
	}
	if err := validatePoint(endX, endY); err != nil {
		return fmt.Errorf("%s end: %w", name, err)
	}
	if steps <= 0 {
		return fmt.Errorf("%s: steps must be positive, got %d", name, steps)
	}

	req := TouchRequest{StartX: startX, StartY: startY, EndX: endX, EndY: endY, Steps: steps}
	data, err := c.request("POST", c.sessionPath(path), req)
	if err != nil {
		return err
	}

	// Older servers answer with a bare boolean instead of an error status.
	var resp Response
	if json.Unmarshal(data, &resp) == nil {
		if ok, isBool := resp.Value.(bool); isBool && !ok {
			return fmt.Errorf("%s did not complete", name)
		}
	}
	return nil
}

func validatePoint(x, y int) error {
	if x < 0 || y < 0 {
		return fmt.Errorf("coordinates out of range: (%d,%d)", x, y)
	}
	return nil
}
