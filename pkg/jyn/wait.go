package jyn

import (
	"time"

	"github.com/devicelab-dev/jyn/pkg/core"
	"github.com/devicelab-dev/jyn/pkg/logger"
)

// waitForWindow polls for a top-level window of pkg until it shows up or
// timeout elapses. The query runs at least once.
func (d *DeviceInteraction) waitForWindow(pkg string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	poll := d.session.poll

	for {
		found, err := d.session.driver.HasTopLevelWindow(pkg)
		if err != nil {
			logger.Debug("window query for %s: %v", pkg, err)
		}
		if found {
			return true
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			logger.Info("%s: %s after %v", core.ErrWaitTimeout.Message, pkg, timeout)
			return false
		}
		if remaining < poll {
			time.Sleep(remaining)
		} else {
			time.Sleep(poll)
		}
	}
}
