package config

import (
	"os"
	"path/filepath"
	"sync"
)

const envHome = "JYN_HOME"

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the jyn home directory, which holds the bundled
// UIAutomator2 server APKs under drivers/android.
//
// Resolution order:
//  1. $JYN_HOME
//  2. <home> when the binary lives in <home>/bin/
//  3. the working directory
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome()
	})
	return homeDir
}

// GetDriversDir returns <home>/drivers/<platform>.
func GetDriversDir(platform string) string {
	return filepath.Join(GetHome(), "drivers", platform)
}

func resolveHome() string {
	if env := os.Getenv(envHome); env != "" {
		return env
	}

	if execPath, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = resolved
		}
		if binDir := filepath.Dir(execPath); filepath.Base(binDir) == "bin" {
			return filepath.Dir(binDir)
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

// ResetHome resets the cached home directory (for testing).
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}
