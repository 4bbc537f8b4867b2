package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorGray  = "\033[90m"
)

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		colorsEnabled = false
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

func printSuccess(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s✓%s %s\n", color(colorGreen), color(colorReset), fmt.Sprintf(format, args...))
}

func printFailure(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s✗%s %s\n", color(colorRed), color(colorReset), fmt.Sprintf(format, args...))
}

// printResult reports a boolean operation and turns false into an error.
func printResult(w io.Writer, ok bool, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if ok {
		printSuccess(w, "%s", msg)
		return nil
	}
	printFailure(w, "%s", msg)
	return fmt.Errorf("%s failed", msg)
}
