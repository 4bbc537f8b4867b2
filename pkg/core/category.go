package core

// ErrorCategory classifies a failure for logging and CLI exit reporting.
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota
	ErrCategoryAssertion                // Expected device state was not observed
	ErrCategoryTimeout                  // A bounded wait elapsed
	ErrCategoryConnection               // adb or the UIAutomator2 server failed
	ErrCategoryApp                      // Package not installed or not launchable
	ErrCategoryConfig                   // Invalid configuration
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryApp:
		return "app"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}
