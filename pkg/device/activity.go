package device

import (
	"fmt"
	"sort"
	"strings"

	"github.com/devicelab-dev/jyn/pkg/core"
)

// Intent actions and categories used by jyn.
const (
	ActionMain       = "android.intent.action.MAIN"
	ActionView       = "android.intent.action.VIEW"
	CategoryHome     = "android.intent.category.HOME"
	CategoryLauncher = "android.intent.category.LAUNCHER"
)

// Intent flags (android.content.Intent).
const (
	FlagActivityClearTask = 0x00008000
	FlagActivityNewTask   = 0x10000000
)

// Intent describes an activity to start with `am start`.
type Intent struct {
	Action     string
	Package    string
	Component  string // "pkg/.Activity" or "pkg/pkg.Activity"
	Categories []string
	Data       string
	Extras     map[string]string
	Flags      int
}

// AddFlags ORs flags into the intent and returns it.
func (i *Intent) AddFlags(flags int) *Intent {
	i.Flags |= flags
	return i
}

// TargetPackage is the package the intent resolves into: Package when set,
// otherwise the package part of Component.
func (i *Intent) TargetPackage() string {
	if i.Package != "" {
		return i.Package
	}
	if pkg, _, ok := strings.Cut(i.Component, "/"); ok {
		return pkg
	}
	return ""
}

// Args renders the intent as `am start` arguments.
func (i *Intent) Args() []string {
	var args []string
	if i.Action != "" {
		args = append(args, "-a", i.Action)
	}
	for _, c := range i.Categories {
		args = append(args, "-c", c)
	}
	if i.Data != "" {
		args = append(args, "-d", i.Data)
	}
	if i.Component != "" {
		args = append(args, "-n", i.Component)
	} else if i.Package != "" {
		args = append(args, "-p", i.Package)
	}

	keys := make([]string, 0, len(i.Extras))
	for k := range i.Extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--es", k, i.Extras[k])
	}

	if i.Flags != 0 {
		args = append(args, "-f", fmt.Sprintf("0x%08x", i.Flags))
	}
	return args
}

func (i *Intent) String() string {
	return strings.Join(i.Args(), " ")
}

// LauncherPackage resolves the package of the default home activity.
// It returns an empty string when nothing handles the HOME category.
func (d *AndroidDevice) LauncherPackage() (string, error) {
	out, err := d.Shell("cmd package resolve-activity --brief -a " + ActionMain + " -c " + CategoryHome)
	if err != nil {
		return "", err
	}
	component, ok := parseResolvedComponent(out)
	if !ok {
		return "", nil
	}
	pkg, _, _ := strings.Cut(component, "/")
	return pkg, nil
}

// LaunchIntentForPackage returns the launcher intent of pkg.
func (d *AndroidDevice) LaunchIntentForPackage(pkg string) (*Intent, error) {
	out, err := d.Shell("cmd package resolve-activity --brief -a " + ActionMain + " -c " + CategoryLauncher + " " + shellQuote(pkg))
	if err != nil {
		return nil, core.ErrRemoteCall.WithCause(err)
	}
	component, ok := parseResolvedComponent(out)
	if !ok {
		return nil, core.ErrLaunchIntentNotFound.
			WithMessage(fmt.Sprintf("no launch intent for package %s", pkg)).
			WithDetails(map[string]interface{}{"package": pkg})
	}
	return &Intent{
		Action:     ActionMain,
		Categories: []string{CategoryLauncher},
		Component:  component,
		Package:    pkg,
	}, nil
}

// StartActivity runs `am start` for the intent.
func (d *AndroidDevice) StartActivity(intent *Intent) error {
	quoted := make([]string, 0, len(intent.Args()))
	for _, a := range intent.Args() {
		quoted = append(quoted, shellQuote(a))
	}

	out, err := d.Shell("am start " + strings.Join(quoted, " "))
	if err != nil {
		return core.ErrActivityStart.WithCause(err)
	}
	if msg, failed := parseStartError(out); failed {
		return core.ErrActivityStart.
			WithMessage(msg).
			WithDetails(map[string]interface{}{"intent": intent.String()})
	}
	return nil
}

// IsScreenOn reports whether the display is interactive.
func (d *AndroidDevice) IsScreenOn() (bool, error) {
	out, err := d.Shell("dumpsys power")
	if err != nil {
		return false, err
	}
	return parseScreenOn(out)
}

// OpenQuickSettings expands the quick settings shade.
func (d *AndroidDevice) OpenQuickSettings() error {
	_, err := d.Shell("cmd statusbar expand-settings")
	return err
}

// parseResolvedComponent extracts "pkg/activity" from resolve-activity --brief
// output, which prints the priority line first and the component last.
func parseResolvedComponent(out string) (string, bool) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" || strings.HasPrefix(last, "No activity found") {
		return "", false
	}
	if !strings.Contains(last, "/") {
		return "", false
	}
	return last, true
}

func parseStartError(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Error") || strings.Contains(line, "Exception") {
			return line, true
		}
	}
	return "", false
}

// parseScreenOn reads dumpsys power output. Newer releases report
// mWakefulness, older ones the display power state or mScreenOn.
func parseScreenOn(out string) (bool, error) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "mWakefulness="):
			return strings.TrimPrefix(line, "mWakefulness=") == "Awake", nil
		case strings.HasPrefix(line, "Display Power: state="):
			return strings.TrimPrefix(line, "Display Power: state=") == "ON", nil
		case strings.HasPrefix(line, "mScreenOn="):
			return strings.TrimPrefix(line, "mScreenOn=") == "true", nil
		}
	}
	return false, fmt.Errorf("screen state not found in dumpsys power output")
}

// shellQuote quotes s for the device shell when it contains anything other
// than safe characters.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("._-/:=@%+,", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
