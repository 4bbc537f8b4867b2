package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/jyn/pkg/config"
	"github.com/devicelab-dev/jyn/pkg/device"
	"github.com/devicelab-dev/jyn/pkg/jyn"
)

const defaultSteps = 10

var homeCommand = &cli.Command{
	Name:      "home",
	Usage:     "Press HOME and wait for the launcher",
	ArgsUsage: " ",
	Action: func(c *cli.Context) error {
		return withSession(c, func(d *jyn.DeviceInteraction, cfg *config.Config) {
			d.OnHomeScreenWithTimeout(cfg.TimeoutDuration())
			printSuccess(outWriter(c), "home screen")
		})
	},
}

var foregroundCommand = &cli.Command{
	Name:      "foreground",
	Usage:     "Check that a package has a top-level window",
	ArgsUsage: "<package>",
	Action: func(c *cli.Context) error {
		pkg, err := packageArg(c)
		if err != nil {
			return err
		}
		return withSession(c, func(d *jyn.DeviceInteraction, cfg *config.Config) {
			d.CheckForegroundAppIsWithTimeout(pkg, cfg.TimeoutDuration())
			printSuccess(outWriter(c), "%s is in the foreground", pkg)
		})
	},
}

var launchCommand = &cli.Command{
	Name:      "launch",
	Usage:     "Launch a package's main activity and wait for its window",
	ArgsUsage: "<package>",
	Action: func(c *cli.Context) error {
		pkg, err := packageArg(c)
		if err != nil {
			return err
		}
		return withSession(c, func(d *jyn.DeviceInteraction, cfg *config.Config) {
			d.LaunchAppWithTimeout(pkg, cfg.TimeoutDuration())
			printSuccess(outWriter(c), "launched %s", pkg)
		})
	},
}

var startCommand = &cli.Command{
	Name:  "start",
	Usage: "Start an activity from an intent and wait for its package",
	Description: `Builds an intent from the flags, starts it with NEW_TASK|CLEAR_TASK and
waits for the target package when one is known.

Examples:
  jyn start --action android.settings.SETTINGS --package com.android.settings
  jyn start --component com.example/.MainActivity --extra user=test`,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "action", Aliases: []string{"a"}, Usage: "Intent action"},
		&cli.StringFlag{Name: "package", Aliases: []string{"p"}, Usage: "Target package"},
		&cli.StringFlag{Name: "component", Aliases: []string{"n"}, Usage: "Target component (pkg/.Activity)"},
		&cli.StringSliceFlag{Name: "category", Aliases: []string{"c"}, Usage: "Intent category (repeatable)"},
		&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "Data URI"},
		&cli.StringSliceFlag{Name: "extra", Aliases: []string{"e"}, Usage: "String extra KEY=VALUE (repeatable)"},
	},
	Action: func(c *cli.Context) error {
		intent := intentFromFlags(c)
		if intent.Action == "" && intent.Component == "" && intent.Package == "" {
			return fmt.Errorf("start requires --action, --component or --package")
		}
		return withSession(c, func(d *jyn.DeviceInteraction, cfg *config.Config) {
			d.LaunchIntentWithTimeout(intent, cfg.TimeoutDuration())
			printSuccess(outWriter(c), "started %s", intent)
		})
	},
}

var pressCommand = &cli.Command{
	Name:      "press",
	Usage:     "Press a named key or a key code",
	ArgsUsage: "<back|menu|recent|search|enter|home|CODE>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("press requires exactly one key")
		}
		key := strings.ToLower(c.Args().First())

		if press, ok := namedKeys[key]; ok {
			return withSession(c, func(d *jyn.DeviceInteraction, _ *config.Config) {
				press(d)
				printSuccess(outWriter(c), "pressed %s", key)
			})
		}

		code, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("unknown key %q", key)
		}
		var ok bool
		if err := withSession(c, func(d *jyn.DeviceInteraction, _ *config.Config) {
			ok = d.PressKeyCode(code)
		}); err != nil {
			return err
		}
		return printResult(outWriter(c), ok, "press key code %d", code)
	},
}

var namedKeys = map[string]func(d *jyn.DeviceInteraction){
	"back":   func(d *jyn.DeviceInteraction) { d.PressBack() },
	"menu":   func(d *jyn.DeviceInteraction) { d.PressMenu() },
	"recent": func(d *jyn.DeviceInteraction) { d.PressRecentApps() },
	"search": func(d *jyn.DeviceInteraction) { d.PressSearch() },
	"enter":  func(d *jyn.DeviceInteraction) { d.PressEnter() },
	"home":   func(d *jyn.DeviceInteraction) { d.PressHome() },
}

var notificationCommand = &cli.Command{
	Name:  "notification",
	Usage: "Open the notification shade",
	Action: func(c *cli.Context) error {
		return withSession(c, func(d *jyn.DeviceInteraction, _ *config.Config) {
			d.OpenNotification()
			printSuccess(outWriter(c), "notification shade")
		})
	},
}

var quickSettingsCommand = &cli.Command{
	Name:  "quick-settings",
	Usage: "Open the quick settings panel",
	Action: func(c *cli.Context) error {
		return withSession(c, func(d *jyn.DeviceInteraction, _ *config.Config) {
			d.OpenQuickSettings()
			printSuccess(outWriter(c), "quick settings")
		})
	},
}

var clickCommand = &cli.Command{
	Name:      "click",
	Usage:     "Tap the screen at X Y",
	ArgsUsage: "[--] <x> <y>",
	Description: `Coordinates starting with "-" would be read as flags, put them after --:

   jyn click -- -5 120`,
	Action: func(c *cli.Context) error {
		xy, err := intArgs(c, 2)
		if err != nil {
			return err
		}
		var ok bool
		if err := withSession(c, func(d *jyn.DeviceInteraction, _ *config.Config) {
			ok = d.Click(xy[0], xy[1])
		}); err != nil {
			return err
		}
		return printResult(outWriter(c), ok, "click (%d, %d)", xy[0], xy[1])
	},
}

var dragCommand = gestureCommand("drag", "Drag from SX SY to EX EY",
	func(d *jyn.DeviceInteraction, p []int, steps int) bool { return d.Drag(p[0], p[1], p[2], p[3], steps) })

var swipeCommand = gestureCommand("swipe", "Swipe from SX SY to EX EY",
	func(d *jyn.DeviceInteraction, p []int, steps int) bool { return d.Swipe(p[0], p[1], p[2], p[3], steps) })

func gestureCommand(name, usage string, gesture func(d *jyn.DeviceInteraction, p []int, steps int) bool) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "[--steps N] [--] <sx> <sy> <ex> <ey>",
		Description: fmt.Sprintf(`Coordinates starting with "-" would be read as flags, put them after --:

   jyn %s --steps 20 -- -1 0 540 1200`, name),
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "steps", Usage: "Number of move steps", Value: defaultSteps},
		},
		Action: func(c *cli.Context) error {
			p, err := intArgs(c, 4)
			if err != nil {
				return err
			}
			steps := c.Int("steps")
			var ok bool
			if err := withSession(c, func(d *jyn.DeviceInteraction, _ *config.Config) {
				ok = gesture(d, p, steps)
			}); err != nil {
				return err
			}
			return printResult(outWriter(c), ok, "%s (%d, %d) -> (%d, %d)", name, p[0], p[1], p[2], p[3])
		},
	}
}

var shellCommand = &cli.Command{
	Name:      "shell",
	Usage:     "Run a shell command on the device (output and errors go to the log)",
	ArgsUsage: "<command...>",
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			return fmt.Errorf("shell requires a command")
		}
		cmd := strings.Join(c.Args().Slice(), " ")
		return withSession(c, func(d *jyn.DeviceInteraction, _ *config.Config) {
			d.ExecuteShellCommand(cmd)
		})
	},
}

var compressCommand = &cli.Command{
	Name:      "compress",
	Usage:     "Turn compressed layout hierarchy on or off",
	ArgsUsage: "<true|false>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("compress requires true or false")
		}
		compressed, err := strconv.ParseBool(c.Args().First())
		if err != nil {
			return fmt.Errorf("invalid value %q: want true or false", c.Args().First())
		}
		return withSession(c, func(d *jyn.DeviceInteraction, _ *config.Config) {
			d.SetCompressedLayoutHierarchy(compressed)
			printSuccess(outWriter(c), "compressed layout hierarchy: %v", compressed)
		})
	},
}

var screenCommand = &cli.Command{
	Name:  "screen",
	Usage: "Print whether the screen is on",
	Action: func(c *cli.Context) error {
		return withSession(c, func(d *jyn.DeviceInteraction, _ *config.Config) {
			if d.IsScreenOn() {
				fmt.Fprintln(outWriter(c), "on")
			} else {
				fmt.Fprintln(outWriter(c), "off")
			}
		})
	},
}

func packageArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 || c.Args().First() == "" {
		return "", fmt.Errorf("%s requires a package name", c.Command.Name)
	}
	return c.Args().First(), nil
}

func intArgs(c *cli.Context, n int) ([]int, error) {
	if c.NArg() != n {
		return nil, fmt.Errorf("%s requires %d integer arguments", c.Command.Name, n)
	}
	out := make([]int, n)
	for i, arg := range c.Args().Slice() {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", arg)
		}
		out[i] = v
	}
	return out, nil
}

func intentFromFlags(c *cli.Context) *device.Intent {
	intent := &device.Intent{
		Action:     c.String("action"),
		Package:    c.String("package"),
		Component:  c.String("component"),
		Categories: c.StringSlice("category"),
		Data:       c.String("data"),
	}
	if extras := parseEnvVars(c.StringSlice("extra")); len(extras) > 0 {
		intent.Extras = extras
	}
	return intent
}
