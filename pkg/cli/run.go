package cli

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/jyn/pkg/jsengine"
	"github.com/devicelab-dev/jyn/pkg/logger"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run a JavaScript device script",
	ArgsUsage: "<script.js>",
	Description: `Runs a script with a global "device" bound to the connected device.
Chainable operations return device; an optional trailing argument is the
timeout in milliseconds. Values assigned to "output" are printed as JSON.

Examples:
  jyn run smoke.js
  jyn run launch.js -e PKG=com.android.settings`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Script variable KEY=VALUE (repeatable)",
		},
	},
	Action: runScript,
}

func runScript(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("run requires exactly one script")
	}
	path := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(c, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("=== jyn run %s started ===", path)
	session, err := openSession(cfg)
	if err != nil {
		logger.Error("Session failed: %v", err)
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close session: %v", err)
		}
	}()

	engine := jsengine.New()
	defer engine.Close()
	engine.SetStdout(outWriter(c))
	for k, v := range parseEnvVars(c.StringSlice("env")) {
		engine.SetVariable(k, v)
	}
	engine.BindSession(session)

	if err := engine.RunFile(path); err != nil {
		logger.Error("Script %s failed: %v", path, err)
		return err
	}

	output := engine.GetOutput()
	if len(output) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(outWriter(c), string(data))
	return nil
}
