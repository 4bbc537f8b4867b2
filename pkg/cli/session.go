package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/jyn/pkg/config"
	"github.com/devicelab-dev/jyn/pkg/jyn"
	"github.com/devicelab-dev/jyn/pkg/logger"
)

// openSession connects to the device. Tests replace it with a mock session.
var openSession = jyn.Connect

// loadConfig resolves the configuration for a command: --config or
// ./jyn.yaml, then JYN_* variables, then explicit flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if c.IsSet("device") {
		cfg.Device = c.String("device")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Int("timeout")
	}
	if c.IsSet("log") {
		cfg.Log = c.String("log")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging points the global logger at the configured file and, with
// --verbose, at stderr. The returned func closes the log.
func setupLogging(c *cli.Context, cfg *config.Config) (func(), error) {
	if cfg.Log != "" {
		if err := logger.Init(cfg.Log); err != nil {
			return nil, err
		}
	}
	if c.Bool("verbose") {
		logger.Mirror(errWriter(c))
	}
	return logger.Close, nil
}

// withSession connects, runs op against a fresh interaction handle and
// disconnects. Assertion failures and unchecked device failures come back
// as errors.
func withSession(c *cli.Context, op func(d *jyn.DeviceInteraction, cfg *config.Config)) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	closeLog, err := setupLogging(c, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("=== jyn %s started ===", c.Command.Name)
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

	err = jyn.Capture(func(t jyn.T) {
		op(session.OnDevice(t), cfg)
	})
	if err != nil {
		logger.Error("%s failed: %v", c.Command.Name, err)
	}
	return err
}

// parseEnvVars parses KEY=VALUE strings, ignoring malformed entries.
func parseEnvVars(envs []string) map[string]string {
	result := make(map[string]string)
	for _, e := range envs {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}
	return result
}

func outWriter(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func errWriter(c *cli.Context) io.Writer {
	if c.App != nil && c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}
