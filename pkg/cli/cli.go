// Package cli provides the command-line interface for jyn.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/jyn/pkg/config"
	"github.com/devicelab-dev/jyn/pkg/core"
	"github.com/devicelab-dev/jyn/pkg/jyn"
)

// Version is set at build time.
var Version = "dev"

// Exit codes.
const (
	ExitFailure   = 1 // assertion failed, bad usage or operation returned false
	ExitExecution = 2 // device call, launch or session failure
)

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"s"},
		Usage:   "adb serial of the device to drive (default: first connected device)",
		EnvVars: []string{config.EnvDevice},
	},
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Path to jyn.yaml (default: ./jyn.yaml if present)",
		EnvVars: []string{config.EnvConfig},
	},
	&cli.IntFlag{
		Name:    "timeout",
		Usage:   "Wait for home screen and foreground checks, in milliseconds",
		EnvVars: []string{config.EnvTimeout},
	},
	&cli.StringFlag{
		Name:    "log",
		Usage:   "Append the session log to this file",
		EnvVars: []string{config.EnvLog},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Copy the session log to stderr",
		EnvVars: []string{"JYN_VERBOSE"},
	},
}

// NewApp builds the jyn application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "jyn",
		Usage:   "Drive an Android device through UIAutomator2",
		Version: Version,
		Description: `jyn connects to an Android device over adb, starts the UIAutomator2
server and runs one device operation or a JavaScript device script.

Examples:
  jyn devices
  jyn home
  jyn -s emulator-5554 launch com.android.settings
  jyn start --action android.settings.SETTINGS --package com.android.settings
  jyn press recent
  jyn run smoke.js -e PKG=com.android.settings`,
		Flags:    GlobalFlags,
		Commands: Commands(),
	}
}

// Commands returns every jyn subcommand.
func Commands() []*cli.Command {
	return []*cli.Command{
		devicesCommand,
		homeCommand,
		foregroundCommand,
		launchCommand,
		startCommand,
		pressCommand,
		notificationCommand,
		quickSettingsCommand,
		clickCommand,
		dragCommand,
		swipeCommand,
		shellCommand,
		compressCommand,
		screenCommand,
		runCommand,
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var assertErr *jyn.AssertionError
	if errors.As(err, &assertErr) {
		return ExitFailure
	}
	var execErr *core.ExecutionError
	if errors.As(err, &execErr) {
		switch execErr.Category {
		case core.ErrCategoryAssertion, core.ErrCategoryConfig:
			return ExitFailure
		}
		return ExitExecution
	}
	return ExitFailure
}
