// Moonwatch Core
// Copyright (c) 2026 The Moonwatch Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Moonwatch Core.
//
// Moonwatch Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Moonwatch Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Moonwatch Core.  If not, see <http://www.gnu.org/licenses/>.

package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/moonwatch-project/moonwatch-core/internal/telemetry"
	"github.com/moonwatch-project/moonwatch-core/pkg/config"
	"github.com/moonwatch-project/moonwatch-core/pkg/helpers"
	"github.com/moonwatch-project/moonwatch-core/pkg/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DSNEnv supplies the error reporting DSN when the config file has none.
const DSNEnv = "MOONWATCH_SENTRY_DSN"

var ErrFlagConflict = errors.New("-once and -status can't be combined")

type Flags struct {
	Config  *string
	Once    *bool
	Status  *bool
	Version *bool
	Quiet   *bool
}

// SetupFlags defines the CLI flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config: fs.String(
			"config",
			"",
			"path to config.toml (default: $"+config.CfgEnv+" or the user config dir)",
		),
		Once: fs.Bool(
			"once",
			false,
			"run a single cold-start cycle and exit, for timer-driven deep sleep",
		),
		Status: fs.Bool(
			"status",
			false,
			"print the persisted clock and verification state as YAML and exit",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		Quiet: fs.Bool(
			"quiet",
			false,
			"don't print the moon panel to stdout",
		),
	}
}

// Pre parses args and handles the flags that need no environment.
func (f *Flags) Pre(fs *flag.FlagSet, args []string, stdout io.Writer) (exit bool, err error) {
	if err := fs.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *f.Version {
		_, _ = fmt.Fprintf(stdout, "Moonwatch v%s\n", config.AppVersion)
		return true, nil
	}
	if *f.Once && *f.Status {
		return true, ErrFlagConflict
	}
	return false, nil
}

// Setup initializes logging, the user config and error reporting.
//
//nolint:gocritic // config struct copied for immutability
func Setup(
	cfgPath string,
	defaultConfig config.Values,
	writers []io.Writer,
) (*config.Instance, error) {
	err := helpers.InitLogging(helpers.LogDir(), false, writers)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	var cfg *config.Instance
	if cfgPath != "" {
		cfg, err = config.Open(cfgPath, defaultConfig)
	} else {
		cfg, err = config.NewConfig(helpers.ConfigDir(), defaultConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	dsn := cfg.ErrorReportingDSN()
	if dsn == "" {
		dsn = os.Getenv(DSNEnv)
	}
	if err := telemetry.Init(telemetry.Options{
		Enabled:     cfg.ErrorReporting(),
		DSN:         dsn,
		DeviceID:    cfg.DeviceID(),
		Version:     config.AppVersion,
		Environment: "device",
	}); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}

// Main is the whole program behind cmd/moonwatch. It returns the process
// exit code.
func Main(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := SetupFlags(fs)

	exit, err := flags.Pre(fs, args, stdout)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if exit {
		return 0
	}

	var logWriters []io.Writer
	if !*flags.Status {
		logWriters = append(logWriters, zerolog.ConsoleWriter{Out: stderr})
	}
	cfg, err := Setup(*flags.Config, config.BaseDefaults, logWriters)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer telemetry.Close()

	dataDir := helpers.DataDir()
	if *flags.Status {
		if err := WriteStatus(stdout, cfg, dataDir); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	var panelOut io.Writer = stdout
	if *flags.Quiet {
		panelOut = nil
	}
	rt, err := service.NewRuntime(cfg, dataDir, panelOut)
	if err != nil {
		log.Error().Err(err).Msg("failed to start")
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Error().Err(err).Msg("failed to shut down cleanly")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := service.Run(ctx, rt.Deps, service.OptionsFromConfig(cfg, *flags.Once)); err != nil {
		log.Error().Err(err).Msg("service exited with error")
		telemetry.Flush()
		return 1
	}
	log.Info().Msg("service stopped")
	return 0
}
