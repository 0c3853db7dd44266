// Poolkeeper
// Copyright (c) 2026 The Poolkeeper Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Poolkeeper.
//
// Poolkeeper is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Poolkeeper is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Poolkeeper.  If not, see <http://www.gnu.org/licenses/>.

// Package cli holds the flags shared by the daemon binary: one-shot API
// calls against a running daemon and process setup.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/poolkeeper/poolkeeper/pkg/api/client"
	"github.com/poolkeeper/poolkeeper/pkg/config"
	"github.com/poolkeeper/poolkeeper/pkg/helpers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var ErrMissingValue = errors.New("flag requires a value")

type Flags struct {
	API         *string
	Wait        *string
	WaitTimeout *time.Duration
	Service     *string
	Version     *bool
	Daemon      *bool
	Debug       *bool
}

// SetupFlags defines the CLI flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		API: fs.String(
			"api",
			"",
			"send method:params to the API and print the result",
		),
		Wait: fs.String(
			"wait",
			"",
			"print the params of the next notification with this name",
		),
		WaitTimeout: fs.Duration(
			"wait-timeout",
			config.APIRequestTimeout,
			"how long -wait blocks",
		),
		Service: fs.String(
			"service",
			"",
			"manage the background daemon: start, stop, restart, status or exec",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"also log to stderr",
		),
		Debug: fs.Bool(
			"debug",
			false,
			"enable debug logging",
		),
	}
}

func isFlagPassed(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses args and handles flags that need no environment. It reports
// whether the process should exit.
func (f *Flags) Pre(fs *flag.FlagSet, args []string, out io.Writer) (bool, error) {
	if err := fs.Parse(args); err != nil {
		return true, fmt.Errorf("error parsing flags: %w", err)
	}

	if *f.Version {
		_, _ = fmt.Fprintf(out, "poold v%s\n", config.AppVersion)
		return true, nil
	}
	return false, nil
}

// SplitAPI splits a method:params flag value. Params may contain colons.
func SplitAPI(value string) (method, params string) {
	method, params, _ = strings.Cut(value, ":")
	return method, params
}

// Post handles the client flags against a running daemon. It reports
// whether one of them ran.
func (f *Flags) Post(ctx context.Context, fs *flag.FlagSet, api client.APIClient, out io.Writer) (bool, error) {
	switch {
	case isFlagPassed(fs, "api"):
		if *f.API == "" {
			return true, fmt.Errorf("api: %w", ErrMissingValue)
		}
		method, params := SplitAPI(*f.API)
		resp, err := api.Call(ctx, method, params)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("error calling API")
			return true, fmt.Errorf("error calling API: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(resp))
		return true, nil
	case isFlagPassed(fs, "wait"):
		if *f.Wait == "" {
			return true, fmt.Errorf("wait: %w", ErrMissingValue)
		}
		resp, err := api.WaitNotification(ctx, *f.WaitTimeout, *f.Wait)
		if err != nil {
			log.Error().Err(err).Str("method", *f.Wait).Msg("error waiting for notification")
			return true, fmt.Errorf("error waiting for notification: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(resp))
		return true, nil
	}
	return false, nil
}

// Setup initializes logging and loads the user config.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaults config.Values, debug bool, writers ...io.Writer) (*config.Instance, error) {
	if err := helpers.InitLogging(config.LogDir(), writers...); err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(afero.NewOsFs(), config.ConfigDir(), defaults)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	helpers.SetDebugLogging(debug || cfg.DebugLogging())
	return cfg, nil
}
