//go:build linux

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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poolkeeper/poolkeeper/internal/telemetry"
	"github.com/poolkeeper/poolkeeper/pkg/api/client"
	"github.com/poolkeeper/poolkeeper/pkg/cli"
	"github.com/poolkeeper/poolkeeper/pkg/config"
	"github.com/poolkeeper/poolkeeper/pkg/service"
	"github.com/poolkeeper/poolkeeper/pkg/service/daemon"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)
	if exit, err := flags.Pre(flag.CommandLine, os.Args[1:], os.Stdout); exit {
		return err
	}

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{os.Stderr}
	}
	cfg, err := cli.Setup(config.BaseDefaults, *flags.Debug, logWriters...)
	if err != nil {
		return err
	}

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Error().Msgf("panic: %v", err)
			telemetry.Close()
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if handled, err := flags.Post(ctx, flag.CommandLine, client.NewLocalAPIClient(cfg), os.Stdout); handled {
		return err
	}

	if err := telemetry.Init(cfg.TelemetryDSN(), config.AppVersion); err != nil {
		log.Warn().Err(err).Msg("error reporting unavailable")
	}
	defer telemetry.Close()

	svc, err := daemon.NewService(daemon.ServiceArgs{
		RunDir: config.RunDir(),
		Entry: func() (func() error, <-chan struct{}, error) {
			return service.Start(cfg, service.Options{
				DataDir:     config.DataDir(),
				WatchConfig: true,
			})
		},
	})
	if err != nil {
		return err
	}

	switch cmd := *flags.Service; cmd {
	case "":
		log.Info().Msg("starting in foreground")
		return svc.Run(ctx)
	case "status":
		st, err := svc.Status(ctx)
		if errors.Is(err, daemon.ErrNotRunning) {
			_, _ = fmt.Println("stopped")
			return err
		} else if err != nil {
			return err
		}
		_, _ = fmt.Printf("started (%s)\n", st)
		return nil
	case "start", "restart":
		if err := svc.ServiceHandler(ctx, cmd); err != nil {
			return err
		}
		return svc.WaitForAPI(ctx, cfg, 10*time.Second, 250*time.Millisecond)
	default:
		return svc.ServiceHandler(ctx, cmd)
	}
}
