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

// Package service wires the engine, the hotplug monitor and the control API
// into a running daemon.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/poolkeeper/poolkeeper/pkg/api"
	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/config"
	"github.com/poolkeeper/poolkeeper/pkg/database"
	"github.com/poolkeeper/poolkeeper/pkg/database/historydb"
	"github.com/poolkeeper/poolkeeper/pkg/engine"
	"github.com/poolkeeper/poolkeeper/pkg/engine/metadata"
	"github.com/poolkeeper/poolkeeper/pkg/engine/sim"
	"github.com/poolkeeper/poolkeeper/pkg/helpers"
	"github.com/poolkeeper/poolkeeper/pkg/service/broker"
	"github.com/poolkeeper/poolkeeper/pkg/service/discovery"
	"github.com/poolkeeper/poolkeeper/pkg/service/publishers"
	"github.com/poolkeeper/poolkeeper/pkg/udev"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// NotificationBuffer is the capacity of the channel handlers and the
// dispatcher publish on.
const NotificationBuffer = 128

const mqttSubscriberBuffer = 64

type Options struct {
	// UdevSource replaces the netlink socket, mainly for tests.
	UdevSource udev.Source
	Clock      clockwork.Clock
	DataDir    string
	// WatchConfig reloads the config file on change. It needs the config
	// to live on the real filesystem.
	WatchConfig bool
}

func openStore(path string) (*metadata.Store, error) {
	if path == "" {
		log.Warn().Msg("metadata persistence disabled, pools live in memory only")
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}
	store, err := metadata.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}
	return store, nil
}

func openHistory(path string) (*historydb.HistoryDB, error) {
	if path == "" {
		log.Info().Msg("history log disabled")
		return nil, nil
	}
	db, err := historydb.Open(context.Background(), path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}

// Start brings the daemon up. stop cancels everything and waits for it to
// wind down; done closes once all components have exited, including after
// a component failed on its own.
func Start(cfg *config.Instance, opts Options) (stop func() error, done <-chan struct{}, err error) {
	store, err := openStore(cfg.MetadataPath(opts.DataDir))
	if err != nil {
		return nil, nil, err
	}
	hdb, err := openHistory(cfg.HistoryPath(opts.DataDir))
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, err
	}
	closeStore := func() {
		if hdb != nil {
			if err := hdb.Close(); err != nil {
				log.Error().Err(err).Msg("error closing history database")
			}
		}
		if store == nil {
			return
		}
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("error closing metadata store")
		}
	}

	simOpts := []sim.Option{sim.WithStore(store)}
	if opts.Clock != nil {
		simOpts = append(simOpts, sim.WithClock(opts.Clock))
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	eng, err := sim.New(simOpts...)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to start engine: %w", err)
	}
	le := engine.NewLockableEngine(eng)

	ctx, cancel := context.WithCancel(context.Background())
	ns := make(chan models.Notification, NotificationBuffer)
	b := broker.NewBroker(ctx, ns)
	b.Start()

	g, gctx := errgroup.WithContext(ctx)

	var mon *udev.Monitor
	if cfg.UdevEnabled() {
		src := opts.UdevSource
		if src == nil {
			src = &udev.NetlinkSource{}
		}
		mon = udev.NewMonitor(src, cfg.UdevBufferSize())
		if err := mon.Start(gctx); err != nil {
			cancel()
			b.Stop()
			closeStore()
			return nil, nil, fmt.Errorf("failed to start udev monitor: %w", err)
		}
		d := NewDispatcher(le, mon.Events(), ns)
		g.Go(func() error { return d.Run(gctx) })
	} else {
		log.Info().Msg("udev monitor disabled")
	}

	if opts.WatchConfig {
		g.Go(func() error {
			return cfg.Watch(gctx, func(c *config.Instance) {
				helpers.SetDebugLogging(c.DebugLogging())
				log.Info().Msg("config reloaded")
			})
		})
	}

	var hist database.HistoryReader
	if hdb != nil {
		hist = hdb
		rec := &historyRecorder{db: hdb, clock: clock, retention: cfg.HistoryRetention()}
		notifs, subID := b.Subscribe(historySubscriberBuffer)
		g.Go(func() error {
			defer b.Unsubscribe(subID)
			return rec.Run(gctx, notifs)
		})
	}

	if addr := cfg.MQTTBroker(); addr != "" {
		pub := publishers.NewMQTTPublisher(addr, cfg.MQTTTopic(), cfg.MQTTFilter())
		notifs, subID := b.Subscribe(mqttSubscriberBuffer)
		g.Go(func() error {
			defer b.Unsubscribe(subID)
			return pub.Run(gctx, notifs)
		})
	}

	g.Go(func() error { return discovery.New(cfg, clock).Run(gctx) })
	g.Go(func() error { return api.Start(gctx, cfg, le, b, ns, hist) })

	var waitErr error
	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		waitErr = g.Wait()
		if waitErr != nil {
			log.Error().Err(waitErr).Msg("service component failed")
		}
		if mon != nil {
			mon.Stop()
		}
		b.Stop()
		closeStore()
		log.Info().Msg("service stopped")
	}()

	stop = func() error {
		cancel()
		<-doneCh
		if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
			return waitErr
		}
		return nil
	}

	log.Info().Str("version", config.AppVersion).Msg("service started")
	return stop, doneCh, nil
}
