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

// Package discovery advertises the control API over mDNS so clients on the
// local network can find the daemon without knowing its address.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/jonboulle/clockwork"
	"github.com/poolkeeper/poolkeeper/pkg/config"
	"github.com/rs/zerolog/log"
)

// ServiceType is the DNS-SD service type the daemon registers.
const ServiceType = "_poolkeeper._tcp"

const (
	retryInterval    = 30 * time.Second
	maxRetryDuration = 5 * time.Minute
	fallbackName     = "poolkeeper"
)

// virtualInterfacePrefixes are container and tunnel interfaces that should
// never carry the advertisement.
var virtualInterfacePrefixes = []string{
	"docker", "br-", "veth", "virbr", "lxc", "lxd",
	"cni", "flannel", "cali", "tunl", "wg",
}

type server interface {
	Shutdown()
}

type registerFunc func(instance string, port int, txt []string, ifaces []net.Interface) (server, error)

func zeroconfRegister(instance string, port int, txt []string, ifaces []net.Interface) (server, error) {
	s, err := zeroconf.Register(instance, ServiceType, "local.", port, txt, ifaces)
	if err != nil {
		return nil, fmt.Errorf("zeroconf register: %w", err)
	}
	return s, nil
}

// Service advertises one API listener.
type Service struct {
	clock      clockwork.Clock
	register   registerFunc
	interfaces func() ([]net.Interface, error)
	hostname   func() (string, error)
	cfg        *config.Instance
}

func New(cfg *config.Instance, clock clockwork.Clock) *Service {
	return &Service{
		cfg:        cfg,
		clock:      clock,
		register:   zeroconfRegister,
		interfaces: net.Interfaces,
		hostname:   os.Hostname,
	}
}

// Advertisable reports whether the API is reachable from other hosts. A
// loopback listener is never advertised.
func Advertisable(cfg *config.Instance) bool {
	if !cfg.DiscoveryEnabled() {
		return false
	}
	ip := net.ParseIP(cfg.APIListenAddr())
	return ip != nil && !ip.IsLoopback()
}

// Run registers the service and keeps it registered until ctx is done. When
// no interface is usable yet, registration is retried for a few minutes.
// Discovery failures are logged and never returned.
func (s *Service) Run(ctx context.Context) error {
	if !Advertisable(s.cfg) {
		log.Info().Msg("mDNS discovery disabled or api bound to loopback")
		return nil
	}

	name := s.resolveInstanceName()
	srv := s.tryRegister(name)
	if srv == nil {
		log.Info().
			Dur("retryInterval", retryInterval).
			Dur("maxDuration", maxRetryDuration).
			Msg("mDNS registration failed, retrying in background")
		srv = s.retry(ctx, name)
		if srv == nil {
			return nil
		}
	}

	<-ctx.Done()
	log.Debug().Msg("stopping mDNS advertising")
	srv.Shutdown()
	return nil
}

func (s *Service) retry(ctx context.Context, name string) server {
	ticker := s.clock.NewTicker(retryInterval)
	defer ticker.Stop()
	deadline := s.clock.After(maxRetryDuration)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			log.Warn().Msg("mDNS registration retry timed out, discovery unavailable")
			return nil
		case <-ticker.Chan():
			if srv := s.tryRegister(name); srv != nil {
				log.Info().Msg("mDNS registration succeeded after retry")
				return srv
			}
		}
	}
}

func (s *Service) tryRegister(name string) server {
	all, err := s.interfaces()
	if err != nil {
		log.Debug().Err(err).Msg("failed to list network interfaces")
		return nil
	}
	ifaces := filterInterfaces(all)
	if len(ifaces) == 0 {
		log.Debug().Msg("no suitable network interfaces for mDNS")
		return nil
	}

	names := make([]string, len(ifaces))
	for i, iface := range ifaces {
		names[i] = iface.Name
	}

	txt := []string{
		"version=" + config.AppVersion,
		"path=/api",
	}
	srv, err := s.register(name, s.cfg.APIPort(), txt, ifaces)
	if err != nil {
		log.Debug().Err(err).Msg("mDNS registration attempt failed")
		return nil
	}

	log.Info().
		Str("instance", name).
		Int("port", s.cfg.APIPort()).
		Strs("interfaces", names).
		Msg("mDNS advertising started")
	return srv
}

// resolveInstanceName prefers the configured name, then the hostname.
func (s *Service) resolveInstanceName() string {
	if name := s.cfg.DiscoveryInstanceName(); name != "" {
		return name
	}
	hostname, err := s.hostname()
	if err != nil || hostname == "" {
		log.Warn().Err(err).Msg("failed to get hostname, using fallback instance name")
		return fallbackName
	}
	return hostname
}

// filterInterfaces keeps interfaces that are up, multicast-capable, not
// loopback and not virtual.
func filterInterfaces(ifaces []net.Interface) []net.Interface {
	var preferred []net.Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 ||
			iface.Flags&net.FlagLoopback != 0 ||
			iface.Flags&net.FlagMulticast == 0 ||
			isVirtualInterface(iface.Name) {
			continue
		}
		preferred = append(preferred, iface)
	}
	return preferred
}

func isVirtualInterface(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
