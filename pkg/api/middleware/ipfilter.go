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

// Package middleware holds the HTTP and websocket guards in front of the
// control API.
package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// ParseRemoteIP extracts the IP from a host:port RemoteAddr.
func ParseRemoteIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	return net.ParseIP(host)
}

// IPFilter admits loopback clients plus any configured addresses or CIDR
// ranges. Pool management is privileged, so unlike a plain allowlist an
// empty list means local clients only.
type IPFilter struct {
	nets  []*net.IPNet
	addrs []net.IP
}

func NewIPFilter(allowed []string) *IPFilter {
	f := &IPFilter{}
	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if _, network, err := net.ParseCIDR(entry); err == nil {
			f.nets = append(f.nets, network)
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			f.addrs = append(f.addrs, ip)
			continue
		}
		log.Warn().Str("entry", entry).Msg("invalid IP or CIDR in allowed_ips, skipping")
	}
	return f
}

func (f *IPFilter) IsAllowed(remoteAddr string) bool {
	ip := ParseRemoteIP(remoteAddr)
	if ip == nil {
		log.Warn().Str("addr", remoteAddr).Msg("failed to parse remote address")
		return false
	}
	if ip.IsLoopback() {
		return true
	}
	for _, a := range f.addrs {
		if ip.Equal(a) {
			return true
		}
	}
	for _, n := range f.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// HTTPIPFilterMiddleware rejects requests, including websocket upgrades,
// from addresses the filter does not admit.
func HTTPIPFilterMiddleware(filter *IPFilter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !filter.IsAllowed(r.RemoteAddr) {
				log.Warn().
					Str("addr", r.RemoteAddr).
					Str("path", r.URL.Path).
					Msg("request from blocked address")
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
