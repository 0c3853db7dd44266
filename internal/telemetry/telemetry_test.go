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

package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "no username in path", input: "/usr/local/bin/poold", expected: "/usr/local/bin/poold"},
		{
			name:     "home path",
			input:    "/home/alex/.config/poolkeeper/config.toml",
			expected: "/home/<user>/.config/poolkeeper/config.toml",
		},
		{
			name:     "home path uppercase",
			input:    "/Home/Alex/.local/share/poolkeeper/pools.db",
			expected: "/home/<user>/.local/share/poolkeeper/pools.db",
		},
		{
			name:     "disk serial in message",
			input:    "failed to open /dev/disk/by-id/ata-WDC_WD40EFRX-68N32N0_WD-WCC7K1234567: busy",
			expected: "failed to open /dev/disk/by-id/<id>: busy",
		},
		{
			name:     "multiple paths",
			input:    "copying /home/alex/a to /home/sam/b",
			expected: "copying /home/<user>/a to /home/<user>/b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizePath(tt.input))
		})
	}
}

func TestSanitizeEvent(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{
		ServerName: "nas01",
		Message:    "pool on /home/alex/disk.img failed",
		Extra:      map[string]any{"path": "/home/alex/x", "count": 3},
		Exception: []sentry.Exception{{
			Value: "open /dev/disk/by-id/nvme-Samsung_SSD_S4EWNX0N123456: no such device",
			Stacktrace: &sentry.Stacktrace{Frames: []sentry.Frame{{
				AbsPath:  "/home/alex/src/poolkeeper/pkg/engine/sim/sim.go",
				Filename: "pkg/engine/sim/sim.go",
			}}},
		}},
	}

	out := sanitizeEvent(event)
	require.NotNil(t, out)
	assert.Empty(t, out.ServerName)
	assert.Equal(t, "pool on /home/<user>/disk.img failed", out.Message)
	assert.Equal(t, "/home/<user>/x", out.Extra["path"])
	assert.Equal(t, 3, out.Extra["count"])
	assert.Equal(t, "open /dev/disk/by-id/<id>: no such device", out.Exception[0].Value)
	assert.Equal(t, "/home/<user>/src/poolkeeper/pkg/engine/sim/sim.go",
		out.Exception[0].Stacktrace.Frames[0].AbsPath)
}

func TestInitWithoutDSNStaysDisabled(t *testing.T) {
	t.Parallel()

	require.NoError(t, Init("", "1.0.0"))
	assert.False(t, Enabled())
	Close()
	Flush()
}
