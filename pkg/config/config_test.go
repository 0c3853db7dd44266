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

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDir = "/etc/poolkeeper"

func writeConfig(t *testing.T, fs afero.Fs, body string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(testDir, 0o750))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, CfgFile), []byte(body), 0o600))
}

func TestNewConfigWritesDefaults(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	cfg, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, filepath.Join(testDir, CfgFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "config_schema = 1")
	assert.Contains(t, string(data), "[udev]")

	assert.Equal(t, 7580, cfg.APIPort())
	assert.Equal(t, "127.0.0.1:7580", cfg.APIListen())
	assert.True(t, cfg.UdevEnabled())
	assert.Equal(t, 64, cfg.UdevBufferSize())
	assert.False(t, cfg.DebugLogging())
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeConfig(t, fs, `
config_schema = 1
debug_logging = true

[api]
port = 9000
allowed_origins = ["https://console.example"]
allowed_ips = ["10.0.0.0/8", "192.168.1.4"]
`)

	cfg, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)

	assert.True(t, cfg.DebugLogging())
	assert.Equal(t, 9000, cfg.APIPort())
	assert.Equal(t, "127.0.0.1", cfg.APIListenAddr())
	assert.Equal(t, []string{"https://console.example"}, cfg.AllowedOrigins())
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.4"}, cfg.AllowedIPs())
	assert.True(t, cfg.UdevEnabled())
	assert.Equal(t, "/var/lib/poolkeeper/pools.db", cfg.MetadataPath("/var/lib/poolkeeper"))
}

func TestLoadRejectsBadFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		check func(t *testing.T, err error)
		name  string
		body  string
	}{
		{
			name: "schema mismatch",
			body: "config_schema = 2\n",
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrSchemaMismatch)
			},
		},
		{
			name: "not toml",
			body: "config_schema = [\n",
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "failed to unmarshal config")
			},
		},
		{
			name: "port out of range",
			body: "config_schema = 1\n[api]\nport = 70000\n",
			check: func(t *testing.T, err error) {
				var verrs validator.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				assert.Equal(t, "Port", verrs[0].Field())
			},
		},
		{
			name: "listen address not an ip",
			body: "config_schema = 1\n[api]\nlisten_addr = \"localhost\"\n",
			check: func(t *testing.T, err error) {
				var verrs validator.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				assert.Equal(t, "ListenAddr", verrs[0].Field())
			},
		},
		{
			name: "allowed ip not an address",
			body: "config_schema = 1\n[api]\nallowed_ips = [\"lan\"]\n",
			check: func(t *testing.T, err error) {
				var verrs validator.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				assert.Equal(t, "AllowedIPs[0]", verrs[0].Field())
			},
		},
		{
			name: "udev buffer too large",
			body: "config_schema = 1\n[udev]\nbuffer_size = 5000\n",
			check: func(t *testing.T, err error) {
				var verrs validator.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				assert.Equal(t, "BufferSize", verrs[0].Field())
			},
		},
		{
			name: "history retention zero",
			body: "config_schema = 1\n[history]\nretention_days = 0\n",
			check: func(t *testing.T, err error) {
				var verrs validator.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				assert.Equal(t, "RetentionDays", verrs[0].Field())
			},
		},
		{
			name: "mqtt broker without port",
			body: "config_schema = 1\n[mqtt]\nbroker = \"mqtt.lan\"\n",
			check: func(t *testing.T, err error) {
				var verrs validator.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				assert.Equal(t, "Broker", verrs[0].Field())
			},
		},
		{
			name: "telemetry dsn not a url",
			body: "config_schema = 1\n[telemetry]\nenabled = true\ndsn = \"nope\"\n",
			check: func(t *testing.T, err error) {
				var verrs validator.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				assert.Equal(t, "DSN", verrs[0].Field())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs := afero.NewMemMapFs()
			writeConfig(t, fs, tt.body)
			_, err := NewConfig(fs, testDir, BaseDefaults)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestFailedReloadKeepsValues(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	cfg, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)
	cfg.SetAPIPort(8123)
	require.NoError(t, cfg.Save())

	writeConfig(t, fs, "config_schema = 1\n[api]\nport = 0\n")
	require.Error(t, cfg.Load())
	assert.Equal(t, 8123, cfg.APIPort())
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	cfg, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)

	cfg.SetDebugLogging(true)
	cfg.SetUdevEnabled(false)
	cfg.SetMetadataPath("/srv/pools.db")
	require.NoError(t, cfg.Save())

	again, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)
	assert.True(t, again.DebugLogging())
	assert.False(t, again.UdevEnabled())
	assert.Equal(t, "/srv/pools.db", again.MetadataPath("/ignored"))
}

func TestMetadataPathDisabled(t *testing.T) {
	t.Parallel()

	cfg := &Instance{}
	assert.Empty(t, cfg.MetadataPath("/var/lib/poolkeeper"))
}

func TestHistoryPath(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	cfg, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/poolkeeper/history.db", cfg.HistoryPath("/var/lib/poolkeeper"))
	assert.Equal(t, 30*24*time.Hour, cfg.HistoryRetention())

	cfg.SetHistoryEnabled(false)
	assert.Empty(t, cfg.HistoryPath("/var/lib/poolkeeper"))
}

func TestTelemetryDSNRequiresEnabled(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "config_schema = 1\n[telemetry]\ndsn = \"https://key@errors.example.org/1\"\n")
	cfg, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)
	assert.Empty(t, cfg.TelemetryDSN())

	writeConfig(t, fs, "config_schema = 1\n[telemetry]\nenabled = true\ndsn = \"https://key@errors.example.org/1\"\n")
	require.NoError(t, cfg.Load())
	assert.Equal(t, "https://key@errors.example.org/1", cfg.TelemetryDSN())
}

func TestMQTTSection(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "config_schema = 1\n[mqtt]\nbroker = \"mqtt.lan:1883\"\nfilter = [\"pools.changed\"]\n")
	cfg, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, "mqtt.lan:1883", cfg.MQTTBroker())
	assert.Equal(t, "poolkeeper/events", cfg.MQTTTopic())
	assert.Equal(t, []string{"pools.changed"}, cfg.MQTTFilter())
	assert.True(t, cfg.DiscoveryEnabled())
	assert.Empty(t, cfg.DiscoveryInstanceName())
}

// Uses t.Setenv, so it cannot run in parallel.
func TestNewConfigEnvOverride(t *testing.T) {
	custom := "/opt/poolkeeper/custom.toml"
	t.Setenv(CfgEnv, custom)

	fs := afero.NewMemMapFs()
	cfg, err := NewConfig(fs, testDir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, custom, cfg.Path())

	exists, err := afero.Exists(fs, custom)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAPIListenNoRecursiveLock(t *testing.T) {
	t.Parallel()

	cfg := &Instance{}
	done := make(chan struct{})
	go func() {
		_ = cfg.APIListen()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("APIListen() deadlocked")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs := afero.NewOsFs()
	cfg := &Instance{
		fs:       fs,
		cfgPath:  filepath.Join(dir, CfgFile),
		vals:     BaseDefaults,
		defaults: BaseDefaults,
	}
	require.NoError(t, cfg.Save())

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- cfg.Watch(ctx, func(*Instance) { reloads.Add(1) })
	}()

	body := strings.Join([]string{"config_schema = 1", "debug_logging = true", ""}, "\n")
	// The watcher may not be registered yet, so keep writing until it sees one.
	require.Eventually(t, func() bool {
		if err := os.WriteFile(cfg.Path(), []byte(body), 0o600); err != nil {
			return false
		}
		return cfg.DebugLogging()
	}, 5*time.Second, 50*time.Millisecond)
	assert.Positive(t, reloads.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
