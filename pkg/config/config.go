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

// Package config loads and saves the daemon's TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/poolkeeper/poolkeeper/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	SchemaVersion = 1
	CfgEnv        = "POOLKEEPER_CFG"
	CfgFile       = "config.toml"
	AppName       = "poolkeeper"
	MetadataFile  = "pools.db"
	HistoryFile   = "history.db"
	PidFile       = "poold.pid"
	AppEnv        = "POOLKEEPER_APP"
)

// APIRequestTimeout bounds a single API call made by the local client.
const APIRequestTimeout = 30 * time.Second

// AppVersion is set at build time.
var AppVersion = "DEVELOPMENT"

// ErrSchemaMismatch is returned when the file was written for another
// schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

type Values struct {
	Telemetry    Telemetry `toml:"telemetry"`
	Discovery    Discovery `toml:"discovery"`
	Engine       Engine    `toml:"engine"`
	History      History   `toml:"history"`
	MQTT         MQTT      `toml:"mqtt"`
	API          API       `toml:"api"`
	Udev         Udev      `toml:"udev"`
	ConfigSchema int       `toml:"config_schema"`
	DebugLogging bool      `toml:"debug_logging"`
}

type API struct {
	ListenAddr     string   `toml:"listen_addr" validate:"omitempty,ip"`
	AllowedOrigins []string `toml:"allowed_origins,omitempty,multiline"`
	AllowedIPs     []string `toml:"allowed_ips,omitempty,multiline" validate:"dive,cidr|ip"`
	Port           int      `toml:"port" validate:"min=1,max=65535"`
}

type Udev struct {
	BufferSize int  `toml:"buffer_size" validate:"min=1,max=4096"`
	Enabled    bool `toml:"enabled"`
}

type Engine struct {
	// MetadataPath is relative to the data directory unless absolute. An
	// empty path keeps pools in memory only.
	MetadataPath string `toml:"metadata_path"`
}

// History controls the operation log. Path is resolved like
// Engine.MetadataPath.
type History struct {
	Path          string `toml:"path"`
	RetentionDays int    `toml:"retention_days" validate:"min=1,max=3650"`
	Enabled       bool   `toml:"enabled"`
}

// Telemetry error reports are off unless both fields are set.
type Telemetry struct {
	DSN     string `toml:"dsn,omitempty" validate:"omitempty,url"`
	Enabled bool   `toml:"enabled"`
}

// Discovery advertises the API over mDNS. It only takes effect when the API
// listens on a non-loopback address.
type Discovery struct {
	InstanceName string `toml:"instance_name,omitempty"`
	Enabled      bool   `toml:"enabled"`
}

// MQTT forwards notifications to a broker. An empty Broker disables it; an
// empty Filter forwards every notification.
type MQTT struct {
	Broker string   `toml:"broker,omitempty" validate:"omitempty,hostname_port"`
	Topic  string   `toml:"topic" validate:"required_with=Broker"`
	Filter []string `toml:"filter,omitempty,multiline"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	API: API{
		ListenAddr: "127.0.0.1",
		Port:       7580,
	},
	Udev: Udev{
		Enabled:    true,
		BufferSize: 64,
	},
	Engine: Engine{
		MetadataPath: MetadataFile,
	},
	History: History{
		Enabled:       true,
		Path:          HistoryFile,
		RetentionDays: 30,
	},
	Discovery: Discovery{
		Enabled: true,
	},
	MQTT: MQTT{
		Topic: "poolkeeper/events",
	},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type Instance struct {
	fs       afero.Fs
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// NewConfig loads the config file in configDir, or the file named by
// POOLKEEPER_CFG, writing defaults first if it does not exist yet.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(fs afero.Fs, configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		fs:       fs,
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	exists, err := afero.Exists(fs, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !exists {
		log.Info().Str("path", cfgPath).Msg("saving new default config to disk")

		if err := fs.MkdirAll(filepath.Dir(cfgPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Load(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load re-reads the file. On any error the previous values stay in place.
func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := afero.ReadFile(c.fs, c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields missing from the file keep their default values.
	newVals := c.defaults
	newVals.API.AllowedOrigins = append([]string(nil), c.defaults.API.AllowedOrigins...)
	newVals.API.AllowedIPs = append([]string(nil), c.defaults.API.AllowedIPs...)
	newVals.MQTT.Filter = append([]string(nil), c.defaults.MQTT.Filter...)
	if err := toml.Unmarshal(data, &newVals); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return ErrSchemaMismatch
	}

	if err := validate.Struct(&newVals); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.vals = newVals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(c.fs, c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}

func (c *Instance) APIListenAddr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API.ListenAddr
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API.Port
}

// APIListen is the host:port the API server binds to.
func (c *Instance) APIListen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return net.JoinHostPort(c.vals.API.ListenAddr, strconv.Itoa(c.vals.API.Port))
}

func (c *Instance) SetAPIPort(port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.API.Port = port
}

// AllowedOrigins lists extra CORS origins for the API on top of localhost.
func (c *Instance) AllowedOrigins() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.vals.API.AllowedOrigins...)
}

// AllowedIPs lists addresses and CIDR ranges admitted to the API besides
// loopback.
func (c *Instance) AllowedIPs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.vals.API.AllowedIPs...)
}

func (c *Instance) UdevEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Udev.Enabled
}

func (c *Instance) SetUdevEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Udev.Enabled = enabled
}

func (c *Instance) UdevBufferSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Udev.BufferSize
}

// MetadataPath resolves the metadata database path against dataDir. It
// returns "" when persistence is disabled.
func (c *Instance) MetadataPath(dataDir string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path := c.vals.Engine.MetadataPath
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dataDir, path)
}

func (c *Instance) SetMetadataPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Engine.MetadataPath = path
}

// HistoryPath resolves the history database path against dataDir. It
// returns "" when the history log is disabled.
func (c *Instance) HistoryPath(dataDir string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.vals.History.Enabled {
		return ""
	}
	path := c.vals.History.Path
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dataDir, path)
}

func (c *Instance) SetHistoryPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.History.Path = path
}

func (c *Instance) SetHistoryEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.History.Enabled = enabled
}

func (c *Instance) HistoryRetention() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.History.RetentionDays) * 24 * time.Hour
}

// TelemetryDSN returns the error reporting endpoint, or "" when reporting
// is off.
func (c *Instance) TelemetryDSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.vals.Telemetry.Enabled {
		return ""
	}
	return c.vals.Telemetry.DSN
}

func (c *Instance) DiscoveryEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Discovery.Enabled
}

func (c *Instance) DiscoveryInstanceName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Discovery.InstanceName
}

func (c *Instance) MQTTBroker() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.MQTT.Broker
}

func (c *Instance) SetMQTTBroker(broker string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.MQTT.Broker = broker
}

func (c *Instance) MQTTTopic() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.MQTT.Topic
}

func (c *Instance) MQTTFilter() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.vals.MQTT.Filter...)
}
