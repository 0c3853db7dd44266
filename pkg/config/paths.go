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
	"path/filepath"

	"github.com/adrg/xdg"
)

// ConfigDir is $XDG_CONFIG_HOME/poolkeeper.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir holds the metadata database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// LogDir holds the rotated daemon log.
func LogDir() string {
	return filepath.Join(xdg.StateHome, AppName, "logs")
}

// RunDir holds the daemon pid file.
func RunDir() string {
	return filepath.Join(xdg.RuntimeDir, AppName)
}
