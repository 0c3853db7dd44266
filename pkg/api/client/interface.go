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

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/poolkeeper/poolkeeper/pkg/config"
)

// APIClient abstracts API communication for testability.
type APIClient interface {
	Call(ctx context.Context, method, params string) (json.RawMessage, error)
	WaitNotification(ctx context.Context, timeout time.Duration, method string) (json.RawMessage, error)
}

// LocalAPIClient talks to the daemon configured in cfg.
type LocalAPIClient struct {
	cfg *config.Instance
}

func NewLocalAPIClient(cfg *config.Instance) *LocalAPIClient {
	return &LocalAPIClient{cfg: cfg}
}

func (c *LocalAPIClient) Call(ctx context.Context, method, params string) (json.RawMessage, error) {
	resp, err := LocalClient(ctx, c.cfg, method, params)
	if err != nil {
		return nil, fmt.Errorf("api call failed: %w", err)
	}
	return resp, nil
}

func (c *LocalAPIClient) WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	method string,
) (json.RawMessage, error) {
	resp, err := WaitNotification(ctx, timeout, c.cfg, method)
	if err != nil {
		return nil, fmt.Errorf("wait notification failed: %w", err)
	}
	return resp, nil
}
