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
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDaemon answers each request with reply(req), which may return several
// messages.
func fakeDaemon(t *testing.T, reply func(req models.RequestObject) []any) *config.Instance {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api", r.URL.Path)
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = c.Close() }()
		for {
			var req models.RequestObject
			if err := c.ReadJSON(&req); err != nil {
				return
			}
			for _, msg := range reply(req) {
				if err := c.WriteJSON(msg); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg, err := config.NewConfig(afero.NewMemMapFs(), "/etc/poolkeeper", config.BaseDefaults)
	require.NoError(t, err)
	cfg.SetAPIPort(port)
	return cfg
}

func TestAPIURL(t *testing.T) {
	t.Parallel()
	cfg, err := config.NewConfig(afero.NewMemMapFs(), "/etc/poolkeeper", config.BaseDefaults)
	require.NoError(t, err)
	cfg.SetAPIPort(7999)
	assert.Equal(t, "ws://127.0.0.1:7999/api", apiURL(cfg))
}

func TestLocalClientMatchesReplyByID(t *testing.T) {
	t.Parallel()
	cfg := fakeDaemon(t, func(req models.RequestObject) []any {
		return []any{
			models.NotificationObject{JSONRPC: "2.0", Method: models.NotificationPoolsChanged},
			models.ResponseObject{JSONRPC: "2.0", ID: models.NewStringID("someone-else"), Result: "wrong"},
			models.ResponseObject{JSONRPC: "2.0", ID: *req.ID, Result: models.VersionResponse{Version: "1.2.3"}},
		}
	})

	resp, err := LocalClient(context.Background(), cfg, models.MethodVersion, "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.2.3"}`, string(resp))
}

func TestLocalClientSendsParams(t *testing.T) {
	t.Parallel()
	cfg := fakeDaemon(t, func(req models.RequestObject) []any {
		return []any{models.ResponseObject{JSONRPC: "2.0", ID: *req.ID, Result: req.Params}}
	})

	resp, err := LocalClient(context.Background(), cfg, models.MethodPoolsGet, `{"uuid":"x"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"uuid":"x"}`, string(resp))

	_, err = LocalClient(context.Background(), cfg, models.MethodPoolsGet, `{"uuid":`)
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestLocalClientRPCError(t *testing.T) {
	t.Parallel()
	cfg := fakeDaemon(t, func(req models.RequestObject) []any {
		return []any{models.ResponseErrorObject{
			JSONRPC: "2.0",
			ID:      *req.ID,
			Error:   &models.ErrorObject{Code: -32001, Message: "pool not found"},
		}}
	})

	_, err := LocalClient(context.Background(), cfg, models.MethodPoolsGet, `{}`)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32001, rpcErr.Code)
	assert.Equal(t, "pool not found (code -32001)", rpcErr.Error())
}

func TestLocalClientCancelled(t *testing.T) {
	t.Parallel()
	cfg := fakeDaemon(t, func(models.RequestObject) []any { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := LocalClient(ctx, cfg, models.MethodVersion, "")
	require.ErrorIs(t, err, ErrRequestCancelled)
}

func TestLocalClientNoDaemon(t *testing.T) {
	t.Parallel()
	cfg := fakeDaemon(t, nil)
	cfg.SetAPIPort(1)

	_, err := LocalClient(context.Background(), cfg, models.MethodVersion, "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRequestTimeout))
}

func TestWaitNotification(t *testing.T) {
	t.Parallel()
	push := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = c.Close() }()
		<-push
		_ = c.WriteJSON(models.NotificationObject{JSONRPC: "2.0", Method: models.NotificationKeysChanged})
		_ = c.WriteJSON(models.NotificationObject{
			JSONRPC: "2.0",
			Method:  models.NotificationPoolsChanged,
			Params:  json.RawMessage(`{"uuid":"u","method":"pools.create"}`),
		})
		_, _, _ = c.ReadMessage()
	}))
	defer srv.Close()

	cfg := fakeDaemon(t, nil)
	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	cfg.SetAPIPort(port)

	close(push)
	params, err := WaitNotification(context.Background(), 5*time.Second, cfg, models.NotificationPoolsChanged)
	require.NoError(t, err)
	assert.JSONEq(t, `{"uuid":"u","method":"pools.create"}`, string(params))
}

func TestWaitNotificationTimeout(t *testing.T) {
	t.Parallel()
	cfg := fakeDaemon(t, func(models.RequestObject) []any { return nil })

	_, err := WaitNotification(context.Background(), 50*time.Millisecond, cfg, models.NotificationPoolsChanged)
	require.ErrorIs(t, err, ErrRequestTimeout)
}
