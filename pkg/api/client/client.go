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

// Package client talks to a running daemon over the local websocket API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/config"
	"github.com/rs/zerolog/log"
)

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrInvalidParams    = errors.New("invalid params")
	ErrRequestCancelled = errors.New("request cancelled")
)

// RPCError is an error response returned by the daemon.
type RPCError struct {
	Message string
	Code    int
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// wireResponse accepts both success and error responses.
type wireResponse struct {
	Error   *models.ErrorObject `json:"error"`
	JSONRPC string              `json:"jsonrpc"`
	ID      models.RPCID        `json:"id"`
	Result  json.RawMessage     `json:"result"`
}

func apiURL(cfg *config.Instance) string {
	host := cfg.APIListenAddr()
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "127.0.0.1"
	}
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(host, strconv.Itoa(cfg.APIPort())),
		Path:   "/api",
	}
	return u.String()
}

func dial(ctx context.Context, cfg *config.Instance) (*websocket.Conn, error) {
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, apiURL(cfg), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to api: %w", err)
	}
	return c, nil
}

func closeConn(c *websocket.Conn) {
	if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warn().Err(err).Msg("error closing websocket")
	}
}

// await waits for read to finish, closing the connection to unblock it on
// timeout or cancellation.
func await(ctx context.Context, c *websocket.Conn, timeout time.Duration, done <-chan struct{}) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		closeConn(c)
		<-done
		return ErrRequestTimeout
	case <-ctx.Done():
		closeConn(c)
		<-done
		return ErrRequestCancelled
	}
}

// LocalClient calls method with params, a JSON document or "", and returns
// the raw result.
func LocalClient(
	ctx context.Context,
	cfg *config.Instance,
	method string,
	params string,
) (json.RawMessage, error) {
	id := models.NewStringID(uuid.New().String())
	req := models.RequestObject{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
	}
	if params != "" {
		if !json.Valid([]byte(params)) {
			return nil, ErrInvalidParams
		}
		req.Params = json.RawMessage(params)
	}

	c, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeConn(c)

	done := make(chan struct{})
	var resp *wireResponse
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("websocket read ended")
				return
			}
			var m wireResponse
			if err := json.Unmarshal(message, &m); err != nil || m.JSONRPC != "2.0" {
				continue
			}
			if string(m.ID.RawMessage) != string(id.RawMessage) {
				continue
			}
			resp = &m
			return
		}
	}()

	if err := c.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if err := await(ctx, c, config.APIRequestTimeout, done); err != nil {
		return nil, err
	}

	if resp == nil {
		return nil, ErrRequestTimeout
	}
	if resp.Error != nil {
		return nil, &RPCError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	return resp.Result, nil
}

// WaitNotification blocks until a notification named method arrives and
// returns its params. A zero timeout means APIRequestTimeout.
func WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	cfg *config.Instance,
	method string,
) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = config.APIRequestTimeout
	}

	c, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeConn(c)

	done := make(chan struct{})
	var notif *models.NotificationObject
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("websocket read ended")
				return
			}
			var m models.NotificationObject
			if err := json.Unmarshal(message, &m); err != nil || m.JSONRPC != "2.0" {
				continue
			}
			if m.Method != method {
				continue
			}
			notif = &m
			return
		}
	}()

	if err := await(ctx, c, timeout, done); err != nil {
		return nil, err
	}
	if notif == nil {
		return nil, ErrRequestTimeout
	}
	return notif.Params, nil
}

// WaitForAPI polls the version method until the daemon answers or maxWait
// passes.
func WaitForAPI(ctx context.Context, cfg *config.Instance, maxWait, checkInterval time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		callCtx, callCancel := context.WithTimeout(ctx, checkInterval)
		_, err := LocalClient(callCtx, cfg, models.MethodVersion, "")
		callCancel()
		if err == nil {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
