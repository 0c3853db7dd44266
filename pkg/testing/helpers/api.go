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

package helpers

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/stretchr/testify/require"
)

// JSONRPCResponse is a decoded response or notification read from the API.
type JSONRPCResponse struct {
	Error  *models.ErrorObject `json:"error,omitempty"`
	ID     json.RawMessage     `json:"id,omitempty"`
	Method string              `json:"method,omitempty"`
	Result json.RawMessage     `json:"result,omitempty"`
	Params json.RawMessage     `json:"params,omitempty"`
}

// IsNotification reports a server push rather than a reply.
func (r *JSONRPCResponse) IsNotification() bool {
	return r.Method != ""
}

// WSClient is a JSON-RPC websocket client for tests. Replies are matched by
// id; notifications read while waiting are queued for ReadNotification.
type WSClient struct {
	t       *testing.T
	conn    *websocket.Conn
	pending []*JSONRPCResponse
	nextID  atomic.Int64
}

// DialAPI connects to path on a test server.
func DialAPI(t *testing.T, srv *httptest.Server, path string) *WSClient {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	u.Scheme = "ws"
	u.Path = path

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &WSClient{t: t, conn: conn}
}

func (c *WSClient) read(timeout time.Duration) *JSONRPCResponse {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	var resp JSONRPCResponse
	require.NoError(c.t, json.Unmarshal(data, &resp), "message: %s", data)
	return &resp
}

// Send writes msg without waiting for a reply.
func (c *WSClient) Send(msg []byte) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, msg))
}

// WriteRaw sends msg as is and returns the next message that is not a
// notification.
func (c *WSClient) WriteRaw(msg []byte) *JSONRPCResponse {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, msg))
	for {
		resp := c.read(5 * time.Second)
		if !resp.IsNotification() {
			return resp
		}
		c.pending = append(c.pending, resp)
	}
}

// WriteText sends msg and returns the raw text reply, for the ping
// heartbeat.
func (c *WSClient) WriteText(msg string) string {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(msg)))
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	return string(data)
}

// Call sends a request with a fresh numeric id and waits for its reply.
func (c *WSClient) Call(method string, params any) *JSONRPCResponse {
	c.t.Helper()
	id := c.nextID.Add(1)
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}
	data, err := json.Marshal(req)
	require.NoError(c.t, err)

	resp := c.WriteRaw(data)
	require.Equal(c.t, strconv.FormatInt(id, 10), string(resp.ID))
	return resp
}

// ReadNotification returns the next notification named method, skipping
// others.
func (c *WSClient) ReadNotification(method string, timeout time.Duration) *JSONRPCResponse {
	c.t.Helper()
	for i, n := range c.pending {
		if n.Method == method {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return n
		}
	}
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		require.Positive(c.t, remaining, "timed out waiting for %s", method)
		resp := c.read(remaining)
		if resp.Method == method {
			return resp
		}
	}
}

// ExpectNoMessage fails if anything arrives within wait.
func (c *WSClient) ExpectNoMessage(wait time.Duration) {
	c.t.Helper()
	require.Empty(c.t, c.pending)
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(wait)))
	_, data, err := c.conn.ReadMessage()
	require.Error(c.t, err, "unexpected message: %s", data)
}

// DecodeResult unmarshals a successful response's result into dest.
func DecodeResult[T any](t *testing.T, resp *JSONRPCResponse) T {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error response")
	var out T
	require.NoError(t, json.Unmarshal(resp.Result, &out))
	return out
}

func AssertJSONRPCError(t *testing.T, resp *JSONRPCResponse, expectedCode int) {
	t.Helper()
	require.NotNil(t, resp, "response should not be nil")
	require.NotNil(t, resp.Error, "response should contain an error")
	require.Equal(t, expectedCode, resp.Error.Code, "error code should match: %s", resp.Error.Message)
}

// FreePort returns a loopback TCP port that was free a moment ago.
func FreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// MustJSON marshals v or panics; for building test params.
func MustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal %T: %v", v, err))
	}
	return data
}
