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

// Package api serves the JSON-RPC 2.0 control API over a websocket.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/olahol/melody"
	"github.com/poolkeeper/poolkeeper/pkg/api/methods"
	apimiddleware "github.com/poolkeeper/poolkeeper/pkg/api/middleware"
	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/api/models/requests"
	"github.com/poolkeeper/poolkeeper/pkg/config"
	"github.com/poolkeeper/poolkeeper/pkg/database"
	"github.com/poolkeeper/poolkeeper/pkg/engine"
	"github.com/poolkeeper/poolkeeper/pkg/service/broker"
	"github.com/rs/zerolog/log"
)

const (
	APIPath = "/api"
	// SubscriberBuffer is the broker buffer for the websocket broadcaster.
	SubscriberBuffer = 64
	shutdownTimeout  = 5 * time.Second
)

var methodMap = map[string]func(requests.RequestEnv) (any, error){
	// pools
	models.MethodPools:             methods.HandlePools,
	models.MethodPoolsGet:          methods.HandlePoolsGet,
	models.MethodPoolsLocked:       methods.HandlePoolsLocked,
	models.MethodPoolsCreate:       methods.HandlePoolsCreate,
	models.MethodPoolsDestroy:      methods.HandlePoolsDestroy,
	models.MethodPoolsRename:       methods.HandlePoolsRename,
	models.MethodPoolsBlockdevsAdd: methods.HandlePoolsBlockdevsAdd,
	models.MethodPoolsUnlock:       methods.HandlePoolsUnlock,
	// clevis
	models.MethodPoolsClevisBind:   methods.HandleClevisBind,
	models.MethodPoolsClevisUnbind: methods.HandleClevisUnbind,
	models.MethodPoolsClevisRegen:  methods.HandleClevisRegen,
	// filesystems
	models.MethodFilesystemsCreate:  methods.HandleFilesystemsCreate,
	models.MethodFilesystemsDestroy: methods.HandleFilesystemsDestroy,
	models.MethodFilesystemsRename:  methods.HandleFilesystemsRename,
	// keys
	models.MethodKeys:      methods.HandleKeys,
	models.MethodKeysSet:   methods.HandleKeysSet,
	models.MethodKeysUnset: methods.HandleKeysUnset,
	// utils
	models.MethodVersion: methods.HandleVersion,
	models.MethodHistory: methods.HandleHistory,
}

func handleRequest(env requests.RequestEnv, req models.RequestObject) (any, error) {
	log.Debug().Str("method", req.Method).Stringer("id", req.ID).Msg("received request")

	fn, ok := methodMap[strings.ToLower(req.Method)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, req.Method)
	}

	env.ID = *req.ID
	env.Params = req.Params

	return fn(env)
}

func writeJSON(session *melody.Session, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshalling response: %w", err)
	}
	if err := session.Write(data); err != nil {
		return fmt.Errorf("error writing response: %w", err)
	}
	return nil
}

func sendResponse(session *melody.Session, id models.RPCID, result any) error {
	return writeJSON(session, models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func sendError(session *melody.Session, id models.RPCID, errObj models.ErrorObject) error {
	log.Debug().Int("code", errObj.Code).Str("message", errObj.Message).Msg("sending error")
	return writeJSON(session, models.ResponseErrorObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &errObj,
	})
}

func handleWSMessage(
	ctx context.Context,
	le engine.LockableEngine,
	ns chan<- models.Notification,
	hist database.HistoryReader,
) func(session *melody.Session, msg []byte) {
	return func(session *melody.Session, msg []byte) {
		// heartbeat
		if bytes.Equal(msg, []byte("ping")) {
			if err := session.Write([]byte("pong")); err != nil {
				log.Error().Err(err).Msg("sending pong")
			}
			return
		}

		if !json.Valid(msg) {
			log.Warn().Msg("data not valid json")
			if err := sendError(session, models.NullRPCID, JSONRPCErrorParseError); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}

		var req models.RequestObject
		if err := json.Unmarshal(msg, &req); err != nil || req.JSONRPC != "2.0" || req.Method == "" {
			log.Warn().Err(err).Str("jsonrpc", req.JSONRPC).Msg("invalid request object")
			id := models.NullRPCID
			if !req.ID.IsAbsent() {
				id = *req.ID
			}
			if err := sendError(session, id, JSONRPCErrorInvalidRequest); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}

		if req.ID.IsAbsent() {
			log.Info().Str("method", req.Method).Msg("received notification, ignoring")
			return
		}

		resp, err := handleRequest(requests.RequestEnv{
			Context:       ctx,
			Engine:        le,
			Notifications: ns,
			History:       hist,
		}, req)
		if err != nil {
			log.Warn().Err(err).Str("method", req.Method).Msg("request failed")
			if err := sendError(session, *req.ID, errorObject(err)); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}

		if err := sendResponse(session, *req.ID, resp); err != nil {
			log.Error().Err(err).Msg("error sending response")
		}
	}
}

// broadcastNotifications forwards broker notifications to every connected
// session until ctx is done or the subscription is closed.
func broadcastNotifications(ctx context.Context, m *melody.Melody, notifications <-chan models.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}
			data, err := json.Marshal(models.NotificationObject{
				JSONRPC: "2.0",
				Method:  notif.Method,
				Params:  notif.Params,
			})
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification")
				continue
			}
			if err := m.Broadcast(data); err != nil && !errors.Is(err, melody.ErrClosed) {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

// checkOrigin admits non-browser clients, which send no Origin, plus
// localhost and the configured origins.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := u.Hostname()
		return host == "localhost" || host == "127.0.0.1" || host == "::1"
	}
}

// newRouter builds the HTTP router. The returned melody instance must be
// closed by the caller.
func newRouter(
	ctx context.Context,
	cfg *config.Instance,
	le engine.LockableEngine,
	ns chan<- models.Notification,
	hist database.HistoryReader,
	limiter *apimiddleware.IPRateLimiter,
) (*melody.Melody, http.Handler) {
	origins := cfg.AllowedOrigins()

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.NoCache)
	r.Use(apimiddleware.HTTPIPFilterMiddleware(apimiddleware.NewIPFilter(cfg.AllowedIPs())))
	r.Use(apimiddleware.HTTPRateLimitMiddleware(limiter))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: append([]string{"http://localhost:*", "http://127.0.0.1:*"}, origins...),
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Accept"},
	}))

	m := melody.New()
	m.Upgrader.CheckOrigin = checkOrigin(origins)
	m.HandleMessage(apimiddleware.WebSocketRateLimitHandler(limiter, handleWSMessage(ctx, le, ns, hist)))
	m.HandleConnect(func(s *melody.Session) {
		log.Debug().Str("addr", s.Request.RemoteAddr).Msg("api client connected")
	})
	m.HandleDisconnect(func(s *melody.Session) {
		log.Debug().Str("addr", s.Request.RemoteAddr).Msg("api client disconnected")
	})

	r.Get(APIPath, func(w http.ResponseWriter, r *http.Request) {
		if err := m.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	return m, r
}

// Start serves the API until ctx is done. Notifications published on the
// broker are broadcast to every session; handlers publish through ns. hist
// may be nil when the history log is disabled.
func Start(
	ctx context.Context,
	cfg *config.Instance,
	le engine.LockableEngine,
	b *broker.Broker,
	ns chan<- models.Notification,
	hist database.HistoryReader,
) error {
	limiter := apimiddleware.NewIPRateLimiter(nil)
	go limiter.RunCleanup(ctx)

	m, handler := newRouter(ctx, cfg, le, ns, hist, limiter)
	defer func() {
		if err := m.Close(); err != nil && !errors.Is(err, melody.ErrClosed) {
			log.Warn().Err(err).Msg("error closing websocket sessions")
		}
	}()

	notifs, subID := b.Subscribe(SubscriberBuffer)
	defer b.Unsubscribe(subID)
	go broadcastNotifications(ctx, m, notifs)

	srv := &http.Server{
		Addr:              cfg.APIListen(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting api server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	log.Info().Msg("api server stopped")
	return nil
}
