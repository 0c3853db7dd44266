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

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPRateLimiterBurst(t *testing.T) {
	t.Parallel()
	limiter := NewIPRateLimiter(clockwork.NewFakeClock())

	rl := limiter.GetLimiter("192.168.1.100")
	for i := range BurstSize {
		assert.True(t, rl.Allow(), "request %d within burst", i+1)
	}
	assert.False(t, rl.Allow())

	assert.True(t, limiter.GetLimiter("192.168.1.101").Allow(), "other clients are unaffected")
	assert.Same(t, rl, limiter.GetLimiter("192.168.1.100"))
}

func TestIPRateLimiterCleanup(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	limiter := NewIPRateLimiter(clock)

	limiter.GetLimiter("10.0.0.1")
	clock.Advance(staleAfter / 2)
	limiter.GetLimiter("10.0.0.2")
	clock.Advance(staleAfter/2 + time.Second)

	limiter.Cleanup()
	assert.Equal(t, 1, limiter.size())
}

func TestIPRateLimiterRunCleanupStops(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	limiter := NewIPRateLimiter(clock)
	limiter.GetLimiter("10.0.0.1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.RunCleanup(ctx)
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(staleAfter + cleanupInterval)
	require.Eventually(t, func() bool { return limiter.size() == 0 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not return")
	}
}

func TestHTTPRateLimitMiddleware(t *testing.T) {
	t.Parallel()
	limiter := NewIPRateLimiter(clockwork.NewFakeClock())
	h := HTTPRateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, BurstSize+1)
	for range BurstSize + 1 {
		req := httptest.NewRequest(http.MethodGet, "/api", http.NoBody)
		req.RemoteAddr = "10.0.0.9:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusTooManyRequests, codes[BurstSize])
}
