// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biostore.
//
// go-biostore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Disabled(t *testing.T) {
	l := New(nil)
	defer l.Stop()

	assert.False(t, l.IsEnabled())
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("vault1"))
	}
	require.NoError(t, l.Wait(context.Background(), "vault1"))
	assert.Equal(t, 0, l.Stats().ActiveSubjects)
}

func TestLimiter_Burst(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerMinute: 1, Burst: 2})
	defer l.Stop()

	assert.True(t, l.Allow("vault1"))
	assert.True(t, l.Allow("vault1"))
	assert.False(t, l.Allow("vault1"))

	// Subjects are tracked independently.
	assert.True(t, l.Allow("vault2"))

	stats := l.Stats()
	assert.True(t, stats.Enabled)
	assert.Equal(t, 2, stats.ActiveSubjects)
	assert.Equal(t, 2, stats.Burst)
	assert.InDelta(t, 1.0, stats.RatePerMinute, 0.0001)
}

func TestLimiter_BurstDefaultsToRate(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerMinute: 3})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("vault1"))
	}
	assert.False(t, l.Allow("vault1"))
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerMinute: 1, Burst: 1})
	defer l.Stop()

	require.NoError(t, l.Wait(context.Background(), "vault1"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "vault1"))
}

func TestLimiter_Cleanup(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerMinute: 10, MaxIdle: time.Minute})
	defer l.Stop()

	l.Allow("vault1")
	require.Equal(t, 1, l.Stats().ActiveSubjects)

	l.cleanup(time.Now())
	assert.Equal(t, 1, l.Stats().ActiveSubjects)

	l.cleanup(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, l.Stats().ActiveSubjects)
}

func TestLimiter_StopTwice(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerMinute: 10})
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestMiddleware(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerMinute: 1, Burst: 1})
	defer l.Stop()

	handler := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/methods/read", nil)
	req.RemoteAddr = "127.0.0.1:5555"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"remote addr", nil, "10.0.0.1:1234", "10.0.0.1"},
		{"remote without port", nil, "10.0.0.1", "10.0.0.1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "10.0.0.1:1234", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 9.9.9.9 "}, "10.0.0.1:1234", "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
