package middlewarectx_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/lms-portal/internal/http/middlewarectx"
)

func TestRateLimitMiddleware_PerAddress(t *testing.T) {
	limiter := middlewarectx.NewRateLimiter(0.001, 2)
	handler := middlewarectx.RateLimitMiddleware(newNoopLogger(), limiter)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	do := func(addr, device string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		if device != "" {
			req.Header.Set("X-Device-Id", device)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:5000", "a"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:5001", "b"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:5002", "c"), "fresh device ids share the address bucket")
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:5003", ""))
	assert.Equal(t, http.StatusOK, do("10.0.0.2:5000", "a"), "other addresses have their own bucket")
}

func TestRateLimiter_DeviceIdsDoNotGrowState(t *testing.T) {
	limiter := middlewarectx.NewRateLimiter(1000, 1000)
	handler := middlewarectx.RateLimitMiddleware(newNoopLogger(), limiter)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	for i := range 100 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req.Header.Set("X-Device-Id", fmt.Sprintf("device-%d", i))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 1, limiter.Len())
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Now()
	limiter := middlewarectx.NewRateLimiter(1, 1)
	middlewarectx.SetClock(limiter, func() time.Time { return now })

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))
	assert.Equal(t, 2, limiter.Len())

	now = now.Add(5 * time.Minute)
	assert.True(t, limiter.Allow("10.0.0.3"))
	assert.Equal(t, 3, limiter.Len(), "no sweep before the idle period")

	now = now.Add(6 * time.Minute)
	assert.True(t, limiter.Allow("10.0.0.3"))
	assert.Equal(t, 1, limiter.Len(), "idle clients are dropped on the next sweep")
}
