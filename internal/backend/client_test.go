package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/lms-portal/internal/config"
	"github.com/magabrotheeeer/lms-portal/internal/lib/apperr"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestClient(t *testing.T, h http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.Backend{BaseURL: srv.URL + "/", DeviceID: "device-1", Timeout: time.Second},
		staticToken(token), newNoopLogger())
}

func TestClient_Do_SendsHeadersAndBody(t *testing.T) {
	var gotAuth, gotDevice, gotBody, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotDevice = r.Header.Get(DeviceHeader)
		gotQuery = r.URL.RawQuery
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, "tok")

	body, err := client.Do(context.Background(), http.MethodPost, "/api/auth/logout",
		url.Values{"userId": {"u1"}}, "refresh-1")
	require.NoError(t, err)

	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "device-1", gotDevice)
	assert.Equal(t, "userId=u1", gotQuery)
	assert.Equal(t, "\"refresh-1\"\n", gotBody)
}

func TestClient_Do_NoTokenNoAuthorization(t *testing.T) {
	var hasAuth bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusNoContent)
	}, "")

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)
	assert.False(t, hasAuth)
}

func TestClient_Do_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind apperr.Kind
		wantMsg  string
	}{
		{name: "not found", status: 404, body: ``, wantKind: apperr.KindNotFound},
		{name: "unauthorized", status: 401, body: `{"message":"Invalid email or password"}`, wantKind: apperr.KindRejected, wantMsg: "Invalid email or password"},
		{name: "bad request", status: 400, body: `{"status":"Error","error":"invalid code"}`, wantKind: apperr.KindRejected, wantMsg: "invalid code"},
		{name: "server error", status: 503, body: `<html>down</html>`, wantKind: apperr.KindServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, "")

			_, err := client.Do(context.Background(), http.MethodGet, "/x", nil, nil)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			assert.Equal(t, tt.wantMsg, apperr.UserMessage(err, ""))
		})
	}
}

func TestClient_Do_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(config.Backend{BaseURL: srv.URL}, nil, newNoopLogger())

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNetwork))
}

func TestClient_Do_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Do(ctx, http.MethodGet, "/slow", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNetwork))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_DoMultipart(t *testing.T) {
	var gotName, gotContent string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotName, gotContent = hdr.Filename, string(b)
		_, _ = w.Write([]byte(`{"photoUrl":"/p.png"}`))
	}, "tok")

	_, err := client.DoMultipart(context.Background(), "/api/users/u1/photo", "file", "me.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, "me.png", gotName)
	assert.Equal(t, "PNGDATA", gotContent)
}

func TestMetrics_InstrumentedHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	client := NewClient(config.Backend{BaseURL: srv.URL}, nil, newNoopLogger(),
		WithHTTPClient(metrics.InstrumentedHTTPClient(&http.Client{Timeout: time.Second})))

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("404", "get")))
}

func TestDefaultDeviceID_Stable(t *testing.T) {
	assert.Equal(t, DefaultDeviceID(), DefaultDeviceID())
	assert.NotEmpty(t, NewClient(config.Backend{}, nil, newNoopLogger()).DeviceID())
}
