package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmagar/bookbeat-cli/internal/model"
)

func TestDecodeAPIError_NonJSONBodies(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("/api/books/Germany/1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("  no such book \n"))
	})
	f.handle("/api/books/Germany/2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	cat := newTestCatalog(t, f)

	_, err := cat.ItemDetail(context.Background(), "Germany", 1)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "no such book", apiErr.Message)

	_, err = cat.ItemDetail(context.Background(), "Germany", 2)
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusText(http.StatusGone), apiErr.Message)
}

func TestClient_SendsFixedHeaders(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("/status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, APIVersion, r.Header.Get("api-version"))
		assert.Equal(t, ClientName, r.Header.Get("bb-client"))
		assert.Equal(t, "device-1", r.Header.Get("bb-device"))
		assert.Equal(t, model.DefaultMarket, r.Header.Get("bb-market"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"type":"OK"}`))
	})
	c := f.client()
	st, err := call[model.Status](context.Background(), c, request{label: "status", method: http.MethodGet, url: c.Endpoints().Status})
	require.NoError(t, err)
	assert.Equal(t, model.StatusHealthy, st.Type)
}

func TestCall_TransportError(t *testing.T) {
	f := newFakeAPI(t)
	c := f.client()
	f.srv.Close()

	_, err := call[model.Status](context.Background(), c, request{label: "status", method: http.MethodGet, url: c.Endpoints().Status})
	var tErr *TransportError
	require.True(t, errors.As(err, &tErr), "got %v", err)
	assert.Equal(t, "status", tErr.Op)
}

func TestCall_TruncatedBodyIsTransportError(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"type":"O`))
	})
	c := f.client()

	_, err := call[model.Status](context.Background(), c, request{label: "status", method: http.MethodGet, url: c.Endpoints().Status})
	var tErr *TransportError
	require.True(t, errors.As(err, &tErr), "got %v", err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	var decErr *DecodeError
	assert.False(t, errors.As(err, &decErr))
}

func TestCircuitBreaker_OpensAndProbes(t *testing.T) {
	now := epoch
	cb := newCircuitBreaker(3, time.Minute)
	cb.now = func() time.Time { return now }

	for range 2 {
		cb.Record(true)
	}
	_, ok := cb.Allow()
	assert.True(t, ok)

	prev, next := cb.Record(true)
	assert.Equal(t, circuitClosed, prev)
	assert.Equal(t, circuitOpen, next)
	state, ok := cb.Allow()
	assert.False(t, ok)
	assert.Equal(t, circuitOpen, state)

	now = now.Add(time.Minute)
	state, ok = cb.Allow()
	assert.True(t, ok)
	assert.Equal(t, circuitHalfOpen, state)

	_, next = cb.Record(true)
	assert.Equal(t, circuitOpen, next)

	now = now.Add(time.Minute)
	cb.Allow()
	_, next = cb.Record(false)
	assert.Equal(t, circuitClosed, next)
}

func TestClient_OpenCircuitRejectsWithoutRequest(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c := f.client()
	r := request{label: "status", method: http.MethodGet, url: c.Endpoints().Status}
	for range 5 {
		_, err := call[model.Status](context.Background(), c, r)
		require.Error(t, err)
	}
	_, err := call[model.Status](context.Background(), c, r)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 5, f.count("/status"))
}

func TestRateLimiter(t *testing.T) {
	assert.Nil(t, newRateLimiter(0, 1))

	var nilLimiter *rateLimiter
	waited, err := nilLimiter.Wait(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, waited)

	rl := newRateLimiter(1, 1)
	_, err = rl.Wait(context.Background())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rl.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestLog_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "api.log")
	logger, closer, err := OpenRequestLog(path)
	require.NoError(t, err)

	f := newFakeAPI(t)
	f.handle("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"OK"}`))
	})
	c := NewClient(Options{
		Endpoints:  NewEndpoints(f.srv.URL+"/status", f.srv.URL, f.srv.URL),
		HTTPClient: f.srv.Client(),
		RequestLog: logger,
	})
	_, err = call[model.Status](context.Background(), c, request{label: "status", method: http.MethodGet, url: c.Endpoints().Status})
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"label":"status"`)
	assert.Contains(t, line, `"status_code":200`)
	assert.Contains(t, line, `"circuit_state":"closed"`)
}

func TestNewEndpoints(t *testing.T) {
	e := NewEndpoints("https://status.example/", "https://api.example/", "https://search.example")
	assert.Equal(t, "https://api.example/api/login", e.Login)
	assert.Equal(t, "https://api.example/api/login/refresh", e.Refresh)
	assert.Equal(t, "https://search.example/api/tabsearch/books", e.TabSearch)
	assert.Equal(t, "https://api.example/api/content/", e.Content)
	assert.Equal(t, DefaultStatus, DefaultEndpoints().Status)
}
