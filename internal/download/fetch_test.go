package download

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmagar/bookbeat-cli/internal/api"
)

func TestFetch_CopiesBodyAndReportsChunks(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 10000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, CDNUserAgent, r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write(payload)
	}))
	defer srv.Close()

	var sink bytes.Buffer
	var reported int
	n, err := NewFetcher(srv.Client()).Fetch(context.Background(), srv.URL+"/a.m4a", int64(len(payload)), &sink, func(c int) { reported += c })
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, len(payload), reported)
	assert.Equal(t, payload, sink.Bytes())
}

func TestFetch_RejectedStatusIsCDNError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("quota exceeded"))
	}))
	defer srv.Close()

	var sink bytes.Buffer
	_, err := NewFetcher(srv.Client()).Fetch(context.Background(), srv.URL, 0, &sink, nil)
	var cdnErr *api.CDNError
	require.True(t, errors.As(err, &cdnErr), "got %v", err)
	assert.Equal(t, http.StatusTooManyRequests, cdnErr.StatusCode)
	assert.Equal(t, "quota exceeded", cdnErr.Body)
	assert.Zero(t, sink.Len())
}

func TestReadCDNBody_UnreadableBodyIsUnknown(t *testing.T) {
	assert.Equal(t, unknownCDNBody, readCDNBody(errReader{}))
	assert.Equal(t, unknownCDNBody, readCDNBody(strings.NewReader("\xff\xfe")))
}

func TestFetch_SinkFailureIsNotTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.Client()).Fetch(context.Background(), srv.URL, 4, failingWriter{}, nil)
	require.Error(t, err)
	var tErr *api.TransportError
	assert.False(t, errors.As(err, &tErr))
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }
