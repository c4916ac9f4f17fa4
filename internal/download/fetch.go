package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/jmagar/bookbeat-cli/internal/api"
)

const (
	// CDNUserAgent is sent on every content request.
	CDNUserAgent = "okhttp/4.10.0"

	// unknownCDNBody stands in for an error body that could not be read.
	unknownCDNBody = "(Unknown)"

	chunkSize       = 32 << 10
	maxCDNErrorBody = 16 << 10
)

// Fetcher streams content from the binary CDN. Requests are unauthenticated
// and never go through the catalog gateway.
type Fetcher struct {
	http *http.Client
}

// NewFetcher returns a Fetcher using client, or api.NewHTTPClient when nil.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = api.NewHTTPClient()
	}
	return &Fetcher{http: client}
}

// Fetch copies location into sink chunk by chunk and returns the bytes
// written. onChunk, when set, receives the length of every chunk written.
// A non-success status yields a CDNError and nothing is written to sink.
// expectedSize only sizes the copy buffer; it is not verified here.
func (f *Fetcher) Fetch(ctx context.Context, location string, expectedSize int64, sink io.Writer, onChunk func(n int)) (int64, error) {
	resp, err := f.get(ctx, location, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return copyChunks(ctx, resp.Body, sink, bufferSize(expectedSize), onChunk)
}

func bufferSize(expectedSize int64) int {
	if expectedSize > 0 && expectedSize < chunkSize {
		return int(expectedSize)
	}
	return chunkSize
}

// get performs one CDN GET and converts non-success statuses to CDNError.
// The caller closes the body of a returned response.
func (f *Fetcher) get(ctx context.Context, location string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build CDN request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", CDNUserAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, &api.TransportError{Op: "cdn", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, &api.CDNError{StatusCode: resp.StatusCode, Body: readCDNBody(resp.Body)}
	}
	return resp, nil
}

func readCDNBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxCDNErrorBody))
	if err != nil || !utf8.Valid(data) {
		return unknownCDNBody
	}
	return strings.TrimSpace(string(data))
}

// copyChunks is io.Copy with a per-chunk observer and a context check between
// chunks.
func copyChunks(ctx context.Context, src io.Reader, sink io.Writer, size int, onChunk func(n int)) (int64, error) {
	buf := make([]byte, size)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := sink.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, fmt.Errorf("write content: %w", werr)
			}
			if nw != nr {
				return written, fmt.Errorf("write content: %w", io.ErrShortWrite)
			}
			if onChunk != nil {
				onChunk(nw)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, &api.TransportError{Op: "cdn", Err: rerr}
		}
	}
}
