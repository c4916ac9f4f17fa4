package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// OpenRequestLog opens (or creates) the JSON-lines request log at logPath.
// Every outbound API request is recorded there with its label, status,
// duration and circuit state. The returned closer owns the file.
func OpenRequestLog(logPath string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return nil, nil, fmt.Errorf("request log: mkdir %s: %w", filepath.Dir(logPath), err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("request log: open %s: %w", logPath, err)
	}
	return slog.New(slog.NewJSONHandler(f, nil)), f, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (c *Client) logRequest(ctx context.Context, label string, statusCode int, duration time.Duration, state circuitState, reqErr error) {
	attrs := []slog.Attr{
		slog.String("label", label),
		slog.Int("status_code", statusCode),
		slog.Int64("duration_ms", duration.Milliseconds()),
		slog.String("circuit_state", state.String()),
	}
	level := slog.LevelInfo
	if reqErr != nil {
		attrs = append(attrs, slog.String("error", reqErr.Error()))
		level = slog.LevelWarn
	}
	c.log.LogAttrs(ctx, level, "request", attrs...)
}

func (c *Client) logRateLimitWait(ctx context.Context, label string, waited time.Duration) {
	c.log.LogAttrs(ctx, slog.LevelDebug, "rate_limit_wait",
		slog.String("label", label),
		slog.Int64("rate_limited_ms", waited.Milliseconds()))
}

func (c *Client) logCircuitChange(ctx context.Context, label string, from, to circuitState) {
	c.log.LogAttrs(ctx, slog.LevelWarn, "circuit_"+to.String(),
		slog.String("label", label),
		slog.String("from", from.String()),
		slog.String("to", to.String()))
}

func (c *Client) logCircuitRejected(ctx context.Context, label string) {
	c.log.LogAttrs(ctx, slog.LevelWarn, "circuit_rejected",
		slog.String("label", label),
		slog.String("error", ErrCircuitOpen.Error()))
}
