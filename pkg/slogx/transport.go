package slogx

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport is an http.RoundTripper that logs every outbound request once it
// completes. Query strings are not logged since list filters may carry user
// supplied values. A logger stored in the request context with WithContext
// takes precedence over Logger.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger

	// TrackHeader names the request header holding the correlation id.
	TrackHeader string
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, logger *slog.Logger, trackHeader string) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{Base: base, Logger: logger, TrackHeader: trackHeader}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	base := t.Logger
	if l, ok := fromContext(req.Context()); ok {
		base = l
	}

	logger := base.With(
		"method", req.Method,
		"path", req.URL.Path,
	)
	if t.TrackHeader != "" {
		if id := req.Header.Get(t.TrackHeader); id != "" {
			logger = logger.With("track_id", id)
		}
	}

	resp, err := t.Base.RoundTrip(req)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("http_request_failed", "duration_ms", duration, "error", err)
		return nil, err
	}

	level := slog.LevelDebug
	if resp.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(req.Context(), level, "http_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)

	return resp, nil
}
