package panelsdk

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Metrics reads the dashboard endpoints.
type Metrics struct {
	client *Client
	logger *slog.Logger
}

// NewMetrics creates a dashboard metrics reader.
func NewMetrics(c *Client) *Metrics {
	return &Metrics{client: c, logger: c.logger.With("component", "metrics")}
}

// Common returns the global dashboard counters.
func (m *Metrics) Common(ctx context.Context) (*CommonMetrics, error) {
	if err := m.client.requireUsableSession(); err != nil {
		return nil, err
	}

	env, err := call[CommonMetrics](ctx, m.client, http.MethodGet, "/dashboard/metrics/common", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("common metrics: %w", err)
	}
	return &env.Data, nil
}

// ActivityQuery selects the time window of an activity report.
type ActivityQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtfield=From"`

	// ServerName restricts the report to one source server
	ServerName string
}

// Activities returns backup activity buckets between From and To.
func (m *Metrics) Activities(ctx context.Context, q ActivityQuery) ([]ActivityBucket, error) {
	if err := m.client.requireUsableSession(); err != nil {
		return nil, err
	}
	if err := validateStruct("activity query", &q); err != nil {
		return nil, err
	}

	path := "/dashboard/metrics/activities"
	params := url.Values{}
	params.Set("from", strconv.FormatInt(q.From.UnixMilli(), 10))
	params.Set("to", strconv.FormatInt(q.To.UnixMilli(), 10))
	if q.ServerName != "" {
		path += "/single-server"
		params.Set("srv_name", q.ServerName)
	}

	env, err := call[activitiesData](ctx, m.client, http.MethodGet, path, params, nil)
	if err != nil {
		return nil, fmt.Errorf("activity metrics: %w", err)
	}

	buckets := env.Data.Metrics
	if buckets == nil {
		buckets = []ActivityBucket{}
	}
	return buckets, nil
}

// ActivityRange is a named look-back window for activity reports.
type ActivityRange string

const (
	RangeLastDay   ActivityRange = "24h"
	RangeLastWeek  ActivityRange = "7d"
	RangeLastMonth ActivityRange = "30d"
)

// Window returns the query covering r up to now.
func (r ActivityRange) Window(now time.Time, serverName string) (ActivityQuery, error) {
	var span time.Duration
	switch r {
	case RangeLastDay:
		span = 24 * time.Hour
	case RangeLastWeek:
		span = 7 * 24 * time.Hour
	case RangeLastMonth:
		span = 30 * 24 * time.Hour
	default:
		return ActivityQuery{}, validationError(fmt.Sprintf("unknown activity range %q", r), nil)
	}
	return ActivityQuery{From: now.Add(-span), To: now, ServerName: serverName}, nil
}
