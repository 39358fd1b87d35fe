package panelsdk

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetrics_Common(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/dashboard/metrics/common", respondOK(map[string]any{
		"backup_files_count":     120,
		"source_servers_count":   4,
		"snapshot_occupied_size": 987654321,
	}))

	m, err := NewMetrics(newTestClient(fb)).Common(context.Background())
	require.NoError(t, err)
	require.Equal(t, &CommonMetrics{
		BackupFilesCount:     120,
		SourceServersCount:   4,
		SnapshotOccupiedSize: 987654321,
	}, m)
}

func TestMetrics_Activities(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	buckets := map[string]any{
		"metrics": []map[string]any{{
			"from":          from.Format(time.RFC3339),
			"to":            from.Add(time.Hour).Format(time.RFC3339),
			"total_success": 3,
			"total_fail":    1,
			"details": map[string]any{
				"db-1": map[string]any{"SuccessCount": 3, "FailCount": 1},
			},
		}},
	}

	t.Run("all servers", func(t *testing.T) {
		t.Parallel()

		fb := newFakeBackend(t)
		fb.handle(http.MethodGet, "/dashboard/metrics/activities", respondOK(buckets))

		got, err := NewMetrics(newTestClient(fb)).Activities(context.Background(), ActivityQuery{From: from, To: to})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, int64(3), got[0].TotalSuccess)
		require.Equal(t, int64(1), got[0].Details["db-1"].FailCount)

		req := fb.last(t)
		require.Equal(t, strconv.FormatInt(from.UnixMilli(), 10), req.Query.Get("from"))
		require.Equal(t, strconv.FormatInt(to.UnixMilli(), 10), req.Query.Get("to"))
		require.False(t, req.Query.Has("srv_name"))
	})

	t.Run("single server", func(t *testing.T) {
		t.Parallel()

		fb := newFakeBackend(t)
		fb.handle(http.MethodGet, "/dashboard/metrics/activities/single-server", respondOK(buckets))

		_, err := NewMetrics(newTestClient(fb)).Activities(context.Background(), ActivityQuery{From: from, To: to, ServerName: "db-1"})
		require.NoError(t, err)
		require.Equal(t, "db-1", fb.last(t).Query.Get("srv_name"))
	})

	t.Run("inverted window rejected", func(t *testing.T) {
		t.Parallel()

		fb := newFakeBackend(t)
		_, err := NewMetrics(newTestClient(fb)).Activities(context.Background(), ActivityQuery{From: to, To: from})
		require.Equal(t, KindValidation, KindOf(err))
		require.Empty(t, fb.all())
	})

	t.Run("empty report", func(t *testing.T) {
		t.Parallel()

		fb := newFakeBackend(t)
		fb.handle(http.MethodGet, "/dashboard/metrics/activities", respondOK(map[string]any{}))

		got, err := NewMetrics(newTestClient(fb)).Activities(context.Background(), ActivityQuery{From: from, To: to})
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Empty(t, got)
	})
}

func TestActivityRange_Window(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	q, err := RangeLastWeek.Window(now, "db-1")
	require.NoError(t, err)
	require.Equal(t, now.Add(-7*24*time.Hour), q.From)
	require.Equal(t, now, q.To)
	require.Equal(t, "db-1", q.ServerName)

	_, err = ActivityRange("1y").Window(now, "")
	require.Equal(t, KindValidation, KindOf(err))
}
