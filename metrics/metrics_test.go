package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	boom := errors.New("boom")

	c.CacheMiss("gtfs_static_all")
	c.CacheHit("gtfs_static_all")
	c.CacheHit("gtfs_static_all")
	c.CacheLoad("gtfs_static_all", 2*time.Second, nil)
	c.CacheLoad("gtfs_static_all", time.Second, boom)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheHits.WithLabelValues("gtfs_static_all")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheMisses.WithLabelValues("gtfs_static_all")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheLoads.WithLabelValues("gtfs_static_all", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheLoads.WithLabelValues("gtfs_static_all", "error")))

	c.FeedFetched("vehicle_positions", 12, nil)
	c.FeedFetched("vehicle_positions", 0, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FeedFetches.WithLabelValues("vehicle_positions", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FeedFetches.WithLabelValues("vehicle_positions", "error")))

	// A failure leaves the last entity count in place
	assert.Equal(t, 12.0, testutil.ToFloat64(c.FeedEntities.WithLabelValues("vehicle_positions")))

	c.QueryServed("directions", 5*time.Millisecond, nil)
	c.QueryServed("directions", 5*time.Millisecond, boom)
	c.QueryServed("schedule", time.Millisecond, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Queries.WithLabelValues("directions", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Queries.WithLabelValues("directions", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Queries.WithLabelValues("schedule", "ok")))
}

func TestCollectorHandler(t *testing.T) {
	c := NewCollector()
	c.QueryServed("routes", time.Millisecond, nil)

	server := httptest.NewServer(c.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `transit_queries_total{query="routes",result="ok"} 1`)
	assert.Contains(t, string(body), "transit_query_duration_seconds_bucket")
}
