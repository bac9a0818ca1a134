package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collects cache, feed and query metrics on a private registry.
type Collector struct {
	reg *prometheus.Registry

	CacheHits     *prometheus.CounterVec // key
	CacheMisses   *prometheus.CounterVec // key
	CacheLoads    *prometheus.CounterVec // key, result: ok|error
	CacheLoadTime *prometheus.HistogramVec

	FeedFetches  *prometheus.CounterVec // feed, result: ok|error
	FeedEntities *prometheus.GaugeVec   // feed

	Queries      *prometheus.CounterVec // query, result: ok|error
	QueryLatency *prometheus.HistogramVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_cache_hits_total",
			Help: "Cache lookups served from an unexpired entry.",
		}, []string{"key"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_cache_misses_total",
			Help: "Cache lookups that found no unexpired entry.",
		}, []string{"key"}),
		CacheLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_cache_loads_total",
			Help: "Loader executions, by outcome.",
		}, []string{"key", "result"}),
		CacheLoadTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transit_cache_load_duration_seconds",
			Help:    "Duration of loader executions.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"key"}),
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_realtime_fetches_total",
			Help: "Realtime feed retrievals, by outcome.",
		}, []string{"feed", "result"}),
		FeedEntities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "transit_realtime_entities",
			Help: "Entities decoded from the latest successful retrieval.",
		}, []string{"feed"}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_queries_total",
			Help: "Queries served, by outcome.",
		}, []string{"query", "result"}),
		QueryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transit_query_duration_seconds",
			Help:    "Query latency.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"query"}),
	}

	reg.MustRegister(
		c.CacheHits, c.CacheMisses, c.CacheLoads, c.CacheLoadTime,
		c.FeedFetches, c.FeedEntities,
		c.Queries, c.QueryLatency,
	)

	return c
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *Collector) CacheHit(key string) {
	c.CacheHits.WithLabelValues(key).Inc()
}

func (c *Collector) CacheMiss(key string) {
	c.CacheMisses.WithLabelValues(key).Inc()
}

func (c *Collector) CacheLoad(key string, took time.Duration, err error) {
	c.CacheLoads.WithLabelValues(key, result(err)).Inc()
	c.CacheLoadTime.WithLabelValues(key).Observe(took.Seconds())
}

func (c *Collector) FeedFetched(feed string, entities int, err error) {
	c.FeedFetches.WithLabelValues(feed, result(err)).Inc()
	if err == nil {
		c.FeedEntities.WithLabelValues(feed).Set(float64(entities))
	}
}

func (c *Collector) QueryServed(query string, took time.Duration, err error) {
	c.Queries.WithLabelValues(query, result(err)).Inc()
	c.QueryLatency.WithLabelValues(query).Observe(took.Seconds())
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	slog.Info("metrics listening", "addr", addr)
	return srv
}
