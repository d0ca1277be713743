package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locres_cache_hits_total",
		Help: "Cache hits by tier",
	}, []string{"tier"})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locres_cache_misses_total",
		Help: "Cache misses across both tiers",
	})
	CacheCorruptTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locres_cache_corrupt_total",
		Help: "Malformed cache entries evicted on read",
	}, []string{"tier"})
	CacheExpiredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locres_cache_expired_total",
		Help: "Expired cache entries evicted on read",
	}, []string{"tier"})
	RemoteRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locres_remote_requests_total",
		Help: "Remote location fetches by level",
	}, []string{"level"})
	RemoteFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locres_remote_fail_total",
		Help: "Remote location fetch failures by level",
	}, []string{"level"})
	RemoteDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "locres_remote_duration_ms",
		Help:    "Remote location fetch duration in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"level"})
	FallbackServedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locres_fallback_served_total",
		Help: "Option lists served from the static fallback dataset",
	}, []string{"level"})
	StaleDiscardedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locres_stale_discarded_total",
		Help: "Fetch results dropped because a newer query superseded them",
	}, []string{"level"})
	DebounceCoalescedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locres_debounce_coalesced_total",
		Help: "Search timers cancelled by a newer keystroke",
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "locres_active_sessions",
		Help: "Resolver sessions currently alive",
	})
)

func init() {
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(CacheCorruptTotal)
	prometheus.MustRegister(CacheExpiredTotal)
	prometheus.MustRegister(RemoteRequestsTotal)
	prometheus.MustRegister(RemoteFailTotal)
	prometheus.MustRegister(RemoteDurationMs)
	prometheus.MustRegister(FallbackServedTotal)
	prometheus.MustRegister(StaleDiscardedTotal)
	prometheus.MustRegister(DebounceCoalescedTotal)
	prometheus.MustRegister(ActiveSessions)
}

// Handler trả về handler Prometheus để mount ở /metrics
func Handler() http.Handler { return promhttp.Handler() }
