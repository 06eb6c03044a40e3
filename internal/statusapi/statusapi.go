// Package statusapi exposes a small gin-backed ops HTTP surface: liveness
// and a snapshot of pipeline depth/cache/drop counters. Grounded on the
// teacher's SetupRouter/gin.Engine convention (internal/api in the
// original tree), trimmed to the read-only observability surface this
// pipeline needs — no investigation/auth endpoints, no websocket
// broadcast hub, since this sentry has no interactive dashboard client.
package statusapi

import (
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// Stats is a set of atomically updated counters the pipeline's stages
// report into, surfaced read-only at GET /stats.
type Stats struct {
	queueDepth       func() int
	queueCapacity    int
	dedupSize        func() int
	droppedWorkItems int64
	droppedAlerts    int64
	dnsProbeSkipped  int64
}

// NewStats builds a Stats snapshot source. queueDepth and dedupSize are
// callbacks so /stats always reports current, not stale, values.
func NewStats(queueDepth func() int, queueCapacity int, dedupSize func() int) *Stats {
	return &Stats{
		queueDepth:    queueDepth,
		queueCapacity: queueCapacity,
		dedupSize:     dedupSize,
	}
}

// IncDroppedWorkItems records one more work item dropped due to a
// saturated queue (§5 C2).
func (s *Stats) IncDroppedWorkItems() {
	atomic.AddInt64(&s.droppedWorkItems, 1)
}

// IncDNSProbeSkipped records one more candidate for which DNS validity
// probing was skipped — exposed only as a metric per SPEC_FULL.md §C, the
// original tool's has_valid_dns signal is never reintroduced into scoring.
func (s *Stats) IncDNSProbeSkipped() {
	atomic.AddInt64(&s.dnsProbeSkipped, 1)
}

// IncDroppedAlerts records one more alert record dropped because the alert
// log's writer queue (C6) was saturated.
func (s *Stats) IncDroppedAlerts() {
	atomic.AddInt64(&s.droppedAlerts, 1)
}

func (s *Stats) snapshot() gin.H {
	return gin.H{
		"queue_depth":              s.queueDepth(),
		"queue_capacity":           s.queueCapacity,
		"dedup_set_size":           s.dedupSize(),
		"dropped_work_items_total": atomic.LoadInt64(&s.droppedWorkItems),
		"dropped_alerts_total":     atomic.LoadInt64(&s.droppedAlerts),
		"dns_probe_skipped_total":  atomic.LoadInt64(&s.dnsProbeSkipped),
	}
}

// SetupRouter builds the gin.Engine for the ops surface: GET /healthz
// (liveness) and GET /stats (pipeline snapshot), both behind a per-IP
// rate limiter.
func SetupRouter(stats *Stats) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	limiter := NewRateLimiter(60, 10)
	r.Use(limiter.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/stats", func(c *gin.Context) {
		c.JSON(200, stats.snapshot())
	})

	return r
}
