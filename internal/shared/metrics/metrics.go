package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	recordsProcessedTotal atomic.Uint64
	recordsSucceededTotal atomic.Uint64
	recordsFailedTotal    atomic.Uint64
	recordsDegradedTotal  atomic.Uint64

	completionCallsTotal    atomic.Uint64
	completionFallbackTotal atomic.Uint64
	searchFallbackTotal     atomic.Uint64

	completionLatency = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncRecordProcessed increments the processed-records counter.
func IncRecordProcessed() {
	recordsProcessedTotal.Add(1)
}

// IncRecordSucceeded increments the succeeded-records counter.
func IncRecordSucceeded() {
	recordsSucceededTotal.Add(1)
}

// IncRecordFailed increments the failed-records counter.
func IncRecordFailed() {
	recordsFailedTotal.Add(1)
}

// IncRecordDegraded increments the degraded-records counter.
func IncRecordDegraded() {
	recordsDegradedTotal.Add(1)
}

// IncCompletionCall increments the completion-call counter.
func IncCompletionCall() {
	completionCallsTotal.Add(1)
}

// IncCompletionFallback increments the fallback-model counter.
func IncCompletionFallback() {
	completionFallbackTotal.Add(1)
}

// IncSearchFallback increments the search-fallback counter.
func IncSearchFallback() {
	searchFallbackTotal.Add(1)
}

// ObserveCompletionLatencyMs records one completion round trip in milliseconds.
func ObserveCompletionLatencyMs(value float64) {
	if value < 0 {
		value = 0
	}
	completionLatency.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "analysis_records_processed_total", "Total records processed", recordsProcessedTotal.Load())
	writeCounter(&buf, "analysis_records_succeeded_total", "Total records analyzed successfully", recordsSucceededTotal.Load())
	writeCounter(&buf, "analysis_records_failed_total", "Total records that failed analysis", recordsFailedTotal.Load())
	writeCounter(&buf, "analysis_records_degraded_total", "Total records persisted with a degraded document", recordsDegradedTotal.Load())
	writeCounter(&buf, "completion_calls_total", "Total completion service invocations", completionCallsTotal.Load())
	writeCounter(&buf, "completion_fallback_total", "Total fallback-model invocations", completionFallbackTotal.Load())
	writeCounter(&buf, "search_fallback_total", "Total searches served by the SQL preview backend", searchFallbackTotal.Load())
	writeHistogram(&buf, "completion_latency_ms", "Completion round-trip latency in milliseconds", completionLatency.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
