package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var crawlFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "crawl_fetch_total",
	Help: "Crawl fetches labelled by result (ok, error, excluded)",
}, []string{"result"})

var chunksIndexedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chunks_indexed_total",
	Help: "Chunks written to the vector index labelled by origin",
}, []string{"origin"})

var ingestFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingest_failures_total",
	Help: "Documents that failed ingestion labelled by stage",
}, []string{"stage"})

var capabilityFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "capability_failures_total",
	Help: "Orchestrator capabilities that failed and were replaced by a note",
}, []string{"capability"})

var routingDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "routing_decisions_total",
	Help: "Capabilities selected by the classifier",
}, []string{"capability"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent events working through the recorder.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *HttpStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func CountFetch(result string) {
	crawlFetchTotal.WithLabelValues(result).Inc()
}

func CountChunksIndexed(origin string, n int) {
	chunksIndexedTotal.WithLabelValues(origin).Add(float64(n))
}

func CountIngestFailure(stage string) {
	ingestFailuresTotal.WithLabelValues(stage).Inc()
}

func CountCapabilityFailure(capability string) {
	capabilityFailuresTotal.WithLabelValues(capability).Inc()
}

func CountRoutingDecision(capability string) {
	routingDecisionsTotal.WithLabelValues(capability).Inc()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent processing a job.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 300},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
