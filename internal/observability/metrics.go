package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pubd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pubd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	messagesDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pubd",
			Subsystem: "publication",
			Name:      "messages_total",
			Help:      "Publication messages decoded, by variant.",
		},
		[]string{"node", "variant"},
	)
	decodeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pubd",
			Subsystem: "publication",
			Name:      "decode_failures_total",
			Help:      "Publication messages rejected by the codec, by layer and kind.",
		},
		[]string{"node", "layer", "kind"},
	)
	queryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pubd",
			Subsystem: "publication",
			Name:      "query_failures_total",
			Help:      "Queries rejected by the repository, by error code.",
		},
		[]string{"node", "publisher", "code"},
	)
	publishedObjects = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pubd",
			Subsystem: "repository",
			Name:      "objects",
			Help:      "Objects currently published, by publisher.",
		},
		[]string{"node", "publisher"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, messagesDecoded, decodeFailures, queryFailures, publishedObjects)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordMessage(node, variant string) {
	RegisterMetrics()
	messagesDecoded.WithLabelValues(node, variant).Inc()
}

func RecordDecodeFailure(node, layer, kind string) {
	RegisterMetrics()
	decodeFailures.WithLabelValues(node, layer, kind).Inc()
}

func RecordQueryFailure(node, publisher, code string) {
	RegisterMetrics()
	queryFailures.WithLabelValues(node, publisher, code).Inc()
}

func SetPublishedObjects(node, publisher string, count int) {
	RegisterMetrics()
	publishedObjects.WithLabelValues(node, publisher).Set(float64(count))
}
