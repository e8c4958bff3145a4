package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	MetricsNamespace       = "embedsvc"
	MetricsSubsystemHTTP   = "http"
	MetricsSubsystemModel  = "model"
	MetricsSubsystemEmbed  = "embed"
	MetricsSubsystemCache  = "embedding_cache"
	MetricsSubsystemSystem = "system"

	MetricsVersionLabel = "version"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	ResultHit      = "hit"
	ResultMiss     = "miss"
)

// Metrics records service activity. Implementations are safe for concurrent use.
type Metrics interface {
	GetRegistry() *prometheus.Registry

	ObserveHTTPRequest(method, route string, status int, elapsed time.Duration)
	SetModelReady(ready bool)
	ObserveModelInit(success bool)
	ObserveEmbed(elapsed time.Duration, err error)
	ObserveCache(layer string, hit bool)
}

type InstanceInfo struct {
	Version string
	Backend string
}

type metrics struct {
	registry *prometheus.Registry

	startTime prometheus.Gauge
	info      prometheus.Gauge

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	modelReady     prometheus.Gauge
	modelInitTotal *prometheus.CounterVec

	embedDuration    prometheus.Histogram
	embedErrorsTotal prometheus.Counter

	cacheTotal *prometheus.CounterVec
}

// NewMetrics creates a collector set on its own registry.
func NewMetrics(info InstanceInfo) Metrics {
	m := &metrics{}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
		Namespace: MetricsNamespace,
	}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemSystem,
		Name:      "start_timestamp_seconds",
		Help:      "The time the service started.",
	})
	m.startTime.SetToCurrentTime()
	m.registry.MustRegister(m.startTime)

	m.info = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemSystem,
		Name:      "info",
		Help:      "The service version and model backend.",
		ConstLabels: map[string]string{
			MetricsVersionLabel: info.Version,
			"backend":           info.Backend,
		},
	})
	m.info.Set(1)
	m.registry.MustRegister(m.info)

	m.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemHTTP,
		Name:      "requests_total",
		Help:      "The total number of HTTP requests.",
	}, []string{"method", "route", "status"})
	m.registry.MustRegister(m.httpRequestsTotal)

	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemHTTP,
		Name:      "request_duration_seconds",
		Help:      "Time to serve an HTTP request.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	m.registry.MustRegister(m.httpRequestDuration)

	m.modelReady = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemModel,
		Name:      "ready",
		Help:      "1 when the model handle is loaded, 0 otherwise.",
	})
	m.registry.MustRegister(m.modelReady)

	m.modelInitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemModel,
		Name:      "init_total",
		Help:      "Model construction attempts by outcome.",
	}, []string{"outcome"})
	m.registry.MustRegister(m.modelInitTotal)

	m.embedDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemEmbed,
		Name:      "duration_seconds",
		Help:      "Time to produce one embedding, including lazy model construction.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
	})
	m.registry.MustRegister(m.embedDuration)

	m.embedErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemEmbed,
		Name:      "errors_total",
		Help:      "The total number of failed embedding requests.",
	})
	m.registry.MustRegister(m.embedErrorsTotal)

	m.cacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemCache,
		Name:      "total",
		Help:      "Embedding cache lookups by layer and result.",
	}, []string{"layer", "result"})
	m.registry.MustRegister(m.cacheTotal)

	return m
}

func (m *metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *metrics) SetModelReady(ready bool) {
	if ready {
		m.modelReady.Set(1)
		return
	}
	m.modelReady.Set(0)
}

func (m *metrics) ObserveModelInit(success bool) {
	outcome := OutcomeFailure
	if success {
		outcome = OutcomeSuccess
	}
	m.modelInitTotal.WithLabelValues(outcome).Inc()
}

func (m *metrics) ObserveEmbed(elapsed time.Duration, err error) {
	m.embedDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.embedErrorsTotal.Inc()
	}
}

func (m *metrics) ObserveCache(layer string, hit bool) {
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	m.cacheTotal.WithLabelValues(layer, result).Inc()
}
