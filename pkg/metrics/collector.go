// Package metrics exposes prometheus metrics for map generation, the layout
// simulation and the HTTP server.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the metrics of one viewer instance. Each collector has its
// own registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// Generation requests
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Layout simulation
	Ticks       prometheus.Counter
	Settled     prometheus.Counter
	SettleTicks prometheus.Histogram
	SettleTime  prometheus.Histogram

	// HTTP server
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector whose metrics are prefixed by namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Map generation requests by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_request_duration_seconds",
			Help:      "Map generation request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	ticks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulation_ticks_total",
		Help:      "Force simulation ticks",
	})

	settled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulation_settled_total",
		Help:      "Simulations that cooled down",
	})

	settleTicks := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "simulation_settle_ticks",
		Help:      "Ticks until a simulation cooled down",
		Buckets:   prometheus.LinearBuckets(50, 50, 8),
	})

	settleTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "simulation_settle_seconds",
		Help:      "Wall time until a simulation cooled down",
		Buckets:   prometheus.DefBuckets,
	})

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(
		requests,
		requestDuration,
		ticks,
		settled,
		settleTicks,
		settleTime,
		httpRequests,
		httpDuration,
	)

	return &Collector{
		registry:        registry,
		Requests:        requests,
		RequestDuration: requestDuration,
		Ticks:           ticks,
		Settled:         settled,
		SettleTicks:     settleTicks,
		SettleTime:      settleTime,
		HTTPRequests:    httpRequests,
		HTTPDuration:    httpDuration,
	}
}

// ObserveRequest records a finished generation request.
func (c *Collector) ObserveRequest(kind, outcome string, d time.Duration) {
	c.Requests.WithLabelValues(kind, outcome).Inc()
	c.RequestDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveTick counts one simulation tick.
func (c *Collector) ObserveTick() {
	c.Ticks.Inc()
}

// ObserveSettled records a simulation that cooled down.
func (c *Collector) ObserveSettled(ticks int, elapsed time.Duration) {
	c.Settled.Inc()
	c.SettleTicks.Observe(float64(ticks))
	c.SettleTime.Observe(elapsed.Seconds())
}

// Registry returns the prometheus registry of this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware counts requests per mux route template. Unmatched requests are
// labelled "unmatched".
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
