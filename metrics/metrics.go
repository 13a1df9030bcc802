// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package metrics exports Prometheus metrics for a timedhttp.Client.
//
// Metrics are collected by event handlers installed into the client's
// handler group, and by gauges that sample pool connection counts:
//
//	m := metrics.New("myservice")
//	handlers := &timedhttp.HandlerGroup{}
//	m.Install(handlers)
//	m.WatchPool("plain", pool.DefaultPlain)
//	client := &timedhttp.Client{Handlers: handlers}
//	http.Handle("/metrics", m.Handler())
package metrics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gogama/timedhttp"
	"github.com/gogama/timedhttp/pool"
	"github.com/gogama/timedhttp/request"
	"github.com/gogama/timedhttp/transient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace is the metric namespace used when New is given an
// empty one.
const DefaultNamespace = "timedhttp"

// Metrics holds the Prometheus metrics for one or more clients.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	TimeoutsTotal   *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	ConnectDuration prometheus.Histogram
	ReadDuration    prometheus.Histogram
	EventsTotal     prometheus.Counter

	namespace string
}

// New creates a Metrics instance with all metrics registered in a
// registry of its own.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of requests, by method and response status",
		},
		[]string{"method", "status"},
	)

	timeoutsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeouts_total",
			Help:      "Total number of expired deadlines, by phase",
		},
		[]string{"phase"},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of failed requests and body reads, by error kind and transience",
		},
		[]string{"kind", "category"},
	)

	connectDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connect_duration_seconds",
			Help:      "Time from obtaining a connection until the response headers arrived",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 3, 10},
		},
	)

	readDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "read_duration_seconds",
			Help:      "Time from the response headers until the body ended",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 3, 10, 60},
		},
	)

	eventsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_events_total",
			Help:      "Total number of server-sent events delivered",
		},
	)

	registry.MustRegister(
		requestsTotal,
		timeoutsTotal,
		errorsTotal,
		connectDuration,
		readDuration,
		eventsTotal,
	)

	return &Metrics{
		registry:        registry,
		RequestsTotal:   requestsTotal,
		TimeoutsTotal:   timeoutsTotal,
		ErrorsTotal:     errorsTotal,
		ConnectDuration: connectDuration,
		ReadDuration:    readDuration,
		EventsTotal:     eventsTotal,
		namespace:       namespace,
	}
}

// Registry returns the registry the metrics are registered in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Install adds the metric-collecting handlers to g.
func (m *Metrics) Install(g *timedhttp.HandlerGroup) {
	g.PushBack(timedhttp.AfterResponse, timedhttp.HandlerFunc(m.afterResponse))
	g.PushBack(timedhttp.AfterConnectTimeout, timedhttp.HandlerFunc(m.afterTimeout("connect")))
	g.PushBack(timedhttp.AfterReadTimeout, timedhttp.HandlerFunc(m.afterTimeout("read")))
	g.PushBack(timedhttp.AfterRequestError, timedhttp.HandlerFunc(m.afterRequestError))
	g.PushBack(timedhttp.AfterServerEvent, timedhttp.HandlerFunc(m.afterServerEvent))
	g.PushBack(timedhttp.AfterReadBody, timedhttp.HandlerFunc(m.afterReadBody))
}

// WatchPool registers gauges that sample the connection counts of p.
// The name distinguishes pools in the "pool" label and must be unique
// among watched pools.
func (m *Metrics) WatchPool(name string, p *pool.Pool) {
	labels := prometheus.Labels{"pool": name}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   m.namespace,
				Name:        "pool_open_connections",
				Help:        "Number of open connections in the pool",
				ConstLabels: labels,
			},
			func() float64 { return float64(p.Stats().Open()) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   m.namespace,
				Name:        "pool_dialed_connections_total",
				Help:        "Total number of connections dialed by the pool",
				ConstLabels: labels,
			},
			func() float64 { return float64(p.Stats().Dialed) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   m.namespace,
				Name:        "pool_failed_dials_total",
				Help:        "Total number of failed dials and TLS handshakes",
				ConstLabels: labels,
			},
			func() float64 { return float64(p.Stats().Failed) },
		),
	)
}

func (m *Metrics) afterResponse(_ timedhttp.Event, e *request.Execution) {
	m.RequestsTotal.WithLabelValues(e.Options.Method, strconv.Itoa(e.StatusCode())).Inc()
	if !e.Connected.IsZero() {
		m.ConnectDuration.Observe(e.ConnectDuration().Seconds())
	}
}

func (m *Metrics) afterTimeout(phase string) func(timedhttp.Event, *request.Execution) {
	return func(timedhttp.Event, *request.Execution) {
		m.TimeoutsTotal.WithLabelValues(phase).Inc()
	}
}

func (m *Metrics) afterRequestError(_ timedhttp.Event, e *request.Execution) {
	m.RequestsTotal.WithLabelValues(e.Options.Method, "error").Inc()
	m.ErrorsTotal.WithLabelValues(kindOf(e.Err), transient.Categorize(e.Err).String()).Inc()
}

func (m *Metrics) afterServerEvent(timedhttp.Event, *request.Execution) {
	m.EventsTotal.Inc()
}

func (m *Metrics) afterReadBody(_ timedhttp.Event, e *request.Execution) {
	m.ReadDuration.Observe(e.ReadDuration().Seconds())
	if e.Err != nil {
		m.ErrorsTotal.WithLabelValues(kindOf(e.Err), transient.Categorize(e.Err).String()).Inc()
	}
}

func kindOf(err error) string {
	var te *timedhttp.Error
	if errors.As(err, &te) {
		return te.Kind.String()
	}
	return "unknown"
}
