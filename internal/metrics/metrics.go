package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector provides application metrics. All methods are safe on a nil
// receiver so components can run without metrics in tests.
type Collector struct {
	registry *prometheus.Registry

	// API
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Sessions
	ActiveSessions prometheus.Gauge

	// Geolocation
	GeolocationOutcomes *prometheus.CounterVec

	// Weather
	WeatherFetchDuration prometheus.Histogram
	WeatherFetchErrors   prometheus.Counter
	WeatherStaleDiscards prometheus.Counter

	// Search
	SearchQueriesTotal *prometheus.CounterVec

	// Streaming
	StreamSubscribers prometheus.Gauge
}

// NewCollector registers all metrics on a private registry.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by route, method, and status",
			},
			[]string{"route", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"route"},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Number of live dashboard sessions",
			},
		),

		GeolocationOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "geolocation_outcomes_total",
				Help:      "Terminal geolocation results by outcome",
			},
			[]string{"outcome"},
		),

		WeatherFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "weather_fetch_duration_seconds",
				Help:      "Duration of weather fetches in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),

		WeatherFetchErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_fetch_errors_total",
				Help:      "Total number of failed weather fetches",
			},
		),

		WeatherStaleDiscards: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_stale_discards_total",
				Help:      "Weather results dropped because a newer location was requested",
			},
		),

		SearchQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_queries_total",
				Help:      "Location search queries by whether they matched",
			},
			[]string{"matched"},
		),

		StreamSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stream_subscribers",
				Help:      "Number of active event stream subscribers",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

func NewTimer(observer prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: observer,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	if t == nil {
		return 0
	}
	d := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(d.Seconds())
	}
	return d
}

func (c *Collector) RecordAPIRequest(route, method, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.APIRequestsTotal.WithLabelValues(route, method, status).Inc()
	c.APIRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.ActiveSessions.Inc()
}

func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.ActiveSessions.Dec()
}

func (c *Collector) RecordGeolocation(outcome string) {
	if c == nil {
		return
	}
	c.GeolocationOutcomes.WithLabelValues(outcome).Inc()
}

// WeatherTimer starts timing a weather fetch. Returns nil when c is nil.
func (c *Collector) WeatherTimer() *Timer {
	if c == nil {
		return nil
	}
	return NewTimer(c.WeatherFetchDuration)
}

func (c *Collector) RecordWeatherError() {
	if c == nil {
		return
	}
	c.WeatherFetchErrors.Inc()
}

func (c *Collector) RecordStaleWeather() {
	if c == nil {
		return
	}
	c.WeatherStaleDiscards.Inc()
}

func (c *Collector) RecordSearch(matched bool) {
	if c == nil {
		return
	}
	label := "false"
	if matched {
		label = "true"
	}
	c.SearchQueriesTotal.WithLabelValues(label).Inc()
}

func (c *Collector) SubscriberAdded() {
	if c == nil {
		return
	}
	c.StreamSubscribers.Inc()
}

func (c *Collector) SubscriberRemoved() {
	if c == nil {
		return
	}
	c.StreamSubscribers.Dec()
}
