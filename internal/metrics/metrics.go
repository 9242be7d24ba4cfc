package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/storefront/internal/domain"
)

const namespace = "storefront"

// Order sources.
const (
	SourceDirect   = "direct"
	SourceCheckout = "checkout"
)

// Metrics is the set of storefront collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	ordersPlaced     *prometheus.CounterVec
	orderValue       prometheus.Histogram
	checkoutSessions prometheus.Counter
	signups          prometheus.Counter
	emails           *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry, along with
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      `HTTP requests served, by route template, method and status code.`,
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      `Time spent serving HTTP requests.`,
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shop",
			Name:      "orders_placed_total",
			Help:      `Orders created, by source (direct or checkout).`,
		}, []string{"source"}),
		orderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "shop",
			Name:      "order_value_dollars",
			Help:      `Total value of placed orders.`,
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		checkoutSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shop",
			Name:      "checkout_sessions_total",
			Help:      `Hosted payment sessions started.`,
		}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "signups_total",
			Help:      `Accounts created.`,
		}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mail",
			Name:      "messages_total",
			Help:      `Outgoing email messages, by result (sent, failed, dropped).`,
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.ordersPlaced,
		m.orderValue,
		m.checkoutSessions,
		m.signups,
		m.emails,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// OrderPlaced records a newly created order.
func (m *Metrics) OrderPlaced(source string, total domain.Money) {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(source).Inc()
	m.orderValue.Observe(total.Dollars())
}

// CheckoutStarted records a new hosted payment session.
func (m *Metrics) CheckoutStarted() {
	if m == nil {
		return
	}
	m.checkoutSessions.Inc()
}

// Signup records a new account.
func (m *Metrics) Signup() {
	if m == nil {
		return
	}
	m.signups.Inc()
}

// Email records the outcome of one outgoing message.
func (m *Metrics) Email(result string) {
	if m == nil {
		return
	}
	m.emails.WithLabelValues(result).Inc()
}
