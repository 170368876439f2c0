package obs

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// POSMetrics groups the till's business counters.
type POSMetrics struct {
	LinesCommitted *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	Payments       *prometheus.CounterVec
	PaymentCents   *prometheus.CounterVec
}

// NewPOSMetrics registers and returns POS collectors. A nil registerer uses the
// default registry.
func NewPOSMetrics(namespace string, reg prometheus.Registerer) *POSMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &POSMetrics{
		LinesCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pos_lines_committed_total",
			Help:      "Cart lines committed, by sale mode.",
		}, []string{"mode"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pos_rejections_total",
			Help:      "Commit operations refused by a business gate, by rejection code.",
		}, []string{"code"}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pos_payments_total",
			Help:      "Settled transactions, by tender.",
		}, []string{"tender"}),
		PaymentCents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pos_payment_amount_cents_total",
			Help:      "Settled amount in minor units, by tender.",
		}, []string{"tender"}),
	}
	mustRegisterCounter(reg, &m.LinesCommitted)
	mustRegisterCounter(reg, &m.Rejections)
	mustRegisterCounter(reg, &m.Payments)
	mustRegisterCounter(reg, &m.PaymentCents)
	return m
}

func (m *POSMetrics) LineCommitted(mode string) {
	if m == nil {
		return
	}
	m.LinesCommitted.WithLabelValues(mode).Inc()
}

func (m *POSMetrics) Rejected(code string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(code).Inc()
}

func (m *POSMetrics) PaymentRecorded(tender string, amountCents int64) {
	if m == nil {
		return
	}
	m.Payments.WithLabelValues(tender).Inc()
	if amountCents > 0 {
		m.PaymentCents.WithLabelValues(tender).Add(float64(amountCents))
	}
}

// HTTPMetrics groups Prometheus collectors for HTTP observability.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
}

func NewHTTPMetrics(namespace string, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"method", "route"}),
	}
	mustRegisterCounter(reg, &m.ReqTotal)
	if err := reg.Register(m.ReqDur); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			panic(fmt.Errorf("register histogram: %w", err))
		}
		if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
			m.ReqDur = existing
		}
	}
	return m
}

// Middleware counts requests by matched chi route. Must run inside the router
// so the pattern is known once the handler returns.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r)

		route := routePattern(r)
		m.ReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.Status())).Inc()
		m.ReqDur.WithLabelValues(r.Method, route).Observe(float64(time.Since(start)) / float64(time.Millisecond))
	})
}

func mustRegisterCounter(reg prometheus.Registerer, counter **prometheus.CounterVec) {
	if err := reg.Register(*counter); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			panic(fmt.Errorf("register counter: %w", err))
		}
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			*counter = existing
		}
	}
}
