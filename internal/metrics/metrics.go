package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"code", "method", "path"},
	)
	httpRequestsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed.",
		},
	)

	ordersPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Orders created at checkout.",
		},
		[]string{"payment_method"},
	)
	couponRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_coupon_rejections_total",
			Help: "Coupon applications rejected, by reason code.",
		},
		[]string{"reason"},
	)
	paymentEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_events_total",
			Help: "Payment state changes, by provider and resulting payment status.",
		},
		[]string{"provider", "status"},
	)
	signatureRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_signature_rejections_total",
			Help: "Payment confirmations or webhooks rejected for a bad signature.",
		},
		[]string{"source"},
	)
	refunds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_refunds_total",
			Help: "Refund outbox transitions, by resulting refund status.",
		},
		[]string{"status"},
	)
)

func init() {
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		slog.Debug("ProcessCollector registration skipped", slog.String("error", err.Error()))
	}

	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		slog.Debug("GoCollector registration skipped", slog.String("error", err.Error()))
	}
}

func OrderPlaced(paymentMethod string) {
	ordersPlaced.WithLabelValues(paymentMethod).Inc()
}

func CouponRejected(reason string) {
	couponRejections.WithLabelValues(reason).Inc()
}

func PaymentEvent(provider, status string) {
	paymentEvents.WithLabelValues(provider, status).Inc()
}

func SignatureRejected(source string) {
	signatureRejections.WithLabelValues(source).Inc()
}

func RefundTransition(status string) {
	refunds.WithLabelValues(status).Inc()
}

// wrapper around http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware labels requests by their mux pattern so path values such as
// order ids do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()

		rw := newResponseWriter(w)

		defer func() {
			path := r.Pattern
			if path == "" {
				path = "unmatched"
			}

			httpRequestsTotal.WithLabelValues(strconv.Itoa(rw.statusCode), r.Method, path).Inc()
			httpRequestsDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
			httpRequestsInFlight.Dec()
		}()

		next.ServeHTTP(rw, r)
	})
}

// Handler serves the Prometheus /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
