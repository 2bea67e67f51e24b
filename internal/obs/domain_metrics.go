package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts price quote resolutions by outcome.
	QuoteTotal *prometheus.CounterVec
	// OrdersCreatedTotal counts order creation attempts by channel and outcome.
	OrdersCreatedTotal *prometheus.CounterVec
	// PaymentVerifyTotal counts synchronous payment verification outcomes.
	PaymentVerifyTotal *prometheus.CounterVec
	// PaymentWebhookTotal counts inbound payment webhook processing outcomes.
	PaymentWebhookTotal *prometheus.CounterVec
	// GatewayRequestDuration records latency of outbound payment gateway calls.
	GatewayRequestDuration *prometheus.HistogramVec
	// UploadBytesTotal accumulates bytes stored for order attachments.
	UploadBytesTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_quote_total",
			Help:      "Count of price quote resolutions by outcome.",
		}, []string{"result"})
		OrdersCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Count of order creation attempts by channel and outcome.",
		}, []string{"channel", "result"})
		PaymentVerifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verify_total",
			Help:      "Count of synchronous payment verification outcomes.",
		}, []string{"result"})
		PaymentWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed payment webhooks by outcome.",
		}, []string{"result"})
		GatewayRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_ms",
			Help:      "Latency of outbound payment gateway calls in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"operation", "result"})
		UploadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded to object storage for order attachments.",
		})
		reg.MustRegister(QuoteTotal, OrdersCreatedTotal, PaymentVerifyTotal, PaymentWebhookTotal, GatewayRequestDuration, UploadBytesTotal)
	})
}
