package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PaymentIntentTotal counts payment intent creation attempts.
	PaymentIntentTotal *prometheus.CounterVec
	// PaymentRecordTotal counts record-payment outcomes.
	PaymentRecordTotal *prometheus.CounterVec
	// PaymentWebhookTotal counts inbound payment webhook processing outcomes.
	PaymentWebhookTotal *prometheus.CounterVec
	// ProviderCallLatency records outbound provider call latency in milliseconds.
	ProviderCallLatency *prometheus.HistogramVec
	// SiteFormTotal counts newsletter and contact form submissions.
	SiteFormTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PaymentIntentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_intent_total",
			Help:      "Count of payment intent processing outcomes.",
		}, []string{"result"})
		PaymentRecordTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_record_total",
			Help:      "Count of record-payment outcomes.",
		}, []string{"result"})
		PaymentWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed payment webhooks by event kind and outcome.",
		}, []string{"kind", "result"})
		ProviderCallLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_ms",
			Help:      "Latency of outbound provider calls in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"provider", "operation", "result"})
		SiteFormTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "site_form_total",
			Help:      "Count of site form submissions by form and outcome.",
		}, []string{"form", "result"})

		mustRegisterCollector(reg, PaymentIntentTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentIntentTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentRecordTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentRecordTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentWebhookTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentWebhookTotal = v
			}
		})
		mustRegisterCollector(reg, ProviderCallLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				ProviderCallLatency = v
			}
		})
		mustRegisterCollector(reg, SiteFormTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SiteFormTotal = v
			}
		})
	})
}

// CountIntent increments PaymentIntentTotal when registered.
func CountIntent(result string) {
	if PaymentIntentTotal != nil {
		PaymentIntentTotal.WithLabelValues(result).Inc()
	}
}

// CountRecord increments PaymentRecordTotal when registered.
func CountRecord(result string) {
	if PaymentRecordTotal != nil {
		PaymentRecordTotal.WithLabelValues(result).Inc()
	}
}

// CountWebhook increments PaymentWebhookTotal when registered.
func CountWebhook(kind, result string) {
	if PaymentWebhookTotal != nil {
		PaymentWebhookTotal.WithLabelValues(kind, result).Inc()
	}
}

// ObserveProviderCall records provider latency when registered.
func ObserveProviderCall(provider, operation, result string, ms float64) {
	if ProviderCallLatency != nil {
		ProviderCallLatency.WithLabelValues(provider, operation, result).Observe(ms)
	}
}

// CountForm increments SiteFormTotal when registered.
func CountForm(form, result string) {
	if SiteFormTotal != nil {
		SiteFormTotal.WithLabelValues(form, result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
