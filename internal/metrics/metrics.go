// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resetRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sampletrack_reset_requests_total",
		Help: "Password reset requests by outcome",
	}, []string{"outcome"})

	resetCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sampletrack_reset_completions_total",
		Help: "Password reset completions by result",
	}, []string{"result"})

	kitVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sampletrack_kit_verifications_total",
		Help: "Kit verification attempts by result",
	}, []string{"result"})

	emailFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sampletrack_email_failures_total",
		Help: "Emails that could not be delivered",
	})

	expiredCodesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sampletrack_expired_reset_codes_deleted_total",
		Help: "Reset codes removed after expiry or use",
	})
)

// ObserveResetRequest counts a reset request with its outcome label.
func ObserveResetRequest(outcome string) {
	resetRequests.WithLabelValues(outcome).Inc()
}

// ObserveResetCompletion counts a reset completion attempt.
func ObserveResetCompletion(ok bool) {
	resetCompletions.WithLabelValues(result(ok)).Inc()
}

// ObserveKitVerification counts a kit verification attempt.
func ObserveKitVerification(ok bool) {
	kitVerifications.WithLabelValues(result(ok)).Inc()
}

// ObserveEmailFailure counts an undeliverable email.
func ObserveEmailFailure() {
	emailFailures.Inc()
}

// ObserveExpiredCodesDeleted adds n removed reset codes.
func ObserveExpiredCodesDeleted(n int64) {
	if n > 0 {
		expiredCodesDeleted.Add(float64(n))
	}
}

// WriteTextfile writes every registered metric to path in the text format
// read by the node exporter textfile collector. The file is replaced
// atomically.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
