package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attendanceVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_verifications_total",
			Help: "Attendance verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	tokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registration_tokens_issued_total",
			Help: "Registration tokens issued",
		},
	)

	certificateRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certificate_renders_total",
			Help: "Certificate render attempts by outcome",
		},
		[]string{"outcome"},
	)

	certificateRenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "certificate_render_duration_seconds",
			Help:    "Time spent rendering one certificate PDF",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	certificateDownloads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "certificate_downloads_total",
			Help: "Certificate PDF downloads served",
		},
	)

	emailJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_jobs_total",
			Help: "Email delivery jobs by outcome",
		},
		[]string{"outcome"},
	)

	paymentCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Payment gateway callback notifications by outcome",
		},
		[]string{"outcome"},
	)
)

// Outcome labels shared across the counters above.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
)

func RecordVerification(outcome string) { attendanceVerifications.WithLabelValues(outcome).Inc() }

func RecordTokenIssued() { tokensIssued.Inc() }

func RecordCertificateRender(outcome string, seconds float64) {
	certificateRenders.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		certificateRenderDuration.Observe(seconds)
	}
}

func RecordCertificateDownload() { certificateDownloads.Inc() }

func RecordEmailJob(outcome string) { emailJobs.WithLabelValues(outcome).Inc() }

func RecordPaymentCallback(outcome string) { paymentCallbacks.WithLabelValues(outcome).Inc() }
