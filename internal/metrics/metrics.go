package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "site_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	formSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_form_submissions_total",
			Help: "Form submissions by form and outcome (accepted/invalid/rate_limited/delivery_failed).",
		},
		[]string{"form", "outcome"},
	)

	telegramSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_telegram_sends_total",
			Help: "Per-recipient Telegram deliveries by outcome (ok/fail).",
		},
		[]string{"outcome"},
	)

	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_bot_auth_attempts_total",
			Help: "Bot authorization attempts by outcome (granted/invalid/denied).",
		},
		[]string{"outcome"},
	)

	recipients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "site_bot_recipients",
			Help: "Number of chats currently authorized to receive notifications.",
		},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration, formSubmissions, telegramSends,
			authAttempts, recipients,
		)
	})
}

func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func IncFormSubmission(form, outcome string) {
	formSubmissions.WithLabelValues(form, outcome).Inc()
}

func IncTelegramSend(ok bool) {
	outcome := "fail"
	if ok {
		outcome = "ok"
	}
	telegramSends.WithLabelValues(outcome).Inc()
}

func IncAuthAttempt(outcome string) {
	authAttempts.WithLabelValues(outcome).Inc()
}

func SetRecipients(n int) {
	recipients.Set(float64(n))
}
