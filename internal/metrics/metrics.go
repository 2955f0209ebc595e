package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SubscriptionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_subscription_transitions_total",
			Help: "Subscription lifecycle operations by action and outcome",
		},
		[]string{"action", "result"},
	)

	ClassBookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_class_bookings_total",
			Help: "Class join/leave attempts by outcome",
		},
		[]string{"action", "result"},
	)

	AttendanceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_attendance_total",
			Help: "Check-ins and check-outs recorded",
		},
		[]string{"action"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_emails_sent_total",
			Help: "Total number of emails processed by the mail worker",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gymflow_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_notifications_total",
			Help: "Notification tasks by outcome",
		},
		[]string{"status"},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gymflow_notification_queue_depth",
			Help: "Tasks waiting in the notification dispatcher",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordTransition counts a lifecycle call; result is "ok" or the error kind.
func RecordTransition(action, result string) {
	SubscriptionTransitionsTotal.WithLabelValues(action, result).Inc()
}

func RecordClassBooking(action, result string) {
	ClassBookingsTotal.WithLabelValues(action, result).Inc()
}

func RecordAttendance(action string) {
	AttendanceTotal.WithLabelValues(action).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordNotification(status string) {
	NotificationsTotal.WithLabelValues(status).Inc()
}
