package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// riskSubmissions counts intake attempts by result
	riskSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskdesk_risk_submissions_total",
		Help: "Total risk submissions by result",
	}, []string{"result"})

	// assignmentOutcomes counts auto-assignment attempts by reason
	assignmentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskdesk_assignments_total",
		Help: "Total auto-assignment attempts by reason",
	}, []string{"reason"})

	// notificationFailures counts Slack notifications that could not be delivered
	notificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskdesk_notification_failures_total",
		Help: "Total risk notifications that failed to post",
	})
)

const (
	submissionAccepted = "accepted"
	submissionRejected = "rejected"
	submissionFailed   = "failed"
)
