// Package metrics defines the Prometheus collectors of the bank file processor.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pankkilinkki"

// Outcome label values
const (
	OutcomeSuccess   = "success"
	OutcomeDuplicate = "duplicate"
	OutcomeFailure   = "failure"
)

// Metrics holds the collectors. A nil *Metrics discards observations.
type Metrics struct {
	FilesProcessed   *prometheus.CounterVec
	LedgerRows       *prometheus.CounterVec
	StreamDocuments  *prometheus.CounterVec
	RegistryRequests *prometheus.HistogramVec
	Notifications    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Bank files processed, by file type and outcome.",
		}, []string{"type", "outcome"}),
		LedgerRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_rows_total",
			Help:      "Ledger rows decoded, by payment status.",
		}, []string{"status"}),
		StreamDocuments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_documents_total",
			Help:      "XML documents decoded from bank streams, by root element.",
		}, []string{"root"}),
		RegistryRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registry_request_duration_seconds",
			Help:      "Duration of registry API calls including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Slack notifications sent, by channel and outcome.",
		}, []string{"channel", "outcome"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.FilesProcessed,
			m.LedgerRows,
			m.StreamDocuments,
			m.RegistryRequests,
			m.Notifications,
		)
	}
	return m
}

// Outcome maps an error to an outcome label
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func (m *Metrics) FileProcessed(fileType, outcome string) {
	if m == nil {
		return
	}
	m.FilesProcessed.WithLabelValues(fileType, outcome).Inc()
}

func (m *Metrics) LedgerRow(status string) {
	if m == nil {
		return
	}
	m.LedgerRows.WithLabelValues(status).Inc()
}

func (m *Metrics) StreamDocument(root string) {
	if m == nil {
		return
	}
	m.StreamDocuments.WithLabelValues(root).Inc()
}

func (m *Metrics) RegistryRequest(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.RegistryRequests.WithLabelValues(operation, Outcome(err)).Observe(time.Since(started).Seconds())
}

func (m *Metrics) Notification(channel string, err error) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(channel, Outcome(err)).Inc()
}
