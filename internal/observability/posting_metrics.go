package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taxdesk/taxdesk/internal/posting"
)

// PostingMetrics records posting outcomes.
type PostingMetrics struct {
	singles     *prometheus.CounterVec
	documents   *prometheus.CounterVec
	batches     *prometheus.CounterVec
	assignments *prometheus.CounterVec
}

// NewPostingMetrics registers the posting collectors on reg.
func NewPostingMetrics(reg prometheus.Registerer) *PostingMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PostingMetrics{
		singles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taxdesk_posting_single_total",
			Help: "Single-document posting attempts by outcome.",
		}, []string{"status"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taxdesk_posting_documents_total",
			Help: "Documents handled by batch posting by result.",
		}, []string{"result"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taxdesk_posting_batches_total",
			Help: "Batch posting calls, split by recovery re-runs.",
		}, []string{"recovery"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taxdesk_posting_assignments_total",
			Help: "Ledger account assignment writes by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.singles, m.documents, m.batches, m.assignments)
	return m
}

// ObserveSingle counts a single-document outcome.
func (m *PostingMetrics) ObserveSingle(status posting.SingleStatus) {
	if m == nil {
		return
	}
	m.singles.WithLabelValues(string(status)).Inc()
}

// ObserveBatch counts one batch call and its per-document results.
func (m *PostingMetrics) ObserveBatch(result posting.BatchResult, recovery bool) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(strconv.FormatBool(recovery)).Inc()
	m.documents.WithLabelValues("posted").Add(float64(result.Posted))
	missing := len(result.MissingAccountIDs())
	m.documents.WithLabelValues("missing_account").Add(float64(missing))
	if other := result.Failed - missing; other > 0 {
		m.documents.WithLabelValues("failed").Add(float64(other))
	}
}

// ObserveAssignments counts assignment writes.
func (m *PostingMetrics) ObserveAssignments(written, failed int) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues("written").Add(float64(written))
	m.assignments.WithLabelValues("failed").Add(float64(failed))
}

var _ posting.Recorder = (*PostingMetrics)(nil)
