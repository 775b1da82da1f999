package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for extraction and submission.
type PipelineMetrics struct {
	extractionTotal   *prometheus.CounterVec
	extractionLatency *prometheus.HistogramVec
	submissionTotal   *prometheus.CounterVec
	attachmentTotal   *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		extractionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visitreport",
			Name:      "extraction_total",
			Help:      "Total extraction requests by mode and result status",
		}, []string{"mode", "status"}),
		extractionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "visitreport",
			Name:      "extraction_latency_seconds",
			Help:      "Latency of extraction service calls",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"mode", "provider"}),
		submissionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visitreport",
			Name:      "submission_total",
			Help:      "Total CRM record submissions",
		}, []string{"status"}),
		attachmentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visitreport",
			Name:      "attachment_upload_total",
			Help:      "Total CRM attachment uploads",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.extractionTotal, m.extractionLatency, m.submissionTotal, m.attachmentTotal)
	return m
}

func (m *PipelineMetrics) ObserveExtraction(mode, status string) {
	if m == nil {
		return
	}
	m.extractionTotal.WithLabelValues(mode, status).Inc()
}

func (m *PipelineMetrics) ObserveExtractionLatency(mode, provider string, seconds float64) {
	if m == nil {
		return
	}
	m.extractionLatency.WithLabelValues(mode, provider).Observe(seconds)
}

func (m *PipelineMetrics) ObserveSubmission(status string) {
	if m == nil {
		return
	}
	m.submissionTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveAttachment(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.attachmentTotal.WithLabelValues(status).Inc()
}
