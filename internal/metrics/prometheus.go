package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the transcriber service
type Metrics struct {
	// Remote transcription metrics
	RemoteCallsInFlight prometheus.Gauge
	RemoteAttempts      prometheus.Counter
	RemoteRetries       prometheus.Counter
	PayloadSplitSignals prometheus.Counter
	Placeholders        prometheus.Counter
	SegmentsCompleted   prometheus.Counter

	// File pipeline metrics
	FilesProcessed prometheus.Counter
	FilesFailed    prometheus.Counter
	FileDuration   prometheus.Histogram
	EmailsSent     prometheus.Counter
}

// New creates all metrics and registers them with the given registerer
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RemoteCallsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "transcriber_remote_calls_in_flight",
			Help: "Current number of in-flight remote transcription calls",
		}),
		RemoteAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_remote_attempts_total",
			Help: "Total number of remote transcription attempts",
		}),
		RemoteRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_remote_retries_total",
			Help: "Total number of retried remote transcription attempts",
		}),
		PayloadSplitSignals: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_payload_split_signals_total",
			Help: "Total number of payload-size rejections that triggered splitting",
		}),
		Placeholders: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_placeholders_total",
			Help: "Total number of failure placeholders emitted into transcripts",
		}),
		SegmentsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_segments_completed_total",
			Help: "Total number of segments resolved to a leaf result",
		}),
		FilesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_files_processed_total",
			Help: "Total number of Drive files processed successfully",
		}),
		FilesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_files_failed_total",
			Help: "Total number of Drive files that failed processing",
		}),
		FileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriber_file_duration_seconds",
			Help:    "End-to-end processing time per Drive file",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		}),
		EmailsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_emails_sent_total",
			Help: "Total number of transcript notification emails sent",
		}),
	}
}
