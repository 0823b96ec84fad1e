package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for capture sessions.
type Metrics struct {
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	SessionsCancelled prometheus.Counter

	PermissionDenials prometheus.Counter
	DeviceFaults      prometheus.Counter
	EffectFaults      prometheus.Counter
	EffectSwitches    prometheus.Counter

	ChunksIngested prometheus.Counter
	BytesBuffered  prometheus.Gauge

	ArtifactsAssembled prometheus.Counter
	ArtifactBytes      prometheus.Histogram
	RecordingSeconds   prometheus.Histogram
}

// New creates and registers all session metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "mictape_sessions_started_total",
			Help: "Total number of capture sessions started",
		}),
		SessionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "mictape_sessions_completed_total",
			Help: "Total number of capture sessions stopped normally",
		}),
		SessionsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "mictape_sessions_cancelled_total",
			Help: "Total number of capture sessions cancelled with data discarded",
		}),
		PermissionDenials: factory.NewCounter(prometheus.CounterOpts{
			Name: "mictape_permission_denials_total",
			Help: "Total number of refused microphone acquisitions",
		}),
		DeviceFaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "mictape_device_faults_total",
			Help: "Total number of fatal mid-session device errors",
		}),
		EffectFaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "mictape_effect_faults_total",
			Help: "Total number of effect routing construction failures",
		}),
		EffectSwitches: factory.NewCounter(prometheus.CounterOpts{
			Name: "mictape_effect_switches_total",
			Help: "Total number of successful live effect rewires",
		}),
		ChunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "mictape_chunks_ingested_total",
			Help: "Total number of audio chunks ingested into session buffers",
		}),
		BytesBuffered: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mictape_bytes_buffered",
			Help: "Bytes currently held in the session chunk buffer",
		}),
		ArtifactsAssembled: factory.NewCounter(prometheus.CounterOpts{
			Name: "mictape_artifacts_assembled_total",
			Help: "Total number of artifacts assembled from session buffers",
		}),
		ArtifactBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mictape_artifact_size_bytes",
			Help:    "Size of assembled artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~256MB
		}),
		RecordingSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mictape_recording_duration_seconds",
			Help:    "Accumulated duration of stopped recordings",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		}),
	}
}
