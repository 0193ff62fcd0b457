package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/cwsl/ka9q_sstvtx/sstv"
)

// EncoderMetrics holds all Prometheus metrics for one run
type EncoderMetrics struct {
	registry *prometheus.Registry

	encodesTotal  *prometheus.CounterVec   // Encodes by protocol and result
	encodeSeconds *prometheus.HistogramVec // Wall-clock encode time by protocol
	audioSeconds  *prometheus.GaugeVec     // Length of the produced audio by protocol
	samplesTotal  *prometheus.CounterVec   // Samples produced by protocol
	lastSuccess   prometheus.Gauge         // Unix timestamp of last successful encode
	processRSS    prometheus.Gauge         // Resident set size after encoding
	pushesTotal   prometheus.Counter       // Push attempts to Pushgateway
	pushFailures  prometheus.Counter       // Failed pushes to Pushgateway
}

// NewEncoderMetrics creates metrics on a private registry
func NewEncoderMetrics() *EncoderMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &EncoderMetrics{
		registry: registry,
		encodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sstvtx_encodes_total",
				Help: "Total number of encode attempts",
			},
			[]string{"protocol", "result"},
		),
		encodeSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sstvtx_encode_duration_seconds",
				Help:    "Wall-clock time spent synthesizing a transmission",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"protocol"},
		),
		audioSeconds: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sstvtx_audio_duration_seconds",
				Help: "Length of the most recent transmission",
			},
			[]string{"protocol"},
		),
		samplesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sstvtx_samples_total",
				Help: "Total number of audio samples produced",
			},
			[]string{"protocol"},
		),
		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sstvtx_last_success_timestamp_seconds",
				Help: "Unix timestamp of the last successful encode",
			},
		),
		processRSS: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sstvtx_process_resident_memory_bytes",
				Help: "Resident memory of the encoder process after encoding",
			},
		),
		pushesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sstvtx_pushgateway_pushes_total",
				Help: "Total number of push attempts to Pushgateway",
			},
		),
		pushFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sstvtx_pushgateway_failures_total",
				Help: "Total number of failed pushes to Pushgateway",
			},
		),
	}
}

// RecordEncode records the outcome of one encode
func (em *EncoderMetrics) RecordEncode(protocol string, elapsed time.Duration, stream *sstv.Stream, err error) {
	if em == nil {
		return
	}
	if err != nil {
		em.encodesTotal.WithLabelValues(protocol, sstv.KindOf(err).String()).Inc()
		return
	}

	em.encodesTotal.WithLabelValues(protocol, "ok").Inc()
	em.encodeSeconds.WithLabelValues(protocol).Observe(elapsed.Seconds())
	if stream != nil {
		em.audioSeconds.WithLabelValues(protocol).Set(stream.Duration())
		em.samplesTotal.WithLabelValues(protocol).Add(float64(stream.Len()))
	}
	em.lastSuccess.SetToCurrentTime()
}

// RecordResourceUsage samples process memory
func (em *EncoderMetrics) RecordResourceUsage() {
	if em == nil {
		return
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Printf("[Metrics] Failed to inspect process: %v", err)
		return
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		log.Printf("[Metrics] Failed to read memory info: %v", err)
		return
	}
	em.processRSS.Set(float64(mem.RSS))
}

// Snapshot flattens the current metric values, keyed by name and labels
func (em *EncoderMetrics) Snapshot() (map[string]float64, error) {
	families, err := em.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			value, ok := extractMetricValue(m)
			if !ok {
				continue
			}
			key := mf.GetName()
			for _, label := range m.GetLabel() {
				key += "_" + label.GetValue()
			}
			out[key] = value
		}
	}
	return out, nil
}

// extractMetricValue extracts the numeric value from a Prometheus metric
func extractMetricValue(m *dto.Metric) (float64, bool) {
	if m.GetGauge() != nil {
		return m.GetGauge().GetValue(), true
	}
	if m.GetCounter() != nil {
		return m.GetCounter().GetValue(), true
	}
	if m.GetHistogram() != nil {
		return m.GetHistogram().GetSampleSum(), true
	}
	if m.GetSummary() != nil {
		return m.GetSummary().GetSampleSum(), true
	}
	return 0, false
}

// pushToGateway pushes all metrics to the Pushgateway once
func (em *EncoderMetrics) pushToGateway(config *Config, jobID string) error {
	if em == nil {
		return fmt.Errorf("prometheus metrics not initialized")
	}

	pgConfig := config.Prometheus.Pushgateway
	em.pushesTotal.Inc()

	pusher := push.New(pgConfig.URL, pgConfig.Job).Gatherer(em.registry)
	if pgConfig.Token != "" {
		pusher = pusher.BasicAuth(pgConfig.Instance, pgConfig.Token)
	}
	if pgConfig.Instance != "" {
		pusher = pusher.Grouping("instance", pgConfig.Instance)
	}
	pusher = pusher.Grouping("version", Version)
	if jobID != "" {
		pusher = pusher.Grouping("run", jobID)
	}

	if err := pusher.Push(); err != nil {
		em.pushFailures.Inc()
		return fmt.Errorf("failed to push to gateway: %w", err)
	}

	log.Printf("[Metrics] Pushed to %s (job %s)", pgConfig.URL, pgConfig.Job)
	return nil
}
