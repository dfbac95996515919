package metrics

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
)

var (
	MeasurementsParsedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "latseq_measurements_parsed_total",
			Help: "Total number of measurement records parsed from the trace",
		},
		[]string{"dir"},
	)

	RecordsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "latseq_records_dropped_total",
			Help: "Total number of malformed trace lines dropped during parsing",
		},
		[]string{"reason"},
	)

	JourneysCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "latseq_journeys_completed_total",
			Help: "Total number of journeys that reached an output point",
		},
		[]string{"dir"},
	)

	JourneysIncompleteTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "latseq_journeys_incomplete_total",
			Help: "Total number of journeys that timed out before reaching an output point",
		},
		[]string{"dir"},
	)

	JourneysForkedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "latseq_journeys_forked_total",
			Help: "Total number of sibling journeys spawned by segmentation",
		},
		[]string{"dir"},
	)

	OrphanMeasurements = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "latseq_orphan_measurements",
			Help: "Number of measurements never bound into any journey after the last run",
		},
	)

	PhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "latseq_phase_duration_seconds",
			Help:    "Wall time spent in each reconstruction phase",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	PointHopDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "latseq_point_hop_duration_seconds",
			Help:    "Per-hop duration observed leaving each point",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"point"},
	)

	SnapshotOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "latseq_snapshot_operations_total",
			Help: "Total number of snapshot load/save operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	RSSBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "latseq_process_rss_bytes",
			Help: "Resident set size of the engine process",
		},
	)

	Goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "latseq_goroutines",
			Help: "Number of goroutines",
		},
	)

	JourneysPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "latseq_journeys_published_total",
			Help: "Total number of completed journeys published to a downstream sink",
		},
		[]string{"sink", "outcome"},
	)
)

var metricsRegisteredOnce sync.Once

// safeRegister registers a collector, swallowing a duplicate-registration
// panic so tests and repeated engine runs in the same process don't abort.
func safeRegister(collector prometheus.Collector) {
	defer func() {
		recover()
	}()
	prometheus.MustRegister(collector)
}

// Server exposes the engine's Prometheus metrics and a liveness endpoint.
type Server struct {
	server *http.Server
	logger *logrus.Logger
}

// NewServer builds a metrics HTTP server bound to addr, registering every
// collector exactly once even if called more than once in a process.
func NewServer(addr, path string, logger *logrus.Logger) *Server {
	metricsRegisteredOnce.Do(func() {
		safeRegister(MeasurementsParsedTotal)
		safeRegister(RecordsDroppedTotal)
		safeRegister(JourneysCompletedTotal)
		safeRegister(JourneysIncompleteTotal)
		safeRegister(JourneysForkedTotal)
		safeRegister(OrphanMeasurements)
		safeRegister(PhaseDuration)
		safeRegister(PointHopDuration)
		safeRegister(SnapshotOpsTotal)
		safeRegister(RSSBytes)
		safeRegister(Goroutines)
		safeRegister(JourneysPublishedTotal)
	})

	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{Addr: addr, Handler: mux},
		logger: logger,
	}
}

// Start begins serving metrics in the background.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("starting metrics server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("metrics server error")
		}
	}()
	return nil
}

// Stop shuts the metrics server down.
func (s *Server) Stop() error {
	s.logger.Info("stopping metrics server")
	return s.server.Close()
}

// RecordMeasurementParsed increments the parsed-measurement counter for dir.
func RecordMeasurementParsed(dir string) {
	MeasurementsParsedTotal.WithLabelValues(dir).Inc()
}

// RecordRecordDropped increments the dropped-record counter for reason.
func RecordRecordDropped(reason string) {
	RecordsDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordJourneyCompleted increments the completed-journey counter for dir.
func RecordJourneyCompleted(dir string) {
	JourneysCompletedTotal.WithLabelValues(dir).Inc()
}

// RecordJourneyIncomplete increments the incomplete-journey counter for dir.
func RecordJourneyIncomplete(dir string) {
	JourneysIncompleteTotal.WithLabelValues(dir).Inc()
}

// RecordJourneyForked increments the forked-journey counter for dir.
func RecordJourneyForked(dir string) {
	JourneysForkedTotal.WithLabelValues(dir).Inc()
}

// SetOrphanCount sets the orphan-measurement gauge after a run.
func SetOrphanCount(count int) {
	OrphanMeasurements.Set(float64(count))
}

// RecordPhaseDuration observes how long a named phase took.
func RecordPhaseDuration(phase string, d time.Duration) {
	PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordPointHopDuration observes a per-hop duration leaving point.
func RecordPointHopDuration(point string, seconds float64) {
	PointHopDuration.WithLabelValues(point).Observe(seconds)
}

// RecordSnapshotOp records a snapshot load/save outcome.
func RecordSnapshotOp(op, outcome string) {
	SnapshotOpsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordJourneyPublished records the outcome of publishing a completed
// journey to a named downstream sink.
func RecordJourneyPublished(sink, outcome string) {
	JourneysPublishedTotal.WithLabelValues(sink, outcome).Inc()
}

// SampleProcessMetrics updates the process-level RSS and goroutine gauges.
// Reads through gopsutil so the sample works the same whether the engine
// runs as a one-shot CLI or the long-lived cmd/latseqd service.
func SampleProcessMetrics(pid int32) {
	Goroutines.Set(float64(runtime.NumGoroutine()))

	proc, err := process.NewProcess(pid)
	if err != nil {
		return
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		RSSBytes.Set(float64(mem.RSS))
	}
}
