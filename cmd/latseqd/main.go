// Command latseqd is the minimal read-only HTTP surface spec §1 scopes
// out of the core but names as a collaborator: it loads one engine
// snapshot and serves its reconstructed state as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/flavienrj/latseq-go/internal/config"
	"github.com/flavienrj/latseq-go/internal/engine"
	"github.com/flavienrj/latseq-go/internal/latseq"
	"github.com/flavienrj/latseq-go/internal/metrics"
	"github.com/flavienrj/latseq-go/pkg/compression"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		snapshotPath string
		configPath   string
		addr         string
	)
	flag.StringVar(&snapshotPath, "snapshot", "", "path to a .pkl snapshot written by cmd/latseq (required)")
	flag.StringVar(&configPath, "config", "", "path to an optional YAML configuration file")
	flag.StringVar(&addr, "addr", ":8090", "address to listen on")
	flag.Parse()

	if snapshotPath == "" {
		fmt.Fprintln(os.Stderr, "latseqd: -snapshot is required")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "latseqd: %v\n", err)
		os.Exit(1)
	}
	logger := engine.NewLogger(cfg)

	eng, err := engine.FromSnapshot(snapshotPath, logger)
	if err != nil {
		logger.WithError(err).Error("latseqd: failed to load snapshot")
		os.Exit(1)
	}

	if cfg.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		srv := metrics.NewServer(metricsAddr, cfg.Metrics.Path, logger)
		if err := srv.Start(); err != nil {
			logger.WithError(err).Warn("latseqd: metrics server failed to start")
		}
	}

	router := mux.NewRouter()
	router.Use(compressionMiddleware(compression.NewHTTPCompressionManager()))

	router.HandleFunc("/points", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, latseq.PointViews(eng.Points()))
	}).Methods(http.MethodGet)

	router.HandleFunc("/paths", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, eng.PathsJSON())
	}).Methods(http.MethodGet)

	router.HandleFunc("/journeys", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, latseq.JourneyViews(eng.Journeys(), eng.Measurements()))
	}).Methods(http.MethodGet)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	logger.WithFields(logrus.Fields{"addr": addr, "snapshot": snapshotPath}).Info("latseqd: serving")
	if err := http.ListenAndServe(addr, router); err != nil {
		logger.WithError(err).Error("latseqd: server stopped")
		os.Exit(1)
	}
}

// compressionMiddleware negotiates Content-Encoding per request via
// pkg/compression's HTTPCompressionManager.
func compressionMiddleware(mgr *compression.HTTPCompressionManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			body := rec.buf
			compressed, encoding, used := mgr.CompressForClient(body, r.Header.Get("Accept-Encoding"))
			if used {
				w.Header().Set("Content-Encoding", encoding)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.status)
			w.Write(compressed)
		})
	}
}

// responseRecorder buffers a handler's body so compressionMiddleware can
// compress the whole payload in one pass instead of streaming chunks
// that might each fall under the compressor's MinSize.
type responseRecorder struct {
	http.ResponseWriter
	status int
	buf    []byte
}

func (r *responseRecorder) WriteHeader(status int) { r.status = status }

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.buf = append(r.buf, p...)
	return len(p), nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
