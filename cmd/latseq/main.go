// Command latseq is the one-shot CLI front end over the reconstruction
// engine: parse a trace, optionally restore/save a snapshot, and print
// exactly one of the mutually exclusive output views to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/flavienrj/latseq-go/internal/config"
	"github.com/flavienrj/latseq-go/internal/engine"
	"github.com/flavienrj/latseq-go/internal/latseq"
	"github.com/flavienrj/latseq-go/internal/metrics"
	"github.com/flavienrj/latseq-go/internal/sinks"

	"github.com/sirupsen/logrus"
)

func main() {
	var (
		logPath     string
		configPath  string
		inputs      bool
		outJourneys bool
		journeys    bool
		points      bool
		paths       bool
		csv         bool
		clean       bool
	)

	flag.StringVar(&logPath, "log", "", "path to the input .lseq trace file (required)")
	flag.StringVar(&configPath, "config", "", "path to an optional YAML configuration file")
	flag.BoolVar(&inputs, "inputs", false, "print the canonicalized measurements")
	flag.BoolVar(&outJourneys, "out_journeys", false, "print the flat .lseqj journey view")
	flag.BoolVar(&journeys, "journeys", false, "print one JSON object per completed journey")
	flag.BoolVar(&points, "points", false, "print one JSON object per point")
	flag.BoolVar(&paths, "paths", false, "print the enumerated paths as {D:[...], U:[...]}")
	flag.BoolVar(&csv, "csv", false, "print one CSV row per completed journey")
	flag.BoolVar(&clean, "clean", false, "discard any prior snapshot before running")
	flag.Parse()

	if logPath == "" {
		fmt.Fprintln(os.Stderr, "latseq: -log is required")
		os.Exit(1)
	}

	modes := 0
	for _, on := range []bool{inputs, outJourneys, journeys, points, paths, csv} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		fmt.Fprintln(os.Stderr, "latseq: at most one of -inputs, -out_journeys, -journeys, -points, -paths, -csv may be set")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "latseq: %v\n", err)
		os.Exit(1)
	}

	logger := engine.NewLogger(cfg)

	if cfg.Metrics.Enabled {
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		srv := metrics.NewServer(addr, cfg.Metrics.Path, logger)
		if err := srv.Start(); err != nil {
			logger.WithError(err).Warn("latseq: metrics server failed to start")
		} else {
			defer srv.Stop()
		}
	}
	metrics.SampleProcessMetrics(int32(os.Getpid()))

	eng := engine.New(cfg, logger)
	if err := eng.Run(logPath, clean); err != nil {
		logger.WithError(err).Error("latseq: reconstruction failed")
		os.Exit(1)
	}

	stats := eng.Stats()
	logger.WithFields(map[string]interface{}{
		"file": stats.File, "raw": stats.RawCount, "clean": stats.CleanCount,
		"points": stats.PointCount, "journeys": stats.JourneyCount, "orphans": stats.OrphanCount,
	}).Info("latseq: run summary")
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.Debug(eng.PathsString())
	}

	if err := publishToSinks(cfg, logger, eng); err != nil {
		logger.WithError(err).Warn("latseq: sink publish failed")
	}

	enc := json.NewEncoder(os.Stdout)
	switch {
	case inputs:
		if err := enc.Encode(latseq.MeasurementViews(eng.Measurements())); err != nil {
			fail(err)
		}
	case outJourneys:
		if err := eng.WriteFlatJourneys(os.Stdout); err != nil {
			fail(err)
		}
	case journeys:
		if err := enc.Encode(latseq.JourneyViews(eng.Journeys(), eng.Measurements())); err != nil {
			fail(err)
		}
	case points:
		if err := enc.Encode(latseq.PointViews(eng.Points())); err != nil {
			fail(err)
		}
	case paths:
		if err := enc.Encode(eng.PathsJSON()); err != nil {
			fail(err)
		}
	case csv:
		if err := eng.WriteCSV(os.Stdout); err != nil {
			fail(err)
		}
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "latseq: %v\n", err)
	os.Exit(1)
}

// publishToSinks feeds every completed journey to the configured
// downstream sinks. Neither sink is fatal: a Kafka/local-file failure is
// logged and the CLI's own stdout output still proceeds.
func publishToSinks(cfg *config.Config, logger *logrus.Logger, eng *engine.Engine) error {
	events := toSinkEvents(eng.JourneyEvents())

	kafka, err := sinks.NewKafkaSink(cfg.Sinks.Kafka, logger)
	if err != nil {
		return fmt.Errorf("kafka sink: %w", err)
	}
	kafka.Start()
	defer kafka.Stop()
	if err := kafka.Send(context.Background(), events); err != nil {
		logger.WithError(err).Warn("latseq: kafka publish failed")
	}

	localFile, err := sinks.NewLocalFileSink(cfg.Sinks.LocalFile, logger)
	if err != nil {
		return fmt.Errorf("local file sink: %w", err)
	}
	defer localFile.Close()
	if err := eng.WriteFlatJourneysToSink(localFile); err != nil {
		logger.WithError(err).Warn("latseq: local file sink write failed")
	}
	return nil
}

func toSinkEvents(in []engine.JourneyEvent) []sinks.JourneyEvent {
	out := make([]sinks.JourneyEvent, len(in))
	for i, ev := range in {
		hops := make([]sinks.JourneyHop, len(ev.Hops))
		for k, h := range ev.Hops {
			hops[k] = sinks.JourneyHop{Point: h.Point, TS: h.TS}
		}
		out[i] = sinks.JourneyEvent{UID: ev.UID, Dir: ev.Dir, PathID: ev.PathID, TSIn: ev.TSIn, TSOut: ev.TSOut, Hops: hops}
	}
	return out
}
