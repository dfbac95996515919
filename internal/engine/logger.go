package engine

import (
	"os"

	"github.com/flavienrj/latseq-go/internal/config"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the single *logrus.Logger threaded into every
// component constructor (engine, sinks, metrics), configured from the
// app stanza the way the teacher's own entrypoint does.
func NewLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if level, err := logrus.ParseLevel(cfg.App.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	if cfg.App.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
