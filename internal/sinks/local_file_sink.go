package sinks

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/flavienrj/latseq-go/internal/config"
	"github.com/flavienrj/latseq-go/pkg/compression"

	"github.com/sirupsen/logrus"
)

// maxRotationBytes is the size past which LocalFileSink rotates to a
// fresh ".lseqj" file instead of growing the active one without bound.
const maxRotationBytes = 64 * 1024 * 1024

// LocalFileSink writes the flat ".lseqj" journey export of spec §6 to
// disk, rotating past maxRotationBytes and optionally compressing each
// rotated-out file with pkg/compression's HTTPCompressor. It is the second of the two downstream consumers spec §1
// names as an external collaborator.
type LocalFileSink struct {
	cfg        config.LocalFileSinkConfig
	logger     *logrus.Logger
	compressor *compression.HTTPCompressor

	mu           sync.Mutex
	file         *os.File
	writer       *bufio.Writer
	path         string
	bytesWritten int64
	rotation     int
}

// NewLocalFileSink builds the sink, creating its output directory when
// enabled. compression.Algorithm mirrors config's validated values
// except "none", handled here by leaving compressor nil.
func NewLocalFileSink(cfg config.LocalFileSinkConfig, logger *logrus.Logger) (*LocalFileSink, error) {
	if !cfg.Enabled {
		return &LocalFileSink{cfg: cfg, logger: logger}, nil
	}
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("local file sink: %w", err)
	}

	var compressor *compression.HTTPCompressor
	if cfg.Compression != "" && cfg.Compression != "none" {
		compressor = compression.NewHTTPCompressor(compression.Config{
			DefaultAlgorithm: compression.Algorithm(cfg.Compression),
			MinBytes:         0,
		}, logger)
	}

	logger.WithFields(logrus.Fields{
		"directory":   cfg.Directory,
		"compression": cfg.Compression,
	}).Info("latseq: local file sink configured")

	return &LocalFileSink{cfg: cfg, logger: logger, compressor: compressor}, nil
}

// WriteHeader opens the active output file for baseName (if not already
// open) and writes the "#funcId P1 P2 ..." header line.
func (s *LocalFileSink) WriteHeader(baseName, header string) error {
	if !s.cfg.Enabled {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(baseName); err != nil {
		return err
	}
	n, err := s.writer.WriteString(header + "\n")
	s.bytesWritten += int64(n)
	return err
}

// WriteLine appends one rendered flat-journey line, rotating to a fresh
// file first if the active file has crossed maxRotationBytes.
func (s *LocalFileSink) WriteLine(baseName, line string) error {
	if !s.cfg.Enabled {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(baseName); err != nil {
		return err
	}
	if s.bytesWritten > maxRotationBytes {
		if err := s.rotateLocked(baseName); err != nil {
			return err
		}
	}
	n, err := s.writer.WriteString(line + "\n")
	s.bytesWritten += int64(n)
	return err
}

func (s *LocalFileSink) openLocked(baseName string) error {
	if s.file != nil {
		return nil
	}
	s.path = filepath.Join(s.cfg.Directory, baseName+".lseqj")
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("local file sink: create %s: %w", s.path, err)
	}
	s.file = f
	s.writer = bufio.NewWriter(f)
	s.bytesWritten = 0
	return nil
}

func (s *LocalFileSink) rotateLocked(baseName string) error {
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if err := s.file.Close(); err != nil {
		return err
	}
	s.rotation++
	rotated := fmt.Sprintf("%s.%d", s.path, s.rotation)
	if err := os.Rename(s.path, rotated); err != nil {
		return err
	}
	if s.compressor != nil {
		if err := s.compressRotated(rotated); err != nil {
			s.logger.WithError(err).Warn("latseq: failed to compress rotated journey file")
		}
	}
	s.file = nil
	return s.openLocked(baseName)
}

func (s *LocalFileSink) compressRotated(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	result, err := s.compressor.Compress(data, compression.Algorithm(s.cfg.Compression), "local_file")
	if err != nil {
		return err
	}
	if result.Algorithm == compression.AlgorithmNone {
		return nil
	}
	if err := os.WriteFile(path+"."+string(result.Algorithm), result.Data, 0o644); err != nil {
		return err
	}
	return os.Remove(path)
}

// Close flushes and closes the active output file, if any.
func (s *LocalFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	if err := s.writer.Flush(); err != nil {
		return err
	}
	err := s.file.Close()
	s.file = nil
	return err
}
