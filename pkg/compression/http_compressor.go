package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/sirupsen/logrus"
)

// Algorithm is one compression algorithm a sink can be configured to use.
// Only the algorithms internal/config's local-file-sink validation
// accepts are declared here; the teacher's wider set (zlib, an "auto"
// pseudo-algorithm picked by payload size) never had a way to get
// selected in this domain, where a sink's algorithm is an operator
// config choice, not inferred per-payload.
type Algorithm string

const (
	AlgorithmGzip   Algorithm = "gzip"
	AlgorithmZstd   Algorithm = "zstd"
	AlgorithmLZ4    Algorithm = "lz4"
	AlgorithmSnappy Algorithm = "snappy"
	AlgorithmNone   Algorithm = "none"
)

// Config configures an HTTPCompressor.
type Config struct {
	DefaultAlgorithm Algorithm `yaml:"default_algorithm"`
	MinBytes         int       `yaml:"min_bytes"`
	Level            int       `yaml:"level"`
}

// HTTPCompressor compresses rotated local-file-sink output with one of a
// small set of algorithms, reusing pooled writers across calls.
type HTTPCompressor struct {
	config Config
	logger *logrus.Logger
	pools  compressionPool
	mutex  sync.RWMutex
}

// compressionPool holds one reusable writer pool each for gzip, zstd and
// lz4; snappy encodes in one call and needs no writer.
type compressionPool struct {
	gzipPool   sync.Pool
	zstdPool   sync.Pool
	lz4Pool    sync.Pool
}

// CompressionResult is the outcome of one Compress call.
type CompressionResult struct {
	Data           []byte
	Algorithm      Algorithm
	OriginalSize   int
	CompressedSize int
	Ratio          float64
	Encoding       string
}

// NewHTTPCompressor builds a compressor with its writer pools initialized.
func NewHTTPCompressor(config Config, logger *logrus.Logger) *HTTPCompressor {
	if config.DefaultAlgorithm == "" {
		config.DefaultAlgorithm = AlgorithmGzip
	}
	if config.MinBytes == 0 {
		config.MinBytes = 1024
	}
	if config.Level == 0 {
		config.Level = 6
	}

	hc := &HTTPCompressor{config: config, logger: logger}
	hc.pools.gzipPool = sync.Pool{
		New: func() interface{} {
			w, _ := gzip.NewWriterLevel(nil, hc.config.Level)
			return w
		},
	}
	hc.pools.zstdPool = sync.Pool{
		New: func() interface{} {
			w, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
			return w
		},
	}
	hc.pools.lz4Pool = sync.Pool{
		New: func() interface{} { return lz4.NewWriter(nil) },
	}
	return hc
}

// Compress compresses data with algorithm, falling back to the
// compressor's configured default when algorithm is empty. Payloads
// under MinBytes pass through uncompressed, matching the local-file
// sink's "don't bother shrinking a handful of bytes" expectation.
func (hc *HTTPCompressor) Compress(data []byte, algorithm Algorithm, sinkType string) (*CompressionResult, error) {
	if len(data) < hc.config.MinBytes || algorithm == AlgorithmNone {
		return passthrough(data), nil
	}
	if algorithm == "" {
		algorithm = hc.config.DefaultAlgorithm
	}

	compressed, err := hc.compressWithAlgorithm(data, algorithm)
	if err != nil {
		return nil, fmt.Errorf("compression failed with %s: %w", algorithm, err)
	}

	return &CompressionResult{
		Data:           compressed,
		Algorithm:      algorithm,
		OriginalSize:   len(data),
		CompressedSize: len(compressed),
		Ratio:          float64(len(compressed)) / float64(len(data)),
		Encoding:       hc.getContentEncoding(algorithm),
	}, nil
}

func passthrough(data []byte) *CompressionResult {
	return &CompressionResult{
		Data: data, Algorithm: AlgorithmNone,
		OriginalSize: len(data), CompressedSize: len(data), Ratio: 1.0,
	}
}

func (hc *HTTPCompressor) compressWithAlgorithm(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case AlgorithmGzip:
		return hc.compressGzip(data)
	case AlgorithmZstd:
		return hc.compressZstd(data)
	case AlgorithmLZ4:
		return hc.compressLZ4(data)
	case AlgorithmSnappy:
		return snappy.Encode(nil, data), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

func (hc *HTTPCompressor) compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := hc.pools.gzipPool.Get().(*gzip.Writer)
	defer hc.pools.gzipPool.Put(writer)

	writer.Reset(&buf)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (hc *HTTPCompressor) compressZstd(data []byte) ([]byte, error) {
	encoder := hc.pools.zstdPool.Get().(*zstd.Encoder)
	defer hc.pools.zstdPool.Put(encoder)
	return encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (hc *HTTPCompressor) compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := hc.pools.lz4Pool.Get().(*lz4.Writer)
	defer hc.pools.lz4Pool.Put(writer)

	writer.Reset(&buf)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (hc *HTTPCompressor) getContentEncoding(algorithm Algorithm) string {
	switch algorithm {
	case AlgorithmGzip:
		return "gzip"
	case AlgorithmZstd:
		return "zstd"
	case AlgorithmLZ4:
		return "lz4"
	case AlgorithmSnappy:
		return "snappy"
	default:
		return ""
	}
}

// Decompress reverses Compress for the same algorithm, e.g. to read a
// rotated, compressed ".lseqj.<ext>" file back; the package tests use it
// for round trips.
func (hc *HTTPCompressor) Decompress(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case AlgorithmGzip:
		return hc.decompressGzip(data)
	case AlgorithmZstd:
		return hc.decompressZstd(data)
	case AlgorithmLZ4:
		return hc.decompressLZ4(data)
	case AlgorithmSnappy:
		return snappy.Decode(nil, data)
	default:
		return nil, fmt.Errorf("unsupported decompression algorithm: %s", algorithm)
	}
}

func (hc *HTTPCompressor) decompressGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (hc *HTTPCompressor) decompressZstd(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	return decoder.DecodeAll(data, nil)
}

func (hc *HTTPCompressor) decompressLZ4(data []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(reader)
}
