package compression

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCompressor(t *testing.T) *HTTPCompressor {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewHTTPCompressor(Config{DefaultAlgorithm: AlgorithmGzip, MinBytes: 64}, logger)
}

func TestHTTPCompressorRoundTrip(t *testing.T) {
	hc := testCompressor(t)
	payload := []byte(strings.Repeat("ip--pdcp :rnti1:sn5 ", 50))

	for _, algo := range []Algorithm{AlgorithmGzip, AlgorithmZstd, AlgorithmLZ4, AlgorithmSnappy} {
		t.Run(string(algo), func(t *testing.T) {
			result, err := hc.Compress(payload, algo, "local_file")
			require.NoError(t, err)
			assert.Equal(t, algo, result.Algorithm)
			assert.Less(t, result.CompressedSize, result.OriginalSize)
			assert.NotEqual(t, payload, result.Data)

			plain, err := hc.Decompress(result.Data, algo)
			require.NoError(t, err)
			assert.Equal(t, payload, plain)
		})
	}
}

func TestHTTPCompressorBelowMinBytesPassesThrough(t *testing.T) {
	hc := testCompressor(t)
	small := []byte("short")

	result, err := hc.Compress(small, AlgorithmGzip, "local_file")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmNone, result.Algorithm)
	assert.Equal(t, small, result.Data)
	assert.Equal(t, 1.0, result.Ratio)
}

func TestHTTPCompressorNoneAlgorithmPassesThrough(t *testing.T) {
	hc := testCompressor(t)
	payload := []byte(strings.Repeat("x", 200))

	result, err := hc.Compress(payload, AlgorithmNone, "local_file")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmNone, result.Algorithm)
	assert.Equal(t, payload, result.Data)
}

func TestHTTPCompressorEmptyAlgorithmUsesDefault(t *testing.T) {
	hc := testCompressor(t)
	payload := []byte(strings.Repeat("default-algorithm-fallback ", 20))

	result, err := hc.Compress(payload, "", "local_file")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmGzip, result.Algorithm)
}

func TestHTTPCompressorUnsupportedAlgorithm(t *testing.T) {
	hc := testCompressor(t)
	payload := []byte(strings.Repeat("y", 200))

	_, err := hc.Compress(payload, Algorithm("zlib"), "local_file")
	require.Error(t, err)

	_, err = hc.Decompress(payload, Algorithm("zlib"))
	require.Error(t, err)
}
