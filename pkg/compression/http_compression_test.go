package compression

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressForClientEmptyBody(t *testing.T) {
	mgr := NewHTTPCompressionManager()
	out, encoding, used := mgr.CompressForClient(nil, "gzip, zstd")
	assert.False(t, used)
	assert.Empty(t, encoding)
	assert.Empty(t, out)
}

func TestCompressForClientBelowMinSize(t *testing.T) {
	mgr := NewHTTPCompressionManager()
	small := []byte("short body")
	out, encoding, used := mgr.CompressForClient(small, "gzip, zstd")
	assert.False(t, used)
	assert.Empty(t, encoding)
	assert.Equal(t, small, out)
}

func TestCompressForClientGzipSmallPayload(t *testing.T) {
	mgr := NewHTTPCompressionManager()
	body := []byte(strings.Repeat("journey-hop-data ", 40)) // >256B, <1024B
	out, encoding, used := mgr.CompressForClient(body, "gzip, zstd")
	require.True(t, used)
	assert.Equal(t, "gzip", encoding)

	r, err := gzip.NewReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer r.Close()
	plain, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, body, plain)
}

func TestCompressForClientZstdLargePayload(t *testing.T) {
	mgr := NewHTTPCompressionManager()
	body := []byte(strings.Repeat("journey-hop-data-for-a-large-response-body ", 100)) // >1024B
	out, encoding, used := mgr.CompressForClient(body, "gzip, zstd")
	require.True(t, used)
	assert.Equal(t, "zstd", encoding)
	assert.NotEqual(t, body, out)
}

func TestCompressForClientNoAcceptedEncoding(t *testing.T) {
	mgr := NewHTTPCompressionManager()
	body := []byte(strings.Repeat("x", 2000))
	out, encoding, used := mgr.CompressForClient(body, "")
	// selectBestCompressor falls back to the manager's default ("gzip")
	// even with no Accept-Encoding match, so a large body still
	// compresses through the default algorithm.
	require.True(t, used)
	assert.Equal(t, "gzip", encoding)
	assert.NotEqual(t, body, out)
}
