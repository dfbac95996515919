package sinks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flavienrj/latseq-go/internal/config"

	"github.com/stretchr/testify/require"
)

func TestLocalFileSinkWritesHeaderAndLines(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewLocalFileSink(config.LocalFileSinkConfig{
		Enabled:   true,
		Directory: dir,
	}, testLogger())
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.WriteHeader("trace", "#funcId ip phy.out.proc"))
	require.NoError(t, sink.WriteLine("trace", "20260731_000000.000000 D\tip--phy.out.proc\t0.rnti1.sn5"))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(filepath.Join(dir, "trace.lseqj"))
	require.NoError(t, err)
	require.Contains(t, string(data), "#funcId ip phy.out.proc\n")
	require.Contains(t, string(data), "0.rnti1.sn5\n")
}

func TestLocalFileSinkDisabledIsNoop(t *testing.T) {
	sink, err := NewLocalFileSink(config.LocalFileSinkConfig{Enabled: false}, testLogger())
	require.NoError(t, err)
	require.NoError(t, sink.WriteHeader("trace", "#funcId ip"))
	require.NoError(t, sink.WriteLine("trace", "line"))
	require.NoError(t, sink.Close())
}

func TestLocalFileSinkRotates(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewLocalFileSink(config.LocalFileSinkConfig{
		Enabled:   true,
		Directory: dir,
	}, testLogger())
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.WriteHeader("trace", "#funcId ip"))
	sink.bytesWritten = maxRotationBytes + 1
	require.NoError(t, sink.WriteLine("trace", "line-after-rotation"))

	rotated, err := filepath.Glob(filepath.Join(dir, "trace.lseqj.*"))
	require.NoError(t, err)
	require.Len(t, rotated, 1)
}
