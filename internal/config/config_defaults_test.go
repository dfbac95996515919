package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaultsPopulatesEngineWindows(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, 0.050, config.Engine.JourneyWindow)
	assert.Equal(t, 0.002, config.Engine.ForkWindow)
	assert.Equal(t, []string{"ip", "rlc.tx.am"}, config.Engine.Points.InD)
	assert.Equal(t, []string{"phy.out.proc"}, config.Engine.Points.OutD)
	assert.Equal(t, []string{"phy.in.proc"}, config.Engine.Points.InU)
	assert.Equal(t, []string{"ip"}, config.Engine.Points.OutU)
}

func TestApplyDefaultsDoesNotOverrideExplicitPoints(t *testing.T) {
	config := &Config{
		Engine: EngineConfig{
			Points: PointSetConfig{InD: []string{"custom.in"}, OutD: []string{"custom.out"}},
		},
	}
	applyDefaults(config)

	assert.Equal(t, []string{"custom.in"}, config.Engine.Points.InD)
	assert.Equal(t, []string{"custom.out"}, config.Engine.Points.OutD)
}

func TestApplyDefaultsAppAndMetrics(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, "latseq", config.App.Name)
	assert.Equal(t, "info", config.App.LogLevel)
	assert.Equal(t, "text", config.App.LogFormat)
	assert.Equal(t, 9090, config.Metrics.Port)
	assert.Equal(t, "/metrics", config.Metrics.Path)
	assert.Equal(t, "zstd", config.Snapshot.Compression)
}

func TestEnvironmentOverridesWindows(t *testing.T) {
	os.Setenv("LATSEQ_JOURNEY_WINDOW", "0.075")
	os.Setenv("LATSEQ_FORK_WINDOW", "0.003")
	defer os.Unsetenv("LATSEQ_JOURNEY_WINDOW")
	defer os.Unsetenv("LATSEQ_FORK_WINDOW")

	config := &Config{}
	applyDefaults(config)
	applyEnvironmentOverrides(config)

	assert.Equal(t, 0.075, config.Engine.JourneyWindow)
	assert.Equal(t, 0.003, config.Engine.ForkWindow)
}

func TestEnvironmentOverridesKafkaBrokers(t *testing.T) {
	os.Setenv("LATSEQ_KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	defer os.Unsetenv("LATSEQ_KAFKA_BROKERS")

	config := &Config{}
	applyDefaults(config)
	applyEnvironmentOverrides(config)

	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, config.Sinks.Kafka.Brokers)
}
