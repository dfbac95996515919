package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

func TestValidConfigPasses(t *testing.T) {
	c := validConfig()
	assert.NoError(t, ValidateConfig(c))
}

func TestInvalidLogLevel(t *testing.T) {
	c := validConfig()
	c.App.LogLevel = "verbose"
	err := ValidateConfig(c)
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "log level"))
}

func TestInvalidWindowOrdering(t *testing.T) {
	c := validConfig()
	c.Engine.ForkWindow = 1.0
	c.Engine.JourneyWindow = 0.05
	err := ValidateConfig(c)
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "fork_window"))
}

func TestZeroWindowsRejected(t *testing.T) {
	testCases := []struct {
		name          string
		journeyWindow float64
		forkWindow    float64
	}{
		{"zero journey window", 0, 0.002},
		{"negative fork window", 0.050, -1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			c.Engine.JourneyWindow = tc.journeyWindow
			c.Engine.ForkWindow = tc.forkWindow
			assert.Error(t, ValidateConfig(c))
		})
	}
}

func TestNoDeclaredPointsRejected(t *testing.T) {
	c := validConfig()
	c.Engine.Points = PointSetConfig{}
	err := ValidateConfig(c)
	assert.Error(t, err)
}

func TestInvalidMetricsPort(t *testing.T) {
	testCases := []int{0, -1, 65536, 100000}
	for _, port := range testCases {
		c := validConfig()
		c.Metrics.Enabled = true
		c.Metrics.Port = port
		assert.Error(t, ValidateConfig(c))
	}
}

func TestKafkaSinkRequiresBrokersAndTopic(t *testing.T) {
	c := validConfig()
	c.Sinks.Kafka.Enabled = true
	c.Sinks.Kafka.Brokers = nil
	c.Sinks.Kafka.Topic = ""
	err := ValidateConfig(c)
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "brokers"))
	assert.True(t, strings.Contains(err.Error(), "topic"))
}

func TestKafkaSASLRequiresMechanismAndUsername(t *testing.T) {
	c := validConfig()
	c.Sinks.Kafka.Enabled = true
	c.Sinks.Kafka.Brokers = []string{"localhost:9092"}
	c.Sinks.Kafka.SASL.Enabled = true
	c.Sinks.Kafka.SASL.Mechanism = "MD5"
	err := ValidateConfig(c)
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "SASL mechanism"))
	assert.True(t, strings.Contains(err.Error(), "SASL username"))
}

func TestLocalFileSinkRequiresDirectory(t *testing.T) {
	c := validConfig()
	c.Sinks.LocalFile.Enabled = true
	c.Sinks.LocalFile.Directory = ""
	err := ValidateConfig(c)
	assert.Error(t, err)
}

func TestInvalidSnapshotCompression(t *testing.T) {
	c := validConfig()
	c.Snapshot.Enabled = true
	c.Snapshot.Path = "/tmp/latseq.snap"
	c.Snapshot.Compression = "bz2"
	err := ValidateConfig(c)
	assert.Error(t, err)
}

func TestMultipleValidationErrorsAreCombined(t *testing.T) {
	c := validConfig()
	c.App.LogLevel = "bogus"
	c.Engine.JourneyWindow = 0
	err := ValidateConfig(c)
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "multiple validation errors"))
}
