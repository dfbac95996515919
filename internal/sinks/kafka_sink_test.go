package sinks

import (
	"testing"

	"github.com/flavienrj/latseq-go/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain guards the package's sink lifecycle tests against a leaked
// async producer goroutine: a KafkaSink that's Started but never Stopped
// would otherwise leak sarama's background loops silently.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/sirupsen/logrus.(*Entry).log"),
	)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func TestNewKafkaSinkDisabledNeedsNoBrokers(t *testing.T) {
	sink, err := NewKafkaSink(config.KafkaSinkConfig{Enabled: false}, testLogger())
	require.NoError(t, err)
	require.NotNil(t, sink)

	// A disabled sink accepts the full lifecycle as a no-op so callers
	// never need to branch on whether a sink is configured.
	sink.Start()
	assert.NoError(t, sink.Send(nil, []JourneyEvent{{UID: "0"}}))
	assert.NoError(t, sink.Stop())
}

func TestNewKafkaSinkRequiresBrokers(t *testing.T) {
	_, err := NewKafkaSink(config.KafkaSinkConfig{Enabled: true, Topic: "latseq.journeys"}, testLogger())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "brokers")
}

func TestNewKafkaSinkRequiresTopic(t *testing.T) {
	_, err := NewKafkaSink(config.KafkaSinkConfig{
		Enabled: true,
		Brokers: []string{"localhost:9092"},
	}, testLogger())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "topic")
}
