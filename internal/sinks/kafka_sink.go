package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/flavienrj/latseq-go/internal/config"
	"github.com/flavienrj/latseq-go/internal/metrics"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// KafkaSink publishes one JSON JourneyEvent per completed journey to a
// configured topic via an async Sarama producer, optionally authenticated
// with SASL/SCRAM. It is one of the two downstream consumers spec §1
// names as external collaborators fed by, but kept outside, the core.
type KafkaSink struct {
	cfg      config.KafkaSinkConfig
	logger   *logrus.Logger
	producer sarama.AsyncProducer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sent   int64
	errors int64
}

// NewKafkaSink builds the sink and, if enabled, its underlying producer.
// A disabled sink is still returned so callers can unconditionally call
// Start/Send/Stop on it.
func NewKafkaSink(cfg config.KafkaSinkConfig, logger *logrus.Logger) (*KafkaSink, error) {
	if !cfg.Enabled {
		return &KafkaSink{cfg: cfg, logger: logger}, nil
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka sink: no topic configured")
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Return.Errors = true
	saramaCfg.Producer.Partitioner = sarama.NewHashPartitioner

	if cfg.SASL.Enabled {
		saramaCfg.Net.SASL.Enable = true
		saramaCfg.Net.SASL.User = cfg.SASL.Username
		saramaCfg.Net.SASL.Password = cfg.SASL.Password
		switch cfg.SASL.Mechanism {
		case "SCRAM-SHA-256":
			saramaCfg.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
			saramaCfg.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &XDGSCRAMClient{HashGeneratorFcn: SHA256}
			}
		case "SCRAM-SHA-512":
			saramaCfg.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
			saramaCfg.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &XDGSCRAMClient{HashGeneratorFcn: SHA512}
			}
		}
	}

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("kafka sink: failed to create producer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger.WithFields(logrus.Fields{
		"brokers": cfg.Brokers,
		"topic":   cfg.Topic,
	}).Info("latseq: kafka sink configured")

	return &KafkaSink{cfg: cfg, logger: logger, producer: producer, ctx: ctx, cancel: cancel}, nil
}

// Start drains the producer's success/error channels in the background so
// delivery reports never block Send.
func (ks *KafkaSink) Start() {
	if !ks.cfg.Enabled {
		return
	}
	ks.wg.Add(1)
	go ks.drainResponses()
}

func (ks *KafkaSink) drainResponses() {
	defer ks.wg.Done()
	for {
		select {
		case <-ks.ctx.Done():
			return
		case msg, ok := <-ks.producer.Successes():
			if !ok {
				return
			}
			atomic.AddInt64(&ks.sent, 1)
			metrics.RecordJourneyPublished(ks.cfg.Topic, "success")
			_ = msg
		case perr, ok := <-ks.producer.Errors():
			if !ok {
				return
			}
			atomic.AddInt64(&ks.errors, 1)
			metrics.RecordJourneyPublished(ks.cfg.Topic, "error")
			ks.logger.WithError(perr.Err).Warn("latseq: kafka publish failed")
		}
	}
}

// Send publishes one message per event, keyed by uid so every flat-view
// row touching that journey can be repartitioned consistently downstream.
func (ks *KafkaSink) Send(ctx context.Context, events []JourneyEvent) error {
	if !ks.cfg.Enabled {
		return nil
	}
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("kafka sink: marshal event %s: %w", ev.UID, err)
		}
		msg := &sarama.ProducerMessage{
			Topic: ks.cfg.Topic,
			Key:   sarama.StringEncoder(ev.UID),
			Value: sarama.ByteEncoder(value),
		}
		select {
		case ks.producer.Input() <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Stop closes the producer and waits for the response drain to exit.
func (ks *KafkaSink) Stop() error {
	if !ks.cfg.Enabled {
		return nil
	}
	ks.cancel()
	err := ks.producer.Close()
	ks.wg.Wait()
	ks.logger.WithFields(logrus.Fields{
		"sent":   atomic.LoadInt64(&ks.sent),
		"errors": atomic.LoadInt64(&ks.errors),
	}).Info("latseq: kafka sink stopped")
	return err
}

// Stats reports delivery counters, used for a final log line at shutdown.
func (ks *KafkaSink) Stats() (sent, errored int64) {
	return atomic.LoadInt64(&ks.sent), atomic.LoadInt64(&ks.errors)
}
