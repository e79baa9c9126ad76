package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/hundredandten/server/internal/config"
	"github.com/hundredandten/server/internal/view"
)

// Producer publishes game notifications to Kafka, keyed by game id so every
// change to one game lands on one partition in order
type Producer struct {
	config   *config.KafkaConfig
	producer sarama.SyncProducer
	logger   *slog.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg *config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = cfg.RetryMax
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}

	return newProducer(cfg, producer, logger), nil
}

func newProducer(cfg *config.KafkaConfig, producer sarama.SyncProducer, logger *slog.Logger) *Producer {
	return &Producer{
		config:   cfg,
		producer: producer,
		logger:   logger,
	}
}

// encodeNotification builds the Kafka message for n
func encodeNotification(topic string, n view.Notification) (*sarama.ProducerMessage, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshaling notification: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(n.GameID),
		Value: sarama.ByteEncoder(data),
	}, nil
}

// Publish sends a notification and waits for the broker to acknowledge it
func (p *Producer) Publish(ctx context.Context, n view.Notification) error {
	msg, err := encodeNotification(p.config.Topic, n)
	if err != nil {
		return err
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}

	p.logger.Debug("published notification",
		"game_id", n.GameID,
		"revision", n.Revision,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.producer.Close()
}
