// Package kafka publishes domain events to a Kafka topic.
package kafka

import (
	"sync"

	"fintrack/api/config"
	"fintrack/api/logger"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"
)

const flushTimeoutMs = 5000

// Publisher wraps a producer and drains its delivery reports in the
// background so failed deliveries are logged instead of silently lost.
type Publisher struct {
	producer *kafka.Producer
	done     chan struct{}
	once     sync.Once

	mu     sync.Mutex
	failed uint64
}

// NewPublisher connects with SASL_SSL when an API key is configured and in
// plaintext otherwise.
func NewPublisher(cfg config.KafkaConfig) (*Publisher, error) {
	cm := &kafka.ConfigMap{
		"bootstrap.servers": cfg.BootstrapServers,
		"client.id":         "fintrack-api",
		"acks":              "all",
	}
	if cfg.APIKey != "" {
		_ = cm.SetKey("security.protocol", "SASL_SSL")
		_ = cm.SetKey("sasl.mechanism", "PLAIN")
		_ = cm.SetKey("sasl.username", cfg.APIKey)
		_ = cm.SetKey("sasl.password", cfg.APISecret)
	}

	producer, err := kafka.NewProducer(cm)
	if err != nil {
		logger.Get().Error("failed to initialize Kafka producer",
			zap.String("bootstrap_servers", cfg.BootstrapServers),
			zap.Error(err))
		return nil, err
	}

	p := &Publisher{producer: producer, done: make(chan struct{})}
	go p.drain()

	logger.Get().Info("Kafka producer initialized successfully",
		zap.String("bootstrap_servers", cfg.BootstrapServers))
	return p, nil
}

func (p *Publisher) drain() {
	defer close(p.done)
	for e := range p.producer.Events() {
		msg, ok := e.(*kafka.Message)
		if !ok {
			continue
		}
		if msg.TopicPartition.Error != nil {
			p.mu.Lock()
			p.failed++
			p.mu.Unlock()
			logger.Get().Error("event delivery failed",
				zap.String("key", string(msg.Key)),
				zap.Error(msg.TopicPartition.Error))
		}
	}
}

// Publish enqueues value on topic. Messages with the same key land on the
// same partition, which keeps one user's events in order.
func (p *Publisher) Publish(topic string, key, value []byte) error {
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
	}

	if err := p.producer.Produce(msg, nil); err != nil {
		logger.Get().Error("failed to produce message",
			zap.String("topic", topic),
			zap.Error(err))
		return err
	}

	logger.Get().Debug("message produced successfully", zap.String("topic", topic))
	return nil
}

// DeliveryFailures is the number of messages the broker rejected.
func (p *Publisher) DeliveryFailures() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

// Close flushes outstanding messages, then closes the producer and waits for
// the delivery drain to finish.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if remaining := p.producer.Flush(flushTimeoutMs); remaining > 0 {
			logger.Get().Warn("Kafka producer closed with undelivered messages", zap.Int("remaining", remaining))
		}
		p.producer.Close()
		<-p.done
	})
}
