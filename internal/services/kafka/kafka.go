package kafka

import (
	"context"

	"github.com/iwtcode/hexapodService/internal/config"
	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"

	"github.com/segmentio/kafka-go"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer создает новый экземпляр продюсера Kafka. При выключенной отправке
// возвращается продюсер, который отбрасывает сообщения.
func NewKafkaProducer(cfg *config.AppConfig, logger *logging.Logger) (interfaces.KafkaService, error) {
	if !cfg.Kafka.Enable {
		logger.WithPrefix("KAFKA").Info("Kafka sink disabled")
		return NopProducer{}, nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Broker),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.Hash{}, // события одного устройства идут в одну партицию
		RequiredAcks: kafka.RequireOne,
	}
	logger.WithPrefix("KAFKA").Info("Kafka sink enabled", "broker", cfg.Kafka.Broker, "topic", cfg.Kafka.Topic)
	return &KafkaProducer{writer: writer}, nil
}

// Produce отправляет сообщение в Kafka
func (p *KafkaProducer) Produce(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx,
		kafka.Message{
			Key:   key,
			Value: value,
		},
	)
}

// Close закрывает соединение с Kafka
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// NopProducer используется, когда отправка в Kafka выключена.
type NopProducer struct{}

func (NopProducer) Produce(context.Context, []byte, []byte) error { return nil }
func (NopProducer) Close() error                                  { return nil }
