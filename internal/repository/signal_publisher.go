package repository

import (
	"context"

	"StockSignal/internal/domain/models"
	domrepo "StockSignal/internal/domain/repository"
	pkgkafka "StockSignal/pkg/kafka"
)

type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaSignalPublisher implements SignalPublisher. Events are keyed by symbol
// so a symbol's signals stay ordered within one partition.
type KafkaSignalPublisher struct {
	producer batchProducer
	topic    string
}

func NewKafkaSignalPublisher(producer batchProducer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, ev models.SignalEvent) error {
	return p.PublishBatch(ctx, []models.SignalEvent{ev})
}

func (p *KafkaSignalPublisher) PublishBatch(ctx context.Context, evs []models.SignalEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(evs))
	for i, ev := range evs {
		msgs[i] = pkgkafka.Message{Key: []byte(ev.Symbol), Value: ev}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)
