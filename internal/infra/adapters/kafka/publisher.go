// File: internal/infra/adapters/kafka/publisher.go
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"webpay-checkout/internal/domain/ports/adapter"
	"webpay-checkout/internal/infra/metrics"
	"webpay-checkout/internal/infra/worker"
)

var _ adapter.EventPublisher = (*Publisher)(nil)

const produceTimeout = 10 * time.Second

// producer is the slice of *kgo.Client the publisher needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Publisher hands checkout events to Kafka from a worker pool so the
// callback path never waits on the broker.
type Publisher struct {
	client producer
	topic  string
	pool   *worker.Pool
	log    *zerolog.Logger
}

func NewPublisher(brokers []string, topic string, pool *worker.Pool, logger *zerolog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers")
	}
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordRetries(5),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return newPublisher(cl, topic, pool, logger), nil
}

func newPublisher(client producer, topic string, pool *worker.Pool, logger *zerolog.Logger) *Publisher {
	return &Publisher{client: client, topic: topic, pool: pool, log: logger}
}

// Publish encodes ev and queues it. Only encoding and a full queue are
// reported to the caller; broker errors are logged by the worker.
func (p *Publisher) Publish(ctx context.Context, ev adapter.CheckoutEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		metrics.IncEventPublished(ev.Type, "error")
		return fmt.Errorf("encode event: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.BuyOrder),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}

	err = p.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, produceTimeout)
		defer cancel()
		if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
			metrics.IncEventPublished(ev.Type, "error")
			return fmt.Errorf("produce %s %s: %w", ev.Type, ev.BuyOrder, err)
		}
		metrics.IncEventPublished(ev.Type, "ok")
		p.log.Debug().Str("type", ev.Type).Str("buy_order", ev.BuyOrder).Msg("event published")
		return nil
	})
	if err != nil {
		metrics.IncEventPublished(ev.Type, "dropped")
		return fmt.Errorf("queue event: %w", err)
	}
	return nil
}

// Close flushes nothing itself; stop the pool first so queued records are produced.
func (p *Publisher) Close() {
	p.client.Close()
}
