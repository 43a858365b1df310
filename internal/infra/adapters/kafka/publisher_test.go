//go:build !integration

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"webpay-checkout/internal/domain/ports/adapter"
	"webpay-checkout/internal/infra/worker"
)

type mockProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
	closed  bool
}

func (m *mockProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if m.err == nil {
			m.records = append(m.records, r)
		}
		out = append(out, kgo.ProduceResult{Record: r, Err: m.err})
	}
	return out
}

func (m *mockProducer) Close() { m.closed = true }

func TestPublisher_Publish(t *testing.T) {
	logger := zerolog.Nop()
	ev := adapter.CheckoutEvent{
		Type:       adapter.EventOrderPaid,
		BuyOrder:   "C7T1760572800123",
		UserID:     7,
		Amount:     3000,
		OrderID:    "01JABCDEF",
		OccurredAt: time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC),
	}

	t.Run("should produce a JSON record keyed by buy order", func(t *testing.T) {
		// --- Arrange ---
		pool := worker.NewPool(1, 4, &logger)
		pool.Start(context.Background())
		mp := &mockProducer{}
		p := newPublisher(mp, "checkout-events", pool, &logger)

		// --- Act ---
		err := p.Publish(context.Background(), ev)
		pool.Stop()

		// --- Assert ---
		if err != nil {
			t.Fatalf("Publish: %v", err)
		}
		if len(mp.records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(mp.records))
		}
		rec := mp.records[0]
		if string(rec.Key) != ev.BuyOrder || rec.Topic != "checkout-events" {
			t.Errorf("unexpected record key=%q topic=%q", rec.Key, rec.Topic)
		}
		var got adapter.CheckoutEvent
		if err := json.Unmarshal(rec.Value, &got); err != nil {
			t.Fatalf("decode value: %v", err)
		}
		if got.Type != ev.Type || got.Amount != 3000 || got.OrderID != ev.OrderID {
			t.Errorf("unexpected payload %+v", got)
		}
	})

	t.Run("should not surface broker errors to the caller", func(t *testing.T) {
		pool := worker.NewPool(1, 4, &logger)
		pool.Start(context.Background())
		mp := &mockProducer{err: errors.New("broker down")}
		p := newPublisher(mp, "checkout-events", pool, &logger)

		err := p.Publish(context.Background(), ev)
		pool.Stop()

		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
		if len(mp.records) != 0 {
			t.Errorf("expected no stored records, got %d", len(mp.records))
		}
	})

	t.Run("should report a dropped event when the queue is full", func(t *testing.T) {
		// Pool never started, queue of one.
		pool := worker.NewPool(1, 1, &logger)
		p := newPublisher(&mockProducer{}, "checkout-events", pool, &logger)

		if err := p.Publish(context.Background(), ev); err != nil {
			t.Fatalf("first Publish: %v", err)
		}
		if err := p.Publish(context.Background(), ev); !errors.Is(err, worker.ErrQueueFull) {
			t.Errorf("expected ErrQueueFull, got %v", err)
		}
	})
}
