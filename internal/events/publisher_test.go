package events

import (
	"context"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("no_brokers_yields_nop", func(t *testing.T) {
		p := New(nil, "ledger.revalued")
		if _, ok := p.(NopPublisher); !ok {
			t.Fatalf("expected NopPublisher, got %T", p)
		}
		if err := p.Publish(context.Background(), "k", LedgerRevalued{Type: TypeLedgerRevalued}); err != nil {
			t.Errorf("nop publish should not fail: %v", err)
		}
		if err := p.Close(); err != nil {
			t.Errorf("nop close should not fail: %v", err)
		}
	})

	t.Run("brokers_yield_kafka", func(t *testing.T) {
		p := New([]string{"localhost:9092"}, "ledger.revalued")
		kp, ok := p.(*KafkaPublisher)
		if !ok {
			t.Fatalf("expected *KafkaPublisher, got %T", p)
		}
		if kp.writer.Topic != "ledger.revalued" {
			t.Errorf("expected topic ledger.revalued, got %s", kp.writer.Topic)
		}
		_ = kp.Close()
	})

	t.Run("unmarshalable_event_fails_before_network", func(t *testing.T) {
		kp := NewKafkaPublisher([]string{"localhost:9092"}, "t")
		defer kp.Close()
		if err := kp.Publish(context.Background(), "k", make(chan int)); err == nil {
			t.Error("expected marshal error")
		}
	})
}
