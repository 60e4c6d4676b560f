package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ukallavi/Secura-sub000/internal/domain"
)

func TestChannelBus(t *testing.T) {
	ctx := context.Background()

	t.Run("PublishAndSubscribe", func(t *testing.T) {
		b := NewChannelBus(10)
		defer b.Close()

		received := make(chan *domain.Message, 1)
		_, err := b.Subscribe(ctx, "tenant-1", domain.TopicAudit, func(ctx context.Context, msg *domain.Message) error {
			received <- msg
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}

		if err := b.Publish(ctx, "tenant-1", domain.TopicAudit, []byte(`{"action":"test"}`)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		select {
		case msg := <-received:
			if msg.TenantID != "tenant-1" || msg.Topic != domain.TopicAudit {
				t.Errorf("unexpected message envelope: %+v", msg)
			}
			if string(msg.Payload) != `{"action":"test"}` {
				t.Errorf("payload mangled: %s", msg.Payload)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for message")
		}
	})

	t.Run("TenantScoping", func(t *testing.T) {
		b := NewChannelBus(10)
		defer b.Close()

		var mu sync.Mutex
		var got []string
		b.Subscribe(ctx, "tenant-1", domain.TopicNotification, func(ctx context.Context, msg *domain.Message) error {
			mu.Lock()
			got = append(got, msg.TenantID)
			mu.Unlock()
			return nil
		})

		b.Publish(ctx, "tenant-2", domain.TopicNotification, []byte("x"))
		b.Publish(ctx, "tenant-1", domain.TopicNotification, []byte("y"))

		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		if len(got) != 1 || got[0] != "tenant-1" {
			t.Errorf("expected only tenant-1 delivery, got %v", got)
		}
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		b := NewChannelBus(10)
		defer b.Close()

		received := make(chan struct{}, 10)
		sub, err := b.Subscribe(ctx, "tenant-1", domain.TopicAudit, func(ctx context.Context, msg *domain.Message) error {
			received <- struct{}{}
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}

		if err := sub.Unsubscribe(); err != nil {
			t.Fatalf("Unsubscribe failed: %v", err)
		}

		b.Publish(ctx, "tenant-1", domain.TopicAudit, []byte("x"))
		time.Sleep(50 * time.Millisecond)

		select {
		case <-received:
			t.Error("unsubscribed handler should not receive messages")
		default:
		}
	})

	t.Run("ClosedBusRejectsPublish", func(t *testing.T) {
		b := NewChannelBus(10)
		b.Close()

		if err := b.Publish(ctx, "tenant-1", domain.TopicAudit, []byte("x")); err == nil {
			t.Error("publish on closed bus should error")
		}
		if err := b.Ping(ctx); err == nil {
			t.Error("ping on closed bus should error")
		}
	})
}

func TestNewFactory(t *testing.T) {
	b, err := New(domain.EventBusConfig{Type: "channel", ChannelBufferSize: 10})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer b.Close()

	if err := b.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	if _, err := New(domain.EventBusConfig{Type: "smoke-signal"}); err == nil {
		t.Error("unknown bus type should error")
	}
}
