package client

import (
	"testing"

	"github.com/idfuturestars/starguide/pkg/models"
)

func TestNotificationBusFanout(t *testing.T) {
	bus := NewNotificationBus()

	var first, second []string
	unsubFirst := bus.Subscribe(func(n models.Notification) {
		first = append(first, n.Title)
	})
	bus.Subscribe(func(n models.Notification) {
		second = append(second, n.Title)
	})

	bus.Publish(models.Notification{Title: "one"})
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected both subscribers notified, got %v / %v", first, second)
	}

	unsubFirst()
	bus.Publish(models.Notification{Title: "two"})
	if len(first) != 1 {
		t.Fatalf("expected unsubscribed handler to stop receiving, got %v", first)
	}
	if len(second) != 2 || second[1] != "two" {
		t.Fatalf("expected remaining subscriber to keep receiving, got %v", second)
	}
}

func TestNotificationBusUnsubscribeTwiceIsSafe(t *testing.T) {
	bus := NewNotificationBus()

	delivered := 0
	unsub := bus.Subscribe(func(models.Notification) { delivered++ })
	unsub()
	unsub()

	bus.Publish(models.Notification{Title: "ignored"})
	if delivered != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", delivered)
	}
}
