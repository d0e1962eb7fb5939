package client

import (
	"sync"

	"github.com/idfuturestars/starguide/pkg/models"
)

// NotificationBus is an explicit observer registry for in-app notifications
// (achievement popups, pushed messages). The application shell owns one
// instance and hands it to whatever raises or displays notifications.
type NotificationBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(models.Notification)
}

func NewNotificationBus() *NotificationBus {
	return &NotificationBus{subs: make(map[int]func(models.Notification))}
}

// Subscribe registers a handler and returns an unsubscribe func.
func (b *NotificationBus) Subscribe(fn func(models.Notification)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers the notification to every current subscriber.
func (b *NotificationBus) Publish(n models.Notification) {
	b.mu.Lock()
	subs := make([]func(models.Notification), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}
