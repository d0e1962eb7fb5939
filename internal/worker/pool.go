package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/idfuturestars/starguide/pkg/models"
)

const NotificationQueue = "queue:notifications"

// NotificationStore persists notifications before fanout.
type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
}

// Pool drains the notification queue: each delivery is persisted, then
// published on the target user's pub/sub channel for the websocket hub to
// fan out. Enqueueing is fire-and-forget from the sender's perspective.
type Pool struct {
	redis         *redis.Client
	notifications NotificationStore
	workerCount   int
	stopChan      chan struct{}
}

func NewPool(redisClient *redis.Client, notifications NotificationStore, workerCount int) *Pool {
	return &Pool{
		redis:         redisClient,
		notifications: notifications,
		workerCount:   workerCount,
		stopChan:      make(chan struct{}),
	}
}

// Enqueue pushes a notification onto the delivery queue.
func Enqueue(ctx context.Context, redisClient *redis.Client, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return redisClient.RPush(ctx, NotificationQueue, payload).Err()
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d notification workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Notification worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with a short timeout so shutdown is picked up promptly
		result, err := p.redis.BLPop(ctx, 5*time.Second, NotificationQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var notification models.Notification
		if err := json.Unmarshal([]byte(result[1]), &notification); err != nil {
			log.Printf("Worker %d: failed to parse notification: %v", id, err)
			continue
		}

		p.deliver(ctx, id, notification)
	}
}

func (p *Pool) deliver(ctx context.Context, workerID int, notification models.Notification) {
	if p.notifications != nil {
		if err := p.notifications.Insert(ctx, &notification); err != nil {
			log.Printf("Worker %d: failed to persist notification for user %s: %v", workerID, notification.UserID, err)
			// Still attempt live delivery; the send is at-most-once anyway.
		}
	}

	event, err := models.NewEvent(models.EventNotification, notification)
	if err != nil {
		log.Printf("Worker %d: failed to encode notification event: %v", workerID, err)
		return
	}
	payload, _ := json.Marshal(event)

	channel := "user_updates:" + notification.UserID.String()
	if err := p.redis.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("Worker %d: failed to publish notification to %s: %v", workerID, channel, err)
	}
}
