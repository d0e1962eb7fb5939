package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

const streakPollInterval = 1 * time.Hour

// StreakStore is the slice of the user repository the scheduler needs.
type StreakStore interface {
	ExpireStreaks(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// StreakScheduler periodically zeroes streaks for users who have not logged
// in for more than a day, and records the lapse as an activity event.
type StreakScheduler struct {
	users    StreakStore
	events   EventRecorder
	interval time.Duration
	stopChan chan struct{}
}

func NewStreakScheduler(users StreakStore, events EventRecorder) *StreakScheduler {
	return &StreakScheduler{
		users:    users,
		events:   events,
		interval: streakPollInterval,
		stopChan: make(chan struct{}),
	}
}

func (s *StreakScheduler) Start() {
	if s.users == nil {
		return
	}

	go s.loop()
	log.Printf("Streak scheduler started")
}

func (s *StreakScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *StreakScheduler) loop() {
	// Run on startup as well as by interval.
	s.expire(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.expire(context.Background(), time.Now().UTC())
		}
	}
}

func (s *StreakScheduler) expire(ctx context.Context, now time.Time) {
	expired, err := s.users.ExpireStreaks(ctx, now)
	if err != nil {
		log.Printf("streak sweep: failed to expire streaks: %v", err)
		return
	}

	if s.events == nil {
		return
	}
	for _, userID := range expired {
		if err := s.events.RecordEvent(ctx, userID, "streak_expired", nil); err != nil {
			log.Printf("streak sweep: failed to record lapse for user %s: %v", userID, err)
		}
	}
}
