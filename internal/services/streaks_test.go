package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStreakStore struct {
	expired []uuid.UUID
	err     error
	calls   int
}

func (f *fakeStreakStore) ExpireStreaks(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	f.calls++
	return f.expired, f.err
}

func TestStreakSweepRecordsLapses(t *testing.T) {
	lapsed := []uuid.UUID{uuid.New(), uuid.New()}
	store := &fakeStreakStore{expired: lapsed}
	events := &fakeEventRecorder{}

	s := NewStreakScheduler(store, events)
	s.expire(context.Background(), time.Now().UTC())

	if store.calls != 1 {
		t.Fatalf("expected one sweep, got %d", store.calls)
	}
	if len(events.events) != 2 {
		t.Fatalf("expected two lapse events, got %v", events.events)
	}
	for _, eventType := range events.events {
		if eventType != "streak_expired" {
			t.Fatalf("expected streak_expired events, got %v", events.events)
		}
	}
}

func TestStreakSweepToleratesStoreError(t *testing.T) {
	store := &fakeStreakStore{err: errors.New("db down")}
	events := &fakeEventRecorder{}

	s := NewStreakScheduler(store, events)
	s.expire(context.Background(), time.Now().UTC())

	if len(events.events) != 0 {
		t.Fatalf("expected no events on store failure, got %v", events.events)
	}
}

func TestStreakSchedulerStopIsIdempotent(t *testing.T) {
	s := NewStreakScheduler(&fakeStreakStore{}, nil)
	s.Stop()
	s.Stop()
}
