package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/idfuturestars/starguide/pkg/models"
)

type AnalyticsRepo struct {
	pool *pgxpool.Pool
}

func NewAnalyticsRepo(pool *pgxpool.Pool) *AnalyticsRepo {
	return &AnalyticsRepo{pool: pool}
}

func (r *AnalyticsRepo) RecordEvent(ctx context.Context, userID uuid.UUID, eventType string, data map[string]string) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO activity_events (id, user_id, event_type, event_data)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), userID, eventType, payload,
	)
	return err
}

func (r *AnalyticsRepo) RecentEvents(ctx context.Context, userID uuid.UUID, limit int) ([]models.ActivityEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, event_type, event_data, created_at
		FROM activity_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.ActivityEvent, 0)
	for rows.Next() {
		var e models.ActivityEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			json.Unmarshal(payload, &e.EventData)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *AnalyticsRepo) WeeklyActivity(ctx context.Context, userID uuid.UUID, now time.Time) (models.WeeklyActivity, error) {
	var activity models.WeeklyActivity
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE event_type = 'group_joined'),
			COUNT(*) FILTER (WHERE event_type = 'quiz_joined'),
			COUNT(*) FILTER (WHERE event_type = 'login')
		FROM activity_events
		WHERE user_id = $1 AND created_at >= $2 - INTERVAL '7 days'`,
		userID, now,
	).Scan(&activity.GroupsJoined, &activity.QuizzesTaken, &activity.Logins)
	return activity, err
}
