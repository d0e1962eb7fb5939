package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventGroupJoined   = "group_joined"
	EventGroupLeft     = "group_left"
	EventQuizJoined    = "quiz_joined"
	EventQuizCreated   = "quiz_created"
	EventLogin         = "login"
	EventAIInteraction = "ai_interaction"
	EventAchievement   = "achievement"
	EventStreakExpired = "streak_expired"
)

// ActivityEvent is an append-only record of something a user did. The
// dashboard reads these back verbatim; no aggregation happens here.
type ActivityEvent struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	EventType string            `json:"event_type"`
	EventData map[string]string `json:"event_data"`
	CreatedAt time.Time         `json:"created_at"`
}

type WeeklyActivity struct {
	GroupsJoined int `json:"groups_joined"`
	QuizzesTaken int `json:"quizzes_taken"`
	Logins       int `json:"logins"`
}

type DashboardResponse struct {
	Progress       Progress        `json:"progress"`
	WeeklyActivity WeeklyActivity  `json:"weekly_activity"`
	RecentEvents   []ActivityEvent `json:"recent_events"`
}
