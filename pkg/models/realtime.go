package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Server → client event types.
const (
	EventUsersOnline     = "users_online"
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventNewMessage      = "new_message"
	EventAnswerSubmitted = "answer_submitted"
	EventNotification    = "notification"
)

// Client → server event types.
const (
	EventJoinStudyGroup   = "join_study_group"
	EventLeaveStudyGroup  = "leave_study_group"
	EventGroupMessage     = "group_message"
	EventJoinQuizRoom     = "join_quiz_room"
	EventLeaveQuizRoom    = "leave_quiz_room"
	EventSubmitQuizAnswer = "submit_quiz_answer"
	EventSendNotification = "send_notification"
)

// Event is the wire envelope for the realtime channel. Payload shape depends
// on Type.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: data}, nil
}

type RoomPayload struct {
	RoomID string `json:"room_id"`
}

type GroupMessagePayload struct {
	GroupID string `json:"group_id"`
	Message string `json:"message"`
}

type QuizAnswerPayload struct {
	RoomID     string `json:"room_id"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type AnswerSubmittedPayload struct {
	RoomID     string    `json:"room_id"`
	UserID     uuid.UUID `json:"user_id"`
	QuestionID string    `json:"question_id"`
	Timestamp  time.Time `json:"timestamp"`
}

type PresencePayload struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// Notification is pushed to a single target user and persisted so it can be
// read back after reconnect.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	FromID    uuid.UUID `json:"from_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type SendNotificationPayload struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}
