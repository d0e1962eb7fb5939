package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoomWaiting  = "waiting"
	RoomActive   = "active"
	RoomFinished = "finished"
)

type QuizRoom struct {
	ID                  uuid.UUID `json:"id"`
	Title               string    `json:"title"`
	Description         *string   `json:"description"`
	Subject             string    `json:"subject"`
	Difficulty          string    `json:"difficulty"`
	RoomCode            string    `json:"room_code"`
	MaxParticipants     int       `json:"max_participants"`
	CurrentParticipants int       `json:"current_participants"`
	Status              string    `json:"status"`
	CreatedBy           uuid.UUID `json:"created_by"`
	CreatorName         string    `json:"creator_name"`
	CreatedAt           time.Time `json:"created_at"`
}

type CreateQuizRoomRequest struct {
	Title            string  `json:"title"`
	Description      *string `json:"description,omitempty"`
	Subject          string  `json:"subject"`
	Difficulty       string  `json:"difficulty"`
	MaxParticipants  int     `json:"max_participants"`
	TimeLimitMinutes int     `json:"time_limit_minutes"`
}

// Assessment is a published question set students can practice against.
// Question content and scoring live outside this service.
type Assessment struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Subject       string    `json:"subject"`
	Difficulty    string    `json:"difficulty"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}
