package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	GroupPublic  = "public"
	GroupPrivate = "private"
)

type StudyGroup struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Subject     string    `json:"subject"`
	GroupType   string    `json:"group_type"`
	JoinCode    string    `json:"join_code"`
	MemberCount int       `json:"member_count"`
	MaxMembers  int       `json:"max_members"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	IsMember    bool      `json:"is_member"`
}

type CreateGroupRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Subject     string  `json:"subject"`
	GroupType   string  `json:"group_type"`
	MaxMembers  int     `json:"max_members"`
}

type JoinGroupRequest struct {
	JoinCode string `json:"join_code"`
}

// GroupMessage is a chat message posted to a study group channel. Messages
// arrive over the realtime channel and are persisted for late joiners.
type GroupMessage struct {
	ID        uuid.UUID `json:"id"`
	GroupID   uuid.UUID `json:"group_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
